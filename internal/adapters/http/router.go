package http

import (
	"context"

	"github.com/dorhakim100/camjam/internal/app"
	"github.com/dorhakim100/camjam/internal/config"
	"github.com/dorhakim100/camjam/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Controller is what the control API drives; *orch.Orchestrator implements it.
type Controller interface {
	LocalID() domain.RemoteID
	Peers() []app.EntryInfo
	Room() domain.Room
	MediaState() domain.MediaState
	Reconnect(ctx context.Context, id domain.RemoteID) error
	ReconnectAll(ctx context.Context) error
	Toggle(ctx context.Context, kind domain.MediaKind, enabled bool) (domain.MediaState, error)
}

func SetupRouter(cfg *config.Config, ctl Controller) *gin.Engine {
	if cfg.Mode != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	h := &handlers{ctl: ctl}
	r.GET("/healthz", h.health)

	api := r.Group("/api")
	api.GET("/peers", h.peers)
	api.GET("/roster", h.roster)
	api.POST("/peers/:id/reconnect", h.reconnect)
	api.POST("/reconnect", h.reconnectAll)
	api.POST("/media/:kind", h.toggleMedia)

	log.Info().Str("module", "adapters.http").Str("addr", cfg.Control.Addr).Msg("router setup")
	return r
}
