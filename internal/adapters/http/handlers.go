package http

import (
	"errors"
	"net/http"

	"github.com/dorhakim100/camjam/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type handlers struct {
	ctl Controller
}

type MediaRequest struct {
	Enabled *bool `json:"enabled"`
}

type StatusResponse struct {
	LocalID domain.RemoteID   `json:"localId"`
	Room    domain.RoomID     `json:"room"`
	Media   domain.MediaState `json:"media"`
	Peers   int               `json:"peers"`
}

func (h *handlers) health(c *gin.Context) {
	room := h.ctl.Room()
	c.JSON(http.StatusOK, StatusResponse{
		LocalID: h.ctl.LocalID(),
		Room:    room.ID,
		Media:   h.ctl.MediaState(),
		Peers:   len(h.ctl.Peers()),
	})
}

func (h *handlers) peers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"peers": h.ctl.Peers()})
}

func (h *handlers) roster(c *gin.Context) {
	room := h.ctl.Room()
	members := room.Members
	if members == nil {
		members = domain.RosterSnapshot{}
	}
	c.JSON(http.StatusOK, gin.H{"room": room.ID, "members": members})
}

func (h *handlers) reconnect(c *gin.Context) {
	id := domain.RemoteID(c.Param("id"))
	if err := id.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.ctl.Reconnect(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"reconnecting": id})
}

func (h *handlers) reconnectAll(c *gin.Context) {
	if err := h.ctl.ReconnectAll(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"reconnecting": "all"})
}

func (h *handlers) toggleMedia(c *gin.Context) {
	kind, err := domain.ParseMediaKind(c.Param("kind"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	var req MediaRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Enabled == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid enabled"})
		return
	}
	state, err := h.ctl.Toggle(c.Request.Context(), kind, *req.Enabled)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrRateLimited):
		status = http.StatusTooManyRequests
	case errors.Is(err, domain.ErrUnknownPeer):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrMediaAccessDenied):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrDeviceUnavailable):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("module", "adapters.http").Str("path", c.FullPath()).Msg("request failed")
	}
	c.JSON(status, gin.H{"error": err.Error(), "kind": domain.KindOf(err)})
}
