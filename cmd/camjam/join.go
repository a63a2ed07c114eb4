package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	router "github.com/dorhakim100/camjam/internal/adapters/http"
	"github.com/dorhakim100/camjam/internal/adapters/rtc"
	sig "github.com/dorhakim100/camjam/internal/adapters/signal"
	"github.com/dorhakim100/camjam/internal/app"
	"github.com/dorhakim100/camjam/internal/app/orch"
	"github.com/dorhakim100/camjam/internal/config"
	"github.com/dorhakim100/camjam/internal/core"
	"github.com/dorhakim100/camjam/internal/domain"
	"github.com/dorhakim100/camjam/internal/media"
)

var roomFlag string

var joinCmd = &cobra.Command{
	Use:   "join",
	Short: "Join a room and stay in it until interrupted",
	RunE:  runJoin,
}

func init() {
	joinCmd.Flags().StringVarP(&roomFlag, "room", "r", "", "room id (overrides config)")
}

func runJoin(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	setupLogger(cfg.Log)

	room := domain.RoomID(roomFlag)
	if room == "" {
		room = domain.RoomID(cfg.Room)
	}
	if room == "" {
		return errors.New("no room given: use --room or set room in config")
	}

	codec, err := sig.CodecByName(cfg.Signaling.Codec)
	if err != nil {
		return err
	}
	toggle, err := domain.ParseToggleMode(cfg.Media.ToggleMode)
	if err != nil {
		return err
	}

	rtcOpts := rtc.Options{
		STUN:       cfg.ICE.STUN,
		ForceRelay: cfg.ICE.ForceRelay,
		UDPPort:    cfg.ICE.UDPPort,
		PublicIP:   cfg.ICE.PublicIP,
		Loopback:   cfg.ICE.Loopback,
	}
	if cfg.ICE.TURN.URL != "" {
		rtcOpts.TURN = &rtc.TURNServer{URL: cfg.ICE.TURN.URL, Username: cfg.ICE.TURN.Username, Credential: cfg.ICE.TURN.Credential}
	}
	factory, err := rtc.NewFactory(rtcOpts)
	if err != nil {
		return fmt.Errorf("webrtc api: %w", err)
	}

	client := sig.NewClient(sig.Options{
		URL:        cfg.Signaling.URL,
		Codec:      codec,
		PingPeriod: cfg.Signaling.PingPeriod,
		ReadLimit:  cfg.Signaling.ReadLimit,
	})
	if err := client.Dial(ctx); err != nil {
		return err
	}

	// runCtx outlives the signal context so leave-room can still be sent on shutdown.
	runCtx, stop := context.WithCancel(context.Background())
	defer stop()

	devices := media.NewFileDevices(runCtx, cfg.Media.VideoFile, cfg.Media.AudioFile)
	session := media.NewSession(devices, media.DefaultConstraints())
	loop := app.NewLoop()
	o := orch.New(orch.Config{
		Transport:  client,
		Factory:    factory,
		Media:      session,
		Observer:   logObserver(),
		Loop:       loop,
		Policy:     app.LexicalPolicy{},
		Limiter:    app.NewReconnectLimiter(cfg.Reconnect.Interval, cfg.Reconnect.Burst),
		ToggleMode: toggle,
	})
	o.Start(runCtx)

	srv := &http.Server{
		Addr:              cfg.Control.Addr,
		Handler:           router.SetupRouter(cfg, o),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ignoreCanceled(loop.Run(runCtx)) })
	g.Go(func() error { return ignoreCanceled(client.Run(runCtx)) })
	g.Go(func() error {
		log.Info().Str("addr", cfg.Control.Addr).Msg("control API started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := o.AcquireMedia(gctx); err != nil {
			// Joining without media still lets us receive everyone else.
			log.Warn().Err(err).Msg("joining without local media")
		}
		user := domain.UserID(cfg.Profile.UserID)
		if user == "" {
			user = domain.UserID(uuid.NewString())
		}
		if err := o.Identify(gctx, user, cfg.Profile.DisplayName, cfg.Profile.AvatarURL); err != nil {
			return ignoreCanceled(err)
		}
		return ignoreCanceled(o.JoinRoom(gctx, room))
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := o.LeaveRoom(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("leave room")
		}
		if err := o.Logout(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("logout")
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("control API forced to shutdown")
		}
		// Give the write pump a moment to flush leave-room.
		time.Sleep(200 * time.Millisecond)
		stop()
		client.Close()
		return nil
	})

	err = g.Wait()
	log.Info().Msg("camjam exited")
	return err
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func logObserver() core.Observer {
	l := log.With().Str("module", "ui").Logger()
	return core.ObserverFuncs{
		RemoteStream: func(id domain.RemoteID, s core.RemoteStream) {
			l.Info().Str("remote_id", string(id)).Str("stream_id", s.ID).Int("tracks", len(s.Tracks)).Msg("remote stream")
		},
		RemoteStreamRemoved: func(id domain.RemoteID) {
			l.Info().Str("remote_id", string(id)).Msg("remote stream removed")
		},
		Error: func(kind domain.ErrorKind, id domain.RemoteID, err error) {
			l.Error().Err(err).Str("kind", string(kind)).Str("remote_id", string(id)).Msg("error")
		},
		ConnectionStateChange: func(id domain.RemoteID, s domain.ConnectionState) {
			l.Info().Str("remote_id", string(id)).Str("state", string(s)).Msg("connection state")
		},
		RosterChanged: func(m domain.RosterSnapshot) {
			l.Info().Int("members", len(m)).Msg("roster changed")
		},
	}
}
