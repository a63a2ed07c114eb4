// Package orch drives the per-peer negotiation state machines of a mesh room.
package orch

import (
	"context"

	"github.com/dorhakim100/camjam/internal/app"
	"github.com/dorhakim100/camjam/internal/core"
	"github.com/dorhakim100/camjam/internal/domain"
	"github.com/dorhakim100/camjam/internal/media"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// MediaSession is the Local Media Session as seen by the orchestrator.
type MediaSession interface {
	Acquire(ctx context.Context) (media.State, error)
	SetTrackEnabled(kind domain.MediaKind, enabled bool) bool
	Reacquire(ctx context.Context, kind domain.MediaKind, enabled bool) (media.State, error)
	Release()
	State() media.State
}

type Config struct {
	Transport core.SignalTransport
	Factory   core.PeerConnectionFactory
	Media     MediaSession
	Observer  core.Observer
	Loop      *app.Loop

	Policy     app.GlarePolicy
	Limiter    *app.ReconnectLimiter
	ToggleMode domain.ToggleMode
}

type Orchestrator struct {
	transport core.SignalTransport
	factory   core.PeerConnectionFactory
	media     MediaSession
	observer  core.Observer
	loop      *app.Loop

	registry *app.Registry
	roster   *app.Roster
	policy   app.GlarePolicy
	limiter  *app.ReconnectLimiter
	toggle   domain.ToggleMode

	// ctx is the lifetime of the signaling session, set by Start.
	ctx    context.Context
	logger zerolog.Logger
}

func New(cfg Config) *Orchestrator {
	o := &Orchestrator{
		transport: cfg.Transport,
		factory:   cfg.Factory,
		media:     cfg.Media,
		observer:  cfg.Observer,
		loop:      cfg.Loop,
		roster:    app.NewRoster(),
		policy:    cfg.Policy,
		limiter:   cfg.Limiter,
		toggle:    cfg.ToggleMode,
		ctx:       context.Background(),
		logger:    log.With().Str("module", "app.orch").Logger(),
	}
	if o.observer == nil {
		o.observer = core.ObserverFuncs{}
	}
	if o.loop == nil {
		o.loop = app.NewLoop()
	}
	if o.policy == nil {
		o.policy = app.LexicalPolicy{}
	}
	if o.limiter == nil {
		o.limiter = app.NewReconnectLimiter(0, 1)
	}
	if o.toggle == "" {
		o.toggle = domain.ToggleSoft
	}
	o.registry = app.NewRegistry(cfg.Media)
	return o
}

// Start subscribes to the signaling events. Inbound messages are decoded on
// the transport goroutine and handled on the loop.
func (o *Orchestrator) Start(ctx context.Context) {
	o.ctx = ctx
	on(o, core.EventOffer, o.handleOffer)
	on(o, core.EventAnswer, o.handleAnswer)
	on(o, core.EventICECandidate, o.handleCandidate)
	on(o, core.EventRosterChanged, func(p core.RosterPayload) { o.syncRoster(p.Members) })
	o.transport.On(core.EventEndMeeting, func(core.Message) { o.loop.Post(o.endMeeting) })
	o.logger.Info().Str("local_id", string(o.LocalID())).Msg("orchestrator started")
}

func on[T any](o *Orchestrator, ev core.Event, fn func(T)) {
	o.transport.On(ev, func(m core.Message) {
		var p T
		if err := m.Decode(&p); err != nil {
			o.logger.Warn().Err(err).Str("event", string(ev)).Msg("malformed payload dropped")
			return
		}
		o.loop.Post(func() { fn(p) })
	})
}

func (o *Orchestrator) LocalID() domain.RemoteID { return o.transport.LocalID() }

func (o *Orchestrator) Loop() *app.Loop { return o.loop }

func (o *Orchestrator) Registry() *app.Registry { return o.registry }

func (o *Orchestrator) Roster() *app.Roster { return o.roster }

// Peers is safe to call from any goroutine.
func (o *Orchestrator) Peers() []app.EntryInfo { return o.registry.Snapshot() }

func (o *Orchestrator) MediaState() domain.MediaState { return o.media.State().Media() }

// AcquireMedia captures the local camera and microphone. Errors are returned
// and reported to the observer; they are not retried.
func (o *Orchestrator) AcquireMedia(ctx context.Context) error {
	return o.loop.Do(ctx, func() error { return o.acquire(ctx) })
}

// acquire replaces the capture tracks. The previous tracks are stopped either
// way, so live peers are moved onto whatever the session now holds.
func (o *Orchestrator) acquire(ctx context.Context) error {
	_, err := o.media.Acquire(ctx)
	st := o.media.State()
	for _, e := range o.registry.Entries() {
		if e.Closed() {
			continue
		}
		for _, kind := range domain.MediaKinds {
			o.applyTrack(e, kind, st.Track(kind))
		}
	}
	if err != nil {
		o.observer.OnError(domain.KindOf(err), "", err)
		return err
	}
	return nil
}

func (o *Orchestrator) send(ev core.Event, payload any) {
	if err := o.transport.Send(o.ctx, ev, payload); err != nil {
		o.logger.Error().Err(err).Str("event", string(ev)).Msg("signal send failed")
	}
}

// Room is safe to call from any goroutine.
func (o *Orchestrator) Room() domain.Room { return o.roster.Current() }
