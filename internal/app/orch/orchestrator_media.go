package orch

import (
	"context"

	"github.com/dorhakim100/camjam/internal/app"
	"github.com/dorhakim100/camjam/internal/core"
	"github.com/dorhakim100/camjam/internal/domain"
	"github.com/dorhakim100/camjam/internal/media"
	"github.com/pion/webrtc/v4"
)

// Toggle turns a local media kind on or off for every connected peer.
func (o *Orchestrator) Toggle(ctx context.Context, kind domain.MediaKind, enabled bool) (domain.MediaState, error) {
	var out domain.MediaState
	err := o.loop.Do(ctx, func() error {
		var err error
		out, err = o.toggleMedia(ctx, kind, enabled)
		return err
	})
	return out, err
}

func (o *Orchestrator) toggleMedia(ctx context.Context, kind domain.MediaKind, enabled bool) (domain.MediaState, error) {
	var (
		st  media.State
		err error
	)
	if o.toggle == domain.ToggleHard {
		st, err = o.media.Reacquire(ctx, kind, enabled)
	} else if !o.media.SetTrackEnabled(kind, enabled) && enabled {
		// Nothing to unmute: capture the kind for the first time.
		st, err = o.media.Reacquire(ctx, kind, true)
	} else {
		st = o.media.State()
	}
	if err != nil {
		o.observer.OnError(domain.KindOf(err), "", err)
		return o.media.State().Media(), err
	}

	track := st.Track(kind)
	for _, e := range o.registry.Entries() {
		if e.Closed() {
			continue
		}
		o.applyTrack(e, kind, track)
	}

	ms := st.Media()
	o.send(core.EventMediaStateChanged, ms)
	o.logger.Info().Str("kind", string(kind)).Bool("enabled", enabled).Str("mode", string(o.toggle)).Msg("media toggled")
	return ms, nil
}

// applyTrack swaps the outbound track of kind in place. A peer with no sender
// for kind gets the track added, which pion answers with negotiationneeded.
func (o *Orchestrator) applyTrack(e *app.Entry, kind domain.MediaKind, track core.LocalTrack) {
	var next webrtc.TrackLocal
	if track != nil {
		next = track
	}
	if s, ok := e.Sender(kind); ok {
		if s.Track() == next {
			return
		}
		if err := s.ReplaceTrack(next); err != nil {
			o.logger.Warn().Err(err).Str("remote_id", string(e.RemoteID)).Str("kind", string(kind)).Msg("replace track failed")
		}
		return
	}
	if track == nil {
		return
	}
	s, err := e.Conn.AddTrack(track)
	if err != nil {
		o.logger.Warn().Err(err).Str("remote_id", string(e.RemoteID)).Str("kind", string(kind)).Msg("add track failed")
		return
	}
	e.SetSender(kind, s)
	o.logger.Info().Str("remote_id", string(e.RemoteID)).Str("kind", string(kind)).Msg("track added, renegotiation pending")
}
