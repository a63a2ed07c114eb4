package media

import (
	"context"
	"sync"

	"github.com/dorhakim100/camjam/internal/core"
	"github.com/dorhakim100/camjam/internal/domain"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// State is a snapshot of the local tracks; a nil field means no track of that kind.
type State struct {
	Video core.LocalTrack
	Audio core.LocalTrack
}

func (s State) Track(kind domain.MediaKind) core.LocalTrack {
	if kind == domain.MediaVideo {
		return s.Video
	}
	return s.Audio
}

func (s *State) set(kind domain.MediaKind, t core.LocalTrack) {
	if kind == domain.MediaVideo {
		s.Video = t
		return
	}
	s.Audio = t
}

// Media reports what is actually being sent.
func (s State) Media() domain.MediaState {
	return domain.MediaState{
		IsVideo: s.Video != nil && s.Video.Enabled(),
		IsAudio: s.Audio != nil && s.Audio.Enabled(),
	}
}

func DefaultConstraints() core.Constraints {
	return core.Constraints{
		Video: &core.VideoConstraints{Width: 640, Height: 480},
		Audio: &core.AudioConstraints{EchoCancellation: true, NoiseSuppression: true},
	}
}

// Session is the Local Media Session.
type Session struct {
	mu          sync.Mutex
	devices     core.Devices
	constraints core.Constraints
	state       State
	logger      zerolog.Logger
}

func NewSession(devices core.Devices, c core.Constraints) *Session {
	return &Session{
		devices:     devices,
		constraints: c,
		logger:      log.With().Str("module", "media.session").Logger(),
	}
}

// Acquire stops any held tracks and captures a fresh camera and microphone pair.
func (s *Session) Acquire(ctx context.Context) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	tracks, err := s.devices.GetUserMedia(ctx, s.constraints)
	if err != nil {
		s.logger.Error().Err(err).Msg("acquire failed")
		return State{}, err
	}
	for _, t := range tracks {
		s.state.set(t.MediaKind(), t)
	}
	s.logger.Info().Bool("video", s.state.Video != nil).Bool("audio", s.state.Audio != nil).Msg("acquired")
	return s.state, nil
}

// SetTrackEnabled is the soft toggle. It reports false when no track of that kind exists.
func (s *Session) SetTrackEnabled(kind domain.MediaKind, enabled bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.state.Track(kind)
	if t == nil {
		return false
	}
	t.SetEnabled(enabled)
	s.logger.Debug().Str("kind", string(kind)).Bool("enabled", enabled).Msg("track toggled")
	return true
}

// Reacquire is the hard toggle: disabling stops the capture track, enabling captures a new one.
func (s *Session) Reacquire(ctx context.Context, kind domain.MediaKind, enabled bool) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.state.Track(kind)
	if !enabled {
		if cur != nil {
			cur.Stop()
			s.state.set(kind, nil)
		}
		return s.state, nil
	}
	if cur != nil && !cur.Stopped() {
		cur.SetEnabled(true)
		return s.state, nil
	}

	var c core.Constraints
	if kind == domain.MediaVideo {
		c.Video = s.constraints.Video
		if c.Video == nil {
			c.Video = DefaultConstraints().Video
		}
	} else {
		c.Audio = s.constraints.Audio
		if c.Audio == nil {
			c.Audio = DefaultConstraints().Audio
		}
	}
	tracks, err := s.devices.GetUserMedia(ctx, c)
	if err != nil {
		s.logger.Error().Err(err).Str("kind", string(kind)).Msg("reacquire failed")
		return s.state, err
	}
	for _, t := range tracks {
		if t.MediaKind() != kind {
			t.Stop()
			continue
		}
		s.state.set(kind, t)
	}
	return s.state, nil
}

// Release stops every held track. Calling it twice is a no-op.
func (s *Session) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Session) stopLocked() {
	for _, kind := range domain.MediaKinds {
		if t := s.state.Track(kind); t != nil {
			t.Stop()
		}
	}
	s.state = State{}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
