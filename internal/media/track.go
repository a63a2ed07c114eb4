// Package media owns the local capture tracks shared by every peer connection.
package media

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/dorhakim100/camjam/internal/core"
	"github.com/dorhakim100/camjam/internal/domain"
	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
)

var ErrTrackStopped = errors.New("track stopped")

type TrackState int32

const (
	TrackLive TrackState = iota
	TrackMuted
	TrackStopped
)

func (s TrackState) String() string {
	switch s {
	case TrackLive:
		return "live"
	case TrackMuted:
		return "muted"
	case TrackStopped:
		return "stopped"
	}
	return "unknown"
}

var (
	VideoCodec = webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8, ClockRate: 90000}
	AudioCodec = webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2}
)

// Track is an outbound capture track. The same Track is attached to every
// peer connection; muting it drops samples for all of them at once.
type Track struct {
	*webrtc.TrackLocalStaticSample
	kind  domain.MediaKind
	state atomic.Int32 // Zero by default (TrackLive)

	stopOnce sync.Once
	done     chan struct{}
}

var _ core.LocalTrack = (*Track)(nil)

func NewTrack(kind domain.MediaKind, streamID string) (*Track, error) {
	codec := VideoCodec
	if kind == domain.MediaAudio {
		codec = AudioCodec
	}
	local, err := webrtc.NewTrackLocalStaticSample(codec, string(kind)+"-"+uuid.NewString(), streamID)
	if err != nil {
		return nil, err
	}
	return &Track{TrackLocalStaticSample: local, kind: kind, done: make(chan struct{})}, nil
}

func (t *Track) MediaKind() domain.MediaKind { return t.kind }

func (t *Track) State() TrackState { return TrackState(t.state.Load()) }

func (t *Track) Enabled() bool { return t.State() == TrackLive }

// SetEnabled flips between live and muted. A stopped track stays stopped.
func (t *Track) SetEnabled(enabled bool) {
	next := TrackMuted
	if enabled {
		next = TrackLive
	}
	for {
		cur := t.state.Load()
		if TrackState(cur) == TrackStopped {
			return
		}
		if t.state.CompareAndSwap(cur, int32(next)) {
			return
		}
	}
}

func (t *Track) Stop() {
	t.stopOnce.Do(func() {
		t.state.Store(int32(TrackStopped))
		close(t.done)
	})
}

func (t *Track) Stopped() bool { return t.State() == TrackStopped }

// Done is closed once the track is stopped.
func (t *Track) Done() <-chan struct{} { return t.done }

// WriteSample forwards the sample to every bound connection unless the track is muted.
func (t *Track) WriteSample(s media.Sample) error {
	switch t.State() {
	case TrackMuted:
		return nil
	case TrackStopped:
		return ErrTrackStopped
	}
	return t.TrackLocalStaticSample.WriteSample(s)
}
