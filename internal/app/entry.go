package app

import (
	"sync"
	"time"

	"github.com/dorhakim100/camjam/internal/core"
	"github.com/dorhakim100/camjam/internal/domain"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Entry is the per-remote negotiation record. It is mutated from the loop;
// the mutex only exists so the status API can read a consistent Info.
type Entry struct {
	RemoteID domain.RemoteID
	Conn     core.PeerConnection
	Created  time.Time

	mu            sync.Mutex
	signaling     domain.SignalingState
	connState     domain.ConnectionState
	pending       []webrtc.ICECandidateInit
	remoteApplied bool
	exchanges     int
	closed        bool
	senders       map[domain.MediaKind]core.Sender
	stream        core.RemoteStream

	logger zerolog.Logger
}

func NewEntry(id domain.RemoteID, conn core.PeerConnection) *Entry {
	return &Entry{
		RemoteID:  id,
		Conn:      conn,
		Created:   time.Now(),
		signaling: domain.SignalingStable,
		connState: domain.ConnectionNew,
		senders:   make(map[domain.MediaKind]core.Sender),
		logger:    log.With().Str("module", "app.entry").Str("remote_id", string(id)).Logger(),
	}
}

func (e *Entry) SignalingState() domain.SignalingState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.signaling
}

func (e *Entry) SetSignalingState(s domain.SignalingState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.signaling = s
}

func (e *Entry) ConnectionState() domain.ConnectionState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.connState
}

func (e *Entry) SetConnectionState(s domain.ConnectionState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.connState = s
}

func (e *Entry) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

func (e *Entry) RemoteApplied() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.remoteApplied
}

// CompleteExchange records a finished offer/answer round.
func (e *Entry) CompleteExchange() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.exchanges++
}

// Exchanges is the number of offer/answer rounds completed on this entry.
func (e *Entry) Exchanges() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.exchanges
}

// AddCandidate applies c right away once a remote description is in place,
// otherwise queues it. It reports whether the candidate was applied.
func (e *Entry) AddCandidate(c webrtc.ICECandidateInit) (bool, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return false, domain.ErrEntryClosed
	}
	if !e.remoteApplied {
		e.pending = append(e.pending, c)
		n := len(e.pending)
		e.mu.Unlock()
		e.logger.Debug().Int("pending", n).Msg("candidate buffered")
		return false, nil
	}
	e.mu.Unlock()
	if err := e.Conn.AddICECandidate(c); err != nil {
		return false, err
	}
	return true, nil
}

// FlushCandidates applies the queued candidates in arrival order and marks the
// remote description as applied. Candidates from another ICE generation
// (ufrag mismatch) are skipped; candidates without a ufrag are always applied.
func (e *Entry) FlushCandidates() int {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return 0
	}
	queued := e.pending
	e.pending = nil
	e.remoteApplied = true
	e.mu.Unlock()

	ufrag := e.Conn.RemoteUfrag()
	applied := 0
	for _, c := range queued {
		if c.UsernameFragment != nil && *c.UsernameFragment != "" && ufrag != "" && *c.UsernameFragment != ufrag {
			e.logger.Warn().Str("ufrag", *c.UsernameFragment).Str("remote_ufrag", ufrag).Msg("stale candidate skipped")
			continue
		}
		if err := e.Conn.AddICECandidate(c); err != nil {
			e.logger.Warn().Err(err).Str("candidate", c.Candidate).Msg("add buffered candidate failed")
			continue
		}
		applied++
	}
	if len(queued) > 0 {
		e.logger.Debug().Int("queued", len(queued)).Int("applied", applied).Msg("flushed candidates")
	}
	return applied
}

// TakePending removes and returns the queued candidates.
func (e *Entry) TakePending() []webrtc.ICECandidateInit {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := e.pending
	e.pending = nil
	return out
}

func (e *Entry) PendingCandidates() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

func (e *Entry) Sender(kind domain.MediaKind) (core.Sender, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.senders[kind]
	return s, ok
}

func (e *Entry) SetSender(kind domain.MediaKind, s core.Sender) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.senders[kind] = s
}

// AddRemoteTrack accumulates t into the peer's stream and returns the stream.
func (e *Entry) AddRemoteTrack(t core.RemoteTrack) core.RemoteStream {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stream.ID == "" {
		e.stream.ID = t.StreamID()
	}
	for _, have := range e.stream.Tracks {
		if have.ID() == t.ID() {
			return e.cloneStream()
		}
	}
	e.stream.Tracks = append(e.stream.Tracks, t)
	return e.cloneStream()
}

func (e *Entry) HasRemoteStream() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.stream.Tracks) > 0
}

func (e *Entry) cloneStream() core.RemoteStream {
	out := core.RemoteStream{ID: e.stream.ID, Tracks: make([]core.RemoteTrack, len(e.stream.Tracks))}
	copy(out.Tracks, e.stream.Tracks)
	return out
}

// Close tears the connection down. Safe in any state; only the first call does anything.
func (e *Entry) Close() bool {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return false
	}
	e.closed = true
	e.signaling = domain.SignalingClosed
	e.pending = nil
	e.mu.Unlock()

	if err := e.Conn.Close(); err != nil {
		e.logger.Warn().Err(err).Msg("close peer connection")
	}
	e.logger.Info().Msg("entry closed")
	return true
}

// EntryInfo is a read-only view of an Entry.
type EntryInfo struct {
	RemoteID          domain.RemoteID        `json:"remoteId"`
	SignalingState    domain.SignalingState  `json:"signalingState"`
	ConnectionState   domain.ConnectionState `json:"connectionState"`
	PendingCandidates int                    `json:"pendingCandidates"`
	RemoteApplied     bool                   `json:"remoteDescriptionApplied"`
	Exchanges         int                    `json:"exchanges"`
	Sending           []domain.MediaKind     `json:"sending"`
	Receiving         int                    `json:"receivingTracks"`
	Created           time.Time              `json:"created"`
}

func (e *Entry) Info() EntryInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	info := EntryInfo{
		RemoteID:          e.RemoteID,
		SignalingState:    e.signaling,
		ConnectionState:   e.connState,
		PendingCandidates: len(e.pending),
		RemoteApplied:     e.remoteApplied,
		Exchanges:         e.exchanges,
		Sending:           []domain.MediaKind{},
		Receiving:         len(e.stream.Tracks),
		Created:           e.Created,
	}
	for _, kind := range domain.MediaKinds {
		if s, ok := e.senders[kind]; ok && s.Track() != nil {
			info.Sending = append(info.Sending, kind)
		}
	}
	return info
}
