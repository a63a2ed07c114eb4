package orch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/dorhakim100/camjam/internal/adapters/signal/signaltest"
	"github.com/dorhakim100/camjam/internal/app"
	"github.com/dorhakim100/camjam/internal/core"
	"github.com/dorhakim100/camjam/internal/domain"
	"github.com/dorhakim100/camjam/internal/media"
	"github.com/pion/webrtc/v4"
)

var errFakeState = errors.New("fake: invalid signaling transition")

type fakeSender struct {
	track    webrtc.TrackLocal
	replaced int
}

func (s *fakeSender) Track() webrtc.TrackLocal { return s.track }

func (s *fakeSender) ReplaceTrack(t webrtc.TrackLocal) error {
	s.track = t
	s.replaced++
	return nil
}

// fakePC follows the signaling transitions of a real peer connection,
// rollback included, without any network.
type fakePC struct {
	mu sync.Mutex

	owner  domain.RemoteID
	remote domain.RemoteID
	gen    int
	state  webrtc.SignalingState
	local  *webrtc.SessionDescription
	remSD  *webrtc.SessionDescription

	candidates []webrtc.ICECandidateInit
	senders    []*fakeSender
	recvOnly   []domain.MediaKind
	closed     bool

	setRemoteCalls int

	onNeg   func()
	onICE   func(webrtc.ICECandidateInit)
	onState func(domain.ConnectionState)
	onTrack func(core.RemoteTrack)
}

func (pc *fakePC) ufrag() string { return fmt.Sprintf("%s-%d", pc.owner, pc.gen) }

func (pc *fakePC) sdp(kind string) string {
	return fmt.Sprintf("v=0 %s from=%s a=ice-ufrag:%s", kind, pc.owner, pc.ufrag())
}

func (pc *fakePC) CreateOffer() (webrtc.SessionDescription, error) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if pc.closed {
		return webrtc.SessionDescription{}, domain.ErrEntryClosed
	}
	return webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: pc.sdp("offer")}, nil
}

func (pc *fakePC) CreateAnswer() (webrtc.SessionDescription, error) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if pc.state != webrtc.SignalingStateHaveRemoteOffer {
		return webrtc.SessionDescription{}, errFakeState
	}
	return webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: pc.sdp("answer")}, nil
}

func (pc *fakePC) SetLocalDescription(sd webrtc.SessionDescription) error {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	switch {
	case sd.Type == webrtc.SDPTypeOffer && pc.state == webrtc.SignalingStateStable:
		pc.state = webrtc.SignalingStateHaveLocalOffer
	case sd.Type == webrtc.SDPTypeAnswer && pc.state == webrtc.SignalingStateHaveRemoteOffer:
		pc.state = webrtc.SignalingStateStable
	case sd.Type == webrtc.SDPTypeRollback && pc.state == webrtc.SignalingStateHaveLocalOffer:
		pc.state = webrtc.SignalingStateStable
		pc.local = nil
		pc.gen++
		return nil
	default:
		return errFakeState
	}
	pc.local = &sd
	return nil
}

func (pc *fakePC) SetRemoteDescription(sd webrtc.SessionDescription) error {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.setRemoteCalls++
	switch {
	case sd.Type == webrtc.SDPTypeOffer && pc.state == webrtc.SignalingStateStable:
		pc.state = webrtc.SignalingStateHaveRemoteOffer
	case sd.Type == webrtc.SDPTypeAnswer && pc.state == webrtc.SignalingStateHaveLocalOffer:
		pc.state = webrtc.SignalingStateStable
	default:
		return errFakeState
	}
	pc.remSD = &sd
	return nil
}

func (pc *fakePC) LocalDescription() *webrtc.SessionDescription {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.local
}

func (pc *fakePC) RemoteDescription() *webrtc.SessionDescription {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.remSD
}

func (pc *fakePC) SignalingState() webrtc.SignalingState {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.state
}

func (pc *fakePC) RemoteUfrag() string {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if pc.remSD == nil {
		return ""
	}
	_, after, ok := strings.Cut(pc.remSD.SDP, "a=ice-ufrag:")
	if !ok {
		return ""
	}
	return after
}

func (pc *fakePC) AddICECandidate(c webrtc.ICECandidateInit) error {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if pc.remSD == nil {
		return errors.New("fake: no remote description")
	}
	pc.candidates = append(pc.candidates, c)
	return nil
}

func (pc *fakePC) AddTrack(t webrtc.TrackLocal) (core.Sender, error) {
	pc.mu.Lock()
	s := &fakeSender{track: t}
	pc.senders = append(pc.senders, s)
	// Only a change to an already negotiated session needs a new offer.
	var neg func()
	if pc.remSD != nil {
		neg = pc.onNeg
	}
	pc.mu.Unlock()
	if neg != nil {
		neg()
	}
	return s, nil
}

func (pc *fakePC) AddRecvOnly(kind domain.MediaKind) error {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.recvOnly = append(pc.recvOnly, kind)
	return nil
}

func (pc *fakePC) RemoveTrack(core.Sender) error { return nil }

func (pc *fakePC) OnNegotiationNeeded(fn func()) { pc.onNeg = fn }

func (pc *fakePC) OnICECandidate(fn func(webrtc.ICECandidateInit)) { pc.onICE = fn }

func (pc *fakePC) OnConnectionStateChange(fn func(domain.ConnectionState)) { pc.onState = fn }

func (pc *fakePC) OnTrack(fn func(core.RemoteTrack)) { pc.onTrack = fn }

func (pc *fakePC) Close() error {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.closed = true
	pc.state = webrtc.SignalingStateClosed
	return nil
}

func (pc *fakePC) Closed() bool {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.closed
}

func (pc *fakePC) Candidates() []webrtc.ICECandidateInit {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return append([]webrtc.ICECandidateInit(nil), pc.candidates...)
}

type fakeFactory struct {
	owner domain.RemoteID

	mu      sync.Mutex
	created map[domain.RemoteID][]*fakePC
}

func newFakeFactory(owner domain.RemoteID) *fakeFactory {
	return &fakeFactory{owner: owner, created: make(map[domain.RemoteID][]*fakePC)}
}

func (f *fakeFactory) NewPeerConnection(remote domain.RemoteID) (core.PeerConnection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pc := &fakePC{owner: f.owner, remote: remote, gen: len(f.created[remote]), state: webrtc.SignalingStateStable}
	f.created[remote] = append(f.created[remote], pc)
	return pc, nil
}

func (f *fakeFactory) count(remote domain.RemoteID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created[remote])
}

func (f *fakeFactory) last(remote domain.RemoteID) *fakePC {
	f.mu.Lock()
	defer f.mu.Unlock()
	pcs := f.created[remote]
	if len(pcs) == 0 {
		return nil
	}
	return pcs[len(pcs)-1]
}

// fakeDevices hands out real sample tracks without any pump behind them.
type fakeDevices struct {
	err   error
	calls int
}

func (d *fakeDevices) GetUserMedia(_ context.Context, c core.Constraints) ([]core.LocalTrack, error) {
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	var out []core.LocalTrack
	if c.Audio != nil {
		t, err := media.NewTrack(domain.MediaAudio, "local")
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if c.Video != nil {
		t, err := media.NewTrack(domain.MediaVideo, "local")
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

type observed struct {
	mu      sync.Mutex
	errors  []domain.ErrorKind
	states  map[domain.RemoteID][]domain.ConnectionState
	streams map[domain.RemoteID]core.RemoteStream
	removed []domain.RemoteID
	rosters int
}

func newObserved() *observed {
	return &observed{
		states:  make(map[domain.RemoteID][]domain.ConnectionState),
		streams: make(map[domain.RemoteID]core.RemoteStream),
	}
}

func (ob *observed) observer() core.Observer {
	return core.ObserverFuncs{
		RemoteStream: func(id domain.RemoteID, s core.RemoteStream) {
			ob.mu.Lock()
			defer ob.mu.Unlock()
			ob.streams[id] = s
		},
		RemoteStreamRemoved: func(id domain.RemoteID) {
			ob.mu.Lock()
			defer ob.mu.Unlock()
			delete(ob.streams, id)
			ob.removed = append(ob.removed, id)
		},
		Error: func(kind domain.ErrorKind, _ domain.RemoteID, _ error) {
			ob.mu.Lock()
			defer ob.mu.Unlock()
			ob.errors = append(ob.errors, kind)
		},
		ConnectionStateChange: func(id domain.RemoteID, s domain.ConnectionState) {
			ob.mu.Lock()
			defer ob.mu.Unlock()
			ob.states[id] = append(ob.states[id], s)
		},
		RosterChanged: func(domain.RosterSnapshot) {
			ob.mu.Lock()
			defer ob.mu.Unlock()
			ob.rosters++
		},
	}
}

type fakeRemoteTrack struct {
	id, stream string
	kind       webrtc.RTPCodecType
}

func (t fakeRemoteTrack) ID() string { return t.id }

func (t fakeRemoteTrack) StreamID() string { return t.stream }

func (t fakeRemoteTrack) Kind() webrtc.RTPCodecType { return t.kind }

// peer is one participant wired to a shared bus.
type peer struct {
	id       domain.RemoteID
	orch     *Orchestrator
	loop     *app.Loop
	factory  *fakeFactory
	devices  *fakeDevices
	session  *media.Session
	observed *observed
}

type peerOption func(*Config)

func withToggle(m domain.ToggleMode) peerOption {
	return func(c *Config) { c.ToggleMode = m }
}

func withLimiter(l *app.ReconnectLimiter) peerOption {
	return func(c *Config) { c.Limiter = l }
}

func withFactory(f core.PeerConnectionFactory) peerOption {
	return func(c *Config) { c.Factory = f }
}

func newPeer(t *testing.T, bus *signaltest.Bus, id domain.RemoteID, opts ...peerOption) *peer {
	t.Helper()
	p := &peer{
		id:       id,
		loop:     app.NewLoop(),
		factory:  newFakeFactory(id),
		devices:  &fakeDevices{},
		observed: newObserved(),
	}
	p.session = media.NewSession(p.devices, media.DefaultConstraints())
	cfg := Config{
		Transport: bus.Endpoint(id),
		Factory:   p.factory,
		Media:     p.session,
		Observer:  p.observed.observer(),
		Loop:      p.loop,
	}
	for _, o := range opts {
		o(&cfg)
	}
	p.orch = New(cfg)
	p.orch.Start(context.Background())
	if _, err := p.session.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	return p
}

// settle drains every loop until none of them has work left.
func settle(peers ...*peer) {
	for {
		n := 0
		for _, p := range peers {
			n += p.loop.Drain()
		}
		if n == 0 {
			return
		}
	}
}

func roster(ids ...domain.RemoteID) domain.RosterSnapshot {
	out := make(domain.RosterSnapshot, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.RosterMember{RemoteID: id, DisplayName: string(id)})
	}
	return out
}

func countTo(recs []signaltest.Record, to domain.RemoteID) int {
	n := 0
	for _, r := range recs {
		if r.To == to {
			n++
		}
	}
	return n
}

// noMedia is a session that never has tracks.
type noMedia struct{}

func (noMedia) Acquire(context.Context) (media.State, error) { return media.State{}, nil }

func (noMedia) SetTrackEnabled(domain.MediaKind, bool) bool { return false }

func (noMedia) Reacquire(context.Context, domain.MediaKind, bool) (media.State, error) {
	return media.State{}, nil
}

func (noMedia) Release() {}

func (noMedia) State() media.State { return media.State{} }
