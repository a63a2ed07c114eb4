package orch

import (
	"context"
	"slices"
	"testing"

	"github.com/dorhakim100/camjam/internal/adapters/signal"
	"github.com/dorhakim100/camjam/internal/adapters/signal/signaltest"
	"github.com/dorhakim100/camjam/internal/core"
	"github.com/dorhakim100/camjam/internal/domain"
	"github.com/pion/webrtc/v4"
)

func publishRoster(t *testing.T, bus *signaltest.Bus, ids ...domain.RemoteID) {
	t.Helper()
	if err := bus.Publish(core.EventRosterChanged, core.RosterPayload{Members: roster(ids...)}); err != nil {
		t.Fatalf("publish roster: %v", err)
	}
}

func TestRosterGrowthOffersOnlyToNewPeer(t *testing.T) {
	bus := signaltest.NewBus(signal.JSONCodec{})
	l := newPeer(t, bus, "l")

	publishRoster(t, bus, "l", "a")
	settle(l)
	publishRoster(t, bus, "l", "a", "b")
	settle(l)

	offers := bus.Records(core.EventOffer)
	if got := countTo(offers, "a"); got != 1 {
		t.Fatalf("offers to a = %d, want 1", got)
	}
	if got := countTo(offers, "b"); got != 1 {
		t.Fatalf("offers to b = %d, want 1", got)
	}
	if got := l.orch.Registry().Keys(); !slices.Equal(got, []domain.RemoteID{"a", "b"}) {
		t.Fatalf("keys = %v", got)
	}
	if l.observed.rosters != 2 {
		t.Fatalf("roster callbacks = %d, want 2", l.observed.rosters)
	}
}

func TestGlareLowerIDKeepsOffer(t *testing.T) {
	for _, first := range []domain.RemoteID{"p1", "p5"} {
		t.Run("first="+string(first), func(t *testing.T) {
			bus := signaltest.NewBus(signal.JSONCodec{})
			p1 := newPeer(t, bus, "p1")
			p5 := newPeer(t, bus, "p5")

			publishRoster(t, bus, "p1", "p5")
			if first == "p1" {
				settle(p1, p5)
			} else {
				settle(p5, p1)
			}

			e1, ok := p1.orch.Registry().Get("p5")
			if !ok {
				t.Fatal("p1 has no entry for p5")
			}
			e5, ok := p5.orch.Registry().Get("p1")
			if !ok {
				t.Fatal("p5 has no entry for p1")
			}
			if p1.orch.Registry().Len() != 1 || p5.orch.Registry().Len() != 1 {
				t.Fatalf("duplicate entries: %d / %d", p1.orch.Registry().Len(), p5.orch.Registry().Len())
			}
			for name, e := range map[string]domain.SignalingState{"p1": e1.SignalingState(), "p5": e5.SignalingState()} {
				if e != domain.SignalingStable {
					t.Fatalf("%s state = %s, want stable", name, e)
				}
			}
			if e1.Conn.SignalingState() != webrtc.SignalingStateStable || e5.Conn.SignalingState() != webrtc.SignalingStateStable {
				t.Fatal("connections not stable")
			}

			// p1 offered and kept its connection; p5 rolled back and rebuilt.
			if got := p1.factory.count("p5"); got != 1 {
				t.Fatalf("p1 connections to p5 = %d, want 1", got)
			}
			if got := p5.factory.count("p1"); got != 2 {
				t.Fatalf("p5 connections to p1 = %d, want 2", got)
			}
			if !p5.factory.created["p1"][0].Closed() {
				t.Fatal("p5's losing connection still open")
			}
			answers := bus.Records(core.EventAnswer)
			if countTo(answers, "p1") != 1 || countTo(answers, "p5") != 0 {
				t.Fatalf("answers = %+v, want exactly one p5 -> p1", answers)
			}
			if ld := e1.Conn.LocalDescription(); ld == nil || ld.Type != webrtc.SDPTypeOffer {
				t.Fatal("p1 is not the offerer")
			}
		})
	}
}

func TestStableOfferRenegotiatesInPlace(t *testing.T) {
	bus := signaltest.NewBus(signal.JSONCodec{})
	a := newPeer(t, bus, "a")
	b := newPeer(t, bus, "b")
	publishRoster(t, bus, "a", "b")
	settle(a, b)

	offersBefore := len(bus.Records(core.EventOffer))
	b.factory.last("a").onNeg()
	settle(a, b)

	if got := len(bus.Records(core.EventOffer)); got != offersBefore+1 {
		t.Fatalf("offers = %d, want %d", got, offersBefore+1)
	}
	if got := a.factory.count("b"); got != 1 {
		t.Fatalf("a rebuilt its connection: %d", got)
	}
	e, _ := a.orch.Registry().Get("b")
	if e.SignalingState() != domain.SignalingStable {
		t.Fatalf("a state = %s", e.SignalingState())
	}
	e, _ = b.orch.Registry().Get("a")
	if e.SignalingState() != domain.SignalingStable {
		t.Fatalf("b state = %s", e.SignalingState())
	}
}

func TestNegotiationNeededIgnoredWhileOffering(t *testing.T) {
	bus := signaltest.NewBus(signal.JSONCodec{})
	l := newPeer(t, bus, "l")
	publishRoster(t, bus, "l", "r")
	settle(l)

	l.factory.last("r").onNeg()
	settle(l)
	if got := countTo(bus.Records(core.EventOffer), "r"); got != 1 {
		t.Fatalf("offers = %d, want 1", got)
	}
}

func TestNegotiationNeededBeforeLastExchangeDropped(t *testing.T) {
	bus := signaltest.NewBus(signal.JSONCodec{})
	a := newPeer(t, bus, "a")
	b := newPeer(t, bus, "b")
	publishRoster(t, bus, "a", "b")
	settle(a, b)

	e, _ := b.orch.Registry().Get("a")
	offers := len(bus.Records(core.EventOffer))

	// Fired while stable, but another round completes before it is handled.
	b.factory.last("a").onNeg()
	e.CompleteExchange()
	settle(a, b)
	if got := len(bus.Records(core.EventOffer)); got != offers {
		t.Fatalf("offers = %d, want %d", got, offers)
	}

	b.factory.last("a").onNeg()
	settle(a, b)
	if got := len(bus.Records(core.EventOffer)); got != offers+1 {
		t.Fatalf("offers = %d, want %d", got, offers+1)
	}
	if e.Exchanges() != 3 || e.SignalingState() != domain.SignalingStable {
		t.Fatalf("exchanges = %d state = %s", e.Exchanges(), e.SignalingState())
	}
}

func sendFrom(t *testing.T, bus *signaltest.Bus, from domain.RemoteID, ev core.Event, payload any) {
	t.Helper()
	if err := bus.Endpoint(from).Send(context.Background(), ev, payload); err != nil {
		t.Fatalf("send %s: %v", ev, err)
	}
}

func candidate(n string, ufrag *string) webrtc.ICECandidateInit {
	return webrtc.ICECandidateInit{Candidate: "candidate:" + n + " 1 udp 2130706431 10.0.0.1 5000 typ host", UsernameFragment: ufrag}
}

func TestCandidatesBufferedUntilAnswer(t *testing.T) {
	bus := signaltest.NewBus(signal.JSONCodec{})
	l := newPeer(t, bus, "l")
	publishRoster(t, bus, "l", "r")
	settle(l)

	for _, n := range []string{"1", "2", "3"} {
		sendFrom(t, bus, "r", core.EventICECandidate, core.CandidatePayload{From: "r", To: "l", Candidate: candidate(n, nil)})
	}
	settle(l)

	pc := l.factory.last("r")
	e, _ := l.orch.Registry().Get("r")
	if len(pc.Candidates()) != 0 || e.PendingCandidates() != 3 {
		t.Fatalf("applied %d, pending %d before answer", len(pc.Candidates()), e.PendingCandidates())
	}

	sendFrom(t, bus, "r", core.EventAnswer, core.SessionPayload{From: "r", To: "l", SDP: "v=0 answer a=ice-ufrag:r-0"})
	settle(l)

	got := pc.Candidates()
	if len(got) != 3 {
		t.Fatalf("applied %d candidates, want 3", len(got))
	}
	for i, n := range []string{"1", "2", "3"} {
		if got[i].Candidate != candidate(n, nil).Candidate {
			t.Fatalf("candidate %d out of order: %s", i, got[i].Candidate)
		}
	}
	if e.SignalingState() != domain.SignalingStable || !e.RemoteApplied() {
		t.Fatalf("state = %s applied = %v", e.SignalingState(), e.RemoteApplied())
	}

	sendFrom(t, bus, "r", core.EventICECandidate, core.CandidatePayload{From: "r", To: "l", Candidate: candidate("4", nil)})
	settle(l)
	if len(pc.Candidates()) != 4 {
		t.Fatalf("late candidate not applied immediately")
	}
}

func TestBufferedCandidatesOfOtherGenerationSkipped(t *testing.T) {
	bus := signaltest.NewBus(signal.JSONCodec{})
	l := newPeer(t, bus, "l")
	publishRoster(t, bus, "l", "r")
	settle(l)

	stale, fresh := "r-9", "r-0"
	for _, c := range []webrtc.ICECandidateInit{candidate("1", &stale), candidate("2", &fresh), candidate("3", nil)} {
		sendFrom(t, bus, "r", core.EventICECandidate, core.CandidatePayload{From: "r", To: "l", Candidate: c})
	}
	sendFrom(t, bus, "r", core.EventAnswer, core.SessionPayload{From: "r", To: "l", SDP: "v=0 answer a=ice-ufrag:r-0"})
	settle(l)

	got := l.factory.last("r").Candidates()
	if len(got) != 2 {
		t.Fatalf("applied %d, want 2", len(got))
	}
	if got[0].Candidate != candidate("2", nil).Candidate || got[1].Candidate != candidate("3", nil).Candidate {
		t.Fatalf("wrong candidates applied: %+v", got)
	}
}

func TestAnswerOutsideLocalOfferDropped(t *testing.T) {
	bus := signaltest.NewBus(signal.JSONCodec{})
	l := newPeer(t, bus, "l")
	publishRoster(t, bus, "l", "r")
	settle(l)
	answer := core.SessionPayload{From: "r", To: "l", SDP: "v=0 answer a=ice-ufrag:r-0"}
	sendFrom(t, bus, "r", core.EventAnswer, answer)
	settle(l)

	pc := l.factory.last("r")
	sendFrom(t, bus, "r", core.EventAnswer, answer)
	settle(l)

	if pc.setRemoteCalls != 1 {
		t.Fatalf("set remote calls = %d, want 1", pc.setRemoteCalls)
	}
	e, ok := l.orch.Registry().Get("r")
	if !ok || e.Conn != core.PeerConnection(pc) || e.SignalingState() != domain.SignalingStable {
		t.Fatal("entry disturbed by stale answer")
	}
	if len(l.observed.errors) != 0 {
		t.Fatalf("stale answer surfaced errors: %v", l.observed.errors)
	}
}

func TestUnknownPeerMessagesDropped(t *testing.T) {
	bus := signaltest.NewBus(signal.JSONCodec{})
	l := newPeer(t, bus, "l")

	sendFrom(t, bus, "ghost", core.EventAnswer, core.SessionPayload{From: "ghost", To: "l", SDP: "v=0"})
	sendFrom(t, bus, "ghost", core.EventICECandidate, core.CandidatePayload{From: "ghost", To: "l", Candidate: candidate("1", nil)})
	settle(l)

	if l.orch.Registry().Len() != 0 || l.factory.count("ghost") != 0 {
		t.Fatal("unknown peer created state")
	}
}

func TestOfferFromUnknownPeerIsAnswered(t *testing.T) {
	bus := signaltest.NewBus(signal.JSONCodec{})
	l := newPeer(t, bus, "l")
	sendFrom(t, bus, "r", core.EventOffer, core.SessionPayload{From: "r", To: "l", SDP: "v=0 offer a=ice-ufrag:r-0"})
	settle(l)

	e, ok := l.orch.Registry().Get("r")
	if !ok || e.SignalingState() != domain.SignalingStable {
		t.Fatal("no stable entry after answering")
	}
	if got := countTo(bus.Records(core.EventAnswer), "r"); got != 1 {
		t.Fatalf("answers = %d", got)
	}
	pc := l.factory.last("r")
	if len(pc.senders) != 2 {
		t.Fatalf("local tracks attached = %d, want 2", len(pc.senders))
	}
}

func TestTerminalConnectionStateRemovesEntry(t *testing.T) {
	cases := []struct {
		state     domain.ConnectionState
		wantError bool
	}{
		{domain.ConnectionFailed, true},
		{domain.ConnectionDisconnected, false},
	}
	for _, tc := range cases {
		t.Run(string(tc.state), func(t *testing.T) {
			bus := signaltest.NewBus(signal.JSONCodec{})
			l := newPeer(t, bus, "l")
			publishRoster(t, bus, "l", "r")
			settle(l)

			pc := l.factory.last("r")
			pc.onTrack(fakeRemoteTrack{id: "v", stream: "s", kind: webrtc.RTPCodecTypeVideo})
			pc.onState(domain.ConnectionConnected)
			pc.onState(tc.state)
			settle(l)

			if l.orch.Registry().Len() != 0 || !pc.Closed() {
				t.Fatal("entry not removed")
			}
			if got := l.observed.states["r"]; !slices.Equal(got, []domain.ConnectionState{domain.ConnectionConnected, tc.state}) {
				t.Fatalf("states = %v", got)
			}
			gotErr := slices.Contains(l.observed.errors, domain.KindNegotiationFailed)
			if gotErr != tc.wantError {
				t.Fatalf("negotiation error reported = %v, want %v", gotErr, tc.wantError)
			}
			if !slices.Contains(l.observed.removed, "r") {
				t.Fatal("remote stream not removed")
			}
			// Not retried automatically.
			if l.factory.count("r") != 1 {
				t.Fatal("connection rebuilt without a trigger")
			}
		})
	}
}

func TestLateEventsOfSupersededEntryIgnored(t *testing.T) {
	bus := signaltest.NewBus(signal.JSONCodec{})
	l := newPeer(t, bus, "l")
	publishRoster(t, bus, "l", "r")
	settle(l)
	old := l.factory.last("r")

	if err := l.orch.reconnect("r"); err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	settle(l)
	old.onState(domain.ConnectionFailed)
	old.onICE(candidate("1", nil))
	settle(l)

	e, ok := l.orch.Registry().Get("r")
	if !ok || e.Conn == core.PeerConnection(old) || e.Closed() {
		t.Fatal("late event from old connection touched the new entry")
	}
	if len(l.observed.errors) != 0 {
		t.Fatalf("errors = %v", l.observed.errors)
	}
	if n := len(bus.Records(core.EventICECandidate)); n != 0 {
		t.Fatalf("old connection's candidate was sent")
	}
}

func TestLocalCandidatesAreSignaled(t *testing.T) {
	bus := signaltest.NewBus(signal.MsgpackCodec{})
	a := newPeer(t, bus, "a")
	b := newPeer(t, bus, "b")
	publishRoster(t, bus, "a", "b")
	settle(a, b)

	ufrag := "a-0"
	a.factory.last("b").onICE(candidate("7", &ufrag))
	settle(a, b)

	got := b.factory.last("a").Candidates()
	if len(got) != 1 || got[0].Candidate != candidate("7", nil).Candidate {
		t.Fatalf("b candidates = %+v", got)
	}
}

func TestRemoteTrackSurfacesAsStream(t *testing.T) {
	bus := signaltest.NewBus(signal.JSONCodec{})
	l := newPeer(t, bus, "l")
	publishRoster(t, bus, "l", "r")
	settle(l)

	pc := l.factory.last("r")
	pc.onTrack(fakeRemoteTrack{id: "a1", stream: "s", kind: webrtc.RTPCodecTypeAudio})
	pc.onTrack(fakeRemoteTrack{id: "v1", stream: "s", kind: webrtc.RTPCodecTypeVideo})
	settle(l)

	s := l.observed.streams["r"]
	if s.ID != "s" || len(s.Tracks) != 2 {
		t.Fatalf("stream = %+v", s)
	}
}
