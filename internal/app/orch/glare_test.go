package orch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dorhakim100/camjam/internal/adapters/rtc"
	"github.com/dorhakim100/camjam/internal/adapters/signal"
	"github.com/dorhakim100/camjam/internal/adapters/signal/signaltest"
	"github.com/dorhakim100/camjam/internal/core"
	"github.com/dorhakim100/camjam/internal/domain"
)

func countFrom(recs []signaltest.Record, from domain.RemoteID) int {
	n := 0
	for _, r := range recs {
		if r.From == from {
			n++
		}
	}
	return n
}

// runLoops runs every peer's loop until the test ends, then closes their connections.
func runLoops(t *testing.T, peers ...*peer) {
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	for _, p := range peers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = p.loop.Run(ctx)
		}()
	}
	t.Cleanup(func() {
		cancel()
		wg.Wait()
		for _, p := range peers {
			for _, e := range p.orch.Registry().Entries() {
				_ = e.Conn.Close()
			}
		}
	})
}

func waitStable(t *testing.T, peers ...*peer) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		stable := true
		for _, p := range peers {
			entries := p.orch.Registry().Entries()
			if len(entries) != len(peers)-1 {
				stable = false
			}
			for _, e := range entries {
				if e.SignalingState() != domain.SignalingStable || !e.RemoteApplied() {
					stable = false
				}
			}
		}
		if stable {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("peers did not reach stable")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestGlareWithPionSendsNoExtraOffer(t *testing.T) {
	if testing.Short() {
		t.Skip("opens real peer connections")
	}
	newFactory := func() core.PeerConnectionFactory {
		f, err := rtc.NewFactory(rtc.Options{Loopback: true})
		if err != nil {
			t.Fatal(err)
		}
		return f
	}
	bus := signaltest.NewBus(signal.JSONCodec{})
	p1 := newPeer(t, bus, "p1", withFactory(newFactory()))
	p5 := newPeer(t, bus, "p5", withFactory(newFactory()))

	publishRoster(t, bus, "p1", "p5")
	// p1 offers first; p5 then offers too and meets p1's offer, loses and answers.
	p1.loop.Drain()
	p5.loop.Drain()
	runLoops(t, p1, p5)
	waitStable(t, p1, p5)

	// Leave room for negotiationneeded events queued during the exchange.
	time.Sleep(500 * time.Millisecond)

	offers := bus.Records(core.EventOffer)
	if got := countFrom(offers, "p5"); got != 1 {
		t.Fatalf("offers p5 -> p1 = %d, want 1", got)
	}
	if got := countFrom(offers, "p1"); got != 1 {
		t.Fatalf("offers p1 -> p5 = %d, want 1", got)
	}
	if got := len(bus.Records(core.EventAnswer)); got != 1 {
		t.Fatalf("answers = %d, want 1", got)
	}
	e5, _ := p5.orch.Registry().Get("p1")
	if e5.SignalingState() != domain.SignalingStable {
		t.Fatalf("p5 state = %s", e5.SignalingState())
	}
}
