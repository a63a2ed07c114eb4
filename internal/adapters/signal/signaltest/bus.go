// Package signaltest provides an in-process signaling server for tests.
package signaltest

import (
	"context"
	"sync"

	"github.com/dorhakim100/camjam/internal/adapters/signal"
	"github.com/dorhakim100/camjam/internal/core"
	"github.com/dorhakim100/camjam/internal/domain"
)

// Record is one frame that went through a Bus.
type Record struct {
	From  domain.RemoteID
	To    domain.RemoteID
	Event core.Event
}

// Bus is an in-process signaling server. Addressed frames are delivered to
// their recipient synchronously and in order; room events are only recorded.
// Every frame is round-tripped through the codec.
type Bus struct {
	codec signal.Codec

	mu        sync.Mutex
	endpoints map[domain.RemoteID]*Endpoint
	log       []Record
	drop      func(Record) bool
}

func NewBus(codec signal.Codec) *Bus {
	if codec == nil {
		codec = signal.JSONCodec{}
	}
	return &Bus{codec: codec, endpoints: make(map[domain.RemoteID]*Endpoint)}
}

// Endpoint returns the transport of id, creating it on first use.
func (b *Bus) Endpoint(id domain.RemoteID) *Endpoint {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ep, ok := b.endpoints[id]; ok {
		return ep
	}
	ep := &Endpoint{bus: b, id: id, handlers: make(map[core.Event]core.Handler)}
	b.endpoints[id] = ep
	return ep
}

// Disconnect removes id; frames addressed to it are lost.
func (b *Bus) Disconnect(id domain.RemoteID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.endpoints, id)
}

// DropIf loses every frame for which fn returns true.
func (b *Bus) DropIf(fn func(Record) bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.drop = fn
}

// Publish delivers a server-originated event to every endpoint.
func (b *Bus) Publish(ev core.Event, payload any) error {
	frame, err := b.codec.Encode(ev, payload)
	if err != nil {
		return err
	}
	b.mu.Lock()
	targets := make([]*Endpoint, 0, len(b.endpoints))
	for _, ep := range b.endpoints {
		targets = append(targets, ep)
	}
	b.mu.Unlock()
	for _, ep := range targets {
		ep.deliver(frame)
	}
	return nil
}

// Records returns the frames sent by endpoints that match ev ("" for all).
func (b *Bus) Records(ev core.Event) []Record {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Record
	for _, r := range b.log {
		if ev == "" || r.Event == ev {
			out = append(out, r)
		}
	}
	return out
}

func (b *Bus) route(from domain.RemoteID, ev core.Event, payload any) error {
	frame, err := b.codec.Encode(ev, payload)
	if err != nil {
		return err
	}
	rec := Record{From: from, Event: ev}
	if a, ok := payload.(core.Addressed); ok {
		rec.To = a.Recipient()
	}

	b.mu.Lock()
	b.log = append(b.log, rec)
	dropped := b.drop != nil && b.drop(rec)
	target := b.endpoints[rec.To]
	b.mu.Unlock()

	if dropped || rec.To == "" || target == nil {
		return nil
	}
	target.deliver(frame)
	return nil
}

// Endpoint is one peer's view of a Bus.
type Endpoint struct {
	bus *Bus
	id  domain.RemoteID

	mu       sync.RWMutex
	handlers map[core.Event]core.Handler
}

var _ core.SignalTransport = (*Endpoint)(nil)

func (e *Endpoint) LocalID() domain.RemoteID { return e.id }

func (e *Endpoint) Send(ctx context.Context, ev core.Event, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.bus.route(e.id, ev, payload)
}

func (e *Endpoint) On(ev core.Event, h core.Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[ev] = h
}

func (e *Endpoint) deliver(frame []byte) {
	ev, raw, err := e.bus.codec.Decode(frame)
	if err != nil {
		return
	}
	e.mu.RLock()
	h, ok := e.handlers[ev]
	e.mu.RUnlock()
	if ok {
		h(signal.NewMessage(ev, raw, e.bus.codec))
	}
}
