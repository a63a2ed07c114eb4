//go:generate mockgen -source=signal_iface.go -destination=mock_core/signal.go -package=mock_core

package core

import (
	"context"

	"github.com/dorhakim100/camjam/internal/domain"
	"github.com/pion/webrtc/v4"
)

type Event string

const (
	EventOffer             Event = "offer"
	EventAnswer            Event = "answer"
	EventICECandidate      Event = "ice-candidate"
	EventRosterChanged     Event = "roster-changed"
	EventJoinRoom          Event = "join-room"
	EventLeaveRoom         Event = "leave-room"
	EventMediaStateChanged Event = "media-state-changed"
	EventEndMeeting        Event = "end-meeting"
	EventSetUserSocket     Event = "set-user-socket"
	EventUnsetUserSocket   Event = "unset-user-socket"
)

// Message is one inbound signaling event; the payload is decoded lazily
// with whatever codec the transport speaks.
type Message interface {
	Event() Event
	Decode(v any) error
}

type Handler func(Message)

// SignalTransport abstracts the signaling channel.
// Delivery is at-most-once and ordered per peer pair only.
type SignalTransport interface {
	// LocalID is the transport-session id other peers address us by.
	LocalID() domain.RemoteID
	Send(ctx context.Context, event Event, payload any) error
	// On registers the handler for an event, replacing any previous one.
	On(event Event, h Handler)
}

// Addressed payloads are routed to a single peer.
type Addressed interface {
	Recipient() domain.RemoteID
}

// SessionPayload carries an offer or an answer.
type SessionPayload struct {
	From domain.RemoteID `json:"from,omitempty"`
	To   domain.RemoteID `json:"to,omitempty"`
	SDP  string          `json:"sdp"`
}

func (p SessionPayload) Recipient() domain.RemoteID { return p.To }

type CandidatePayload struct {
	From      domain.RemoteID         `json:"from,omitempty"`
	To        domain.RemoteID         `json:"to,omitempty"`
	Candidate webrtc.ICECandidateInit `json:"candidate"`
}

func (p CandidatePayload) Recipient() domain.RemoteID { return p.To }

type RosterPayload struct {
	Members domain.RosterSnapshot `json:"members"`
}

type RoomPayload struct {
	RoomID domain.RoomID `json:"roomId"`
}

type MediaStatePayload = domain.MediaState
