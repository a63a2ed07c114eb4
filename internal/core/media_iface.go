package core

import (
	"context"

	"github.com/dorhakim100/camjam/internal/domain"
	"github.com/pion/webrtc/v4"
)

// PeerConnection is the negotiated transport to one remote peer.
// All methods are called from the negotiation loop only.
type PeerConnection interface {
	CreateOffer() (webrtc.SessionDescription, error)
	CreateAnswer() (webrtc.SessionDescription, error)
	SetLocalDescription(webrtc.SessionDescription) error
	SetRemoteDescription(webrtc.SessionDescription) error
	LocalDescription() *webrtc.SessionDescription
	RemoteDescription() *webrtc.SessionDescription
	SignalingState() webrtc.SignalingState
	// RemoteUfrag is the ICE username fragment of the applied remote description, or "".
	RemoteUfrag() string
	// AddICECandidate applies a remote ICE candidate.
	AddICECandidate(webrtc.ICECandidateInit) error
	// AddTrack attaches an outbound track, reusing a free transceiver of the same kind.
	AddTrack(webrtc.TrackLocal) (Sender, error)
	// AddRecvOnly adds a receive-only transceiver so the peer's media of that kind is requested.
	AddRecvOnly(kind domain.MediaKind) error
	RemoveTrack(Sender) error
	// OnNegotiationNeeded fires when the session shape changed and a new offer is required.
	OnNegotiationNeeded(func())
	// OnICECandidate sets a callback for newly gathered local ICE candidates, each carrying the local ufrag.
	OnICECandidate(func(webrtc.ICECandidateInit))
	OnConnectionStateChange(func(domain.ConnectionState))
	// OnTrack sets a callback that will be invoked when a new remote track arrives.
	OnTrack(func(RemoteTrack))
	// Close should stop all underlying media resources.
	Close() error
}

// Sender is the outbound half of a transceiver.
type Sender interface {
	Track() webrtc.TrackLocal
	ReplaceTrack(webrtc.TrackLocal) error
}

// RemoteTrack is the part of *webrtc.TrackRemote the core looks at.
type RemoteTrack interface {
	ID() string
	StreamID() string
	Kind() webrtc.RTPCodecType
}

// RemoteStream groups the tracks a peer sends under one stream id.
type RemoteStream struct {
	ID     string
	Tracks []RemoteTrack
}

type PeerConnectionFactory interface {
	NewPeerConnection(remote domain.RemoteID) (PeerConnection, error)
}

// LocalTrack is an outbound capture track shared by every peer connection.
type LocalTrack interface {
	webrtc.TrackLocal
	MediaKind() domain.MediaKind
	Enabled() bool
	SetEnabled(bool)
	// Stop releases the capture device; a stopped track never produces media again.
	Stop()
	Stopped() bool
}

type VideoConstraints struct {
	Width  int
	Height int
}

type AudioConstraints struct {
	EchoCancellation bool
	NoiseSuppression bool
}

// Constraints selects which kinds to capture; a nil kind is not captured.
type Constraints struct {
	Video *VideoConstraints
	Audio *AudioConstraints
}

// Devices is the platform's capture API.
// Implementations fail with domain.ErrMediaAccessDenied or domain.ErrDeviceUnavailable.
type Devices interface {
	GetUserMedia(ctx context.Context, c Constraints) ([]LocalTrack, error)
}
