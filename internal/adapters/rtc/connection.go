package rtc

import (
	"github.com/dorhakim100/camjam/internal/core"
	"github.com/dorhakim100/camjam/internal/domain"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Connection adapts *webrtc.PeerConnection to core.PeerConnection.
type Connection struct {
	pc     *webrtc.PeerConnection
	remote domain.RemoteID
	logger zerolog.Logger
}

var _ core.PeerConnection = (*Connection)(nil)

// Factory creates connections from one shared pion API.
type Factory struct {
	api *webrtc.API
	cfg webrtc.Configuration
}

var _ core.PeerConnectionFactory = (*Factory)(nil)

func NewFactory(o Options) (*Factory, error) {
	api, err := NewAPI(o)
	if err != nil {
		return nil, err
	}
	return &Factory{api: api, cfg: o.Configuration()}, nil
}

func (f *Factory) NewPeerConnection(remote domain.RemoteID) (core.PeerConnection, error) {
	pc, err := f.api.NewPeerConnection(f.cfg)
	if err != nil {
		return nil, err
	}
	c := &Connection{
		pc:     pc,
		remote: remote,
		logger: log.With().Str("module", "webrtc").Str("remote_id", string(remote)).Logger(),
	}
	pc.OnICEConnectionStateChange(func(s webrtc.ICEConnectionState) {
		c.logger.Debug().Str("ice_state", s.String()).Msg("ICE state")
	})
	return c, nil
}

func (c *Connection) CreateOffer() (webrtc.SessionDescription, error) {
	return c.pc.CreateOffer(nil)
}

func (c *Connection) CreateAnswer() (webrtc.SessionDescription, error) {
	return c.pc.CreateAnswer(nil)
}

func (c *Connection) SetLocalDescription(sd webrtc.SessionDescription) error {
	return c.pc.SetLocalDescription(sd)
}

func (c *Connection) SetRemoteDescription(sd webrtc.SessionDescription) error {
	return c.pc.SetRemoteDescription(sd)
}

func (c *Connection) LocalDescription() *webrtc.SessionDescription {
	return c.pc.LocalDescription()
}

func (c *Connection) RemoteDescription() *webrtc.SessionDescription {
	return c.pc.RemoteDescription()
}

func (c *Connection) SignalingState() webrtc.SignalingState {
	return c.pc.SignalingState()
}

func (c *Connection) RemoteUfrag() string {
	rd := c.pc.RemoteDescription()
	if rd == nil {
		return ""
	}
	d, err := Describe(rd.SDP)
	if err != nil {
		c.logger.Warn().Err(err).Msg("parse remote sdp")
		return ""
	}
	return d.Ufrag
}

func (c *Connection) AddICECandidate(ci webrtc.ICECandidateInit) error {
	return c.pc.AddICECandidate(ci)
}

func (c *Connection) AddTrack(t webrtc.TrackLocal) (core.Sender, error) {
	sender, err := c.pc.AddTrack(t)
	if err != nil {
		return nil, err
	}
	go drainRTCP(sender)
	return sender, nil
}

func (c *Connection) AddRecvOnly(kind domain.MediaKind) error {
	_, err := c.pc.AddTransceiverFromKind(codecType(kind), webrtc.RTPTransceiverInit{
		Direction: webrtc.RTPTransceiverDirectionRecvonly,
	})
	return err
}

func (c *Connection) RemoveTrack(s core.Sender) error {
	sender, ok := s.(*webrtc.RTPSender)
	if !ok {
		return nil
	}
	return c.pc.RemoveTrack(sender)
}

func (c *Connection) OnNegotiationNeeded(fn func()) {
	c.pc.OnNegotiationNeeded(fn)
}

func (c *Connection) OnICECandidate(fn func(webrtc.ICECandidateInit)) {
	c.pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		// nil marks the end of gathering; the remote side does not need it.
		if cand == nil {
			return
		}
		init := cand.ToJSON()
		// pion leaves the ufrag unset; the remote filters stale candidates on it.
		if init.UsernameFragment == nil || *init.UsernameFragment == "" {
			if ufrag := c.localUfrag(); ufrag != "" {
				init.UsernameFragment = &ufrag
			}
		}
		fn(init)
	})
}

func (c *Connection) localUfrag() string {
	ld := c.pc.LocalDescription()
	if ld == nil {
		return ""
	}
	d, err := Describe(ld.SDP)
	if err != nil {
		c.logger.Warn().Err(err).Msg("parse local sdp")
		return ""
	}
	return d.Ufrag
}

func (c *Connection) OnConnectionStateChange(fn func(domain.ConnectionState)) {
	c.pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		c.logger.Info().Str("peer_connection_state", s.String()).Msg("Peer state")
		fn(connectionState(s))
	})
}

// OnTrack sets application-level callback for remote tracks.
func (c *Connection) OnTrack(fn func(core.RemoteTrack)) {
	c.pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		c.logger.Info().
			Str("kind", track.Kind().String()).
			Str("track_id", track.ID()).
			Str("stream_id", track.StreamID()).
			Msg("OnTrack received")
		go drainTrack(track)
		fn(track)
	})
}

func (c *Connection) Close() error {
	if err := c.pc.Close(); err != nil {
		c.logger.Error().Err(err).Msg("close error")
		return err
	}
	c.logger.Info().Msg("closed")
	return nil
}

// drainRTCP reads RTCP so interceptors (NACK, PLI) keep working.
func drainRTCP(s *webrtc.RTPSender) {
	buf := make([]byte, 1500)
	for {
		if _, _, err := s.Read(buf); err != nil {
			return
		}
	}
}

// drainTrack consumes remote media; the headless participant does not render it.
func drainTrack(t *webrtc.TrackRemote) {
	buf := make([]byte, 1500)
	for {
		if _, _, err := t.Read(buf); err != nil {
			return
		}
	}
}

func codecType(kind domain.MediaKind) webrtc.RTPCodecType {
	if kind == domain.MediaVideo {
		return webrtc.RTPCodecTypeVideo
	}
	return webrtc.RTPCodecTypeAudio
}

func connectionState(s webrtc.PeerConnectionState) domain.ConnectionState {
	switch s {
	case webrtc.PeerConnectionStateConnecting:
		return domain.ConnectionConnecting
	case webrtc.PeerConnectionStateConnected:
		return domain.ConnectionConnected
	case webrtc.PeerConnectionStateDisconnected:
		return domain.ConnectionDisconnected
	case webrtc.PeerConnectionStateFailed:
		return domain.ConnectionFailed
	case webrtc.PeerConnectionStateClosed:
		return domain.ConnectionClosed
	}
	return domain.ConnectionNew
}
