package orch

import (
	"fmt"

	"github.com/dorhakim100/camjam/internal/app"
	"github.com/dorhakim100/camjam/internal/core"
	"github.com/dorhakim100/camjam/internal/domain"
	"github.com/pion/webrtc/v4"
)

// newEntry builds a connection to id, attaches the local tracks and installs
// it, superseding any previous entry. carry is re-queued on the new entry.
func (o *Orchestrator) newEntry(id domain.RemoteID, carry []webrtc.ICECandidateInit) (*app.Entry, error) {
	pc, err := o.factory.NewPeerConnection(id)
	if err != nil {
		return nil, domain.NewNegotiationError("create connection", id, fmt.Errorf("%w: %v", domain.ErrNegotiationFailed, err))
	}
	e := app.NewEntry(id, pc)
	o.bind(e)
	o.attachTracks(e)
	for _, c := range carry {
		_, _ = e.AddCandidate(c)
	}
	o.registry.Put(e)
	return e, nil
}

func (o *Orchestrator) bind(e *app.Entry) {
	e.Conn.OnNegotiationNeeded(func() {
		seen := e.Exchanges()
		o.loop.Post(func() { o.onNegotiationNeeded(e, seen) })
	})
	e.Conn.OnICECandidate(func(c webrtc.ICECandidateInit) {
		o.loop.Post(func() { o.onLocalCandidate(e, c) })
	})
	e.Conn.OnConnectionStateChange(func(s domain.ConnectionState) {
		o.loop.Post(func() { o.onConnectionState(e, s) })
	})
	e.Conn.OnTrack(func(t core.RemoteTrack) {
		o.loop.Post(func() { o.onTrack(e, t) })
	})
}

// attachTracks sends every live local track; kinds without one still get a
// receive-only transceiver so the peer's media is requested.
func (o *Orchestrator) attachTracks(e *app.Entry) {
	st := o.media.State()
	for _, kind := range domain.MediaKinds {
		t := st.Track(kind)
		if t == nil || t.Stopped() {
			if err := e.Conn.AddRecvOnly(kind); err != nil {
				o.logger.Warn().Err(err).Str("remote_id", string(e.RemoteID)).Str("kind", string(kind)).Msg("add recvonly transceiver")
			}
			continue
		}
		s, err := e.Conn.AddTrack(t)
		if err != nil {
			o.logger.Warn().Err(err).Str("remote_id", string(e.RemoteID)).Str("kind", string(kind)).Msg("attach local track")
			continue
		}
		e.SetSender(kind, s)
	}
}

// initiate opens a connection to id and sends the first offer.
func (o *Orchestrator) initiate(id domain.RemoteID) {
	e, err := o.newEntry(id, nil)
	if err != nil {
		o.logger.Error().Err(err).Str("remote_id", string(id)).Msg("initiate failed")
		o.observer.OnError(domain.KindOf(err), id, err)
		return
	}
	o.logger.Info().Str("remote_id", string(id)).Msg("initiating")
	o.offer(e)
}

func (o *Orchestrator) offer(e *app.Entry) {
	sd, err := e.Conn.CreateOffer()
	if err != nil {
		o.fail(e, "create offer", err)
		return
	}
	if err := e.Conn.SetLocalDescription(sd); err != nil {
		o.fail(e, "set local offer", err)
		return
	}
	e.SetSignalingState(domain.SignalingHaveLocalOffer)
	o.send(core.EventOffer, core.SessionPayload{From: o.LocalID(), To: e.RemoteID, SDP: localSDP(e.Conn, sd)})
	o.logger.Debug().Str("remote_id", string(e.RemoteID)).Msg("offer sent")
}

func (o *Orchestrator) handleOffer(p core.SessionPayload) {
	from := p.From
	if !o.addressedToUs(p.To) || from == o.LocalID() {
		return
	}
	logger := o.logger.With().Str("remote_id", string(from)).Logger()

	e, ok := o.registry.Get(from)
	if ok && e.Closed() {
		ok = false
	}

	var err error
	switch {
	case !ok:
		e, err = o.newEntry(from, nil)
	case e.SignalingState() == domain.SignalingHaveLocalOffer:
		if o.policy.LocalWins(o.LocalID(), from) {
			logger.Info().Msg("glare: keeping local offer, incoming offer discarded")
			return
		}
		logger.Info().Msg("glare: rolling back local offer")
		if rbErr := e.Conn.SetLocalDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeRollback}); rbErr != nil {
			logger.Warn().Err(rbErr).Msg("rollback failed, recreating anyway")
		}
		e.SetSignalingState(domain.SignalingStable)
		e, err = o.newEntry(from, e.TakePending())
	case e.SignalingState() == domain.SignalingHaveRemoteOffer:
		logger.Warn().Msg("offer while previous offer unanswered, recreating")
		e, err = o.newEntry(from, e.TakePending())
	default:
		logger.Debug().Msg("renegotiation offer")
	}
	if err != nil {
		logger.Error().Err(err).Msg("answer setup failed")
		o.observer.OnError(domain.KindOf(err), from, err)
		return
	}

	if err := e.Conn.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: p.SDP}); err != nil {
		o.fail(e, "set remote offer", err)
		return
	}
	e.SetSignalingState(domain.SignalingHaveRemoteOffer)
	e.FlushCandidates()

	answer, err := e.Conn.CreateAnswer()
	if err != nil {
		o.fail(e, "create answer", err)
		return
	}
	if err := e.Conn.SetLocalDescription(answer); err != nil {
		o.fail(e, "set local answer", err)
		return
	}
	e.SetSignalingState(domain.SignalingStable)
	e.CompleteExchange()
	o.send(core.EventAnswer, core.SessionPayload{From: o.LocalID(), To: from, SDP: localSDP(e.Conn, answer)})
	logger.Debug().Msg("answer sent")
}

func (o *Orchestrator) handleAnswer(p core.SessionPayload) {
	if !o.addressedToUs(p.To) {
		return
	}
	logger := o.logger.With().Str("remote_id", string(p.From)).Logger()
	e, ok := o.registry.Get(p.From)
	if !ok || e.Closed() {
		logger.Warn().Err(domain.ErrUnknownPeer).Msg("answer dropped")
		return
	}
	if st := e.SignalingState(); st != domain.SignalingHaveLocalOffer {
		logger.Warn().Err(domain.ErrSignalingStateMismatch).Str("state", string(st)).Msg("answer dropped")
		return
	}
	if err := e.Conn.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: p.SDP}); err != nil {
		o.fail(e, "set remote answer", err)
		return
	}
	e.FlushCandidates()
	e.SetSignalingState(domain.SignalingStable)
	e.CompleteExchange()
	logger.Debug().Msg("answer applied")
}

func (o *Orchestrator) handleCandidate(p core.CandidatePayload) {
	if !o.addressedToUs(p.To) {
		return
	}
	e, ok := o.registry.Get(p.From)
	if !ok || e.Closed() {
		o.logger.Warn().Err(domain.ErrUnknownPeer).Str("remote_id", string(p.From)).Msg("candidate dropped")
		return
	}
	if _, err := e.AddCandidate(p.Candidate); err != nil {
		o.logger.Warn().Err(err).Str("remote_id", string(p.From)).Msg("add candidate failed")
	}
}

// onNegotiationNeeded re-offers after a structural change, but only from stable.
// seen is the exchange count when the event fired; an exchange completed since
// then already carried the change, and pion fires again on reaching stable if
// anything is still missing.
func (o *Orchestrator) onNegotiationNeeded(e *app.Entry, seen int) {
	if !o.registry.Current(e) {
		return
	}
	if e.Exchanges() != seen {
		o.logger.Debug().Str("remote_id", string(e.RemoteID)).Msg("negotiation needed predates last exchange, skipped")
		return
	}
	if e.SignalingState() != domain.SignalingStable || e.Conn.SignalingState() != webrtc.SignalingStateStable {
		o.logger.Debug().Str("remote_id", string(e.RemoteID)).Msg("negotiation needed while not stable, skipped")
		return
	}
	o.logger.Info().Str("remote_id", string(e.RemoteID)).Msg("renegotiating")
	o.offer(e)
}

func (o *Orchestrator) onLocalCandidate(e *app.Entry, c webrtc.ICECandidateInit) {
	if !o.registry.Current(e) {
		return
	}
	o.send(core.EventICECandidate, core.CandidatePayload{From: o.LocalID(), To: e.RemoteID, Candidate: c})
}

func (o *Orchestrator) onConnectionState(e *app.Entry, s domain.ConnectionState) {
	if !o.registry.Current(e) {
		return
	}
	e.SetConnectionState(s)
	o.logger.Info().Str("remote_id", string(e.RemoteID)).Str("state", string(s)).Msg("connection state")
	o.observer.OnConnectionStateChange(e.RemoteID, s)
	if !s.Terminal() && s != domain.ConnectionClosed {
		return
	}
	o.drop(e)
	if s == domain.ConnectionFailed {
		err := domain.NewNegotiationError("connect", e.RemoteID, domain.ErrNegotiationFailed)
		o.observer.OnError(domain.KindNegotiationFailed, e.RemoteID, err)
	}
}

func (o *Orchestrator) onTrack(e *app.Entry, t core.RemoteTrack) {
	if !o.registry.Current(e) {
		return
	}
	stream := e.AddRemoteTrack(t)
	o.logger.Info().Str("remote_id", string(e.RemoteID)).Str("kind", t.Kind().String()).Msg("remote track")
	o.observer.OnRemoteStream(e.RemoteID, stream)
}

// fail tears down an entry whose negotiation step errored. It is never retried.
func (o *Orchestrator) fail(e *app.Entry, op string, cause error) {
	err := domain.NewNegotiationError(op, e.RemoteID, fmt.Errorf("%w: %v", domain.ErrNegotiationFailed, cause))
	o.logger.Error().Err(err).Str("remote_id", string(e.RemoteID)).Msg("negotiation failed")
	if !o.registry.Current(e) {
		e.Close()
		return
	}
	o.drop(e)
	o.observer.OnConnectionStateChange(e.RemoteID, domain.ConnectionFailed)
	o.observer.OnError(domain.KindNegotiationFailed, e.RemoteID, err)
}

// drop removes e if it is still current and tells the UI its stream is gone.
func (o *Orchestrator) drop(e *app.Entry) {
	hadStream := e.HasRemoteStream()
	if o.registry.RemoveEntry(e) && hadStream {
		o.observer.OnRemoteStreamRemoved(e.RemoteID)
	}
}

// remove closes the entry registered for id, if any.
func (o *Orchestrator) remove(id domain.RemoteID) {
	if e, ok := o.registry.Get(id); ok {
		o.drop(e)
	}
}

func (o *Orchestrator) addressedToUs(to domain.RemoteID) bool {
	return to == "" || to == o.LocalID()
}

func localSDP(pc core.PeerConnection, fallback webrtc.SessionDescription) string {
	if ld := pc.LocalDescription(); ld != nil {
		return ld.SDP
	}
	return fallback.SDP
}
