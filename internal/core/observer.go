package core

import "github.com/dorhakim100/camjam/internal/domain"

// Observer is the UI boundary. Callbacks run on the negotiation loop and must not block.
type Observer interface {
	OnRemoteStream(id domain.RemoteID, stream RemoteStream)
	OnRemoteStreamRemoved(id domain.RemoteID)
	OnError(kind domain.ErrorKind, id domain.RemoteID, err error)
	OnConnectionStateChange(id domain.RemoteID, state domain.ConnectionState)
	OnRosterChanged(members domain.RosterSnapshot)
}

// ObserverFuncs adapts plain functions to Observer; nil fields are skipped.
type ObserverFuncs struct {
	RemoteStream          func(domain.RemoteID, RemoteStream)
	RemoteStreamRemoved   func(domain.RemoteID)
	Error                 func(domain.ErrorKind, domain.RemoteID, error)
	ConnectionStateChange func(domain.RemoteID, domain.ConnectionState)
	RosterChanged         func(domain.RosterSnapshot)
}

var _ Observer = ObserverFuncs{}

func (o ObserverFuncs) OnRemoteStream(id domain.RemoteID, s RemoteStream) {
	if o.RemoteStream != nil {
		o.RemoteStream(id, s)
	}
}

func (o ObserverFuncs) OnRemoteStreamRemoved(id domain.RemoteID) {
	if o.RemoteStreamRemoved != nil {
		o.RemoteStreamRemoved(id)
	}
}

func (o ObserverFuncs) OnError(kind domain.ErrorKind, id domain.RemoteID, err error) {
	if o.Error != nil {
		o.Error(kind, id, err)
	}
}

func (o ObserverFuncs) OnConnectionStateChange(id domain.RemoteID, s domain.ConnectionState) {
	if o.ConnectionStateChange != nil {
		o.ConnectionStateChange(id, s)
	}
}

func (o ObserverFuncs) OnRosterChanged(m domain.RosterSnapshot) {
	if o.RosterChanged != nil {
		o.RosterChanged(m)
	}
}
