package domain

import (
	"errors"
	"fmt"
)

var (
	ErrMediaAccessDenied      = errors.New("media access denied")
	ErrDeviceUnavailable      = errors.New("device unavailable")
	ErrSignalingStateMismatch = errors.New("signaling state mismatch")
	ErrUnknownPeer            = errors.New("unknown peer")
	ErrNegotiationFailed      = errors.New("negotiation failed")
	ErrEntryClosed            = errors.New("peer entry closed")
	ErrRateLimited            = errors.New("rate limited")
)

// ErrorKind is what the UI boundary receives in OnError.
type ErrorKind string

const (
	KindMediaAccessDenied      ErrorKind = "MediaAccessDenied"
	KindDeviceUnavailable      ErrorKind = "DeviceUnavailable"
	KindSignalingStateMismatch ErrorKind = "SignalingStateMismatch"
	KindUnknownPeer            ErrorKind = "UnknownPeer"
	KindNegotiationFailed      ErrorKind = "NegotiationFailed"
	KindInternal               ErrorKind = "Internal"
)

// KindOf maps an error chain onto the taxonomy.
func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrMediaAccessDenied):
		return KindMediaAccessDenied
	case errors.Is(err, ErrDeviceUnavailable):
		return KindDeviceUnavailable
	case errors.Is(err, ErrSignalingStateMismatch):
		return KindSignalingStateMismatch
	case errors.Is(err, ErrUnknownPeer):
		return KindUnknownPeer
	case errors.Is(err, ErrNegotiationFailed):
		return KindNegotiationFailed
	}
	return KindInternal
}

// NegotiationError ties a failed step to the peer it happened with.
type NegotiationError struct {
	Op       string
	RemoteID RemoteID
	Err      error
}

func (e *NegotiationError) Error() string {
	if e.RemoteID == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.RemoteID, e.Err)
}

func (e *NegotiationError) Unwrap() error { return e.Err }

func NewNegotiationError(op string, id RemoteID, err error) *NegotiationError {
	return &NegotiationError{Op: op, RemoteID: id, Err: err}
}
