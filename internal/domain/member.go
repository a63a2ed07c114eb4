// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"strings"
)

const (
	MaxRemoteIDLen    = 64
	MaxDisplayNameLen = 36
)

var (
	ErrRemoteIDEmpty   = errors.New("remote id empty")
	ErrRemoteIDTooLong = errors.New("remote id too long")
)

// RemoteID identifies a signaling endpoint (a transport session), not a user.
// It changes every time the remote side reconnects to the signaling server.
type RemoteID string

// UserID is the application-level account id. Several devices of one user
// share it, so it must never be used to address a connection.
type UserID string

// RosterMember is one participant as reported by the membership service.
type RosterMember struct {
	RemoteID    RemoteID `json:"socketId"`
	UserID      UserID   `json:"id,omitempty"`
	DisplayName string   `json:"fullname,omitempty"`
	AvatarURL   string   `json:"imgUrl,omitempty"`
	IsVideoOn   bool     `json:"isVideoOn"`
	IsAudioOn   bool     `json:"isAudioOn"`
}

// NewRosterMember avoids raw literals in adapters and keeps validation in one place.
func NewRosterMember(id RemoteID, displayName string) (*RosterMember, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	m := &RosterMember{RemoteID: id}
	m.SetDisplayName(displayName)
	return m, nil
}

func (id RemoteID) Validate() error {
	if len(id) == 0 {
		return ErrRemoteIDEmpty
	}
	if len(id) > MaxRemoteIDLen {
		return ErrRemoteIDTooLong
	}
	return nil
}

// SetDisplayName trims and truncates the name to MaxDisplayNameLen runes.
func (m *RosterMember) SetDisplayName(name string) {
	name = strings.TrimSpace(name)
	if r := []rune(name); len(r) > MaxDisplayNameLen {
		name = string(r[:MaxDisplayNameLen])
	}
	m.DisplayName = name
}
