package app

import (
	"sync"

	"github.com/dorhakim100/camjam/internal/domain"
)

// Roster caches the last membership snapshot and the room it belongs to.
type Roster struct {
	mu      sync.RWMutex
	room    domain.RoomID
	members domain.RosterSnapshot
}

func NewRoster() *Roster { return &Roster{} }

func (r *Roster) Set(members domain.RosterSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members = members.Clone()
}

func (r *Roster) Snapshot() domain.RosterSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.members.Clone()
}

func (r *Roster) SetRoom(id domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.room != id {
		r.members = nil
	}
	r.room = id
}

func (r *Roster) Room() domain.RoomID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.room
}

// Clear forgets room and members.
func (r *Roster) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.room = ""
	r.members = nil
}

// Current returns the room together with a copy of its members.
func (r *Roster) Current() domain.Room {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return domain.Room{ID: r.room, Members: r.members.Clone()}
}
