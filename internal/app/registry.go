package app

import (
	"cmp"
	"slices"
	"sync"

	"github.com/dorhakim100/camjam/internal/domain"
	"github.com/rs/zerolog/log"
)

// Releaser gives back the local media when the whole room is torn down.
type Releaser interface {
	Release()
}

// Registry is the Connection Registry: remote id -> live entry.
// Only the loop writes; the status API reads concurrently.
type Registry struct {
	mu       sync.RWMutex
	entries  map[domain.RemoteID]*Entry
	releaser Releaser
}

func NewRegistry(releaser Releaser) *Registry {
	return &Registry{
		entries:  make(map[domain.RemoteID]*Entry),
		releaser: releaser,
	}
}

func (r *Registry) Get(id domain.RemoteID) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	return e, ok
}

// Current reports whether e is still the registered, open entry for its id.
// Callbacks of superseded connections use it to turn into no-ops.
func (r *Registry) Current(e *Entry) bool {
	if e == nil {
		return false
	}
	r.mu.RLock()
	cur := r.entries[e.RemoteID]
	r.mu.RUnlock()
	return cur == e && !e.Closed()
}

// Put installs e, closing any entry it supersedes first.
func (r *Registry) Put(e *Entry) {
	r.mu.Lock()
	old := r.entries[e.RemoteID]
	r.entries[e.RemoteID] = e
	r.mu.Unlock()

	if old != nil && old != e {
		old.Close()
		log.Info().Str("module", "app.registry").Str("remote_id", string(e.RemoteID)).Msg("replaced entry")
		return
	}
	log.Info().Str("module", "app.registry").Str("remote_id", string(e.RemoteID)).Msg("added entry")
}

// Remove closes and forgets the entry for id. Absent ids are a no-op.
func (r *Registry) Remove(id domain.RemoteID) bool {
	r.mu.Lock()
	e, ok := r.entries[id]
	delete(r.entries, id)
	r.mu.Unlock()
	if !ok {
		return false
	}
	e.Close()
	log.Info().Str("module", "app.registry").Str("remote_id", string(id)).Msg("removed entry")
	return true
}

// RemoveEntry removes e only if it is still the registered entry for its id.
func (r *Registry) RemoveEntry(e *Entry) bool {
	r.mu.Lock()
	cur, ok := r.entries[e.RemoteID]
	if ok && cur == e {
		delete(r.entries, e.RemoteID)
	}
	r.mu.Unlock()
	e.Close()
	return ok && cur == e
}

// CloseAll closes every entry and releases the local media.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[domain.RemoteID]*Entry)
	r.mu.Unlock()

	for _, e := range entries {
		e.Close()
	}
	if r.releaser != nil {
		r.releaser.Release()
	}
	log.Info().Str("module", "app.registry").Int("closed", len(entries)).Msg("closed all entries")
}

// Keys returns the registered ids in sorted order.
func (r *Registry) Keys() []domain.RemoteID {
	r.mu.RLock()
	out := make([]domain.RemoteID, 0, len(r.entries))
	for id := range r.entries {
		out = append(out, id)
	}
	r.mu.RUnlock()
	slices.Sort(out)
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Entries returns the live entries sorted by id.
func (r *Registry) Entries() []*Entry {
	r.mu.RLock()
	out := make([]*Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	r.mu.RUnlock()
	slices.SortFunc(out, func(a, b *Entry) int { return cmp.Compare(a.RemoteID, b.RemoteID) })
	return out
}

func (r *Registry) Snapshot() []EntryInfo {
	entries := r.Entries()
	out := make([]EntryInfo, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Info())
	}
	return out
}
