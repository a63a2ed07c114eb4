package domain

// RosterSnapshot is the ordered member list pushed by the membership service
// on every join, leave or media-state change.
type RosterSnapshot []RosterMember

// Peers returns the remote ids of the snapshot in order, without self,
// empty ids and duplicates.
func (s RosterSnapshot) Peers(self RemoteID) []RemoteID {
	out := make([]RemoteID, 0, len(s))
	seen := make(map[RemoteID]struct{}, len(s))
	for _, m := range s {
		if m.RemoteID == "" || m.RemoteID == self {
			continue
		}
		if _, dup := seen[m.RemoteID]; dup {
			continue
		}
		seen[m.RemoteID] = struct{}{}
		out = append(out, m.RemoteID)
	}
	return out
}

func (s RosterSnapshot) Find(id RemoteID) (RosterMember, bool) {
	for _, m := range s {
		if m.RemoteID == id {
			return m, true
		}
	}
	return RosterMember{}, false
}

// Clone returns a copy that is safe to keep after the update is handled.
func (s RosterSnapshot) Clone() RosterSnapshot {
	if s == nil {
		return nil
	}
	out := make(RosterSnapshot, len(s))
	copy(out, s)
	return out
}
