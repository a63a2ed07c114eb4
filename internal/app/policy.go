package app

import "github.com/dorhakim100/camjam/internal/domain"

// GlarePolicy decides who keeps its offer when both sides offered at once.
// Both peers must reach opposite answers from the same pair of ids.
type GlarePolicy interface {
	LocalWins(local, remote domain.RemoteID) bool
}

// LexicalPolicy lets the lexicographically lower id keep its offer.
type LexicalPolicy struct{}

func (LexicalPolicy) LocalWins(local, remote domain.RemoteID) bool {
	return local < remote
}
