package app

import (
	"sync"
	"time"

	"github.com/dorhakim100/camjam/internal/domain"
	"golang.org/x/time/rate"
)

// ReconnectLimiter throttles manual rebuilds per remote id.
type ReconnectLimiter struct {
	mu       sync.Mutex
	limiters map[domain.RemoteID]*rate.Limiter
	every    rate.Limit
	burst    int
}

func NewReconnectLimiter(interval time.Duration, burst int) *ReconnectLimiter {
	if burst < 1 {
		burst = 1
	}
	every := rate.Inf
	if interval > 0 {
		every = rate.Every(interval)
	}
	return &ReconnectLimiter{
		limiters: make(map[domain.RemoteID]*rate.Limiter),
		every:    every,
		burst:    burst,
	}
}

func (rl *ReconnectLimiter) Allow(id domain.RemoteID) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	l, ok := rl.limiters[id]
	if !ok {
		l = rate.NewLimiter(rl.every, rl.burst)
		rl.limiters[id] = l
	}
	return l.Allow()
}

// Forget drops the history of an id that left the room.
func (rl *ReconnectLimiter) Forget(id domain.RemoteID) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.limiters, id)
}
