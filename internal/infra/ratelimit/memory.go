// Package ratelimit provides fixed-window limiters used to throttle login
// attempts: an in-process one and a Redis-backed one for multi-instance
// deployments.
package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/boddenberg/client-portal-go/internal/port"
)

const defaultMaxKeys = 10000

// ErrCapacity is returned when the memory limiter tracks too many keys.
var ErrCapacity = errors.New("rate limiter capacity exceeded")

type window struct {
	count int
	ends  time.Time
}

// Memory is a fixed-window limiter kept in a map.
type Memory struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	windows map[string]*window
	maxKeys int
}

var _ port.RateLimiter = (*Memory)(nil)

// NewMemory creates a limiter. A nil clock means the wall clock; maxKeys
// <= 0 selects the default.
func NewMemory(clock clockwork.Clock, maxKeys int) *Memory {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if maxKeys <= 0 {
		maxKeys = defaultMaxKeys
	}
	return &Memory{
		clock:   clock,
		windows: make(map[string]*window),
		maxKeys: maxKeys,
	}
}

// Allow counts one attempt against key.
func (m *Memory) Allow(_ context.Context, key string, limit int, span time.Duration) (port.RateLimitDecision, error) {
	if limit <= 0 {
		return port.RateLimitDecision{Allowed: true, Limit: limit, Remaining: limit}, nil
	}
	now := m.clock.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.windows[key]
	if !ok || !now.Before(w.ends) {
		if !ok && len(m.windows) >= m.maxKeys {
			m.sweep(now)
			if len(m.windows) >= m.maxKeys {
				return port.RateLimitDecision{}, ErrCapacity
			}
		}
		w = &window{ends: now.Add(span)}
		m.windows[key] = w
	}

	if w.count >= limit {
		return port.RateLimitDecision{Allowed: false, Limit: limit, Remaining: 0, ResetAt: w.ends}, nil
	}
	w.count++
	return port.RateLimitDecision{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - w.count,
		ResetAt:   w.ends,
	}, nil
}

// Reset forgets the window for key.
func (m *Memory) Reset(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.windows, key)
	return nil
}

func (m *Memory) sweep(now time.Time) {
	for key, w := range m.windows {
		if !now.Before(w.ends) {
			delete(m.windows, key)
		}
	}
}
