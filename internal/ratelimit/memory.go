package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// MemoryStore keeps per-key request timestamps in process memory.
type MemoryStore struct {
	limit  int
	window time.Duration
	clock  clockwork.Clock

	mu      sync.Mutex
	clients map[string]*clientWindow
}

type clientWindow struct {
	timestamps []time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a sliding-window store admitting limit requests per window.
func NewMemoryStore(limit int, window time.Duration, clock clockwork.Clock) *MemoryStore {
	return &MemoryStore{
		limit:   limit,
		window:  window,
		clock:   clock,
		clients: make(map[string]*clientWindow),
	}
}

// Allow prunes timestamps outside the window and admits the request if the
// remaining count is below the limit.
func (s *MemoryStore) Allow(_ context.Context, key string) (Decision, error) {
	now := s.clock.Now()
	windowStart := now.Add(-s.window)

	s.mu.Lock()
	defer s.mu.Unlock()

	cw, ok := s.clients[key]
	if !ok {
		cw = &clientWindow{}
		s.clients[key] = cw
	}
	cw.prune(windowStart)

	if len(cw.timestamps) >= s.limit {
		oldest := cw.timestamps[0]
		return Decision{
			Allowed:    false,
			Limit:      s.limit,
			Remaining:  0,
			RetryAfter: oldest.Add(s.window).Sub(now),
		}, nil
	}

	cw.timestamps = append(cw.timestamps, now)
	return Decision{
		Allowed:   true,
		Limit:     s.limit,
		Remaining: s.limit - len(cw.timestamps),
	}, nil
}

// Run removes idle keys every interval until ctx is done.
func (s *MemoryStore) Run(ctx context.Context, interval time.Duration) {
	ticker := s.clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			s.sweep()
		}
	}
}

func (s *MemoryStore) sweep() {
	windowStart := s.clock.Now().Add(-s.window)
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, cw := range s.clients {
		cw.prune(windowStart)
		if len(cw.timestamps) == 0 {
			delete(s.clients, key)
		}
	}
}

// Len returns the number of tracked keys.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// prune drops timestamps at or before windowStart; in-place filter on the backing array.
func (cw *clientWindow) prune(windowStart time.Time) {
	valid := cw.timestamps[:0]
	for _, ts := range cw.timestamps {
		if ts.After(windowStart) {
			valid = append(valid, ts)
		}
	}
	cw.timestamps = valid
}
