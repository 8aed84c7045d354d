// Package ratelimit implements a keyed fixed-window rate limiter: at most N
// admissions per window per key. The counter lives behind a Store interface
// so the same limiter runs against an in-process map in a single-process
// deployment and against Redis when the service is horizontally scaled —
// in-memory counts silently stop being cluster-correct the moment a second
// replica starts.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Store is a keyed, time-windowed counter. Incr must behave as a single
// atomic "create-window-if-expired, increment, read" so two concurrent
// requests can never both observe a pre-limit count.
type Store interface {
	// Incr increments the key's counter within its current fixed window,
	// starting a fresh window of the given length if none is active.
	// Returns the post-increment count and when the window resets.
	Incr(ctx context.Context, key string, window time.Duration) (count int64, resetAt time.Time, err error)

	// Undo reverses one increment in the key's current window. A no-op when
	// the window has already elapsed.
	Undo(ctx context.Context, key string) error
}

type memoryWindow struct {
	resetAt time.Time
	count   int64
}

// MemoryStore is the single-process Store: a mutex-guarded map with lazy
// expiry. No background sweeper; an expired entry is replaced on the next
// Incr for its key.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*memoryWindow
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithClock(time.Now)
}

// NewMemoryStoreWithClock injects the clock, which keeps window-expiry tests
// deterministic.
func NewMemoryStoreWithClock(now func() time.Time) *MemoryStore {
	return &MemoryStore{
		windows: make(map[string]*memoryWindow),
		now:     now,
	}
}

func (s *MemoryStore) Incr(_ context.Context, key string, window time.Duration) (int64, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	w := s.windows[key]
	if w == nil || !now.Before(w.resetAt) {
		w = &memoryWindow{resetAt: now.Add(window)}
		s.windows[key] = w
	}
	w.count++
	return w.count, w.resetAt, nil
}

func (s *MemoryStore) Undo(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := s.windows[key]
	if w == nil {
		return nil
	}
	if !s.now().Before(w.resetAt) {
		// Window already rolled over; nothing to reverse.
		delete(s.windows, key)
		return nil
	}
	if w.count > 0 {
		w.count--
	}
	return nil
}
