package ratelimit

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	events []time.Time
	ttl    time.Duration
}

// expired reports whether the newest event is older than ttl at now.
func (e memoryEntry) expired(now time.Time) bool {
	if len(e.events) == 0 {
		return true
	}
	return e.events[len(e.events)-1].Add(e.ttl).Before(now)
}

// MemoryStore keeps events in a process-local map guarded by a mutex.
// Entries are never expired on read; call Prune periodically to release
// idle keys.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, nil
	}
	return append([]time.Time(nil), e.events...), nil
}

func (s *MemoryStore) Update(_ context.Context, key string, ttl time.Duration, fn func([]time.Time) []time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := fn(s.entries[key].events)
	if len(next) == 0 {
		delete(s.entries, key)
		return nil
	}
	s.entries[key] = memoryEntry{events: next, ttl: ttl}
	return nil
}

// Prune removes every key whose newest event is older than its ttl at now
// and returns how many were removed.
func (s *MemoryStore) Prune(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, e := range s.entries {
		if e.expired(now) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of keys currently held.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
