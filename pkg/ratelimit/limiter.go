// Package ratelimit implements a sliding-window request limiter.
//
// Each key holds the timestamps of the requests admitted within the last
// window. A request is admitted while fewer than the limit remain; the window
// moves with the clock, so there is no burst at a fixed boundary.
//
// Where the events live is decided by the Store. MemoryStore keeps them in
// the process, so N replicas each admit the full limit and the effective
// global limit becomes limit × N. RedisStore shares them between replicas.
package ratelimit

import (
	"context"
	"math"
	"time"
)

// Store persists the events recorded for each key.
type Store interface {
	// Get returns the events for key, oldest first.
	Get(ctx context.Context, key string) ([]time.Time, error)

	// Update replaces the events for key with fn(current) as a single atomic
	// step. fn may be called more than once if the store retries. ttl is how
	// long the key may be kept after its newest event.
	Update(ctx context.Context, key string, ttl time.Duration, fn func([]time.Time) []time.Time) error
}

// Result is the outcome of a Check.
type Result struct {
	Allowed   bool
	Remaining int

	// ResetAfter is how long until another request may be admitted when
	// denied, or the full window when allowed.
	ResetAfter time.Duration
}

// ResetAfterSeconds returns ResetAfter rounded up to whole seconds, suitable
// for a Retry-After header. A denied result never reports less than one
// second.
func (r Result) ResetAfterSeconds() int {
	secs := 0
	if r.ResetAfter > 0 {
		secs = int(math.Ceil(r.ResetAfter.Seconds()))
	}
	if !r.Allowed {
		secs = max(secs, 1)
	}
	return secs
}

// Limiter applies the sliding-window algorithm on top of a Store.
type Limiter struct {
	store Store
	now   func() time.Time
}

// NewLimiter returns a Limiter recording into store.
func NewLimiter(store Store) (*Limiter, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	return &Limiter{store: store, now: time.Now}, nil
}

// WithClock returns a copy of l that reads the current time from now.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	cp := *l
	cp.now = now
	return &cp
}

// Check drops the events for key older than now-window, then admits the
// request and records it if fewer than maxRequests remain.
func (l *Limiter) Check(ctx context.Context, key string, maxRequests int, window time.Duration) (Result, error) {
	if key == "" {
		return Result{}, ErrKeyRequired
	}
	if maxRequests <= 0 {
		return Result{}, ErrInvalidLimit
	}
	if window <= 0 {
		return Result{}, ErrInvalidWindow
	}

	now := l.now()
	windowStart := now.Add(-window)

	var res Result
	err := l.store.Update(ctx, key, window, func(events []time.Time) []time.Time {
		kept := make([]time.Time, 0, len(events)+1)
		for _, ts := range events {
			if !ts.Before(windowStart) {
				kept = append(kept, ts)
			}
		}

		if len(kept) >= maxRequests {
			res = Result{
				Allowed:    false,
				Remaining:  0,
				ResetAfter: max(kept[0].Add(window).Sub(now), 0),
			}
			return kept
		}

		kept = append(kept, now)
		res = Result{
			Allowed:    true,
			Remaining:  maxRequests - len(kept),
			ResetAfter: window,
		}
		return kept
	})
	if err != nil {
		return Result{}, err
	}

	return res, nil
}
