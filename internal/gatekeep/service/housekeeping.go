package service

import (
	"log/slog"
	"sync"
	"time"

	"github.com/aussiebroadwan/gatekeep/pkg/ratelimit"
)

// HousekeepingService periodically drops rate-limit keys whose events have
// all left the window, so the in-process limiter does not grow without bound.
type HousekeepingService struct {
	Limits   *ratelimit.MemoryStore
	Logger   *slog.Logger
	Interval time.Duration

	mu      sync.Mutex
	started bool
	stopped bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewHousekeepingService returns a service running every interval, or every
// minute when interval is not positive.
func NewHousekeepingService(limits *ratelimit.MemoryStore, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Minute
	}

	return &HousekeepingService{
		Limits:   limits,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the background worker. Call Stop to shut it down. Further
// calls are no-ops.
func (s *HousekeepingService) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop signals the worker and waits for it to exit. It is a no-op when the
// service was never started or is already stopped.
func (s *HousekeepingService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started || s.stopped {
		return
	}
	s.stopped = true
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			s.cleanup(now)
		case <-s.stopCh:
			return
		}
	}
}

func (s *HousekeepingService) cleanup(now time.Time) {
	removed := s.Limits.Prune(now)
	if removed > 0 {
		s.Logger.Debug("pruned idle rate limit keys", "removed", removed, "remaining", s.Limits.Len())
	}
}
