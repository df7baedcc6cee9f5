package session

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shiftwatch/shiftwatch/internal/store"
)

// DefaultCleanupInterval is how often expired sessions are swept.
const DefaultCleanupInterval = 30 * time.Minute

// Scheduler periodically deletes expired and revoked sessions. It is fully
// independent of the presence monitor: the two sweeps operate on disjoint
// tables and never block each other.
type Scheduler struct {
	mu       sync.RWMutex
	sessions *store.SessionStore
	interval time.Duration
	logger   *slog.Logger
	running  atomic.Bool
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewScheduler creates a session cleanup scheduler. A zero interval selects
// the default.
func NewScheduler(ss *store.SessionStore, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	return &Scheduler{
		sessions: ss,
		interval: interval,
		logger:   logger,
	}
}

// Start begins the cleanup loop: one pass immediately, then one per interval.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		s.Cleanup(time.Now())

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Cleanup(time.Now())
			}
		}
	}()
}

// Stop cancels the loop and waits for it to exit.
func (s *Scheduler) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Cleanup runs one pass, returning how many sessions were removed and
// whether the pass ran. A manual trigger while the scheduled pass is in
// flight is coalesced; the delete itself is idempotent either way.
func (s *Scheduler) Cleanup(now time.Time) (deleted int64, ran bool) {
	if !s.running.CompareAndSwap(false, true) {
		return 0, false
	}
	defer s.running.Store(false)

	deleted, err := s.sessions.CleanupExpired(now.UTC())
	if err != nil {
		s.logger.Error("session cleanup", "error", err)
		return 0, true
	}
	if deleted > 0 {
		s.logger.Info("session cleanup", "deleted", deleted)
	}
	return deleted, true
}
