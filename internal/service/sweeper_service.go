package service

import (
	"context"
	"sync"
	"time"

	"github.com/inbox-snapshot/internal/logging"
)

// ExpiredSnapshotStore deletes snapshots past their retention window
type ExpiredSnapshotStore interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// SweeperService deletes expired snapshots on a fixed schedule. This is the
// mechanism behind the retention guarantee: no snapshot or its summaries
// survives past the retention window.
type SweeperService struct {
	snapshots ExpiredSnapshotStore
	interval  time.Duration
	logger    *logging.Logger

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	now      func() time.Time
}

// NewSweeperService creates a new sweeper service
func NewSweeperService(snapshots ExpiredSnapshotStore, interval time.Duration) *SweeperService {
	return &SweeperService{
		snapshots: snapshots,
		interval:  interval,
		logger:    logging.GetGlobalLogger().WithField("component", "sweeper"),
		now:       time.Now,
	}
}

// Start begins the periodic sweep loop. Calling Start on a running sweeper
// is a no-op.
func (s *SweeperService) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stopChan = make(chan struct{})

	go s.loop(s.stopChan)
	s.logger.WithField("interval", s.interval.String()).Info("retention sweeper started")
}

// Stop halts the periodic sweep loop
func (s *SweeperService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	close(s.stopChan)
	s.logger.Info("retention sweeper stopped")
}

// IsRunning reports whether the sweep loop is active
func (s *SweeperService) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *SweeperService) loop(stop chan struct{}) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// A failed sweep is logged and retried on the next tick; it
			// must never take down the host process.
			if _, err := s.RunOnce(context.Background()); err != nil {
				s.logger.WithError(err).Error("retention sweep failed")
			}
		case <-stop:
			return
		}
	}
}

// RunOnce performs a single sweep and returns how many snapshots were
// deleted. Running it again with no new expirations deletes nothing.
func (s *SweeperService) RunOnce(ctx context.Context) (int64, error) {
	deleted, err := s.snapshots.DeleteExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		s.logger.WithField("deleted", deleted).Info("expired snapshots removed")
	}
	return deleted, nil
}
