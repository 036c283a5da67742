package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"MarketDigest/internal/ports"
)

// IntervalScheduler drives daemon mode with a time.Ticker. The job runs
// once immediately on Start and then on every tick.
type IntervalScheduler struct {
	interval time.Duration
	logger   *slog.Logger

	mu   sync.Mutex
	stop chan struct{}
}

var _ ports.Scheduler = (*IntervalScheduler)(nil)

// New builds a scheduler firing at the given interval.
func New(interval time.Duration, logger *slog.Logger) *IntervalScheduler {
	return &IntervalScheduler{interval: interval, logger: logger}
}

// Start begins ticking. Calling Start on a running scheduler is a no-op.
func (s *IntervalScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	s.mu.Lock()
	if s.stop != nil {
		s.mu.Unlock()
		return nil
	}
	stop := make(chan struct{})
	s.stop = stop
	s.mu.Unlock()

	s.logger.Info("scheduler started", "interval", s.interval)

	// The goroutine selects on its own copy of the channel, so Stop
	// resetting the field cannot race a live tick.
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		job(time.Now())
		for {
			select {
			case t := <-ticker.C:
				job(t)
			case <-ctx.Done():
				return
			case <-stop:
				return
			}
		}
	}()

	return nil
}

// Stop halts the ticker goroutine.
func (s *IntervalScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	stop := s.stop
	s.stop = nil
	s.mu.Unlock()

	if stop == nil {
		return nil
	}
	close(stop)
	s.logger.Info("scheduler stopped")
	return nil
}
