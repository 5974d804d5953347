package sheetsync

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Scheduler runs a sync function periodically. A tick that arrives while the
// previous run is still in progress is skipped, so at most one run is in flight.
type Scheduler struct {
	run      func(ctx context.Context) error
	interval time.Duration
	logger   *slog.Logger

	ticker    *time.Ticker
	done      chan struct{}
	stopOnce  sync.Once
	syncMutex sync.Mutex
	wg        sync.WaitGroup
}

// NewScheduler creates a scheduler. A nil logger uses slog.Default().
func NewScheduler(interval time.Duration, run func(ctx context.Context) error, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		run:      run,
		interval: interval,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start runs once immediately, then on every tick until Stop is called or ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	s.ticker = time.NewTicker(s.interval)
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		s.performSync(ctx)
		for {
			select {
			case <-s.ticker.C:
				s.performSync(ctx)
			case <-s.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Trigger runs a sync now unless one is already running. It reports whether it ran.
func (s *Scheduler) Trigger(ctx context.Context) bool {
	return s.performSync(ctx)
}

// performSync executes the run function with exclusive control
func (s *Scheduler) performSync(ctx context.Context) bool {
	if !s.syncMutex.TryLock() {
		s.logger.Debug("previous sync still running, skipping")
		return false
	}
	defer s.syncMutex.Unlock()

	start := time.Now()
	if err := s.run(ctx); err != nil {
		s.logger.Error("scheduled sync failed", slog.String("error", err.Error()))
		return true
	}
	s.logger.Info("scheduled sync finished", slog.Duration("elapsed", time.Since(start)))
	return true
}

// Stop stops the ticker and waits for an in-flight run to finish. It may be
// called more than once.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		if s.ticker != nil {
			s.ticker.Stop()
		}
		close(s.done)
	})
	s.wg.Wait()

	// Wait for a run started through Trigger
	s.syncMutex.Lock()
	s.syncMutex.Unlock()
}
