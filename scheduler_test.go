package sheetsync

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestScheduler_RunsPeriodically(t *testing.T) {
	var runs atomic.Int32
	s := NewScheduler(10*time.Millisecond, func(ctx context.Context) error {
		if runs.Add(1) == 2 {
			return errors.New("one failure does not stop the schedule")
		}
		return nil
	}, quietOptions().Logger)

	s.Start(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for runs.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	s.Stop()

	if runs.Load() < 3 {
		t.Fatalf("runs = %d, want at least 3", runs.Load())
	}

	after := runs.Load()
	time.Sleep(30 * time.Millisecond)
	if runs.Load() != after {
		t.Error("scheduler kept running after Stop")
	}
}

func TestScheduler_SkipsOverlappingRuns(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var runs atomic.Int32

	s := NewScheduler(time.Hour, func(ctx context.Context) error {
		if runs.Add(1) == 1 {
			close(started)
			<-release
		}
		return nil
	}, quietOptions().Logger)

	s.Start(context.Background())
	<-started

	if s.Trigger(context.Background()) {
		t.Error("Trigger() ran while a sync was in flight")
	}

	close(release)
	s.Stop()

	if !s.Trigger(context.Background()) {
		t.Error("Trigger() skipped with nothing running")
	}
	if runs.Load() != 2 {
		t.Errorf("runs = %d, want 2", runs.Load())
	}
}

func TestScheduler_StopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var runs atomic.Int32

	s := NewScheduler(5*time.Millisecond, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}, quietOptions().Logger)

	s.Start(ctx)
	cancel()
	s.Stop()

	after := runs.Load()
	time.Sleep(20 * time.Millisecond)
	if runs.Load() != after {
		t.Error("scheduler kept running after its context was cancelled")
	}
}

func TestScheduler_StopTwice(t *testing.T) {
	s := NewScheduler(time.Hour, func(ctx context.Context) error { return nil }, quietOptions().Logger)

	s.Start(context.Background())
	s.Stop()
	s.Stop()

	// never started
	NewScheduler(time.Hour, func(ctx context.Context) error { return nil }, quietOptions().Logger).Stop()
}
