package scheduler_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/avtoline/avtoline-api/internal/pkg/scheduler"
)

func TestAfterFuncRuns(t *testing.T) {
	s := scheduler.New()
	defer s.Stop()

	var ran atomic.Bool
	done := make(chan struct{})
	s.AfterFunc(10*time.Millisecond, func(ctx context.Context) {
		ran.Store(true)
		close(done)
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job did not run")
	}
	if !ran.Load() {
		t.Fatal("expected job to run")
	}
}

func TestStopCancelsPending(t *testing.T) {
	s := scheduler.New()

	var ran atomic.Bool
	s.AfterFunc(time.Hour, func(ctx context.Context) {
		ran.Store(true)
	})

	s.Stop()
	if ran.Load() {
		t.Fatal("expected pending job to be cancelled")
	}
}

func TestScheduleAfterStopIsDropped(t *testing.T) {
	s := scheduler.New()
	s.Stop()

	var ran atomic.Bool
	s.AfterFunc(time.Millisecond, func(ctx context.Context) {
		ran.Store(true)
	})

	time.Sleep(20 * time.Millisecond)
	if ran.Load() {
		t.Fatal("expected job scheduled after stop to be dropped")
	}
}
