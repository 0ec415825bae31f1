package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Scheduler runs one-shot deferred jobs in-process. Jobs scheduled
// after Stop are dropped; pending timers are cancelled on Stop.
type Scheduler struct {
	mu      sync.Mutex
	timers  map[int64]*time.Timer
	nextID  int64
	stopped bool
	wg      sync.WaitGroup
}

// New creates a Scheduler
func New() *Scheduler {
	return &Scheduler{timers: make(map[int64]*time.Timer)}
}

// AfterFunc schedules fn to run after delay. The job receives a fresh
// background context because the scheduling request's context is gone
// by the time the job fires.
func (s *Scheduler) AfterFunc(delay time.Duration, fn func(ctx context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}

	id := s.nextID
	s.nextID++
	s.wg.Add(1)

	s.timers[id] = time.AfterFunc(delay, func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Msg("scheduled job panicked")
			}
		}()

		s.mu.Lock()
		delete(s.timers, id)
		s.mu.Unlock()

		fn(context.Background())
	})
}

// Stop cancels pending jobs and waits for running ones to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	for id, timer := range s.timers {
		if timer.Stop() {
			s.wg.Done()
		}
		delete(s.timers, id)
	}
	s.mu.Unlock()
	s.wg.Wait()
}
