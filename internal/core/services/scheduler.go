package services

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-events/internal/core/domain"
	"github.com/custodia-labs/sercha-events/internal/logger"
)

// TickFunc is called by the scheduler on every timer tick for a source.
type TickFunc func(ctx context.Context, key string)

// Scheduler owns one recurring timer per polling source.
// Ticks for one source are delivered sequentially from that source's
// goroutine, so a slow cycle delays (and coalesces) later ticks rather than
// piling them up.
type Scheduler struct {
	tick TickFunc

	mu      sync.Mutex
	timers  map[string]*timer
	stopped bool
	wg      sync.WaitGroup
}

type timer struct {
	interval  time.Duration
	immediate bool
	nextRun   time.Time
	stopCh    chan struct{}
	done      chan struct{}
}

// NewScheduler creates a scheduler that calls tick for every due source.
func NewScheduler(tick TickFunc) *Scheduler {
	return &Scheduler{
		tick:   tick,
		timers: make(map[string]*timer),
	}
}

// Arm starts a recurring timer for key. If immediate is true the first
// tick fires right away instead of after one interval.
// Arming an already armed key replaces its timer.
func (s *Scheduler) Arm(key string, interval time.Duration, immediate bool) error {
	if interval <= 0 {
		return domain.ErrInvalidInput
	}
	s.Disarm(key)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return domain.ErrRuntimeClosed
	}

	t := &timer{
		interval:  interval,
		immediate: immediate,
		nextRun:   time.Now().Add(interval),
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
	}
	if immediate {
		t.nextRun = time.Now()
	}
	s.timers[key] = t

	s.wg.Add(1)
	go s.loop(key, t)

	logger.Debug("scheduler: armed %s every %s", key, interval)
	return nil
}

// Disarm stops the timer for key and waits for an in-flight tick to finish.
// It must not be called from within a TickFunc for the same key.
func (s *Scheduler) Disarm(key string) {
	s.mu.Lock()
	t, ok := s.timers[key]
	if ok {
		delete(s.timers, key)
		close(t.stopCh)
	}
	s.mu.Unlock()

	if ok {
		<-t.done
		logger.Debug("scheduler: disarmed %s", key)
	}
}

// Armed reports whether key has a running timer.
func (s *Scheduler) Armed(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[key]
	return ok
}

// NextRun returns when the next tick for key is due.
func (s *Scheduler) NextRun(key string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.timers[key]
	if !ok {
		return time.Time{}, false
	}
	return t.nextRun, true
}

// Stop disarms every timer and waits for in-flight ticks to complete.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	keys := make([]string, 0, len(s.timers))
	for key := range s.timers {
		keys = append(keys, key)
	}
	s.mu.Unlock()

	for _, key := range keys {
		s.Disarm(key)
	}
	s.wg.Wait()
}

func (s *Scheduler) loop(key string, t *timer) {
	defer s.wg.Done()
	defer close(t.done)

	if t.immediate {
		s.fire(key, t)
	}

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stopCh:
			return
		case <-ticker.C:
			// Prefer stopping over a tick that raced with Disarm.
			select {
			case <-t.stopCh:
				return
			default:
			}
			s.fire(key, t)
		}
	}
}

func (s *Scheduler) fire(key string, t *timer) {
	s.mu.Lock()
	t.nextRun = time.Now().Add(t.interval)
	s.mu.Unlock()

	// In-flight cycles are allowed to finish after deactivation, so they do
	// not inherit a cancellable context.
	s.tick(context.Background(), key)
}
