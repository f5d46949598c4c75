package scheduler

import (
	"sync"
	"time"
)

// Scheduler fires a periodic nudge callback. At most one timer is live at
// any time: Reschedule stops the previous one before arming the next, under
// a single lock, so overlapping reschedules can never double-fire.
type Scheduler struct {
	onNudge func()

	mu   sync.Mutex
	done chan struct{}
}

func New(onNudge func()) *Scheduler {
	return &Scheduler{onNudge: onNudge}
}

// Reschedule clears any armed timer and arms a new periodic one. Periods
// below one minute equivalent are accepted (useful for tests); zero or
// negative periods are clamped to one minute.
func (s *Scheduler) Reschedule(period time.Duration) {
	if period <= 0 {
		period = time.Minute
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()

	done := make(chan struct{})
	s.done = done

	ticker := time.NewTicker(period)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.onNudge()
			case <-done:
				return
			}
		}
	}()
}

// Stop disarms the scheduler. Safe to call when idle.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// Armed reports whether a timer is currently live.
func (s *Scheduler) Armed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done != nil
}

func (s *Scheduler) stopLocked() {
	if s.done != nil {
		close(s.done)
		s.done = nil
	}
}
