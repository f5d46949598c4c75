package scheduler

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestReschedule_FiresPeriodically(t *testing.T) {
	var fires atomic.Int32
	s := New(func() { fires.Add(1) })
	defer s.Stop()

	s.Reschedule(10 * time.Millisecond)

	deadline := time.After(2 * time.Second)
	for fires.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("got %d fires before deadline, want at least 3", fires.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestReschedule_ReplacesPreviousTimer(t *testing.T) {
	var fires atomic.Int32
	s := New(func() { fires.Add(1) })
	defer s.Stop()

	// Arm a fast timer, then immediately replace it with a slow one. If both
	// were left running the fast one would fire within the sleep below.
	s.Reschedule(20 * time.Millisecond)
	s.Reschedule(time.Hour)

	time.Sleep(100 * time.Millisecond)
	if got := fires.Load(); got != 0 {
		t.Errorf("got %d fires after replacing timer, want 0", got)
	}
	if !s.Armed() {
		t.Error("scheduler should still be armed after reschedule")
	}
}

func TestStop_Disarms(t *testing.T) {
	var fires atomic.Int32
	s := New(func() { fires.Add(1) })

	s.Reschedule(10 * time.Millisecond)
	s.Stop()
	if s.Armed() {
		t.Error("scheduler still armed after Stop")
	}

	before := fires.Load()
	time.Sleep(50 * time.Millisecond)
	if got := fires.Load(); got != before {
		t.Errorf("fired %d more times after Stop", got-before)
	}
}

func TestStop_IdleIsSafe(t *testing.T) {
	s := New(func() {})
	s.Stop()
	s.Stop()
	if s.Armed() {
		t.Error("idle scheduler reports armed")
	}
}

func TestReschedule_ClampsNonPositivePeriod(t *testing.T) {
	s := New(func() {})
	defer s.Stop()

	s.Reschedule(0)
	if !s.Armed() {
		t.Error("zero period should still arm the scheduler")
	}

	s.Reschedule(-time.Minute)
	if !s.Armed() {
		t.Error("negative period should still arm the scheduler")
	}
}
