// Package debounce provides a single-slot coalescing timer.
//
// A Slot holds at most one pending callback. Scheduling again before the
// pending callback fires replaces it and restarts the delay, so a burst of
// calls results in exactly one invocation after the burst settles.
package debounce

import (
	"sync"
	"time"
)

// Slot is a single-slot coalescing timer. The zero value is ready to use.
type Slot struct {
	mu    sync.Mutex
	timer *time.Timer
	gen   uint64
}

// Schedule arranges for fn to run after delay. A callback scheduled earlier
// that has not fired yet is dropped.
func (s *Slot) Schedule(fn func(), delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}
	s.gen++
	gen := s.gen
	s.timer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		if s.gen != gen {
			// Superseded between firing and acquiring the lock.
			s.mu.Unlock()
			return
		}
		s.timer = nil
		s.mu.Unlock()
		fn()
	})
}

// Cancel drops the pending callback, if any.
func (s *Slot) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
}

// Pending reports whether a callback is waiting to fire.
func (s *Slot) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}
