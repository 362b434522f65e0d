// Package notify implements the rate-limit-aware notification delivery
// queue.
package notify

import (
	"sync"
	"time"
)

// RateState tracks, per delivery destination, the earliest time at which
// sending may resume. It is constructed once per process and injected into
// the queue. Access is mutex-guarded so a future concurrent queue does not
// need to change it.
type RateState struct {
	mu       sync.Mutex
	resumeAt map[string]time.Time
	now      func() time.Time
}

// NewRateState creates an empty rate state
func NewRateState() *RateState {
	return &RateState{
		resumeAt: make(map[string]time.Time),
		now:      time.Now,
	}
}

// IsCoolingDown reports whether sends to the destination are currently
// suppressed.
func (s *RateState) IsCoolingDown(destination string) bool {
	return s.Remaining(destination) > 0
}

// Remaining returns how long the destination's cool-down has left, or zero
// when sending may resume.
func (s *RateState) Remaining(destination string) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	until, ok := s.resumeAt[destination]
	if !ok {
		return 0
	}

	remaining := until.Sub(s.now())
	if remaining <= 0 {
		delete(s.resumeAt, destination)
		return 0
	}
	return remaining
}

// SetCooldown suppresses sends to the destination for the given duration.
func (s *RateState) SetCooldown(destination string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resumeAt[destination] = s.now().Add(d)
}

// Clear removes any cool-down for the destination.
func (s *RateState) Clear(destination string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.resumeAt, destination)
}
