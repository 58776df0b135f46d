// Package batch provides the adaptive batch sizer used by both the
// ingestion flusher (flush trigger threshold) and the outbox dispatcher
// (fetch limit). Each owner runs its own instance; the type itself is
// goroutine-safe so status snapshots can read it from other goroutines.
package batch

import (
	"sync"
	"time"
)

// Sizer is a feedback controller mapping observed batch latency to the next
// batch size, bounded in [min, max].
//
//	latency < 0.5·target → double
//	latency > 1.5·target → halve
//	otherwise            → unchanged
type Sizer struct {
	mu     sync.Mutex
	size   int
	min    int
	max    int
	target time.Duration
}

// NewSizer starts at the minimum size. min is clamped to at least 1 and max
// to at least min, so a misconfigured sizer degrades to fixed-size batches
// instead of stalling.
func NewSizer(min, max int, target time.Duration) *Sizer {
	if min < 1 {
		min = 1
	}
	if max < min {
		max = min
	}
	return &Sizer{size: min, min: min, max: max, target: target}
}

// Current returns the size the next batch should use.
func (s *Sizer) Current() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// Observe feeds one completed batch into the controller. Empty batches are
// ignored; their latency measures idleness, not persistence cost.
func (s *Sizer) Observe(latency time.Duration, n int) {
	if n <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case latency*2 < s.target:
		s.size *= 2
		if s.size > s.max {
			s.size = s.max
		}
	case latency*2 > s.target*3:
		s.size /= 2
		if s.size < s.min {
			s.size = s.min
		}
	}
}

// Reset drops back to the minimum size. Called when the pipeline goes idle
// so a traffic burst after a quiet period starts with small, safe batches.
func (s *Sizer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.size = s.min
}
