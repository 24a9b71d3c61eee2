package fos

import (
	"time"

	"golang.org/x/exp/constraints"
)

// clamp saturates v into [lo, hi].
func clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// CountingSemaphore tracks an available count in [0, maxCount], with a FIFO
// blocker queue for takers that arrive at zero.
type CountingSemaphore struct {
	desc     UserDesc
	count    int
	maxCount int
	blocker  *Blocker
	// timeout is this object's configured auto-release deadline, set via
	// SetCountingTimeout; <=0 means block forever, mirroring
	// BinarySemaphore.timeout.
	timeout              time.Duration
	timeoutSweptThisPass bool
}

func newCountingSemaphore(desc UserDesc, initialCount, maxCount, capacity int) *CountingSemaphore {
	return &CountingSemaphore{
		desc:     desc,
		count:    clamp(initialCount, 0, maxCount),
		maxCount: maxCount,
		blocker:  newBlocker(capacity),
	}
}

// take decrements the count if positive and reports true (no blocking
// needed); otherwise enqueues desc and reports false.
func (s *CountingSemaphore) take(desc UserDesc) (acquired bool) {
	if s.count > 0 {
		s.count--
		return true
	}
	s.blocker.Push(desc)
	return false
}

// give wakes the next waiter if any (count stays at 0, ownership transfers
// directly), otherwise increments count up to maxCount.
func (s *CountingSemaphore) give() (woken UserDesc, ok bool) {
	if d, has := s.blocker.Pop(); has {
		return d, true
	}
	s.count = clamp(s.count+1, 0, s.maxCount)
	return DescWrong, false
}
