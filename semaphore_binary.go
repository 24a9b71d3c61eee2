package fos

import "time"

// BinaryLockState is the two-value state of a binary semaphore.
type BinaryLockState int

const (
	Unlocked BinaryLockState = iota
	Locked
)

// BinarySemaphore guards a single resource with a FIFO blocker queue and a
// per-wait timeout. All mutation happens under Kernel.mu; this type has no
// locking of its own.
type BinarySemaphore struct {
	desc    UserDesc
	state   BinaryLockState
	blocker *Blocker
	// timeout is this object's configured auto-release deadline, set via
	// SetBinaryTimeout; <=0 means block forever. It is read at the moment a
	// caller actually blocks, not when it was set, so changing it never
	// retroactively shortens or extends a wait already in progress.
	timeout time.Duration
	// timeoutSweptThisPass is cleared at the start of every timeout sweep
	// and is not otherwise set or read: timeouts are tracked per waiting
	// thread (Thread.wakeDeadline/waitResult), and the sweep visits each
	// thread once per pass; see DESIGN.md Open Question decision 1.
	timeoutSweptThisPass bool
}

func newBinarySemaphore(desc UserDesc, initiallyLocked bool, capacity int) *BinarySemaphore {
	s := &BinarySemaphore{desc: desc, blocker: newBlocker(capacity)}
	if initiallyLocked {
		s.state = Locked
	}
	return s
}

// take attempts to lock the semaphore for desc. If already unlocked, locks
// it immediately and returns true (caller proceeds without blocking). If
// locked, enqueues desc onto the FIFO and returns false (caller must
// block).
func (s *BinarySemaphore) take(desc UserDesc) (acquired bool) {
	if s.state == Unlocked {
		s.state = Locked
		return true
	}
	s.blocker.Push(desc)
	return false
}

// give unlocks the semaphore. If a thread is waiting, it is popped and
// returned (still logically holding the lock — the semaphore stays Locked
// on its behalf); otherwise the semaphore becomes Unlocked.
func (s *BinarySemaphore) give() (woken UserDesc, ok bool) {
	if d, has := s.blocker.Pop(); has {
		return d, true
	}
	s.state = Unlocked
	return DescWrong, false
}
