package fos

import (
	"errors"
	"runtime"
	"time"
)

// Yield gives up the remainder of the calling thread's time slice,
// re-entering the ready queue at the tail of its priority level.
func (h *ThreadHandle) Yield() {
	h.k.doSyscall(h.desc, CallYield, func() {
		t := h.k.threads[h.desc]
		t.state.Store(StateReady, ModeRun)
		h.k.sched.enqueueReady(t.priority, h.desc)
	})
}

// Sleep blocks the calling thread until d has elapsed.
func (h *ThreadHandle) Sleep(d time.Duration) {
	h.k.doSyscall(h.desc, CallSleep, func() {
		t := h.k.threads[h.desc]
		t.state.Store(StateBlocked, ModeRun)
		t.wakeDeadline = h.k.cfg.platform.Now().Add(d)
		t.validWake = true
		t.waitResult = nil
	})
}

// TakeBinary attempts to lock binSem. With Block, the caller waits —
// bounded by the semaphore's own configured timeout (see SetBinaryTimeout),
// <=0 meaning forever — until it is acquired, deleted (returns
// ErrSemaphoreDeleted) or the timeout elapses (returns ErrTimeout). With
// Poll, it returns ErrWouldBlock immediately instead of waiting.
func (h *ThreadHandle) TakeBinary(desc UserDesc, mode Blocking) error {
	var callErr error
	h.k.doSyscall(h.desc, CallSemBinaryTake, func() {
		s := h.k.binSems[desc]
		if s == nil {
			callErr = ErrUnknownDescriptor
			return
		}
		if s.take(h.desc) {
			return
		}
		// s.take already enqueued us on the blocker; if non-blocking,
		// undo that and fail immediately instead.
		if mode == Poll {
			s.blocker.Remove(h.desc)
			callErr = ErrWouldBlock
			return
		}
		t := h.k.threads[h.desc]
		t.state.Store(StateBlocked, ModeRun)
		t.waitResult = nil
		if s.timeout > 0 {
			t.wakeDeadline = h.k.cfg.platform.Now().Add(s.timeout)
			t.validWake = true
		} else {
			t.validWake = false
		}
	})
	if callErr != nil {
		return callErr
	}
	t := h.k.threads[h.desc]
	return t.waitResult
}

// SetBinaryTimeout configures binSem's auto-release deadline: a future
// blocking Take wakes with ErrTimeout after d of continuous blocking.
// <=0 disables the timeout.
func (h *ThreadHandle) SetBinaryTimeout(desc UserDesc, d time.Duration) error {
	var callErr error
	h.k.doSyscall(h.desc, CallSemBinarySetTimeout, func() {
		s := h.k.binSems[desc]
		if s == nil {
			callErr = ErrUnknownDescriptor
			return
		}
		s.timeout = d
	})
	return callErr
}

// GiveBinary unlocks binSem, waking the next waiter if any.
func (h *ThreadHandle) GiveBinary(desc UserDesc) error {
	var callErr error
	h.k.doSyscall(h.desc, CallSemBinaryGive, func() {
		s := h.k.binSems[desc]
		if s == nil {
			callErr = ErrUnknownDescriptor
			return
		}
		if woken, ok := s.give(); ok {
			h.k.readyThreadLocked(woken)
		}
	})
	return callErr
}

// TakeCounting is the counting-semaphore analogue of TakeBinary.
func (h *ThreadHandle) TakeCounting(desc UserDesc, mode Blocking) error {
	var callErr error
	h.k.doSyscall(h.desc, CallSemCountingTake, func() {
		s := h.k.cntSems[desc]
		if s == nil {
			callErr = ErrUnknownDescriptor
			return
		}
		if s.take(h.desc) {
			return
		}
		if mode == Poll {
			s.blocker.Remove(h.desc)
			callErr = ErrWouldBlock
			return
		}
		t := h.k.threads[h.desc]
		t.state.Store(StateBlocked, ModeRun)
		t.waitResult = nil
		if s.timeout > 0 {
			t.wakeDeadline = h.k.cfg.platform.Now().Add(s.timeout)
			t.validWake = true
		} else {
			t.validWake = false
		}
	})
	if callErr != nil {
		return callErr
	}
	t := h.k.threads[h.desc]
	return t.waitResult
}

// SetCountingTimeout is the counting-semaphore analogue of
// SetBinaryTimeout.
func (h *ThreadHandle) SetCountingTimeout(desc UserDesc, d time.Duration) error {
	var callErr error
	h.k.doSyscall(h.desc, CallSemCountingSetTimeout, func() {
		s := h.k.cntSems[desc]
		if s == nil {
			callErr = ErrUnknownDescriptor
			return
		}
		s.timeout = d
	})
	return callErr
}

// GiveCounting releases one unit of desc, waking the next waiter if any.
func (h *ThreadHandle) GiveCounting(desc UserDesc) error {
	var callErr error
	h.k.doSyscall(h.desc, CallSemCountingGive, func() {
		s := h.k.cntSems[desc]
		if s == nil {
			callErr = ErrUnknownDescriptor
			return
		}
		if woken, ok := s.give(); ok {
			h.k.readyThreadLocked(woken)
		}
	})
	return callErr
}

// Write appends v to the queue. Never blocks (a full queue is a caller
// error), waking a blocked reader if the queue has an associated
// semaphore.
func (h *ThreadHandle) Write(desc UserDesc, v uint32) error {
	var callErr error
	h.k.doSyscall(h.desc, CallQueueWrite, func() {
		q := h.k.queues[desc]
		if q == nil {
			callErr = ErrUnknownDescriptor
			return
		}
		if !q.Write(v) {
			callErr = ErrInvalidArg
			return
		}
		if q.sem == nil {
			return
		}
		if woken, ok := q.sem.give(); ok {
			h.k.readyThreadLocked(woken)
		}
	})
	return callErr
}

// Ask takes a queue's paired counting semaphore, optionally (with Block)
// waiting for an element to become available — bounded by the semaphore's
// own configured timeout, exactly like TakeCounting. A queue created
// without a semaphore has nothing to wait on, so Ask always succeeds on it
// immediately. Pair Ask with Read: Read is a plain pop and must be
// preceded by a successful Ask.
func (h *ThreadHandle) Ask(desc UserDesc, mode Blocking) error {
	var callErr error
	h.k.doSyscall(h.desc, CallQueueAsk, func() {
		q := h.k.queues[desc]
		if q == nil {
			callErr = ErrUnknownDescriptor
			return
		}
		if q.sem == nil {
			return
		}
		if q.sem.take(h.desc) {
			return
		}
		if mode == Poll {
			q.sem.blocker.Remove(h.desc)
			callErr = ErrWouldBlock
			return
		}
		t := h.k.threads[h.desc]
		t.state.Store(StateBlocked, ModeRun)
		t.waitResult = nil
		if q.sem.timeout > 0 {
			t.wakeDeadline = h.k.cfg.platform.Now().Add(q.sem.timeout)
			t.validWake = true
		} else {
			t.validWake = false
		}
	})
	if callErr != nil {
		return callErr
	}
	t := h.k.threads[h.desc]
	return t.waitResult
}

// Read pops the head element of a queue. Never blocks: it must be
// preceded by a successful Ask, and returns ErrWouldBlock if the queue is
// empty anyway.
func (h *ThreadHandle) Read(desc UserDesc) (uint32, error) {
	var value uint32
	var callErr error
	h.k.doSyscall(h.desc, CallQueueRead, func() {
		q := h.k.queues[desc]
		if q == nil {
			callErr = ErrUnknownDescriptor
			return
		}
		v, ok := q.ReadData()
		if !ok {
			callErr = ErrWouldBlock
			return
		}
		value = v
	})
	if callErr != nil {
		return 0, callErr
	}
	return value, nil
}

// GetThreadSem returns desc's per-thread join semaphore, the one Join
// takes internally. Like the other ThreadHandle system calls it pends a
// context switch, even though it only reads state, matching the original gateway's
// dispatch of every registered call through the same mechanism.
func (h *ThreadHandle) GetThreadSem(desc UserDesc) (UserDesc, error) {
	var sem UserDesc
	var callErr error
	h.k.doSyscall(h.desc, CallGetThreadSem, func() {
		t := h.k.threads[desc]
		if t == nil {
			callErr = ErrUnknownDescriptor
			return
		}
		sem = t.joinSem
	})
	if callErr != nil {
		return DescWrong, callErr
	}
	return sem, nil
}

// Join blocks the calling thread until desc terminates. It is implemented
// as a Take on desc's join semaphore (see GetThreadSem), which the reaper
// deletes — waking every joiner with success — once desc is reaped. If
// desc has already terminated and been reaped by the time Join is called,
// it returns nil immediately: the join condition was already satisfied.
func (h *ThreadHandle) Join(desc UserDesc) error {
	sem, err := h.GetThreadSem(desc)
	if err != nil {
		return nil
	}
	err = h.TakeBinary(sem, Block)
	if errors.Is(err, ErrUnknownDescriptor) || errors.Is(err, ErrSemaphoreDeleted) {
		return nil
	}
	return err
}

// IsThreadAlive reports whether desc still identifies a live thread. It
// never pends a context switch: there is no corresponding registered call,
// it is a pure query like ThreadStats.
func (h *ThreadHandle) IsThreadAlive(desc UserDesc) bool {
	return h.k.IsThreadAlive(desc)
}

// Terminate ends the calling thread with the given exit code. It never
// returns to its caller: the thread's goroutine exits via runtime.Goexit
// once the next thread has been handed the permit.
func (h *ThreadHandle) Terminate(code int) {
	k := h.k
	k.mu.Lock()
	t := k.threads[h.desc]
	if t == nil {
		k.mu.Unlock()
		runtime.Goexit()
	}
	t.terminateCode = code
	t.state.Store(StateSuspended, ModeTerminating)
	next := k.runMainLoopPassLocked()
	k.mu.Unlock()
	k.cfg.logger.Debug().
		Uint64(`caller`, uint64(h.desc)).
		Str(`call`, CallThreadTerminate.String()).
		Int(`code`, code).
		Log(`syscall`)
	if next != h.desc {
		k.wake(next)
	}
	runtime.Goexit()
}
