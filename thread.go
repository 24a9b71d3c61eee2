package fos

import "time"

// AllocMode mirrors the original allocation-mode tag on a thread's control
// block and stack. Only DYNAMIC threads take a block from the threads arena,
// and the reaper frees that block through the deferred-free list. AUTO
// threads are handled like STATIC ones: they take no threads-arena block and
// are never enqueued onto the deferred-free list.
type AllocMode int

const (
	AllocAuto AllocMode = iota
	AllocStatic
	AllocDynamic
)

// Entry is a thread's body. It receives a ThreadHandle bound to itself,
// used for every self-service system call (Yield, Sleep, Take, Give,
// Terminate, queue I/O). A thread that returns from Entry normally
// terminates cleanly with code 0, exactly as a thread that falls off the
// end of its entry function in the original system does via its trap
// routine.
type Entry func(self *ThreadHandle)

// Thread is a kernel thread control block. Every mutable field is only
// ever touched while Kernel.mu is held; fastState is additionally
// lock-free-readable for diagnostics.
type Thread struct {
	desc     UserDesc
	name     string
	priority int
	entry    Entry
	alloc    AllocMode

	state fastState

	// permit gates the thread's goroutine: it must receive from permit
	// before running any Entry code, and after every system call it either
	// keeps running (permit was never given up) or blocks again on permit
	// until handed back by some future schedule decision.
	permit chan struct{}

	// stackRegion simulates the thread's private stack for watermark
	// probing; thread bodies that want realistic watermark behaviour write
	// into it via ThreadHandle.TouchStack. It is not the goroutine's real
	// stack, which Go manages automatically.
	stackRegion     []byte
	stackSize       int
	maxUsageBytes   int
	maxUsagePercent int
	lastProbe       time.Time

	// wakeDeadline is set by Sleep/TakeBinary/TakeCounting/Ask with a
	// timeout; validWake reports whether it should be honoured this pass.
	wakeDeadline time.Time
	validWake    bool

	// waitResult carries the outcome of a blocking call back to the woken
	// goroutine (nil, ErrTimeout, or ErrSemaphoreDeleted).
	waitResult error

	sliceStartUS uint64
	runTimeUS    uint64

	terminateCode int

	// arenaOffset/hasArena track the threadsArena block backing this
	// thread's simulated stack, when alloc == AllocDynamic. STATIC and
	// AUTO threads never enqueue onto the deferred-free list.
	arenaOffset int
	hasArena    bool

	// joinSem is this thread's own private binary semaphore, Locked for
	// its entire life: Join is Take on it, and the reaper deletes it
	// (waking every joiner at once) instead of Giving it, exactly
	// mirroring the original's per-thread join semaphore. It lives in
	// Kernel.binSems like any other binary semaphore, but outside the
	// registry's normal capacity accounting, since it is bookkeeping
	// intrinsic to the thread rather than something user code registers.
	joinSem UserDesc

	// joinDone is closed by the reaper once this thread is reaped. It
	// lets callers with no ThreadHandle of their own (Kernel.Join, called
	// from outside any managed thread) wait for termination without a
	// permit to park on.
	joinDone chan struct{}
}

// ThreadHandle is the capability a running thread uses to call back into
// the kernel. It is deliberately explicit (passed into Entry) rather than
// recovered via goroutine-local storage, matching the rest of this module's
// preference for explicit state over implicit/ambient context.
type ThreadHandle struct {
	k    *Kernel
	desc UserDesc
}

// Desc returns the calling thread's own descriptor.
func (h *ThreadHandle) Desc() UserDesc { return h.desc }

// TouchStack simulates the thread having used n bytes of its stack in
// total, for stack-watermark testing. It is a disclosed
// simulation hook: Go thread bodies do not actually execute on
// stackRegion, since Go manages the real goroutine stack. stackRegion
// models index 0 as the deepest reachable address (low_sp, where an
// overflow happens) and the far end as the entry/high_sp end, so a depth
// of n dirties the top n bytes, the ones closest to entry.
func (h *ThreadHandle) TouchStack(n int) {
	h.k.mu.Lock()
	defer h.k.mu.Unlock()
	t := h.k.threads[h.desc]
	if t == nil || n <= 0 || n > len(t.stackRegion) {
		return
	}
	for i := len(t.stackRegion) - n; i < len(t.stackRegion); i++ {
		t.stackRegion[i] = 0xA5
	}
}

// probeWatermark scans stackRegion for its deepest touched byte, mirroring
// the original's FOS_ThreadGetAdrStackWatermark: it walks from the stack's
// low (deepest-reachable) address, index 0, towards the high (entry) end
// and stops at the first non-zero byte it finds. Stopping at the first hit
// rather than scanning the whole region means a stray dirty byte left
// behind above the true watermark — closer to entry, but not contiguous
// with it — can never be mistaken for a deeper one.
func (t *Thread) probeWatermark(now time.Time) {
	used := 0
	for i, b := range t.stackRegion {
		if b != 0 {
			used = len(t.stackRegion) - i
			break
		}
	}
	if used > t.maxUsageBytes {
		t.maxUsageBytes = used
	}
	if t.stackSize > 0 {
		t.maxUsagePercent = t.maxUsageBytes * 100 / t.stackSize
	}
	t.lastProbe = now
}

func newThread(desc UserDesc, name string, priority int, alloc AllocMode, stackSize int, entry Entry) *Thread {
	t := &Thread{
		desc:        desc,
		name:        name,
		priority:    priority,
		entry:       entry,
		alloc:       alloc,
		permit:      make(chan struct{}, 1),
		stackRegion: make([]byte, stackSize),
		stackSize:   stackSize,
		joinDone:    make(chan struct{}),
	}
	t.state.Store(StateSuspended, ModeReadyToRun)
	return t
}
