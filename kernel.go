package fos

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Blocking selects whether a thread is willing to wait for a resource that
// isn't immediately available. It replaces the original's "SPECIAL thread
// id" (250) overload used to mean "calling from a non-blocking context"
// with an explicit enum argument, per the re-architecture note.
type Blocking int

const (
	Poll Blocking = iota
	Block
)

// Kernel is the simulated RTOS kernel: one goroutine-permit scheduler, a set
// of fixed-capacity object registries, two arenas, and a deferred-free
// batcher. Every exported method either is called from inside a managed
// thread's own goroutine via ThreadHandle (and may park that goroutine), or
// is called from outside any thread — the harness, "Main", or a simulated
// ISR — via the methods defined directly on *Kernel below, which never
// park their caller.
type Kernel struct {
	cfg *config
	mu  sync.Mutex

	threads   map[UserDesc]*Thread
	descAlloc *descAllocator
	sched     *scheduler

	binSems map[UserDesc]*BinarySemaphore
	cntSems map[UserDesc]*CountingSemaphore
	queues  map[UserDesc]*Queue32
	writers map[UserDesc]*writerEntry

	mountedDevice BlockDevice

	kernelArena   *arena
	threadsArena  *arena
	gc            *garbageCollector
	lastHeapCheck time.Time

	runningDesc  UserDesc
	idleDesc     UserDesc
	threadMaxInd int

	lastError *FatalError

	shutdownCh chan struct{}
	shutdownMu sync.Once
	tickDone   chan struct{}
}

// NewKernel constructs a Kernel. Config.Platform must be supplied via
// WithPlatform; there is no compiled-in default (see DESIGN.md Open
// Question decision 3).
func NewKernel(opts ...Option) (*Kernel, error) {
	cfg := resolveConfig(opts)
	if cfg.platform == nil {
		return nil, fmt.Errorf("fos: %w: Platform is required (use WithPlatform)", ErrInvalidArg)
	}
	k := &Kernel{
		cfg:        cfg,
		threads:    make(map[UserDesc]*Thread, cfg.maxThreads),
		descAlloc:  newDescAllocator(),
		sched:      newScheduler(cfg.priorityLevels, cfg.maxThreads),
		binSems:    make(map[UserDesc]*BinarySemaphore),
		cntSems:    make(map[UserDesc]*CountingSemaphore),
		queues:     make(map[UserDesc]*Queue32),
		writers:    make(map[UserDesc]*writerEntry),
		shutdownCh: make(chan struct{}),
		tickDone:   make(chan struct{}),
	}
	k.kernelArena = newArena(arenaKernel, cfg.kernelHeapSize, k.onArenaCorrupt)
	k.threadsArena = newArena(arenaThreads, cfg.threadsHeapSize, k.onArenaCorrupt)
	k.gc = newGarbageCollector(cfg.deferredFreeBatchSize, cfg.deferredFreeFlushEvery, k.kernelArena, k.threadsArena)

	idle, err := k.CreateThread("idle", cfg.priorityLevels-1, AllocStatic, 256, idleEntry)
	if err != nil {
		return nil, err
	}
	k.idleDesc = idle
	if err := k.RunThread(idle); err != nil {
		return nil, err
	}
	return k, nil
}

// idleEntry never participates in the ready-queue FIFOs (see pickNextLocked):
// it is the implicit fallback whenever every real priority level is empty,
// and spends all its time parked on its own permit so it burns no CPU while
// genuinely idle, exactly like a real idle task blocked on a wait-for-
// interrupt instruction.
func idleEntry(self *ThreadHandle) {
	for {
		self.k.park(self.desc)
	}
}

func (k *Kernel) onArenaCorrupt(tag arenaTag, blockIndex int) {
	code := ErrorCodeKernelHeap
	if tag == arenaThreads {
		code = ErrorCodeThreadsHeap
	}
	k.lastError = &FatalError{Code: code, Desc: fmt.Sprintf("block %d failed integrity check", blockIndex)}
	k.cfg.onError(k.lastError)
}

// LastError returns the most recently latched fatal error, or nil.
func (k *Kernel) LastError() *FatalError {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.lastError
}

// ThreadStats is a snapshot of a thread's scheduling and stack-usage
// accounting, as surfaced by Kernel.ThreadStats.
type ThreadStats struct {
	RunTimeUS       uint64
	MaxUsagePercent int
}

// ThreadStats reports accumulated CPU time and peak stack usage for desc.
// Safe to call from outside thread context; accumulated time for the
// currently-running thread does not include its still-in-progress slice.
func (k *Kernel) ThreadStats(desc UserDesc) (ThreadStats, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	t := k.threads[desc]
	if t == nil {
		return ThreadStats{}, ErrUnknownDescriptor
	}
	return ThreadStats{RunTimeUS: t.runTimeUS, MaxUsagePercent: t.maxUsagePercent}, nil
}

// Boot starts the slice-timer tick loop and blocks until ctx is cancelled or
// Shutdown is called. It plays the role of the original's reset-handler /
// scheduler-start call: the goroutine that calls Boot is not itself a
// managed thread, so it never needs to park.
func (k *Kernel) Boot(ctx context.Context) error {
	go k.tickLoop()
	select {
	case <-ctx.Done():
		k.Shutdown()
		return ctx.Err()
	case <-k.shutdownCh:
		return nil
	}
}

// Shutdown stops the tick loop and the deferred-free batcher. Safe to call
// more than once.
func (k *Kernel) Shutdown() {
	k.shutdownMu.Do(func() {
		close(k.shutdownCh)
	})
	<-k.tickDone
	_ = k.gc.Close()
}

func (k *Kernel) tickLoop() {
	defer close(k.tickDone)
	ticker := time.NewTicker(k.cfg.sliceDuration)
	defer ticker.Stop()
	for {
		select {
		case <-k.shutdownCh:
			return
		case <-ticker.C:
			k.onTick()
		}
	}
}

func (k *Kernel) onTick() {
	k.mu.Lock()
	now := k.cfg.platform.Now()
	k.reaperLocked()
	k.probeWatermarksLocked(now)
	k.checkHeapsLocked(now)
	k.serviceWritersLocked()
	k.sweepTimeoutsLocked(now)

	cur := k.threads[k.runningDesc]
	rotate := false
	if cur != nil {
		if k.sched.readyCountAt(cur.priority) > 0 || k.sched.readyCountAbove(cur.priority) > 0 {
			rotate = true
		}
	}
	if !rotate {
		k.mu.Unlock()
		return
	}
	if cur.desc != k.idleDesc {
		cur.state.Store(StateReady, ModeRun)
		k.sched.enqueueReady(cur.priority, cur.desc)
	}
	next := k.pickNextLocked()
	k.mu.Unlock()
	if next != cur.desc {
		k.wake(next)
	}
}

// pickNextLocked pops the highest-priority ready thread, marks it Running,
// records it as k.runningDesc, and returns its descriptor. Must be called
// with k.mu held. Always succeeds in practice because the idle thread is
// always ready when nothing else is.
func (k *Kernel) pickNextLocked() UserDesc {
	now := k.cfg.platform.ReadSliceUS()
	if prev := k.threads[k.runningDesc]; prev != nil {
		prev.runTimeUS += now - prev.sliceStartUS
	}
	d, ok := k.sched.pickNext()
	if !ok {
		d = k.idleDesc
	}
	t := k.threads[d]
	t.state.Store(StateRunning, ModeRun)
	t.sliceStartUS = now
	k.runningDesc = d
	return d
}

// wake hands the permit to desc's goroutine. Must be called without holding
// k.mu.
func (k *Kernel) wake(desc UserDesc) {
	k.mu.Lock()
	t := k.threads[desc]
	k.mu.Unlock()
	if t == nil {
		return
	}
	select {
	case t.permit <- struct{}{}:
	default:
	}
}

// park blocks the calling goroutine (which must be desc's own thread
// goroutine) until it is next handed the permit. Must be called without
// holding k.mu.
func (k *Kernel) park(desc UserDesc) {
	k.mu.Lock()
	t := k.threads[desc]
	k.mu.Unlock()
	if t == nil {
		return
	}
	<-t.permit
}

// runMainLoopPassLocked performs the reaper, stack-watermark probe, heap
// integrity check, writer service, and timeout sweeps, then picks and
// returns the next thread to run. Must be
// called with k.mu held by the caller, immediately after the caller has
// applied whatever thread-state mutation triggered this pass (pushing the
// previously-running thread onto a ready queue or a Blocker, or leaving it
// out of both if it terminated).
func (k *Kernel) runMainLoopPassLocked() UserDesc {
	now := k.cfg.platform.Now()
	k.reaperLocked()
	k.probeWatermarksLocked(now)
	k.checkHeapsLocked(now)
	k.serviceWritersLocked()
	k.sweepTimeoutsLocked(now)
	return k.pickNextLocked()
}

func (k *Kernel) reaperLocked() {
	for desc, t := range k.threads {
		_, mode := t.state.Load()
		if mode != ModeTerminating {
			continue
		}
		t.state.Store(StateSuspended, ModeTerminated)
		if t.alloc == AllocDynamic && t.hasArena {
			k.gc.Defer(deferredFreeEntry{tag: arenaThreads, offset: t.arenaOffset})
		}
		// Delete this thread's join semaphore, releasing every joiner at
		// once: Join is a Take on it, so waking them all with a nil
		// waitResult (not ErrSemaphoreDeleted — this deletion means the
		// join succeeded, not that the object vanished out from under a
		// caller) is what makes Join return OK.
		if s := k.binSems[t.joinSem]; s != nil {
			for {
				d, ok := s.blocker.Pop()
				if !ok {
					break
				}
				if waiter := k.threads[d]; waiter != nil {
					waiter.waitResult = nil
					waiter.validWake = false
					waiter.state.Store(StateReady, ModeRun)
					k.sched.enqueueReady(waiter.priority, d)
				}
			}
			delete(k.binSems, t.joinSem)
		}
		close(t.joinDone)
		delete(k.threads, desc)
		k.cfg.logger.Debug().
			Uint64(`desc`, uint64(desc)).
			Str(`name`, t.name).
			Log(`thread reaped`)
	}
}

// checkHeapsLocked re-validates both arenas' block integrity at most once
// per cfg.heapCheckPeriod, mirroring the original's periodic heapCheck
// pass over its kernel-objects and threads heaps.
func (k *Kernel) checkHeapsLocked(now time.Time) {
	if !k.lastHeapCheck.IsZero() && now.Sub(k.lastHeapCheck) < k.cfg.heapCheckPeriod {
		return
	}
	k.lastHeapCheck = now
	k.kernelArena.CheckIntegrity()
	k.threadsArena.CheckIntegrity()
}

func (k *Kernel) probeWatermarksLocked(now time.Time) {
	for _, t := range k.threads {
		if t.lastProbe.IsZero() || now.Sub(t.lastProbe) >= k.cfg.stackCheckPeriod {
			t.probeWatermark(now)
			if t.maxUsagePercent >= k.cfg.errorStackWatermarkPct {
				k.cfg.onStackOverflow(t.desc, t.name, t.maxUsagePercent)
				code := ErrorCodeThreadsStack
				k.lastError = &FatalError{Code: code, UserDesc: t.desc, Desc: fmt.Sprintf("thread %q stack at %d%%", t.name, t.maxUsagePercent)}
				k.cfg.onError(k.lastError)
			}
		}
	}
}

func (k *Kernel) sweepTimeoutsLocked(now time.Time) {
	for _, s := range k.binSems {
		s.timeoutSweptThisPass = false
	}
	for _, s := range k.cntSems {
		s.timeoutSweptThisPass = false
	}
	for _, t := range k.threads {
		state, _ := t.state.Load()
		if state != StateBlocked || !t.validWake || now.Before(t.wakeDeadline) {
			continue
		}
		t.validWake = false
		t.waitResult = ErrTimeout
		k.unlinkFromAnyBlockerLocked(t.desc)
		t.state.Store(StateReady, ModeRun)
		k.sched.enqueueReady(t.priority, t.desc)
		k.cfg.logger.Debug().
			Uint64(`desc`, uint64(t.desc)).
			Str(`name`, t.name).
			Log(`thread wait timed out`)
	}
}

// serviceWritersLocked calls Service once on every registered Writer, per
// main-loop pass. A Writer error is logged but never escalated to
// cfg.OnError: a stalled file write is not the same class of fault as a
// corrupted heap or an overflowed stack.
func (k *Kernel) serviceWritersLocked() {
	for desc, w := range k.writers {
		if err := w.w.Service(); err != nil {
			k.cfg.logger.Warning().
				Uint64(`desc`, uint64(desc)).
				Err(err).
				Log(`writer service failed`)
		}
	}
}

func (k *Kernel) unlinkFromAnyBlockerLocked(desc UserDesc) {
	for _, s := range k.binSems {
		s.blocker.Remove(desc)
	}
	for _, s := range k.cntSems {
		s.blocker.Remove(desc)
	}
}

// --- harness / "Main" / ISR-style API: never parks the caller ---

// CreateThread registers a new thread in READY_TO_RUN mode. It does not
// schedule it to run; call RunThread to do that.
func (k *Kernel) CreateThread(name string, priority int, alloc AllocMode, stackSize int, entry Entry) (UserDesc, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if len(k.threads) >= k.cfg.maxThreads {
		return DescWrong, ErrRegistryFull
	}
	if priority < 0 || priority >= k.cfg.priorityLevels {
		return DescWrong, fmt.Errorf("fos: %w: priority out of range", ErrInvalidArg)
	}
	desc := k.descAlloc.Alloc()
	t := newThread(desc, name, priority, alloc, stackSize, entry)
	if alloc == AllocDynamic {
		if off, ok := k.threadsArena.Alloc(stackSize); ok {
			t.arenaOffset, t.hasArena = off, true
		}
	}
	// Every thread gets its own binary semaphore, Locked for its whole
	// life, that Join takes and the reaper deletes instead of giving. It
	// is bookkeeping intrinsic to the thread, not a user-registered
	// object, so it's inserted directly rather than going through
	// CreateSemBinary's maxBinarySemaphores capacity check.
	joinDesc := k.descAlloc.Alloc()
	k.binSems[joinDesc] = newBinarySemaphore(joinDesc, true, k.cfg.maxThreads)
	t.joinSem = joinDesc
	k.threads[desc] = t
	if len(k.threads) > k.threadMaxInd {
		k.threadMaxInd = len(k.threads)
	}
	k.cfg.logger.Debug().
		Uint64(`desc`, uint64(desc)).
		Str(`name`, name).
		Int(`priority`, priority).
		Log(`thread created`)
	return desc, nil
}

// RunThread transitions a READY_TO_RUN thread to RUN, spawning its
// goroutine and making it schedulable.
func (k *Kernel) RunThread(desc UserDesc) error {
	k.mu.Lock()
	t := k.threads[desc]
	if t == nil {
		k.mu.Unlock()
		return ErrUnknownDescriptor
	}
	_, mode := t.state.Load()
	if mode != ModeReadyToRun {
		k.mu.Unlock()
		return ErrThreadNotReady
	}
	t.state.Store(StateReady, ModeRun)
	if desc != k.idleDesc {
		k.sched.enqueueReady(t.priority, desc)
	}
	handle := &ThreadHandle{k: k, desc: desc}
	go func() {
		<-t.permit
		t.entry(handle)
		handle.Terminate(0)
	}()
	next := k.pickNextLocked()
	k.mu.Unlock()
	k.wake(next)
	return nil
}

// TerminateThreadByDesc forces termination of any thread by descriptor,
// from outside thread context.
func (k *Kernel) TerminateThreadByDesc(desc UserDesc) error {
	k.mu.Lock()
	t := k.threads[desc]
	if t == nil {
		k.mu.Unlock()
		return ErrUnknownDescriptor
	}
	state, _ := t.state.Load()
	if state == StateReady {
		k.sched.removeReady(t.priority, desc)
	} else if state == StateBlocked {
		k.unlinkFromAnyBlockerLocked(desc)
	}
	t.state.Store(StateSuspended, ModeTerminating)
	wasRunning := desc == k.runningDesc
	next := k.runMainLoopPassLocked()
	k.mu.Unlock()
	k.cfg.logger.Info().
		Uint64(`desc`, uint64(desc)).
		Str(`name`, t.name).
		Log(`thread terminated from outside thread context`)
	if wasRunning {
		k.wake(next)
	}
	return nil
}

// CreateSemBinary registers a binary semaphore.
func (k *Kernel) CreateSemBinary(initiallyLocked bool) (UserDesc, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if len(k.binSems) >= k.cfg.maxBinarySemaphores {
		return DescWrong, ErrRegistryFull
	}
	desc := k.descAlloc.Alloc()
	k.binSems[desc] = newBinarySemaphore(desc, initiallyLocked, k.cfg.maxThreads)
	k.cfg.logger.Debug().Uint64(`desc`, uint64(desc)).Log(`binary semaphore created`)
	return desc, nil
}

// SemBinaryGive releases a binary semaphore from outside thread context
// (e.g. from an ISR). Never blocks.
func (k *Kernel) SemBinaryGive(desc UserDesc) error {
	k.mu.Lock()
	s := k.binSems[desc]
	if s == nil {
		k.mu.Unlock()
		return ErrUnknownDescriptor
	}
	woken, ok := s.give()
	if !ok {
		k.mu.Unlock()
		return nil
	}
	k.readyThreadLocked(woken)
	next := k.pickNextLocked()
	k.mu.Unlock()
	k.wake(next)
	return nil
}

func (k *Kernel) SemBinaryDelete(desc UserDesc) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	s := k.binSems[desc]
	if s == nil {
		return ErrUnknownDescriptor
	}
	for {
		d, ok := s.blocker.Pop()
		if !ok {
			break
		}
		t := k.threads[d]
		if t == nil {
			continue
		}
		t.waitResult = ErrSemaphoreDeleted
		t.validWake = false
		t.state.Store(StateReady, ModeRun)
		k.sched.enqueueReady(t.priority, d)
		k.cfg.logger.Warning().
			Uint64(`desc`, uint64(desc)).
			Uint64(`waiter`, uint64(d)).
			Log(`binary semaphore deleted out from under a blocked thread`)
	}
	delete(k.binSems, desc)
	return nil
}

// CreateSemCounting registers a counting semaphore.
func (k *Kernel) CreateSemCounting(initialCount, maxCount int) (UserDesc, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if len(k.cntSems) >= k.cfg.maxCountingSemaphores {
		return DescWrong, ErrRegistryFull
	}
	desc := k.descAlloc.Alloc()
	k.cntSems[desc] = newCountingSemaphore(desc, initialCount, maxCount, k.cfg.maxThreads)
	k.cfg.logger.Debug().
		Uint64(`desc`, uint64(desc)).
		Int(`initial`, initialCount).
		Int(`max`, maxCount).
		Log(`counting semaphore created`)
	return desc, nil
}

func (k *Kernel) SemCountingGive(desc UserDesc) error {
	k.mu.Lock()
	s := k.cntSems[desc]
	if s == nil {
		k.mu.Unlock()
		return ErrUnknownDescriptor
	}
	woken, ok := s.give()
	if !ok {
		k.mu.Unlock()
		return nil
	}
	k.readyThreadLocked(woken)
	next := k.pickNextLocked()
	k.mu.Unlock()
	k.wake(next)
	return nil
}

func (k *Kernel) SemCountingDelete(desc UserDesc) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	s := k.cntSems[desc]
	if s == nil {
		return ErrUnknownDescriptor
	}
	for {
		d, ok := s.blocker.Pop()
		if !ok {
			break
		}
		t := k.threads[d]
		if t == nil {
			continue
		}
		t.waitResult = ErrSemaphoreDeleted
		t.validWake = false
		t.state.Store(StateReady, ModeRun)
		k.sched.enqueueReady(t.priority, d)
		k.cfg.logger.Warning().
			Uint64(`desc`, uint64(desc)).
			Uint64(`waiter`, uint64(d)).
			Log(`counting semaphore deleted out from under a blocked thread`)
	}
	delete(k.cntSems, desc)
	return nil
}

// CreateQueue registers a Queue32, optionally backed by an internal
// counting semaphore (withSem) to give it Ask/Read blocking semantics.
// timeout configures that semaphore's auto-release deadline (<=0 disables
// it); ignored when withSem is false.
func (k *Kernel) CreateQueue(capacity int, withSem bool, timeout time.Duration) (UserDesc, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if len(k.queues) >= k.cfg.maxQueues {
		return DescWrong, ErrRegistryFull
	}
	desc := k.descAlloc.Alloc()
	var sem *CountingSemaphore
	if withSem {
		sem = newCountingSemaphore(desc, 0, capacity, k.cfg.maxThreads)
		sem.timeout = timeout
	}
	k.queues[desc] = newQueue32(desc, capacity, sem)
	k.cfg.logger.Debug().
		Uint64(`desc`, uint64(desc)).
		Int(`capacity`, capacity).
		Log(`queue created`)
	return desc, nil
}

// QueueWrite writes a value from outside thread context, waking a blocked
// reader if the queue has an associated semaphore.
func (k *Kernel) QueueWrite(desc UserDesc, v uint32) error {
	k.mu.Lock()
	q := k.queues[desc]
	if q == nil {
		k.mu.Unlock()
		return ErrUnknownDescriptor
	}
	if !q.Write(v) {
		k.mu.Unlock()
		return fmt.Errorf("fos: queue full")
	}
	if q.sem == nil {
		k.mu.Unlock()
		return nil
	}
	woken, ok := q.sem.give()
	if !ok {
		k.mu.Unlock()
		return nil
	}
	k.readyThreadLocked(woken)
	next := k.pickNextLocked()
	k.mu.Unlock()
	k.wake(next)
	return nil
}

func (k *Kernel) QueueDelete(desc UserDesc) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if _, ok := k.queues[desc]; !ok {
		return ErrUnknownDescriptor
	}
	delete(k.queues, desc)
	return nil
}

// CreateFWriter registers an external Writer collaborator, serviced once
// per main-loop pass.
func (k *Kernel) CreateFWriter(w Writer) (UserDesc, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if len(k.writers) >= k.cfg.maxWriters {
		return DescWrong, ErrRegistryFull
	}
	desc := k.descAlloc.Alloc()
	k.writers[desc] = &writerEntry{desc: desc, w: w}
	k.cfg.logger.Debug().Uint64(`desc`, uint64(desc)).Log(`writer registered`)
	return desc, nil
}

// IsThreadAlive reports whether desc still identifies a live thread (it has
// been created and has not yet been reaped).
func (k *Kernel) IsThreadAlive(desc UserDesc) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	_, ok := k.threads[desc]
	return ok
}

// Join blocks the calling goroutine — not a managed thread, which should
// use ThreadHandle.Join instead — until desc terminates, or returns
// immediately if it already has.
func (k *Kernel) Join(desc UserDesc) error {
	k.mu.Lock()
	t := k.threads[desc]
	if t == nil {
		k.mu.Unlock()
		return nil
	}
	done := t.joinDone
	k.mu.Unlock()
	<-done
	return nil
}

// FileMount mounts dev as the kernel's backing block device for registered
// Writers. Only the registration contract is implemented; the
// FAT-compatible filesystem that would sit above dev is out of scope.
func (k *Kernel) FileMount(dev BlockDevice) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if err := dev.Mount(); err != nil {
		return err
	}
	k.mountedDevice = dev
	k.cfg.logger.Debug().Log(`block device mounted`)
	return nil
}

// FileUnmount unmounts the currently mounted block device.
func (k *Kernel) FileUnmount() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.mountedDevice == nil {
		return fmt.Errorf("fos: %w: no device mounted", ErrInvalidArg)
	}
	if err := k.mountedDevice.Unmount(); err != nil {
		return err
	}
	k.mountedDevice = nil
	k.cfg.logger.Debug().Log(`block device unmounted`)
	return nil
}

// Yield is a harness convenience: it runs a scheduling pass without
// changing any thread's own readiness, useful in tests that drive the
// kernel entirely from "Main" between system calls.
func (k *Kernel) Yield() {
	k.mu.Lock()
	next := k.runMainLoopPassLocked()
	k.mu.Unlock()
	k.wake(next)
}

// doSyscall is the generic self-service system-call shape used by every
// ThreadHandle method: apply the call's state mutation while holding the
// lock, run the main-loop pass, release the lock, then hand off the permit
// if scheduling chose someone other than the caller and park the caller
// until it is handed back. caller is DescWrong for calls made from outside
// any managed thread (which must use the Kernel-level methods instead, none
// of which call doSyscall).
func (k *Kernel) doSyscall(caller UserDesc, call CallID, mutate func()) {
	k.mu.Lock()
	mutate()
	next := k.runMainLoopPassLocked()
	k.mu.Unlock()
	k.cfg.logger.Debug().
		Uint64(`caller`, uint64(caller)).
		Str(`call`, call.String()).
		Log(`syscall`)
	if next != caller {
		k.wake(next)
		k.park(caller)
	}
}

// readyThreadLocked marks desc Ready and enqueues it on its priority level.
// Must be called with k.mu held.
func (k *Kernel) readyThreadLocked(desc UserDesc) {
	t := k.threads[desc]
	if t == nil {
		return
	}
	t.validWake = false
	t.waitResult = nil
	t.state.Store(StateReady, ModeRun)
	k.sched.enqueueReady(t.priority, desc)
}
