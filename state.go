package fos

import "sync/atomic"

// ThreadState is the scheduling state of a Thread. Transitions are always
// performed while holding Kernel.mu, but the state is stored atomically so
// that diagnostic readers (stats snapshots, the debug REPL) can observe it
// without contending for the kernel lock.
type ThreadState int32

const (
	StateSuspended ThreadState = iota
	StateBlocked
	StateReady
	StateRunning
)

func (s ThreadState) String() string {
	switch s {
	case StateSuspended:
		return "SUSPENDED"
	case StateBlocked:
		return "BLOCKED"
	case StateReady:
		return "READY"
	case StateRunning:
		return "RUNNING"
	default:
		return "UNKNOWN"
	}
}

// ThreadMode is the lifecycle stage of a Thread, independent of its
// scheduling ThreadState (a READY_TO_RUN thread is never scheduled; a
// TERMINATING thread is reaped on the next main-loop pass).
type ThreadMode int32

const (
	ModeNoInit ThreadMode = iota
	ModeReadyToRun
	ModeRun
	ModeTerminating
	ModeTerminated
)

func (m ThreadMode) String() string {
	switch m {
	case ModeNoInit:
		return "NO_INIT"
	case ModeReadyToRun:
		return "READY_TO_RUN"
	case ModeRun:
		return "RUN"
	case ModeTerminating:
		return "TERMINATING"
	case ModeTerminated:
		return "TERMINATED"
	default:
		return "UNKNOWN"
	}
}

// fastState is a lock-free holder for a (ThreadState, ThreadMode) pair,
// packed into a single atomic word so readers never tear. Grounded on the
// teacher's FastState, simplified: this module's mutations are already
// serialized by Kernel.mu, so only Load/Store are needed, not a CAS retry
// loop.
type fastState struct {
	_ [56]byte // pad to its own cache line; the kernel lock is the real serializer, this just avoids false sharing with neighbouring Thread fields during concurrent reads
	v atomic.Uint64
}

func packState(s ThreadState, m ThreadMode) uint64 {
	return uint64(uint32(s))<<32 | uint64(uint32(m))
}

func unpackState(v uint64) (ThreadState, ThreadMode) {
	return ThreadState(uint32(v >> 32)), ThreadMode(uint32(v))
}

func (f *fastState) Store(s ThreadState, m ThreadMode) {
	f.v.Store(packState(s, m))
}

func (f *fastState) Load() (ThreadState, ThreadMode) {
	return unpackState(f.v.Load())
}
