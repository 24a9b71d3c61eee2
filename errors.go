package fos

import "errors"

// Sentinel errors returned by the kernel's public API. Callers compare
// against these with errors.Is; the numeric ErrorCode values are reserved
// for the latched fatal-error path (LastError) and the integrator OnError
// hook, not for ordinary call returns.
var (
	ErrInvalidArg        = errors.New("fos: invalid argument")
	ErrRegistryFull      = errors.New("fos: registry at capacity")
	ErrUnknownDescriptor = errors.New("fos: unknown user descriptor")
	ErrWrongKind         = errors.New("fos: descriptor refers to the wrong kind of object")
	ErrTimeout           = errors.New("fos: operation timed out")
	ErrWouldBlock        = errors.New("fos: would block and blocking was not requested")
	ErrSemaphoreDeleted  = errors.New("fos: semaphore deleted while thread was blocked on it")
	ErrThreadNotReady    = errors.New("fos: thread is not in READY_TO_RUN mode")
	ErrAllocFailed       = errors.New("fos: arena allocation failed")
	ErrShuttingDown      = errors.New("fos: kernel is shutting down")
)

// ErrorCode identifies which integrity domain raised a fatal kernel error.
// These mirror the weak ErrorSet callback's code argument in the original
// system: a latched, board-support-visible classification rather than a Go
// error value (the fatal path, by design, does not return to its caller).
type ErrorCode int

const (
	ErrorCodeNone ErrorCode = iota
	ErrorCodeKernelHeap
	ErrorCodeThreadsHeap
	ErrorCodeThreadsStack
)

func (c ErrorCode) String() string {
	switch c {
	case ErrorCodeKernelHeap:
		return "kernel-heap-corrupt"
	case ErrorCodeThreadsHeap:
		return "threads-heap-corrupt"
	case ErrorCodeThreadsStack:
		return "thread-stack-overflow"
	default:
		return "none"
	}
}

// FatalError is latched by Kernel.LastError and passed to Config.OnError.
type FatalError struct {
	Code     ErrorCode
	UserDesc UserDesc
	Desc     string
}

func (e *FatalError) Error() string {
	return "fos: fatal: " + e.Code.String() + ": " + e.Desc
}
