package fos

// CallID enumerates the kernel's system calls, preserved from the original
// gateway's numbered dispatch table. Here each call is a direct Go method
// rather than a table-indexed function pointer, but the identifiers are
// kept as a typed enum so the kernel can still log and trace "which call"
// uniformly, and so HardFaultCallID keeps its reserved meaning: a call id
// that must never be dispatched, used to flag a corrupted or unexpected
// request.
type CallID uint16

const (
	CallYield CallID = iota + 1
	CallSleep
	CallThreadCreate
	CallThreadRun
	CallThreadTerminate
	CallThreadTerminateByDesc
	CallSemBinaryCreate
	CallSemBinaryTake
	CallSemBinaryGive
	CallSemBinaryDelete
	CallSemBinarySetTimeout
	CallSemCountingCreate
	CallSemCountingTake
	CallSemCountingGive
	CallSemCountingDelete
	CallSemCountingSetTimeout
	CallQueueCreate
	CallQueueWrite
	CallQueueRead
	CallQueueAsk
	CallQueueDelete
	CallGetThreadSem
	CallErrorSet
	CallFileMount
	CallFileUnmount
	CallFWriterCreate
)

// HardFaultCallID is reserved: no ThreadHandle or Kernel method passes it,
// and String reports it as HARD_FAULT (any other unlisted id reports
// UNKNOWN).
const HardFaultCallID CallID = 0xFFFF

func (c CallID) String() string {
	switch c {
	case CallYield:
		return "YIELD"
	case CallSleep:
		return "SLEEP"
	case CallThreadCreate:
		return "THREAD_CREATE"
	case CallThreadRun:
		return "THREAD_RUN"
	case CallThreadTerminate:
		return "THREAD_TERMINATE"
	case CallThreadTerminateByDesc:
		return "THREAD_TERMINATE_BY_DESC"
	case CallSemBinaryCreate:
		return "SEMB_CREATE"
	case CallSemBinaryTake:
		return "SEMB_TAKE"
	case CallSemBinaryGive:
		return "SEMB_GIVE"
	case CallSemBinaryDelete:
		return "SEMB_DELETE"
	case CallSemBinarySetTimeout:
		return "SEMB_SET_TIMEOUT"
	case CallSemCountingCreate:
		return "SEMC_CREATE"
	case CallSemCountingTake:
		return "SEMC_TAKE"
	case CallSemCountingGive:
		return "SEMC_GIVE"
	case CallSemCountingDelete:
		return "SEMC_DELETE"
	case CallSemCountingSetTimeout:
		return "SEMC_SET_TIMEOUT"
	case CallQueueCreate:
		return "QUEUE_CREATE"
	case CallQueueWrite:
		return "QUEUE_WRITE"
	case CallQueueRead:
		return "QUEUE_READ"
	case CallQueueAsk:
		return "QUEUE_ASK"
	case CallQueueDelete:
		return "QUEUE_DELETE"
	case CallGetThreadSem:
		return "GET_THREAD_SEM"
	case CallErrorSet:
		return "ERROR_SET"
	case CallFileMount:
		return "FILE_MOUNT"
	case CallFileUnmount:
		return "FILE_UNMOUNT"
	case CallFWriterCreate:
		return "FWRITER_CREATE"
	case HardFaultCallID:
		return "HARD_FAULT"
	default:
		return "UNKNOWN"
	}
}
