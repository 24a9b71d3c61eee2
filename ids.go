package fos

// UserDesc is the handle type returned to callers for every registered
// kernel object (thread, semaphore, queue, writer). 0 and 1 are reserved
// sentinels; ordinary descriptors start at 2.
type UserDesc uint32

const (
	// DescWrong marks an unused Blocker slot and an invalid/absent
	// descriptor.
	DescWrong UserDesc = 0
	// DescKernel identifies the kernel itself as a caller (used where the
	// API distinguishes a kernel-internal caller from a user thread).
	DescKernel UserDesc = 1
	descFirst          = 2
)

// descAllocator hands out monotonically increasing UserDesc values, skipping
// the two reserved sentinels, and wrapping back to descFirst past
// math.MaxUint32. Wrap-around colliding with a still-live descriptor is out
// of scope: it requires 2^32 simultaneously live objects, already excluded
// by every registry's fixed capacity (see Open Question decisions in
// DESIGN.md).
type descAllocator struct {
	next UserDesc
}

func newDescAllocator() *descAllocator {
	return &descAllocator{next: descFirst}
}

func (a *descAllocator) Alloc() UserDesc {
	d := a.next
	if a.next == ^UserDesc(0) { // MaxUint32: next increment would wrap
		a.next = descFirst
	} else {
		a.next++
	}
	return d
}
