package fos

// scheduler holds one fixed-capacity ready FIFO per priority level. Level 0
// is the highest priority. A thread appears in exactly one level's queue
// while ThreadState is Ready, and in none while Running, Blocked,
// Suspended, Terminating or Terminated — the "currently running" thread is
// never present in any ready queue, which is what makes popping the head of
// the highest non-empty level always correct.
type scheduler struct {
	levels []*Blocker // one Blocker (reused as a plain FIFO) per priority level
}

func newScheduler(priorityLevels, maxThreads int) *scheduler {
	s := &scheduler{levels: make([]*Blocker, priorityLevels)}
	for i := range s.levels {
		s.levels[i] = newBlocker(maxThreads)
	}
	return s
}

func (s *scheduler) enqueueReady(priority int, desc UserDesc) {
	s.levels[priority].Push(desc)
}

// pickNext pops and returns the head of the highest-priority non-empty
// level. Returns (DescWrong, false) if every level is empty — the idle
// thread is never a member of these queues (see Kernel.pickNextLocked),
// so an empty result here is the normal "nothing real is ready" case, not
// an error.
func (s *scheduler) pickNext() (UserDesc, bool) {
	for _, lvl := range s.levels {
		if d, ok := lvl.Pop(); ok {
			return d, true
		}
	}
	return DescWrong, false
}

// readyCountAbove reports how many threads are ready at a strictly higher
// priority (lower level index) than priority.
func (s *scheduler) readyCountAbove(priority int) int {
	n := 0
	for p := 0; p < priority && p < len(s.levels); p++ {
		n += s.levels[p].Len()
	}
	return n
}

func (s *scheduler) readyCountAt(priority int) int {
	return s.levels[priority].Len()
}

// removeReady unlinks desc from its priority level's ready queue, used when
// a ready-but-not-yet-running thread is terminated directly.
func (s *scheduler) removeReady(priority int, desc UserDesc) bool {
	return s.levels[priority].Remove(desc)
}
