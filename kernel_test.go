package fos

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKernel(t *testing.T) *Kernel {
	t.Helper()
	k, err := NewKernel(
		WithPlatform(NewSystemPlatform()),
		WithMaxThreads(8),
		WithPriorityLevels(4),
		WithSliceDuration(5*time.Millisecond),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = k.Boot(ctx) }()
	t.Cleanup(func() {
		cancel()
		k.Shutdown()
	})
	return k
}

// Scenario: two threads at the same priority each Yield repeatedly; both
// must eventually make progress (round-robin fairness).
func TestKernelRoundRobinsBetweenEqualPriorityThreads(t *testing.T) {
	k := newTestKernel(t)

	const iterations = 20
	doneA := make(chan struct{})
	doneB := make(chan struct{})
	var seenA, seenB int

	descA, err := k.CreateThread("a", 1, AllocStatic, 512, func(self *ThreadHandle) {
		for i := 0; i < iterations; i++ {
			seenA++
			self.Yield()
		}
		close(doneA)
	})
	require.NoError(t, err)
	descB, err := k.CreateThread("b", 1, AllocStatic, 512, func(self *ThreadHandle) {
		for i := 0; i < iterations; i++ {
			seenB++
			self.Yield()
		}
		close(doneB)
	})
	require.NoError(t, err)

	require.NoError(t, k.RunThread(descA))
	require.NoError(t, k.RunThread(descB))

	select {
	case <-doneA:
	case <-time.After(2 * time.Second):
		t.Fatal("thread a never completed")
	}
	select {
	case <-doneB:
	case <-time.After(2 * time.Second):
		t.Fatal("thread b never completed")
	}
	assert.Equal(t, iterations, seenA)
	assert.Equal(t, iterations, seenB)
}

// A thread blocks on a binary semaphore; the harness gives it from outside
// thread context and the thread observes the release.
func TestKernelBinarySemaphoreHandoffFromHarness(t *testing.T) {
	k := newTestKernel(t)

	semDesc, err := k.CreateSemBinary(true)
	require.NoError(t, err)

	acquired := make(chan struct{})
	threadDesc, err := k.CreateThread("waiter", 0, AllocStatic, 512, func(self *ThreadHandle) {
		err := self.TakeBinary(semDesc, Block)
		if err == nil {
			close(acquired)
		}
	})
	require.NoError(t, err)
	require.NoError(t, k.RunThread(threadDesc))

	select {
	case <-acquired:
		t.Fatal("should still be blocked, semaphore was never given")
	case <-time.After(30 * time.Millisecond):
	}

	require.NoError(t, k.SemBinaryGive(semDesc))

	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("thread never observed the semaphore being given")
	}
}

// A thread blocked with a timeout must wake with ErrTimeout if nobody gives
// the semaphore in time.
func TestKernelBinarySemaphoreTimeout(t *testing.T) {
	k := newTestKernel(t)

	semDesc, err := k.CreateSemBinary(true)
	require.NoError(t, err)

	result := make(chan error, 1)
	threadDesc, err := k.CreateThread("waiter", 0, AllocStatic, 512, func(self *ThreadHandle) {
		_ = self.SetBinaryTimeout(semDesc, 20*time.Millisecond)
		result <- self.TakeBinary(semDesc, Block)
	})
	require.NoError(t, err)
	require.NoError(t, k.RunThread(threadDesc))

	select {
	case err := <-result:
		assert.ErrorIs(t, err, ErrTimeout)
	case <-time.After(2 * time.Second):
		t.Fatal("thread never timed out")
	}
}

// Deleting a semaphore while a thread is blocked on it must wake that
// thread with a distinguishable ErrSemaphoreDeleted, per DESIGN.md's
// resolution of Open Question 4.
func TestKernelSemaphoreDeleteWakesBlockedThreadDistinctly(t *testing.T) {
	k := newTestKernel(t)

	semDesc, err := k.CreateSemBinary(true)
	require.NoError(t, err)

	result := make(chan error, 1)
	threadDesc, err := k.CreateThread("waiter", 0, AllocStatic, 512, func(self *ThreadHandle) {
		result <- self.TakeBinary(semDesc, Block)
	})
	require.NoError(t, err)
	require.NoError(t, k.RunThread(threadDesc))

	time.Sleep(10 * time.Millisecond) // let it actually block
	require.NoError(t, k.SemBinaryDelete(semDesc))

	select {
	case err := <-result:
		assert.ErrorIs(t, err, ErrSemaphoreDeleted)
	case <-time.After(2 * time.Second):
		t.Fatal("thread was never woken by the delete")
	}
}

// Polling a locked binary semaphore must return ErrWouldBlock immediately
// rather than waiting.
func TestKernelBinarySemaphorePollDoesNotBlock(t *testing.T) {
	k := newTestKernel(t)
	semDesc, err := k.CreateSemBinary(true)
	require.NoError(t, err)

	result := make(chan error, 1)
	threadDesc, err := k.CreateThread("poller", 0, AllocStatic, 512, func(self *ThreadHandle) {
		result <- self.TakeBinary(semDesc, Poll)
	})
	require.NoError(t, err)
	require.NoError(t, k.RunThread(threadDesc))

	select {
	case err := <-result:
		assert.ErrorIs(t, err, ErrWouldBlock)
	case <-time.After(2 * time.Second):
		t.Fatal("poll should have returned immediately")
	}
}

// A queue paired with a counting semaphore gives Ask/Read blocking
// semantics: Ask waits for an element, Read pops it.
func TestKernelQueueBlockingReadUnblocksOnWrite(t *testing.T) {
	k := newTestKernel(t)
	qDesc, err := k.CreateQueue(4, true, 0)
	require.NoError(t, err)

	result := make(chan uint32, 1)
	threadDesc, err := k.CreateThread("reader", 0, AllocStatic, 512, func(self *ThreadHandle) {
		if err := self.Ask(qDesc, Block); err != nil {
			return
		}
		v, err := self.Read(qDesc)
		if err == nil {
			result <- v
		}
	})
	require.NoError(t, err)
	require.NoError(t, k.RunThread(threadDesc))

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, k.QueueWrite(qDesc, 77))

	select {
	case v := <-result:
		assert.Equal(t, uint32(77), v)
	case <-time.After(2 * time.Second):
		t.Fatal("reader never woke up")
	}
}

// A thread that returns normally from its entry terminates cleanly and is
// reaped.
func TestKernelThreadReapedAfterNaturalReturn(t *testing.T) {
	k := newTestKernel(t)
	finished := make(chan struct{})
	desc, err := k.CreateThread("short-lived", 0, AllocStatic, 512, func(self *ThreadHandle) {
		close(finished)
	})
	require.NoError(t, err)
	require.NoError(t, k.RunThread(desc))

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("thread body never ran")
	}

	require.Eventually(t, func() bool {
		k.mu.Lock()
		defer k.mu.Unlock()
		_, stillPresent := k.threads[desc]
		return !stillPresent
	}, 2*time.Second, 5*time.Millisecond, "reaper should remove the terminated thread")
}

// A registered Writer must actually be serviced by the main loop, not just
// bookkept.
func TestKernelServicesRegisteredWriter(t *testing.T) {
	k := newTestKernel(t)
	calls := make(chan struct{}, 8)
	_, err := k.CreateFWriter(writerFunc(func() error {
		select {
		case calls <- struct{}{}:
		default:
		}
		return nil
	}))
	require.NoError(t, err)

	select {
	case <-calls:
	case <-time.After(2 * time.Second):
		t.Fatal("writer was never serviced by a main-loop pass")
	}
}

// ThreadStats accumulates CPU time as a thread actually runs.
func TestKernelThreadStatsAccumulatesRunTime(t *testing.T) {
	k := newTestKernel(t)
	ranFive := make(chan struct{})
	proceed := make(chan struct{})
	desc, err := k.CreateThread("busy", 0, AllocStatic, 512, func(self *ThreadHandle) {
		for i := 0; i < 5; i++ {
			self.Yield()
		}
		close(ranFive)
		<-proceed
	})
	require.NoError(t, err)
	require.NoError(t, k.RunThread(desc))

	select {
	case <-ranFive:
	case <-time.After(2 * time.Second):
		t.Fatal("thread never ran its slices")
	}

	stats, err := k.ThreadStats(desc)
	require.NoError(t, err)
	assert.Greater(t, stats.RunTimeUS, uint64(0), "run time should have accumulated across the yielded slices")
	close(proceed)
}

// Join blocks until the target thread terminates, and IsThreadAlive
// reflects reaping afterward.
func TestKernelJoinReturnsAfterThreadTerminates(t *testing.T) {
	k := newTestKernel(t)
	desc, err := k.CreateThread("short-lived", 0, AllocStatic, 512, func(self *ThreadHandle) {
		self.Sleep(20 * time.Millisecond)
	})
	require.NoError(t, err)
	require.NoError(t, k.RunThread(desc))

	joined := make(chan error, 1)
	joinerDesc, err := k.CreateThread("joiner", 0, AllocStatic, 512, func(self *ThreadHandle) {
		joined <- self.Join(desc)
	})
	require.NoError(t, err)
	require.NoError(t, k.RunThread(joinerDesc))

	select {
	case err := <-joined:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("joiner never woke up")
	}

	assert.False(t, k.IsThreadAlive(desc), "target should be reaped by the time Join returns")
}

// Joining an already-reaped thread returns immediately.
func TestKernelJoinOnAlreadyTerminatedThreadReturnsImmediately(t *testing.T) {
	k := newTestKernel(t)
	finished := make(chan struct{})
	desc, err := k.CreateThread("short-lived", 0, AllocStatic, 512, func(self *ThreadHandle) {
		close(finished)
	})
	require.NoError(t, err)
	require.NoError(t, k.RunThread(desc))

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("thread body never ran")
	}
	require.Eventually(t, func() bool {
		return !k.IsThreadAlive(desc)
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, k.Join(desc))
}

type writerFunc func() error

func (f writerFunc) Service() error { return f() }
