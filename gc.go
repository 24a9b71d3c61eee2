package fos

import (
	"context"
	"time"

	"github.com/joeycumines/go-microbatch"
)

// deferredFreeEntry is one entry on the deferred-free list: a block that
// must be released back to its arena, but not from within the thread that
// owns it (a thread must never free its own stack while still running on
// it).
type deferredFreeEntry struct {
	tag    arenaTag
	offset int
}

// garbageCollector accumulates deferredFreeEntry values as threads
// terminate and drains them in small batches, grounded directly on the
// teacher pack's batching primitive: the deferred-free list is exactly a
// batcher whose processor frees each entry against its arena.
type garbageCollector struct {
	batcher *microbatch.Batcher[deferredFreeEntry]
}

func newGarbageCollector(batchSize int, flushEvery time.Duration, kernelArena, threadsArena *arena) *garbageCollector {
	processor := func(_ context.Context, jobs []deferredFreeEntry) error {
		for _, j := range jobs {
			switch j.tag {
			case arenaKernel:
				kernelArena.Free(j.offset)
			case arenaThreads:
				threadsArena.Free(j.offset)
			}
		}
		return nil
	}
	b := microbatch.NewBatcher(&microbatch.BatcherConfig{
		MaxSize:       batchSize,
		FlushInterval: flushEvery,
	}, processor)
	return &garbageCollector{batcher: b}
}

// Defer schedules entry for freeing on the batcher's next flush. It does
// not wait for completion: the caller (the reaper, running inside the
// kernel lock) must not block on the free actually happening before the
// next main-loop pass.
func (g *garbageCollector) Defer(entry deferredFreeEntry) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_, _ = g.batcher.Submit(ctx, entry)
	}()
}

func (g *garbageCollector) Close() error {
	return g.batcher.Close()
}
