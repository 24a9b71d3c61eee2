package fos

import (
	"time"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Default configuration constants, named after the equivalent compile-time
// constants of the original kernel's configuration header.
const (
	DefaultMaxThreads               = 32
	DefaultPriorityLevels           = 8
	DefaultSliceDuration            = 10 * time.Millisecond
	DefaultKernelHeapSize           = 8 * 1024
	DefaultThreadsHeapSize          = 64 * 1024
	DefaultThreadStackSize          = 1024
	DefaultErrorStackWatermarkPct   = 90
	DefaultStackCheckPeriod         = 100 * time.Millisecond
	DefaultHeapCheckPeriod          = 100 * time.Millisecond
	DefaultMaxBinarySemaphores      = 32
	DefaultMaxCountingSemaphores    = 32
	DefaultMaxQueues                = 16
	DefaultMaxWriters               = 4
	DefaultDeferredFreeBatchSize    = 16
	DefaultDeferredFreeFlushPeriod  = 50 * time.Millisecond
)

// config holds resolved, immutable-after-construction kernel settings. It
// is populated by applying Option values over the defaults above, mirroring
// eventloop's loopOptions/LoopOption/resolveLoopOptions pattern.
type config struct {
	maxThreads             int
	priorityLevels         int
	sliceDuration          time.Duration
	kernelHeapSize         int
	threadsHeapSize        int
	defaultThreadStackSize int
	errorStackWatermarkPct int
	stackCheckPeriod       time.Duration
	heapCheckPeriod        time.Duration
	maxBinarySemaphores    int
	maxCountingSemaphores  int
	maxQueues              int
	maxWriters             int
	deferredFreeBatchSize  int
	deferredFreeFlushEvery time.Duration

	platform        Platform
	logger          *logiface.Logger[*stumpy.Event]
	onError         func(*FatalError)
	onStackOverflow func(desc UserDesc, name string, percent int)
}

// Option configures a Kernel at construction time.
type Option interface{ apply(*config) }

type optionFunc func(*config)

func (f optionFunc) apply(c *config) { f(c) }

func resolveConfig(opts []Option) *config {
	c := &config{
		maxThreads:             DefaultMaxThreads,
		priorityLevels:         DefaultPriorityLevels,
		sliceDuration:          DefaultSliceDuration,
		kernelHeapSize:         DefaultKernelHeapSize,
		threadsHeapSize:        DefaultThreadsHeapSize,
		defaultThreadStackSize: DefaultThreadStackSize,
		errorStackWatermarkPct: DefaultErrorStackWatermarkPct,
		stackCheckPeriod:       DefaultStackCheckPeriod,
		heapCheckPeriod:        DefaultHeapCheckPeriod,
		maxBinarySemaphores:    DefaultMaxBinarySemaphores,
		maxCountingSemaphores:  DefaultMaxCountingSemaphores,
		maxQueues:              DefaultMaxQueues,
		maxWriters:             DefaultMaxWriters,
		deferredFreeBatchSize:  DefaultDeferredFreeBatchSize,
		deferredFreeFlushEvery: DefaultDeferredFreeFlushPeriod,
	}
	for _, o := range opts {
		o.apply(c)
	}
	if c.logger == nil {
		c.logger = discardLogger()
	}
	if c.onError == nil {
		c.onError = func(e *FatalError) {
			c.logger.Emerg().Err(e).Str(`code`, e.Code.String()).Log(`unrecoverable kernel error`)
			select {} // the original halts on a guaranteed-non-returning path; block forever rather than return into corrupted state.
		}
	}
	if c.onStackOverflow == nil {
		c.onStackOverflow = func(desc UserDesc, name string, percent int) {
			c.logger.Warning().
				Uint64(`desc`, uint64(desc)).
				Str(`name`, name).
				Int(`percent`, percent).
				Log(`stack watermark warning`)
		}
	}
	return c
}

func WithMaxThreads(n int) Option {
	return optionFunc(func(c *config) { c.maxThreads = n })
}

func WithPriorityLevels(n int) Option {
	return optionFunc(func(c *config) { c.priorityLevels = n })
}

func WithSliceDuration(d time.Duration) Option {
	return optionFunc(func(c *config) { c.sliceDuration = d })
}

func WithKernelHeapSize(n int) Option {
	return optionFunc(func(c *config) { c.kernelHeapSize = n })
}

func WithThreadsHeapSize(n int) Option {
	return optionFunc(func(c *config) { c.threadsHeapSize = n })
}

func WithDefaultThreadStack(n int) Option {
	return optionFunc(func(c *config) { c.defaultThreadStackSize = n })
}

func WithErrorStackWatermarkPercent(pct int) Option {
	return optionFunc(func(c *config) { c.errorStackWatermarkPct = pct })
}

func WithStackCheckPeriod(d time.Duration) Option {
	return optionFunc(func(c *config) { c.stackCheckPeriod = d })
}

func WithHeapCheckPeriod(d time.Duration) Option {
	return optionFunc(func(c *config) { c.heapCheckPeriod = d })
}

func WithMaxBinarySemaphores(n int) Option {
	return optionFunc(func(c *config) { c.maxBinarySemaphores = n })
}

func WithMaxCountingSemaphores(n int) Option {
	return optionFunc(func(c *config) { c.maxCountingSemaphores = n })
}

func WithMaxQueues(n int) Option {
	return optionFunc(func(c *config) { c.maxQueues = n })
}

func WithMaxWriters(n int) Option {
	return optionFunc(func(c *config) { c.maxWriters = n })
}

func WithPlatform(p Platform) Option {
	return optionFunc(func(c *config) { c.platform = p })
}

func WithLogger(l *logiface.Logger[*stumpy.Event]) Option {
	return optionFunc(func(c *config) { c.logger = l })
}

func WithOnError(fn func(*FatalError)) Option {
	return optionFunc(func(c *config) { c.onError = fn })
}

// WithOnStackOverflow sets the per-thread stack-overflow callback, invoked
// by the stack-watermark probe whenever a thread's usage crosses
// ErrorStackWatermarkPercent. It runs in addition to, and before, the
// kernel-wide fatal OnError escalation for the same condition: this hook is
// the diagnostic/integrator-visible signal, OnError is the latched fault.
func WithOnStackOverflow(fn func(desc UserDesc, name string, percent int)) Option {
	return optionFunc(func(c *config) { c.onStackOverflow = fn })
}
