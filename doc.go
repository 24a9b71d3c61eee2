// Package fos simulates a preemptive, priority round-robin RTOS kernel on
// top of goroutines. Threads are goroutines gated by a permit channel;
// system calls are direct method calls into kernel state guarded by a
// single mutex, standing in for the hardware's "one core" guarantee; a
// context switch is the permit handed from one thread's goroutine to
// another's.
package fos
