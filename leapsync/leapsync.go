// Package leapsync implements a single-slot request/acknowledge primitive
// for handing one job at a time across a producer/consumer boundary
// without blocking either side: the producer enquires a new parameter
// value whenever it likes, the consumer picks up the latest one when it
// gets around to it, and the producer can poll for completion instead of
// waiting on a channel.
//
// This stands in for the original's lock-free ISR/task rendezvous: Go has
// no interrupt context to race against, so the version counters here are
// plain atomics guarding a mutex-protected parameter slot rather than a
// fully lock-free structure. The state machine - target/processing/completed
// version numbers - is unchanged.
package leapsync

import (
	"sync"
	"sync/atomic"
)

// LeapSync hands a single value of type T from one enquire call to one
// consumer at a time. Calling Enquire again before the consumer has
// finished simply replaces the pending value; the consumer only ever
// sees the most recent one.
type LeapSync[T any] struct {
	mu sync.Mutex

	target    atomic.Uint32
	processing atomic.Uint32
	completed atomic.Uint32

	param T
}

// Enquire stores params as the next job and reports it to consumers.
func (l *LeapSync[T]) Enquire(params T) {
	l.mu.Lock()
	l.param = params
	l.mu.Unlock()
	l.target.Add(1)
}

// IsReady reports whether the most recently enquired job has been
// completed by the consumer.
func (l *LeapSync[T]) IsReady() bool {
	return l.target.Load() == l.completed.Load()
}

// IsEnquired reports whether a job has been enquired that the consumer
// has not yet started processing.
func (l *LeapSync[T]) IsEnquired() bool {
	return isGreater(l.target.Load(), l.processing.Load())
}

// IsStarted reports whether the consumer has claimed a job it has not yet
// marked finished.
func (l *LeapSync[T]) IsStarted() bool {
	return isGreater(l.processing.Load(), l.completed.Load())
}

// MarkStarted claims the current target version as being processed, and
// returns the parameter value to work on. Call once per job, from the
// consumer side only.
func (l *LeapSync[T]) MarkStarted() T {
	l.processing.Store(l.target.Load())
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.param
}

// MarkFinished completes the job claimed by the last MarkStarted call.
func (l *LeapSync[T]) MarkFinished() {
	l.completed.Store(l.processing.Load())
}

// Reset forces completed and processing to catch up to the current
// target, discarding any in-flight or pending job without running it.
func (l *LeapSync[T]) Reset() {
	t := l.target.Load()
	l.completed.Store(t)
	l.processing.Store(t)
}

// isGreater compares two version counters the way the original does,
// tolerating wraparound by comparing their signed difference.
func isGreater(a, b uint32) bool { return int32(a-b) > 0 }
