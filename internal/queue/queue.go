// Package queue provides a fixed-capacity lock-free ring buffer for passing
// key events from the hook callback to the dispatch worker.
//
// The buffer is strictly single-producer/single-consumer: the producer is the
// thread the OS invokes the keyboard hook on, the consumer is the worker
// goroutine. Push never blocks; when the buffer is full the event is dropped
// by the caller. One slot is always left unused so that a full buffer can be
// distinguished from an empty one, so a Ring of capacity N holds at most N-1
// items.
package queue

import "sync/atomic"

// cacheLinePad separates the producer-owned and consumer-owned counters so
// they never share a cache line.
type cacheLinePad struct{ _ [64]byte }

// Ring is a lock-free SPSC ring buffer.
//
// head is written only by the producer, tail only by the consumer. The
// producer publishes a slot with a release store of head; the consumer
// observes it with an acquire load. atomic.Uint64 Load/Store provide the
// required acquire/release semantics under the Go memory model.
type Ring[T any] struct {
	buf []T

	_    cacheLinePad
	head atomic.Uint64
	_    cacheLinePad
	tail atomic.Uint64
	_    cacheLinePad
}

// DefaultCapacity is the event queue size used by the pipeline. At typical
// typing rates the worker drains the queue within a millisecond, so 512
// slots only fill up if the worker has stalled.
const DefaultCapacity = 512

// New creates a Ring with the given capacity. Capacity must be at least 2;
// smaller values are rounded up.
func New[T any](capacity int) *Ring[T] {
	if capacity < 2 {
		capacity = 2
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

// Push appends item to the buffer. It returns false without blocking when
// the buffer is full. Must only be called from the single producer.
func (r *Ring[T]) Push(item T) bool {
	head := r.head.Load()
	next := (head + 1) % uint64(len(r.buf))

	if next == r.tail.Load() {
		return false // full
	}

	r.buf[head] = item
	r.head.Store(next) // release: publishes the slot write
	return true
}

// Pop removes the oldest item into *item. It returns false when the buffer
// is empty. Must only be called from the single consumer.
func (r *Ring[T]) Pop(item *T) bool {
	tail := r.tail.Load()

	if tail == r.head.Load() {
		return false // empty
	}

	*item = r.buf[tail]
	var zero T
	r.buf[tail] = zero
	r.tail.Store((tail + 1) % uint64(len(r.buf)))
	return true
}

// Len returns the approximate number of buffered items. The two counters are
// read independently, so the result is advisory and only suitable for
// diagnostics.
func (r *Ring[T]) Len() int {
	head := r.head.Load()
	tail := r.tail.Load()
	if head >= tail {
		return int(head - tail)
	}
	return len(r.buf) - int(tail) + int(head)
}

// Empty reports whether the buffer appears empty. Advisory only.
func (r *Ring[T]) Empty() bool {
	return r.tail.Load() == r.head.Load()
}

// Cap returns the number of usable slots (capacity minus the structurally
// reserved one).
func (r *Ring[T]) Cap() int {
	return len(r.buf) - 1
}
