package store

import "sync/atomic"

// Ring is a bounded producer/consumer event ring. Publish never blocks: when
// the ring is full the record is dropped and counted, mirroring the
// reserve-or-drop discipline of a kernel ring buffer. The consumer side
// drains records in FIFO order.
type Ring[T any] struct {
	ch     chan T
	drops  atomic.Uint64
	closed atomic.Bool
}

// NewRing creates a ring with room for capacity records.
func NewRing[T any](capacity int) *Ring[T] {
	return &Ring[T]{ch: make(chan T, capacity)}
}

// Publish appends rec if a slot is free. It returns false, without blocking
// or retrying, when the ring is full or closed.
func (r *Ring[T]) Publish(rec T) bool {
	if r.closed.Load() {
		r.drops.Add(1)
		return false
	}
	select {
	case r.ch <- rec:
		return true
	default:
		r.drops.Add(1)
		return false
	}
}

// Next removes and returns the oldest record. The boolean is false when the
// ring is currently empty.
func (r *Ring[T]) Next() (T, bool) {
	select {
	case rec, ok := <-r.ch:
		if !ok {
			var zero T
			return zero, false
		}
		return rec, true
	default:
		var zero T
		return zero, false
	}
}

// Events exposes the consumer channel for range-based draining. The channel
// is closed by Close.
func (r *Ring[T]) Events() <-chan T {
	return r.ch
}

// Close stops the producer side and closes the consumer channel. Records
// already in the ring remain readable. Callers must stop all producers
// before closing; the session tears down sources first.
func (r *Ring[T]) Close() {
	if r.closed.CompareAndSwap(false, true) {
		close(r.ch)
	}
}

// Len returns the number of records currently buffered.
func (r *Ring[T]) Len() int {
	return len(r.ch)
}

// Cap returns the ring capacity.
func (r *Ring[T]) Cap() int {
	return cap(r.ch)
}

// Drops returns how many records were rejected on a full ring.
func (r *Ring[T]) Drops() uint64 {
	return r.drops.Load()
}
