// Package store provides the fixed-capacity data structures shared by all
// collectors: a bounded key-value store and a bounded event ring. Neither
// grows past its configured capacity; writes that would exceed it are
// dropped and counted, never blocked on.
package store

import (
	"sync/atomic"

	"edgetrace/internal/maps"
)

// Bounded is a fixed-capacity concurrent key-value store. Lookups, inserts,
// updates and deletes are constant-time. Inserting a new key into a full
// store fails silently from the writer's point of view; the failure is
// recorded in a drop counter the exporter can read.
//
// Capacity is enforced against an atomic entry counter. Concurrent inserts
// racing the capacity check can transiently land a few entries past the
// limit; occupancy is still bounded by capacity plus the number of
// concurrent writers.
type Bounded[K maps.Integer, V any] struct {
	m        maps.ConcurrentMap[K, V]
	capacity int64
	size     atomic.Int64
	drops    atomic.Uint64
}

// NewBounded creates a store that holds at most capacity entries.
func NewBounded[K maps.Integer, V any](capacity int) *Bounded[K, V] {
	return &Bounded[K, V]{
		m:        maps.NewConcurrentMap[K, V](),
		capacity: int64(capacity),
	}
}

// Load returns the value for key and whether it was present.
func (b *Bounded[K, V]) Load(key K) (V, bool) {
	return b.m.Load(key)
}

// Store sets key to value. An existing key is always overwritten. A new key
// is inserted only if the store is below capacity; otherwise the write is
// dropped and Store returns false.
func (b *Bounded[K, V]) Store(key K, value V) bool {
	stored := true
	b.m.Update(key, func(_ V, exists bool) (V, bool) {
		if exists {
			return value, true
		}
		if b.size.Load() >= b.capacity {
			stored = false
			var zero V
			return zero, false
		}
		b.size.Add(1)
		return value, true
	})
	if !stored {
		b.drops.Add(1)
	}
	return stored
}

// LoadOrStore returns the existing value for key, or inserts the factory
// result when absent and below capacity. The boolean reports whether a value
// is available afterwards; it is false only when the insert was dropped.
func (b *Bounded[K, V]) LoadOrStore(key K, valueFactory func() V) (V, bool) {
	if v, ok := b.m.Load(key); ok {
		return v, true
	}
	if b.size.Load() >= b.capacity {
		// Re-check under Update in case the key appeared meanwhile.
		if v, ok := b.m.Load(key); ok {
			return v, true
		}
		b.drops.Add(1)
		var zero V
		return zero, false
	}
	v, loaded := b.m.LoadOrStore(key, valueFactory)
	if !loaded {
		b.size.Add(1)
	}
	return v, true
}

// Delete removes key. Deleting an absent key is a no-op.
func (b *Bounded[K, V]) Delete(key K) {
	if _, existed := b.m.LoadAndDelete(key); existed {
		b.size.Add(-1)
	}
}

// LoadAndDelete removes key and returns the value it held.
func (b *Bounded[K, V]) LoadAndDelete(key K) (V, bool) {
	v, existed := b.m.LoadAndDelete(key)
	if existed {
		b.size.Add(-1)
	}
	return v, existed
}

// Range iterates over all entries until f returns false.
func (b *Bounded[K, V]) Range(f func(key K, value V) bool) {
	b.m.Range(f)
}

// Len returns the current number of entries.
func (b *Bounded[K, V]) Len() int {
	return int(b.size.Load())
}

// Cap returns the configured capacity.
func (b *Bounded[K, V]) Cap() int {
	return int(b.capacity)
}

// Drops returns how many inserts were rejected because the store was full.
func (b *Bounded[K, V]) Drops() uint64 {
	return b.drops.Load()
}
