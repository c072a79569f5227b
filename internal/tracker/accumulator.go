package tracker

import (
	"sync/atomic"

	"edgetrace/internal/store"
)

// KeyedAccumulator keeps one monotonically increasing total per entity id,
// in a bounded store. Totals only change by atomic addition; they are never
// decremented and never reset here (reset is the external reader's problem).
type KeyedAccumulator struct {
	totals *store.Bounded[uint32, *atomic.Uint64]
}

// NewKeyedAccumulator creates an accumulator holding at most capacity totals.
func NewKeyedAccumulator(capacity int) *KeyedAccumulator {
	return &KeyedAccumulator{
		totals: store.NewBounded[uint32, *atomic.Uint64](capacity),
	}
}

// Add folds delta into the total for id, zero-initializing it on first use.
// When the store is full and id has no slot yet, the addition is dropped.
func (a *KeyedAccumulator) Add(id uint32, delta uint64) {
	counter, ok := a.totals.LoadOrStore(id, func() *atomic.Uint64 {
		return new(atomic.Uint64)
	})
	if !ok {
		return
	}
	counter.Add(delta)
}

// Reap removes the total for id, if any.
func (a *KeyedAccumulator) Reap(id uint32) {
	a.totals.Delete(id)
}

// Total returns the accumulated duration for id.
func (a *KeyedAccumulator) Total(id uint32) (uint64, bool) {
	counter, ok := a.totals.Load(id)
	if !ok {
		return 0, false
	}
	return counter.Load(), true
}

// Range iterates over all (id, total) pairs until f returns false.
func (a *KeyedAccumulator) Range(f func(id uint32, total uint64) bool) {
	a.totals.Range(func(id uint32, counter *atomic.Uint64) bool {
		return f(id, counter.Load())
	})
}

// Len returns the number of entities with a total.
func (a *KeyedAccumulator) Len() int {
	return a.totals.Len()
}

// Drops returns how many additions were rejected by a full total store.
func (a *KeyedAccumulator) Drops() uint64 {
	return a.totals.Drops()
}

// GlobalAccumulator folds every interval into a single node-wide counter,
// stored at what the map layout calls key zero. The entity id is ignored on
// Add and Reap never discards anything: individual entity death does not
// affect a node-level total.
type GlobalAccumulator struct {
	total atomic.Uint64
}

// NewGlobalAccumulator creates a zeroed global accumulator.
func NewGlobalAccumulator() *GlobalAccumulator {
	return &GlobalAccumulator{}
}

// Add folds delta into the global total.
func (a *GlobalAccumulator) Add(_ uint32, delta uint64) {
	a.total.Add(delta)
}

// Reap is a no-op; the total is not per-entity.
func (a *GlobalAccumulator) Reap(uint32) {}

// Total returns the accumulated node-wide duration.
func (a *GlobalAccumulator) Total() uint64 {
	return a.total.Load()
}
