// Package tracker implements the open-interval accounting protocol shared by
// the CPU-time and memory-stall collectors: record a start timestamp per
// entity, close it on a matching end event, and fold the elapsed duration
// into an accumulator. Entity ids are reused by the kernel after death, so
// reaping dead entities is a correctness requirement, not just hygiene.
package tracker

import (
	"edgetrace/internal/store"
)

// Accumulator receives the duration of each closed interval. Add must be
// safe for truly concurrent callers; the implementations here use atomic
// fetch-and-add rather than locks.
type Accumulator interface {
	Add(id uint32, delta uint64)
	// Reap discards any accumulated total for id. Implementations without
	// per-id state treat this as a no-op.
	Reap(id uint32)
}

// Tracker maintains at most one open interval per entity id.
type Tracker struct {
	starts *store.Bounded[uint32, uint64]
	totals Accumulator
}

// New creates a tracker whose start store holds at most startCapacity open
// intervals. When the store is full, Begin drops the interval and that
// entity's accounting is simply not produced; there is no eviction.
func New(startCapacity int, totals Accumulator) *Tracker {
	return &Tracker{
		starts: store.NewBounded[uint32, uint64](startCapacity),
		totals: totals,
	}
}

// Begin opens an interval for id at timestamp now. Any prior unclosed
// interval for id is silently superseded: a missed end event must not poison
// future accounting.
func (t *Tracker) Begin(id uint32, now uint64) {
	t.starts.Store(id, now)
}

// End closes the open interval for id at timestamp now and adds the elapsed
// duration to the accumulator. If no interval is open the event is a no-op
// (the begin was missed or already consumed) and End reports false.
//
// now comes from the host's monotonic clock, so the unsigned subtraction
// never underflows for correctly ordered events.
func (t *Tracker) End(id uint32, now uint64) (uint64, bool) {
	start, ok := t.starts.LoadAndDelete(id)
	if !ok {
		return 0, false
	}
	delta := now - start
	t.totals.Add(id, delta)
	return delta, true
}

// Reap removes all state for id from both the start store and the
// accumulator. It is called on entity-death notification and must run even
// when no interval is open and no total exists; both deletes tolerate
// absence. Without it, a reused id would inherit its predecessor's dangling
// interval or accumulated total.
func (t *Tracker) Reap(id uint32) {
	t.starts.Delete(id)
	t.totals.Reap(id)
}

// Open returns the number of currently open intervals.
func (t *Tracker) Open() int {
	return t.starts.Len()
}

// StartDrops returns how many Begin calls were rejected by a full start store.
func (t *Tracker) StartDrops() uint64 {
	return t.starts.Drops()
}
