package maps

import (
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
)

const (
	keySpace = 1024
)

// --- RWMutexMap (Benchmark Baseline Only) ---

type RWMutexMap[K Integer, V any] struct {
	mu sync.RWMutex
	m  map[K]V
}

func NewRWMutexMap[K Integer, V any]() ConcurrentMap[K, V] {
	return &RWMutexMap[K, V]{m: make(map[K]V)}
}
func (m *RWMutexMap[K, V]) Load(key K) (V, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	val, ok := m.m[key]
	return val, ok
}
func (m *RWMutexMap[K, V]) Store(key K, value V) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.m[key] = value
}
func (m *RWMutexMap[K, V]) Delete(key K) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.m, key)
}
func (m *RWMutexMap[K, V]) LoadAndDelete(key K) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, exists := m.m[key]
	if exists {
		delete(m.m, key)
	}
	return val, exists
}
func (m *RWMutexMap[K, V]) LoadOrStore(key K, valueFactory func() V) (V, bool) {
	m.mu.RLock()
	val, ok := m.m[key]
	m.mu.RUnlock()
	if ok {
		return val, true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	// Double-check in case another goroutine created it while we were waiting for the lock.
	val, ok = m.m[key]
	if ok {
		return val, true
	}
	val = valueFactory()
	m.m[key] = val
	return val, false
}
func (m *RWMutexMap[K, V]) Update(key K, updateFunc func(value V, exists bool) (newValue V, keep bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	oldVal, exists := m.m[key]
	newVal, keep := updateFunc(oldVal, exists)
	if keep {
		m.m[key] = newVal
	} else {
		delete(m.m, key)
	}
}
func (m *RWMutexMap[K, V]) Range(f func(key K, value V) bool) {
	m.mu.RLock()
	copiedMap := make(map[K]V, len(m.m))
	for k, v := range m.m {
		copiedMap[k] = v
	}
	m.mu.RUnlock()

	for k, v := range copiedMap {
		if !f(k, v) {
			return
		}
	}
}

// --- Correctness ---

func allMaps() []struct {
	name string
	m    ConcurrentMap[uint32, uint64]
} {
	return []struct {
		name string
		m    ConcurrentMap[uint32, uint64]
	}{
		{"SyncMap", NewStdSyncMap[uint32, uint64]()},
		{"RWMutexMap", NewRWMutexMap[uint32, uint64]()},
		{"ShardedMap", NewShardedMap[uint32, uint64]()},
		{"CornelkHashMap", NewCornelkMap[uint32, uint64]()},
		{"XSyncMapV4", NewXSyncMap[uint32, uint64]()},
	}
}

func TestMapBasicOperations(t *testing.T) {
	for _, mt := range allMaps() {
		t.Run(mt.name, func(t *testing.T) {
			m := mt.m

			if _, ok := m.Load(1); ok {
				t.Error("Load on empty map should miss")
			}

			m.Store(1, 100)
			if v, ok := m.Load(1); !ok || v != 100 {
				t.Errorf("Expected (100, true), got (%d, %v)", v, ok)
			}

			m.Store(1, 200)
			if v, _ := m.Load(1); v != 200 {
				t.Errorf("Store should overwrite, got %d", v)
			}

			v, existed := m.LoadAndDelete(1)
			if !existed || v != 200 {
				t.Errorf("Expected (200, true), got (%d, %v)", v, existed)
			}
			if _, ok := m.Load(1); ok {
				t.Error("Key should be gone after LoadAndDelete")
			}
			if _, existed := m.LoadAndDelete(1); existed {
				t.Error("Second LoadAndDelete should miss")
			}

			// LoadOrStore: factory on miss, existing value on hit.
			v, loaded := m.LoadOrStore(2, func() uint64 { return 42 })
			if loaded || v != 42 {
				t.Errorf("Expected factory result (42, false), got (%d, %v)", v, loaded)
			}
			v, loaded = m.LoadOrStore(2, func() uint64 { return 99 })
			if !loaded || v != 42 {
				t.Errorf("Expected existing (42, true), got (%d, %v)", v, loaded)
			}

			// Update: insert, mutate, then remove via keep=false.
			m.Update(3, func(v uint64, exists bool) (uint64, bool) {
				if exists {
					t.Error("Key 3 should not exist yet")
				}
				return 7, true
			})
			m.Update(3, func(v uint64, exists bool) (uint64, bool) {
				return v + 1, true
			})
			if v, _ := m.Load(3); v != 8 {
				t.Errorf("Expected updated value 8, got %d", v)
			}
			m.Update(3, func(v uint64, exists bool) (uint64, bool) {
				return 0, false
			})
			if _, ok := m.Load(3); ok {
				t.Error("Update with keep=false should delete")
			}

			// Range sees every live entry.
			for i := uint32(10); i < 20; i++ {
				m.Store(i, uint64(i))
			}
			seen := 0
			m.Range(func(k uint32, v uint64) bool {
				seen++
				return true
			})
			if seen != 11 { // keys 10..19 plus key 2
				t.Errorf("Expected 11 entries in Range, got %d", seen)
			}
		})
	}
}

// --- Benchmark Runners ---

// runMixedWorkloadBenchmark simulates N goroutines each performing a mix of operations.
func runMixedWorkloadBenchmark(b *testing.B, bm ConcurrentMap[uint32, *int64], readRatio int, writers int) {
	var v int64 = 1
	for i := range keySpace {
		bm.Store(uint32(i), &v)
	}
	b.ResetTimer()
	b.SetParallelism(writers)
	b.RunParallel(func(pb *testing.PB) {
		r := rand.New(rand.NewSource(rand.Int63()))
		for pb.Next() {
			key := r.Uint32() % keySpace
			if r.Intn(100) < readRatio {
				_, _ = bm.Load(key)
			} else {
				bm.Store(key, &v)
			}
		}
	})
}

// runLoadOrStoreBenchmark simulates the "interval accumulator" pattern.
func runLoadOrStoreBenchmark(b *testing.B, bm ConcurrentMap[uint32, *atomic.Int64], writers int) {
	b.ResetTimer()
	b.SetParallelism(writers)
	b.RunParallel(func(pb *testing.PB) {
		r := rand.New(rand.NewSource(rand.Int63()))
		factory := func() *atomic.Int64 { return new(atomic.Int64) }
		for pb.Next() {
			key := r.Uint32() % keySpace
			counter, _ := bm.LoadOrStore(key, factory)
			counter.Add(1)
		}
	})
}

// --- Main Benchmark Function ---

func BenchmarkMaps(b *testing.B) {
	workloads := []struct {
		name    string
		threads int
	}{
		{"2_Threads_(Edge_Board)", 2},
		{"Max_Threads_(Generic)", -1}, // -1 will use b.N
	}

	b.Run("Pattern_LoadOrStore_IntervalTotals", func(b *testing.B) {
		mapsToTest := []struct {
			name string
			m    ConcurrentMap[uint32, *atomic.Int64]
		}{
			{"SyncMap", NewStdSyncMap[uint32, *atomic.Int64]()},
			{"RWMutexMap", NewRWMutexMap[uint32, *atomic.Int64]()},
			{"ShardedMap", NewShardedMap[uint32, *atomic.Int64]()},
			{"CornelkHashMap", NewCornelkMap[uint32, *atomic.Int64]()},
			{"XSyncMapV4", NewXSyncMap[uint32, *atomic.Int64]()},
		}
		for _, wl := range workloads {
			b.Run(wl.name, func(b *testing.B) {
				for _, mt := range mapsToTest {
					b.Run(mt.name, func(b *testing.B) {
						runLoadOrStoreBenchmark(b, mt.m, wl.threads)
					})
				}
			})
		}
	})

	b.Run("Pattern_LoadStore_SchedStarts", func(b *testing.B) {
		mapsToTest := []struct {
			name string
			m    ConcurrentMap[uint32, *int64]
		}{
			{"SyncMap", NewStdSyncMap[uint32, *int64]()},
			{"RWMutexMap", NewRWMutexMap[uint32, *int64]()},
			{"ShardedMap", NewShardedMap[uint32, *int64]()},
			{"CornelkHashMap", NewCornelkMap[uint32, *int64]()},
			{"XSyncMapV4", NewXSyncMap[uint32, *int64]()},
		}
		for _, wl := range workloads {
			b.Run(wl.name, func(b *testing.B) {
				b.Run("WriteHeavy_10R_90W", func(b *testing.B) {
					for _, mt := range mapsToTest {
						b.Run(mt.name, func(b *testing.B) {
							runMixedWorkloadBenchmark(b, mt.m, 10, wl.threads)
						})
					}
				})
			})
		}
	})
}
