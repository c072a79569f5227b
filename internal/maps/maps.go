package maps

// mapImplementation selects the concurrent map used by the bounded stores.
// Valid options: "xsync", "sharded", "cornelk", "sync".
const mapImplementation = "xsync"

// Integer is a constraint that permits any integer type.
// All integer types are comparable.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// ConcurrentMap is a generic, thread-safe map interface for integer keys.
// The bounded stores are written against this interface so the underlying
// implementation can be swapped without touching collector logic.
type ConcurrentMap[K Integer, V any] interface {
	Load(key K) (V, bool)
	Store(key K, value V)
	Delete(key K)
	LoadAndDelete(key K) (V, bool)
	// LoadOrStore returns the existing value for key if present, otherwise
	// it stores the factory result. The boolean reports whether the value
	// was loaded rather than stored.
	LoadOrStore(key K, valueFactory func() V) (V, bool)
	Update(key K, updateFunc func(value V, exists bool) (newValue V, keep bool))
	Range(f func(key K, value V) bool)
}

// NewConcurrentMap returns the default concurrent map implementation for
// integer-keyed maps, chosen by the mapImplementation constant.
func NewConcurrentMap[K Integer, V any]() ConcurrentMap[K, V] {
	switch mapImplementation {
	case "xsync":
		return NewXSyncMap[K, V]()
	case "sharded":
		return NewShardedMap[K, V]()
	case "cornelk":
		return NewCornelkMap[K, V]()
	case "sync":
		return NewStdSyncMap[K, V]()
	default:
		return NewXSyncMap[K, V]()
	}
}
