package status

import (
	"slices"
	"sync"
	"sync/atomic"
)

// MetricMap is a named set of metrics of type T, allocated on first lookup
// Callers keep the returned pointer and update it without going through the map again
type MetricMap[T any] struct {
	items sync.Map // string -> *T
	count atomic.Int64
}

// NewMetricMap creates an empty MetricMap
func NewMetricMap[T any]() *MetricMap[T] {
	return &MetricMap[T]{}
}

// Get returns the metric for key; concurrent first lookups agree on one pointer
func (m *MetricMap[T]) Get(key string) *T {
	if v, ok := m.items.Load(key); ok {
		return v.(*T)
	}
	v, loaded := m.items.LoadOrStore(key, new(T))
	if !loaded {
		m.count.Add(1)
	}
	return v.(*T)
}

// Has reports whether key was ever requested
func (m *MetricMap[T]) Has(key string) bool {
	_, ok := m.items.Load(key)
	return ok
}

// Range calls fn for every metric in sorted key order
// Metrics added during the walk may be missed
func (m *MetricMap[T]) Range(fn func(key string, ptr *T)) {
	var keys []string
	ptrs := make(map[string]*T)
	m.items.Range(func(k, v any) bool {
		key := k.(string)
		keys = append(keys, key)
		ptrs[key] = v.(*T)
		return true
	})
	slices.Sort(keys)

	for _, key := range keys {
		fn(key, ptrs[key])
	}
}

// Count returns the number of metrics
func (m *MetricMap[T]) Count() int {
	return int(m.count.Load())
}
