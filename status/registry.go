package status

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Coordinator metric names
const (
	TargetsSpawned = "targets.spawned"
	TargetsLive    = "targets.live"
	TargetsPeak    = "targets.peak"
	TargetsEaten   = "targets.eaten"
	TargetsMissed  = "targets.missed"
	WorkersReaped  = "workers.reaped"
	WorkersFailed  = "workers.failed"
	WorkersKilled  = "workers.killed"
	SpawnErrors    = "spawn.errors"
)

// Registry holds the run's counters
// The coordinator caches pointers at start and updates atomics from its loop
type Registry struct {
	Ints *MetricMap[atomic.Int64]
}

// NewRegistry creates an empty Registry
func NewRegistry() *Registry {
	return &Registry{
		Ints: NewMetricMap[atomic.Int64](),
	}
}

// Int returns the counter for key
func (r *Registry) Int(key string) *atomic.Int64 {
	return r.Ints.Get(key)
}

// Snapshot copies every counter
func (r *Registry) Snapshot() map[string]int64 {
	out := make(map[string]int64, r.Ints.Count())
	r.Ints.Range(func(key string, v *atomic.Int64) {
		out[key] = v.Load()
	})
	return out
}

// String renders counters as "key=value" pairs in key order
func (r *Registry) String() string {
	var sb strings.Builder
	r.Ints.Range(func(key string, v *atomic.Int64) {
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%s=%d", key, v.Load())
	})
	return sb.String()
}

// StoreMax raises v to n if n is larger
func StoreMax(v *atomic.Int64, n int64) {
	for {
		cur := v.Load()
		if n <= cur || v.CompareAndSwap(cur, n) {
			return
		}
	}
}
