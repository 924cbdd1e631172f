// Package metrics provides lightweight counters for the keystroke pipeline.
//
// The hook thread increments counters on its microsecond budget, so
// everything here is a bare atomic with no labels, locks, or maps. Snapshots
// are served over IPC status.
package metrics

import (
	"sync/atomic"
	"time"
)

// Counter is a monotonically increasing counter.
type Counter struct {
	v atomic.Uint64
}

// Inc adds one.
func (c *Counter) Inc() { c.v.Add(1) }

// Add adds n.
func (c *Counter) Add(n uint64) { c.v.Add(n) }

// Value returns the current count.
func (c *Counter) Value() uint64 { return c.v.Load() }

// Gauge is a value that can move in both directions.
type Gauge struct {
	v atomic.Int64
}

// Set replaces the value.
func (g *Gauge) Set(v int64) { g.v.Store(v) }

// Value returns the current value.
func (g *Gauge) Value() int64 { return g.v.Load() }

// Pipeline holds the counters for one dispatch pipeline.
type Pipeline struct {
	// Captured counts physical keydowns accepted into the queue.
	Captured Counter
	// Dropped counts keydowns lost to a full queue.
	Dropped Counter
	// Edits counts engine results that requested synthetic input.
	Edits Counter
	// Injected counts synthetic events handed to the OS.
	Injected Counter
	// PartialSends counts injection calls the OS accepted only partially.
	PartialSends Counter
	// CacheHits and CacheMisses count classifier policy lookups.
	CacheHits   Counter
	CacheMisses Counter

	// maxLatency tracks the worst observed capture-to-dispatch latency in
	// nanoseconds.
	maxLatency atomic.Int64
}

// NewPipeline creates an empty metric set.
func NewPipeline() *Pipeline {
	return &Pipeline{}
}

// ObserveDispatchLatency records one capture-to-dispatch latency sample.
func (p *Pipeline) ObserveDispatchLatency(d time.Duration) {
	ns := int64(d)
	for {
		cur := p.maxLatency.Load()
		if ns <= cur || p.maxLatency.CompareAndSwap(cur, ns) {
			return
		}
	}
}

// MaxDispatchLatency returns the worst observed latency.
func (p *Pipeline) MaxDispatchLatency() time.Duration {
	return time.Duration(p.maxLatency.Load())
}

// Snapshot is a point-in-time copy of all pipeline metrics, JSON-ready for
// IPC status responses.
type Snapshot struct {
	Captured       uint64 `json:"captured"`
	Dropped        uint64 `json:"dropped"`
	Edits          uint64 `json:"edits"`
	Injected       uint64 `json:"injected"`
	PartialSends   uint64 `json:"partial_sends"`
	CacheHits      uint64 `json:"cache_hits"`
	CacheMisses    uint64 `json:"cache_misses"`
	MaxLatencyUsec int64  `json:"max_latency_usec"`
}

// Snapshot copies the current values.
func (p *Pipeline) Snapshot() Snapshot {
	return Snapshot{
		Captured:       p.Captured.Value(),
		Dropped:        p.Dropped.Value(),
		Edits:          p.Edits.Value(),
		Injected:       p.Injected.Value(),
		PartialSends:   p.PartialSends.Value(),
		CacheHits:      p.CacheHits.Value(),
		CacheMisses:    p.CacheMisses.Value(),
		MaxLatencyUsec: int64(p.MaxDispatchLatency() / time.Microsecond),
	}
}
