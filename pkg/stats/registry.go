// Package stats wraps github.com/rcrowley/go-metrics into the small,
// named set of counters and gauges the allocator and its CLI driver
// report against. It observes the allocator; it never participates in
// any of the allocator's invariants.
package stats

import "github.com/rcrowley/go-metrics"

// Registry holds the named counters and gauges a malloc.Allocator
// updates as it runs. A nil *Registry is a valid, no-op value: every
// method on it tolerates a nil receiver so callers can pass one in
// only when they want observability.
type Registry struct {
	AllocCalls       metrics.Counter
	FreeCalls        metrics.Counter
	ReallocCalls     metrics.Counter
	ExtendCalls      metrics.Counter
	ExtendBytes      metrics.Counter
	SplitCount       metrics.Counter
	CoalesceForward  metrics.Counter
	CoalesceBackward metrics.Counter
	CoalesceBoth     metrics.Counter
	FindFitMisses    metrics.Counter

	HeapBytes      metrics.Gauge
	FreeListBlocks metrics.Gauge
	FreeBytes      metrics.Gauge
}

// New builds a Registry with every counter and gauge registered under
// a "heapalloc." prefix, in the style go-ethereum's metrics package
// registers its own named handles once at construction time.
func New() *Registry {
	r := metrics.NewRegistry()
	return &Registry{
		AllocCalls:       metrics.NewRegisteredCounter("heapalloc.alloc_calls", r),
		FreeCalls:        metrics.NewRegisteredCounter("heapalloc.free_calls", r),
		ReallocCalls:     metrics.NewRegisteredCounter("heapalloc.realloc_calls", r),
		ExtendCalls:      metrics.NewRegisteredCounter("heapalloc.extend_calls", r),
		ExtendBytes:      metrics.NewRegisteredCounter("heapalloc.extend_bytes", r),
		SplitCount:       metrics.NewRegisteredCounter("heapalloc.split_count", r),
		CoalesceForward:  metrics.NewRegisteredCounter("heapalloc.coalesce_forward", r),
		CoalesceBackward: metrics.NewRegisteredCounter("heapalloc.coalesce_backward", r),
		CoalesceBoth:     metrics.NewRegisteredCounter("heapalloc.coalesce_both", r),
		FindFitMisses:    metrics.NewRegisteredCounter("heapalloc.find_fit_misses", r),
		HeapBytes:        metrics.NewRegisteredGauge("heapalloc.heap_bytes", r),
		FreeListBlocks:   metrics.NewRegisteredGauge("heapalloc.free_list_blocks", r),
		FreeBytes:        metrics.NewRegisteredGauge("heapalloc.free_bytes", r),
	}
}

// Snapshot is a point-in-time copy of every counter and gauge value,
// convenient for printing or asserting on in tests.
type Snapshot struct {
	AllocCalls       int64
	FreeCalls        int64
	ReallocCalls     int64
	ExtendCalls      int64
	ExtendBytes      int64
	SplitCount       int64
	CoalesceForward  int64
	CoalesceBackward int64
	CoalesceBoth     int64
	FindFitMisses    int64
	HeapBytes        int64
	FreeListBlocks   int64
	FreeBytes        int64
}

// Snapshot reads every metric into a plain struct. Returns the zero
// Snapshot for a nil Registry.
func (reg *Registry) Snapshot() Snapshot {
	if reg == nil {
		return Snapshot{}
	}
	return Snapshot{
		AllocCalls:       reg.AllocCalls.Count(),
		FreeCalls:        reg.FreeCalls.Count(),
		ReallocCalls:     reg.ReallocCalls.Count(),
		ExtendCalls:      reg.ExtendCalls.Count(),
		ExtendBytes:      reg.ExtendBytes.Count(),
		SplitCount:       reg.SplitCount.Count(),
		CoalesceForward:  reg.CoalesceForward.Count(),
		CoalesceBackward: reg.CoalesceBackward.Count(),
		CoalesceBoth:     reg.CoalesceBoth.Count(),
		FindFitMisses:    reg.FindFitMisses.Count(),
		HeapBytes:        reg.HeapBytes.Value(),
		FreeListBlocks:   reg.FreeListBlocks.Value(),
		FreeBytes:        reg.FreeBytes.Value(),
	}
}

// IncAlloc, IncFree, IncRealloc, IncExtend, IncSplit, the coalesce
// counters, and IncFindFitMiss each bump one counter, tolerating a nil
// Registry so the allocator never has to branch on whether metrics
// were requested.
func (reg *Registry) IncAlloc() {
	if reg != nil {
		reg.AllocCalls.Inc(1)
	}
}

func (reg *Registry) IncFree() {
	if reg != nil {
		reg.FreeCalls.Inc(1)
	}
}

func (reg *Registry) IncRealloc() {
	if reg != nil {
		reg.ReallocCalls.Inc(1)
	}
}

func (reg *Registry) IncExtend(bytes int) {
	if reg != nil {
		reg.ExtendCalls.Inc(1)
		reg.ExtendBytes.Inc(int64(bytes))
	}
}

func (reg *Registry) IncSplit() {
	if reg != nil {
		reg.SplitCount.Inc(1)
	}
}

func (reg *Registry) IncCoalesceForward() {
	if reg != nil {
		reg.CoalesceForward.Inc(1)
	}
}

func (reg *Registry) IncCoalesceBackward() {
	if reg != nil {
		reg.CoalesceBackward.Inc(1)
	}
}

func (reg *Registry) IncCoalesceBoth() {
	if reg != nil {
		reg.CoalesceBoth.Inc(1)
	}
}

func (reg *Registry) IncFindFitMiss() {
	if reg != nil {
		reg.FindFitMisses.Inc(1)
	}
}

// SetHeapBytes, SetFreeListBlocks, and SetFreeBytes update the
// point-in-time gauges, tolerating a nil Registry.
func (reg *Registry) SetHeapBytes(n int) {
	if reg != nil {
		reg.HeapBytes.Update(int64(n))
	}
}

func (reg *Registry) SetFreeListBlocks(n int) {
	if reg != nil {
		reg.FreeListBlocks.Update(int64(n))
	}
}

func (reg *Registry) SetFreeBytes(n int) {
	if reg != nil {
		reg.FreeBytes.Update(int64(n))
	}
}
