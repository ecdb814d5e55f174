package dataloader

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// ResourceLimits bounds the estimated memory the pipeline holds in
// flight and how far NextBatch may fall behind the processed queue. Both
// are soft limits: exceeding them is logged, not enforced by blocking,
// since the core's backpressure already comes from the bounded loaded
// and processed queues (BufferSize) — ResourceLimits is an additional
// diagnostic/guard rail layered on top for estimated-size-aware callers
// (notably image workloads, where BufferSize alone does not capture
// per-item byte cost).
type ResourceLimits struct {
	// MaxInFlightBytes limits the estimated total size of items sitting
	// in the loaded and processed queues. A value of 0 means no limit.
	MaxInFlightBytes int64

	// MaxOutstandingBatches limits how many full batches' worth of
	// processed items may accumulate before NextBatch is called. A value
	// of 0 means no limit.
	MaxOutstandingBatches int
}

// Validate checks that limits are well-formed.
func (r ResourceLimits) Validate() error {
	if r.MaxInFlightBytes < 0 {
		return errors.New("dataloader: MaxInFlightBytes cannot be negative")
	}
	if r.MaxOutstandingBatches < 0 {
		return errors.New("dataloader: MaxOutstandingBatches cannot be negative")
	}
	return nil
}

// resourceTracker tracks estimated in-flight memory and outstanding
// processed-item count for ResourceLimits reporting. It never blocks a
// producer; Engine logs a warning via its Logger when a limit is
// exceeded.
type resourceTracker struct {
	limits    ResourceLimits
	batchSize int

	estimatedBytes   atomic.Int64
	outstandingItems atomic.Int64
}

func newResourceTracker(limits ResourceLimits, batchSize int) *resourceTracker {
	return &resourceTracker{limits: limits, batchSize: batchSize}
}

// reserve records estimatedSize bytes entering the in-flight set and
// reports whether doing so exceeds MaxInFlightBytes.
func (rt *resourceTracker) reserve(estimatedSize int64) (overLimit bool) {
	total := rt.estimatedBytes.Add(estimatedSize)
	return rt.limits.MaxInFlightBytes > 0 && total > rt.limits.MaxInFlightBytes
}

// release records estimatedSize bytes leaving the in-flight set.
func (rt *resourceTracker) release(estimatedSize int64) {
	rt.estimatedBytes.Add(-estimatedSize)
}

// reserveProcessed records one item entering the processed queue and
// reports whether the number of items now sitting there, expressed in
// units of full batches, exceeds MaxOutstandingBatches.
func (rt *resourceTracker) reserveProcessed() (overLimit bool) {
	total := rt.outstandingItems.Add(1)
	if rt.limits.MaxOutstandingBatches <= 0 || rt.batchSize <= 0 {
		return false
	}
	return total > int64(rt.limits.MaxOutstandingBatches)*int64(rt.batchSize)
}

// releaseProcessed records one item leaving the processed queue, whether
// delivered through NextBatch or dropped on shutdown.
func (rt *resourceTracker) releaseProcessed() {
	rt.outstandingItems.Add(-1)
}

func (rt *resourceTracker) usage() int64 {
	return rt.estimatedBytes.Load()
}

func (rt *resourceTracker) String() string {
	return fmt.Sprintf("estimatedBytes=%d limit=%d outstandingItems=%d outstandingBatchLimit=%d",
		rt.usage(), rt.limits.MaxInFlightBytes, rt.outstandingItems.Load(), rt.limits.MaxOutstandingBatches)
}
