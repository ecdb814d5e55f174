package cache

import (
	"sync"
	"sync/atomic"

	"github.com/bits-and-blooms/bloom/v3"
)

// DedupSampler is a diagnostic-only estimator of how often repeat
// locators are being requested. It is never consulted for eviction or
// admission decisions — only LRU recency governs those — so it cannot
// change which keys are cached or in what order, matching the pattern
// noisefs uses a bloom filter for gossiped cache-content hints
// (bloom_exchange.go) rather than for its own eviction policy.
//
// A bloom filter only ever grows more confident that a key has been
// seen before, so its false-positive rate drifts upward over a
// long-running pipeline. Reset starts a fresh sampling window for
// callers that want to bound that drift explicitly; the engine itself
// never calls it automatically, since its own Reset replays the same
// locators against a still-warm cache and resetting the sampler at the
// same time would make every one of those replays look like a first
// sighting instead of the repeat it actually is.
type DedupSampler struct {
	mu     sync.Mutex
	filter *bloom.BloomFilter

	n             uint
	falsePositive float64

	seen   atomic.Uint64
	repeat atomic.Uint64
}

// NewDedupSampler creates a sampler sized for approximately n distinct
// locators at the given false-positive rate.
func NewDedupSampler(n uint, falsePositive float64) *DedupSampler {
	return &DedupSampler{
		filter:        bloom.NewWithEstimates(n, falsePositive),
		n:             n,
		falsePositive: falsePositive,
	}
}

// Observe records a locator request and reports whether it was
// (probably) already seen. False positives are possible; false negatives
// are not.
func (d *DedupSampler) Observe(locator string) (probablySeen bool) {
	key := []byte(locator)

	d.mu.Lock()
	probablySeen = d.filter.Test(key)
	d.filter.Add(key)
	d.mu.Unlock()

	d.seen.Add(1)
	if probablySeen {
		d.repeat.Add(1)
	}
	return probablySeen
}

// ApproxRepeatRatio returns the fraction of Observe calls that hit an
// already-seen locator, an approximate measure of locator reuse across
// the whole run (including reuse that long ago fell out of the LRU's
// actual window). It is a diagnostic signal only.
func (d *DedupSampler) ApproxRepeatRatio() float64 {
	seen := d.seen.Load()
	if seen == 0 {
		return 0
	}
	return float64(d.repeat.Load()) / float64(seen)
}

// Reset clears accumulated state and false-positive drift, starting a
// fresh sampling window.
func (d *DedupSampler) Reset() {
	d.mu.Lock()
	d.filter = bloom.NewWithEstimates(d.n, d.falsePositive)
	d.mu.Unlock()
	d.seen.Store(0)
	d.repeat.Store(0)
}
