// Package cache implements the LRU Cache layer sitting between the
// Worker Pool and the Pipeline Engine: a fixed-capacity, generic LRU[K,V]
// keyed by locator, with single-flight collapsing of concurrent misses
// and an optional bloom-filter-backed DedupSampler for diagnostics.
package cache
