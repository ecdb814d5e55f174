// Package dataloader implements the Pipeline Engine layer: a pool of
// loader goroutines pulls items in from locators (through the optional LRU
// cache), a fixed number of persistent preprocess workers transform them,
// and NextBatch assembles the result into fixed-size batches for the
// caller.
//
// An Engine moves through a small state machine over its lifetime:
//
//	Idle -> Running -> Stopping -> Stopped
//
// New starts an Engine straight into Running. Stop transitions it through
// Stopping to Stopped, unblocking any load task or preprocess worker that
// is waiting to push into a full queue so shutdown completes promptly
// instead of leaking goroutines. Reset stops the current run, joins every
// load task and preprocess worker from it, and starts a fresh one with the
// same Config and locator list from the beginning — the cache, if enabled,
// survives the reset, so a second pass over the same locators after a
// Reset is expected to hit cache rather than re-invoke LoaderFunc.
package dataloader
