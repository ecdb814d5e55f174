// Package pool implements a fixed-size worker pool: a FIFO task queue
// served by N goroutines. Callers submit a function through Submit or
// SubmitContext and get back a Future for its result.
//
// Shutdown stops the pool from accepting new work but lets everything
// already queued run to completion before any worker goroutine exits
// (drain-then-exit). Both the loader pool and the persistent preprocess
// workers in package dataloader are built on a Pool.
package pool
