package pool

import "errors"

// ErrPoolStopped is returned by Submit and SubmitContext once Shutdown has
// been called. It is never returned for tasks that were already queued
// before shutdown began; those are allowed to drain.
var ErrPoolStopped = errors.New("pool: stopped, not accepting new tasks")
