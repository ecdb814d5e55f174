// Package pool provides a fixed-size worker pool that executes submitted
// tasks and returns a Future for each one. It is the Worker Pool layer of
// the pipeline engine: the loader pool and the persistent preprocess
// workers are both built on top of a Pool.
//
// Internally a Pool is an unbounded FIFO of task closures guarded by a
// mutex and a condition variable, consumed by N worker goroutines — the
// same shape as the original thread_pool.h. Submit appends to the queue and
// wakes exactly one waiter (sync.Cond.Signal); Shutdown wakes every waiter
// (sync.Cond.Broadcast) and workers exit once the queue is both stopped and
// empty, so queued work finishes before the pool tears down.
package pool

import (
	"context"
	"sync"
)

// task is the erased unit of work a Pool runs.
type task func()

// Pool runs submitted tasks on a fixed number of worker goroutines.
type Pool struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []task
	stopped bool

	wg       sync.WaitGroup
	once     sync.Once
	workers  int
}

// New creates a Pool with the given number of workers. workers must be >=
// 1; New clamps it to 1 if a non-positive value is supplied, mirroring the
// original thread_pool.h guarantee that a pool always has at least one
// worker.
func New(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}

	p := &Pool{workers: workers}
	p.cond = sync.NewCond(&p.mu)

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}

	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		t, ok := p.nextTask()
		if !ok {
			return
		}
		t()
	}
}

// nextTask blocks until a task is available or the pool is stopped with an
// empty queue, in which case ok is false and the worker should exit.
func (p *Pool) nextTask() (task, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for len(p.queue) == 0 && !p.stopped {
		p.cond.Wait()
	}

	if len(p.queue) == 0 {
		// stopped and drained
		return nil, false
	}

	t := p.queue[0]
	p.queue = p.queue[1:]
	return t, true
}

// Submit schedules fn to run on a worker and returns a Future for its
// result. It returns ErrPoolStopped if Shutdown has already been called.
//
// fn's own error return (or recovered panic) is captured into the Future;
// it never escapes the worker loop.
func Submit[R any](p *Pool, fn func(ctx context.Context) (R, error)) (*Future[R], error) {
	return SubmitContext(context.Background(), p, fn)
}

// SubmitContext is like Submit but lets the caller supply the context
// passed to fn.
func SubmitContext[R any](ctx context.Context, p *Pool, fn func(ctx context.Context) (R, error)) (*Future[R], error) {
	fut := newFuture[R]()

	t := task(func() {
		defer func() {
			if r := recover(); r != nil {
				var zero R
				fut.deliver(zero, panicToError(r))
			}
		}()
		result, err := fn(ctx)
		fut.deliver(result, err)
	})

	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil, ErrPoolStopped
	}
	p.queue = append(p.queue, t)
	p.mu.Unlock()

	p.cond.Signal()
	return fut, nil
}

// WorkerCount returns the number of workers in the pool.
func (p *Pool) WorkerCount() int {
	return p.workers
}

// Pending returns the number of tasks currently queued (not yet picked up
// by a worker). It is observational and may be stale by the time the
// caller reads it.
func (p *Pool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Shutdown signals the pool to stop accepting new tasks, lets every
// already-queued task drain, and blocks until all workers have exited. It
// is idempotent and safe to call more than once.
func (p *Pool) Shutdown() {
	p.once.Do(func() {
		p.mu.Lock()
		p.stopped = true
		p.mu.Unlock()
		p.cond.Broadcast()
	})
	p.wg.Wait()
}
