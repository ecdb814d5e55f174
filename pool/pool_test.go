package pool_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/streamforge/dataloader/pool"
)

func TestSubmit_ReturnsResult(t *testing.T) {
	p := pool.New(2)
	defer p.Shutdown()

	fut, err := pool.Submit(p, func(ctx context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)

	got, err := fut.Get()
	require.NoError(t, err)
	require.Equal(t, 42, got)
}

func TestSubmit_PropagatesError(t *testing.T) {
	p := pool.New(1)
	defer p.Shutdown()

	wantErr := errors.New("boom")
	fut, err := pool.Submit(p, func(ctx context.Context) (int, error) {
		return 0, wantErr
	})
	require.NoError(t, err)

	_, err = fut.Get()
	require.ErrorIs(t, err, wantErr)
}

func TestSubmit_RecoversPanic(t *testing.T) {
	p := pool.New(1)
	defer p.Shutdown()

	fut, err := pool.Submit(p, func(ctx context.Context) (int, error) {
		panic("kaboom")
	})
	require.NoError(t, err)

	_, err = fut.Get()
	require.Error(t, err)
	require.Contains(t, err.Error(), "kaboom")
}

func TestSubmit_AllTasksRunExactlyOnce(t *testing.T) {
	p := pool.New(4)
	defer p.Shutdown()

	const n = 200
	var counter atomic.Int64
	futures := make([]*pool.Future[int], n)

	for i := 0; i < n; i++ {
		fut, err := pool.Submit(p, func(ctx context.Context) (int, error) {
			counter.Add(1)
			return 0, nil
		})
		require.NoError(t, err)
		futures[i] = fut
	}

	for _, fut := range futures {
		_, err := fut.Get()
		require.NoError(t, err)
	}

	require.EqualValues(t, n, counter.Load())
}

func TestShutdown_DrainsQueuedTasksBeforeExit(t *testing.T) {
	p := pool.New(1)

	const n = 20
	var counter atomic.Int64
	futures := make([]*pool.Future[struct{}], n)
	for i := 0; i < n; i++ {
		fut, err := pool.Submit(p, func(ctx context.Context) (struct{}, error) {
			counter.Add(1)
			return struct{}{}, nil
		})
		require.NoError(t, err)
		futures[i] = fut
	}

	p.Shutdown()

	for _, fut := range futures {
		_, err := fut.Get()
		require.NoError(t, err)
	}
	require.EqualValues(t, n, counter.Load())
}

func TestSubmit_AfterShutdownReturnsErrPoolStopped(t *testing.T) {
	p := pool.New(1)
	p.Shutdown()

	_, err := pool.Submit(p, func(ctx context.Context) (int, error) {
		return 0, nil
	})
	require.ErrorIs(t, err, pool.ErrPoolStopped)
}

func TestShutdown_IsIdempotent(t *testing.T) {
	p := pool.New(2)
	p.Shutdown()
	require.NotPanics(t, func() {
		p.Shutdown()
	})
}

func TestGetContext_CancelsOnDeadline(t *testing.T) {
	p := pool.New(1)
	defer p.Shutdown()

	release := make(chan struct{})
	fut, err := pool.Submit(p, func(ctx context.Context) (int, error) {
		<-release
		return 1, nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err = fut.GetContext(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	_, err = fut.Get()
	require.NoError(t, err)
}

func TestTryGet_NonBlocking(t *testing.T) {
	p := pool.New(1)
	defer p.Shutdown()

	release := make(chan struct{})
	fut, err := pool.Submit(p, func(ctx context.Context) (int, error) {
		<-release
		return 7, nil
	})
	require.NoError(t, err)

	_, _, ok := fut.TryGet()
	require.False(t, ok)

	close(release)
	<-fut.Done()

	val, err, ok := fut.TryGet()
	require.True(t, ok)
	require.NoError(t, err)
	require.Equal(t, 7, val)
}

func TestWorkerCount(t *testing.T) {
	p := pool.New(5)
	defer p.Shutdown()
	require.Equal(t, 5, p.WorkerCount())

	p0 := pool.New(0)
	defer p0.Shutdown()
	require.Equal(t, 1, p0.WorkerCount())
}
