package async

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesAllJobs(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]bool{}
	h := HandlerFunc(func(_ context.Context, job Job) error {
		mu.Lock()
		defer mu.Unlock()
		seen[job.Path] = true
		if job.Path == "c.png" {
			return errors.New("unreadable")
		}
		return nil
	})

	q := NewQueue(h, nil, WithWorkers(3), WithQueueSize(1))
	for _, p := range []string{"a.png", "b.png", "c.png", "d.png"} {
		require.NoError(t, q.Enqueue(context.Background(), Job{Path: p}))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	q.Shutdown(ctx)

	assert.Equal(t, map[string]bool{"a.png": true, "b.png": true, "c.png": true, "d.png": true}, seen)
}

func TestQueueRejectsAfterShutdown(t *testing.T) {
	q := NewQueue(HandlerFunc(func(context.Context, Job) error { return nil }), nil)
	q.Shutdown(context.Background())
	q.Shutdown(context.Background())

	err := q.Enqueue(context.Background(), Job{Path: "late.png"})
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestQueueAppliesTimeout(t *testing.T) {
	var expired atomic.Bool
	h := HandlerFunc(func(ctx context.Context, _ Job) error {
		<-ctx.Done()
		expired.Store(errors.Is(ctx.Err(), context.DeadlineExceeded))
		return ctx.Err()
	})
	q := NewQueue(h, nil, WithWorkers(1), WithProcessTimeout(20*time.Millisecond))
	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "slow.png"}))
	q.Shutdown(context.Background())
	assert.True(t, expired.Load())
}

func TestEnqueueHonorsContextWhenFull(t *testing.T) {
	release := make(chan struct{})
	h := HandlerFunc(func(context.Context, Job) error { <-release; return nil })
	q := NewQueue(h, nil, WithWorkers(1), WithQueueSize(1))
	defer func() {
		close(release)
		q.Shutdown(context.Background())
	}()

	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "1.png"}))
	// wait until the worker has taken the first job so the buffer is empty
	require.Eventually(t, func() bool { return len(q.ch) == 0 }, time.Second, time.Millisecond)
	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "2.png"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := q.Enqueue(ctx, Job{Path: "3.png"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
