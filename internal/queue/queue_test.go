package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	docerrors "github.com/mrz1836/docgen/internal/errors"
)

func newRedisQueue(t *testing.T) (*RedisQueue, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	q, err := NewRedisQueue(context.Background(), RedisOptions{
		URL:         "redis://" + mr.Addr(),
		Key:         "docgen:test",
		PollTimeout: time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Close() })
	return q, mr
}

func backends(t *testing.T) map[string]Queue {
	t.Helper()
	rq, _ := newRedisQueue(t)
	return map[string]Queue{
		"memory": NewMemoryQueue(4),
		"redis":  rq,
	}
}

func TestQueue_FIFO(t *testing.T) {
	for name, q := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, q.Enqueue(ctx, "job-1"))
			require.NoError(t, q.Enqueue(ctx, "job-2"))

			n, err := q.Len(ctx)
			require.NoError(t, err)
			assert.Equal(t, 2, n)

			first, err := q.Dequeue(ctx)
			require.NoError(t, err)
			second, err := q.Dequeue(ctx)
			require.NoError(t, err)
			assert.Equal(t, "job-1", first)
			assert.Equal(t, "job-2", second)
		})
	}
}

func TestQueue_DequeueHonorsContext(t *testing.T) {
	for name, q := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()

			_, err := q.Dequeue(ctx)
			require.ErrorIs(t, err, context.DeadlineExceeded)
		})
	}
}

func TestQueue_Closed(t *testing.T) {
	for name, q := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, q.Close())
			require.NoError(t, q.Close())

			require.ErrorIs(t, q.Enqueue(context.Background(), "job-1"), docerrors.ErrQueueClosed)
			_, err := q.Dequeue(context.Background())
			require.ErrorIs(t, err, docerrors.ErrQueueClosed)
		})
	}
}

func TestMemoryQueue_CloseWakesWaiter(t *testing.T) {
	q := NewMemoryQueue(1)
	errCh := make(chan error, 1)
	go func() {
		_, err := q.Dequeue(context.Background())
		errCh <- err
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, q.Close())

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, docerrors.ErrQueueClosed)
	case <-time.After(time.Second):
		t.Fatal("dequeue did not return after close")
	}
}

func TestMemoryQueue_EnqueueBlocksWhenFull(t *testing.T) {
	q := NewMemoryQueue(1)
	require.NoError(t, q.Enqueue(context.Background(), "job-1"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, q.Enqueue(ctx, "job-2"), context.DeadlineExceeded)
}

func TestRedisQueue_UsesList(t *testing.T) {
	q, mr := newRedisQueue(t)
	require.NoError(t, q.Enqueue(context.Background(), "job-7"))

	items, err := mr.List("docgen:test")
	require.NoError(t, err)
	assert.Equal(t, []string{"job-7"}, items)
}

func TestRedisQueue_ConsumesExternalPush(t *testing.T) {
	q, mr := newRedisQueue(t)
	_, err := mr.Lpush("docgen:test", "job-ext")
	require.NoError(t, err)

	id, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "job-ext", id)
}

func TestNewRedisQueue_Errors(t *testing.T) {
	_, err := NewRedisQueue(context.Background(), RedisOptions{})
	require.ErrorIs(t, err, docerrors.ErrEmptyValue)

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	_, err = NewRedisQueue(context.Background(), RedisOptions{URL: "redis://" + addr})
	require.ErrorIs(t, err, docerrors.ErrPersistence)
}
