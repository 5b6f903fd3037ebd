package queue

import (
	"context"
	"sync"

	"github.com/mrz1836/docgen/internal/constants"
	docerrors "github.com/mrz1836/docgen/internal/errors"
)

// MemoryQueue is a bounded channel queue. Enqueue blocks when full.
type MemoryQueue struct {
	items     chan string
	done      chan struct{}
	closeOnce sync.Once
}

// Compile-time check that MemoryQueue implements Queue.
var _ Queue = (*MemoryQueue)(nil)

// NewMemoryQueue creates a queue holding up to capacity ids.
// A non-positive capacity uses DefaultQueueCapacity.
func NewMemoryQueue(capacity int) *MemoryQueue {
	if capacity <= 0 {
		capacity = constants.DefaultQueueCapacity
	}
	return &MemoryQueue{
		items: make(chan string, capacity),
		done:  make(chan struct{}),
	}
}

// Enqueue appends a job id.
func (q *MemoryQueue) Enqueue(ctx context.Context, jobID string) error {
	select {
	case <-q.done:
		return docerrors.ErrQueueClosed
	default:
	}

	select {
	case q.items <- jobID:
		return nil
	case <-q.done:
		return docerrors.ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dequeue blocks until an id is available.
func (q *MemoryQueue) Dequeue(ctx context.Context) (string, error) {
	select {
	case id := <-q.items:
		return id, nil
	case <-q.done:
		return "", docerrors.ErrQueueClosed
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Len returns the number of waiting ids.
func (q *MemoryQueue) Len(_ context.Context) (int, error) {
	return len(q.items), nil
}

// Close wakes blocked callers. Ids still buffered are dropped.
func (q *MemoryQueue) Close() error {
	q.closeOnce.Do(func() { close(q.done) })
	return nil
}
