// Package queue hands submitted generation job ids to workers.
//
// Two backends are provided: an in-process channel queue for single-binary
// use and a Redis list for multi-process deployments.
package queue

import (
	"context"
)

// Queue is a FIFO of job ids.
type Queue interface {
	// Enqueue appends a job id.
	Enqueue(ctx context.Context, jobID string) error

	// Dequeue blocks until a job id is available, ctx is done (returns
	// ctx.Err()) or the queue is closed (returns ErrQueueClosed).
	Dequeue(ctx context.Context) (string, error)

	// Len returns the number of waiting job ids.
	Len(ctx context.Context) (int, error)

	// Close releases resources and wakes blocked callers.
	Close() error
}
