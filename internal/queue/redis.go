package queue

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/gomodule/redigo/redis"

	"github.com/mrz1836/docgen/internal/constants"
	docerrors "github.com/mrz1836/docgen/internal/errors"
)

// RedisOptions configures a RedisQueue.
type RedisOptions struct {
	// URL is a redis:// URL.
	URL string

	// Key is the list holding job ids. Defaults to DefaultQueueKey.
	Key string

	// PollTimeout is the BRPOP timeout. Rounded up to whole seconds.
	PollTimeout time.Duration

	// MaxIdle is the connection pool's idle limit. Defaults to 4.
	MaxIdle int
}

// RedisQueue stores job ids in a Redis list. Producers LPUSH and consumers
// BRPOP, so ids come out in submission order.
type RedisQueue struct {
	pool   *redis.Pool
	key    string
	poll   int
	closed atomic.Bool
}

// Compile-time check that RedisQueue implements Queue.
var _ Queue = (*RedisQueue)(nil)

// NewRedisQueue connects to Redis and verifies the server answers PING.
func NewRedisQueue(ctx context.Context, opts RedisOptions) (*RedisQueue, error) {
	if opts.URL == "" {
		return nil, docerrors.Wrap(docerrors.ErrEmptyValue, "redis url")
	}
	if opts.Key == "" {
		opts.Key = constants.DefaultQueueKey
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = constants.DefaultQueuePollTimeout
	}
	if opts.MaxIdle <= 0 {
		opts.MaxIdle = 4
	}

	url := opts.URL
	pool := &redis.Pool{
		MaxIdle:     opts.MaxIdle,
		IdleTimeout: 240 * time.Second,
		DialContext: func(ctx context.Context) (redis.Conn, error) {
			return redis.DialURLContext(ctx, url)
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
	}

	q := &RedisQueue{
		pool: pool,
		key:  opts.Key,
		poll: int(math.Ceil(opts.PollTimeout.Seconds())),
	}

	conn, err := pool.GetContext(ctx)
	if err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("%w: connect redis: %w", docerrors.ErrPersistence, err)
	}
	defer func() { _ = conn.Close() }()
	if _, err := redis.DoContext(conn, ctx, "PING"); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("%w: ping redis: %w", docerrors.ErrPersistence, err)
	}
	return q, nil
}

// Enqueue pushes a job id onto the list.
func (q *RedisQueue) Enqueue(ctx context.Context, jobID string) error {
	if q.closed.Load() {
		return docerrors.ErrQueueClosed
	}
	conn, err := q.pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: enqueue %s: %w", docerrors.ErrPersistence, jobID, err)
	}
	defer func() { _ = conn.Close() }()

	if _, err := redis.DoContext(conn, ctx, "LPUSH", q.key, jobID); err != nil {
		return fmt.Errorf("%w: enqueue %s: %w", docerrors.ErrPersistence, jobID, err)
	}
	return nil
}

// Dequeue blocks on BRPOP in poll-timeout slices until an id arrives.
func (q *RedisQueue) Dequeue(ctx context.Context) (string, error) {
	for {
		if q.closed.Load() {
			return "", docerrors.ErrQueueClosed
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}

		id, err := q.pop(ctx)
		if err == nil {
			return id, nil
		}
		if errors.Is(err, redis.ErrNil) {
			continue
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		if q.closed.Load() {
			return "", docerrors.ErrQueueClosed
		}
		return "", fmt.Errorf("%w: dequeue: %w", docerrors.ErrPersistence, err)
	}
}

func (q *RedisQueue) pop(ctx context.Context) (string, error) {
	conn, err := q.pool.GetContext(ctx)
	if err != nil {
		return "", err
	}
	defer func() { _ = conn.Close() }()

	reply, err := redis.Strings(redis.DoContext(conn, ctx, "BRPOP", q.key, q.poll))
	if err != nil {
		return "", err
	}
	if len(reply) != 2 {
		return "", fmt.Errorf("unexpected BRPOP reply of %d elements", len(reply))
	}
	return reply[1], nil
}

// Len returns LLEN of the list.
func (q *RedisQueue) Len(ctx context.Context) (int, error) {
	conn, err := q.pool.GetContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: queue length: %w", docerrors.ErrPersistence, err)
	}
	defer func() { _ = conn.Close() }()

	n, err := redis.Int(redis.DoContext(conn, ctx, "LLEN", q.key))
	if err != nil {
		return 0, fmt.Errorf("%w: queue length: %w", docerrors.ErrPersistence, err)
	}
	return n, nil
}

// Close closes the connection pool.
func (q *RedisQueue) Close() error {
	if q.closed.Swap(true) {
		return nil
	}
	return q.pool.Close()
}
