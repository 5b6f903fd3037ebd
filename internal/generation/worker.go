package generation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	docerrors "github.com/mrz1836/docgen/internal/errors"
	"github.com/mrz1836/docgen/internal/queue"
)

// workerBackoff is the pause after a queue error before dequeuing again.
const workerBackoff = time.Second

// Worker executes queued jobs with a fixed number of goroutines.
type Worker struct {
	orch    *Orchestrator
	queue   queue.Queue
	workers int
	logger  zerolog.Logger

	drain     chan struct{}
	drainOnce sync.Once
}

// NewWorker creates a worker pool pulling job ids from q.
// workers below one is treated as one.
func NewWorker(orch *Orchestrator, q queue.Queue, workers int, logger zerolog.Logger) *Worker {
	if workers < 1 {
		workers = 1
	}
	return &Worker{
		orch:    orch,
		queue:   q,
		workers: workers,
		logger:  logger.With().Str("component", "worker").Logger(),
		drain:   make(chan struct{}),
	}
}

// Drain stops taking new jobs. Jobs already running finish and Run
// returns once they have.
func (w *Worker) Drain() {
	w.drainOnce.Do(func() {
		w.logger.Info().Msg("draining worker pool")
		close(w.drain)
	})
}

// Run blocks until ctx is done, Drain is called or the queue is closed.
// Canceling ctx also cancels running jobs. Job failures are recorded on
// the job and never stop the pool.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info().Int("workers", w.workers).Msg("worker pool started")

	g, gctx := errgroup.WithContext(ctx)
	takeCtx, stopTaking := context.WithCancel(gctx)
	defer stopTaking()
	go func() {
		select {
		case <-w.drain:
			stopTaking()
		case <-takeCtx.Done():
		}
	}()

	for i := range w.workers {
		g.Go(func() error {
			return w.loop(gctx, takeCtx, i)
		})
	}
	err := g.Wait()

	w.logger.Info().Msg("worker pool stopped")
	return err
}

// loop takes jobs with takeCtx and runs them with ctx.
func (w *Worker) loop(ctx, takeCtx context.Context, id int) error {
	logger := w.logger.With().Int("worker", id).Logger()

	for {
		w.reportDepth(takeCtx)

		jobID, err := w.queue.Dequeue(takeCtx)
		switch {
		case err == nil:
		case errors.Is(err, docerrors.ErrQueueClosed), takeCtx.Err() != nil:
			return nil
		default:
			logger.Warn().Err(err).Msg("dequeue failed")
			select {
			case <-takeCtx.Done():
				return nil
			case <-time.After(workerBackoff):
			}
			continue
		}

		logger.Debug().Str("job_id", jobID).Msg("job dequeued")
		job, err := w.orch.Execute(ctx, jobID)
		switch {
		case err == nil:
			logger.Info().Str("job_id", jobID).Msg("job completed")
		case errors.Is(err, docerrors.ErrInvalidTransition):
			// Cancelled before it started, or already taken.
			logger.Info().Str("job_id", jobID).Msg("skipping job that is no longer pending")
		case errors.Is(err, docerrors.ErrJobNotFound):
			logger.Warn().Str("job_id", jobID).Msg("queued job does not exist")
		default:
			status := ""
			if job != nil {
				status = job.Status.String()
			}
			logger.Warn().Err(err).Str("job_id", jobID).Str("status", status).Msg("job did not complete")
		}
	}
}

func (w *Worker) reportDepth(ctx context.Context) {
	if w.orch.metrics == nil {
		return
	}
	n, err := w.queue.Len(ctx)
	if err != nil {
		return
	}
	w.orch.metrics.SetQueueDepth(n)
}
