package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mrz1836/docgen/internal/config"
	"github.com/mrz1836/docgen/internal/errors"
	"github.com/mrz1836/docgen/internal/generation"
	"github.com/mrz1836/docgen/internal/metrics"
	"github.com/mrz1836/docgen/internal/signal"
)

// metricsShutdownTimeout bounds the metrics server shutdown.
const metricsShutdownTimeout = 5 * time.Second

// workerFlags holds flags of the worker command.
type workerFlags struct {
	Workers     int
	MetricsAddr string
}

func addWorkerCommand(root *cobra.Command, a *app) {
	flags := &workerFlags{}
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Execute queued generation jobs",
		Long: `Pull job ids from the Redis queue and run them, several at a time.

Press Ctrl+C once to stop taking new jobs and let running jobs finish,
twice to abort running jobs as well.

Examples:
  docgen worker
  docgen worker --workers 4 --metrics-addr :9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			overrides := &config.Config{
				Generation: config.GenerationConfig{Workers: flags.Workers},
				Metrics:    config.MetricsConfig{Addr: flags.MetricsAddr},
			}
			if err := config.Override(a.cfg, overrides); err != nil {
				return errors.NewExitCode2Error(err)
			}

			ctx := cmd.Context()
			st, err := a.store(ctx)
			if err != nil {
				return err
			}
			defer closeQuietly(st, a.logger, "store")

			pipeline, err := a.buildPipeline(ctx, a.cfg, st, a.logger)
			if err != nil {
				return err
			}
			defer closeQuietly(pipeline, a.logger, "queue")
			if pipeline.Queue == nil {
				return errors.NewExitCode2Error(fmt.Errorf("%w: the worker requires queue.backend redis", errors.ErrInvalidArgument))
			}

			h := signal.NewHandler(ctx)
			defer h.Stop()

			w := generation.NewWorker(pipeline.Orchestrator, pipeline.Queue, a.cfg.Generation.Workers, a.logger)
			go func() {
				select {
				case <-h.Interrupted():
					w.Drain()
				case <-h.Context().Done():
				}
			}()

			stopMetrics := serveMetrics(a.cfg.Metrics.Addr, pipeline.Metrics, a.logger)
			defer stopMetrics()

			return w.Run(h.Context())
		},
	}
	cmd.Flags().IntVar(&flags.Workers, "workers", 0, "concurrent jobs (default generation.workers)")
	cmd.Flags().StringVar(&flags.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (default metrics.addr)")
	root.AddCommand(cmd)
}

// serveMetrics exposes /metrics on addr until the returned func is called.
// An empty addr serves nothing.
func serveMetrics(addr string, m *metrics.Metrics, logger zerolog.Logger) func() {
	if addr == "" || m == nil {
		return func() {}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", addr).Msg("serving metrics")
		if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Str("addr", addr).Msg("metrics server failed")
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
