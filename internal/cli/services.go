package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/mrz1836/docgen/internal/ai"
	"github.com/mrz1836/docgen/internal/config"
	"github.com/mrz1836/docgen/internal/errors"
	"github.com/mrz1836/docgen/internal/generation"
	"github.com/mrz1836/docgen/internal/metrics"
	"github.com/mrz1836/docgen/internal/queue"
	"github.com/mrz1836/docgen/internal/scaffold"
	"github.com/mrz1836/docgen/internal/store"
)

// StoreOpener opens the configured store. Tests replace it with an
// in-memory store.
type StoreOpener func(ctx context.Context, cfg *config.Config) (store.Store, error)

// PipelineBuilder wires an orchestrator around an open store.
type PipelineBuilder func(ctx context.Context, cfg *config.Config, st store.Store, logger zerolog.Logger) (*Pipeline, error)

// Pipeline bundles the orchestrator with the resources it owns.
type Pipeline struct {
	Orchestrator *generation.Orchestrator
	Queue        queue.Queue
	Metrics      *metrics.Metrics
}

// Close releases the queue connection.
func (p *Pipeline) Close() error {
	if p == nil || p.Queue == nil {
		return nil
	}
	return p.Queue.Close()
}

// openStore opens the store selected by database.driver.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Database.Driver {
	case config.DriverMemory:
		return store.NewMemoryStore(), nil
	case config.DriverSQLite:
		dsn := cfg.Database.DSN
		if dsn == "" {
			path, err := config.DefaultDatabasePath()
			if err != nil {
				return nil, err
			}
			dsn = path
		}
		return store.Open(ctx, store.DriverSQLite, dsn)
	case config.DriverPostgres:
		return store.Open(ctx, store.DriverPostgres, cfg.Database.DSN)
	default:
		return nil, fmt.Errorf("%w: database.driver %q", errors.ErrConfigInvalid, cfg.Database.Driver)
	}
}

// buildPipeline creates the provider clients, the GitHub scaffolder, the
// queue and the metrics, then the orchestrator. Missing credentials fail
// here, before any job is created.
func buildPipeline(ctx context.Context, cfg *config.Config, st store.Store, logger zerolog.Logger) (*Pipeline, error) {
	openaiKey, err := config.Secret(cfg.Providers.OpenAI.APIKeyEnv)
	if err != nil {
		return nil, errors.Wrap(err, "openai")
	}
	claudeKey, err := config.Secret(cfg.Providers.Claude.APIKeyEnv)
	if err != nil {
		return nil, errors.Wrap(err, "claude")
	}
	githubToken, err := config.Secret(cfg.GitHub.TokenEnv)
	if err != nil {
		return nil, errors.Wrap(err, "github")
	}

	httpClient := ai.NewHTTPClient(cfg.Providers.HTTPTimeout)
	openai := ai.NewOpenAIClient(cfg.Providers.OpenAI, openaiKey, httpClient, logger)
	claude := ai.NewClaudeClient(cfg.Providers.Claude, claudeKey, httpClient, logger)

	host, err := scaffold.NewGitHubHost(githubToken, scaffold.GitHubOptions{
		Organization: cfg.GitHub.Organization,
		Branch:       cfg.GitHub.Branch,
		BaseURL:      cfg.GitHub.BaseURL,
	})
	if err != nil {
		return nil, err
	}
	scaffolder := scaffold.New(host, scaffold.Options{
		BatchSize:      cfg.Scaffold.BatchSize,
		CommitInterval: cfg.Scaffold.CommitInterval,
	}, logger)

	q, err := openQueue(ctx, cfg)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	orch := generation.New(st, openai, claude, scaffolder,
		generation.Config{
			StageTimeout: cfg.Generation.StageTimeout,
			PrivateRepos: cfg.GitHub.Private,
		},
		logger,
		generation.WithQueue(q),
		generation.WithMetrics(m),
	)
	return &Pipeline{Orchestrator: orch, Queue: q, Metrics: m}, nil
}

// openQueue returns the Redis queue, or nil for the memory backend. An
// in-process queue is useless to a CLI that exits after submitting, so
// the memory backend only serves the in-process worker.
func openQueue(ctx context.Context, cfg *config.Config) (queue.Queue, error) {
	switch cfg.Queue.Backend {
	case config.QueueRedis:
		return queue.NewRedisQueue(ctx, queue.RedisOptions{
			URL:         cfg.Queue.RedisURL,
			Key:         cfg.Queue.Key,
			PollTimeout: cfg.Queue.PollTimeout,
		})
	case config.QueueMemory, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: queue.backend %q", errors.ErrConfigInvalid, cfg.Queue.Backend)
	}
}

// closeQuietly closes c and logs a failure.
func closeQuietly(c io.Closer, logger zerolog.Logger, what string) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		logger.Warn().Err(err).Str("resource", what).Msg("close failed")
	}
}
