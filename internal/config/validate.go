package config

import (
	"github.com/mrz1836/docgen/internal/constants"
	"github.com/mrz1836/docgen/internal/errors"
)

// Validate checks the configuration for invalid or inconsistent values.
// It returns an error describing the first validation failure found.
//
// Validation rules:
//   - database.driver is sqlite, postgres or memory; postgres needs a dsn
//   - provider models, base URLs and key env names are set
//   - scaffold.batch_size is positive and scaffold.commit_interval is not negative
//   - generation.workers is between 1 and 64
//   - generation.retry_scope is downstream or single
//   - queue.backend is memory or redis; redis needs a URL
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.ErrConfigNil
	}

	if err := validateDatabaseConfig(&cfg.Database); err != nil {
		return err
	}
	if err := validateProvidersConfig(&cfg.Providers); err != nil {
		return err
	}
	if cfg.GitHub.Branch == "" {
		return errors.Wrap(errors.ErrConfigInvalid, "github.branch must not be empty")
	}
	if err := validateScaffoldConfig(&cfg.Scaffold); err != nil {
		return err
	}
	if err := validateGenerationConfig(&cfg.Generation); err != nil {
		return err
	}
	return validateQueueConfig(&cfg.Queue)
}

func validateDatabaseConfig(cfg *DatabaseConfig) error {
	switch cfg.Driver {
	case DriverSQLite, DriverMemory:
		return nil
	case DriverPostgres:
		if cfg.DSN == "" {
			return errors.Wrap(errors.ErrConfigInvalid, "database.dsn is required for postgres")
		}
		return nil
	default:
		return errors.Wrapf(errors.ErrConfigInvalid,
			"database.driver must be sqlite, postgres or memory, got %q", cfg.Driver)
	}
}

func validateProvidersConfig(cfg *ProvidersConfig) error {
	if cfg.OpenAI.Model == "" || cfg.OpenAI.BaseURL == "" || cfg.OpenAI.APIKeyEnv == "" {
		return errors.Wrap(errors.ErrConfigInvalid,
			"providers.openai requires model, base_url and api_key_env")
	}
	if cfg.Claude.Model == "" || cfg.Claude.BaseURL == "" || cfg.Claude.APIKeyEnv == "" {
		return errors.Wrap(errors.ErrConfigInvalid,
			"providers.claude requires model, base_url and api_key_env")
	}
	if cfg.OpenAI.MaxTokens < 0 || cfg.Claude.MaxTokens <= 0 {
		return errors.Wrap(errors.ErrConfigInvalid,
			"providers max_tokens must be positive (claude) or zero/positive (openai)")
	}
	if cfg.HTTPTimeout <= 0 {
		return errors.Wrapf(errors.ErrConfigInvalid,
			"providers.http_timeout must be positive, got %s", cfg.HTTPTimeout)
	}
	return nil
}

func validateScaffoldConfig(cfg *ScaffoldConfig) error {
	if cfg.BatchSize < 1 {
		return errors.Wrapf(errors.ErrConfigInvalid,
			"scaffold.batch_size must be positive, got %d", cfg.BatchSize)
	}
	if cfg.CommitInterval < 0 {
		return errors.Wrapf(errors.ErrConfigInvalid,
			"scaffold.commit_interval cannot be negative, got %s", cfg.CommitInterval)
	}
	return nil
}

func validateGenerationConfig(cfg *GenerationConfig) error {
	if cfg.StageTimeout < 0 {
		return errors.Wrapf(errors.ErrConfigInvalid,
			"generation.stage_timeout cannot be negative, got %s", cfg.StageTimeout)
	}
	if cfg.Workers < 1 || cfg.Workers > 64 {
		return errors.Wrapf(errors.ErrConfigInvalid,
			"generation.workers must be between 1 and 64, got %d", cfg.Workers)
	}
	switch constants.RetryScope(cfg.RetryScope) {
	case constants.RetryDownstream, constants.RetrySingle:
		return nil
	default:
		return errors.Wrapf(errors.ErrConfigInvalid,
			"generation.retry_scope must be downstream or single, got %q", cfg.RetryScope)
	}
}

func validateQueueConfig(cfg *QueueConfig) error {
	switch cfg.Backend {
	case QueueMemory:
	case QueueRedis:
		if cfg.RedisURL == "" {
			return errors.Wrap(errors.ErrConfigInvalid, "queue.redis_url is required for redis")
		}
	default:
		return errors.Wrapf(errors.ErrConfigInvalid,
			"queue.backend must be memory or redis, got %q", cfg.Backend)
	}
	if cfg.PollTimeout <= 0 {
		return errors.Wrapf(errors.ErrConfigInvalid,
			"queue.poll_timeout must be positive, got %s", cfg.PollTimeout)
	}
	return nil
}
