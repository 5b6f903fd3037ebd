package config

import (
	"github.com/mrz1836/docgen/internal/constants"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Supported queue backends.
const (
	QueueMemory = "memory"
	QueueRedis  = "redis"
)

// DefaultConfig returns a new Config with sensible default values.
// These defaults are used as the base layer that can be overridden by
// config files, environment variables, and CLI flags.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			// An empty DSN resolves to ~/.docgen/docgen.db.
			Driver: DriverSQLite,
		},
		Providers: ProvidersConfig{
			OpenAI: OpenAIConfig{
				BaseURL:     "https://api.openai.com/v1",
				Model:       "gpt-4o",
				APIKeyEnv:   "OPENAI_API_KEY",
				MaxTokens:   4096,
				Temperature: 0.7,
			},
			Claude: ClaudeConfig{
				BaseURL:   "https://api.anthropic.com/v1",
				Model:     "claude-sonnet-4-5",
				APIKeyEnv: "ANTHROPIC_API_KEY",
				MaxTokens: 8192,
				Version:   "2023-06-01",
			},
			HTTPTimeout: constants.DefaultHTTPTimeout,
		},
		GitHub: GitHubConfig{
			TokenEnv: "GITHUB_TOKEN",
			Branch:   constants.DefaultBranch,
		},
		Scaffold: ScaffoldConfig{
			BatchSize:      constants.DefaultBatchSize,
			CommitInterval: constants.DefaultCommitInterval,
		},
		Generation: GenerationConfig{
			StageTimeout: constants.DefaultStageTimeout,
			Workers:      constants.DefaultWorkers,
			RetryScope:   string(constants.RetryDownstream),
		},
		Queue: QueueConfig{
			Backend:     QueueMemory,
			Key:         constants.DefaultQueueKey,
			PollTimeout: constants.DefaultQueuePollTimeout,
		},
	}
}
