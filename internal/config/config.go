// Package config provides configuration management for docgen with layered precedence.
//
// Configuration sources are loaded in the following order (highest precedence first):
//  1. CLI flags (passed via LoadWithOverrides)
//  2. Environment variables (DOCGEN_* prefix)
//  3. Project config (.docgen/config.yaml)
//  4. Global config (~/.docgen/config.yaml)
//  5. Built-in defaults
//
// Each higher level completely overrides the lower level for the same key.
//
// IMPORTANT: This package may import internal/constants and internal/errors,
// but MUST NOT import internal/domain or other internal packages.
package config

import "time"

// Config is the root configuration structure for docgen.
type Config struct {
	// Database selects the document, project and job store.
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`

	// Providers configures the two text-generation backends.
	Providers ProvidersConfig `yaml:"providers" mapstructure:"providers"`

	// GitHub configures the repository host.
	GitHub GitHubConfig `yaml:"github" mapstructure:"github"`

	// Scaffold controls the batched commit writer.
	Scaffold ScaffoldConfig `yaml:"scaffold" mapstructure:"scaffold"`

	// Generation controls pipeline execution.
	Generation GenerationConfig `yaml:"generation" mapstructure:"generation"`

	// Queue selects where submitted jobs wait for a worker.
	Queue QueueConfig `yaml:"queue" mapstructure:"queue"`

	// Metrics configures the Prometheus endpoint served by the worker.
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// DatabaseConfig selects the SQL store.
type DatabaseConfig struct {
	// Driver is "sqlite", "postgres" or "memory".
	// Default: "sqlite"
	Driver string `yaml:"driver" mapstructure:"driver"`

	// DSN is the data source name. For sqlite an empty DSN means
	// ~/.docgen/docgen.db.
	DSN string `yaml:"dsn" mapstructure:"dsn"`
}

// ProvidersConfig holds both provider clients' settings.
type ProvidersConfig struct {
	OpenAI OpenAIConfig `yaml:"openai" mapstructure:"openai"`
	Claude ClaudeConfig `yaml:"claude" mapstructure:"claude"`

	// HTTPTimeout bounds a single provider HTTP request.
	// Default: 3 minutes
	HTTPTimeout time.Duration `yaml:"http_timeout" mapstructure:"http_timeout"`
}

// OpenAIConfig configures the chat-completions backend.
type OpenAIConfig struct {
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	Model       string  `yaml:"model" mapstructure:"model"`
	APIKeyEnv   string  `yaml:"api_key_env" mapstructure:"api_key_env"`
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
}

// ClaudeConfig configures the Anthropic messages backend.
type ClaudeConfig struct {
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	Model     string `yaml:"model" mapstructure:"model"`
	APIKeyEnv string `yaml:"api_key_env" mapstructure:"api_key_env"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`

	// Version is sent as the anthropic-version header.
	Version string `yaml:"version" mapstructure:"version"`
}

// GitHubConfig configures repository creation.
type GitHubConfig struct {
	// TokenEnv names the environment variable holding the API token.
	TokenEnv string `yaml:"token_env" mapstructure:"token_env"`

	// Organization owns created repositories. Empty means the token's user.
	Organization string `yaml:"organization" mapstructure:"organization"`

	// Branch receives every scaffolded file.
	Branch string `yaml:"branch" mapstructure:"branch"`

	// Private creates private repositories.
	Private bool `yaml:"private" mapstructure:"private"`

	// BaseURL overrides the API endpoint (GitHub Enterprise, tests).
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// ScaffoldConfig controls the batched commit writer.
type ScaffoldConfig struct {
	// BatchSize is the number of files per batch.
	// Default: 10
	BatchSize int `yaml:"batch_size" mapstructure:"batch_size"`

	// CommitInterval is the minimum spacing between two commits.
	// Default: 100ms
	CommitInterval time.Duration `yaml:"commit_interval" mapstructure:"commit_interval"`
}

// GenerationConfig controls pipeline execution.
type GenerationConfig struct {
	// StageTimeout bounds each stage. Zero disables the limit.
	// Default: 5 minutes
	StageTimeout time.Duration `yaml:"stage_timeout" mapstructure:"stage_timeout"`

	// Workers is the number of jobs executed concurrently by "docgen worker".
	// Default: 2
	Workers int `yaml:"workers" mapstructure:"workers"`

	// RetryScope is the default scope of "docgen retry": "downstream" or "single".
	RetryScope string `yaml:"retry_scope" mapstructure:"retry_scope"`
}

// QueueConfig selects the job queue backend.
type QueueConfig struct {
	// Backend is "memory" or "redis".
	Backend string `yaml:"backend" mapstructure:"backend"`

	// RedisURL is used when Backend is "redis" (redis://host:6379/0).
	RedisURL string `yaml:"redis_url" mapstructure:"redis_url"`

	// Key is the Redis list holding queued job ids.
	Key string `yaml:"key" mapstructure:"key"`

	// PollTimeout is how long a worker blocks on an empty queue.
	PollTimeout time.Duration `yaml:"poll_timeout" mapstructure:"poll_timeout"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Addr is the listen address for /metrics. Empty disables the endpoint.
	Addr string `yaml:"addr" mapstructure:"addr"`
}
