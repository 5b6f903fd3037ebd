package config

import (
	"context"
	stderrors "errors"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/mrz1836/docgen/internal/constants"
	"github.com/mrz1836/docgen/internal/errors"
)

// newViperInstance creates a new Viper instance with standard docgen configuration.
// This includes environment variable prefix (DOCGEN_), key replacer, and defaults.
func newViperInstance() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// isConfigNotFoundError returns true if the error is a viper config file not found error.
func isConfigNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	var configNotFoundErr viper.ConfigFileNotFoundError
	return stderrors.As(err, &configNotFoundErr)
}

// unmarshalAndValidate unmarshals viper config into Config struct and validates it.
func unmarshalAndValidate(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg, viperDecoderOption()); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if err := Validate(&cfg); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return &cfg, nil
}

// Load reads configuration from all available sources with proper precedence.
// Configuration is loaded in the following order (highest precedence first):
//  1. Environment variables (DOCGEN_* prefix)
//  2. Project config (.docgen/config.yaml)
//  3. Global config (~/.docgen/config.yaml)
//  4. Built-in defaults
//
// Missing config files are not an error.
func Load(ctx context.Context) (*Config, error) {
	v := newViperInstance()

	if err := loadGlobalConfig(v); err != nil {
		return nil, err
	}
	if err := loadProjectConfig(v); err != nil {
		return nil, err
	}

	cfg, err := unmarshalAndValidate(v)
	if err != nil {
		return nil, err
	}

	logger := zerolog.Ctx(ctx).With().Str("component", "config").Logger()
	logger.Debug().
		Str("database.driver", cfg.Database.Driver).
		Str("queue.backend", cfg.Queue.Backend).
		Dur("generation.stage_timeout", cfg.Generation.StageTimeout).
		Dur("scaffold.commit_interval", cfg.Scaffold.CommitInterval).
		Msg("configuration loaded")

	return cfg, nil
}

// loadGlobalConfig attempts to load the global config file (~/.docgen/config.yaml).
// Returns nil if the file doesn't exist or home directory cannot be determined.
func loadGlobalConfig(v *viper.Viper) error {
	globalConfigPath, err := GlobalConfigPath()
	if err != nil || !fileExists(globalConfigPath) {
		return nil
	}

	v.SetConfigFile(globalConfigPath)
	if err := v.ReadInConfig(); err != nil && !isConfigNotFoundError(err) {
		return errors.Wrap(err, "failed to read global config file")
	}
	return nil
}

// loadProjectConfig attempts to load the project config file (.docgen/config.yaml).
func loadProjectConfig(v *viper.Viper) error {
	projectConfigPath := ProjectConfigPath()
	if !fileExists(projectConfigPath) {
		return nil
	}

	v.SetConfigFile(projectConfigPath)
	if err := v.MergeInConfig(); err != nil && !isConfigNotFoundError(err) {
		return errors.Wrap(err, "failed to read project config file")
	}
	return nil
}

// fileExists returns true if the file at path exists.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// LoadWithOverrides loads configuration and applies CLI flag overrides.
// Only non-zero values in overrides are applied.
func LoadWithOverrides(ctx context.Context, overrides *Config) (*Config, error) {
	cfg, err := Load(ctx)
	if err != nil {
		return nil, err
	}

	if err := Override(cfg, overrides); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Override merges the non-zero fields of overrides into cfg and validates
// the result. A nil overrides only validates.
func Override(cfg, overrides *Config) error {
	if cfg == nil {
		return errors.ErrConfigNil
	}
	if overrides != nil {
		applyOverrides(cfg, overrides)
	}
	return errors.Wrap(Validate(cfg), "invalid configuration after overrides")
}

// LoadFromPaths loads configuration from specific file paths for testing.
// Either path can be empty to skip that level.
func LoadFromPaths(_ context.Context, projectConfigPath, globalConfigPath string) (*Config, error) {
	v := newViperInstance()

	if globalConfigPath != "" {
		v.SetConfigFile(globalConfigPath)
		if err := v.ReadInConfig(); err != nil && !isConfigNotFoundError(err) && !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "failed to read global config: %s", globalConfigPath)
		}
	}

	if projectConfigPath != "" {
		v.SetConfigFile(projectConfigPath)
		if err := v.MergeInConfig(); err != nil && !isConfigNotFoundError(err) && !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "failed to read project config: %s", projectConfigPath)
		}
	}

	return unmarshalAndValidate(v)
}

// setDefaults configures all default values on the Viper instance.
// These defaults match the values from DefaultConfig().
// IMPORTANT: Keys must match the YAML tag names exactly for proper mapping.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.dsn", d.Database.DSN)

	v.SetDefault("providers.openai.base_url", d.Providers.OpenAI.BaseURL)
	v.SetDefault("providers.openai.model", d.Providers.OpenAI.Model)
	v.SetDefault("providers.openai.api_key_env", d.Providers.OpenAI.APIKeyEnv)
	v.SetDefault("providers.openai.max_tokens", d.Providers.OpenAI.MaxTokens)
	v.SetDefault("providers.openai.temperature", d.Providers.OpenAI.Temperature)
	v.SetDefault("providers.claude.base_url", d.Providers.Claude.BaseURL)
	v.SetDefault("providers.claude.model", d.Providers.Claude.Model)
	v.SetDefault("providers.claude.api_key_env", d.Providers.Claude.APIKeyEnv)
	v.SetDefault("providers.claude.max_tokens", d.Providers.Claude.MaxTokens)
	v.SetDefault("providers.claude.version", d.Providers.Claude.Version)
	v.SetDefault("providers.http_timeout", d.Providers.HTTPTimeout.String())

	v.SetDefault("github.token_env", d.GitHub.TokenEnv)
	v.SetDefault("github.organization", d.GitHub.Organization)
	v.SetDefault("github.branch", d.GitHub.Branch)
	v.SetDefault("github.private", d.GitHub.Private)
	v.SetDefault("github.base_url", d.GitHub.BaseURL)

	v.SetDefault("scaffold.batch_size", d.Scaffold.BatchSize)
	v.SetDefault("scaffold.commit_interval", d.Scaffold.CommitInterval.String())

	v.SetDefault("generation.stage_timeout", d.Generation.StageTimeout.String())
	v.SetDefault("generation.workers", d.Generation.Workers)
	v.SetDefault("generation.retry_scope", d.Generation.RetryScope)

	v.SetDefault("queue.backend", d.Queue.Backend)
	v.SetDefault("queue.redis_url", d.Queue.RedisURL)
	v.SetDefault("queue.key", d.Queue.Key)
	v.SetDefault("queue.poll_timeout", d.Queue.PollTimeout.String())

	v.SetDefault("metrics.addr", d.Metrics.Addr)
}

// applyOverrides merges non-zero override values into the config.
//
// IMPORTANT: Boolean fields (GitHub.Private) cannot be overridden to false
// here because false is indistinguishable from unset. The CLI checks
// cmd.Flags().Changed for those.
func applyOverrides(cfg, overrides *Config) {
	if overrides.Database.Driver != "" {
		cfg.Database.Driver = overrides.Database.Driver
	}
	if overrides.Database.DSN != "" {
		cfg.Database.DSN = overrides.Database.DSN
	}

	if overrides.GitHub.Organization != "" {
		cfg.GitHub.Organization = overrides.GitHub.Organization
	}
	if overrides.GitHub.Private {
		cfg.GitHub.Private = true
	}

	if overrides.Generation.Workers != 0 {
		cfg.Generation.Workers = overrides.Generation.Workers
	}
	if overrides.Generation.StageTimeout != 0 {
		cfg.Generation.StageTimeout = overrides.Generation.StageTimeout
	}
	if overrides.Generation.RetryScope != "" {
		cfg.Generation.RetryScope = overrides.Generation.RetryScope
	}

	applyQueueOverrides(cfg, overrides)

	if overrides.Metrics.Addr != "" {
		cfg.Metrics.Addr = overrides.Metrics.Addr
	}
}

// applyQueueOverrides applies queue-related overrides to the config.
func applyQueueOverrides(cfg, overrides *Config) {
	if overrides.Queue.Backend != "" {
		cfg.Queue.Backend = overrides.Queue.Backend
	}
	if overrides.Queue.RedisURL != "" {
		cfg.Queue.RedisURL = overrides.Queue.RedisURL
	}
	if overrides.Queue.Key != "" {
		cfg.Queue.Key = overrides.Queue.Key
	}
}

// viperDecoderOption returns the decoder options for Viper unmarshal.
// This configures mapstructure to handle time.Duration conversion from strings.
func viperDecoderOption() viper.DecoderConfigOption {
	return viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
	)
}
