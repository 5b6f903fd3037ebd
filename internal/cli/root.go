// Package cli provides the command-line interface for docgen.
//
// Import rules:
//   - CAN import: any internal package
//   - MUST NOT be imported by other internal packages
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mrz1836/docgen/internal/config"
	"github.com/mrz1836/docgen/internal/errors"
	"github.com/mrz1836/docgen/internal/logging"
	"github.com/mrz1836/docgen/internal/store"
)

// BuildInfo contains version information set at build time via ldflags.
type BuildInfo struct {
	// Version is the semantic version (e.g., "1.0.0").
	Version string
	// Commit is the git commit hash.
	Commit string
	// Date is the build date.
	Date string
}

// app carries what every command needs: flags, the logger and the
// loaded configuration, plus the constructors tests swap out.
type app struct {
	flags  *GlobalFlags
	logger zerolog.Logger
	cfg    *config.Config

	openStore     StoreOpener
	buildPipeline PipelineBuilder

	// loadConfig is replaced in tests to skip the config files.
	loadConfig func(ctx context.Context, flags *GlobalFlags) (*config.Config, error)

	// logDir is the rotated log file directory; empty disables it.
	logDir string

	logCloser io.Closer
}

func newApp() *app {
	a := &app{
		flags:         &GlobalFlags{},
		logger:        zerolog.Nop(),
		openStore:     openStore,
		buildPipeline: buildPipeline,
		loadConfig:    loadConfig,
	}
	if dir, err := logging.DefaultDir(); err == nil {
		a.logDir = dir
	}
	return a
}

// loadConfig reads the layered configuration. --config replaces the
// project config file.
func loadConfig(ctx context.Context, flags *GlobalFlags) (*config.Config, error) {
	if flags.ConfigFile == "" {
		return config.Load(ctx)
	}
	global, err := config.GlobalConfigPath()
	if err != nil {
		global = ""
	}
	return config.LoadFromPaths(ctx, flags.ConfigFile, global)
}

// store opens the configured store.
func (a *app) store(ctx context.Context) (store.Store, error) {
	return a.openStore(ctx, a.cfg)
}

// newRootCmd creates the root command and every subcommand.
func newRootCmd(a *app, info BuildInfo) *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "docgen",
		Short: "Generate project documentation and scaffold a repository with LLMs",
		Long: `docgen turns a one-line project idea into a development plan, architecture,
blueprint, README, directory tree and communication schema, renders a
README.md and AGENT.md for every directory, and commits them to a new
GitHub repository.

Stages run in order and each document is persisted as soon as it is produced,
so a failed run can be retried from the failing stage.`,
		Version: formatVersion(info),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := BindGlobalFlags(v, cmd, a.flags); err != nil {
				return fmt.Errorf("failed to bind flags: %w", err)
			}
			if !IsValidOutputFormat(a.flags.Output) {
				return fmt.Errorf("%w: %q must be one of %v", errors.ErrInvalidOutputFormat, a.flags.Output, ValidOutputFormats())
			}

			a.logger, a.logCloser = logging.New(logging.Options{
				Verbose: a.flags.Verbose,
				Quiet:   a.flags.Quiet,
				Console: cmd.ErrOrStderr(),
				Dir:     a.logDir,
			})

			ctx := a.logger.WithContext(cmd.Context())
			cfg, err := a.loadConfig(ctx, a.flags)
			if err != nil {
				return err
			}
			a.cfg = cfg
			cmd.SetContext(ctx)
			return nil
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			if a.logCloser != nil {
				return a.logCloser.Close()
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	AddGlobalFlags(cmd, a.flags)

	addProjectCommand(cmd, a)
	addGenerateCommand(cmd, a)
	addWorkerCommand(cmd, a)
	addStatusCommand(cmd, a)
	addRetryCommand(cmd, a)
	addCancelCommand(cmd, a)
	addDocsCommand(cmd, a)
	addSchemaCommand(cmd, a)
	addConfigCommand(cmd, a)

	return cmd
}

// formatVersion creates the version string from build info.
func formatVersion(info BuildInfo) string {
	if info.Version == "" {
		info.Version = "dev"
	}
	if info.Commit == "" {
		info.Commit = "none"
	}
	if info.Date == "" {
		info.Date = "unknown"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", info.Version, info.Commit, info.Date)
}

// Execute runs the root command and prints a user-facing error message.
// The returned error is the command's error; use ExitCodeForError for the
// process exit code.
func Execute(ctx context.Context, info BuildInfo) error {
	a := newApp()
	//nolint:contextcheck // Cobra command pattern uses cmd.Context() internally
	cmd := newRootCmd(a, info)
	err := cmd.ExecuteContext(ctx)
	if err != nil {
		printError(cmd.ErrOrStderr(), err)
	}
	return err
}
