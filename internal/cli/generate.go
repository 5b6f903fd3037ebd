package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mrz1836/docgen/internal/domain"
	"github.com/mrz1836/docgen/internal/errors"
	"github.com/mrz1836/docgen/internal/generation"
	"github.com/mrz1836/docgen/internal/signal"
)

// generateFlags holds flags of the generate command.
type generateFlags struct {
	Async bool
}

func addGenerateCommand(root *cobra.Command, a *app) {
	flags := &generateFlags{}
	cmd := &cobra.Command{
		Use:   "generate <project> <prompt...>",
		Short: "Run the generation pipeline for a project",
		Long: `Run all eight stages for a project: dev plan, architecture, blueprint,
README, directory tree, communication schema, agent files and GitHub scaffold.

By default the pipeline runs in this process and the command returns when
the job is finished. Press Ctrl+C once to cancel the job, twice to abort.

With --async the job is queued for 'docgen worker' (requires queue.backend
redis) and the command prints the job id immediately.

Examples:
  docgen generate 3f2c... "a todo app with tags and reminders"
  docgen generate 3f2c... "a url shortener" --async`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			prompt := strings.Join(args[1:], " ")
			if flags.Async {
				return runGenerateAsync(ctx, cmd.OutOrStdout(), a.flags.Output, pipeline.Orchestrator, args[0], prompt)
			}
			return runGenerate(ctx, cmd.OutOrStdout(), a.flags.Output, pipeline.Orchestrator, args[0], prompt, a.logger)
		},
	}
	cmd.Flags().BoolVar(&flags.Async, "async", false, "queue the job for a worker and return immediately")
	root.AddCommand(cmd)
}

// runGenerate runs the pipeline in-process. The first interrupt cancels
// the job so it ends as cancelled rather than failed.
func runGenerate(ctx context.Context, w io.Writer, output string, orch *generation.Orchestrator, projectID, prompt string, logger zerolog.Logger) error {
	job, err := orch.CreateJob(ctx, projectID, prompt)
	if err != nil {
		return err
	}
	if output != OutputJSON {
		_, _ = fmt.Fprintf(w, "Started job %s\n", job.ID)
	}

	h := signal.NewHandler(ctx)
	defer h.Stop()
	go func() {
		select {
		case <-h.Interrupted():
			logger.Warn().Str("job_id", job.ID).Msg("interrupt received, cancelling job")
			if _, cancelErr := orch.Cancel(context.WithoutCancel(ctx), job.ID); cancelErr != nil {
				logger.Warn().Err(cancelErr).Str("job_id", job.ID).Msg("cancel failed")
			}
		case <-h.Context().Done():
		}
	}()

	finished, runErr := orch.Execute(h.Context(), job.ID)
	if finished == nil {
		finished = job
	}
	if err := printJob(w, output, finished); err != nil {
		return err
	}
	return runErr
}

// runGenerateAsync queues the job and returns.
func runGenerateAsync(ctx context.Context, w io.Writer, output string, orch *generation.Orchestrator, projectID, prompt string) error {
	job, err := orch.Submit(ctx, projectID, prompt)
	if err != nil {
		if stderrors.Is(err, errors.ErrInvalidArgument) {
			return errors.NewExitCode2Error(fmt.Errorf("%w: --async requires queue.backend redis", errors.ErrInvalidArgument))
		}
		return err
	}
	if output == OutputJSON {
		return writeJSON(w, job)
	}
	_, _ = fmt.Fprintf(w, "Queued job %s for project %s\n", job.ID, job.ProjectID)
	return nil
}

// printJob writes a job summary.
func printJob(w io.Writer, output string, job *domain.GenerationJob) error {
	if output == OutputJSON {
		return writeJSON(w, job)
	}
	_, _ = fmt.Fprintf(w, "Job %s: %s (step %s)\n", job.ID, job.Status, job.Step)
	if job.FailureReason != "" {
		_, _ = fmt.Fprintf(w, "  %s\n", job.FailureReason)
	}
	if job.RepositoryURL != "" {
		_, _ = fmt.Fprintf(w, "  Repository: %s\n", job.RepositoryURL)
	}
	return nil
}
