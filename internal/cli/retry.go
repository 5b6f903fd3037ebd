package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mrz1836/docgen/internal/config"
	"github.com/mrz1836/docgen/internal/constants"
	"github.com/mrz1836/docgen/internal/domain"
	"github.com/mrz1836/docgen/internal/errors"
	"github.com/mrz1836/docgen/internal/generation"
	"github.com/mrz1836/docgen/internal/signal"
)

// retryFlags holds flags of the retry command.
type retryFlags struct {
	Single bool
}

func addRetryCommand(root *cobra.Command, a *app) {
	flags := &retryFlags{}
	cmd := &cobra.Command{
		Use:   "retry <job> <step>",
		Short: "Re-run a finished job from a stage",
		Long: `Re-run a failed, cancelled or completed job starting at a stage. Documents
from earlier stages are read from the store.

By default the stage and every later stage run again. With --single only the
named stage runs; the project is marked completed if every stage of the job
has now completed, and pending otherwise.

Stages: dev_plan, architecture, blueprint, readme, directory_tree,
communication_schema, agent_files, github_scaffold

Examples:
  docgen retry 0b6f... architecture
  docgen retry 0b6f... readme --single`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			step, err := domain.ParseStep(args[1])
			if err != nil {
				return errors.NewExitCode2Error(err)
			}
			if flags.Single {
				if err := config.Override(a.cfg, &config.Config{Generation: config.GenerationConfig{RetryScope: string(constants.RetrySingle)}}); err != nil {
					return err
				}
			}
			scope := constants.RetryScope(a.cfg.Generation.RetryScope)

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

			return runRetry(ctx, cmd.OutOrStdout(), a.flags.Output, pipeline.Orchestrator, args[0], step, scope, a.logger)
		},
	}
	cmd.Flags().BoolVar(&flags.Single, "single", false, "re-run only the named stage")
	root.AddCommand(cmd)
}

func runRetry(ctx context.Context, w io.Writer, output string, orch *generation.Orchestrator, jobID string, step domain.GenerationStep, scope constants.RetryScope, logger zerolog.Logger) error {
	h := signal.NewHandler(ctx)
	defer h.Stop()
	go func() {
		select {
		case <-h.Interrupted():
			if _, err := orch.Cancel(context.WithoutCancel(ctx), jobID); err != nil {
				logger.Warn().Err(err).Str("job_id", jobID).Msg("cancel failed")
			}
		case <-h.Context().Done():
		}
	}()

	job, err := orch.RetryStep(h.Context(), jobID, step, scope)
	if job != nil {
		if printErr := printJob(w, output, job); printErr != nil {
			return printErr
		}
	}
	return err
}

func addCancelCommand(root *cobra.Command, a *app) {
	cmd := &cobra.Command{
		Use:   "cancel <job>",
		Short: "Cancel a pending or running job",
		Long: `Cancel a job. A pending job is cancelled immediately. A running job is
flagged and stops before its next stage; a stage already talking to a
provider may finish first.

Examples:
  docgen cancel 0b6f...`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.store(cmd.Context())
			if err != nil {
				return err
			}
			defer closeQuietly(st, a.logger, "store")

			// Cancelling needs neither providers nor a queue.
			orch := generation.New(st, nil, nil, nil, generation.DefaultConfig(), a.logger)
			return runCancel(cmd.Context(), cmd.OutOrStdout(), a.flags.Output, orch, args[0])
		},
	}
	root.AddCommand(cmd)
}

func runCancel(ctx context.Context, w io.Writer, output string, orch *generation.Orchestrator, jobID string) error {
	job, err := orch.Cancel(ctx, jobID)
	if err != nil {
		return err
	}
	if output == OutputJSON {
		return writeJSON(w, job)
	}
	if job.Status == constants.JobStatusCancelled {
		_, _ = fmt.Fprintf(w, "Cancelled job %s\n", job.ID)
	} else {
		_, _ = fmt.Fprintf(w, "Cancel requested for job %s; it stops before its next stage\n", job.ID)
	}
	return nil
}
