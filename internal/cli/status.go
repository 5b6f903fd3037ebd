package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mrz1836/docgen/internal/domain"
	"github.com/mrz1836/docgen/internal/store"
)

// StatusStore is what the status command reads.
type StatusStore interface {
	GetProject(ctx context.Context, projectID string) (*domain.Project, error)
	ListJobs(ctx context.Context, projectID string) ([]*domain.GenerationJob, error)
}

// Compile-time check that every store serves the status command.
var _ StatusStore = (store.Store)(nil)

// statusReport is the JSON shape of "docgen status".
type statusReport struct {
	Project *domain.Project         `json:"project"`
	Jobs    []*domain.GenerationJob `json:"jobs"`
}

func addStatusCommand(root *cobra.Command, a *app) {
	cmd := &cobra.Command{
		Use:   "status <project>",
		Short: "Show generation progress for a project",
		Long: `Show the project's status and progress, its generation jobs (newest first)
and the per-stage state of the latest job.

Examples:
  docgen status 3f2c...
  docgen status 3f2c... --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.store(cmd.Context())
			if err != nil {
				return err
			}
			defer closeQuietly(st, a.logger, "store")
			return runStatusWithDeps(cmd.Context(), cmd.OutOrStdout(), a.flags.Output, st, args[0])
		},
	}
	root.AddCommand(cmd)
}

// runStatusWithDeps renders the status of one project.
func runStatusWithDeps(ctx context.Context, w io.Writer, output string, st StatusStore, projectID string) error {
	project, err := st.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	jobs, err := st.ListJobs(ctx, projectID)
	if err != nil {
		return err
	}

	if output == OutputJSON {
		if jobs == nil {
			jobs = []*domain.GenerationJob{}
		}
		return writeJSON(w, statusReport{Project: project, Jobs: jobs})
	}

	_, _ = fmt.Fprintf(w, "Project %s (%s): %s, %d%%\n", project.Name, project.ID, project.Status, project.Progress)
	if project.StatusReason != "" {
		_, _ = fmt.Fprintf(w, "  %s\n", project.StatusReason)
	}
	if project.RepositoryURL != "" {
		_, _ = fmt.Fprintf(w, "  Repository: %s\n", project.RepositoryURL)
	}
	if len(jobs) == 0 {
		_, _ = fmt.Fprintln(w, "No generation jobs. Run 'docgen generate <project> <prompt>' to start one.")
		return nil
	}

	_, _ = fmt.Fprintln(w)
	jt := newTable(w, "JOB", "STATUS", "STEP", "CREATED", "FINISHED")
	for _, j := range jobs {
		finished := "-"
		if j.CompletedAt != nil {
			finished = formatTime(*j.CompletedAt)
		}
		jt.AppendRow([]any{j.ID, j.Status, j.Step, formatTime(j.CreatedAt), finished})
	}
	jt.Render()

	latest := jobs[0]
	_, _ = fmt.Fprintf(w, "\nStages of job %s\n", latest.ID)
	st2 := newTable(w, "#", "STAGE", "STATUS", "ATTEMPTS", "ERROR")
	for i, rec := range latest.Steps {
		st2.AppendRow([]any{i + 1, rec.Step.DisplayName(), rec.Status, rec.Attempts, orDash(rec.Error)})
	}
	st2.Render()
	if latest.FailureReason != "" {
		_, _ = fmt.Fprintf(w, "Failure: %s\n", latest.FailureReason)
	}
	return nil
}
