package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mrz1836/docgen/internal/domain"
	"github.com/mrz1836/docgen/internal/errors"
	"github.com/mrz1836/docgen/internal/store"
)

// projectCreateFlags holds flags of "project create".
type projectCreateFlags struct {
	Description  string
	UserID       string
	Technologies []string
}

func addProjectCommand(root *cobra.Command, a *app) {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage projects",
	}

	createFlags := &projectCreateFlags{}
	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a project",
		Long: `Create a project that generation jobs can run against. The name becomes
the name of the scaffolded repository.

Examples:
  docgen project create todo-app --description "A todo app" --user alice
  docgen project create todo-app --tech go --tech postgres`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.store(cmd.Context())
			if err != nil {
				return err
			}
			defer closeQuietly(st, a.logger, "store")
			return runProjectCreate(cmd.Context(), cmd.OutOrStdout(), a.flags.Output, st, args[0], createFlags)
		},
	}
	create.Flags().StringVarP(&createFlags.Description, "description", "d", "", "project description")
	create.Flags().StringVarP(&createFlags.UserID, "user", "u", "local", "owning user id")
	create.Flags().StringSliceVar(&createFlags.Technologies, "tech", nil, "technology (repeatable)")

	list := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := a.store(cmd.Context())
			if err != nil {
				return err
			}
			defer closeQuietly(st, a.logger, "store")
			return runProjectList(cmd.Context(), cmd.OutOrStdout(), a.flags.Output, st)
		},
	}

	show := &cobra.Command{
		Use:   "show <project>",
		Short: "Show a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.store(cmd.Context())
			if err != nil {
				return err
			}
			defer closeQuietly(st, a.logger, "store")
			return runProjectShow(cmd.Context(), cmd.OutOrStdout(), a.flags.Output, st, args[0])
		},
	}

	cmd.AddCommand(create, list, show)
	root.AddCommand(cmd)
}

func runProjectCreate(ctx context.Context, w io.Writer, output string, st store.ProjectStore, name string, flags *projectCreateFlags) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.NewExitCode2Error(errors.Wrap(errors.ErrEmptyValue, "project name"))
	}
	project := &domain.Project{
		ID:           uuid.NewString(),
		UserID:       flags.UserID,
		Name:         name,
		Description:  flags.Description,
		Technologies: flags.Technologies,
		Status:       domain.ProjectStatusPending,
	}
	if err := st.CreateProject(ctx, project); err != nil {
		return err
	}
	if output == OutputJSON {
		return writeJSON(w, project)
	}
	_, _ = fmt.Fprintf(w, "Created project %s (%s)\n", project.Name, project.ID)
	return nil
}

func runProjectList(ctx context.Context, w io.Writer, output string, st store.ProjectStore) error {
	projects, err := st.ListProjects(ctx)
	if err != nil {
		return err
	}
	if output == OutputJSON {
		if projects == nil {
			projects = []*domain.Project{}
		}
		return writeJSON(w, projects)
	}
	if len(projects) == 0 {
		_, _ = fmt.Fprintln(w, "No projects. Run 'docgen project create <name>' to create one.")
		return nil
	}

	t := newTable(w, "ID", "NAME", "STATUS", "PROGRESS", "REPOSITORY", "UPDATED")
	for _, p := range projects {
		t.AppendRow([]any{p.ID, p.Name, p.Status, fmt.Sprintf("%d%%", p.Progress), orDash(p.RepositoryURL), formatTime(p.UpdatedAt)})
	}
	t.Render()
	return nil
}

func runProjectShow(ctx context.Context, w io.Writer, output string, st store.ProjectStore, id string) error {
	p, err := st.GetProject(ctx, id)
	if err != nil {
		return err
	}
	if output == OutputJSON {
		return writeJSON(w, p)
	}
	_, _ = fmt.Fprintf(w, "ID:           %s\n", p.ID)
	_, _ = fmt.Fprintf(w, "Name:         %s\n", p.Name)
	_, _ = fmt.Fprintf(w, "Owner:        %s\n", p.UserID)
	_, _ = fmt.Fprintf(w, "Description:  %s\n", orDash(p.Description))
	_, _ = fmt.Fprintf(w, "Technologies: %s\n", orDash(strings.Join(p.Technologies, ", ")))
	_, _ = fmt.Fprintf(w, "Status:       %s\n", p.Status)
	if p.StatusReason != "" {
		_, _ = fmt.Fprintf(w, "Reason:       %s\n", p.StatusReason)
	}
	_, _ = fmt.Fprintf(w, "Progress:     %d%%\n", p.Progress)
	_, _ = fmt.Fprintf(w, "Repository:   %s\n", orDash(p.RepositoryURL))
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
