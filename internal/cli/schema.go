package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mrz1836/docgen/internal/domain"
	"github.com/mrz1836/docgen/internal/errors"
	"github.com/mrz1836/docgen/internal/generation"
	"github.com/mrz1836/docgen/internal/schema"
)

// schemaRenderFlags holds flags of "schema render".
type schemaRenderFlags struct {
	Dir string
}

func addSchemaCommand(root *cobra.Command, a *app) {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Validate and render communication schema files",
	}

	validate := &cobra.Command{
		Use:   "validate <file>",
		Short: "Parse and validate a communication schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchemaValidate(cmd.OutOrStdout(), a.flags.Output, args[0])
		},
	}

	renderFlags := &schemaRenderFlags{}
	render := &cobra.Command{
		Use:   "render <file>",
		Short: "Render README.md and AGENT.md for every directory of a schema",
		Long: `Render the per-directory agent files of a communication schema.

Without --dir the files are listed on stdout. With --dir they are written
below that directory, creating parent directories as needed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchemaRender(cmd.OutOrStdout(), a.flags.Output, args[0], renderFlags.Dir)
		},
	}
	render.Flags().StringVar(&renderFlags.Dir, "dir", "", "write the rendered files below this directory")

	cmd.AddCommand(validate, render)
	root.AddCommand(cmd)
}

// schemaSummary describes a valid schema.
type schemaSummary struct {
	Valid       bool     `json:"valid"`
	Directories []string `json:"directories"`
	Files       int      `json:"files"`
	EventFlows  int      `json:"event_flows"`
}

func readSchemaFile(path string) (*schema.CommunicationSchema, string, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- path is a user-supplied CLI argument
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", errors.ErrInvalidArgument, err)
	}
	text := string(data)
	s, err := schema.Parse(text)
	if err != nil {
		return nil, "", err
	}
	return s, text, nil
}

func runSchemaValidate(w io.Writer, output, path string) error {
	s, _, err := readSchemaFile(path)
	if err != nil {
		return err
	}

	summary := schemaSummary{Valid: true}
	for _, flows := range s.EventFlows {
		summary.EventFlows += len(flows)
	}
	for _, dir := range s.Directories() {
		summary.Directories = append(summary.Directories, dir.Path)
		summary.Files += len(dir.Config.Files)
	}

	if output == OutputJSON {
		return writeJSON(w, summary)
	}
	_, _ = fmt.Fprintf(w, "✓ %s is valid: %d directories, %d files, %d event flows\n",
		path, len(summary.Directories), summary.Files, summary.EventFlows)
	return nil
}

func runSchemaRender(w io.Writer, output, path, dir string) error {
	_, text, err := readSchemaFile(path)
	if err != nil {
		return err
	}
	files, err := generation.GenerateAgentFiles(text)
	if err != nil {
		return err
	}

	if dir == "" {
		if output == OutputJSON {
			return writeJSON(w, files)
		}
		for _, f := range files {
			_, _ = fmt.Fprintf(w, "==> %s <==\n%s\n", f.Path, f.Content)
		}
		return nil
	}

	if err := writeAgentFiles(dir, files); err != nil {
		return err
	}
	if output == OutputJSON {
		paths := make([]string, 0, len(files))
		for _, f := range files {
			paths = append(paths, filepath.Join(dir, filepath.FromSlash(f.Path)))
		}
		return writeJSON(w, paths)
	}
	_, _ = fmt.Fprintf(w, "✓ Wrote %d files to %s\n", len(files), dir)
	return nil
}

func writeAgentFiles(dir string, files []domain.AgentFile) error {
	for _, f := range files {
		target := filepath.Join(dir, filepath.FromSlash(f.Path))
		if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
			return fmt.Errorf("create directory for %s: %w", f.Path, err)
		}
		if err := os.WriteFile(target, []byte(f.Content), 0o600); err != nil {
			return fmt.Errorf("write %s: %w", f.Path, err)
		}
	}
	return nil
}
