package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/mrz1836/docgen/internal/constants"
	"github.com/mrz1836/docgen/internal/domain"
	"github.com/mrz1836/docgen/internal/errors"
	"github.com/mrz1836/docgen/internal/generation"
	"github.com/mrz1836/docgen/internal/schema"
	"github.com/mrz1836/docgen/internal/store"
)

// markdownWrap is the word-wrap width of rendered markdown.
const markdownWrap = 100

// docsShowFlags holds flags of "docs show" and "docs agents".
type docsShowFlags struct {
	Raw bool
}

func addDocsCommand(root *cobra.Command, a *app) {
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Read generated documents",
	}

	list := &cobra.Command{
		Use:   "list <project>",
		Short: "List the documents generated for a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.store(cmd.Context())
			if err != nil {
				return err
			}
			defer closeQuietly(st, a.logger, "store")
			return runDocsList(cmd.Context(), cmd.OutOrStdout(), a.flags.Output, st, args[0])
		},
	}

	showFlags := &docsShowFlags{}
	show := &cobra.Command{
		Use:   "show <project> <kind>",
		Short: "Print one document",
		Long: `Print one generated document. Markdown is rendered for the terminal
unless --raw is given.

Kinds: dev_plan, architecture, blueprint, readme, tree, schema

Examples:
  docgen docs show 3f2c... readme
  docgen docs show 3f2c... schema --raw > schema.json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := domain.DocumentKind(strings.TrimSpace(args[1]))
			if !kind.Valid() {
				return errors.NewExitCode2Error(fmt.Errorf("%w: document kind %q", errors.ErrInvalidArgument, args[1]))
			}
			st, err := a.store(cmd.Context())
			if err != nil {
				return err
			}
			defer closeQuietly(st, a.logger, "store")
			return runDocsShow(cmd.Context(), cmd.OutOrStdout(), a.flags.Output, st, args[0], kind, showFlags.Raw)
		},
	}
	show.Flags().BoolVar(&showFlags.Raw, "raw", false, "print the stored text without rendering")

	agentFlags := &docsShowFlags{}
	agents := &cobra.Command{
		Use:   "agents <project> [directory]",
		Short: "Print the README.md/AGENT.md rendered from the stored schema",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.store(cmd.Context())
			if err != nil {
				return err
			}
			defer closeQuietly(st, a.logger, "store")
			dir := ""
			if len(args) == 2 {
				dir = args[1]
			}
			return runDocsAgents(cmd.Context(), cmd.OutOrStdout(), a.flags.Output, st, args[0], dir, agentFlags.Raw)
		},
	}
	agents.Flags().BoolVar(&agentFlags.Raw, "raw", false, "print the markdown without rendering")

	cmd.AddCommand(list, show, agents)
	root.AddCommand(cmd)
}

func runDocsList(ctx context.Context, w io.Writer, output string, st store.DocumentStore, projectID string) error {
	docs, err := st.ListDocuments(ctx, projectID)
	if err != nil {
		return err
	}
	if output == OutputJSON {
		type entry struct {
			Kind      domain.DocumentKind `json:"kind"`
			Bytes     int                 `json:"bytes"`
			UpdatedAt string              `json:"updated_at"`
		}
		out := make([]entry, 0, len(docs))
		for _, d := range docs {
			out = append(out, entry{Kind: d.Kind, Bytes: len(d.Content), UpdatedAt: d.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z07:00")})
		}
		return writeJSON(w, out)
	}
	if len(docs) == 0 {
		_, _ = fmt.Fprintln(w, "No documents generated yet.")
		return nil
	}
	t := newTable(w, "KIND", "BYTES", "UPDATED")
	for _, d := range docs {
		t.AppendRow([]any{d.Kind, len(d.Content), formatTime(d.UpdatedAt)})
	}
	t.Render()
	return nil
}

func runDocsShow(ctx context.Context, w io.Writer, output string, st store.DocumentStore, projectID string, kind domain.DocumentKind, raw bool) error {
	doc, err := st.GetDocument(ctx, projectID, kind)
	if err != nil {
		return err
	}
	if output == OutputJSON {
		return writeJSON(w, doc)
	}
	if raw || kind == domain.DocumentSchema || kind == domain.DocumentTree {
		_, _ = fmt.Fprintln(w, doc.Content)
		return nil
	}
	return renderMarkdown(w, doc.Content)
}

// runDocsAgents regenerates the agent files from the stored schema. With
// a directory only that directory's document is printed.
func runDocsAgents(ctx context.Context, w io.Writer, output string, st store.DocumentStore, projectID, dir string, raw bool) error {
	doc, err := st.GetDocument(ctx, projectID, domain.DocumentSchema)
	if err != nil {
		return err
	}
	files, err := generation.GenerateAgentFiles(doc.Content)
	if err != nil {
		return err
	}

	if dir != "" {
		want := schema.JoinPath(dir, constants.AgentReadmeFileName)
		var match []domain.AgentFile
		for _, f := range files {
			if f.Path == want {
				match = append(match, f)
			}
		}
		if len(match) == 0 {
			return fmt.Errorf("%w: no directory %q in the schema", errors.ErrInvalidArgument, dir)
		}
		files = match
	}

	if output == OutputJSON {
		return writeJSON(w, files)
	}
	for _, f := range files {
		if dir == "" {
			_, _ = fmt.Fprintf(w, "==> %s <==\n", f.Path)
		}
		if raw {
			_, _ = fmt.Fprintln(w, f.Content)
			continue
		}
		if err := renderMarkdown(w, f.Content); err != nil {
			return err
		}
	}
	return nil
}

// renderMarkdown renders md with glamour, falling back to plain text.
func renderMarkdown(w io.Writer, md string) error {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(markdownWrap),
	)
	if err != nil {
		_, _ = fmt.Fprintln(w, md)
		return nil //nolint:nilerr // plain text is an acceptable fallback
	}
	out, err := r.Render(md)
	if err != nil {
		_, _ = fmt.Fprintln(w, md)
		return nil //nolint:nilerr // plain text is an acceptable fallback
	}
	_, err = io.WriteString(w, out)
	return err
}
