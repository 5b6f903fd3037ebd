package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/mrz1836/docgen/internal/errors"
)

// writeJSON writes v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printError writes the user-facing message for err, its suggested action
// and the underlying detail.
func printError(w io.Writer, err error) {
	msg, action := errors.Actionable(err)
	_, _ = fmt.Fprintf(w, "Error: %s\n", msg)
	if detail := err.Error(); detail != msg {
		_, _ = fmt.Fprintf(w, "  %s\n", detail)
	}
	if action != "" {
		_, _ = fmt.Fprintf(w, "  → %s\n", action)
	}
}

// newTable returns a table writer with the docgen style.
func newTable(w io.Writer, header ...any) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.Style().Options.SeparateRows = false
	t.AppendHeader(table.Row(header))
	return t
}

// formatTime renders a timestamp for tables; zero renders as "-".
func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
