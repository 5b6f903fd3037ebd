// Package main provides the entry point for the docgen CLI.
package main

import (
	"context"
	"os"

	"github.com/mrz1836/docgen/internal/cli"
)

// Set by goreleaser via -ldflags.
//
//nolint:gochecknoglobals // Build metadata
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx := context.Background()
	err := cli.Execute(ctx, cli.BuildInfo{Version: version, Commit: commit, Date: date})
	if err != nil {
		os.Exit(cli.ExitCodeForError(err))
	}
}
