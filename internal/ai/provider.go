// Package ai provides the text-generation providers consumed by the
// generation pipeline: an OpenAI-compatible chat-completions client and an
// Anthropic messages client, both behind the Provider interface.
//
// Clients are constructed once, hold no per-request state and are safe for
// concurrent use by many jobs. They never retry; a failed call is returned
// wrapped in errors.ErrProvider and the caller decides whether to retry.
//
// Import rules:
//   - CAN import: internal/config, internal/constants, internal/errors, std lib
//   - MUST NOT import: internal/generation, internal/store, internal/cli
package ai

import "context"

// Provider is a text-completion backend.
type Provider interface {
	// ChatCompletion sends a system prompt and a user prompt and returns the reply text.
	ChatCompletion(ctx context.Context, system, user string) (string, error)

	// Generate sends a single prompt and returns the reply text.
	Generate(ctx context.Context, prompt string) (string, error)

	// Name identifies the provider in logs and metrics.
	Name() string
}

// Provider names.
const (
	NameOpenAI = "openai"
	NameClaude = "claude"
)
