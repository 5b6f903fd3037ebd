package ai

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mrz1836/docgen/internal/config"
)

// ClaudeClient calls the Anthropic /messages endpoint.
type ClaudeClient struct {
	cfg        config.ClaudeConfig
	apiKey     string
	httpClient *http.Client
	logger     zerolog.Logger
}

var _ Provider = (*ClaudeClient)(nil)

// NewClaudeClient creates a client. httpClient may be shared with other providers.
func NewClaudeClient(cfg config.ClaudeConfig, apiKey string, httpClient *http.Client, logger zerolog.Logger) *ClaudeClient {
	if httpClient == nil {
		httpClient = NewHTTPClient(0)
	}
	return &ClaudeClient{
		cfg:        cfg,
		apiKey:     apiKey,
		httpClient: httpClient,
		logger:     logger.With().Str("component", "claude").Logger(),
	}
}

type messagesRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	System    string        `json:"system,omitempty"`
	Messages  []chatMessage `json:"messages"`
}

type messagesResponse struct {
	ID         string `json:"id"`
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
	Content    []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Name returns "claude".
func (c *ClaudeClient) Name() string { return NameClaude }

// ChatCompletion sends system as the top-level system prompt and user as the only message.
func (c *ClaudeClient) ChatCompletion(ctx context.Context, system, user string) (string, error) {
	return c.send(ctx, system, user)
}

// Generate sends prompt as the only user message.
func (c *ClaudeClient) Generate(ctx context.Context, prompt string) (string, error) {
	return c.send(ctx, "", prompt)
}

func (c *ClaudeClient) send(ctx context.Context, system, user string) (string, error) {
	req := messagesRequest{
		Model:     c.cfg.Model,
		MaxTokens: c.cfg.MaxTokens,
		System:    system,
		Messages:  []chatMessage{{Role: "user", Content: user}},
	}
	headers := map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": c.cfg.Version,
	}

	var resp messagesResponse
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/messages"
	if err := postJSON(ctx, c.httpClient, NameClaude, endpoint, headers, req, &resp, c.logger); err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	text := sb.String()
	if strings.TrimSpace(text) == "" {
		return "", errEmptyCompletion(NameClaude)
	}

	c.logger.Debug().
		Str("model", resp.Model).
		Int("output_tokens", resp.Usage.OutputTokens).
		Str("stop_reason", resp.StopReason).
		Msg("message received")
	return text, nil
}
