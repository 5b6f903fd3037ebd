package ai

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mrz1836/docgen/internal/config"
)

// OpenAIClient calls an OpenAI-compatible /chat/completions endpoint.
type OpenAIClient struct {
	cfg        config.OpenAIConfig
	apiKey     string
	httpClient *http.Client
	logger     zerolog.Logger
}

var _ Provider = (*OpenAIClient)(nil)

// NewOpenAIClient creates a client. httpClient may be shared with other providers.
func NewOpenAIClient(cfg config.OpenAIConfig, apiKey string, httpClient *http.Client, logger zerolog.Logger) *OpenAIClient {
	if httpClient == nil {
		httpClient = NewHTTPClient(0)
	}
	return &OpenAIClient{
		cfg:        cfg,
		apiKey:     apiKey,
		httpClient: httpClient,
		logger:     logger.With().Str("component", "openai").Logger(),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int         `json:"index"`
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Name returns "openai".
func (c *OpenAIClient) Name() string { return NameOpenAI }

// ChatCompletion sends a system and a user message.
func (c *OpenAIClient) ChatCompletion(ctx context.Context, system, user string) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if system != "" {
		messages = append(messages, chatMessage{Role: "system", Content: system})
	}
	messages = append(messages, chatMessage{Role: "user", Content: user})
	return c.complete(ctx, messages)
}

// Generate sends prompt as a single user message.
func (c *OpenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	return c.complete(ctx, []chatMessage{{Role: "user", Content: prompt}})
}

func (c *OpenAIClient) complete(ctx context.Context, messages []chatMessage) (string, error) {
	req := chatRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	}
	headers := map[string]string{}
	if c.apiKey != "" {
		headers["Authorization"] = "Bearer " + c.apiKey
	}

	var resp chatResponse
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	if err := postJSON(ctx, c.httpClient, NameOpenAI, endpoint, headers, req, &resp, c.logger); err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", errEmptyCompletion(NameOpenAI)
	}

	c.logger.Debug().
		Str("model", resp.Model).
		Int("total_tokens", resp.Usage.TotalTokens).
		Str("finish_reason", resp.Choices[0].FinishReason).
		Msg("chat completion received")
	return resp.Choices[0].Message.Content, nil
}
