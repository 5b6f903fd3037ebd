package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrz1836/docgen/internal/constants"
)

// maxErrorBody caps how much of a failed response body is quoted in errors.
const maxErrorBody = 512

// NewHTTPClient returns the shared HTTP client used by both providers.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = constants.DefaultHTTPTimeout
	}
	return &http.Client{Timeout: timeout}
}

// postJSON marshals payload, POSTs it to endpoint with headers and decodes a
// 2xx response into out. Non-2xx responses become a classified provider error.
func postJSON(ctx context.Context, client *http.Client, provider, endpoint string, headers map[string]string, payload, out any, logger zerolog.Logger) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return wrapProviderError(provider, fmt.Errorf("failed to marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return wrapProviderError(provider, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return wrapProviderError(provider, fmt.Errorf("request failed: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	logger.Debug().
		Str("provider", provider).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("provider call finished")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return classifyStatus(provider, resp.StatusCode, snippet)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return wrapProviderError(provider, fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}
