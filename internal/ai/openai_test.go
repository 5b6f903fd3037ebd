package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/docgen/internal/config"
	docerrors "github.com/mrz1836/docgen/internal/errors"
)

func newOpenAITestClient(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	EnsureNoRealAPIKeys(t)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.DefaultConfig().Providers.OpenAI
	cfg.BaseURL = srv.URL + "/v1/"
	return NewOpenAIClient(cfg, "sk-test", NewHTTPClient(5*time.Second), zerolog.Nop())
}

func TestOpenAIClient_ChatCompletion(t *testing.T) {
	var captured chatRequest
	client := newOpenAITestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		_, _ = w.Write([]byte(`{"id":"c1","model":"gpt-4o","choices":[{"index":0,"message":{"role":"assistant","content":"the plan"},"finish_reason":"stop"}],"usage":{"total_tokens":12}}`))
	})

	text, err := client.ChatCompletion(context.Background(), "you are a planner", "build a todo app")
	require.NoError(t, err)
	assert.Equal(t, "the plan", text)

	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, "you are a planner", captured.Messages[0].Content)
	assert.Equal(t, "user", captured.Messages[1].Role)
	assert.Equal(t, "gpt-4o", captured.Model)
	assert.False(t, captured.Stream)
	assert.Equal(t, NameOpenAI, client.Name())
}

func TestOpenAIClient_Generate(t *testing.T) {
	var captured chatRequest
	client := newOpenAITestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`))
	})

	text, err := client.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	require.Len(t, captured.Messages, 1)
	assert.Equal(t, "user", captured.Messages[0].Role)
}

func TestOpenAIClient_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		contains string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":"bad key"}`, "authentication failed"},
		{"rate limited", http.StatusTooManyRequests, "", "rate limited"},
		{"server error", http.StatusBadGateway, "upstream", "server error"},
		{"bad request", http.StatusBadRequest, "nope", "request rejected"},
		{"no choices", http.StatusOK, `{"choices":[]}`, "empty completion"},
		{"blank content", http.StatusOK, `{"choices":[{"message":{"content":"   "}}]}`, "empty completion"},
		{"invalid json", http.StatusOK, `{not json`, "failed to decode"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			calls := 0
			client := newOpenAITestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				calls++
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})

			_, err := client.ChatCompletion(context.Background(), "s", "u")
			require.ErrorIs(t, err, docerrors.ErrProvider)
			assert.Contains(t, err.Error(), tc.contains)
			assert.Equal(t, 1, calls, "providers never retry")
		})
	}
}

func TestOpenAIClient_ContextCanceled(t *testing.T) {
	client := newOpenAITestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"late"}}]}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Generate(ctx, "x")
	require.ErrorIs(t, err, docerrors.ErrProvider)
	require.ErrorIs(t, err, context.Canceled)
}
