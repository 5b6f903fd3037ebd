package ai

import (
	"fmt"
	"net/http"
	"strings"

	docerrors "github.com/mrz1836/docgen/internal/errors"
)

// wrapProviderError tags err with the provider name and errors.ErrProvider.
func wrapProviderError(provider string, err error) error {
	return fmt.Errorf("%w: %s: %w", docerrors.ErrProvider, provider, err)
}

// classifyStatus turns a non-2xx response into a provider error whose message
// names the likely cause.
func classifyStatus(provider string, status int, body []byte) error {
	detail := strings.TrimSpace(string(body))

	var kind string
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = "authentication failed"
	case status == http.StatusTooManyRequests:
		kind = "rate limited"
	case status >= http.StatusInternalServerError:
		kind = "server error"
	default:
		kind = "request rejected"
	}

	if detail == "" {
		return fmt.Errorf("%w: %s: %s (status %d)", docerrors.ErrProvider, provider, kind, status)
	}
	return fmt.Errorf("%w: %s: %s (status %d): %s", docerrors.ErrProvider, provider, kind, status, detail)
}

// errEmptyCompletion reports a 2xx response that carried no text.
func errEmptyCompletion(provider string) error {
	return fmt.Errorf("%w: %s: empty completion", docerrors.ErrProvider, provider)
}
