package ai

import (
	"testing"
)

// EnsureNoRealAPIKeys clears provider keys for the duration of the test so
// nothing can reach a real endpoint by accident. All tests in this package
// talk to httptest servers.
func EnsureNoRealAPIKeys(t *testing.T) {
	t.Helper()
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
}
