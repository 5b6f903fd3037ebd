// Package testutil provides shared fixtures for docgen tests.
//
// It should only be imported by test files (*_test.go).
package testutil

import "errors"

// Mock errors used to simulate upstream failures in tests.
var (
	// ErrMockUpstream simulates a provider answering with a server error.
	ErrMockUpstream = errors.New("upstream returned 503")

	// ErrMockConflict simulates the repository host rejecting a write.
	ErrMockConflict = errors.New("409 conflict")

	// ErrMockConnReset simulates a dropped database connection.
	ErrMockConnReset = errors.New("connection reset by peer")

	// ErrMockHost simulates an arbitrary repository host failure.
	ErrMockHost = errors.New("boom")
)
