// Package errors provides centralized error handling for docgen.
//
// This package defines sentinel errors used for programmatic error categorization
// throughout the application. All error types can be checked using errors.Is().
//
// IMPORTANT: This package MUST NOT import any other internal packages.
// Only standard library imports are allowed.
package errors

import "errors"

// Pipeline failure taxonomy. Every stage failure wraps exactly one of these.
var (
	// ErrProvider indicates an upstream text-generation call failed
	// (transport error, non-2xx response, empty completion).
	ErrProvider = errors.New("provider error")

	// ErrParse indicates the communication schema text was not well-formed JSON
	// or was missing a required field.
	ErrParse = errors.New("schema parse error")

	// ErrValidation indicates the communication schema parsed but violates a
	// structural rule (empty directory structure, criticality out of range).
	ErrValidation = errors.New("schema validation error")

	// ErrPersistence indicates the document/project/job store failed.
	ErrPersistence = errors.New("persistence error")

	// ErrRemoteService indicates the repository host rejected an operation
	// (authentication, rate limit, name collision, network).
	ErrRemoteService = errors.New("remote service error")
)

// Lookup and lifecycle errors.
var (
	// ErrProjectNotFound indicates the requested project does not exist.
	ErrProjectNotFound = errors.New("project not found")

	// ErrJobNotFound indicates the requested generation job does not exist.
	ErrJobNotFound = errors.New("job not found")

	// ErrDocumentNotFound indicates no document of the requested kind was
	// persisted for the project.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrGenerationInProgress indicates another job already holds the project.
	ErrGenerationInProgress = errors.New("generation already in progress for project")

	// ErrInvalidTransition indicates an attempt to make an invalid state transition.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrInvalidStep indicates an unknown generation step name.
	ErrInvalidStep = errors.New("invalid generation step")

	// ErrJobCanceled indicates the job was canceled while it was running.
	ErrJobCanceled = errors.New("job canceled")

	// ErrQueueClosed indicates the job queue was closed while waiting.
	ErrQueueClosed = errors.New("queue closed")
)

// Input and configuration errors.
var (
	// ErrEmptyValue indicates that a required value was empty.
	ErrEmptyValue = errors.New("value cannot be empty")

	// ErrConfigNil indicates that a nil config was passed to validation.
	ErrConfigNil = errors.New("config is nil")

	// ErrConfigInvalid indicates an invalid configuration value.
	ErrConfigInvalid = errors.New("invalid configuration")

	// ErrConfigNotFound indicates that the configuration file was not found.
	ErrConfigNotFound = errors.New("config file not found")

	// ErrMissingCredential indicates an API token environment variable is unset.
	ErrMissingCredential = errors.New("missing credential")

	// ErrInvalidArgument indicates that an invalid argument was provided.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidOutputFormat indicates an invalid output format was specified.
	ErrInvalidOutputFormat = errors.New("invalid output format")
)

// ExitCode2Error wraps an error to indicate exit code 2 should be used.
type ExitCode2Error struct {
	Err error
}

// NewExitCode2Error wraps an error to indicate exit code 2.
func NewExitCode2Error(err error) *ExitCode2Error {
	return &ExitCode2Error{Err: err}
}

// Error implements the error interface.
func (e *ExitCode2Error) Error() string {
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *ExitCode2Error) Unwrap() error {
	return e.Err
}

// IsExitCode2Error checks if an error should result in exit code 2.
func IsExitCode2Error(err error) bool {
	var e *ExitCode2Error
	return errors.As(err, &e)
}
