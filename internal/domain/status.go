package domain

import "github.com/mrz1836/docgen/internal/constants"

// Re-export status types from constants so consumers can import domain types
// and status types together.
//
//	job := domain.GenerationJob{
//	    Status: domain.JobStatusPending,
//	}
type (
	// JobStatus represents the state of a generation job.
	JobStatus = constants.JobStatus

	// ProjectStatus represents the generation state recorded on a project.
	ProjectStatus = constants.ProjectStatus

	// StepStatus represents the progress state of a single stage.
	StepStatus = constants.StepStatus

	// RetryScope selects how much of the pipeline a retry re-runs.
	RetryScope = constants.RetryScope
)

// Re-export JobStatus constants for convenience.
const (
	JobStatusPending    = constants.JobStatusPending
	JobStatusProcessing = constants.JobStatusProcessing
	JobStatusCompleted  = constants.JobStatusCompleted
	JobStatusFailed     = constants.JobStatusFailed
	JobStatusCancelled  = constants.JobStatusCancelled
)

// Re-export ProjectStatus constants for convenience.
const (
	ProjectStatusPending    = constants.ProjectStatusPending
	ProjectStatusProcessing = constants.ProjectStatusProcessing
	ProjectStatusCompleted  = constants.ProjectStatusCompleted
	ProjectStatusFailed     = constants.ProjectStatusFailed
	ProjectStatusCancelled  = constants.ProjectStatusCancelled
)

// Re-export RetryScope constants for convenience.
const (
	RetryDownstream = constants.RetryDownstream
	RetrySingle     = constants.RetrySingle
)
