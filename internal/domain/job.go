// Package domain provides shared domain types for the docgen generation pipeline.
// These types are used across all internal packages to ensure consistent data structures.
//
// This package follows strict import rules:
//   - CAN import: internal/constants, internal/errors, standard library
//   - MUST NOT import: any other internal packages
//
// All JSON field names use snake_case.
package domain

import (
	"time"

	"github.com/mrz1836/docgen/internal/constants"
)

// GenerationJob tracks one generation request through the pipeline.
//
// Example JSON representation:
//
//	{
//	    "id": "0b6f1c5e-5d1f-4b55-9c1a-0d3c3e0d2a11",
//	    "project_id": "p-1",
//	    "user_id": "u-1",
//	    "prompt": "build a todo app",
//	    "step": "architecture",
//	    "status": "failed",
//	    "failure_reason": "Architecture stage failed: provider error",
//	    "steps": [...],
//	    "transitions": [...],
//	    "created_at": "2026-10-18T10:00:00Z",
//	    "updated_at": "2026-10-18T10:00:04Z"
//	}
type GenerationJob struct {
	// ID is the unique identifier for the job (uuid).
	ID string `json:"id"`

	// ProjectID links the job to the project it generates documents for.
	ProjectID string `json:"project_id"`

	// UserID is the owner of the project at submission time.
	UserID string `json:"user_id"`

	// Prompt is the caller's project idea fed to the first stage.
	Prompt string `json:"prompt"`

	// Step is the stage currently executing, or the last one attempted.
	Step GenerationStep `json:"step"`

	// Status is the job lifecycle state.
	Status JobStatus `json:"status"`

	// FailureReason is set if and only if Status is failed.
	FailureReason string `json:"failure_reason,omitempty"`

	// CancelRequested is raised by Cancel and observed between stages.
	CancelRequested bool `json:"cancel_requested,omitempty"`

	// Steps holds one record per pipeline stage, in pipeline order.
	Steps []StepRecord `json:"steps"`

	// Transitions is the status audit trail.
	Transitions []Transition `json:"transitions,omitempty"`

	// RepositoryURL is recorded once the repository has been created.
	RepositoryURL string `json:"repository_url,omitempty"`

	// Repository identifies the created repository so a retried scaffold
	// stage can resume into it.
	Repository *RepositoryRef `json:"repository,omitempty"`

	// CommittedFiles lists the paths already committed to Repository.
	CommittedFiles []string `json:"committed_files,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// SchemaVersion indicates the version of the persisted job record.
	SchemaVersion string `json:"schema_version"`
}

// RepositoryRef names a repository on the repository host.
type RepositoryRef struct {
	Owner string `json:"owner"`
	Name  string `json:"name"`
	URL   string `json:"url"`
}

// StepRecord captures the progress of a single stage within a job.
type StepRecord struct {
	Step        GenerationStep       `json:"step"`
	Status      constants.StepStatus `json:"status"`
	Attempts    int                  `json:"attempts"`
	StartedAt   *time.Time           `json:"started_at,omitempty"`
	CompletedAt *time.Time           `json:"completed_at,omitempty"`
	Error       string               `json:"error,omitempty"`
}

// Transition is one entry of the job status audit trail.
type Transition struct {
	FromStatus JobStatus      `json:"from_status"`
	ToStatus   JobStatus      `json:"to_status"`
	Step       GenerationStep `json:"step,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
	Reason     string         `json:"reason,omitempty"`
}

// NewStepRecords returns a pending record for every pipeline stage.
func NewStepRecords() []StepRecord {
	steps := Steps()
	records := make([]StepRecord, len(steps))
	for i, step := range steps {
		records[i] = StepRecord{Step: step, Status: constants.StepStatusPending}
	}
	return records
}

// Record returns the record for step, or nil if the job has none.
func (j *GenerationJob) Record(step GenerationStep) *StepRecord {
	for i := range j.Steps {
		if j.Steps[i].Step == step {
			return &j.Steps[i]
		}
	}
	return nil
}

// AllStepsCompleted reports whether every stage record is completed.
func (j *GenerationJob) AllStepsCompleted() bool {
	if len(j.Steps) != len(stepOrder) {
		return false
	}
	for _, rec := range j.Steps {
		if rec.Status != constants.StepStatusCompleted {
			return false
		}
	}
	return true
}
