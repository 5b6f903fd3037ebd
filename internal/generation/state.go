// Package generation runs the document-generation pipeline.
//
// This file implements the job state machine, which enforces valid status
// transitions and maintains an audit trail of all status changes.
//
// Import rules:
//   - CAN import: internal/ai, internal/constants, internal/domain, internal/errors,
//     internal/metrics, internal/prompts, internal/queue, internal/scaffold,
//     internal/schema, internal/store, std lib
//   - MUST NOT import: internal/cli, internal/config
package generation

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/mrz1836/docgen/internal/constants"
	"github.com/mrz1836/docgen/internal/domain"
	docerrors "github.com/mrz1836/docgen/internal/errors"
)

// ValidTransitions defines all allowed job status transitions.
// Format: from_status -> []to_statuses
//
//	Pending → Processing, Cancelled
//	Processing → Completed, Failed, Cancelled
//	Completed, Failed, Cancelled → Processing (explicit retry)
//
//nolint:gochecknoglobals // Exported for testing and read-only lookup table
var ValidTransitions = map[constants.JobStatus][]constants.JobStatus{
	constants.JobStatusPending: {constants.JobStatusProcessing, constants.JobStatusCancelled},
	constants.JobStatusProcessing: {
		constants.JobStatusCompleted,
		constants.JobStatusFailed,
		constants.JobStatusCancelled,
	},
	constants.JobStatusCompleted: {constants.JobStatusProcessing},
	constants.JobStatusFailed:    {constants.JobStatusProcessing},
	constants.JobStatusCancelled: {constants.JobStatusProcessing},
}

// IsValidTransition checks if a transition from one status to another is allowed.
// Returns false for a transition to the same status.
func IsValidTransition(from, to constants.JobStatus) bool {
	if from == to {
		return false
	}
	return slices.Contains(ValidTransitions[from], to)
}

// CanRetry reports whether a job in status may be retried.
func CanRetry(status constants.JobStatus) bool {
	return status.IsTerminal()
}

// CanCancel reports whether a job in status may be cancelled.
func CanCancel(status constants.JobStatus) bool {
	return IsValidTransition(status, constants.JobStatusCancelled)
}

// Transition validates and applies a status transition to the job.
// It records the transition in the job's history and updates timestamps.
// The caller is responsible for persisting the updated job.
//
// Moving to Failed requires a non-empty reason, which becomes the job's
// FailureReason. Any other target clears it.
//
// Returns an error if:
//   - ctx is canceled
//   - job is nil
//   - The transition is invalid (returns wrapped ErrInvalidTransition)
func Transition(ctx context.Context, job *domain.GenerationJob, to constants.JobStatus, reason string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if job == nil {
		return fmt.Errorf("%w: job is nil", docerrors.ErrInvalidTransition)
	}

	from := job.Status
	if !IsValidTransition(from, to) {
		return fmt.Errorf("%w: cannot transition from %s to %s",
			docerrors.ErrInvalidTransition, from, to)
	}
	if to == constants.JobStatusFailed && reason == "" {
		return fmt.Errorf("%w: failed status requires a reason", docerrors.ErrInvalidTransition)
	}

	now := time.Now().UTC()

	job.Transitions = append(job.Transitions, domain.Transition{
		FromStatus: from,
		ToStatus:   to,
		Step:       job.Step,
		Timestamp:  now,
		Reason:     reason,
	})

	job.Status = to
	job.UpdatedAt = now

	if to == constants.JobStatusFailed {
		job.FailureReason = reason
	} else {
		job.FailureReason = ""
	}

	if to.IsTerminal() {
		job.CompletedAt = &now
	} else {
		job.CompletedAt = nil
	}

	return nil
}
