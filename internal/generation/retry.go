package generation

import (
	"context"
	"fmt"
	"time"

	"github.com/mrz1836/docgen/internal/constants"
	"github.com/mrz1836/docgen/internal/domain"
	docerrors "github.com/mrz1836/docgen/internal/errors"
)

// RetryStep re-runs a terminal job starting at step and blocks until the
// job is terminal again.
//
// With RetryDownstream, step and every later stage run; with RetrySingle
// only step runs. Documents produced by earlier stages are loaded from the
// store, so a missing prerequisite fails with ErrDocumentNotFound before
// anything changes. The project must not be held by another job.
func (o *Orchestrator) RetryStep(ctx context.Context, jobID string, step domain.GenerationStep, scope constants.RetryScope) (*domain.GenerationJob, error) {
	if !step.Valid() {
		return nil, fmt.Errorf("%w: %q", docerrors.ErrInvalidStep, step)
	}
	if scope == "" {
		scope = constants.RetryDownstream
	}
	if scope != constants.RetryDownstream && scope != constants.RetrySingle {
		return nil, fmt.Errorf("%w: retry scope %q", docerrors.ErrInvalidArgument, scope)
	}

	job, err := o.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !CanRetry(job.Status) {
		return job, fmt.Errorf("%w: job %s is %s", docerrors.ErrInvalidTransition, jobID, job.Status)
	}

	steps := stepsToRun(step, scope)
	out, err := o.loadPrerequisites(ctx, job.ProjectID, steps)
	if err != nil {
		return job, err
	}

	project, err := o.store.GetProject(ctx, job.ProjectID)
	if err != nil {
		return job, err
	}
	claimed, err := o.store.CompareAndSwapProjectStatus(ctx, job.ProjectID, constants.ClaimableProjectStatuses, constants.ProjectStatusProcessing)
	if err != nil {
		return job, err
	}
	if !claimed {
		return job, docerrors.Wrapf(docerrors.ErrGenerationInProgress, "project %s", job.ProjectID)
	}

	previous := job.Status
	reason := fmt.Sprintf("retry from %s (%s)", step, scope)
	if err := Transition(ctx, job, constants.JobStatusProcessing, reason); err != nil {
		o.releaseProject(context.WithoutCancel(ctx), job.ProjectID, project.Status, project.StatusReason)
		return job, err
	}
	resetForRetry(job, steps)

	swapped, err := o.store.CompareAndSwapJob(ctx, job, previous)
	if err == nil && !swapped {
		err = fmt.Errorf("%w: job %s changed during retry", docerrors.ErrInvalidTransition, jobID)
	}
	if err != nil {
		o.releaseProject(context.WithoutCancel(ctx), job.ProjectID, project.Status, project.StatusReason)
		return job, err
	}

	o.logger.Info().
		Str("job_id", job.ID).
		Str("project_id", job.ProjectID).
		Str("step", step.String()).
		Str("scope", scope.String()).
		Msg("retrying generation")

	return job, o.run(ctx, job, steps, out)
}

// resetForRetry clears the records of the stages about to run. Re-running
// agent_files or any earlier stage invalidates the scaffolded repository,
// so the next scaffold creates a fresh one; a retry of github_scaffold
// alone resumes into the repository the job already created.
func resetForRetry(job *domain.GenerationJob, steps []domain.GenerationStep) {
	for _, step := range steps {
		if rec := job.Record(step); rec != nil {
			rec.Status = constants.StepStatusPending
			rec.Error = ""
			rec.StartedAt = nil
			rec.CompletedAt = nil
		}
	}
	job.Step = steps[0]
	job.CancelRequested = false
	job.UpdatedAt = time.Now().UTC()

	if steps[0].Index() < domain.StepGitHubScaffold.Index() && includes(steps, domain.StepGitHubScaffold) {
		job.Repository = nil
		job.CommittedFiles = nil
		job.RepositoryURL = ""
	}
}

func includes(steps []domain.GenerationStep, step domain.GenerationStep) bool {
	for _, s := range steps {
		if s == step {
			return true
		}
	}
	return false
}

// Cancel stops a job. A pending job is cancelled immediately. A running
// job gets a persisted cancel request, observed between stages, and its
// in-process context is canceled so an in-flight stage may stop early.
// Terminal jobs return ErrInvalidTransition.
func (o *Orchestrator) Cancel(ctx context.Context, jobID string) (*domain.GenerationJob, error) {
	job, err := o.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	switch job.Status {
	case constants.JobStatusPending:
		if err := Transition(ctx, job, constants.JobStatusCancelled, "cancelled before start"); err != nil {
			return job, err
		}
		swapped, err := o.store.CompareAndSwapJob(ctx, job, constants.JobStatusPending)
		if err != nil {
			return job, err
		}
		if !swapped {
			// A worker started it in the meantime.
			return o.Cancel(ctx, jobID)
		}
		o.releaseProject(ctx, job.ProjectID, constants.ProjectStatusCancelled, "generation cancelled")
		o.metrics.JobCounted(string(constants.JobStatusCancelled))
		o.logger.Info().Str("job_id", jobID).Msg("pending job cancelled")
		return job, nil

	case constants.JobStatusProcessing:
		requested, err := o.store.RequestJobCancel(ctx, jobID)
		if err != nil {
			return job, err
		}
		if !requested {
			// Finished in the meantime.
			current, getErr := o.store.GetJob(ctx, jobID)
			if getErr != nil {
				return job, getErr
			}
			return current, fmt.Errorf("%w: job %s is %s", docerrors.ErrInvalidTransition, jobID, current.Status)
		}
		if cancel, ok := o.running.Load(jobID); ok {
			cancel.(context.CancelFunc)()
		}
		job.CancelRequested = true
		o.logger.Info().Str("job_id", jobID).Msg("cancel requested for running job")
		return job, nil

	default:
		return job, fmt.Errorf("%w: job %s is already %s", docerrors.ErrInvalidTransition, jobID, job.Status)
	}
}
