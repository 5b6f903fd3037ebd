package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/mrz1836/docgen/internal/ai"
	"github.com/mrz1836/docgen/internal/constants"
	"github.com/mrz1836/docgen/internal/domain"
	docerrors "github.com/mrz1836/docgen/internal/errors"
	"github.com/mrz1836/docgen/internal/metrics"
	"github.com/mrz1836/docgen/internal/queue"
	"github.com/mrz1836/docgen/internal/scaffold"
	"github.com/mrz1836/docgen/internal/store"
)

const tracerName = "github.com/mrz1836/docgen/internal/generation"

// RepositoryWriter creates the remote repository and commits files to it.
// *scaffold.Scaffolder implements it.
type RepositoryWriter interface {
	CreateRepository(ctx context.Context, name, description string, private bool) (*scaffold.Repository, error)
	CreateDirectoryStructure(ctx context.Context, repo *scaffold.Repository, files []scaffold.File) (*scaffold.Result, error)
}

// Config holds orchestrator settings.
type Config struct {
	// StageTimeout bounds each stage. Zero disables the limit.
	StageTimeout time.Duration

	// PrivateRepos creates private repositories.
	PrivateRepos bool
}

// DefaultConfig returns the default orchestrator settings.
func DefaultConfig() Config {
	return Config{StageTimeout: constants.DefaultStageTimeout}
}

// Orchestrator drives generation jobs through the eight pipeline stages.
// It is safe for concurrent use; each job runs its stages sequentially.
type Orchestrator struct {
	store   store.Store
	openai  ai.Provider
	claude  ai.Provider
	repos   RepositoryWriter
	queue   queue.Queue
	metrics *metrics.Metrics
	tracer  trace.Tracer
	config  Config
	logger  zerolog.Logger

	// running maps job id to the cancel func of its in-process run.
	running sync.Map
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithQueue sets the queue used by Submit.
func WithQueue(q queue.Queue) Option {
	return func(o *Orchestrator) {
		o.queue = q
	}
}

// WithMetrics sets the Prometheus collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithTracer overrides the OpenTelemetry tracer. The default comes from the
// global tracer provider.
func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) {
		o.tracer = t
	}
}

// New creates an orchestrator. openai serves the dev plan, architecture,
// blueprint and directory tree stages; claude serves the readme and
// communication schema stages.
func New(st store.Store, openai, claude ai.Provider, repos RepositoryWriter, cfg Config, logger zerolog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:  st,
		openai: openai,
		claude: claude,
		repos:  repos,
		config: cfg,
		logger: logger.With().Str("component", "orchestrator").Logger(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// StartGeneration claims the project, creates a job and runs every stage
// synchronously until the job reaches a terminal status.
//
// Returns ErrGenerationInProgress if another job holds the project. When a
// stage fails the job is returned together with the error so the caller
// can inspect it.
func (o *Orchestrator) StartGeneration(ctx context.Context, projectID, prompt string) (*domain.GenerationJob, error) {
	job, err := o.CreateJob(ctx, projectID, prompt)
	if err != nil {
		return nil, err
	}
	return o.Execute(ctx, job.ID)
}

// Submit claims the project, persists a pending job and enqueues it for a
// worker. It returns as soon as the job id is queued.
func (o *Orchestrator) Submit(ctx context.Context, projectID, prompt string) (*domain.GenerationJob, error) {
	if o.queue == nil {
		return nil, fmt.Errorf("%w: no job queue configured", docerrors.ErrInvalidArgument)
	}
	job, err := o.CreateJob(ctx, projectID, prompt)
	if err != nil {
		return nil, err
	}

	if err := o.queue.Enqueue(ctx, job.ID); err != nil {
		reason := "job could not be queued: " + err.Error()
		persistCtx := context.WithoutCancel(ctx)
		if transErr := Transition(persistCtx, job, constants.JobStatusCancelled, reason); transErr == nil {
			if saveErr := o.store.UpdateJob(persistCtx, job); saveErr != nil {
				o.logger.Warn().Err(saveErr).Str("job_id", job.ID).Msg("failed to save unqueued job")
			}
		}
		o.releaseProject(persistCtx, job.ProjectID, constants.ProjectStatusCancelled, reason)
		return job, err
	}

	o.logger.Info().
		Str("job_id", job.ID).
		Str("project_id", projectID).
		Msg("generation job queued")
	return job, nil
}

// CreateJob atomically moves the project to processing and persists a
// pending job without running it. Callers that want to cancel the job
// while it runs use this together with Execute.
func (o *Orchestrator) CreateJob(ctx context.Context, projectID, prompt string) (*domain.GenerationJob, error) {
	if strings.TrimSpace(projectID) == "" {
		return nil, docerrors.Wrap(docerrors.ErrEmptyValue, "project id")
	}
	if strings.TrimSpace(prompt) == "" {
		return nil, docerrors.Wrap(docerrors.ErrEmptyValue, "prompt")
	}

	owner, err := o.store.GetProjectOwner(ctx, projectID)
	if err != nil {
		return nil, err
	}

	claimed, err := o.store.CompareAndSwapProjectStatus(ctx, projectID, constants.ClaimableProjectStatuses, constants.ProjectStatusProcessing)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, docerrors.Wrapf(docerrors.ErrGenerationInProgress, "project %s", projectID)
	}

	now := time.Now().UTC()
	job := &domain.GenerationJob{
		ID:            uuid.NewString(),
		ProjectID:     projectID,
		UserID:        owner,
		Prompt:        prompt,
		Step:          domain.StepDevPlan,
		Status:        constants.JobStatusPending,
		Steps:         domain.NewStepRecords(),
		Transitions:   make([]domain.Transition, 0),
		CreatedAt:     now,
		UpdatedAt:     now,
		SchemaVersion: constants.JobSchemaVersion,
	}

	if err := o.store.CreateJob(ctx, job); err != nil {
		o.releaseProject(context.WithoutCancel(ctx), projectID, constants.ProjectStatusFailed, "job could not be persisted")
		return nil, err
	}
	if err := o.store.SetProgress(ctx, projectID, 0); err != nil {
		o.logger.Warn().Err(err).Str("project_id", projectID).Msg("failed to reset progress")
	}

	o.logger.Info().
		Str("job_id", job.ID).
		Str("project_id", projectID).
		Str("user_id", owner).
		Msg("generation job created")
	return job, nil
}

// Execute runs a pending job to a terminal status. Workers call it with
// ids taken from the queue.
func (o *Orchestrator) Execute(ctx context.Context, jobID string) (*domain.GenerationJob, error) {
	job, err := o.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != constants.JobStatusPending {
		return job, fmt.Errorf("%w: job %s is %s, not pending", docerrors.ErrInvalidTransition, jobID, job.Status)
	}

	if err := Transition(ctx, job, constants.JobStatusProcessing, "generation started"); err != nil {
		return job, err
	}
	swapped, err := o.store.CompareAndSwapJob(ctx, job, constants.JobStatusPending)
	if err != nil {
		o.releaseProject(context.WithoutCancel(ctx), job.ProjectID, constants.ProjectStatusFailed,
			fmt.Sprintf("job %s could not be started: %v", jobID, err))
		return job, err
	}
	if !swapped {
		// Cancelled (or picked up elsewhere) between the read and the swap.
		current, getErr := o.store.GetJob(ctx, jobID)
		if getErr != nil {
			return job, getErr
		}
		return current, fmt.Errorf("%w: job %s is %s, not pending", docerrors.ErrInvalidTransition, jobID, current.Status)
	}

	return job, o.run(ctx, job, domain.Steps(), newOutputs())
}

// run executes steps in order and drives the job to a terminal status.
// Status bookkeeping after a failure or cancellation uses a context that
// survives cancellation of ctx.
func (o *Orchestrator) run(ctx context.Context, job *domain.GenerationJob, steps []domain.GenerationStep, out *outputs) error {
	persistCtx := context.WithoutCancel(ctx)

	runCtx, cancel := context.WithCancel(ctx)
	o.running.Store(job.ID, cancel)
	defer func() {
		o.running.Delete(job.ID)
		cancel()
	}()

	o.metrics.JobStarted()
	defer func() {
		o.metrics.JobFinished(string(job.Status))
	}()

	runCtx = o.injectLoggerContext(runCtx, job)
	logger := zerolog.Ctx(runCtx)

	project, err := o.store.GetProject(runCtx, job.ProjectID)
	if err != nil {
		return o.failJob(persistCtx, job, job.Step, err)
	}

	logger.Info().
		Int("stages", len(steps)).
		Str("from_step", steps[0].String()).
		Msg("running generation stages")

	for _, step := range steps {
		if o.cancelRequested(persistCtx, job) {
			return o.cancelJob(persistCtx, job, step)
		}
		if err := runCtx.Err(); err != nil {
			return o.failJob(persistCtx, job, step, err)
		}

		if err := o.executeStage(runCtx, job, project, step, out); err != nil {
			if errors.Is(err, context.Canceled) && o.cancelRequested(persistCtx, job) {
				return o.cancelJob(persistCtx, job, step)
			}
			return o.failJob(persistCtx, job, step, err)
		}
	}

	return o.completeJob(persistCtx, job)
}

// cancelRequested reports whether a cancel was requested for the job,
// either in this process or through the store.
func (o *Orchestrator) cancelRequested(ctx context.Context, job *domain.GenerationJob) bool {
	if job.CancelRequested {
		return true
	}
	stored, err := o.store.GetJob(ctx, job.ID)
	if err != nil {
		return false
	}
	job.CancelRequested = stored.CancelRequested
	return stored.CancelRequested
}

// failJob records the failing stage, moves the job and project to failed
// and returns the stage error annotated with the stage name.
func (o *Orchestrator) failJob(ctx context.Context, job *domain.GenerationJob, step domain.GenerationStep, cause error) error {
	reason := fmt.Sprintf("%s stage failed: %v", step.DisplayName(), cause)

	if rec := job.Record(step); rec != nil {
		now := time.Now().UTC()
		rec.Status = constants.StepStatusFailed
		rec.Error = cause.Error()
		rec.CompletedAt = &now
	}
	job.Step = step

	if err := Transition(ctx, job, constants.JobStatusFailed, reason); err != nil {
		o.logger.Error().Err(err).Str("job_id", job.ID).Msg("failed to transition job to failed")
	}
	if err := o.store.UpdateJob(ctx, job); err != nil {
		o.logger.Error().Err(err).Str("job_id", job.ID).Msg("failed to save failed job")
	}
	o.releaseProject(ctx, job.ProjectID, constants.ProjectStatusFailed, reason)

	o.logger.Error().
		Err(cause).
		Str("job_id", job.ID).
		Str("project_id", job.ProjectID).
		Str("step", step.String()).
		Msg("generation failed")

	return docerrors.Wrapf(cause, "%s stage failed", step.DisplayName())
}

// cancelJob moves the job and project to cancelled. step is the stage that
// was about to run or was interrupted.
func (o *Orchestrator) cancelJob(ctx context.Context, job *domain.GenerationJob, step domain.GenerationStep) error {
	if rec := job.Record(step); rec != nil && rec.Status == constants.StepStatusRunning {
		rec.Status = constants.StepStatusPending
		rec.Error = "cancelled"
	}
	job.Step = step

	if err := Transition(ctx, job, constants.JobStatusCancelled, "cancelled by request"); err != nil {
		o.logger.Error().Err(err).Str("job_id", job.ID).Msg("failed to transition job to cancelled")
	}
	if err := o.store.UpdateJob(ctx, job); err != nil {
		o.logger.Error().Err(err).Str("job_id", job.ID).Msg("failed to save cancelled job")
	}
	o.releaseProject(ctx, job.ProjectID, constants.ProjectStatusCancelled, "generation cancelled")

	o.logger.Info().
		Str("job_id", job.ID).
		Str("step", step.String()).
		Msg("generation cancelled")

	return docerrors.Wrapf(docerrors.ErrJobCanceled, "job %s", job.ID)
}

// completeJob moves the project and then the job to their final status.
// The project is completed only when every stage of the job has completed,
// otherwise it returns to pending. Any bookkeeping failure fails the job
// and releases the project so a later generation can claim it.
func (o *Orchestrator) completeJob(ctx context.Context, job *domain.GenerationJob) error {
	projectStatus := constants.ProjectStatusPending
	if job.AllStepsCompleted() {
		projectStatus = constants.ProjectStatusCompleted
	}

	if err := o.finishProject(ctx, job, projectStatus); err != nil {
		return o.abortCompletion(ctx, job, err)
	}

	before := *job
	if err := Transition(ctx, job, constants.JobStatusCompleted, "all requested stages completed"); err != nil {
		return o.abortCompletion(ctx, job, err)
	}
	if err := o.store.UpdateJob(ctx, job); err != nil {
		*job = before
		return o.abortCompletion(ctx, job, err)
	}

	o.logger.Info().
		Str("job_id", job.ID).
		Str("project_id", job.ProjectID).
		Str("project_status", string(projectStatus)).
		Str("repository_url", job.RepositoryURL).
		Msg("generation completed")
	return nil
}

// finishProject records the final progress, repository URL and status of
// the job's project.
func (o *Orchestrator) finishProject(ctx context.Context, job *domain.GenerationJob, status constants.ProjectStatus) error {
	if status == constants.ProjectStatusCompleted {
		if err := o.store.SetProgress(ctx, job.ProjectID, 100); err != nil {
			return err
		}
		if job.RepositoryURL != "" {
			if err := o.store.SetRepositoryURL(ctx, job.ProjectID, job.RepositoryURL); err != nil {
				return err
			}
		}
	}
	return o.store.UpdateProjectStatus(ctx, job.ProjectID, status, "")
}

// abortCompletion fails a job whose stages all succeeded but whose final
// bookkeeping could not be saved. The returned error wraps ErrPersistence.
func (o *Orchestrator) abortCompletion(ctx context.Context, job *domain.GenerationJob, cause error) error {
	if !errors.Is(cause, docerrors.ErrPersistence) {
		cause = fmt.Errorf("%w: %w", docerrors.ErrPersistence, cause)
	}
	reason := fmt.Sprintf("finishing generation failed: %v", cause)

	if err := Transition(ctx, job, constants.JobStatusFailed, reason); err != nil {
		o.logger.Error().Err(err).Str("job_id", job.ID).Msg("failed to transition job to failed")
	}
	if err := o.store.UpdateJob(ctx, job); err != nil {
		o.logger.Error().Err(err).Str("job_id", job.ID).Msg("failed to save failed job")
	}
	o.releaseProject(ctx, job.ProjectID, constants.ProjectStatusFailed, reason)

	o.logger.Error().
		Err(cause).
		Str("job_id", job.ID).
		Str("project_id", job.ProjectID).
		Msg("generation bookkeeping failed")

	return docerrors.Wrap(cause, "finish generation")
}

// releaseProject sets the project's status, logging instead of failing.
func (o *Orchestrator) releaseProject(ctx context.Context, projectID string, status constants.ProjectStatus, reason string) {
	if err := o.store.UpdateProjectStatus(ctx, projectID, status, reason); err != nil {
		o.logger.Error().
			Err(err).
			Str("project_id", projectID).
			Str("status", string(status)).
			Msg("failed to update project status")
	}
}

// injectLoggerContext creates a context with an enriched logger containing
// job_id and project_id fields. Stages retrieve it with zerolog.Ctx(ctx).
func (o *Orchestrator) injectLoggerContext(ctx context.Context, job *domain.GenerationJob) context.Context {
	logger := o.logger.With().
		Str("job_id", job.ID).
		Str("project_id", job.ProjectID).
		Logger()
	return logger.WithContext(ctx)
}
