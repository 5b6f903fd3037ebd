package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mrz1836/docgen/internal/ai"
	"github.com/mrz1836/docgen/internal/constants"
	"github.com/mrz1836/docgen/internal/domain"
	docerrors "github.com/mrz1836/docgen/internal/errors"
	"github.com/mrz1836/docgen/internal/metrics"
	"github.com/mrz1836/docgen/internal/prompts"
	"github.com/mrz1836/docgen/internal/scaffold"
	"github.com/mrz1836/docgen/internal/schema"
)

// llmStage binds a text stage to its provider, prompts and output document.
type llmStage struct {
	provider string
	system   prompts.PromptID // empty for Generate-style providers
	user     prompts.PromptID
	output   domain.DocumentKind
}

// llmStages is the static provider binding.
//
//nolint:gochecknoglobals // Read-only lookup table
var llmStages = map[domain.GenerationStep]llmStage{
	domain.StepDevPlan:             {provider: ai.NameOpenAI, system: prompts.SystemDevPlan, user: prompts.DevPlan, output: domain.DocumentDevPlan},
	domain.StepArchitecture:        {provider: ai.NameOpenAI, system: prompts.SystemArchitecture, user: prompts.Architecture, output: domain.DocumentArchitecture},
	domain.StepBlueprint:           {provider: ai.NameOpenAI, system: prompts.SystemBlueprint, user: prompts.Blueprint, output: domain.DocumentBlueprint},
	domain.StepReadme:              {provider: ai.NameClaude, user: prompts.Readme, output: domain.DocumentReadme},
	domain.StepDirectoryTree:       {provider: ai.NameOpenAI, system: prompts.SystemDirectoryTree, user: prompts.DirectoryTree, output: domain.DocumentTree},
	domain.StepCommunicationSchema: {provider: ai.NameClaude, user: prompts.CommunicationSchema, output: domain.DocumentSchema},
}

// stageInputs lists the documents each stage reads.
//
//nolint:gochecknoglobals // Read-only lookup table
var stageInputs = map[domain.GenerationStep][]domain.DocumentKind{
	domain.StepDevPlan:             nil,
	domain.StepArchitecture:        {domain.DocumentDevPlan},
	domain.StepBlueprint:           {domain.DocumentDevPlan, domain.DocumentArchitecture},
	domain.StepReadme:              {domain.DocumentDevPlan, domain.DocumentArchitecture, domain.DocumentBlueprint},
	domain.StepDirectoryTree:       {domain.DocumentBlueprint},
	domain.StepCommunicationSchema: {domain.DocumentDevPlan, domain.DocumentArchitecture, domain.DocumentBlueprint, domain.DocumentTree},
	domain.StepAgentFiles:          {domain.DocumentSchema},
	domain.StepGitHubScaffold:      {domain.DocumentSchema},
}

// outputs carries stage results forward within one run.
type outputs struct {
	docs       map[domain.DocumentKind]string
	schema     *schema.CommunicationSchema
	agentFiles []domain.AgentFile
}

func newOutputs() *outputs {
	return &outputs{docs: make(map[domain.DocumentKind]string)}
}

func (out *outputs) stageData(job *domain.GenerationJob, project *domain.Project) prompts.StageData {
	return prompts.StageData{
		Prompt:       job.Prompt,
		ProjectName:  project.Name,
		DevPlan:      out.docs[domain.DocumentDevPlan],
		Architecture: out.docs[domain.DocumentArchitecture],
		Blueprint:    out.docs[domain.DocumentBlueprint],
		Readme:       out.docs[domain.DocumentReadme],
		Tree:         out.docs[domain.DocumentTree],
	}
}

// stepsToRun returns the stages a retry of from re-runs.
func stepsToRun(from domain.GenerationStep, scope constants.RetryScope) []domain.GenerationStep {
	if scope == constants.RetrySingle {
		return []domain.GenerationStep{from}
	}
	all := domain.Steps()
	return all[from.Index():]
}

// requiredDocuments returns the documents steps read that none of steps
// produce, in document order.
func requiredDocuments(steps []domain.GenerationStep) []domain.DocumentKind {
	produced := make(map[domain.DocumentKind]bool)
	needed := make(map[domain.DocumentKind]bool)
	for _, step := range steps {
		for _, kind := range stageInputs[step] {
			if !produced[kind] {
				needed[kind] = true
			}
		}
		if kind, ok := step.Document(); ok {
			produced[kind] = true
		}
	}
	var kinds []domain.DocumentKind
	for _, kind := range domain.DocumentKinds() {
		if needed[kind] {
			kinds = append(kinds, kind)
		}
	}
	return kinds
}

// loadPrerequisites reads the persisted documents the steps depend on.
// A missing document fails with ErrDocumentNotFound.
func (o *Orchestrator) loadPrerequisites(ctx context.Context, projectID string, steps []domain.GenerationStep) (*outputs, error) {
	out := newOutputs()
	for _, kind := range requiredDocuments(steps) {
		doc, err := o.store.GetDocument(ctx, projectID, kind)
		if err != nil {
			return nil, err
		}
		out.docs[kind] = doc.Content
	}
	return out, nil
}

// executeStage runs one stage under the stage timeout and a tracing span,
// then checkpoints the job and the project's progress.
func (o *Orchestrator) executeStage(ctx context.Context, job *domain.GenerationJob, project *domain.Project, step domain.GenerationStep, out *outputs) error {
	logger := zerolog.Ctx(ctx)
	startTime := time.Now()

	rec := job.Record(step)
	if rec == nil {
		return fmt.Errorf("%w: job has no record for %s", docerrors.ErrInvalidStep, step)
	}
	started := startTime.UTC()
	rec.Status = constants.StepStatusRunning
	rec.Attempts++
	rec.StartedAt = &started
	rec.CompletedAt = nil
	rec.Error = ""
	job.Step = step
	job.UpdatedAt = started
	if err := o.store.UpdateJob(ctx, job); err != nil {
		return err
	}

	stageCtx := ctx
	if o.config.StageTimeout > 0 {
		var cancel context.CancelFunc
		stageCtx, cancel = context.WithTimeout(ctx, o.config.StageTimeout)
		defer cancel()
	}
	stageCtx, span := o.tracer.Start(stageCtx, "generation."+step.String(),
		trace.WithAttributes(
			attribute.String("docgen.job_id", job.ID),
			attribute.String("docgen.project_id", job.ProjectID),
			attribute.String("docgen.step", step.String()),
			attribute.Int("docgen.attempt", rec.Attempts),
		))
	defer span.End()

	logger.Info().
		Str("step", step.String()).
		Int("attempt", rec.Attempts).
		Msg("executing stage")

	err := o.runStep(stageCtx, job, project, step, out)
	duration := time.Since(startTime)

	if err != nil {
		err = classifyStageError(step, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.metrics.ObserveStage(step.String(), stageOutcome(err), duration)
		logger.Error().
			Err(err).
			Str("step", step.String()).
			Int64("duration_ms", duration.Milliseconds()).
			Msg("stage failed")
		return err
	}
	span.SetStatus(codes.Ok, "")
	o.metrics.ObserveStage(step.String(), metrics.OutcomeSuccess, duration)

	finished := time.Now().UTC()
	rec.Status = constants.StepStatusCompleted
	rec.CompletedAt = &finished
	job.UpdatedAt = finished
	if err := o.store.UpdateJob(ctx, job); err != nil {
		return err
	}
	if err := o.store.SetProgress(ctx, job.ProjectID, progressAfter(step)); err != nil {
		return err
	}

	logger.Info().
		Str("step", step.String()).
		Int64("duration_ms", duration.Milliseconds()).
		Msg("stage completed")
	return nil
}

// runStep performs the work of a single stage.
func (o *Orchestrator) runStep(ctx context.Context, job *domain.GenerationJob, project *domain.Project, step domain.GenerationStep, out *outputs) error {
	switch step {
	case domain.StepDevPlan, domain.StepArchitecture, domain.StepBlueprint, domain.StepReadme, domain.StepDirectoryTree:
		text, err := o.generateText(ctx, llmStages[step], out.stageData(job, project))
		if err != nil {
			return err
		}
		return o.saveOutput(ctx, job.ProjectID, llmStages[step].output, text, out)

	case domain.StepCommunicationSchema:
		text, err := o.generateText(ctx, llmStages[step], out.stageData(job, project))
		if err != nil {
			return err
		}
		parsed, err := schema.Parse(text)
		if err != nil {
			return err
		}
		canonical, err := schema.Serialize(parsed)
		if err != nil {
			return err
		}
		out.schema = parsed
		out.agentFiles = nil
		return o.saveOutput(ctx, job.ProjectID, domain.DocumentSchema, string(canonical), out)

	case domain.StepAgentFiles:
		if err := out.ensureSchema(); err != nil {
			return err
		}
		out.agentFiles = agentFilesFor(out.schema, *zerolog.Ctx(ctx))
		zerolog.Ctx(ctx).Debug().Int("files", len(out.agentFiles)).Msg("agent files rendered")
		return nil

	case domain.StepGitHubScaffold:
		if out.agentFiles == nil {
			if err := out.ensureSchema(); err != nil {
				return err
			}
			out.agentFiles = agentFilesFor(out.schema, *zerolog.Ctx(ctx))
		}
		return o.scaffoldRepository(ctx, job, project, out.agentFiles)
	}
	return fmt.Errorf("%w: %s", docerrors.ErrInvalidStep, step)
}

// ensureSchema parses the schema document if this run did not produce it.
func (out *outputs) ensureSchema() error {
	if out.schema != nil {
		return nil
	}
	text, ok := out.docs[domain.DocumentSchema]
	if !ok {
		return docerrors.Wrap(docerrors.ErrDocumentNotFound, "schema")
	}
	parsed, err := schema.Parse(text)
	if err != nil {
		return err
	}
	out.schema = parsed
	return nil
}

// generateText renders the stage prompts and calls the bound provider.
func (o *Orchestrator) generateText(ctx context.Context, stage llmStage, data prompts.StageData) (string, error) {
	user, err := prompts.Render(stage.user, data)
	if err != nil {
		return "", fmt.Errorf("%w: render %s: %w", docerrors.ErrProvider, stage.user, err)
	}

	var text string
	callStart := time.Now()
	switch stage.provider {
	case ai.NameOpenAI:
		system, renderErr := prompts.Render(stage.system, nil)
		if renderErr != nil {
			return "", fmt.Errorf("%w: render %s: %w", docerrors.ErrProvider, stage.system, renderErr)
		}
		text, err = o.openai.ChatCompletion(ctx, system, user)
	case ai.NameClaude:
		text, err = o.claude.Generate(ctx, user)
	default:
		return "", fmt.Errorf("%w: unknown provider %q", docerrors.ErrProvider, stage.provider)
	}

	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeFailure
	}
	o.metrics.ProviderCall(stage.provider, outcome, time.Since(callStart))
	return text, err
}

func (o *Orchestrator) saveOutput(ctx context.Context, projectID string, kind domain.DocumentKind, text string, out *outputs) error {
	if err := o.store.SaveDocument(ctx, projectID, kind, text); err != nil {
		return err
	}
	out.docs[kind] = text
	return nil
}

// scaffoldRepository creates the repository (unless this job already did)
// and commits every agent file not yet committed.
func (o *Orchestrator) scaffoldRepository(ctx context.Context, job *domain.GenerationJob, project *domain.Project, files []domain.AgentFile) error {
	logger := zerolog.Ctx(ctx)

	var repo *scaffold.Repository
	if job.Repository != nil {
		repo = &scaffold.Repository{Owner: job.Repository.Owner, Name: job.Repository.Name, URL: job.Repository.URL}
		logger.Info().Str("repository", repo.FullName()).Msg("resuming scaffold into existing repository")
	} else {
		created, err := o.repos.CreateRepository(ctx, project.Name, project.Description, o.config.PrivateRepos)
		if err != nil {
			return err
		}
		repo = created
		job.Repository = &domain.RepositoryRef{Owner: created.Owner, Name: created.Name, URL: created.URL}
		job.RepositoryURL = created.URL
		job.CommittedFiles = nil
		if err := o.store.UpdateJob(ctx, job); err != nil {
			return err
		}
		if err := o.store.SetRepositoryURL(ctx, job.ProjectID, created.URL); err != nil {
			return err
		}
	}

	done := make(map[string]bool, len(job.CommittedFiles))
	for _, p := range job.CommittedFiles {
		done[p] = true
	}
	pending := make([]scaffold.File, 0, len(files))
	for _, f := range files {
		if !done[f.Path] {
			pending = append(pending, scaffold.File{Path: f.Path, Content: f.Content})
		}
	}

	result, err := o.repos.CreateDirectoryStructure(ctx, repo, pending)
	if result != nil {
		job.CommittedFiles = append(job.CommittedFiles, result.Committed...)
		o.metrics.Commits(metrics.OutcomeSuccess, len(result.Committed))
		if result.Failed != "" {
			o.metrics.Commits(metrics.OutcomeFailure, 1)
		}
	}
	if err != nil {
		return err
	}

	logger.Info().
		Str("repository", repo.FullName()).
		Int("committed", len(job.CommittedFiles)).
		Msg("repository scaffolded")
	return nil
}

// classifyStageError makes sure every stage failure carries one of the
// pipeline taxonomy errors.
func classifyStageError(step domain.GenerationStep, err error) error {
	for _, sentinel := range []error{
		docerrors.ErrProvider,
		docerrors.ErrParse,
		docerrors.ErrValidation,
		docerrors.ErrPersistence,
		docerrors.ErrRemoteService,
		docerrors.ErrDocumentNotFound,
	} {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	switch step {
	case domain.StepGitHubScaffold:
		return fmt.Errorf("%w: %w", docerrors.ErrRemoteService, err)
	case domain.StepAgentFiles:
		return fmt.Errorf("%w: %w", docerrors.ErrValidation, err)
	default:
		return fmt.Errorf("%w: %w", docerrors.ErrProvider, err)
	}
}

func stageOutcome(err error) string {
	if errors.Is(err, context.Canceled) {
		return metrics.OutcomeCancelled
	}
	return metrics.OutcomeFailure
}

// progressAfter returns the project progress once step has completed.
func progressAfter(step domain.GenerationStep) int {
	return (step.Index() + 1) * 100 / len(domain.Steps())
}
