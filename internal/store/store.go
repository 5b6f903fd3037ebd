// Package store persists projects, documents and generation jobs.
//
// Two implementations are provided: SQLStore (SQLite or PostgreSQL through
// sqlx) and MemoryStore (tests and ephemeral runs). Both satisfy Store.
//
// Import rules:
//   - CAN import: internal/clock, internal/constants, internal/domain, internal/errors, standard library
//   - MUST NOT import: internal/generation, internal/cli
package store

import (
	"context"

	"github.com/mrz1836/docgen/internal/clock"
	"github.com/mrz1836/docgen/internal/domain"
)

// Option configures a store.
type Option func(*options)

type options struct {
	clock clock.Clock
}

// WithClock sets the clock used for created and updated timestamps.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

func applyOptions(opts []Option) options {
	o := options{clock: clock.Real{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// DocumentStore persists generated documents keyed by (project, kind).
type DocumentStore interface {
	// SaveDocument upserts the content for the given kind. A second save of
	// the same kind replaces the first and keeps the original CreatedAt.
	SaveDocument(ctx context.Context, projectID string, kind domain.DocumentKind, content string) error

	// GetDocument returns the document of the given kind.
	// Returns ErrDocumentNotFound if none was saved.
	GetDocument(ctx context.Context, projectID string, kind domain.DocumentKind) (*domain.Document, error)

	// ListDocuments returns every document saved for the project, ordered by kind.
	ListDocuments(ctx context.Context, projectID string) ([]*domain.Document, error)
}

// ProjectStore persists project records and their generation status.
type ProjectStore interface {
	// CreateProject inserts a new project. ID, Status and timestamps must be set.
	CreateProject(ctx context.Context, project *domain.Project) error

	// GetProject returns the project or ErrProjectNotFound.
	GetProject(ctx context.Context, projectID string) (*domain.Project, error)

	// ListProjects returns all projects, newest first.
	ListProjects(ctx context.Context) ([]*domain.Project, error)

	// GetProjectOwner returns the owning user id.
	GetProjectOwner(ctx context.Context, projectID string) (string, error)

	// GetProjectName returns the project name.
	GetProjectName(ctx context.Context, projectID string) (string, error)

	// UpdateProjectStatus sets status and reason unconditionally.
	UpdateProjectStatus(ctx context.Context, projectID string, status domain.ProjectStatus, reason string) error

	// CompareAndSwapProjectStatus sets the status to "to" only if the current
	// status is one of "from". It reports whether the swap happened.
	// Returns ErrProjectNotFound if the project does not exist.
	CompareAndSwapProjectStatus(ctx context.Context, projectID string, from []domain.ProjectStatus, to domain.ProjectStatus) (bool, error)

	// SetRepositoryURL records the scaffolded repository location.
	SetRepositoryURL(ctx context.Context, projectID, url string) error

	// SetProgress records the generation progress percentage (0-100).
	SetProgress(ctx context.Context, projectID string, progress int) error
}

// JobStore persists generation jobs.
type JobStore interface {
	// CreateJob inserts a new job.
	CreateJob(ctx context.Context, job *domain.GenerationJob) error

	// GetJob returns the job or ErrJobNotFound.
	GetJob(ctx context.Context, jobID string) (*domain.GenerationJob, error)

	// UpdateJob replaces the stored job with the given one. A raised cancel
	// flag is never cleared by UpdateJob.
	// Returns ErrJobNotFound if the job does not exist.
	UpdateJob(ctx context.Context, job *domain.GenerationJob) error

	// CompareAndSwapJob replaces the stored job, including its cancel flag,
	// only if the stored status equals from. It reports whether the swap happened.
	CompareAndSwapJob(ctx context.Context, job *domain.GenerationJob, from domain.JobStatus) (bool, error)

	// RequestJobCancel raises the cancel flag of a processing job. It reports
	// false if the job is not processing.
	RequestJobCancel(ctx context.Context, jobID string) (bool, error)

	// ListJobs returns the project's jobs, newest first.
	ListJobs(ctx context.Context, projectID string) ([]*domain.GenerationJob, error)
}

// Store is the full persistence surface used by the generation pipeline.
type Store interface {
	DocumentStore
	ProjectStore
	JobStore

	// Close releases the underlying connection.
	Close() error
}
