package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/mrz1836/docgen/internal/clock"
	"github.com/mrz1836/docgen/internal/domain"
	docerrors "github.com/mrz1836/docgen/internal/errors"
)

var errDuplicateID = errors.New("duplicate id")

// MemoryStore implements Store in process memory. Returned values are
// copies, so callers may mutate them freely.
type MemoryStore struct {
	mu        sync.RWMutex
	projects  map[string]*domain.Project
	documents map[string]map[domain.DocumentKind]*domain.Document
	jobs      map[string]*domain.GenerationJob
	clock     clock.Clock
}

// Compile-time check that MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	o := applyOptions(opts)
	return &MemoryStore{
		projects:  make(map[string]*domain.Project),
		documents: make(map[string]map[domain.DocumentKind]*domain.Document),
		jobs:      make(map[string]*domain.GenerationJob),
		clock:     o.clock,
	}
}

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }

// SaveDocument upserts the document for (projectID, kind).
func (m *MemoryStore) SaveDocument(_ context.Context, projectID string, kind domain.DocumentKind, content string) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: unknown document kind %q", docerrors.ErrInvalidArgument, kind)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now().UTC()
	docs, ok := m.documents[projectID]
	if !ok {
		docs = make(map[domain.DocumentKind]*domain.Document)
		m.documents[projectID] = docs
	}
	if existing, ok := docs[kind]; ok {
		existing.Content = content
		existing.UpdatedAt = now
		return nil
	}
	docs[kind] = &domain.Document{ProjectID: projectID, Kind: kind, Content: content, CreatedAt: now, UpdatedAt: now}
	return nil
}

// GetDocument returns the document of the given kind.
func (m *MemoryStore) GetDocument(_ context.Context, projectID string, kind domain.DocumentKind) (*domain.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.documents[projectID][kind]
	if !ok {
		return nil, docerrors.Wrapf(docerrors.ErrDocumentNotFound, "%s for project %s", kind, projectID)
	}
	cp := *doc
	return &cp, nil
}

// ListDocuments returns the project's documents ordered by kind.
func (m *MemoryStore) ListDocuments(_ context.Context, projectID string) ([]*domain.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	docs := make([]*domain.Document, 0, len(m.documents[projectID]))
	for _, doc := range m.documents[projectID] {
		cp := *doc
		docs = append(docs, &cp)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Kind < docs[j].Kind })
	return docs, nil
}

// CreateProject inserts a new project.
func (m *MemoryStore) CreateProject(_ context.Context, project *domain.Project) error {
	if project == nil || project.ID == "" {
		return docerrors.Wrap(docerrors.ErrEmptyValue, "project id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.projects[project.ID]; exists {
		return persistErr("create project "+project.ID, errDuplicateID)
	}
	cp := copyProject(project)
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = m.clock.Now().UTC()
	}
	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = cp.CreatedAt
	}
	if cp.Status == "" {
		cp.Status = domain.ProjectStatusPending
	}
	m.projects[cp.ID] = cp
	return nil
}

// GetProject returns the project or ErrProjectNotFound.
func (m *MemoryStore) GetProject(_ context.Context, projectID string) (*domain.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.projects[projectID]
	if !ok {
		return nil, docerrors.Wrapf(docerrors.ErrProjectNotFound, "project %s", projectID)
	}
	return copyProject(p), nil
}

// ListProjects returns all projects, newest first.
func (m *MemoryStore) ListProjects(_ context.Context) ([]*domain.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	projects := make([]*domain.Project, 0, len(m.projects))
	for _, p := range m.projects {
		projects = append(projects, copyProject(p))
	}
	sort.Slice(projects, func(i, j int) bool {
		if !projects[i].CreatedAt.Equal(projects[j].CreatedAt) {
			return projects[i].CreatedAt.After(projects[j].CreatedAt)
		}
		return projects[i].ID < projects[j].ID
	})
	return projects, nil
}

// GetProjectOwner returns the owning user id.
func (m *MemoryStore) GetProjectOwner(ctx context.Context, projectID string) (string, error) {
	p, err := m.GetProject(ctx, projectID)
	if err != nil {
		return "", err
	}
	return p.UserID, nil
}

// GetProjectName returns the project name.
func (m *MemoryStore) GetProjectName(ctx context.Context, projectID string) (string, error) {
	p, err := m.GetProject(ctx, projectID)
	if err != nil {
		return "", err
	}
	return p.Name, nil
}

// UpdateProjectStatus sets status and reason unconditionally.
func (m *MemoryStore) UpdateProjectStatus(_ context.Context, projectID string, status domain.ProjectStatus, reason string) error {
	return m.mutateProject(projectID, func(p *domain.Project) {
		p.Status = status
		p.StatusReason = reason
	})
}

// CompareAndSwapProjectStatus sets the status only if it is currently one of from.
func (m *MemoryStore) CompareAndSwapProjectStatus(_ context.Context, projectID string, from []domain.ProjectStatus, to domain.ProjectStatus) (bool, error) {
	if len(from) == 0 {
		return false, docerrors.Wrap(docerrors.ErrInvalidArgument, "compare-and-swap needs at least one source status")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.projects[projectID]
	if !ok {
		return false, docerrors.Wrapf(docerrors.ErrProjectNotFound, "project %s", projectID)
	}
	if !slices.Contains(from, p.Status) {
		return false, nil
	}
	p.Status = to
	p.StatusReason = ""
	p.UpdatedAt = m.clock.Now().UTC()
	return true, nil
}

// SetRepositoryURL records the scaffolded repository location.
func (m *MemoryStore) SetRepositoryURL(_ context.Context, projectID, url string) error {
	return m.mutateProject(projectID, func(p *domain.Project) { p.RepositoryURL = url })
}

// SetProgress records the generation progress percentage.
func (m *MemoryStore) SetProgress(_ context.Context, projectID string, progress int) error {
	return m.mutateProject(projectID, func(p *domain.Project) { p.Progress = clampProgress(progress) })
}

func (m *MemoryStore) mutateProject(projectID string, fn func(*domain.Project)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.projects[projectID]
	if !ok {
		return docerrors.Wrapf(docerrors.ErrProjectNotFound, "project %s", projectID)
	}
	fn(p)
	p.UpdatedAt = m.clock.Now().UTC()
	return nil
}

// CreateJob inserts a new job.
func (m *MemoryStore) CreateJob(_ context.Context, job *domain.GenerationJob) error {
	if job == nil || job.ID == "" {
		return docerrors.Wrap(docerrors.ErrEmptyValue, "job id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.jobs[job.ID]; exists {
		return persistErr("create job "+job.ID, errDuplicateID)
	}
	m.jobs[job.ID] = copyJob(job)
	return nil
}

// GetJob returns the job or ErrJobNotFound.
func (m *MemoryStore) GetJob(_ context.Context, jobID string) (*domain.GenerationJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return nil, docerrors.Wrapf(docerrors.ErrJobNotFound, "job %s", jobID)
	}
	return copyJob(job), nil
}

// UpdateJob replaces the stored job.
func (m *MemoryStore) UpdateJob(_ context.Context, job *domain.GenerationJob) error {
	if job == nil || job.ID == "" {
		return docerrors.Wrap(docerrors.ErrEmptyValue, "job id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.jobs[job.ID]
	if !ok {
		return docerrors.Wrapf(docerrors.ErrJobNotFound, "job %s", job.ID)
	}
	cp := copyJob(job)
	cp.CancelRequested = cp.CancelRequested || stored.CancelRequested
	m.jobs[job.ID] = cp
	return nil
}

// CompareAndSwapJob replaces the job only if its stored status equals from.
func (m *MemoryStore) CompareAndSwapJob(_ context.Context, job *domain.GenerationJob, from domain.JobStatus) (bool, error) {
	if job == nil || job.ID == "" {
		return false, docerrors.Wrap(docerrors.ErrEmptyValue, "job id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.jobs[job.ID]
	if !ok {
		return false, docerrors.Wrapf(docerrors.ErrJobNotFound, "job %s", job.ID)
	}
	if stored.Status != from {
		return false, nil
	}
	m.jobs[job.ID] = copyJob(job)
	return true, nil
}

// RequestJobCancel raises the cancel flag of a processing job.
func (m *MemoryStore) RequestJobCancel(_ context.Context, jobID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.jobs[jobID]
	if !ok {
		return false, docerrors.Wrapf(docerrors.ErrJobNotFound, "job %s", jobID)
	}
	if stored.Status != domain.JobStatusProcessing {
		return false, nil
	}
	stored.CancelRequested = true
	return true, nil
}

// ListJobs returns the project's jobs, newest first.
func (m *MemoryStore) ListJobs(_ context.Context, projectID string) ([]*domain.GenerationJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	jobs := make([]*domain.GenerationJob, 0)
	for _, job := range m.jobs {
		if job.ProjectID == projectID {
			jobs = append(jobs, copyJob(job))
		}
	}
	sort.Slice(jobs, func(i, j int) bool {
		if !jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
		}
		return jobs[i].ID < jobs[j].ID
	})
	return jobs, nil
}

func copyProject(p *domain.Project) *domain.Project {
	cp := *p
	cp.Technologies = slices.Clone(p.Technologies)
	return &cp
}

func copyJob(j *domain.GenerationJob) *domain.GenerationJob {
	cp := *j
	cp.Steps = slices.Clone(j.Steps)
	cp.Transitions = slices.Clone(j.Transitions)
	cp.CommittedFiles = slices.Clone(j.CommittedFiles)
	if j.Repository != nil {
		ref := *j.Repository
		cp.Repository = &ref
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}
