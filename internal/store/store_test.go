package store

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/docgen/internal/clock"
	"github.com/mrz1836/docgen/internal/constants"
	"github.com/mrz1836/docgen/internal/domain"
	docerrors "github.com/mrz1836/docgen/internal/errors"
)

type storeFactory struct {
	name string
	open func(t *testing.T) Store
}

func factories() []storeFactory {
	return []storeFactory{
		{
			name: "memory",
			open: func(_ *testing.T) Store { return NewMemoryStore() },
		},
		{
			name: "sqlite",
			open: func(t *testing.T) Store {
				t.Helper()
				s, err := Open(context.Background(), DriverSQLite, filepath.Join(t.TempDir(), "docgen.db"))
				require.NoError(t, err)
				t.Cleanup(func() { _ = s.Close() })
				return s
			},
		},
	}
}

func seedProject(t *testing.T, s Store, id string, created time.Time) *domain.Project {
	t.Helper()
	p := &domain.Project{
		ID:           id,
		UserID:       "user-1",
		Name:         "todo-" + id,
		Description:  "a todo app",
		Technologies: []string{"go", "postgres"},
		Status:       domain.ProjectStatusPending,
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	require.NoError(t, s.CreateProject(context.Background(), p))
	return p
}

func TestStore_Projects(t *testing.T) {
	for _, f := range factories() {
		t.Run(f.name, func(t *testing.T) {
			ctx := context.Background()
			s := f.open(t)
			base := time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)
			seedProject(t, s, "p-1", base)
			seedProject(t, s, "p-2", base.Add(time.Minute))

			got, err := s.GetProject(ctx, "p-1")
			require.NoError(t, err)
			assert.Equal(t, "todo-p-1", got.Name)
			assert.Equal(t, []string{"go", "postgres"}, got.Technologies)
			assert.Equal(t, domain.ProjectStatusPending, got.Status)
			assert.True(t, base.Equal(got.CreatedAt))

			owner, err := s.GetProjectOwner(ctx, "p-1")
			require.NoError(t, err)
			assert.Equal(t, "user-1", owner)

			name, err := s.GetProjectName(ctx, "p-2")
			require.NoError(t, err)
			assert.Equal(t, "todo-p-2", name)

			list, err := s.ListProjects(ctx)
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, "p-2", list[0].ID)

			require.NoError(t, s.UpdateProjectStatus(ctx, "p-1", domain.ProjectStatusFailed, "Architecture stage failed: boom"))
			require.NoError(t, s.SetRepositoryURL(ctx, "p-1", "https://github.com/acme/todo"))
			require.NoError(t, s.SetProgress(ctx, "p-1", 150))

			got, err = s.GetProject(ctx, "p-1")
			require.NoError(t, err)
			assert.Equal(t, domain.ProjectStatusFailed, got.Status)
			assert.Equal(t, "Architecture stage failed: boom", got.StatusReason)
			assert.Equal(t, "https://github.com/acme/todo", got.RepositoryURL)
			assert.Equal(t, 100, got.Progress)
		})
	}
}

func TestStore_ProjectNotFound(t *testing.T) {
	for _, f := range factories() {
		t.Run(f.name, func(t *testing.T) {
			ctx := context.Background()
			s := f.open(t)

			_, err := s.GetProject(ctx, "missing")
			require.ErrorIs(t, err, docerrors.ErrProjectNotFound)

			_, err = s.GetProjectOwner(ctx, "missing")
			require.ErrorIs(t, err, docerrors.ErrProjectNotFound)

			require.ErrorIs(t, s.UpdateProjectStatus(ctx, "missing", domain.ProjectStatusFailed, ""), docerrors.ErrProjectNotFound)
			require.ErrorIs(t, s.SetProgress(ctx, "missing", 10), docerrors.ErrProjectNotFound)

			_, err = s.CompareAndSwapProjectStatus(ctx, "missing", constants.ClaimableProjectStatuses, domain.ProjectStatusProcessing)
			require.ErrorIs(t, err, docerrors.ErrProjectNotFound)
		})
	}
}

func TestStore_CompareAndSwap(t *testing.T) {
	for _, f := range factories() {
		t.Run(f.name, func(t *testing.T) {
			ctx := context.Background()
			s := f.open(t)
			seedProject(t, s, "p-1", time.Now())
			require.NoError(t, s.UpdateProjectStatus(ctx, "p-1", domain.ProjectStatusFailed, "old failure"))

			ok, err := s.CompareAndSwapProjectStatus(ctx, "p-1", constants.ClaimableProjectStatuses, domain.ProjectStatusProcessing)
			require.NoError(t, err)
			assert.True(t, ok)

			got, err := s.GetProject(ctx, "p-1")
			require.NoError(t, err)
			assert.Equal(t, domain.ProjectStatusProcessing, got.Status)
			assert.Empty(t, got.StatusReason)

			ok, err = s.CompareAndSwapProjectStatus(ctx, "p-1", constants.ClaimableProjectStatuses, domain.ProjectStatusProcessing)
			require.NoError(t, err)
			assert.False(t, ok)

			_, err = s.CompareAndSwapProjectStatus(ctx, "p-1", nil, domain.ProjectStatusProcessing)
			require.ErrorIs(t, err, docerrors.ErrInvalidArgument)
		})
	}
}

func TestStore_CompareAndSwap_SingleWinner(t *testing.T) {
	for _, f := range factories() {
		t.Run(f.name, func(t *testing.T) {
			ctx := context.Background()
			s := f.open(t)
			seedProject(t, s, "p-1", time.Now())

			const contenders = 8
			var wins atomic.Int32
			var wg sync.WaitGroup
			for range contenders {
				wg.Add(1)
				go func() {
					defer wg.Done()
					ok, err := s.CompareAndSwapProjectStatus(ctx, "p-1", constants.ClaimableProjectStatuses, domain.ProjectStatusProcessing)
					if err == nil && ok {
						wins.Add(1)
					}
				}()
			}
			wg.Wait()
			assert.Equal(t, int32(1), wins.Load())
		})
	}
}

func TestStore_Documents(t *testing.T) {
	for _, f := range factories() {
		t.Run(f.name, func(t *testing.T) {
			ctx := context.Background()
			s := f.open(t)

			_, err := s.GetDocument(ctx, "p-1", domain.DocumentArchitecture)
			require.ErrorIs(t, err, docerrors.ErrDocumentNotFound)

			require.NoError(t, s.SaveDocument(ctx, "p-1", domain.DocumentArchitecture, "v1"))
			require.NoError(t, s.SaveDocument(ctx, "p-1", domain.DocumentArchitecture, "v2"))
			require.NoError(t, s.SaveDocument(ctx, "p-1", domain.DocumentDevPlan, "plan"))
			require.NoError(t, s.SaveDocument(ctx, "p-2", domain.DocumentReadme, "other"))

			doc, err := s.GetDocument(ctx, "p-1", domain.DocumentArchitecture)
			require.NoError(t, err)
			assert.Equal(t, "v2", doc.Content)

			docs, err := s.ListDocuments(ctx, "p-1")
			require.NoError(t, err)
			require.Len(t, docs, 2)
			assert.Equal(t, domain.DocumentArchitecture, docs[0].Kind)
			assert.Equal(t, domain.DocumentDevPlan, docs[1].Kind)

			err = s.SaveDocument(ctx, "p-1", domain.DocumentKind("agents"), "x")
			require.ErrorIs(t, err, docerrors.ErrInvalidArgument)
		})
	}
}

func TestStore_Jobs(t *testing.T) {
	for _, f := range factories() {
		t.Run(f.name, func(t *testing.T) {
			ctx := context.Background()
			s := f.open(t)
			base := time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)

			first := &domain.GenerationJob{
				ID:            "job-1",
				ProjectID:     "p-1",
				UserID:        "user-1",
				Prompt:        "build a todo app",
				Step:          domain.StepDevPlan,
				Status:        domain.JobStatusPending,
				Steps:         domain.NewStepRecords(),
				CreatedAt:     base,
				UpdatedAt:     base,
				SchemaVersion: constants.JobSchemaVersion,
			}
			second := *first
			second.ID = "job-2"
			second.Steps = domain.NewStepRecords()
			second.CreatedAt = base.Add(time.Minute)

			require.NoError(t, s.CreateJob(ctx, first))
			require.NoError(t, s.CreateJob(ctx, &second))

			got, err := s.GetJob(ctx, "job-1")
			require.NoError(t, err)
			assert.Equal(t, "build a todo app", got.Prompt)
			assert.Len(t, got.Steps, len(domain.Steps()))

			got.Status = domain.JobStatusFailed
			got.FailureReason = "Architecture stage failed: boom"
			got.Record(domain.StepDevPlan).Status = constants.StepStatusCompleted
			got.Transitions = append(got.Transitions, domain.Transition{
				FromStatus: domain.JobStatusProcessing,
				ToStatus:   domain.JobStatusFailed,
				Step:       domain.StepArchitecture,
				Timestamp:  base,
			})
			require.NoError(t, s.UpdateJob(ctx, got))

			reloaded, err := s.GetJob(ctx, "job-1")
			require.NoError(t, err)
			assert.Equal(t, domain.JobStatusFailed, reloaded.Status)
			assert.Equal(t, constants.StepStatusCompleted, reloaded.Record(domain.StepDevPlan).Status)
			require.Len(t, reloaded.Transitions, 1)

			jobs, err := s.ListJobs(ctx, "p-1")
			require.NoError(t, err)
			require.Len(t, jobs, 2)
			assert.Equal(t, "job-2", jobs[0].ID)

			_, err = s.GetJob(ctx, "missing")
			require.ErrorIs(t, err, docerrors.ErrJobNotFound)
			require.ErrorIs(t, s.UpdateJob(ctx, &domain.GenerationJob{ID: "missing"}), docerrors.ErrJobNotFound)
		})
	}
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	seedProject(t, s, "p-1", time.Now())

	p, err := s.GetProject(ctx, "p-1")
	require.NoError(t, err)
	p.Technologies[0] = "mutated"
	p.Status = domain.ProjectStatusFailed

	again, err := s.GetProject(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, "go", again.Technologies[0])
	assert.Equal(t, domain.ProjectStatusPending, again.Status)
}

func TestOpen_Errors(t *testing.T) {
	_, err := Open(context.Background(), DriverSQLite, "")
	require.ErrorIs(t, err, docerrors.ErrEmptyValue)

	_, err = Open(context.Background(), "oracle", "dsn")
	require.ErrorIs(t, err, docerrors.ErrConfigInvalid)
}

func TestStore_JobCompareAndSwapAndCancel(t *testing.T) {
	for _, f := range factories() {
		t.Run(f.name, func(t *testing.T) {
			ctx := context.Background()
			s := f.open(t)
			now := time.Now().UTC()
			job := &domain.GenerationJob{
				ID:        "job-1",
				ProjectID: "p-1",
				Status:    domain.JobStatusPending,
				Steps:     domain.NewStepRecords(),
				CreatedAt: now,
				UpdatedAt: now,
			}
			require.NoError(t, s.CreateJob(ctx, job))

			ok, err := s.RequestJobCancel(ctx, "job-1")
			require.NoError(t, err)
			assert.False(t, ok, "pending jobs are not flagged")

			job.Status = domain.JobStatusProcessing
			ok, err = s.CompareAndSwapJob(ctx, job, domain.JobStatusPending)
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = s.CompareAndSwapJob(ctx, job, domain.JobStatusPending)
			require.NoError(t, err)
			assert.False(t, ok, "status already moved on")

			ok, err = s.RequestJobCancel(ctx, "job-1")
			require.NoError(t, err)
			assert.True(t, ok)

			// A runner holding a stale copy must not clear the flag.
			job.Step = domain.StepArchitecture
			require.NoError(t, s.UpdateJob(ctx, job))
			got, err := s.GetJob(ctx, "job-1")
			require.NoError(t, err)
			assert.True(t, got.CancelRequested)
			assert.Equal(t, domain.StepArchitecture, got.Step)

			// A compare-and-swap resets it explicitly.
			got.Status = domain.JobStatusCancelled
			require.NoError(t, s.UpdateJob(ctx, got))
			got.Status = domain.JobStatusProcessing
			got.CancelRequested = false
			ok, err = s.CompareAndSwapJob(ctx, got, domain.JobStatusCancelled)
			require.NoError(t, err)
			require.True(t, ok)
			again, err := s.GetJob(ctx, "job-1")
			require.NoError(t, err)
			assert.False(t, again.CancelRequested)

			_, err = s.RequestJobCancel(ctx, "missing")
			require.ErrorIs(t, err, docerrors.ErrJobNotFound)
			_, err = s.CompareAndSwapJob(ctx, &domain.GenerationJob{ID: "missing"}, domain.JobStatusPending)
			require.ErrorIs(t, err, docerrors.ErrJobNotFound)
		})
	}
}

func TestMemoryStore_DocumentTimestampsFollowClock(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	c := clock.NewManual(start)
	s := NewMemoryStore(WithClock(c))

	require.NoError(t, s.SaveDocument(ctx, "p-1", domain.DocumentReadme, "v1"))
	c.Advance(time.Minute)
	require.NoError(t, s.SaveDocument(ctx, "p-1", domain.DocumentReadme, "v2"))

	doc, err := s.GetDocument(ctx, "p-1", domain.DocumentReadme)
	require.NoError(t, err)
	assert.Equal(t, "v2", doc.Content)
	assert.Equal(t, start, doc.CreatedAt)
	assert.Equal(t, start.Add(time.Minute), doc.UpdatedAt)
}
