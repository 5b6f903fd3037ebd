package generation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/docgen/internal/domain"
	"github.com/mrz1836/docgen/internal/prompts"
	"github.com/mrz1836/docgen/internal/scaffold"
	"github.com/mrz1836/docgen/internal/store"
	"github.com/mrz1836/docgen/internal/testutil"
)

const (
	testProjectID = "p-1"
	testPrompt    = "build a todo app"

	devPlanText      = "DEV PLAN: tasks and milestones"
	architectureText = "ARCHITECTURE: a small HTTP service"
	blueprintText    = "BLUEPRINT: handlers and storage"
	treeText         = "TREE: src/main.go"
	readmeText       = "# todo-app"
)

// pipelineSchemaJSON has a single directory so a run produces two agent files.
const pipelineSchemaJSON = `{
  "version": "1.0",
  "project_name": "todo-app",
  "description": "A todo app",
  "global_communication_protocols": {"http": "REST"},
  "directory_structure": {
    "src": {
      "criticality": 9,
      "description": "Application sources",
      "files": {
        "main": {"criticality": 10, "type": "entrypoint", "purpose": "Starts the app", "dependencies": ["store"]},
        "store": {"criticality": 7, "type": "library", "purpose": "Persists todos", "dependencies": []}
      }
    }
  },
  "event_flows": {},
  "communication_matrix": {},
  "platform_specific": {},
  "error_propagation": {}
}`

// emptyDirectorySchemaJSON is well-formed but has no directories.
const emptyDirectorySchemaJSON = `{
  "version": "1.0",
  "project_name": "todo-app",
  "description": "A todo app",
  "global_communication_protocols": {"http": "REST"},
  "directory_structure": {},
  "event_flows": {},
  "communication_matrix": {},
  "platform_specific": {},
  "error_propagation": {}
}`

var errUpstream = testutil.ErrMockUpstream

// stubProvider answers like the real providers would for the pipeline
// prompts. OpenAI stages are recognized by their system prompt and Claude
// stages by whether the directory tree appears in the prompt.
type stubProvider struct {
	name string

	mu    sync.Mutex
	calls []string

	// fail returns an error for the matching system prompt (OpenAI) or for
	// the schema prompt (Claude, system is empty). Nil never fails.
	fail func(system, user string) error

	// block, when set, is called before answering and may wait on ctx.
	block func(ctx context.Context, system string) error

	schema string
}

func newOpenAIStub() *stubProvider { return &stubProvider{name: "openai"} }

func newClaudeStub() *stubProvider {
	return &stubProvider{name: "claude", schema: pipelineSchemaJSON}
}

func (p *stubProvider) ChatCompletion(ctx context.Context, system, user string) (string, error) {
	p.record(system)
	if p.block != nil {
		if err := p.block(ctx, system); err != nil {
			return "", err
		}
	}
	if p.fail != nil {
		if err := p.fail(system, user); err != nil {
			return "", err
		}
	}
	switch system {
	case systemPrompt(prompts.SystemDevPlan):
		return devPlanText, nil
	case systemPrompt(prompts.SystemArchitecture):
		return architectureText, nil
	case systemPrompt(prompts.SystemBlueprint):
		return blueprintText, nil
	case systemPrompt(prompts.SystemDirectoryTree):
		return treeText, nil
	}
	return "", errors.New("unexpected system prompt")
}

func (p *stubProvider) Generate(ctx context.Context, prompt string) (string, error) {
	p.record(prompt)
	if p.fail != nil {
		if err := p.fail("", prompt); err != nil {
			return "", err
		}
	}
	if strings.Contains(prompt, treeText) {
		return p.schema, nil
	}
	return readmeText, nil
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) record(prompt string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, prompt)
}

func (p *stubProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

func systemPrompt(id prompts.PromptID) string {
	return prompts.MustRender(id, nil)
}

// failSystemOnce fails the first call that uses the given system prompt.
func failSystemOnce(id prompts.PromptID) func(system, user string) error {
	var once sync.Once
	target := systemPrompt(id)
	return func(system, _ string) error {
		var err error
		if system == target {
			once.Do(func() { err = errUpstream })
		}
		return err
	}
}

// fakeHost records repositories and commits in memory.
type fakeHost struct {
	mu      sync.Mutex
	repos   []string
	commits []string

	// failPath fails the commit of this path once.
	failPath string
	failed   bool
}

func (h *fakeHost) CreateRepository(_ context.Context, name, _ string, _ bool) (*scaffold.Repository, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.repos = append(h.repos, name)
	return &scaffold.Repository{Owner: "acme", Name: name, URL: "https://github.com/acme/" + name}, nil
}

func (h *fakeHost) CreateFile(_ context.Context, _ *scaffold.Repository, path, _, _ string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if path == h.failPath && !h.failed {
		h.failed = true
		return testutil.ErrMockConflict
	}
	h.commits = append(h.commits, path)
	return nil
}

func (h *fakeHost) snapshot() (repos, commits []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.repos...), append([]string(nil), h.commits...)
}

type fixture struct {
	store  *store.MemoryStore
	openai *stubProvider
	claude *stubProvider
	host   *fakeHost
	orch   *Orchestrator
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	return newFixtureWithStore(t, nil, opts...)
}

// newFixtureWithStore builds a fixture whose orchestrator talks to
// wrap(memory store). A nil wrap uses the memory store directly.
func newFixtureWithStore(t *testing.T, wrap func(store.Store) store.Store, opts ...Option) *fixture {
	t.Helper()

	f := &fixture{
		store:  store.NewMemoryStore(),
		openai: newOpenAIStub(),
		claude: newClaudeStub(),
		host:   &fakeHost{},
	}
	require.NoError(t, f.store.CreateProject(context.Background(), &domain.Project{
		ID:          testProjectID,
		UserID:      "u-1",
		Name:        "todo-app",
		Description: "A todo app",
	}))

	scaffolder := scaffold.New(f.host, scaffold.Options{CommitInterval: -1}, zerolog.Nop())
	var st store.Store = f.store
	if wrap != nil {
		st = wrap(f.store)
	}
	f.orch = New(st, f.openai, f.claude, scaffolder, DefaultConfig(), zerolog.Nop(), opts...)
	return f
}

func (f *fixture) project(t *testing.T) *domain.Project {
	t.Helper()
	p, err := f.store.GetProject(context.Background(), testProjectID)
	require.NoError(t, err)
	return p
}

func (f *fixture) job(t *testing.T, id string) *domain.GenerationJob {
	t.Helper()
	j, err := f.store.GetJob(context.Background(), id)
	require.NoError(t, err)
	return j
}

// flakyStore fails selected writes once and otherwise defers to Store.
type flakyStore struct {
	store.Store

	mu sync.Mutex

	// failProjectStatus fails the first UpdateProjectStatus to this status.
	failProjectStatus domain.ProjectStatus

	// failJobStatus fails the first UpdateJob saving a job in this status.
	failJobStatus domain.JobStatus

	// failSwap fails the first CompareAndSwapJob.
	failSwap bool
}

func (s *flakyStore) UpdateProjectStatus(ctx context.Context, projectID string, status domain.ProjectStatus, reason string) error {
	s.mu.Lock()
	fail := s.failProjectStatus != "" && status == s.failProjectStatus
	if fail {
		s.failProjectStatus = ""
	}
	s.mu.Unlock()
	if fail {
		return testutil.ErrMockConnReset
	}
	return s.Store.UpdateProjectStatus(ctx, projectID, status, reason)
}

func (s *flakyStore) UpdateJob(ctx context.Context, job *domain.GenerationJob) error {
	s.mu.Lock()
	fail := s.failJobStatus != "" && job.Status == s.failJobStatus
	if fail {
		s.failJobStatus = ""
	}
	s.mu.Unlock()
	if fail {
		return testutil.ErrMockConnReset
	}
	return s.Store.UpdateJob(ctx, job)
}

func (s *flakyStore) CompareAndSwapJob(ctx context.Context, job *domain.GenerationJob, from domain.JobStatus) (bool, error) {
	s.mu.Lock()
	fail := s.failSwap
	s.failSwap = false
	s.mu.Unlock()
	if fail {
		return false, testutil.ErrMockConnReset
	}
	return s.Store.CompareAndSwapJob(ctx, job, from)
}
