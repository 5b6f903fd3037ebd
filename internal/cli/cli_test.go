package cli

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/docgen/internal/config"
	"github.com/mrz1836/docgen/internal/constants"
	"github.com/mrz1836/docgen/internal/domain"
	"github.com/mrz1836/docgen/internal/errors"
	"github.com/mrz1836/docgen/internal/generation"
	"github.com/mrz1836/docgen/internal/store"
	"github.com/mrz1836/docgen/internal/testutil"
)


// testApp returns an app backed by one shared in-memory store and the
// default configuration with the memory driver.
func testApp(t *testing.T, mutate ...func(*config.Config)) (*app, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	a := newApp()
	a.logDir = ""
	a.openStore = func(context.Context, *config.Config) (store.Store, error) {
		return st, nil
	}
	a.loadConfig = func(context.Context, *GlobalFlags) (*config.Config, error) {
		cfg := config.DefaultConfig()
		cfg.Database.Driver = config.DriverMemory
		for _, m := range mutate {
			m(cfg)
		}
		return cfg, nil
	}
	return a, st
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, a *app, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(a, BuildInfo{Version: "1.2.3", Commit: "abc", Date: "2026-01-01"})
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func seedProject(t *testing.T, st store.ProjectStore) *domain.Project {
	t.Helper()
	p := &domain.Project{
		ID:     "p-1",
		UserID: "alice",
		Name:   "todo-app",
		Status: constants.ProjectStatusPending,
	}
	require.NoError(t, st.CreateProject(context.Background(), p))
	return p
}

func TestExitCodeForError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"exit code 2 wrapper", errors.NewExitCode2Error(stderrors.New("bad")), ExitInvalidInput},
		{"invalid output", fmt.Errorf("%w: yaml", errors.ErrInvalidOutputFormat), ExitInvalidInput},
		{"invalid step", errors.ErrInvalidStep, ExitInvalidInput},
		{"empty value", errors.Wrap(errors.ErrEmptyValue, "name"), ExitInvalidInput},
		{"cobra arguments", stderrors.New("accepts 1 arg(s), received 0"), ExitInvalidInput},
		{"unknown flag", stderrors.New("unknown flag: --nope"), ExitInvalidInput},
		{"provider failure", errors.ErrProvider, ExitError},
		{"not found", errors.ErrJobNotFound, ExitError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExitCodeForError(tc.err))
		})
	}
}

func TestFormatVersion(t *testing.T) {
	assert.Equal(t, "dev (commit: none, built: unknown)", formatVersion(BuildInfo{}))
	assert.Equal(t, "1.0.0 (commit: abc, built: today)", formatVersion(BuildInfo{Version: "1.0.0", Commit: "abc", Date: "today"}))
}

func TestRoot_InvalidOutputFormat(t *testing.T) {
	a, _ := testApp(t)
	_, err := execute(t, a, "project", "list", "--output", "yaml")
	require.ErrorIs(t, err, errors.ErrInvalidOutputFormat)
	assert.Equal(t, ExitInvalidInput, ExitCodeForError(err))
}

func TestProjectCommands(t *testing.T) {
	a, st := testApp(t)

	out, err := execute(t, a, "project", "create", "todo-app", "--description", "A todo app", "--tech", "go", "--tech", "sqlite", "-o", "json")
	require.NoError(t, err)

	var created domain.Project
	require.NoError(t, json.Unmarshal([]byte(out), &created))
	assert.Equal(t, "todo-app", created.Name)
	assert.Equal(t, "local", created.UserID)
	assert.Equal(t, []string{"go", "sqlite"}, created.Technologies)
	assert.Equal(t, constants.ProjectStatusPending, created.Status)

	stored, err := st.GetProject(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "A todo app", stored.Description)

	out, err = execute(t, a, "project", "list")
	require.NoError(t, err)
	assert.Contains(t, out, created.ID)
	assert.Contains(t, out, "todo-app")

	out, err = execute(t, a, "project", "show", created.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "go, sqlite")
	assert.Contains(t, out, "Repository:   -")
}

func TestProjectCreate_BlankName(t *testing.T) {
	a, _ := testApp(t)
	_, err := execute(t, a, "project", "create", "  ")
	require.ErrorIs(t, err, errors.ErrEmptyValue)
	assert.Equal(t, ExitInvalidInput, ExitCodeForError(err))
}

func TestProjectList_Empty(t *testing.T) {
	a, _ := testApp(t)
	out, err := execute(t, a, "project", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No projects")

	out, err = execute(t, a, "project", "list", "-o", "json")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)
}

func TestProjectShow_NotFound(t *testing.T) {
	a, _ := testApp(t)
	_, err := execute(t, a, "project", "show", "missing")
	require.ErrorIs(t, err, errors.ErrProjectNotFound)
	assert.Equal(t, ExitError, ExitCodeForError(err))
}

func TestStatus(t *testing.T) {
	a, st := testApp(t)
	seedProject(t, st)

	out, err := execute(t, a, "status", "p-1")
	require.NoError(t, err)
	assert.Contains(t, out, "todo-app")
	assert.Contains(t, out, "No generation jobs")

	orch := generation.New(st, nil, nil, nil, generation.DefaultConfig(), zerolog.Nop())
	job, err := orch.CreateJob(context.Background(), "p-1", "a todo app")
	require.NoError(t, err)

	out, err = execute(t, a, "status", "p-1")
	require.NoError(t, err)
	assert.Contains(t, out, job.ID)
	assert.Contains(t, out, "processing")
	assert.Contains(t, out, "Architecture")
	assert.Contains(t, out, "CommunicationSchema")

	out, err = execute(t, a, "status", "p-1", "-o", "json")
	require.NoError(t, err)
	var report statusReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Jobs, 1)
	assert.Equal(t, job.ID, report.Jobs[0].ID)
	assert.Equal(t, "p-1", report.Project.ID)
}

func TestCancel_PendingJob(t *testing.T) {
	a, st := testApp(t)
	seedProject(t, st)
	ctx := context.Background()

	orch := generation.New(st, nil, nil, nil, generation.DefaultConfig(), zerolog.Nop())
	job, err := orch.CreateJob(ctx, "p-1", "a todo app")
	require.NoError(t, err)
	require.Equal(t, constants.JobStatusPending, job.Status)

	out, err := execute(t, a, "cancel", job.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Cancelled job "+job.ID)

	stored, err := st.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusCancelled, stored.Status)

	project, err := st.GetProject(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, constants.ProjectStatusCancelled, project.Status)

	_, err = execute(t, a, "cancel", job.ID)
	require.ErrorIs(t, err, errors.ErrInvalidTransition)
}

func TestCancel_UnknownJob(t *testing.T) {
	a, _ := testApp(t)
	_, err := execute(t, a, "cancel", "nope")
	require.ErrorIs(t, err, errors.ErrJobNotFound)
}

func TestRetry_InvalidStep(t *testing.T) {
	a, _ := testApp(t)
	_, err := execute(t, a, "retry", "job-1", "compile")
	require.ErrorIs(t, err, errors.ErrInvalidStep)
	assert.Equal(t, ExitInvalidInput, ExitCodeForError(err))
}

func TestGenerate_MissingCredential(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	a, st := testApp(t)
	seedProject(t, st)

	_, err := execute(t, a, "generate", "p-1", "a", "todo", "app")
	require.ErrorIs(t, err, errors.ErrMissingCredential)

	jobs, err := st.ListJobs(context.Background(), "p-1")
	require.NoError(t, err)
	assert.Empty(t, jobs, "no job is created before credentials are checked")
}

func TestGenerate_AsyncWithoutQueue(t *testing.T) {
	a, st := testApp(t)
	seedProject(t, st)
	a.buildPipeline = func(_ context.Context, _ *config.Config, st store.Store, logger zerolog.Logger) (*Pipeline, error) {
		return &Pipeline{Orchestrator: generation.New(st, nil, nil, nil, generation.DefaultConfig(), logger)}, nil
	}

	_, err := execute(t, a, "generate", "p-1", "a todo app", "--async")
	require.ErrorIs(t, err, errors.ErrInvalidArgument)
	assert.Equal(t, ExitInvalidInput, ExitCodeForError(err))
	assert.Contains(t, err.Error(), "queue.backend redis")
}

func TestDocsCommands(t *testing.T) {
	a, st := testApp(t)
	seedProject(t, st)
	ctx := context.Background()

	out, err := execute(t, a, "docs", "list", "p-1")
	require.NoError(t, err)
	assert.Contains(t, out, "No documents")

	require.NoError(t, st.SaveDocument(ctx, "p-1", domain.DocumentReadme, "# todo-app\n\nTrack your todos."))
	require.NoError(t, st.SaveDocument(ctx, "p-1", domain.DocumentSchema, testutil.SchemaJSON))

	out, err = execute(t, a, "docs", "list", "p-1")
	require.NoError(t, err)
	assert.Contains(t, out, "readme")
	assert.Contains(t, out, "schema")

	out, err = execute(t, a, "docs", "show", "p-1", "readme", "--raw")
	require.NoError(t, err)
	assert.Equal(t, "# todo-app\n\nTrack your todos.\n", out)

	out, err = execute(t, a, "docs", "show", "p-1", "readme")
	require.NoError(t, err)
	assert.Contains(t, out, "Track your todos.")

	out, err = execute(t, a, "docs", "show", "p-1", "readme", "-o", "json")
	require.NoError(t, err)
	var doc domain.Document
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, domain.DocumentReadme, doc.Kind)

	_, err = execute(t, a, "docs", "show", "p-1", "architecture")
	require.ErrorIs(t, err, errors.ErrDocumentNotFound)

	_, err = execute(t, a, "docs", "show", "p-1", "novel")
	require.ErrorIs(t, err, errors.ErrInvalidArgument)
	assert.Equal(t, ExitInvalidInput, ExitCodeForError(err))
}

func TestDocsAgents(t *testing.T) {
	a, st := testApp(t)
	seedProject(t, st)
	require.NoError(t, st.SaveDocument(context.Background(), "p-1", domain.DocumentSchema, testutil.SchemaJSON))

	out, err := execute(t, a, "docs", "agents", "p-1", "--raw")
	require.NoError(t, err)
	assert.Contains(t, out, "==> src/README.md <==")
	assert.Contains(t, out, "==> src/AGENT.md <==")

	out, err = execute(t, a, "docs", "agents", "p-1", "src", "-o", "json")
	require.NoError(t, err)
	var files []domain.AgentFile
	require.NoError(t, json.Unmarshal([]byte(out), &files))
	require.Len(t, files, 1)
	assert.Equal(t, "src/README.md", files[0].Path)

	_, err = execute(t, a, "docs", "agents", "p-1", "lib")
	require.ErrorIs(t, err, errors.ErrInvalidArgument)
}

func writeSchemaFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schema.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestSchemaValidate(t *testing.T) {
	a, _ := testApp(t)
	path := writeSchemaFile(t, testutil.SchemaJSON)

	out, err := execute(t, a, "schema", "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "1 directories, 2 files, 1 event flows")

	out, err = execute(t, a, "schema", "validate", path, "-o", "json")
	require.NoError(t, err)
	var summary schemaSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.True(t, summary.Valid)
	assert.Equal(t, []string{"src"}, summary.Directories)
}

func TestSchemaValidate_Invalid(t *testing.T) {
	a, _ := testApp(t)

	_, err := execute(t, a, "schema", "validate", writeSchemaFile(t, `{"version": `))
	require.ErrorIs(t, err, errors.ErrParse)

	_, err = execute(t, a, "schema", "validate", filepath.Join(t.TempDir(), "missing.json"))
	require.ErrorIs(t, err, errors.ErrInvalidArgument)
}

func TestSchemaRender_WritesFiles(t *testing.T) {
	a, _ := testApp(t)
	path := writeSchemaFile(t, testutil.SchemaJSON)
	dir := t.TempDir()

	out, err := execute(t, a, "schema", "render", path, "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote 2 files")

	readme, err := os.ReadFile(filepath.Join(dir, "src", "README.md"))
	require.NoError(t, err)
	agent, err := os.ReadFile(filepath.Join(dir, "src", "AGENT.md"))
	require.NoError(t, err)
	assert.Equal(t, readme, agent)
	assert.Contains(t, string(readme), "main")
}

func TestConfigShow_MasksConnectionPasswords(t *testing.T) {
	a, _ := testApp(t, func(cfg *config.Config) {
		cfg.Database.Driver = config.DriverPostgres
		cfg.Database.DSN = "postgres://docgen:hunter2secret@db:5432/docgen"
		cfg.Queue.RedisURL = "redis://:queuepass@localhost:6379/0"
		cfg.Generation.StageTimeout = 90 * time.Second
	})

	out, err := execute(t, a, "config", "show")
	require.NoError(t, err)
	assert.NotContains(t, out, "hunter2secret")
	assert.NotContains(t, out, "queuepass")
	assert.Contains(t, out, "[REDACTED]")
	assert.Contains(t, out, "api_key_env: OPENAI_API_KEY")
	assert.Contains(t, out, "stage_timeout: 1m30s")
}

func TestWorker_InvalidWorkerCount(t *testing.T) {
	a, _ := testApp(t)
	_, err := execute(t, a, "worker", "--workers", "500")
	require.ErrorIs(t, err, errors.ErrConfigInvalid)
	assert.Equal(t, ExitInvalidInput, ExitCodeForError(err))
}
