package scaffold

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	docerrors "github.com/mrz1836/docgen/internal/errors"
	"github.com/mrz1836/docgen/internal/testutil"
)

var errBoom = testutil.ErrMockHost

type commit struct {
	path    string
	message string
	at      time.Time
}

type fakeHost struct {
	mu      sync.Mutex
	commits []commit
	failOn  string
	repoErr error
}

func (h *fakeHost) CreateRepository(_ context.Context, name, _ string, _ bool) (*Repository, error) {
	if h.repoErr != nil {
		return nil, h.repoErr
	}
	return &Repository{Owner: "acme", Name: name, URL: "https://github.com/acme/" + name}, nil
}

func (h *fakeHost) CreateFile(_ context.Context, _ *Repository, path, _, message string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if path == h.failOn {
		return errBoom
	}
	h.commits = append(h.commits, commit{path: path, message: message, at: time.Now()})
	return nil
}

func makeFiles(n int) []File {
	files := make([]File, n)
	for i := range files {
		files[i] = File{Path: fmt.Sprintf("dir%02d/README.md", i+1), Content: "content"}
	}
	return files
}

func newTestScaffolder(host Host, interval time.Duration) *Scaffolder {
	return New(host, Options{BatchSize: 10, CommitInterval: interval}, zerolog.Nop())
}

func TestCreateDirectoryStructure_CommitsInOrder(t *testing.T) {
	host := &fakeHost{}
	s := newTestScaffolder(host, -1)
	repo := &Repository{Owner: "acme", Name: "todo"}
	files := makeFiles(23)

	result, err := s.CreateDirectoryStructure(context.Background(), repo, files)
	require.NoError(t, err)
	require.Len(t, result.Committed, 23)
	assert.Empty(t, result.Failed)

	for i, c := range host.commits {
		assert.Equal(t, files[i].Path, c.path)
		assert.Equal(t, "Add "+files[i].Path, c.message)
	}
}

func TestCreateDirectoryStructure_PartialFailure(t *testing.T) {
	files := makeFiles(25)
	host := &fakeHost{failOn: files[14].Path}
	s := newTestScaffolder(host, -1)

	result, err := s.CreateDirectoryStructure(context.Background(), &Repository{Owner: "acme", Name: "todo"}, files)
	require.Error(t, err)
	require.ErrorIs(t, err, docerrors.ErrRemoteService)
	require.ErrorIs(t, err, errBoom)

	require.Len(t, result.Committed, 14)
	assert.Equal(t, files[13].Path, result.Committed[13])
	assert.Equal(t, files[14].Path, result.Failed)
	assert.Len(t, host.commits, 14, "no commit is attempted after the failure")
}

func TestCreateDirectoryStructure_RateLimited(t *testing.T) {
	host := &fakeHost{}
	interval := 20 * time.Millisecond
	s := newTestScaffolder(host, interval)

	start := time.Now()
	_, err := s.CreateDirectoryStructure(context.Background(), &Repository{Owner: "acme", Name: "todo"}, makeFiles(5))
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(start), 4*interval-2*time.Millisecond)
	for i := 1; i < len(host.commits); i++ {
		gap := host.commits[i].at.Sub(host.commits[i-1].at)
		assert.GreaterOrEqual(t, gap, interval-5*time.Millisecond)
	}
}

func TestCreateDirectoryStructure_ContextCancelled(t *testing.T) {
	host := &fakeHost{}
	s := newTestScaffolder(host, time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	result, err := s.CreateDirectoryStructure(ctx, &Repository{Owner: "acme", Name: "todo"}, makeFiles(3))
	require.Error(t, err)
	assert.NotErrorIs(t, err, docerrors.ErrRemoteService)
	assert.Len(t, result.Committed, 1)
	assert.Equal(t, "dir02/README.md", result.Failed)
}

func TestCreateDirectoryStructure_Empty(t *testing.T) {
	s := newTestScaffolder(&fakeHost{}, -1)
	result, err := s.CreateDirectoryStructure(context.Background(), &Repository{Owner: "acme", Name: "todo"}, nil)
	require.NoError(t, err)
	assert.Empty(t, result.Committed)
}

func TestCreateRepository(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		s := newTestScaffolder(&fakeHost{}, -1)
		repo, err := s.CreateRepository(context.Background(), "todo", "a todo app", true)
		require.NoError(t, err)
		assert.Equal(t, "acme/todo", repo.FullName())
	})

	t.Run("empty name", func(t *testing.T) {
		s := newTestScaffolder(&fakeHost{}, -1)
		_, err := s.CreateRepository(context.Background(), "", "", false)
		require.ErrorIs(t, err, docerrors.ErrEmptyValue)
	})

	t.Run("host failure wraps remote service", func(t *testing.T) {
		s := newTestScaffolder(&fakeHost{repoErr: errBoom}, -1)
		_, err := s.CreateRepository(context.Background(), "todo", "", false)
		require.ErrorIs(t, err, docerrors.ErrRemoteService)
		require.ErrorIs(t, err, errBoom)
	})
}
