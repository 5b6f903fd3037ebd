// Package scaffold materializes generated files in a new remote repository.
//
// The Scaffolder writes files one commit at a time, in input order, grouped
// into batches and paced by a token-bucket limiter so the repository host's
// secondary rate limits are not tripped. There is no retry: the first
// failed commit aborts the run and the Result records what was written.
package scaffold

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/mrz1836/docgen/internal/constants"
	docerrors "github.com/mrz1836/docgen/internal/errors"
)

// Repository identifies a created remote repository.
type Repository struct {
	Owner         string `json:"owner"`
	Name          string `json:"name"`
	URL           string `json:"url"`
	DefaultBranch string `json:"default_branch,omitempty"`
}

// FullName returns "owner/name".
func (r *Repository) FullName() string {
	return r.Owner + "/" + r.Name
}

// File is one file to commit.
type File struct {
	Path    string
	Content string
}

// Result reports the outcome of CreateDirectoryStructure.
type Result struct {
	// Committed lists the paths committed, in commit order.
	Committed []string `json:"committed"`

	// Failed is the path whose commit failed, empty on success.
	Failed string `json:"failed,omitempty"`
}

// Host is the repository hosting service.
type Host interface {
	// CreateRepository creates an initialized repository.
	CreateRepository(ctx context.Context, name, description string, private bool) (*Repository, error)

	// CreateFile commits a single new file.
	CreateFile(ctx context.Context, repo *Repository, path, content, message string) error
}

// Options configures a Scaffolder. Zero values use the package defaults.
type Options struct {
	BatchSize int

	// CommitInterval is the minimum spacing between commits. A negative
	// value disables pacing.
	CommitInterval time.Duration
}

// Scaffolder writes files to a Host in rate-limited batches.
type Scaffolder struct {
	host      Host
	batchSize int
	limiter   *rate.Limiter
	logger    zerolog.Logger
}

// New creates a Scaffolder. The limiter is shared by every call, so
// concurrent jobs using one Scaffolder share the commit budget.
func New(host Host, opts Options, logger zerolog.Logger) *Scaffolder {
	if opts.BatchSize <= 0 {
		opts.BatchSize = constants.DefaultBatchSize
	}
	if opts.CommitInterval == 0 {
		opts.CommitInterval = constants.DefaultCommitInterval
	}
	limit := rate.Inf
	if opts.CommitInterval > 0 {
		limit = rate.Every(opts.CommitInterval)
	}
	return &Scaffolder{
		host:      host,
		batchSize: opts.BatchSize,
		limiter:   rate.NewLimiter(limit, 1),
		logger:    logger.With().Str("component", "scaffold").Logger(),
	}
}

// CreateRepository creates the remote repository.
func (s *Scaffolder) CreateRepository(ctx context.Context, name, description string, private bool) (*Repository, error) {
	if name == "" {
		return nil, docerrors.Wrap(docerrors.ErrEmptyValue, "repository name")
	}
	repo, err := s.host.CreateRepository(ctx, name, description, private)
	if err != nil {
		return nil, asRemote(err, "create repository "+name)
	}
	s.logger.Info().
		Str("repository", repo.FullName()).
		Str("url", repo.URL).
		Msg("repository created")
	return repo, nil
}

// CreateFile commits a single file after waiting for the limiter.
func (s *Scaffolder) CreateFile(ctx context.Context, repo *Repository, path, content, message string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	if err := s.host.CreateFile(ctx, repo, path, content, message); err != nil {
		return asRemote(err, "commit "+path)
	}
	return nil
}

// CreateDirectoryStructure commits files in order. Each commit is
// "Add <path>". On the first failure it stops and returns the partial Result
// together with the error.
func (s *Scaffolder) CreateDirectoryStructure(ctx context.Context, repo *Repository, files []File) (*Result, error) {
	result := &Result{Committed: make([]string, 0, len(files))}
	batches := (len(files) + s.batchSize - 1) / s.batchSize

	for start, batch := 0, 1; start < len(files); start, batch = start+s.batchSize, batch+1 {
		end := min(start+s.batchSize, len(files))
		s.logger.Debug().
			Str("repository", repo.FullName()).
			Int("batch", batch).
			Int("batches", batches).
			Int("files", end-start).
			Msg("committing batch")

		for _, f := range files[start:end] {
			if err := s.CreateFile(ctx, repo, f.Path, f.Content, constants.CommitMessagePrefix+f.Path); err != nil {
				result.Failed = f.Path
				s.logger.Warn().
					Err(err).
					Str("repository", repo.FullName()).
					Str("path", f.Path).
					Int("committed", len(result.Committed)).
					Msg("commit failed, aborting scaffold")
				return result, err
			}
			result.Committed = append(result.Committed, f.Path)
		}
	}

	s.logger.Info().
		Str("repository", repo.FullName()).
		Int("committed", len(result.Committed)).
		Msg("scaffold complete")
	return result, nil
}

// asRemote makes sure host failures carry ErrRemoteService. Context
// cancellation is passed through untouched.
func asRemote(err error, op string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, docerrors.ErrRemoteService) {
		return docerrors.Wrap(err, op)
	}
	return fmt.Errorf("%w: %s: %w", docerrors.ErrRemoteService, op, err)
}
