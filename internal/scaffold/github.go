package scaffold

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v69/github"

	"github.com/mrz1836/docgen/internal/constants"
	docerrors "github.com/mrz1836/docgen/internal/errors"
)

// GitHubOptions configures a GitHubHost.
type GitHubOptions struct {
	// Organization owns new repositories. Empty means the token's user.
	Organization string

	// Branch receives committed files. Defaults to DefaultBranch.
	Branch string

	// BaseURL overrides the API root (GitHub Enterprise, tests).
	BaseURL string

	// HTTPClient is used for API calls. Defaults to http.DefaultClient.
	HTTPClient *http.Client
}

// GitHubHost implements Host with the GitHub REST API.
type GitHubHost struct {
	client *github.Client
	org    string
	branch string
}

// Compile-time check that GitHubHost implements Host.
var _ Host = (*GitHubHost)(nil)

// NewGitHubHost creates a host authenticated with token.
func NewGitHubHost(token string, opts GitHubOptions) (*GitHubHost, error) {
	if token == "" {
		return nil, docerrors.Wrap(docerrors.ErrMissingCredential, "github token")
	}
	client := github.NewClient(opts.HTTPClient).WithAuthToken(token)
	if opts.BaseURL != "" {
		base := opts.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("%w: github base url: %w", docerrors.ErrConfigInvalid, err)
		}
		client.BaseURL = u
	}
	branch := opts.Branch
	if branch == "" {
		branch = constants.DefaultBranch
	}
	return &GitHubHost{client: client, org: opts.Organization, branch: branch}, nil
}

// CreateRepository creates an auto-initialized repository.
func (h *GitHubHost) CreateRepository(ctx context.Context, name, description string, private bool) (*Repository, error) {
	repo, _, err := h.client.Repositories.Create(ctx, h.org, &github.Repository{
		Name:        github.Ptr(name),
		Description: github.Ptr(description),
		Private:     github.Ptr(private),
		AutoInit:    github.Ptr(true),
	})
	if err != nil {
		return nil, classify(err)
	}
	return &Repository{
		Owner:         repo.GetOwner().GetLogin(),
		Name:          repo.GetName(),
		URL:           repo.GetHTMLURL(),
		DefaultBranch: repo.GetDefaultBranch(),
	}, nil
}

// CreateFile commits one file on the configured branch.
func (h *GitHubHost) CreateFile(ctx context.Context, repo *Repository, path, content, message string) error {
	_, _, err := h.client.Repositories.CreateFile(ctx, repo.Owner, repo.Name, path, &github.RepositoryContentFileOptions{
		Message: github.Ptr(message),
		Content: []byte(content),
		Branch:  github.Ptr(h.branch),
	})
	if err != nil {
		return classify(err)
	}
	return nil
}

// classify names the failure class in the message and wraps ErrRemoteService.
func classify(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return fmt.Errorf("%w: rate limited: %w", docerrors.ErrRemoteService, err)
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return fmt.Errorf("%w: secondary rate limit: %w", docerrors.ErrRemoteService, err)
	}

	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		switch code := respErr.Response.StatusCode; {
		case code == http.StatusUnauthorized || code == http.StatusForbidden:
			return fmt.Errorf("%w: authentication failed (status %d): %w", docerrors.ErrRemoteService, code, err)
		case code == http.StatusUnprocessableEntity:
			return fmt.Errorf("%w: name already exists or request invalid (status %d): %w", docerrors.ErrRemoteService, code, err)
		case code == http.StatusNotFound:
			return fmt.Errorf("%w: not found (status %d): %w", docerrors.ErrRemoteService, code, err)
		case code >= http.StatusInternalServerError:
			return fmt.Errorf("%w: server error (status %d): %w", docerrors.ErrRemoteService, code, err)
		}
	}
	return fmt.Errorf("%w: %w", docerrors.ErrRemoteService, err)
}
