// Package githubapi wraps the go-github client. The primary purpose of
// this wrapper is to standardize the authentication process and to
// condense failures into the common API error type.
package githubapi

import (
	"context"
	"fmt"

	"github.com/google/go-github/v68/github"

	"github.com/anaconda/packaging-utils/internal/api"
	"github.com/anaconda/packaging-utils/internal/config"
)

// API holds an authenticated GitHub client.
type API struct {
	client *github.Client
}

// New constructs an authenticated GitHub API wrapper from the
// configured token.
func New(cfg *config.Config) (*API, error) {
	token, err := cfg.RequireGitHubToken()
	if err != nil {
		return nil, api.WrapError(api.ErrRequestFailed, "failed to auth to GitHub", err)
	}
	return &API{client: github.NewClient(nil).WithAuthToken(token)}, nil
}

// Client exposes the underlying go-github client for direct use.
func (a *API) Client() *github.Client {
	return a.client
}

// Do runs fn against the client, rewrapping any error into the common
// API error type so callers handle one failure mode.
func (a *API) Do(ctx context.Context, fn func(ctx context.Context, client *github.Client) error) error {
	if err := fn(ctx, a.client); err != nil {
		return api.WrapError(api.ErrRequestFailed, "GitHub callback raised an error", err)
	}
	return nil
}

// RepoArchiveURL returns the tarball URL for a ref of a repository
// under the given organization, the piece of repository metadata the
// packaging flow most often needs.
func RepoArchiveURL(org, repo, ref string) string {
	return fmt.Sprintf("https://github.com/%s/%s/archive/%s.tar.gz", org, repo, ref)
}
