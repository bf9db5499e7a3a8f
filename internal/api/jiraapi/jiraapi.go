// Package jiraapi wraps the go-jira client. The primary purpose of this
// wrapper is to simplify and standardize the authentication process
// against the team's JIRA boards.
package jiraapi

import (
	jira "github.com/andygrunwald/go-jira"

	"github.com/anaconda/packaging-utils/internal/api"
	"github.com/anaconda/packaging-utils/internal/config"
)

// HostURL is where our JIRA boards are hosted. It is a variable so
// tests can point the wrapper at a local server.
var HostURL = "https://anaconda.atlassian.net/"

// API holds an authenticated Jira client.
type API struct {
	client *jira.Client
}

// New constructs an authenticated Jira API wrapper using basic auth
// from the configured email and token.
func New(cfg *config.Config) (*API, error) {
	token, err := cfg.RequireJiraToken()
	if err != nil {
		return nil, api.WrapError(api.ErrRequestFailed, "failed to auth to JIRA", err)
	}

	transport := jira.BasicAuthTransport{
		Username: cfg.UserInfo.Email,
		Password: token,
	}
	client, err := jira.NewClient(transport.Client(), HostURL)
	if err != nil {
		return nil, api.WrapError(api.ErrRequestFailed, "failed to connect to JIRA", err)
	}
	return &API{client: client}, nil
}

// Client exposes the underlying go-jira client for direct use.
func (a *API) Client() *jira.Client {
	return a.client
}

// Do runs fn against the client, rewrapping any error into the common
// API error type so callers handle one failure mode.
func (a *API) Do(fn func(client *jira.Client) error) error {
	if err := fn(a.client); err != nil {
		return api.WrapError(api.ErrRequestFailed, "JIRA callback raised an error", err)
	}
	return nil
}
