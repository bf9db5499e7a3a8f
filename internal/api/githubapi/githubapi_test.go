package githubapi

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-github/v68/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anaconda/packaging-utils/internal/api"
	"github.com/anaconda/packaging-utils/internal/config"
)

func configWithToken(token string) *config.Config {
	cfg := &config.Config{}
	cfg.UserInfo.Email = "packager@anaconda.com"
	cfg.Token.GitHub = token
	return cfg
}

func TestNew_RequiresToken(t *testing.T) {
	_, err := New(configWithToken(""))
	require.Error(t, err)
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Contains(t, apiErr.Message, "auth")
}

func TestNew_ReturnsClient(t *testing.T) {
	a, err := New(configWithToken("ghp_test"))
	require.NoError(t, err)
	assert.NotNil(t, a.Client())
}

func TestDo_RewrapsErrors(t *testing.T) {
	a, err := New(configWithToken("ghp_test"))
	require.NoError(t, err)

	sentinel := errors.New("boom")
	err = a.Do(context.Background(), func(ctx context.Context, client *github.Client) error {
		return sentinel
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel)
	var apiErr *api.Error
	assert.ErrorAs(t, err, &apiErr)
}

func TestDo_PassesClientThrough(t *testing.T) {
	a, err := New(configWithToken("ghp_test"))
	require.NoError(t, err)

	var got *github.Client
	require.NoError(t, a.Do(context.Background(), func(ctx context.Context, client *github.Client) error {
		got = client
		return nil
	}))
	assert.Same(t, a.Client(), got)
}

func TestRepoArchiveURL(t *testing.T) {
	assert.Equal(t,
		"https://github.com/AnacondaRecipes/scipy-feedstock/archive/main.tar.gz",
		RepoArchiveURL("AnacondaRecipes", "scipy-feedstock", "main"))
}
