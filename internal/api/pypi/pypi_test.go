package pypi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anaconda/packaging-utils/internal/api"
)

const (
	goodMD5    = "199037865cc19536a1ae07b115e5a5c2"
	goodSHA256 = "cbaa2e02de8389a04f42ef98d92e11fb319a66dcd86834bdb434dd008525c593"
)

func artifact(filename, pythonVersion string) string {
	return fmt.Sprintf(`{
		"digests": {"md5": %q, "sha256": %q},
		"filename": %q,
		"python_version": %q,
		"size": 1024,
		"upload_time_iso_8601": "2023-06-25T02:43:14.000000Z",
		"url": "https://files.pythonhosted.org/%s"
	}`, goodMD5, goodSHA256, filename, pythonVersion, filename)
}

func infoBlock() string {
	return `{
		"description": "A scientific library",
		"description_content_type": "text/x-rst",
		"docs_url": null,
		"license": "BSD",
		"name": "scipy",
		"package_url": "https://pypi.org/project/scipy/",
		"project_url": "https://pypi.org/project/scipy/",
		"project_urls": {"Homepage": "https://scipy.org", "Source": "https://github.com/scipy/scipy"},
		"release_url": "https://pypi.org/project/scipy/1.11.1/",
		"requires_python": ">=3.9",
		"summary": "Scientific computing",
		"version": "1.11.1"
	}`
}

func servePyPI(t *testing.T, body string) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	old := BaseURL
	BaseURL = srv.URL
	t.Cleanup(func() { BaseURL = old })
}

func TestFetchPackageMetadata_Success(t *testing.T) {
	servePyPI(t, fmt.Sprintf(`{
		"info": %s,
		"urls": [%s, %s],
		"releases": {
			"1.11.0": [%s],
			"1.11.1": [%s, %s]
		}
	}`,
		infoBlock(),
		artifact("scipy-1.11.1-py3-none-any.whl", "py3"),
		artifact("scipy-1.11.1.tar.gz", "source"),
		artifact("scipy-1.11.0.tar.gz", "source"),
		artifact("scipy-1.11.1.zip", "source"),
		artifact("scipy-1.11.1.tar.gz", "source"),
	))

	meta, err := FetchPackageMetadata(context.Background(), api.NewClient(time.Second), "scipy")
	require.NoError(t, err)

	assert.Equal(t, "scipy", meta.Info.Name)
	assert.Equal(t, "1.11.1", meta.Info.Version)
	assert.Equal(t, "BSD", meta.Info.License)
	assert.Equal(t, "https://scipy.org", meta.Info.HomepageURL)
	assert.Equal(t, "https://github.com/scipy/scipy", meta.Info.SourceURL)
	assert.Equal(t, ">=3.9", meta.Info.RequiresPython)

	// The info urls block only keeps the source artifact, never wheels.
	assert.Equal(t, "scipy-1.11.1.tar.gz", meta.Info.SourceMetadata.Filename)
	assert.Equal(t, goodMD5, meta.Info.SourceMetadata.MD5)
	assert.Equal(t, int64(1024), meta.Info.SourceMetadata.Size)
	assert.Equal(t,
		time.Date(2023, 6, 25, 2, 43, 14, 0, time.UTC),
		meta.Info.SourceMetadata.UploadTime.UTC())

	require.Len(t, meta.Releases, 2)
	assert.Equal(t, "scipy-1.11.0.tar.gz", meta.Releases["1.11.0"].Filename)
	// Tarballs are preferred over zips when a release has several
	// source artifacts.
	assert.Equal(t, "scipy-1.11.1.tar.gz", meta.Releases["1.11.1"].Filename)
}

func TestFetchPackageMetadata_ReleasesRequired(t *testing.T) {
	servePyPI(t, fmt.Sprintf(`{
		"info": %s,
		"urls": [%s]
	}`, infoBlock(), artifact("scipy-1.11.1.tar.gz", "source")))

	_, err := FetchPackageMetadata(context.Background(), api.NewClient(time.Second), "scipy")
	require.Error(t, err)
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, api.ErrSchema, apiErr.Code)
}

func TestFetchPackageMetadata_WheelOnlyRelease(t *testing.T) {
	servePyPI(t, fmt.Sprintf(`{
		"info": %s,
		"urls": [%s],
		"releases": {"1.0.0": [%s]}
	}`,
		infoBlock(),
		artifact("scipy-1.11.1.tar.gz", "source"),
		artifact("scipy-1.0.0-py3-none-any.whl", "py3"),
	))

	_, err := FetchPackageMetadata(context.Background(), api.NewClient(time.Second), "scipy")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source artifacts")
}

func TestFetchPackageVersionMetadata_Success(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"info": %s, "urls": [%s]}`,
			infoBlock(), artifact("scipy-1.11.1.tar.gz", "source"))
	}))
	t.Cleanup(srv.Close)
	old := BaseURL
	BaseURL = srv.URL
	t.Cleanup(func() { BaseURL = old })

	meta, err := FetchPackageVersionMetadata(context.Background(), api.NewClient(time.Second), "scipy", "1.11.1")
	require.NoError(t, err)

	assert.Equal(t, "/scipy/1.11.1/json", gotPath)
	require.Len(t, meta.Releases, 1)
	assert.Equal(t, "scipy-1.11.1.tar.gz", meta.Releases["1.11.1"].Filename)
}

func TestFetchPackageVersionMetadata_NoSourceArtifact(t *testing.T) {
	servePyPI(t, fmt.Sprintf(`{
		"info": %s,
		"urls": [%s]
	}`, infoBlock(), artifact("scipy-1.11.1-py3-none-any.whl", "py3")))

	_, err := FetchPackageVersionMetadata(context.Background(), api.NewClient(time.Second), "scipy", "1.11.1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source artifacts are not provided")
}

func TestFetchPackageVersionMetadata_NullStringsNormalize(t *testing.T) {
	info := `{
		"description": null,
		"description_content_type": null,
		"docs_url": null,
		"license": "MIT",
		"name": "tinylib",
		"package_url": "https://pypi.org/project/tinylib/",
		"project_url": "https://pypi.org/project/tinylib/",
		"project_urls": null,
		"release_url": "https://pypi.org/project/tinylib/0.1.0/",
		"requires_python": null,
		"summary": null,
		"version": "0.1.0"
	}`
	servePyPI(t, fmt.Sprintf(`{"info": %s, "urls": [%s]}`,
		info, artifact("tinylib-0.1.0.tar.gz", "source")))

	meta, err := FetchPackageVersionMetadata(context.Background(), api.NewClient(time.Second), "tinylib", "0.1.0")
	require.NoError(t, err)

	assert.Empty(t, meta.Info.Description)
	assert.Empty(t, meta.Info.Summary)
	assert.Empty(t, meta.Info.HomepageURL)
	assert.Empty(t, meta.Info.RequiresPython)
	assert.Equal(t, "MIT", meta.Info.License)
}

func TestFetchPackageVersionMetadata_BadDigest(t *testing.T) {
	bad := fmt.Sprintf(`{
		"digests": {"md5": "nope", "sha256": %q},
		"filename": "x-1.0.tar.gz",
		"python_version": "source",
		"size": 10,
		"upload_time_iso_8601": "2023-06-25T02:43:14.000000Z",
		"url": "https://example.com/x"
	}`, goodSHA256)
	servePyPI(t, fmt.Sprintf(`{"info": %s, "urls": [%s]}`, infoBlock(), bad))

	_, err := FetchPackageVersionMetadata(context.Background(), api.NewClient(time.Second), "x", "1.0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MD5 hash is invalid")
}

func TestFetchPackageVersionMetadata_EmptyLicense(t *testing.T) {
	info := `{
		"description": "d",
		"description_content_type": "text/plain",
		"docs_url": null,
		"license": null,
		"name": "x",
		"package_url": "https://pypi.org/project/x/",
		"project_url": "https://pypi.org/project/x/",
		"project_urls": null,
		"release_url": "https://pypi.org/project/x/1.0/",
		"requires_python": null,
		"summary": null,
		"version": "1.0"
	}`
	servePyPI(t, fmt.Sprintf(`{"info": %s, "urls": [%s]}`,
		info, artifact("x-1.0.tar.gz", "source")))

	_, err := FetchPackageVersionMetadata(context.Background(), api.NewClient(time.Second), "x", "1.0")
	require.Error(t, err)
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, api.ErrEmptyField, apiErr.Code)
}
