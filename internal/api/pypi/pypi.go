// Package pypi pulls package information from the publicly available
// PyPI JSON API.
//
// Only `source` artifacts are retained: conda recipes rebuild from
// source and never consume PyPI's wheel packaging.
package pypi

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/anaconda/packaging-utils/internal/api"
)

//go:embed schema.cue
var schemaSrc string

var (
	packageSchema             = api.MustCompileSchema(schemaSrc, "#Package")
	packageWithReleasesSchema = api.MustCompileSchema(schemaSrc, "#PackageWithReleases")
)

// BaseURL is the API root. It is a variable so tests can point the
// fetchers at a local server.
var BaseURL = "https://pypi.python.org/pypi"

// VersionMetadata describes one source artifact of a package version.
// The digests object is flattened into per-algorithm fields.
type VersionMetadata struct {
	MD5           string    `json:"md5"`
	SHA256        string    `json:"sha256"`
	Filename      string    `json:"filename"`
	PythonVersion string    `json:"python_version"`
	Size          int64     `json:"size"`
	UploadTime    time.Time `json:"upload_time"`
	URL           string    `json:"url"`
}

// PackageInfo is the info block shared by both GET endpoints. Null
// strings normalize to "", and project_urls is flattened into the
// homepage/source fields.
type PackageInfo struct {
	Description            string          `json:"description"`
	DescriptionContentType string          `json:"description_content_type"`
	DocsURL                string          `json:"docs_url"`
	License                string          `json:"license"`
	Name                   string          `json:"name"`
	PackageURL             string          `json:"package_url"`
	ProjectURL             string          `json:"project_url"`
	HomepageURL            string          `json:"homepage_url"`
	SourceURL              string          `json:"source_url"`
	ReleaseURL             string          `json:"release_url"`
	RequiresPython         string          `json:"requires_python"`
	Summary                string          `json:"summary"`
	Version                string          `json:"version"`
	SourceMetadata         VersionMetadata `json:"source_metadata"`
}

// PackageMetadata is everything we track about a package.
type PackageMetadata struct {
	Info PackageInfo `json:"info"`
	// Releases maps version strings to their preferred source artifact.
	Releases map[string]VersionMetadata `json:"releases"`
}

func packageMetadataURL(pkg string) string {
	return fmt.Sprintf("%s/%s/json", BaseURL, pkg)
}

func packageVersionMetadataURL(pkg, version string) string {
	return fmt.Sprintf("%s/%s/%s/json", BaseURL, pkg, version)
}

// FetchPackageMetadata fetches and validates package metadata,
// including the full release history.
func FetchPackageMetadata(ctx context.Context, client *api.Client, pkg string) (*PackageMetadata, error) {
	_, decoded, err := client.GetJSON(ctx, packageMetadataURL(pkg), packageWithReleasesSchema)
	if err != nil {
		return nil, err
	}

	info, err := parsePackageInfo(decoded)
	if err != nil {
		return nil, err
	}

	// Pre-populate with the top-level "latest" release information that
	// is guaranteed to be there. If the releases section duplicates
	// this version, releases wins.
	releases := map[string]VersionMetadata{
		info.Version: info.SourceMetadata,
	}

	relJSON, _ := decoded["releases"].(map[string]any)
	for version, raw := range relJSON {
		artifacts, _ := raw.([]any)
		preferred, err := selectSourceArtifact(artifacts)
		if err != nil {
			return nil, fmt.Errorf("release %s: %w", version, err)
		}
		releases[version] = preferred
	}

	if len(releases) == 0 {
		return nil, api.NewError(api.ErrEmptyField, "API did not return any source information")
	}

	return &PackageMetadata{Info: *info, Releases: releases}, nil
}

// FetchPackageVersionMetadata fetches and validates package metadata at
// a specific version.
func FetchPackageVersionMetadata(ctx context.Context, client *api.Client, pkg, version string) (*PackageMetadata, error) {
	_, decoded, err := client.GetJSON(ctx, packageVersionMetadataURL(pkg, version), packageSchema)
	if err != nil {
		return nil, err
	}

	info, err := parsePackageInfo(decoded)
	if err != nil {
		return nil, err
	}

	return &PackageMetadata{
		Info: *info,
		Releases: map[string]VersionMetadata{
			info.Version: info.SourceMetadata,
		},
	}, nil
}

// selectSourceArtifact picks the preferred source artifact from one
// release's artifact list. Source code is the same for any packaging,
// so prefer tarballs over other archive formats for their compression.
func selectSourceArtifact(artifacts []any) (VersionMetadata, error) {
	var sources []VersionMetadata
	for _, raw := range artifacts {
		artifact, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if str(artifact["python_version"]) != "source" {
			continue
		}
		vm, err := parseVersionMetadata(artifact)
		if err != nil {
			return VersionMetadata{}, err
		}
		sources = append(sources, vm)
	}

	switch {
	case len(sources) == 0:
		return VersionMetadata{}, api.NewError(api.ErrEmptyField, "API did not return any source artifacts")
	case len(sources) == 1:
		return sources[0], nil
	}
	for _, vm := range sources {
		if strings.Contains(vm.Filename, ".tar") {
			return vm, nil
		}
	}
	// No tarball among the source artifacts; take the first presented.
	return sources[0], nil
}

// parseVersionMetadata parses one schema-validated artifact object.
func parseVersionMetadata(data map[string]any) (VersionMetadata, error) {
	timeStr := str(data["upload_time_iso_8601"])
	uploadTime, err := time.Parse(time.RFC3339Nano, timeStr)
	if err != nil {
		return VersionMetadata{}, api.WrapError(api.ErrEmptyField,
			fmt.Sprintf("failed to convert timestamp: %s", timeStr), err)
	}

	digests, _ := data["digests"].(map[string]any)
	parsed := VersionMetadata{
		MD5:           str(digests["md5"]),
		SHA256:        str(digests["sha256"]),
		Filename:      str(data["filename"]),
		PythonVersion: str(data["python_version"]),
		Size:          asInt64(data["size"]),
		UploadTime:    uploadTime,
		URL:           str(data["url"]),
	}

	if !api.ValidMD5(parsed.MD5) {
		return VersionMetadata{}, api.NewError(api.ErrSchema,
			fmt.Sprintf("VersionMetadata MD5 hash is invalid: %s", parsed.MD5))
	}
	if !api.ValidSHA256(parsed.SHA256) {
		return VersionMetadata{}, api.NewError(api.ErrSchema,
			fmt.Sprintf("VersionMetadata SHA-256 hash is invalid: %s", parsed.SHA256))
	}
	if err := api.CheckNonEmpty("VersionMetadata.filename", parsed.Filename); err != nil {
		return VersionMetadata{}, err
	}
	if err := api.CheckNonEmpty("VersionMetadata.python_version", parsed.PythonVersion); err != nil {
		return VersionMetadata{}, err
	}
	return parsed, nil
}

// parsePackageInfo parses the info block plus the urls array of a
// schema-validated response.
func parsePackageInfo(decoded map[string]any) (*PackageInfo, error) {
	urls, _ := decoded["urls"].([]any)
	var sourceMetadata *VersionMetadata
	for _, raw := range urls {
		artifact, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if str(artifact["python_version"]) != "source" {
			continue
		}
		vm, err := parseVersionMetadata(artifact)
		if err != nil {
			return nil, err
		}
		sourceMetadata = &vm
		break
	}
	// The schema checks pass for wheel-only packages, but we require a
	// source artifact to be useful.
	if sourceMetadata == nil {
		return nil, api.NewError(api.ErrEmptyField, "source artifacts are not provided")
	}

	info, _ := decoded["info"].(map[string]any)
	projectURLs, _ := info["project_urls"].(map[string]any)

	parsed := &PackageInfo{
		Description:            str(info["description"]),
		DescriptionContentType: str(info["description_content_type"]),
		DocsURL:                str(info["docs_url"]),
		License:                str(info["license"]),
		Name:                   str(info["name"]),
		PackageURL:             str(info["package_url"]),
		ProjectURL:             str(info["project_url"]),
		HomepageURL:            str(projectURLs["Homepage"]),
		SourceURL:              str(projectURLs["Source"]),
		ReleaseURL:             str(info["release_url"]),
		RequiresPython:         str(info["requires_python"]),
		Summary:                str(info["summary"]),
		Version:                str(info["version"]),
		SourceMetadata:         *sourceMetadata,
	}

	for field, value := range map[string]string{
		"PackageInfo.license":     parsed.License,
		"PackageInfo.name":        parsed.Name,
		"PackageInfo.package_url": parsed.PackageURL,
		"PackageInfo.project_url": parsed.ProjectURL,
		"PackageInfo.release_url": parsed.ReleaseURL,
		"PackageInfo.version":     parsed.Version,
	} {
		if err := api.CheckNonEmpty(field, value); err != nil {
			return nil, err
		}
	}

	return parsed, nil
}

// str renders a decoded JSON value as a string, mapping null to "".
func str(v any) string {
	if v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

func asInt64(v any) int64 {
	f, _ := v.(float64)
	return int64(f)
}
