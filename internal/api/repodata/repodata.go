// Package repodata fetches and parses repodata.json files from
// repo.anaconda.com.
package repodata

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/anaconda/packaging-utils/internal/api"
)

//go:embed schema.cue
var schemaSrc string

var repodataSchema = api.MustCompileSchema(schemaSrc, "#Repodata")

// BaseURL is the root of the hosted package channels. It is a variable
// so tests can point Fetch at a local server.
var BaseURL = "https://repo.anaconda.com/pkgs/"

// Channel identifies a package channel hosted on repo.anaconda.com.
type Channel string

const (
	ChannelMain       Channel = "main"
	ChannelFree       Channel = "free"
	ChannelR          Channel = "r"
	ChannelPro        Channel = "pro"
	ChannelArchive    Channel = "archive"
	ChannelMROArchive Channel = "mro-archive"
	ChannelMSYS2      Channel = "msys2"
)

// Architecture identifies a platform subdirectory within a channel.
type Architecture string

const (
	LinuxX8664   Architecture = "linux-64"
	LinuxX8632   Architecture = "linux-32"
	LinuxAarch64 Architecture = "linux-aarch64"
	LinuxARMv6l  Architecture = "linux-armv6l"
	LinuxARMv7l  Architecture = "linux-armv7l"
	LinuxS390x   Architecture = "linux-s390x"
	LinuxPPC64LE Architecture = "linux-ppc64le"
	OSXARM64     Architecture = "osx-arm64"
	OSXX8664     Architecture = "osx-64"
	OSXX8632     Architecture = "osx-32"
	Win64        Architecture = "win-64"
	Win32        Architecture = "win-32"
	NoArch       Architecture = "noarch"
)

// legacyArchSet covers the channels that predate the aarch64/s390x
// builds; they all host the same platform list.
var legacyArchSet = map[Architecture]bool{
	LinuxX8664:   true,
	LinuxX8632:   true,
	LinuxARMv6l:  true,
	LinuxARMv7l:  true,
	LinuxPPC64LE: true,
	OSXX8664:     true,
	OSXX8632:     true,
	Win64:        true,
	Win32:        true,
	NoArch:       true,
}

// supportedChannelArch maps the architectures available per channel.
var supportedChannelArch = map[Channel]map[Architecture]bool{
	ChannelMain: {
		LinuxX8664:   true,
		LinuxX8632:   true,
		LinuxAarch64: true,
		LinuxS390x:   true,
		LinuxPPC64LE: true,
		OSXX8664:     true,
		OSXARM64:     true,
		Win64:        true,
		Win32:        true,
		NoArch:       true,
	},
	ChannelFree:       legacyArchSet,
	ChannelR:          legacyArchSet,
	ChannelPro:        legacyArchSet,
	ChannelArchive:    legacyArchSet,
	ChannelMROArchive: legacyArchSet,
	ChannelMSYS2: {
		Win64: true,
		Win32: true,
	},
}

// Metadata is the info block of a repodata.json.
type Metadata struct {
	Subdir   string `json:"subdir"`
	Arch     string `json:"arch,omitempty"`
	Platform string `json:"platform,omitempty"`
}

// PackageData describes one package artifact within a channel.
type PackageData struct {
	Build       string   `json:"build"`
	BuildNumber int      `json:"build_number"`
	Depends     []string `json:"depends"`
	MD5         string   `json:"md5"`
	SHA256      string   `json:"sha256"`
	Name        string   `json:"name"`
	Size        int64    `json:"size"`
	Version     string   `json:"version"`
	Subdir      string   `json:"subdir,omitempty"`
	Timestamp   int64    `json:"timestamp,omitempty"`
	// Optional fields
	Date          string `json:"date,omitempty"`
	TrackFeatures string `json:"track_features,omitempty"`
	License       string `json:"license,omitempty"`
	LicenseFamily string `json:"license_family,omitempty"`
}

// Repodata is a parsed repodata.json.
type Repodata struct {
	Info Metadata `json:"info"`
	// Packages holds .tar.bz2 artifacts and PackagesConda the newer
	// .conda artifacts, keyed by filename as upstream serves them.
	Packages        map[string]PackageData `json:"packages"`
	PackagesConda   map[string]PackageData `json:"packages.conda,omitempty"`
	Removed         []string               `json:"removed"`
	RepodataVersion int                    `json:"repodata_version"`
}

// URL returns the repodata.json endpoint for a channel/architecture
// pair.
func URL(channel Channel, arch Architecture) string {
	return fmt.Sprintf("%s%s/%s/repodata.json", BaseURL, channel, arch)
}

// Supported reports whether the channel hosts the architecture.
func Supported(channel Channel, arch Architecture) bool {
	return supportedChannelArch[channel][arch]
}

// Fetch downloads, validates and parses the repodata.json for the
// given channel and architecture.
func Fetch(ctx context.Context, client *api.Client, channel Channel, arch Architecture) (*Repodata, error) {
	archs, ok := supportedChannelArch[channel]
	if !ok {
		return nil, api.NewError(api.ErrRequestFailed, fmt.Sprintf("unknown channel: %q", channel))
	}
	if !archs[arch] {
		return nil, api.NewError(api.ErrRequestFailed,
			fmt.Sprintf("architecture %q is not hosted on channel %q", arch, channel))
	}

	body, _, err := client.GetJSON(ctx, URL(channel, arch), repodataSchema)
	if err != nil {
		return nil, err
	}

	var rd Repodata
	if err := json.Unmarshal(body, &rd); err != nil {
		return nil, api.WrapError(api.ErrBadJSON, "failed to decode repodata", err)
	}
	return &rd, nil
}

// PackageCount returns the total number of artifacts across both
// package maps.
func (r *Repodata) PackageCount() int {
	return len(r.Packages) + len(r.PackagesConda)
}
