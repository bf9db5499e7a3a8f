package cli

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/anaconda/packaging-utils/internal/api/repodata"
)

// RepodataOptions holds flags for the repodata commands.
type RepodataOptions struct {
	*RootOptions
	Channel string
	Arch    string
	Cache   string
	TTL     time.Duration
}

// RepodataSummary is the payload printed by `repodata fetch`.
type RepodataSummary struct {
	Channel         string `json:"channel"`
	Arch            string `json:"arch"`
	Subdir          string `json:"subdir"`
	RepodataVersion int    `json:"repodata_version"`
	Packages        int    `json:"packages"`
	PackagesConda   int    `json:"packages_conda"`
	Removed         int    `json:"removed"`
}

// NewRepodataCommand creates the repodata command group.
func NewRepodataCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repodata",
		Short: "Inspect repodata.json files on repo.anaconda.com",
	}
	cmd.AddCommand(newRepodataFetchCommand(rootOpts))
	cmd.AddCommand(newRepodataChannelsCommand(rootOpts))
	return cmd
}

func newRepodataFetchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RepodataOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download and summarize a channel's repodata",
		Long: `Download, validate and summarize the repodata.json of one
channel/architecture pair.

Example:
  apu repodata fetch --channel main --arch linux-64
  apu repodata fetch --channel msys2 --arch win-64 --cache ./apu.db --ttl 1h`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepodataFetch(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Channel, "channel", "", "channel name (required)")
	cmd.Flags().StringVar(&opts.Arch, "arch", "", "architecture subdirectory (required)")
	cmd.Flags().StringVar(&opts.Cache, "cache", "", "path to response cache database")
	cmd.Flags().DurationVar(&opts.TTL, "ttl", time.Hour, "maximum age before a cached response is refetched")
	_ = cmd.MarkFlagRequired("channel")
	_ = cmd.MarkFlagRequired("arch")

	return cmd
}

func runRepodataFetch(cmd *cobra.Command, opts *RepodataOptions) error {
	channel := repodata.Channel(opts.Channel)
	arch := repodata.Architecture(opts.Arch)
	if !repodata.Supported(channel, arch) {
		return NewExitError(ExitCommandError,
			fmt.Sprintf("channel %q does not host architecture %q", opts.Channel, opts.Arch))
	}

	client, cleanup, err := newAPIClient(opts.RootOptions, opts.Cache, opts.TTL)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to set up API client", err)
	}
	defer cleanup()

	rd, err := repodata.Fetch(cmd.Context(), client, channel, arch)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to fetch repodata", err)
	}

	summary := RepodataSummary{
		Channel:         opts.Channel,
		Arch:            opts.Arch,
		Subdir:          rd.Info.Subdir,
		RepodataVersion: rd.RepodataVersion,
		Packages:        len(rd.Packages),
		PackagesConda:   len(rd.PackagesConda),
		Removed:         len(rd.Removed),
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return formatter.Success(summary, func(w io.Writer) {
		fmt.Fprintf(w, "%s/%s (repodata v%d)\n", summary.Channel, summary.Arch, summary.RepodataVersion)
		fmt.Fprintf(w, "  subdir:          %s\n", summary.Subdir)
		fmt.Fprintf(w, "  packages:        %d\n", summary.Packages)
		fmt.Fprintf(w, "  packages.conda:  %d\n", summary.PackagesConda)
		fmt.Fprintf(w, "  removed:         %d\n", summary.Removed)
	})
}

// ChannelListing maps each channel to its hosted architectures.
type ChannelListing map[string][]string

func newRepodataChannelsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "channels",
		Short:         "List channels and the architectures they host",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			listing := ChannelListing{}
			for _, ch := range []repodata.Channel{
				repodata.ChannelMain, repodata.ChannelFree, repodata.ChannelR,
				repodata.ChannelPro, repodata.ChannelArchive,
				repodata.ChannelMROArchive, repodata.ChannelMSYS2,
			} {
				var archs []string
				for _, arch := range []repodata.Architecture{
					repodata.LinuxX8664, repodata.LinuxX8632, repodata.LinuxAarch64,
					repodata.LinuxARMv6l, repodata.LinuxARMv7l, repodata.LinuxS390x,
					repodata.LinuxPPC64LE, repodata.OSXARM64, repodata.OSXX8664,
					repodata.OSXX8632, repodata.Win64, repodata.Win32, repodata.NoArch,
				} {
					if repodata.Supported(ch, arch) {
						archs = append(archs, string(arch))
					}
				}
				listing[string(ch)] = archs
			}

			formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return formatter.Success(listing, func(w io.Writer) {
				channels := make([]string, 0, len(listing))
				for ch := range listing {
					channels = append(channels, ch)
				}
				sort.Strings(channels)
				for _, ch := range channels {
					fmt.Fprintf(w, "%s:\n", ch)
					for _, arch := range listing[ch] {
						fmt.Fprintf(w, "  %s\n", arch)
					}
				}
			})
		},
	}
}
