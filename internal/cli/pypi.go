package cli

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/anaconda/packaging-utils/internal/api/pypi"
)

// PyPIOptions holds flags for the pypi commands.
type PyPIOptions struct {
	*RootOptions
	Cache string
	TTL   time.Duration
}

// NewPyPICommand creates the pypi command group.
func NewPyPICommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pypi",
		Short: "Look up package metadata on PyPI",
	}
	cmd.AddCommand(newPyPIInfoCommand(rootOpts))
	return cmd
}

func newPyPIInfoCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PyPIOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "info <package> [version]",
		Short: "Show source-artifact metadata for a PyPI package",
		Long: `Fetch and validate package metadata from the PyPI JSON API.

With a version argument only that release is fetched; otherwise the
full release history is retrieved.

Example:
  apu pypi info scipy
  apu pypi info scipy 1.11.1 --format json`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPyPIInfo(cmd, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.Cache, "cache", "", "path to response cache database")
	cmd.Flags().DurationVar(&opts.TTL, "ttl", time.Hour, "maximum age before a cached response is refetched")

	return cmd
}

func runPyPIInfo(cmd *cobra.Command, opts *PyPIOptions, args []string) error {
	client, cleanup, err := newAPIClient(opts.RootOptions, opts.Cache, opts.TTL)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to set up API client", err)
	}
	defer cleanup()

	var meta *pypi.PackageMetadata
	if len(args) == 2 {
		meta, err = pypi.FetchPackageVersionMetadata(cmd.Context(), client, args[0], args[1])
	} else {
		meta, err = pypi.FetchPackageMetadata(cmd.Context(), client, args[0])
	}
	if err != nil {
		return WrapExitError(ExitFailure, "failed to fetch PyPI metadata", err)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return formatter.Success(meta, func(w io.Writer) {
		renderPackageMetadata(w, meta)
	})
}

func renderPackageMetadata(w io.Writer, meta *pypi.PackageMetadata) {
	fmt.Fprintf(w, "%s %s\n", meta.Info.Name, meta.Info.Version)
	if meta.Info.Summary != "" {
		fmt.Fprintf(w, "  summary:   %s\n", meta.Info.Summary)
	}
	fmt.Fprintf(w, "  license:   %s\n", meta.Info.License)
	if meta.Info.HomepageURL != "" {
		fmt.Fprintf(w, "  homepage:  %s\n", meta.Info.HomepageURL)
	}
	if meta.Info.RequiresPython != "" {
		fmt.Fprintf(w, "  python:    %s\n", meta.Info.RequiresPython)
	}
	fmt.Fprintf(w, "  source:    %s\n", meta.Info.SourceMetadata.Filename)
	fmt.Fprintf(w, "  sha256:    %s\n", meta.Info.SourceMetadata.SHA256)

	versions := make([]string, 0, len(meta.Releases))
	for v := range meta.Releases {
		versions = append(versions, v)
	}
	sort.Strings(versions)
	fmt.Fprintf(w, "  releases:  %d\n", len(versions))
	for _, v := range versions {
		fmt.Fprintf(w, "    %-12s %s\n", v, meta.Releases[v].Filename)
	}
}
