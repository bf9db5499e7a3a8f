package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/anaconda/packaging-utils/internal/cache"
	"github.com/anaconda/packaging-utils/internal/config"
)

// CacheOptions holds flags for the cache commands.
type CacheOptions struct {
	*RootOptions
	Cache     string
	OlderThan time.Duration
}

// NewCacheCommand creates the cache command group.
func NewCacheCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Maintain the local response cache",
	}
	cmd.AddCommand(newCacheStatsCommand(rootOpts))
	cmd.AddCommand(newCachePruneCommand(rootOpts))
	return cmd
}

// resolveCachePath falls back to the configured cache path when the
// flag is not given.
func resolveCachePath(rootOpts *RootOptions, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	cfg, err := config.Load(rootOpts.Config)
	if err != nil {
		return "", err
	}
	if cfg.Cache.Path == "" {
		return "", fmt.Errorf("no cache path given and none configured")
	}
	return cfg.Cache.Path, nil
}

func newCacheStatsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CacheOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "stats",
		Short:         "Show response cache contents",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveCachePath(rootOpts, opts.Cache)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to resolve cache path", err)
			}
			store, err := cache.Open(path)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to open cache", err)
			}
			defer store.Close()

			stats, err := store.ReadStats(cmd.Context())
			if err != nil {
				return WrapExitError(ExitFailure, "failed to read cache stats", err)
			}

			formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return formatter.Success(stats, func(w io.Writer) {
				fmt.Fprintf(w, "entries:  %d\n", stats.Entries)
				fmt.Fprintf(w, "size:     %d bytes\n", stats.TotalSize)
				if !stats.Oldest.IsZero() {
					fmt.Fprintf(w, "oldest:   %s\n", stats.Oldest.Format(time.RFC3339))
					fmt.Fprintf(w, "newest:   %s\n", stats.Newest.Format(time.RFC3339))
				}
			})
		},
	}

	cmd.Flags().StringVar(&opts.Cache, "cache", "", "path to response cache database")
	return cmd
}

func newCachePruneCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CacheOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "prune",
		Short:         "Delete cached responses older than a cutoff",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveCachePath(rootOpts, opts.Cache)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to resolve cache path", err)
			}
			store, err := cache.Open(path)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to open cache", err)
			}
			defer store.Close()

			deleted, err := store.Prune(cmd.Context(), opts.OlderThan)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to prune cache", err)
			}

			formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return formatter.Success(map[string]int64{"deleted": deleted}, func(w io.Writer) {
				fmt.Fprintf(w, "deleted %d entries\n", deleted)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Cache, "cache", "", "path to response cache database")
	cmd.Flags().DurationVar(&opts.OlderThan, "older-than", 24*time.Hour, "delete entries fetched before this cutoff")
	return cmd
}
