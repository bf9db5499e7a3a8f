package cli

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/anaconda/packaging-utils/internal/api"
	"github.com/anaconda/packaging-utils/internal/cache"
	"github.com/anaconda/packaging-utils/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Config  string // config file path, "" for the default location
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the apu CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "apu",
		Short: "Anaconda packaging utilities",
		Long:  "Utilities used by Anaconda's packaging team: repodata and PyPI metadata lookups, credential checks and response-cache maintenance.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			setupLogging(opts.Verbose)
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", "", "path to config file (default ~/.config/anaconda-packaging-utils/config.yaml)")

	// Add subcommands
	cmd.AddCommand(NewRepodataCommand(opts))
	cmd.AddCommand(NewPyPICommand(opts))
	cmd.AddCommand(NewConfigCommand(opts))
	cmd.AddCommand(NewCacheCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

func setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

// newAPIClient builds an API client from the loaded config, attaching
// the response cache when a path is configured or given explicitly.
// The returned cleanup closes the cache and is safe to call always.
func newAPIClient(opts *RootOptions, cachePath string, ttl time.Duration) (*api.Client, func(), error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, nil, err
	}

	client := api.NewClient(cfg.HTTPTimeout())
	cleanup := func() {}

	if cachePath == "" {
		cachePath = cfg.Cache.Path
	}
	if cachePath != "" {
		store, err := cache.Open(cachePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open cache: %w", err)
		}
		client.WithCache(store, ttl)
		cleanup = func() {
			if err := store.Close(); err != nil {
				slog.Error("error closing cache", "error", err)
			}
		}
	}
	return client, cleanup, nil
}
