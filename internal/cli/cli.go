// Package cli implements the flatland command-line interface.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/maplab/flatland/pkg/buildinfo"
	"github.com/maplab/flatland/pkg/cache"
	"github.com/maplab/flatland/pkg/errors"
	"github.com/maplab/flatland/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "flatland"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Config Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			TimeFormat:      "15:04:05.00",
			Level:           level,
		}),
		Config: loadConfig(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "flatland",
		Short:        "Flatland redistributes crowded knowledge maps toward uniform coverage",
		Long:         `Flatland is a CLI tool for building 2D knowledge maps from high-dimensional embeddings and flattening their density so that crowded regions spread out and sparse regions fill in.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	// Register all subcommands
	root.AddCommand(c.projectCommand())
	root.AddCommand(c.flattenCommand())
	root.AddCommand(c.statsCommand())
	root.AddCommand(c.exportCommand())
	root.AddCommand(c.exploreCommand())
	root.AddCommand(c.clustersCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.publishCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	backend, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(backend, c.newKeyer(), c.Logger), nil
}

// newCache selects the cache backend: null when caching is disabled, Redis
// when the config names a redis_url, the local file cache otherwise.
func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}

	if url := c.Config.Cache.RedisURL; url != "" {
		if err := errors.ValidateURL(url, "redis", "rediss"); err != nil {
			return nil, err
		}
		return cache.NewRedisCache(ctx, url)
	}

	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// newKeyer returns the cache keyer, scoped by the configured key prefix.
func (c *CLI) newKeyer() cache.Keyer {
	if prefix := c.Config.Cache.KeyPrefix; prefix != "" {
		return cache.NewScopedKeyer(nil, prefix)
	}
	return nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/flatland/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// =============================================================================
// Options Helpers
// =============================================================================

// setFlattenFlags registers the shared flatten parameter flags on cmd.
// Defaults come from the config file when present, pipeline defaults otherwise.
func (c *CLI) setFlattenFlags(cmd *cobra.Command, opts *pipeline.Options) {
	opts.Mu = c.Config.flattenMu()
	opts.ClusterCount = c.Config.flattenClusters()
	opts.NeighborK = c.Config.flattenNeighborK()
	opts.Margin = c.Config.flattenMargin()
	opts.Seed = c.Config.flattenSeed()

	cmd.Flags().Float64Var(&opts.Mu, "mu", opts.Mu, "flattening strength in [0,1] (0 keeps the original layout)")
	cmd.Flags().IntVar(&opts.ClusterCount, "clusters", opts.ClusterCount, "number of density clusters")
	cmd.Flags().IntVar(&opts.NeighborK, "k", opts.NeighborK, "neighbor count for question interpolation")
	cmd.Flags().Float64Var(&opts.Margin, "margin", opts.Margin, "frame inset for target layouts")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", opts.Seed, "random seed for reproducible layouts")
}

// defaultOutput derives an output path from the input file.
// project input.json -> input.map.json, export map.json -> map.bundle.json.
func defaultOutput(input, suffix string) string {
	base := strings.TrimSuffix(input, filepath.Ext(input))
	base = strings.TrimSuffix(base, ".map")
	return base + suffix
}

// resolveOutput applies the default suffix when no --output was given and
// rejects unwritable paths before any pipeline work runs.
func resolveOutput(output, input, suffix string) (string, error) {
	if output == "" {
		output = defaultOutput(input, suffix)
	}
	if err := errors.ValidateOutputPath(output); err != nil {
		return "", err
	}
	return output, nil
}
