package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maplab/flatland/pkg/errors"
	"github.com/maplab/flatland/pkg/pipeline"
	"github.com/maplab/flatland/pkg/pointset"
)

// flattenCommand creates the flatten command for redistributing map density.
func (c *CLI) flattenCommand() *cobra.Command {
	var (
		output  string
		noCache bool
		refresh bool
	)
	opts := pipeline.Options{}

	cmd := &cobra.Command{
		Use:   "flatten <map.json>",
		Short: "Redistribute map density toward uniform coverage",
		Long: `Redistribute map density toward uniform coverage.

The flatten command takes a map file (produced by 'project') and moves its
points toward a uniform layout. The strength is controlled by --mu: 0 keeps
the original layout, 1 moves every point all the way to its target slot.

Flattening always starts from the original projected coordinates, so running
the command repeatedly with different --mu values never compounds. Question
layer points follow their nearest article neighbors.

Results are cached locally for faster subsequent runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.MuSet = cmd.Flags().Changed("mu")
			opts.MarginSet = cmd.Flags().Changed("margin")
			opts.SeedSet = cmd.Flags().Changed("seed")
			opts.Refresh = refresh
			return c.runFlatten(cmd.Context(), args[0], opts, output, noCache)
		},
	}

	c.setFlattenFlags(cmd, &opts)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output map file (default: overwrite input)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass cache")

	return cmd
}

// runFlatten loads the map, flattens it, and writes the result.
func (c *CLI) runFlatten(ctx context.Context, input string, opts pipeline.Options, output string, noCache bool) error {
	if output == "" {
		output = input
	}
	if err := errors.ValidateOutputPath(output); err != nil {
		return err
	}

	m, err := pointset.ReadMapFile(input)
	if err != nil {
		return fmt.Errorf("load map %s: %w", input, err)
	}

	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	opts.Logger = c.Logger

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Flattening %d points (mu=%.2f)...", m.Articles.Len(), opts.Mu))
	spinner.Start()

	flat, cacheHit, err := runner.FlattenWithCacheInfo(withLogger(ctx, c.Logger), m, opts)
	if err != nil {
		spinner.StopWithError("Flattening failed")
		return fmt.Errorf("flatten: %w", err)
	}
	spinner.Stop()

	if err := pointset.WriteMapFile(flat, output); err != nil {
		return fmt.Errorf("write map: %w", err)
	}

	printSuccess("Flattened %s (mu=%.2f)", flat.Name, opts.Mu)
	printStats(flat.Articles.Len(), domainCountOf(flat), cacheHit)
	if flat.Stats != nil {
		printDetail("empty cells: %.1f%% → %.1f%%", flat.Stats.EmptyBefore*100, flat.Stats.EmptyAfter*100)
		printDetail("top decile share: %.1f%% → %.1f%%", flat.Stats.TopDecileBefore*100, flat.Stats.TopDecileAfter*100)
		printDetail("mean displacement: %.4f", flat.Stats.MeanDisplacement)
	}
	printFile(output)
	printNewline()
	printNextStep("Export domain bundles", fmt.Sprintf("flatland export %s", output))
	return nil
}
