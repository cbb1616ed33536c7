package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maplab/flatland/pkg/export"
	"github.com/maplab/flatland/pkg/pipeline"
	"github.com/maplab/flatland/pkg/pointset"
)

// exportCommand creates the export command for building domain bundles.
func (c *CLI) exportCommand() *cobra.Command {
	var (
		output  string
		noCache bool
	)
	opts := pipeline.Options{GridCells: pipeline.DefaultGridCells}

	cmd := &cobra.Command{
		Use:   "export <map.json>",
		Short: "Build per-domain bundles from a flattened map",
		Long: `Build per-domain bundles from a flattened map.

The export command groups the map's points by domain, computes a bounding
region per domain, and labels a coarse grid with the majority domain of each
cell. The resulting bundle is the artifact consumed by 'serve' and 'publish'.

Results are cached locally for faster subsequent runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runExport(cmd.Context(), args[0], opts, output, noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output bundle file (default <input>.bundle.json)")
	cmd.Flags().IntVar(&opts.GridCells, "grid", opts.GridCells, "labeling grid resolution per axis")
	cmd.Flags().StringVar(&opts.Domain, "domain", "", "restrict the bundle to one domain")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "bypass cache")

	return cmd
}

// runExport loads the map, builds the bundle, and writes it.
func (c *CLI) runExport(ctx context.Context, input string, opts pipeline.Options, output string, noCache bool) error {
	output, err := resolveOutput(output, input, ".bundle.json")
	if err != nil {
		return err
	}

	m, err := pointset.ReadMapFile(input)
	if err != nil {
		return fmt.Errorf("load map %s: %w", input, err)
	}
	if m.FlattenParams == nil {
		printWarning("Map has not been flattened; exporting the raw layout")
	}

	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	opts.Logger = c.Logger

	spinner := newSpinnerWithContext(ctx, "Exporting bundle...")
	spinner.Start()

	bundle, cacheHit, err := runner.ExportWithCacheInfo(withLogger(ctx, c.Logger), m, opts)
	if err != nil {
		spinner.StopWithError("Export failed")
		return fmt.Errorf("export: %w", err)
	}
	spinner.Stop()

	if err := export.WriteFile(output, bundle); err != nil {
		return fmt.Errorf("write bundle: %w", err)
	}

	printSuccess("Exported %s", bundle.MapName)
	printStats(m.Articles.Len(), len(bundle.Domains), cacheHit)
	printFile(output)
	printNewline()
	printNextStep("Serve it locally", fmt.Sprintf("flatland serve --bundle %s", output))
	printNextStep("Publish to the store", fmt.Sprintf("flatland publish %s", output))
	return nil
}
