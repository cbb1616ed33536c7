package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/maplab/flatland/pkg/clustergraph"
	"github.com/maplab/flatland/pkg/pipeline"
	"github.com/maplab/flatland/pkg/pointset"
)

// clustersCommand creates the clusters command for cluster adjacency graphs.
func (c *CLI) clustersCommand() *cobra.Command {
	var (
		output       string
		clusterCount int
		seed         uint64
	)

	cmd := &cobra.Command{
		Use:   "clusters <map.json>",
		Short: "Render the cluster adjacency graph of a map",
		Long: `Render the cluster adjacency graph of a map.

The clusters command runs the same clustering the flattener uses and draws
the resulting cluster centroids as a graph: node size reflects cluster
population, edges connect nearby clusters. Useful for judging whether the
cluster count suits the map before flattening.

The output format follows the file extension: .svg renders via graphviz,
.dot writes the raw graph description.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runClusters(args[0], clusterCount, seed, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, .svg or .dot (default <input>.clusters.svg)")
	cmd.Flags().IntVar(&clusterCount, "clusters", pipeline.DefaultClusterCount, "number of clusters")
	cmd.Flags().Uint64Var(&seed, "seed", pipeline.DefaultSeed, "random seed for reproducible clustering")

	return cmd
}

// runClusters builds the cluster graph and writes it in the requested format.
func (c *CLI) runClusters(input string, clusterCount int, seed uint64, output string) error {
	output, err := resolveOutput(output, input, ".clusters.svg")
	if err != nil {
		return err
	}

	m, err := pointset.ReadMapFile(input)
	if err != nil {
		return fmt.Errorf("load map %s: %w", input, err)
	}

	prog := newProgress(c.Logger)
	g, err := clustergraph.Build(m.Articles.Coords, clusterCount, seed)
	if err != nil {
		return fmt.Errorf("cluster: %w", err)
	}
	prog.done(fmt.Sprintf("Clustered %d points into %d clusters", m.Articles.Len(), len(g.Nodes)))

	dot := clustergraph.ToDOT(g)
	var data []byte
	switch filepath.Ext(output) {
	case ".dot":
		data = []byte(dot)
	case ".svg":
		data, err = clustergraph.RenderSVG(dot)
		if err != nil {
			return fmt.Errorf("render: %w", err)
		}
	default:
		return fmt.Errorf("unsupported output extension %q (use .svg or .dot)", filepath.Ext(output))
	}

	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	printSuccess("Rendered cluster graph (%d nodes, %d edges)", len(g.Nodes), len(g.Edges))
	printFile(output)
	return nil
}
