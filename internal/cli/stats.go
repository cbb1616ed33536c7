package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maplab/flatland/pkg/flatten"
	"github.com/maplab/flatland/pkg/pointset"
)

// statsCommand creates the stats command for inspecting map density.
func (c *CLI) statsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <map.json>",
		Short: "Show density statistics for a map",
		Long: `Show density statistics for a map.

For flattened maps this prints the recorded flatten parameters and the
before/after density diagnostics. For unflattened maps it profiles the
current layout so you can judge how crowded it is.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runStats(args[0])
		},
	}
}

// runStats loads the map and prints its density report.
func (c *CLI) runStats(input string) error {
	m, err := pointset.ReadMapFile(input)
	if err != nil {
		return fmt.Errorf("load map %s: %w", input, err)
	}

	fmt.Println(StyleTitle.Render(m.Name))
	printKeyValue("points", fmt.Sprintf("%d", m.Articles.Len()))
	if m.Questions.Len() > 0 {
		printKeyValue("questions", fmt.Sprintf("%d", m.Questions.Len()))
	}
	if n := domainCountOf(m); n > 0 {
		printKeyValue("domains", fmt.Sprintf("%d", n))
	}

	if m.FlattenParams != nil {
		printNewline()
		fmt.Println(StyleHighlight.Render("Flatten parameters"))
		printKeyValue("mu", fmt.Sprintf("%.2f", m.FlattenParams.Mu))
		printKeyValue("clusters", fmt.Sprintf("%d", m.FlattenParams.ClusterCount))
		printKeyValue("k", fmt.Sprintf("%d", m.FlattenParams.NeighborK))
		printKeyValue("margin", fmt.Sprintf("%.3f", m.FlattenParams.Margin))
		printKeyValue("seed", fmt.Sprintf("%d", m.FlattenParams.Seed))
	}

	printNewline()
	fmt.Println(StyleHighlight.Render("Density"))
	if m.Stats != nil {
		printKeyValue("empty cells", fmt.Sprintf("%.1f%% → %.1f%%", m.Stats.EmptyBefore*100, m.Stats.EmptyAfter*100))
		printKeyValue("top decile share", fmt.Sprintf("%.1f%% → %.1f%%", m.Stats.TopDecileBefore*100, m.Stats.TopDecileAfter*100))
		printKeyValue("mean displacement", fmt.Sprintf("%.4f", m.Stats.MeanDisplacement))
		printKeyValue("total displacement", fmt.Sprintf("%.2f", m.Stats.TotalDisplacement))
		return nil
	}

	// Unflattened map: profile the current layout.
	profile := flatten.ProfileDensity(m.Articles.Coords)
	printKeyValue("empty cells", fmt.Sprintf("%.1f%%", profile.EmptyFraction*100))
	printKeyValue("top decile share", fmt.Sprintf("%.1f%%", profile.TopDecileShare*100))
	printNewline()
	printNextStep("Flatten the map", fmt.Sprintf("flatland flatten %s", input))
	return nil
}
