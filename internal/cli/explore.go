package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/maplab/flatland/pkg/errors"
	"github.com/maplab/flatland/pkg/flatten"
	"github.com/maplab/flatland/pkg/pointset"
)

// exploreCommand creates the explore command, an interactive mu scrubber.
func (c *CLI) exploreCommand() *cobra.Command {
	var output string
	params := flatten.DefaultParams()

	cmd := &cobra.Command{
		Use:   "explore <map.json>",
		Short: "Interactively explore flattening strength",
		Long: `Interactively explore flattening strength.

The explore command opens a terminal UI that re-flattens the map as you
scrub through mu values, showing the density diagnostics live. Press 's'
to save the current result as a map file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runExplore(args[0], params, output)
		},
	}

	cmd.Flags().Float64Var(&params.Mu, "mu", params.Mu, "initial flattening strength")
	cmd.Flags().IntVar(&params.ClusterCount, "clusters", params.ClusterCount, "number of density clusters")
	cmd.Flags().Uint64Var(&params.Seed, "seed", params.Seed, "random seed for reproducible layouts")
	cmd.Flags().StringVarP(&output, "output", "o", "", "save target for 's' (default: overwrite input)")

	return cmd
}

// runExplore loads the map and runs the explorer TUI.
func (c *CLI) runExplore(input string, params flatten.Params, output string) error {
	m, err := pointset.ReadMapFile(input)
	if err != nil {
		return fmt.Errorf("load map %s: %w", input, err)
	}
	if output == "" {
		output = input
	}
	if err := errors.ValidateOutputPath(output); err != nil {
		return err
	}

	model := newExploreModel(m, params, output)
	final, err := tea.NewProgram(model).Run()
	if err != nil {
		return fmt.Errorf("explore: %w", err)
	}

	if em, ok := final.(ExploreModel); ok && em.Saved {
		printSuccess("Saved %s (mu=%.2f)", em.Map.Name, em.Params.Mu)
		printFile(output)
	}
	return nil
}

// =============================================================================
// ExploreModel - Interactive mu scrubbing
// =============================================================================

// ExploreModel is the bubbletea model for the mu explorer.
type ExploreModel struct {
	Map    *pointset.Map
	Params flatten.Params
	Output string
	Saved  bool

	primary   pointset.PointSet
	secondary pointset.PointSet
	flattener *flatten.Flattener
	result    *flatten.Result
	err       error
}

// newExploreModel creates an explorer over the map's original coordinates.
func newExploreModel(m *pointset.Map, params flatten.Params, output string) ExploreModel {
	model := ExploreModel{
		Map:       m,
		Params:    params,
		Output:    output,
		primary:   m.Articles.Originals(),
		secondary: m.Questions.Originals(),
		flattener: flatten.New(),
	}
	model.recompute()
	return model
}

// recompute re-flattens the original layout at the current parameters.
func (m *ExploreModel) recompute() {
	m.result, m.err = m.flattener.Flatten(m.primary, m.secondary, m.Params)
}

func (m ExploreModel) Init() tea.Cmd {
	return nil
}

func (m ExploreModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "left", "h":
			m.Params.Mu = clampMu(m.Params.Mu - 0.05)
			m.recompute()
		case "right", "l":
			m.Params.Mu = clampMu(m.Params.Mu + 0.05)
			m.recompute()
		case "down", "j":
			m.Params.Mu = clampMu(m.Params.Mu - 0.01)
			m.recompute()
		case "up", "k":
			m.Params.Mu = clampMu(m.Params.Mu + 0.01)
			m.recompute()
		case "s", "enter":
			if m.err == nil {
				m.err = m.save()
				if m.err == nil {
					m.Saved = true
					return m, tea.Quit
				}
			}
		}
	}
	return m, nil
}

// save writes the current result as a map file to m.Output.
func (m *ExploreModel) save() error {
	flat := &pointset.Map{
		Name: m.Map.Name,
		Articles: pointset.Layer{
			Coords:         m.result.Primary,
			CoordsOriginal: m.primary,
			Domains:        m.Map.Articles.Domains,
			Labels:         m.Map.Articles.Labels,
		},
		FlattenParams: &pointset.FlattenParams{
			Mu:           m.Params.Mu,
			ClusterCount: m.Params.ClusterCount,
			NeighborK:    m.Params.NeighborK,
			Margin:       m.Params.Margin,
			Seed:         m.Params.Seed,
		},
		Stats: &pointset.DensityStats{
			EmptyBefore:       m.result.Metadata.Before.EmptyFraction,
			EmptyAfter:        m.result.Metadata.After.EmptyFraction,
			TopDecileBefore:   m.result.Metadata.Before.TopDecileShare,
			TopDecileAfter:    m.result.Metadata.After.TopDecileShare,
			MeanDisplacement:  m.result.Metadata.MeanDisplacement,
			TotalDisplacement: m.result.Metadata.TotalDisplacement,
		},
	}
	if len(m.secondary) > 0 {
		flat.Questions = pointset.Layer{
			Coords:         m.result.Secondary,
			CoordsOriginal: m.secondary,
			Domains:        m.Map.Questions.Domains,
			Labels:         m.Map.Questions.Labels,
		}
	}
	return pointset.WriteMapFile(flat, m.Output)
}

func (m ExploreModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(fmt.Sprintf("Exploring %s", m.Map.Name)))
	b.WriteString("\n")
	b.WriteString(StyleDim.Render("←/→ mu ±0.05  ↑/↓ mu ±0.01  s save  q quit"))
	b.WriteString("\n\n")

	b.WriteString(StyleDim.Render("mu ") + StyleNumber.Render(fmt.Sprintf("%.2f", m.Params.Mu)))
	b.WriteString("  " + muBar(m.Params.Mu))
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(StyleWarning.Render(fmt.Sprintf("error: %v", m.err)))
		b.WriteString("\n")
		return b.String()
	}

	md := m.result.Metadata
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Metric", "Before", "After").
		Rows(
			[]string{"empty cells", percent(md.Before.EmptyFraction), percent(md.After.EmptyFraction)},
			[]string{"top decile share", percent(md.Before.TopDecileShare), percent(md.After.TopDecileShare)},
		).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if col == 0 {
				return lipgloss.NewStyle().Foreground(colorGray)
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(StyleDim.Render(fmt.Sprintf("  mean displacement %.4f · %d points", md.MeanDisplacement, len(m.primary))))
	b.WriteString("\n")

	return b.String()
}

// =============================================================================
// Helpers
// =============================================================================

func clampMu(mu float64) float64 {
	if mu < 0 {
		return 0
	}
	if mu > 1 {
		return 1
	}
	return mu
}

func percent(f float64) string {
	return fmt.Sprintf("%.1f%%", f*100)
}

// muBar renders a fixed-width gauge for the current mu.
func muBar(mu float64) string {
	const width = 20
	filled := int(mu*width + 0.5)
	if filled > width {
		filled = width
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return StyleHighlight.Render(bar)
}
