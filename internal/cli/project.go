package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/maplab/flatland/pkg/pipeline"
	"github.com/maplab/flatland/pkg/pointset"
	"github.com/maplab/flatland/pkg/project"
)

// projectOpts holds the command-line flags for the project command.
type projectOpts struct {
	name      string // map name (defaults to the vectors file base name)
	questions string // optional secondary vectors file
	domains   string // optional JSON file with per-point domain labels
	labels    string // optional JSON file with per-point display titles
	output    string // output map file
	noCache   bool   // disable caching
	refresh   bool   // bypass cache reads
}

// projectCommand creates the project command for reducing embeddings to 2D.
func (c *CLI) projectCommand() *cobra.Command {
	var opts projectOpts

	cmd := &cobra.Command{
		Use:   "project <vectors-file>",
		Short: "Project embedding vectors to a 2D map",
		Long: `Project embedding vectors to a 2D map.

The project command reads high-dimensional vectors from a JSON array-of-arrays
file or an fvecs binary file and reduces them to 2D coordinates in the unit
square. The result is written as a map file for use with 'flatten'.

Optional parallel files can attach domain labels and display titles to the
points, and a secondary vectors file can add a question layer that later
follows the article layer through flattening.

Results are cached locally for faster subsequent runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runProject(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.name, "name", "n", "", "map name (defaults to the vectors file base name)")
	cmd.Flags().StringVarP(&opts.questions, "questions", "q", "", "secondary vectors file (question layer)")
	cmd.Flags().StringVar(&opts.domains, "domains", "", "JSON file with one domain label per point")
	cmd.Flags().StringVar(&opts.labels, "labels", "", "JSON file with one display title per point")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output map file (default <input>.map.json)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "bypass cache")

	return cmd
}

// runProject loads the input files, projects them, and writes the map.
func (c *CLI) runProject(ctx context.Context, input string, opts projectOpts) error {
	output, err := resolveOutput(opts.output, input, ".map.json")
	if err != nil {
		return err
	}

	vectors, err := project.LoadVectors(input)
	if err != nil {
		return fmt.Errorf("load vectors %s: %w", input, err)
	}

	popts := pipeline.Options{
		Name:    opts.name,
		Vectors: vectors,
		Refresh: opts.refresh,
		Logger:  c.Logger,
	}
	if popts.Name == "" {
		popts.Name = mapNameFrom(input)
	}

	if opts.questions != "" {
		popts.QuestionVectors, err = project.LoadVectors(opts.questions)
		if err != nil {
			return fmt.Errorf("load questions %s: %w", opts.questions, err)
		}
	}
	if opts.domains != "" {
		popts.Domains, err = loadStringList(opts.domains)
		if err != nil {
			return fmt.Errorf("load domains %s: %w", opts.domains, err)
		}
	}
	if opts.labels != "" {
		popts.Labels, err = loadStringList(opts.labels)
		if err != nil {
			return fmt.Errorf("load labels %s: %w", opts.labels, err)
		}
	}

	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Projecting %d vectors...", len(vectors)))
	spinner.Start()

	m, cacheHit, err := runner.ProjectWithCacheInfo(withLogger(ctx, c.Logger), popts)
	if err != nil {
		spinner.StopWithError("Projection failed")
		return fmt.Errorf("project: %w", err)
	}
	spinner.Stop()

	if err := pointset.WriteMapFile(m, output); err != nil {
		return fmt.Errorf("write map: %w", err)
	}

	printSuccess("Projected %s", popts.Name)
	printStats(m.Articles.Len(), domainCountOf(m), cacheHit)
	printFile(output)
	printNewline()
	printNextStep("Flatten the map", fmt.Sprintf("flatland flatten %s", output))
	return nil
}

// mapNameFrom derives a map name from the input file: the base name with
// its extension stripped.
func mapNameFrom(input string) string {
	base := filepath.Base(input)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// loadStringList reads a JSON array of strings from path.
func loadStringList(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return list, nil
}

// domainCountOf counts the distinct domains of the article layer.
func domainCountOf(m *pointset.Map) int {
	seen := make(map[string]struct{})
	for _, d := range m.Articles.Domains {
		seen[d] = struct{}{}
	}
	return len(seen)
}
