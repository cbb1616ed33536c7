// Package export builds per-domain bundles from a flattened map for
// downstream consumers. All geometry is recomputed from the map's
// current coordinates, never carried over from earlier runs.
package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/maplab/flatland/pkg/errors"
	"github.com/maplab/flatland/pkg/pointset"
)

// DefaultGridCells is the labeling grid resolution per axis.
const DefaultGridCells = 24

// Region is an axis-aligned bounding box in unit-square coordinates.
type Region struct {
	MinX float64 `json:"min_x" bson:"min_x"`
	MinY float64 `json:"min_y" bson:"min_y"`
	MaxX float64 `json:"max_x" bson:"max_x"`
	MaxY float64 `json:"max_y" bson:"max_y"`
}

// DomainBundle holds one domain's points and bounding region.
type DomainBundle struct {
	Domain string            `json:"domain" bson:"domain"`
	Count  int               `json:"count" bson:"count"`
	Points pointset.PointSet `json:"points" bson:"points"`
	Region Region            `json:"region" bson:"region"`
}

// CellLabel names the majority domain of one grid cell.
type CellLabel struct {
	Row    int    `json:"row" bson:"row"`
	Col    int    `json:"col" bson:"col"`
	Domain string `json:"domain" bson:"domain"`
	Count  int    `json:"count" bson:"count"`
}

// Bundle is the export artifact for one map.
type Bundle struct {
	ID          string                  `json:"id" bson:"_id"`
	MapName     string                  `json:"map_name" bson:"map_name"`
	GeneratedAt time.Time               `json:"generated_at" bson:"generated_at"`
	GridCells   int                     `json:"grid_cells" bson:"grid_cells"`
	Domains     []DomainBundle          `json:"domains" bson:"domains"`
	Cells       []CellLabel             `json:"cells" bson:"cells"`
	Stats       *pointset.DensityStats  `json:"stats,omitempty" bson:"stats,omitempty"`
	Params      *pointset.FlattenParams `json:"params,omitempty" bson:"params,omitempty"`
}

// Options configures bundle generation.
type Options struct {
	// GridCells is the labeling grid resolution per axis.
	GridCells int
	// Domain restricts the bundle to one domain when non-empty.
	Domain string
}

// ValidateAndSetDefaults checks options and fills in defaults.
func (o *Options) ValidateAndSetDefaults() error {
	if o.GridCells == 0 {
		o.GridCells = DefaultGridCells
	}
	if o.GridCells < 1 || o.GridCells > 256 {
		return errors.New(errors.ErrCodeInvalidInput, "grid cells must be in [1,256], got %d", o.GridCells)
	}
	if o.Domain != "" {
		if err := errors.ValidateDomain(o.Domain); err != nil {
			return err
		}
	}
	return nil
}

// Build creates a bundle from the article layer of m.
func Build(m *pointset.Map, opts Options) (*Bundle, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	layer := m.Articles
	byDomain := make(map[string]pointset.PointSet)
	for i, p := range layer.Coords {
		domain := domainAt(layer, i)
		if opts.Domain != "" && domain != opts.Domain {
			continue
		}
		byDomain[domain] = append(byDomain[domain], p)
	}
	if opts.Domain != "" && len(byDomain) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidDomain, "domain not present in map: %s", opts.Domain)
	}

	names := make([]string, 0, len(byDomain))
	for name := range byDomain {
		names = append(names, name)
	}
	sort.Strings(names)

	domains := make([]DomainBundle, 0, len(names))
	for _, name := range names {
		points := byDomain[name]
		lo, hi := points.Bounds()
		domains = append(domains, DomainBundle{
			Domain: name,
			Count:  len(points),
			Points: points,
			Region: Region{MinX: lo.X, MinY: lo.Y, MaxX: hi.X, MaxY: hi.Y},
		})
	}

	return &Bundle{
		ID:          uuid.NewString(),
		MapName:     m.Name,
		GeneratedAt: time.Now().UTC(),
		GridCells:   opts.GridCells,
		Domains:     domains,
		Cells:       labelCells(layer, opts),
		Stats:       m.Stats,
		Params:      m.FlattenParams,
	}, nil
}

// domainAt returns the domain of point i, or a placeholder when the
// map carries no domain annotations.
func domainAt(layer pointset.Layer, i int) string {
	if len(layer.Domains) == 0 {
		return "unassigned"
	}
	return layer.Domains[i]
}

// labelCells assigns each occupied grid cell its majority domain. Ties
// go to the lexicographically smaller domain.
func labelCells(layer pointset.Layer, opts Options) []CellLabel {
	res := opts.GridCells
	type cellKey struct{ row, col int }
	counts := make(map[cellKey]map[string]int)

	for i, p := range layer.Coords {
		domain := domainAt(layer, i)
		if opts.Domain != "" && domain != opts.Domain {
			continue
		}
		col := min(int(p.X*float64(res)), res-1)
		row := min(int(p.Y*float64(res)), res-1)
		key := cellKey{row, col}
		if counts[key] == nil {
			counts[key] = make(map[string]int)
		}
		counts[key][domain]++
	}

	labels := make([]CellLabel, 0, len(counts))
	for key, domains := range counts {
		best := ""
		bestCount := 0
		total := 0
		for domain, count := range domains {
			total += count
			if count > bestCount || (count == bestCount && domain < best) {
				best = domain
				bestCount = count
			}
		}
		labels = append(labels, CellLabel{Row: key.row, Col: key.col, Domain: best, Count: total})
	}

	sort.Slice(labels, func(i, j int) bool {
		if labels[i].Row != labels[j].Row {
			return labels[i].Row < labels[j].Row
		}
		return labels[i].Col < labels[j].Col
	})
	return labels
}

// Marshal serializes a bundle as indented JSON.
func Marshal(b *Bundle) ([]byte, error) {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "failed to marshal bundle")
	}
	return data, nil
}

// WriteFile atomically writes a bundle to path.
func WriteFile(path string, b *Bundle) error {
	data, err := Marshal(b)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".bundle-*.json")
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "failed to create temp file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(errors.ErrCodeInternal, err, "failed to write bundle")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(errors.ErrCodeInternal, err, "failed to close bundle file")
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(errors.ErrCodeInternal, err, "failed to set bundle permissions")
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "failed to move bundle into place")
	}
	return nil
}
