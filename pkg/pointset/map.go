package pointset

import (
	"fmt"
)

// =============================================================================
// Map - Knowledge Map Document
// =============================================================================

// Map is the canonical serialization format for a knowledge map.
// Used for files, caching, the preview server, and the bundle store.
//
// The format is designed for round-trip fidelity: import → flatten →
// export → re-import produces identical results.
type Map struct {
	// Name identifies the map (e.g., the corpus or language it was built from).
	Name string `json:"name,omitempty" bson:"name,omitempty"`

	// Articles is the primary layer. It drives the density flattening.
	Articles Layer `json:"articles" bson:"articles"`

	// Questions is the secondary layer, warped consistently with articles
	// but never influencing the warp. May be empty.
	Questions Layer `json:"questions,omitempty" bson:"questions,omitempty"`

	// FlattenParams records the parameters of the last applied flatten,
	// if any. Nil means the coordinates are unflattened originals.
	FlattenParams *FlattenParams `json:"flatten_params,omitempty" bson:"flatten_params,omitempty"`

	// Stats holds density diagnostics from the last flatten, if any.
	Stats *DensityStats `json:"stats,omitempty" bson:"stats,omitempty"`
}

// Layer is one point layer of a map.
//
// Coords holds the active coordinates; CoordsOriginal holds the coordinates
// as produced by the projection, before any flattening. When the layer has
// never been flattened, CoordsOriginal is empty and Coords are the originals.
type Layer struct {
	Coords         PointSet `json:"coords" bson:"coords"`
	CoordsOriginal PointSet `json:"coords_original,omitempty" bson:"coords_original,omitempty"`

	// Domains assigns each point a domain label (parallel to Coords).
	// Optional; exports group points by domain when present.
	Domains []string `json:"domains,omitempty" bson:"domains,omitempty"`

	// Labels holds display titles per point (parallel to Coords). Optional.
	Labels []string `json:"labels,omitempty" bson:"labels,omitempty"`
}

// Originals returns the layer's pre-flatten coordinates: CoordsOriginal if
// present, otherwise Coords.
func (l *Layer) Originals() PointSet {
	if len(l.CoordsOriginal) > 0 {
		return l.CoordsOriginal
	}
	return l.Coords
}

// Len returns the number of points in the layer.
func (l *Layer) Len() int { return len(l.Coords) }

// FlattenParams is the serialization record of flattening parameters.
type FlattenParams struct {
	Mu           float64 `json:"mu" bson:"mu"`
	ClusterCount int     `json:"cluster_count" bson:"cluster_count"`
	NeighborK    int     `json:"neighbor_k" bson:"neighbor_k"`
	Margin       float64 `json:"margin" bson:"margin"`
	Seed         uint64  `json:"seed" bson:"seed"`
}

// DensityStats holds before/after density diagnostics of a flatten run.
// Fractions refer to an occupancy grid over the unit square.
type DensityStats struct {
	EmptyBefore     float64 `json:"empty_before" bson:"empty_before"`
	EmptyAfter      float64 `json:"empty_after" bson:"empty_after"`
	TopDecileBefore float64 `json:"top_decile_before" bson:"top_decile_before"`
	TopDecileAfter  float64 `json:"top_decile_after" bson:"top_decile_after"`

	// MeanDisplacement is the mean distance primary points moved.
	MeanDisplacement float64 `json:"mean_displacement" bson:"mean_displacement"`

	// TotalDisplacement is the summed distance primary points moved.
	TotalDisplacement float64 `json:"total_displacement" bson:"total_displacement"`
}

// =============================================================================
// Validation
// =============================================================================

// Validate checks internal consistency of the map document.
func (m *Map) Validate() error {
	if len(m.Articles.Coords) == 0 {
		return fmt.Errorf("map has no article coordinates")
	}
	if err := m.Articles.validate("articles"); err != nil {
		return err
	}
	if err := m.Questions.validate("questions"); err != nil {
		return err
	}
	return nil
}

func (l *Layer) validate(name string) error {
	if !l.Coords.InUnitSquare() {
		return fmt.Errorf("%s: coordinates outside [0,1]x[0,1]", name)
	}
	if n := len(l.CoordsOriginal); n > 0 && n != len(l.Coords) {
		return fmt.Errorf("%s: coords_original length %d does not match coords length %d", name, n, len(l.Coords))
	}
	if n := len(l.Domains); n > 0 && n != len(l.Coords) {
		return fmt.Errorf("%s: domains length %d does not match coords length %d", name, n, len(l.Coords))
	}
	if n := len(l.Labels); n > 0 && n != len(l.Coords) {
		return fmt.Errorf("%s: labels length %d does not match coords length %d", name, n, len(l.Coords))
	}
	return nil
}
