// Package pipeline provides the core map-building pipeline for Flatland.
//
// This package implements the complete project → flatten → export pipeline
// that can be used by CLI and server components. By centralizing this logic,
// we ensure consistent behavior across all entry points and avoid code
// duplication.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Project: Reduce high-dimensional embeddings to 2D coordinates
//  2. Flatten: Redistribute coordinates toward uniform density
//  3. Export: Build per-domain bundles for downstream consumers
//
// Each stage can be run independently or as part of the complete pipeline.
//
// # Usage
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{
//	    Name:    "science",
//	    Vectors: vectors,
//	    Domains: domains,
//	    Mu:      0.75,
//	}
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	bundle := result.Bundle
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/maplab/flatland/pkg/cache"
	"github.com/maplab/flatland/pkg/errors"
	"github.com/maplab/flatland/pkg/export"
	"github.com/maplab/flatland/pkg/flatten"
	"github.com/maplab/flatland/pkg/pointset"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and Server
// =============================================================================

const (
	// DefaultMu is the default flattening strength.
	DefaultMu = flatten.DefaultMu

	// DefaultClusterCount is the default number of clusters.
	DefaultClusterCount = flatten.DefaultClusterCount

	// DefaultNeighborK is the default neighbor count for the secondary layer.
	DefaultNeighborK = flatten.DefaultNeighborK

	// DefaultMargin is the default frame inset for target layouts.
	DefaultMargin = flatten.DefaultMargin

	// DefaultSeed is the default random seed for reproducibility.
	DefaultSeed = flatten.DefaultSeed

	// DefaultGridCells is the default export grid resolution.
	DefaultGridCells = export.DefaultGridCells

	// projectionComponents is the output dimensionality of the projection
	// stage. The flattener operates strictly on the plane.
	projectionComponents = 2
)

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for the map-building pipeline.
// This struct supports JSON serialization for server requests.
type Options struct {
	// Project options
	Name            string      `json:"name"`
	Vectors         [][]float64 `json:"vectors,omitempty"`
	QuestionVectors [][]float64 `json:"question_vectors,omitempty"`
	Domains         []string    `json:"domains,omitempty"`
	Labels          []string    `json:"labels,omitempty"`
	Refresh         bool        `json:"refresh,omitempty"`

	// Flatten options
	Mu           float64 `json:"mu"`
	ClusterCount int     `json:"cluster_count,omitempty"`
	NeighborK    int     `json:"neighbor_k,omitempty"`
	Margin       float64 `json:"margin,omitempty"`
	Seed         uint64  `json:"seed,omitempty"`

	// Export options
	GridCells int    `json:"grid_cells,omitempty"`
	Domain    string `json:"domain,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// MuSet, MarginSet, and SeedSet distinguish explicit zero values
	// from absent ones, since 0 is valid for all three parameters.
	MuSet     bool `json:"-"`
	MarginSet bool `json:"-"`
	SeedSet   bool `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Map is the flattened map.
	Map *pointset.Map

	// MapHash is the content hash of the flattened map.
	MapHash string

	// Bundle is the export artifact.
	Bundle *export.Bundle

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	PointCount    int
	QuestionCount int
	DomainCount   int
	ProjectTime   time.Duration
	FlattenTime   time.Duration
	ExportTime    time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	ProjectHit bool // Whether the projection came from cache
	FlattenHit bool // Whether the flattened map came from cache
	ExportHit  bool // Whether the bundle came from cache
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults for the
// full pipeline. This method is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForProject(); err != nil {
		return err
	}
	o.SetFlattenDefaults()
	o.SetExportDefaults()
	o.validated = true
	return nil
}

// ValidateForProject checks required fields for the projection stage.
func (o *Options) ValidateForProject() error {
	if o.Name == "" {
		return errors.New(errors.ErrCodeInvalidInput, "name is required")
	}
	if len(o.Vectors) == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "vectors are required")
	}
	if n := len(o.Domains); n > 0 && n != len(o.Vectors) {
		return errors.New(errors.ErrCodeInvalidInput,
			"domains length %d does not match vectors length %d", n, len(o.Vectors))
	}
	if n := len(o.Labels); n > 0 && n != len(o.Vectors) {
		return errors.New(errors.ErrCodeInvalidInput,
			"labels length %d does not match vectors length %d", n, len(o.Vectors))
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return nil
}

// SetFlattenDefaults sets default values for the flatten stage.
func (o *Options) SetFlattenDefaults() {
	if o.Mu == 0 && !o.MuSet {
		o.Mu = DefaultMu
	}
	if o.ClusterCount == 0 {
		o.ClusterCount = DefaultClusterCount
	}
	if o.NeighborK == 0 {
		o.NeighborK = DefaultNeighborK
	}
	if o.Margin == 0 && !o.MarginSet {
		o.Margin = DefaultMargin
	}
	if o.Seed == 0 && !o.SeedSet {
		o.Seed = DefaultSeed
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// SetExportDefaults sets default values for the export stage.
func (o *Options) SetExportDefaults() {
	if o.GridCells == 0 {
		o.GridCells = DefaultGridCells
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// FlattenParams returns the flatten stage parameters.
func (o *Options) FlattenParams() flatten.Params {
	return flatten.Params{
		Mu:           o.Mu,
		ClusterCount: o.ClusterCount,
		NeighborK:    o.NeighborK,
		Margin:       o.Margin,
		Seed:         o.Seed,
	}
}

// ProjectionKeyOpts returns cache key options for the projection stage.
func (o *Options) ProjectionKeyOpts() cache.ProjectionKeyOpts {
	return cache.ProjectionKeyOpts{
		Components: projectionComponents,
		Normalize:  true,
	}
}

// FlattenKeyOpts returns cache key options for the flatten stage.
func (o *Options) FlattenKeyOpts() cache.FlattenKeyOpts {
	return cache.FlattenKeyOpts{
		Mu:           o.Mu,
		ClusterCount: o.ClusterCount,
		NeighborK:    o.NeighborK,
		Margin:       o.Margin,
		Seed:         o.Seed,
	}
}

// BundleKeyOpts returns cache key options for the export stage.
func (o *Options) BundleKeyOpts() cache.BundleKeyOpts {
	return cache.BundleKeyOpts{
		GridCells: o.GridCells,
		Domain:    o.Domain,
	}
}
