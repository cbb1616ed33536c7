package pipeline

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/charmbracelet/log"

	"github.com/maplab/flatland/pkg/cache"
	"github.com/maplab/flatland/pkg/errors"
	"github.com/maplab/flatland/pkg/export"
	"github.com/maplab/flatland/pkg/flatten"
	"github.com/maplab/flatland/pkg/observability"
	"github.com/maplab/flatland/pkg/pointset"
	"github.com/maplab/flatland/pkg/project"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and server can use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache     cache.Cache
	Keyer     cache.Keyer
	Logger    *log.Logger
	Projector project.Projector
	Flattener *flatten.Flattener
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:     c,
		Keyer:     keyer,
		Logger:    logger,
		Projector: project.NewPCAProjector(),
		Flattener: flatten.New(),
	}
}

// Execute runs the complete project → flatten → export pipeline with caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid options")
	}
	r.applyLogger(&opts)

	result := &Result{}

	// Stage 1: Project
	projectStart := time.Now()
	observability.Pipeline().OnProjectStart(ctx, opts.Name, len(opts.Vectors))
	m, projectHit, err := r.ProjectWithCacheInfo(ctx, opts)
	observability.Pipeline().OnProjectComplete(ctx, opts.Name, pointCount(m), time.Since(projectStart), err)
	if err != nil {
		return nil, errors.Wrap(stageCode(err), err, "project")
	}
	result.Stats.ProjectTime = time.Since(projectStart)
	result.Stats.PointCount = len(m.Articles.Coords)
	result.Stats.QuestionCount = len(m.Questions.Coords)
	result.CacheInfo.ProjectHit = projectHit

	r.Logger.Info("projected embeddings",
		"points", result.Stats.PointCount,
		"questions", result.Stats.QuestionCount,
		"duration", result.Stats.ProjectTime)

	// Stage 2: Flatten
	flattenStart := time.Now()
	observability.Pipeline().OnFlattenStart(ctx, opts.Name, pointCount(m))
	flat, flattenHit, err := r.FlattenWithCacheInfo(ctx, m, opts)
	observability.Pipeline().OnFlattenComplete(ctx, opts.Name, time.Since(flattenStart), err)
	if err != nil {
		return nil, errors.Wrap(stageCode(err), err, "flatten")
	}
	result.Map = flat
	result.Stats.FlattenTime = time.Since(flattenStart)
	result.CacheInfo.FlattenHit = flattenHit

	if data, err := pointset.MarshalMap(flat); err == nil {
		result.MapHash = cache.Hash(data)
	}

	r.Logger.Info("flattened map",
		"mu", opts.Mu,
		"clusters", opts.ClusterCount,
		"duration", result.Stats.FlattenTime)

	// Stage 3: Export
	exportStart := time.Now()
	observability.Pipeline().OnExportStart(ctx, opts.Name)
	bundle, exportHit, err := r.ExportWithCacheInfo(ctx, flat, opts)
	observability.Pipeline().OnExportComplete(ctx, opts.Name, domainCount(bundle), time.Since(exportStart), err)
	if err != nil {
		return nil, errors.Wrap(stageCode(err), err, "export")
	}
	result.Bundle = bundle
	result.Stats.ExportTime = time.Since(exportStart)
	result.Stats.DomainCount = len(bundle.Domains)
	result.CacheInfo.ExportHit = exportHit

	r.Logger.Info("exported bundle",
		"domains", result.Stats.DomainCount,
		"duration", result.Stats.ExportTime)

	return result, nil
}

// ProjectWithCacheInfo projects embeddings with caching and returns cache
// hit info.
func (r *Runner) ProjectWithCacheInfo(ctx context.Context, opts Options) (*pointset.Map, bool, error) {
	if err := opts.ValidateForProject(); err != nil {
		return nil, false, err
	}
	r.applyLogger(&opts)

	sourceHash := hashVectors(opts)
	cacheKey := r.Keyer.ProjectionKey(sourceHash, opts.ProjectionKeyOpts())

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			if m, err := pointset.UnmarshalMap(data); err == nil {
				observability.Cache().OnCacheHit(ctx, "projection")
				return m, true, nil
			}
		}
	}
	observability.Cache().OnCacheMiss(ctx, "projection")

	m, err := r.project(opts)
	if err != nil {
		return nil, false, err
	}

	if data, err := pointset.MarshalMap(m); err == nil {
		_ = r.Cache.Set(ctx, cacheKey, data, cache.TTLProjection)
		observability.Cache().OnCacheSet(ctx, "projection", len(data))
	}

	return m, false, nil
}

// Project is a convenience wrapper that discards the cache hit info.
func (r *Runner) Project(ctx context.Context, opts Options) (*pointset.Map, error) {
	m, _, err := r.ProjectWithCacheInfo(ctx, opts)
	return m, err
}

func (r *Runner) project(opts Options) (*pointset.Map, error) {
	coords, err := r.Projector.Project(opts.Vectors)
	if err != nil {
		return nil, err
	}

	m := &pointset.Map{
		Name: opts.Name,
		Articles: pointset.Layer{
			Coords:  coords,
			Domains: opts.Domains,
			Labels:  opts.Labels,
		},
	}

	if len(opts.QuestionVectors) > 0 {
		qcoords, err := r.Projector.Project(opts.QuestionVectors)
		if err != nil {
			return nil, err
		}
		m.Questions = pointset.Layer{Coords: qcoords}
	}

	return m, m.Validate()
}

// FlattenWithCacheInfo flattens a map with caching and returns cache hit info.
func (r *Runner) FlattenWithCacheInfo(ctx context.Context, m *pointset.Map, opts Options) (*pointset.Map, bool, error) {
	opts.SetFlattenDefaults()
	r.applyLogger(&opts)

	mapData, err := pointset.MarshalMap(m)
	if err != nil {
		return nil, false, err
	}
	mapHash := cache.Hash(mapData)
	cacheKey := r.Keyer.FlattenKey(mapHash, opts.FlattenKeyOpts())

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			if flat, err := pointset.UnmarshalMap(data); err == nil {
				observability.Cache().OnCacheHit(ctx, "flatten")
				return flat, true, nil
			}
		}
	}
	observability.Cache().OnCacheMiss(ctx, "flatten")

	flat, err := r.flatten(m, opts)
	if err != nil {
		return nil, false, err
	}

	if data, err := pointset.MarshalMap(flat); err == nil {
		_ = r.Cache.Set(ctx, cacheKey, data, cache.TTLFlatten)
		observability.Cache().OnCacheSet(ctx, "flatten", len(data))
	}

	return flat, false, nil
}

// Flatten is a convenience wrapper that discards the cache hit info.
func (r *Runner) Flatten(ctx context.Context, m *pointset.Map, opts Options) (*pointset.Map, error) {
	flat, _, err := r.FlattenWithCacheInfo(ctx, m, opts)
	return flat, err
}

func (r *Runner) flatten(m *pointset.Map, opts Options) (*pointset.Map, error) {
	params := opts.FlattenParams()

	// Always flatten from the original layout so repeated runs with
	// different mu values do not compound.
	primary := m.Articles.Originals()
	secondary := m.Questions.Originals()

	res, err := r.Flattener.Flatten(primary, secondary, params)
	if err != nil {
		return nil, err
	}

	flat := &pointset.Map{
		Name: m.Name,
		Articles: pointset.Layer{
			Coords:         res.Primary,
			CoordsOriginal: primary,
			Domains:        m.Articles.Domains,
			Labels:         m.Articles.Labels,
		},
		FlattenParams: &pointset.FlattenParams{
			Mu:           params.Mu,
			ClusterCount: params.ClusterCount,
			NeighborK:    params.NeighborK,
			Margin:       params.Margin,
			Seed:         params.Seed,
		},
		Stats: &pointset.DensityStats{
			EmptyBefore:       res.Metadata.Before.EmptyFraction,
			EmptyAfter:        res.Metadata.After.EmptyFraction,
			TopDecileBefore:   res.Metadata.Before.TopDecileShare,
			TopDecileAfter:    res.Metadata.After.TopDecileShare,
			MeanDisplacement:  res.Metadata.MeanDisplacement,
			TotalDisplacement: res.Metadata.TotalDisplacement,
		},
	}
	if len(secondary) > 0 {
		flat.Questions = pointset.Layer{
			Coords:         res.Secondary,
			CoordsOriginal: secondary,
			Domains:        m.Questions.Domains,
			Labels:         m.Questions.Labels,
		}
	}
	return flat, nil
}

// ExportWithCacheInfo builds a bundle with caching and returns cache hit info.
func (r *Runner) ExportWithCacheInfo(ctx context.Context, m *pointset.Map, opts Options) (*export.Bundle, bool, error) {
	opts.SetExportDefaults()
	r.applyLogger(&opts)

	mapData, err := pointset.MarshalMap(m)
	if err != nil {
		return nil, false, err
	}
	mapHash := cache.Hash(mapData)
	cacheKey := r.Keyer.BundleKey(mapHash, opts.BundleKeyOpts())

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			var bundle export.Bundle
			if err := json.Unmarshal(data, &bundle); err == nil {
				observability.Cache().OnCacheHit(ctx, "bundle")
				return &bundle, true, nil
			}
		}
	}
	observability.Cache().OnCacheMiss(ctx, "bundle")

	bundle, err := export.Build(m, export.Options{GridCells: opts.GridCells, Domain: opts.Domain})
	if err != nil {
		return nil, false, err
	}

	if data, err := export.Marshal(bundle); err == nil {
		_ = r.Cache.Set(ctx, cacheKey, data, cache.TTLBundle)
		observability.Cache().OnCacheSet(ctx, "bundle", len(data))
	}

	return bundle, false, nil
}

// Export is a convenience wrapper that discards the cache hit info.
func (r *Runner) Export(ctx context.Context, m *pointset.Map, opts Options) (*export.Bundle, error) {
	bundle, _, err := r.ExportWithCacheInfo(ctx, m, opts)
	return bundle, err
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

func pointCount(m *pointset.Map) int {
	if m == nil {
		return 0
	}
	return len(m.Articles.Coords)
}

func domainCount(b *export.Bundle) int {
	if b == nil {
		return 0
	}
	return len(b.Domains)
}

// stageCode maps a stage error to a structured error code. Typed flattener
// errors carry no code of their own, so they are translated here; errors
// that already carry a code keep it, and anything else is internal.
func stageCode(err error) errors.Code {
	var invalid *flatten.InvalidParameterError
	if stderrors.As(err, &invalid) {
		return errors.ErrCodeInvalidParameter
	}
	var degenerate *flatten.DegenerateInputError
	if stderrors.As(err, &degenerate) {
		return errors.ErrCodeDegenerateInput
	}
	if code := errors.GetCode(err); code != "" {
		return code
	}
	return errors.ErrCodeInternal
}

// hashVectors derives a content hash over the projection inputs.
func hashVectors(opts Options) string {
	payload := struct {
		Name            string      `json:"name"`
		Vectors         [][]float64 `json:"vectors"`
		QuestionVectors [][]float64 `json:"question_vectors,omitempty"`
		Domains         []string    `json:"domains,omitempty"`
		Labels          []string    `json:"labels,omitempty"`
	}{opts.Name, opts.Vectors, opts.QuestionVectors, opts.Domains, opts.Labels}

	data, err := json.Marshal(payload)
	if err != nil {
		return opts.Name
	}
	return cache.Hash(data)
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
