// Package cache provides caching for pipeline stage results.
//
// The pipeline caches each stage under a content-hash key: projections are
// keyed by the embedding source, flattened maps by the projected coordinates
// plus flatten parameters, and export bundles by the flattened map. Re-running
// with a different mu therefore never re-runs the upstream projection, only
// the flattener and export (the restore/re-flatten contract).
//
// Two backends are provided: a file cache for CLI usage (XDG cache dir) and a
// Redis cache for shared deployments. NullCache disables caching entirely.
package cache

import (
	"context"
	"time"
)

// TTLs for each cache entry class.
const (
	// TTLProjection is the lifetime of cached projections. Projections are
	// expensive (they run the reduction oracle) and purely content-addressed,
	// so they are kept for a long time.
	TTLProjection = 30 * 24 * time.Hour

	// TTLFlatten is the lifetime of cached flattened maps.
	TTLFlatten = 30 * 24 * time.Hour

	// TTLBundle is the lifetime of cached export bundles.
	TTLBundle = 7 * 24 * time.Hour
)

// Cache is the storage interface for pipeline stage results.
type Cache interface {
	// Get retrieves a value. The second return value reports whether the
	// key was present (a miss is not an error).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with the given TTL. A TTL of 0 means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the cache.
	Close() error
}

// ProjectionKeyOpts are the options that affect projection output.
type ProjectionKeyOpts struct {
	Components int  `json:"components"`
	Normalize  bool `json:"normalize"`
}

// FlattenKeyOpts are the options that affect flattened coordinates.
type FlattenKeyOpts struct {
	Mu           float64 `json:"mu"`
	ClusterCount int     `json:"cluster_count"`
	NeighborK    int     `json:"neighbor_k"`
	Margin       float64 `json:"margin"`
	Seed         uint64  `json:"seed"`
}

// BundleKeyOpts are the options that affect exported bundles.
type BundleKeyOpts struct {
	GridCells int    `json:"grid_cells"`
	Domain    string `json:"domain,omitempty"`
}

// Keyer generates cache keys for each pipeline stage.
// Implementations must be deterministic: identical inputs produce
// identical keys across processes.
type Keyer interface {
	// ProjectionKey generates a key for projected coordinates.
	// sourceHash is the content hash of the embedding input.
	ProjectionKey(sourceHash string, opts ProjectionKeyOpts) string

	// FlattenKey generates a key for flattened coordinates.
	// mapHash is the content hash of the projected map.
	FlattenKey(mapHash string, opts FlattenKeyOpts) string

	// BundleKey generates a key for an export bundle.
	// mapHash is the content hash of the flattened map.
	BundleKey(mapHash string, opts BundleKeyOpts) string
}

// DefaultKeyer generates hash-based cache keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// ProjectionKey generates a key for projected coordinates.
func (k *DefaultKeyer) ProjectionKey(sourceHash string, opts ProjectionKeyOpts) string {
	return hashKey("projection", sourceHash, opts)
}

// FlattenKey generates a key for flattened coordinates.
func (k *DefaultKeyer) FlattenKey(mapHash string, opts FlattenKeyOpts) string {
	return hashKey("flatten", mapHash, opts)
}

// BundleKey generates a key for an export bundle.
func (k *DefaultKeyer) BundleKey(mapHash string, opts BundleKeyOpts) string {
	return hashKey("bundle", mapHash, opts)
}

// Ensure DefaultKeyer implements Keyer.
var _ Keyer = (*DefaultKeyer)(nil)
