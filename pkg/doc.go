// Package pkg provides the core libraries for Flatland knowledge maps.
//
// # Overview
//
// Flatland turns high-dimensional embedding collections into 2D knowledge
// maps and redistributes their density so that crowded regions spread out
// and sparse regions fill in. The pkg directory is organized into three
// main areas:
//
//  1. Domain logic: projection, flattening, export ([project], [flatten], [export])
//  2. Infrastructure: caching, storage, serving ([cache], [store], [server])
//  3. Orchestration: the project → flatten → export pipeline ([pipeline])
//
// # Architecture
//
// The typical data flow through Flatland:
//
//	Embedding vectors (JSON or fvecs)
//	         ↓
//	    [project] package (PCA reduction to the unit square)
//	         ↓
//	    [flatten] package (cluster → target layout → assignment → interpolation)
//	         ↓
//	    [export] package (per-domain bundles, grid labels)
//	         ↓
//	    Bundle store / preview server
//
// # Quick Start
//
// Run the full pipeline with caching:
//
//	import (
//	    "context"
//	    "github.com/maplab/flatland/pkg/cache"
//	    "github.com/maplab/flatland/pkg/pipeline"
//	)
//
//	c, _ := cache.NewFileCache("/tmp/flatland")
//	runner := pipeline.NewRunner(c, nil, nil)
//	result, _ := runner.Execute(context.Background(), pipeline.Options{
//	    Name:    "science",
//	    Vectors: vectors,
//	    Domains: domains,
//	    Mu:      0.75,
//	})
//
// Or flatten a point set directly:
//
//	res, _ := flatten.Flatten(points, nil, flatten.DefaultParams())
//
// # Main Packages
//
// [pointset] - Core geometry types (Point, PointSet) and the map document
// format shared by every stage.
//
// [project] - Dimensionality reduction from embedding vectors to unit-square
// coordinates, plus JSON and fvecs vector loaders.
//
// [flatten] - The density flattening engine: seeded k-means clustering,
// area-proportional target layouts, optimal slot assignment, and k-NN
// interpolation for secondary layers. Fully deterministic per seed.
//
// [export] - Bundle generation: per-domain point groups with bounding
// regions and majority-domain grid labels.
//
// [clustergraph] - Cluster adjacency graphs rendered via Graphviz, for
// judging cluster counts before flattening.
//
// [pipeline] - Complete pipeline (project → flatten → export) used by CLI
// and server. Ensures consistent behavior across all entry points.
//
// [cache] - Content-addressed result caching with file, Redis, and null
// backends.
//
// [store] - Bundle persistence with in-memory and MongoDB backends.
// Publishing upserts by map name.
//
// [server] - Read-only HTTP preview server over the bundle store.
//
// [errors] - Structured errors with stable codes and user-facing messages.
//
// [observability] - Pluggable hooks for pipeline, cache, and store events.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...          # All tests
//	go test ./pkg/flatten/...  # Specific package
//
// [pointset]: https://pkg.go.dev/github.com/maplab/flatland/pkg/pointset
// [project]: https://pkg.go.dev/github.com/maplab/flatland/pkg/project
// [flatten]: https://pkg.go.dev/github.com/maplab/flatland/pkg/flatten
// [export]: https://pkg.go.dev/github.com/maplab/flatland/pkg/export
// [clustergraph]: https://pkg.go.dev/github.com/maplab/flatland/pkg/clustergraph
// [pipeline]: https://pkg.go.dev/github.com/maplab/flatland/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/maplab/flatland/pkg/cache
// [store]: https://pkg.go.dev/github.com/maplab/flatland/pkg/store
// [server]: https://pkg.go.dev/github.com/maplab/flatland/pkg/server
// [errors]: https://pkg.go.dev/github.com/maplab/flatland/pkg/errors
// [observability]: https://pkg.go.dev/github.com/maplab/flatland/pkg/observability
package pkg
