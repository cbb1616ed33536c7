// Package flatten implements density flattening for 2D knowledge maps.
//
// The flattener takes a non-uniform, clustered projection of points in the
// unit square and redistributes it toward uniform coverage while preserving
// local neighborhood structure. The trade-off is continuous: mu=0 leaves
// every point where it is, mu=1 moves every point to its slot in a
// fully-redistributed target layout, and intermediate values interpolate
// linearly between the two.
//
// The algorithm has four stages:
//
//  1. Partition the primary points into cluster_count local neighborhoods
//     with seeded k-means.
//  2. Build a target layout: the unit square (inset by margin) is divided
//     into one rectangle per cluster with area proportional to cluster
//     population, and each rectangle is filled with a grid of slots.
//  3. Within each cluster, solve a one-to-one assignment of points to slots
//     minimizing total displacement (exact Hungarian for small clusters,
//     greedy with swap improvement beyond that).
//  4. Interpolate each point between its original position and its slot by
//     mu, and carry secondary points along by applying the inverse-distance
//     weighted displacement of their k nearest primary points.
//
// The result is a pure function of the inputs and parameters: the same
// primary points, parameters, and seed always produce identical output,
// regardless of how many workers run the per-cluster assignments.
// Secondary points never influence the warp.
package flatten

import (
	"fmt"
	"math/rand/v2"
	"runtime"
	"sync"

	"github.com/maplab/flatland/pkg/pointset"
)

// Result holds the output of a flatten run.
type Result struct {
	// Primary contains the warped primary coordinates, index-aligned
	// with the input.
	Primary pointset.PointSet

	// Secondary contains the warped secondary coordinates, index-aligned
	// with the input. Empty when no secondary points were supplied.
	Secondary pointset.PointSet

	// Metadata holds density diagnostics for reporting.
	Metadata Metadata
}

// Flattener computes density-flattened layouts. The zero value is not
// usable; construct with [New].
type Flattener struct {
	clusterer Clusterer
	assigner  Assigner
	workers   int
}

// Option configures a Flattener.
type Option func(*Flattener)

// WithClusterer replaces the default k-means clusterer.
func WithClusterer(c Clusterer) Option {
	return func(f *Flattener) { f.clusterer = c }
}

// WithAssigner replaces the default auto (Hungarian/greedy) assigner.
func WithAssigner(a Assigner) Option {
	return func(f *Flattener) { f.assigner = a }
}

// WithWorkers bounds the number of concurrent per-cluster assignment
// solves. Defaults to GOMAXPROCS. Worker count never affects the result.
func WithWorkers(n int) Option {
	return func(f *Flattener) { f.workers = n }
}

// New creates a Flattener with the given options.
func New(opts ...Option) *Flattener {
	f := &Flattener{
		clusterer: NewKMeans(),
		assigner:  NewAutoAssigner(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Flatten runs the default flattener. See [Flattener.Flatten].
func Flatten(primary, secondary pointset.PointSet, params Params) (*Result, error) {
	return New().Flatten(primary, secondary, params)
}

// SeededRNG creates the generator that drives all randomized steps for a
// given seed. Callers that need to reproduce the clustering outside a
// flatten run (e.g. diagnostics) must use the same generator.
func SeededRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Flatten warps primary and secondary points according to params.
//
// Primary and secondary coordinates must lie in [0,1] x [0,1]; the caller
// (normally the projection stage) is responsible for normalization. All
// output coordinates are clamped to the unit square.
//
// Returns [InvalidParameterError] for out-of-range parameters and
// [DegenerateInputError] when the primary points have fewer distinct
// coordinates than the requested cluster count. On error no partial result
// is returned.
func (f *Flattener) Flatten(primary, secondary pointset.PointSet, params Params) (*Result, error) {
	if err := params.Validate(len(primary)); err != nil {
		return nil, err
	}

	if distinct := primary.DistinctCount(); distinct < params.ClusterCount {
		return nil, &DegenerateInputError{Distinct: distinct, ClusterCount: params.ClusterCount}
	}

	// mu=0 is the restore path: exact identity, no clustering.
	if params.Mu == 0 {
		profile := ProfileDensity(primary)
		return &Result{
			Primary:   primary.Clone(),
			Secondary: secondary.Clone(),
			Metadata:  Metadata{Before: profile, After: profile},
		}, nil
	}

	rng := SeededRNG(params.Seed)

	labels, err := f.clusterer.Cluster(primary, params.ClusterCount, rng)
	if err != nil {
		return nil, fmt.Errorf("cluster: %w", err)
	}

	counts := make([]int, params.ClusterCount)
	members := make([][]int, params.ClusterCount)
	for i, l := range labels {
		counts[l]++
		members[l] = append(members[l], i)
	}
	for _, count := range counts {
		if count == 0 {
			return nil, &DegenerateInputError{Distinct: primary.DistinctCount(), ClusterCount: params.ClusterCount}
		}
	}

	centroids := clusterCentroids(primary, members)
	slots := buildTargetSlots(centroids, counts, params.Margin)

	// Fully-flattened position per primary point. Per-cluster assignments
	// are independent, so they fan out over a bounded worker pool; each
	// worker writes only its own cluster's member indices.
	target := make(pointset.PointSet, len(primary))
	f.assignClusters(primary, members, slots, target)

	flatPrimary := make(pointset.PointSet, len(primary))
	displacements := make([]pointset.Point, len(primary))
	for i, p := range primary {
		flatPrimary[i] = p.Scale(1 - params.Mu).Add(target[i].Scale(params.Mu)).Clamp()
		displacements[i] = flatPrimary[i].Sub(p)
	}

	flatSecondary := interpolateSecondary(secondary, primary, displacements, params.NeighborK)

	total, mean := displacementStats(primary, flatPrimary)
	return &Result{
		Primary:   flatPrimary,
		Secondary: flatSecondary,
		Metadata: Metadata{
			Before:            ProfileDensity(primary),
			After:             ProfileDensity(flatPrimary),
			ClusterSizes:      counts,
			TotalDisplacement: total,
			MeanDisplacement:  mean,
		},
	}, nil
}

// assignClusters solves every cluster's point-to-slot assignment and writes
// the chosen slot position for each primary point into target.
func (f *Flattener) assignClusters(primary pointset.PointSet, members [][]int, slots [][]pointset.Point, target pointset.PointSet) {
	workers := f.workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for c := range members {
		wg.Add(1)
		sem <- struct{}{}
		go func(c int) {
			defer wg.Done()
			defer func() { <-sem }()

			idx := members[c]
			src := make([]pointset.Point, len(idx))
			for i, pi := range idx {
				src[i] = primary[pi]
			}

			perm := f.assigner.Assign(src, slots[c])
			for i, pi := range idx {
				target[pi] = slots[c][perm[i]]
			}
		}(c)
	}

	wg.Wait()
}

// clusterCentroids computes the mean position of each cluster's members.
func clusterCentroids(points pointset.PointSet, members [][]int) pointset.PointSet {
	centroids := make(pointset.PointSet, len(members))
	for c, idx := range members {
		var sum pointset.Point
		for _, pi := range idx {
			sum = sum.Add(points[pi])
		}
		if len(idx) > 0 {
			centroids[c] = sum.Scale(1 / float64(len(idx)))
		}
	}
	return centroids
}
