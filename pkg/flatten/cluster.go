package flatten

import (
	"math"
	"math/rand/v2"

	"github.com/maplab/flatland/pkg/pointset"
)

// Clusterer partitions points into k groups. Implementations must be
// deterministic given the same rng state and inputs, and must return a
// label in [0, k) for every point with every cluster non-empty.
type Clusterer interface {
	Cluster(points pointset.PointSet, k int, rng *rand.Rand) ([]int, error)
}

// KMeans clusters points with Lloyd's algorithm and k-means++ seeding.
type KMeans struct {
	MaxIter   int     // Maximum iterations (default: 100)
	Tolerance float64 // Convergence tolerance on inertia change (default: 1e-6)
}

// NewKMeans creates a k-means clusterer with default settings.
func NewKMeans() *KMeans {
	return &KMeans{MaxIter: 100, Tolerance: 1e-6}
}

// Cluster partitions points into k non-empty groups.
func (km *KMeans) Cluster(points pointset.PointSet, k int, rng *rand.Rand) ([]int, error) {
	maxIter := km.MaxIter
	if maxIter <= 0 {
		maxIter = 100
	}
	tol := km.Tolerance
	if tol <= 0 {
		tol = 1e-6
	}

	centroids := kmeansppInit(points, k, rng)
	labels := make([]int, len(points))

	prevInertia := math.MaxFloat64
	for iter := 0; iter < maxIter; iter++ {
		inertia := assignToNearest(points, centroids, labels)
		repairEmptyClusters(points, centroids, labels)

		if math.Abs(prevInertia-inertia) < tol*float64(len(points)) {
			break
		}
		prevInertia = inertia

		updateCentroids(points, centroids, labels)
	}

	return labels, nil
}

// kmeansppInit chooses initial centroids with the k-means++ scheme:
// each subsequent centroid is drawn with probability proportional to its
// squared distance from the nearest already-chosen centroid.
func kmeansppInit(points pointset.PointSet, k int, rng *rand.Rand) pointset.PointSet {
	n := len(points)
	centroids := make(pointset.PointSet, k)
	centroids[0] = points[rng.IntN(n)]

	distances := make([]float64, n)
	for i := range distances {
		distances[i] = math.MaxFloat64
	}

	for c := 1; c < k; c++ {
		var totalDist float64
		for i, p := range points {
			if d := p.DistSq(centroids[c-1]); d < distances[i] {
				distances[i] = d
			}
			totalDist += distances[i]
		}

		// Degenerate case: all remaining mass at distance zero.
		// Fall back to a uniform draw.
		if totalDist == 0 {
			centroids[c] = points[rng.IntN(n)]
			continue
		}

		threshold := rng.Float64() * totalDist
		var cumulative float64
		chosen := 0
		for i, d := range distances {
			cumulative += d
			if cumulative >= threshold {
				chosen = i
				break
			}
		}
		centroids[c] = points[chosen]
	}

	return centroids
}

// assignToNearest labels every point with its nearest centroid and returns
// the total inertia (sum of squared distances).
func assignToNearest(points pointset.PointSet, centroids pointset.PointSet, labels []int) float64 {
	var inertia float64
	for i, p := range points {
		minDist := math.MaxFloat64
		minIdx := 0
		for c, centroid := range centroids {
			if d := p.DistSq(centroid); d < minDist {
				minDist = d
				minIdx = c
			}
		}
		labels[i] = minIdx
		inertia += minDist
	}
	return inertia
}

// updateCentroids recomputes centroids as the mean of their assigned points.
// Empty clusters keep their previous centroid.
func updateCentroids(points pointset.PointSet, centroids pointset.PointSet, labels []int) {
	counts := make([]int, len(centroids))
	sums := make(pointset.PointSet, len(centroids))

	for i, p := range points {
		c := labels[i]
		counts[c]++
		sums[c] = sums[c].Add(p)
	}

	for c := range centroids {
		if counts[c] > 0 {
			centroids[c] = sums[c].Scale(1 / float64(counts[c]))
		}
	}
}

// repairEmptyClusters moves the point farthest from its centroid into each
// empty cluster. With at least k distinct coordinates this guarantees every
// cluster ends up non-empty.
func repairEmptyClusters(points pointset.PointSet, centroids pointset.PointSet, labels []int) {
	counts := make([]int, len(centroids))
	for _, l := range labels {
		counts[l]++
	}

	for c := range centroids {
		if counts[c] > 0 {
			continue
		}

		// Steal the point with the largest distance to its current
		// centroid, from a cluster that can spare one.
		farIdx := -1
		farDist := -1.0
		for i, p := range points {
			if counts[labels[i]] <= 1 {
				continue
			}
			if d := p.DistSq(centroids[labels[i]]); d > farDist {
				farDist = d
				farIdx = i
			}
		}
		if farIdx < 0 {
			continue
		}

		counts[labels[farIdx]]--
		labels[farIdx] = c
		counts[c] = 1
		centroids[c] = points[farIdx]
	}
}

// Ensure KMeans implements Clusterer.
var _ Clusterer = (*KMeans)(nil)
