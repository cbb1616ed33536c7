package flatten

import (
	"sort"

	"github.com/maplab/flatland/pkg/pointset"
)

// densityGridRes is the resolution of the occupancy grid used for density
// diagnostics (32x32 cells over the unit square).
const densityGridRes = 32

// DensityProfile summarizes how points occupy the unit square.
type DensityProfile struct {
	// EmptyFraction is the fraction of occupancy-grid cells containing
	// zero points.
	EmptyFraction float64

	// TopDecileShare is the fraction of all points that sit in the
	// densest 10% of occupied cells. High values mean heavy clustering.
	TopDecileShare float64
}

// Metadata holds the diagnostics of a flatten run.
type Metadata struct {
	// Before and After profile the primary layer's density on input and
	// output coordinates.
	Before DensityProfile
	After  DensityProfile

	// ClusterSizes is the population of each cluster, indexed by cluster.
	ClusterSizes []int

	// TotalDisplacement is the summed distance primary points moved.
	TotalDisplacement float64

	// MeanDisplacement is TotalDisplacement averaged over primary points.
	MeanDisplacement float64
}

// ProfileDensity computes the density profile of a point set over the
// standard occupancy grid.
func ProfileDensity(points pointset.PointSet) DensityProfile {
	cells := make([]int, densityGridRes*densityGridRes)
	for _, p := range points {
		cx := int(p.X * densityGridRes)
		cy := int(p.Y * densityGridRes)
		// Points exactly on the far edge belong to the last cell.
		cx = min(cx, densityGridRes-1)
		cy = min(cy, densityGridRes-1)
		cells[cy*densityGridRes+cx]++
	}

	empty := 0
	occupied := make([]int, 0, len(cells))
	for _, c := range cells {
		if c == 0 {
			empty++
		} else {
			occupied = append(occupied, c)
		}
	}

	profile := DensityProfile{
		EmptyFraction: float64(empty) / float64(len(cells)),
	}

	if len(points) == 0 || len(occupied) == 0 {
		return profile
	}

	sort.Sort(sort.Reverse(sort.IntSlice(occupied)))
	decile := max(1, len(occupied)/10)
	topCount := 0
	for _, c := range occupied[:decile] {
		topCount += c
	}
	profile.TopDecileShare = float64(topCount) / float64(len(points))
	return profile
}

// displacementStats sums and averages the distance between corresponding
// points of two equal-length sets.
func displacementStats(before, after pointset.PointSet) (total, mean float64) {
	for i := range before {
		total += before[i].Dist(after[i])
	}
	if len(before) > 0 {
		mean = total / float64(len(before))
	}
	return total, mean
}
