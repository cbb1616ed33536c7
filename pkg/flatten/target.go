package flatten

import (
	"math"
	"sort"

	"github.com/maplab/flatland/pkg/pointset"
)

// rect is an axis-aligned region of the unit square.
type rect struct {
	x0, y0, x1, y1 float64
}

func (r rect) width() float64  { return r.x1 - r.x0 }
func (r rect) height() float64 { return r.y1 - r.y0 }

// buildTargetSlots constructs the target layout: the unit square inset by
// margin is recursively partitioned into one rectangle per cluster, with
// each rectangle's area proportional to the cluster's population. Denser
// source clusters therefore map to proportionally larger target regions,
// which preserves relative density instead of forcing pointwise uniformity.
//
// The partition is a population-weighted binary split: at each step the
// region is cut across its longer axis, with clusters ordered by centroid
// along that axis, so spatially adjacent clusters stay adjacent in the
// target layout.
//
// slots[c] holds counts[c] slot positions inside cluster c's rectangle,
// arranged on a near-square grid.
func buildTargetSlots(centroids pointset.PointSet, counts []int, margin float64) [][]pointset.Point {
	slots := make([][]pointset.Point, len(counts))

	order := make([]int, len(counts))
	for i := range order {
		order[i] = i
	}

	region := rect{x0: margin, y0: margin, x1: 1 - margin, y1: 1 - margin}
	splitRegion(region, order, centroids, counts, slots)
	return slots
}

// splitRegion recursively divides region among the given clusters.
func splitRegion(region rect, clusters []int, centroids pointset.PointSet, counts []int, slots [][]pointset.Point) {
	if len(clusters) == 1 {
		c := clusters[0]
		slots[c] = slotGrid(region, counts[c])
		return
	}

	horizontal := region.width() >= region.height()

	// Order clusters by centroid along the split axis. Ties fall back to
	// the other axis, then cluster index, so the ordering is total and
	// reproducible.
	sorted := append([]int(nil), clusters...)
	sort.SliceStable(sorted, func(a, b int) bool {
		ca, cb := centroids[sorted[a]], centroids[sorted[b]]
		if horizontal {
			if ca.X != cb.X {
				return ca.X < cb.X
			}
			if ca.Y != cb.Y {
				return ca.Y < cb.Y
			}
		} else {
			if ca.Y != cb.Y {
				return ca.Y < cb.Y
			}
			if ca.X != cb.X {
				return ca.X < cb.X
			}
		}
		return sorted[a] < sorted[b]
	})

	total := 0
	for _, c := range sorted {
		total += counts[c]
	}

	// Split the ordered clusters at the prefix closest to half the
	// population, keeping both sides non-empty.
	bestCut := 1
	bestDiff := math.MaxFloat64
	prefix := 0
	for i := 0; i < len(sorted)-1; i++ {
		prefix += counts[sorted[i]]
		if diff := math.Abs(float64(prefix) - float64(total)/2); diff < bestDiff {
			bestDiff = diff
			bestCut = i + 1
		}
	}

	left := sorted[:bestCut]
	right := sorted[bestCut:]
	leftPop := 0
	for _, c := range left {
		leftPop += counts[c]
	}
	frac := float64(leftPop) / float64(total)

	var leftRegion, rightRegion rect
	if horizontal {
		cut := region.x0 + frac*region.width()
		leftRegion = rect{region.x0, region.y0, cut, region.y1}
		rightRegion = rect{cut, region.y0, region.x1, region.y1}
	} else {
		cut := region.y0 + frac*region.height()
		leftRegion = rect{region.x0, region.y0, region.x1, cut}
		rightRegion = rect{region.x0, cut, region.x1, region.y1}
	}

	splitRegion(leftRegion, left, centroids, counts, slots)
	splitRegion(rightRegion, right, centroids, counts, slots)
}

// slotGrid lays out n slots on a near-square grid of cell centers inside
// region, row-major. The grid aspect follows the region aspect so slots
// spread evenly in both directions.
func slotGrid(region rect, n int) []pointset.Point {
	if n == 0 {
		return nil
	}

	w, h := region.width(), region.height()
	cols := int(math.Ceil(math.Sqrt(float64(n) * w / math.Max(h, 1e-12))))
	cols = max(1, min(cols, n))
	rows := (n + cols - 1) / cols

	cellW := w / float64(cols)
	cellH := h / float64(rows)

	out := make([]pointset.Point, 0, n)
	for r := 0; r < rows && len(out) < n; r++ {
		for c := 0; c < cols && len(out) < n; c++ {
			out = append(out, pointset.Point{
				X: region.x0 + (float64(c)+0.5)*cellW,
				Y: region.y0 + (float64(r)+0.5)*cellH,
			})
		}
	}
	return out
}
