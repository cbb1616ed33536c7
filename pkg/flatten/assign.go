package flatten

import (
	"math"
	"sort"

	"github.com/maplab/flatland/pkg/pointset"
)

// Assigner solves the one-to-one mapping between a cluster's points and its
// target slots, minimizing total squared displacement. Implementations must
// be deterministic: equal-cost assignments resolve to whichever mapping the
// solver's fixed scan order discovers first.
//
// Assign expects len(src) == len(dst) and returns perm where perm[i] is the
// index of the slot assigned to src[i].
type Assigner interface {
	Assign(src, dst []pointset.Point) []int
}

// exactAssignLimit is the cluster size above which AutoAssigner switches
// from the exact Hungarian solver to the greedy solver. The Hungarian
// algorithm is cubic, so beyond a few hundred points per cluster the exact
// solve dominates the whole flatten run.
const exactAssignLimit = 256

// AutoAssigner solves small clusters exactly and large clusters greedily.
type AutoAssigner struct {
	exact  HungarianAssigner
	greedy GreedyAssigner
}

// NewAutoAssigner creates the default assigner.
func NewAutoAssigner() *AutoAssigner {
	return &AutoAssigner{greedy: GreedyAssigner{Sweeps: 8}}
}

// Assign dispatches on cluster size.
func (a *AutoAssigner) Assign(src, dst []pointset.Point) []int {
	if len(src) <= exactAssignLimit {
		return a.exact.Assign(src, dst)
	}
	return a.greedy.Assign(src, dst)
}

// =============================================================================
// Hungarian - Exact Assignment
// =============================================================================

// HungarianAssigner solves the assignment exactly with the Hungarian
// algorithm (potentials formulation, O(n³)).
type HungarianAssigner struct{}

// Assign returns the minimum-cost perfect matching under squared
// Euclidean distance.
func (HungarianAssigner) Assign(src, dst []pointset.Point) []int {
	n := len(src)
	if n == 0 {
		return nil
	}
	if n == 1 {
		return []int{0}
	}

	cost := make([][]float64, n)
	for i := range cost {
		cost[i] = make([]float64, n)
		for j := range cost[i] {
			cost[i][j] = src[i].DistSq(dst[j])
		}
	}
	return hungarian(cost)
}

// hungarian computes a minimum-cost assignment for a square cost matrix.
// Rows and columns are 1-indexed internally; index 0 is the virtual source.
func hungarian(cost [][]float64) []int {
	n := len(cost)
	u := make([]float64, n+1)
	v := make([]float64, n+1)
	p := make([]int, n+1)   // p[j] = row matched to column j
	way := make([]int, n+1) // predecessor column on the alternating path

	for i := 1; i <= n; i++ {
		p[0] = i
		j0 := 0
		minv := make([]float64, n+1)
		used := make([]bool, n+1)
		for j := range minv {
			minv[j] = math.Inf(1)
		}

		for {
			used[j0] = true
			i0 := p[j0]
			delta := math.Inf(1)
			j1 := 0

			for j := 1; j <= n; j++ {
				if used[j] {
					continue
				}
				cur := cost[i0-1][j-1] - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}

			for j := 0; j <= n; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}

			j0 = j1
			if p[j0] == 0 {
				break
			}
		}

		// Augment along the alternating path back to the source.
		for j0 != 0 {
			j1 := way[j0]
			p[j0] = p[j1]
			j0 = j1
		}
	}

	perm := make([]int, n)
	for j := 1; j <= n; j++ {
		perm[p[j]-1] = j - 1
	}
	return perm
}

// =============================================================================
// Greedy - Approximate Assignment
// =============================================================================

// GreedyAssigner builds an initial spatially-ordered matching and improves
// it with pairwise swap sweeps. Quadratic per sweep, which keeps large
// clusters tractable at a small cost in total displacement.
type GreedyAssigner struct {
	// Sweeps bounds the improvement passes (default: 8). Each sweep
	// visits all pairs once; sweeps stop early when no swap helps.
	Sweeps int
}

// Assign returns an approximately minimal matching.
func (g GreedyAssigner) Assign(src, dst []pointset.Point) []int {
	n := len(src)
	if n == 0 {
		return nil
	}

	// Initial matching: pair the i-th point and i-th slot in row-major
	// order. Slots already come row-major from the target grid; ordering
	// the points the same way gives a coherent starting matching.
	srcOrder := spatialOrder(src)
	dstOrder := spatialOrder(dst)

	perm := make([]int, n)
	for i := range srcOrder {
		perm[srcOrder[i]] = dstOrder[i]
	}

	sweeps := g.Sweeps
	if sweeps <= 0 {
		sweeps = 8
	}

	// Pairwise improvement: swap two points' slots whenever that lowers
	// the combined squared displacement.
	for s := 0; s < sweeps; s++ {
		improved := false
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				cur := src[i].DistSq(dst[perm[i]]) + src[j].DistSq(dst[perm[j]])
				swapped := src[i].DistSq(dst[perm[j]]) + src[j].DistSq(dst[perm[i]])
				if swapped < cur {
					perm[i], perm[j] = perm[j], perm[i]
					improved = true
				}
			}
		}
		if !improved {
			break
		}
	}

	return perm
}

// spatialOrder returns point indices sorted row-major (y, then x, then
// index for full determinism).
func spatialOrder(points []pointset.Point) []int {
	order := make([]int, len(points))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		pa, pb := points[order[a]], points[order[b]]
		if pa.Y != pb.Y {
			return pa.Y < pb.Y
		}
		if pa.X != pb.X {
			return pa.X < pb.X
		}
		return order[a] < order[b]
	})
	return order
}

// Ensure implementations satisfy Assigner.
var (
	_ Assigner = (*AutoAssigner)(nil)
	_ Assigner = HungarianAssigner{}
	_ Assigner = GreedyAssigner{}
)
