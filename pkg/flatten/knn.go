package flatten

import (
	"github.com/maplab/flatland/pkg/pointset"
)

// neighbor is a candidate primary point for interpolation.
type neighbor struct {
	idx  int
	dist float64
}

// interpolateSecondary warps secondary points by applying the
// inverse-distance weighted average of the displacement vectors of each
// point's k nearest primary points (distances measured against the
// primary points' original coordinates).
//
// A secondary point coincident with a primary point receives that point's
// displacement exactly; equidistant neighbors share weight evenly (equal
// distances produce equal inverse-distance weights).
func interpolateSecondary(secondary, primaryOrig pointset.PointSet, displacements []pointset.Point, k int) pointset.PointSet {
	if len(secondary) == 0 {
		return pointset.PointSet{}
	}
	if k > len(primaryOrig) {
		k = len(primaryOrig)
	}

	out := make(pointset.PointSet, len(secondary))
	nearest := make([]neighbor, 0, k+1)

	for si, s := range secondary {
		nearest = nearest[:0]
		for pi, p := range primaryOrig {
			d := s.Dist(p)
			nearest = insertNeighbor(nearest, neighbor{idx: pi, dist: d}, k)
		}
		out[si] = s.Add(weightedDisplacement(nearest, displacements)).Clamp()
	}
	return out
}

// insertNeighbor keeps the k nearest candidates in ascending distance
// order. Ties keep the lower primary index first, so neighbor selection is
// reproducible.
func insertNeighbor(nearest []neighbor, cand neighbor, k int) []neighbor {
	pos := len(nearest)
	for pos > 0 {
		prev := nearest[pos-1]
		if prev.dist < cand.dist || (prev.dist == cand.dist && prev.idx < cand.idx) {
			break
		}
		pos--
	}
	if pos == k {
		return nearest
	}

	nearest = append(nearest, neighbor{})
	copy(nearest[pos+1:], nearest[pos:])
	nearest[pos] = cand
	if len(nearest) > k {
		nearest = nearest[:k]
	}
	return nearest
}

// weightedDisplacement combines neighbor displacements with inverse-distance
// weights. Zero-distance neighbors dominate: the result is the plain average
// of all coincident neighbors' displacements.
func weightedDisplacement(nearest []neighbor, displacements []pointset.Point) pointset.Point {
	var coincident []neighbor
	for _, nb := range nearest {
		if nb.dist == 0 {
			coincident = append(coincident, nb)
		}
	}

	if len(coincident) > 0 {
		var sum pointset.Point
		for _, nb := range coincident {
			sum = sum.Add(displacements[nb.idx])
		}
		return sum.Scale(1 / float64(len(coincident)))
	}

	var sum pointset.Point
	var totalWeight float64
	for _, nb := range nearest {
		w := 1 / nb.dist
		sum = sum.Add(displacements[nb.idx].Scale(w))
		totalWeight += w
	}
	if totalWeight == 0 {
		return pointset.Point{}
	}
	return sum.Scale(1 / totalWeight)
}
