package flatten

import (
	"math"
	"testing"

	"github.com/maplab/flatland/pkg/pointset"
)

func TestInsertNeighborKeepsOrder(t *testing.T) {
	var nearest []neighbor
	for _, cand := range []neighbor{
		{idx: 0, dist: 0.5},
		{idx: 1, dist: 0.2},
		{idx: 2, dist: 0.8},
		{idx: 3, dist: 0.1},
		{idx: 4, dist: 0.3},
	} {
		nearest = insertNeighbor(nearest, cand, 3)
	}

	if len(nearest) != 3 {
		t.Fatalf("len = %d, want 3", len(nearest))
	}
	want := []int{3, 1, 4}
	for i, n := range nearest {
		if n.idx != want[i] {
			t.Errorf("nearest[%d].idx = %d, want %d", i, n.idx, want[i])
		}
		if i > 0 && nearest[i-1].dist > n.dist {
			t.Errorf("distances out of order at %d", i)
		}
	}
}

func TestInsertNeighborTieBreaksOnIndex(t *testing.T) {
	var nearest []neighbor
	nearest = insertNeighbor(nearest, neighbor{idx: 5, dist: 0.4}, 2)
	nearest = insertNeighbor(nearest, neighbor{idx: 2, dist: 0.4}, 2)
	nearest = insertNeighbor(nearest, neighbor{idx: 9, dist: 0.4}, 2)

	if nearest[0].idx != 2 || nearest[1].idx != 5 {
		t.Errorf("tie-break order = [%d %d], want [2 5]", nearest[0].idx, nearest[1].idx)
	}
}

func TestWeightedDisplacementInverseDistance(t *testing.T) {
	displacements := []pointset.Point{
		{X: 1, Y: 0},
		{X: 0, Y: 1},
	}
	// The closer neighbor gets twice the weight of the farther one.
	nearest := []neighbor{
		{idx: 0, dist: 0.1},
		{idx: 1, dist: 0.2},
	}

	got := weightedDisplacement(nearest, displacements)
	wantX := (1.0 / 0.1) / (1.0/0.1 + 1.0/0.2)
	wantY := (1.0 / 0.2) / (1.0/0.1 + 1.0/0.2)
	if math.Abs(got.X-wantX) > 1e-12 || math.Abs(got.Y-wantY) > 1e-12 {
		t.Errorf("got %v, want {%v %v}", got, wantX, wantY)
	}
}

func TestWeightedDisplacementCoincident(t *testing.T) {
	displacements := []pointset.Point{
		{X: 0.2, Y: 0.0},
		{X: 0.4, Y: 0.0},
		{X: 100, Y: 100},
	}
	// Two neighbors at distance zero dominate; the far one is ignored.
	nearest := []neighbor{
		{idx: 0, dist: 0},
		{idx: 1, dist: 0},
		{idx: 2, dist: 0.3},
	}

	got := weightedDisplacement(nearest, displacements)
	if math.Abs(got.X-0.3) > 1e-12 || math.Abs(got.Y) > 1e-12 {
		t.Errorf("got %v, want {0.3 0}", got)
	}
}

func TestInterpolateSecondaryClampsOutput(t *testing.T) {
	primary := pointset.PointSet{{X: 0.95, Y: 0.95}}
	displacements := []pointset.Point{{X: 0.2, Y: 0.2}}
	secondary := pointset.PointSet{{X: 0.99, Y: 0.99}}

	out := interpolateSecondary(secondary, primary, displacements, 1)
	if !out.InUnitSquare() {
		t.Errorf("output %v escapes unit square", out[0])
	}
	if out[0].X != 1 || out[0].Y != 1 {
		t.Errorf("output = %v, want clamped to {1 1}", out[0])
	}
}

func TestInterpolateSecondaryKExceedsPrimary(t *testing.T) {
	primary := pointset.PointSet{{X: 0.2, Y: 0.2}, {X: 0.8, Y: 0.8}}
	displacements := []pointset.Point{{X: 0.1, Y: 0}, {X: -0.1, Y: 0}}
	secondary := pointset.PointSet{{X: 0.5, Y: 0.5}}

	// k larger than the primary set degrades to using all primaries.
	out := interpolateSecondary(secondary, primary, displacements, 10)
	if len(out) != 1 {
		t.Fatalf("len = %d, want 1", len(out))
	}
	// Both neighbors are equidistant, so their displacements cancel.
	if math.Abs(out[0].X-0.5) > 1e-12 || math.Abs(out[0].Y-0.5) > 1e-12 {
		t.Errorf("out = %v, want {0.5 0.5}", out[0])
	}
}

func TestInterpolateSecondaryEmpty(t *testing.T) {
	primary := pointset.PointSet{{X: 0.2, Y: 0.2}}
	displacements := []pointset.Point{{X: 0.1, Y: 0}}

	out := interpolateSecondary(nil, primary, displacements, 4)
	if len(out) != 0 {
		t.Errorf("len = %d, want 0", len(out))
	}
}
