package clustergraph

import (
	"errors"
	"math/rand/v2"
	"strconv"
	"strings"
	"testing"

	"github.com/maplab/flatland/pkg/flatten"
	"github.com/maplab/flatland/pkg/pointset"
)

func testPoints(n int, seed uint64) pointset.PointSet {
	rng := rand.New(rand.NewPCG(seed, seed^1))
	points := make(pointset.PointSet, n)
	for i := range points {
		points[i] = pointset.Point{X: rng.Float64(), Y: rng.Float64()}
	}
	return points
}

func TestBuild(t *testing.T) {
	points := testPoints(300, 1)

	g, err := Build(points, 10, 42)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if len(g.Nodes) != 10 {
		t.Fatalf("len(Nodes) = %d, want 10", len(g.Nodes))
	}
	total := 0
	for _, n := range g.Nodes {
		if n.Size == 0 {
			t.Errorf("node %d has no members", n.ID)
		}
		if !n.Centroid.InUnitSquare() {
			t.Errorf("node %d centroid %v outside unit square", n.ID, n.Centroid)
		}
		total += n.Size
	}
	if total != 300 {
		t.Errorf("sizes sum to %d, want 300", total)
	}

	if len(g.Edges) == 0 {
		t.Error("no edges")
	}
	for _, e := range g.Edges {
		if e.From >= e.To {
			t.Errorf("edge %+v not normalized", e)
		}
		if e.Dist <= 0 {
			t.Errorf("edge %+v has non-positive distance", e)
		}
	}
}

func TestBuildDeterministic(t *testing.T) {
	points := testPoints(200, 2)

	a, err := Build(points, 8, 7)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Build(points, 8, 7)
	if err != nil {
		t.Fatal(err)
	}

	if len(a.Nodes) != len(b.Nodes) || len(a.Edges) != len(b.Edges) {
		t.Fatal("graph shape differs across identical builds")
	}
	for i := range a.Nodes {
		if a.Nodes[i] != b.Nodes[i] {
			t.Fatalf("node %d differs", i)
		}
	}
	for i := range a.Edges {
		if a.Edges[i] != b.Edges[i] {
			t.Fatalf("edge %d differs", i)
		}
	}
}

func TestBuildDegenerateInput(t *testing.T) {
	points := make(pointset.PointSet, 50)
	for i := range points {
		points[i] = pointset.Point{X: 0.5, Y: 0.5}
	}

	_, err := Build(points, 10, 42)
	var degenerate *flatten.DegenerateInputError
	if !errors.As(err, &degenerate) {
		t.Fatalf("error = %v, want DegenerateInputError", err)
	}
}

func TestBuildInvalidParams(t *testing.T) {
	_, err := Build(testPoints(5, 3), 10, 42)
	var invalid *flatten.InvalidParameterError
	if !errors.As(err, &invalid) {
		t.Fatalf("error = %v, want InvalidParameterError", err)
	}
}

func TestToDOT(t *testing.T) {
	g, err := Build(testPoints(100, 4), 5, 42)
	if err != nil {
		t.Fatal(err)
	}

	dot := ToDOT(g)
	if !strings.HasPrefix(dot, "graph clusters {") {
		t.Errorf("unexpected DOT prefix: %q", dot[:min(40, len(dot))])
	}
	for _, n := range g.Nodes {
		if !strings.Contains(dot, "label=\""+strconv.Itoa(n.ID)) {
			t.Errorf("node %d missing from DOT", n.ID)
		}
	}
	if !strings.Contains(dot, " -- ") {
		t.Error("no edges in DOT output")
	}
}
