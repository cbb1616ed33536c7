package pointset

import (
	"math"
	"testing"
)

func TestPointClamp(t *testing.T) {
	tests := []struct {
		name string
		in   Point
		want Point
	}{
		{"inside", Point{0.5, 0.5}, Point{0.5, 0.5}},
		{"negative", Point{-0.2, 0.3}, Point{0, 0.3}},
		{"overshoot", Point{1.4, 1.01}, Point{1, 1}},
		{"corner", Point{-1, 2}, Point{0, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Clamp(); got != tt.want {
				t.Errorf("Clamp() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPointDist(t *testing.T) {
	a := Point{0, 0}
	b := Point{3, 4}
	if d := a.Dist(b); math.Abs(d-5) > 1e-12 {
		t.Errorf("Dist = %v, want 5", d)
	}
	if d := a.DistSq(b); math.Abs(d-25) > 1e-12 {
		t.Errorf("DistSq = %v, want 25", d)
	}
}

func TestPointSetCentroidAndBounds(t *testing.T) {
	ps := PointSet{{0, 0}, {1, 0}, {1, 1}, {0, 1}}

	c := ps.Centroid()
	if math.Abs(c.X-0.5) > 1e-12 || math.Abs(c.Y-0.5) > 1e-12 {
		t.Errorf("Centroid = %v, want (0.5, 0.5)", c)
	}

	lo, hi := ps.Bounds()
	if lo != (Point{0, 0}) || hi != (Point{1, 1}) {
		t.Errorf("Bounds = %v, %v", lo, hi)
	}
}

func TestPointSetClone(t *testing.T) {
	ps := PointSet{{0.1, 0.2}, {0.3, 0.4}}
	clone := ps.Clone()
	clone[0].X = 0.9
	if ps[0].X != 0.1 {
		t.Error("Clone should not share backing array")
	}

	if clone := PointSet(nil).Clone(); clone != nil {
		t.Error("Clone of nil should be nil")
	}
}

func TestPointSetDistinctCount(t *testing.T) {
	ps := PointSet{{0.5, 0.5}, {0.5, 0.5}, {0.2, 0.2}}
	if got := ps.DistinctCount(); got != 2 {
		t.Errorf("DistinctCount = %d, want 2", got)
	}
}

func TestLayerOriginals(t *testing.T) {
	l := Layer{Coords: PointSet{{0.5, 0.5}}}
	if got := l.Originals(); got[0] != (Point{0.5, 0.5}) {
		t.Errorf("Originals without CoordsOriginal = %v", got)
	}

	l.CoordsOriginal = PointSet{{0.1, 0.1}}
	if got := l.Originals(); got[0] != (Point{0.1, 0.1}) {
		t.Errorf("Originals with CoordsOriginal = %v", got)
	}
}

func TestMapValidate(t *testing.T) {
	valid := func() *Map {
		return &Map{
			Articles: Layer{
				Coords:  PointSet{{0.1, 0.1}, {0.9, 0.9}},
				Domains: []string{"biology", "history"},
			},
			Questions: Layer{Coords: PointSet{{0.5, 0.5}}},
		}
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("valid map rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Map)
	}{
		{"no articles", func(m *Map) { m.Articles.Coords = nil }},
		{"out of range", func(m *Map) { m.Articles.Coords[0] = Point{1.5, 0.5} }},
		{"domains mismatch", func(m *Map) { m.Articles.Domains = []string{"just-one"} }},
		{"originals mismatch", func(m *Map) { m.Articles.CoordsOriginal = PointSet{{0, 0}} }},
		{"labels mismatch", func(m *Map) { m.Questions.Labels = []string{"a", "b"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := valid()
			tt.mutate(m)
			if err := m.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}
