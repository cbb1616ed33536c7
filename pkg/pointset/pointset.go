// Package pointset defines the canonical data model for knowledge maps.
//
// A map consists of two layers of 2D points in the unit square: articles
// (the primary layer, which drives density flattening) and questions (the
// secondary layer, carried along through the same warp). Points are
// identified positionally: index i in a layer's coordinate slice refers to
// the same item before and after any transform.
//
// The Map document replaces the original pipeline's loosely-keyed pickled
// dicts with an explicit typed record. Both the active coordinates and the
// original (pre-flatten) coordinates are kept, so re-running the flattener
// with a different strength never needs to re-run the upstream projection.
package pointset

import "math"

// Point is a 2D coordinate. Map coordinates live in [0,1] x [0,1].
type Point struct {
	X float64 `json:"x" bson:"x"`
	Y float64 `json:"y" bson:"y"`
}

// Sub returns the component-wise difference p - q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Add returns the component-wise sum p + q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Scale returns p scaled by s.
func (p Point) Scale(s float64) Point {
	return Point{X: p.X * s, Y: p.Y * s}
}

// Dist returns the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 {
	dx := p.X - q.X
	dy := p.Y - q.Y
	return math.Hypot(dx, dy)
}

// DistSq returns the squared Euclidean distance between p and q.
func (p Point) DistSq(q Point) float64 {
	dx := p.X - q.X
	dy := p.Y - q.Y
	return dx*dx + dy*dy
}

// Clamp returns p with both components clamped to [0,1].
func (p Point) Clamp() Point {
	return Point{
		X: math.Min(1, math.Max(0, p.X)),
		Y: math.Min(1, math.Max(0, p.Y)),
	}
}

// InUnitSquare reports whether p lies within [0,1] x [0,1].
func (p Point) InUnitSquare() bool {
	return p.X >= 0 && p.X <= 1 && p.Y >= 0 && p.Y <= 1
}

// PointSet is an ordered sequence of points. Index is identity.
type PointSet []Point

// Clone returns a deep copy of the point set.
func (ps PointSet) Clone() PointSet {
	if ps == nil {
		return nil
	}
	out := make(PointSet, len(ps))
	copy(out, ps)
	return out
}

// InUnitSquare reports whether every point lies within [0,1] x [0,1].
func (ps PointSet) InUnitSquare() bool {
	for _, p := range ps {
		if !p.InUnitSquare() {
			return false
		}
	}
	return true
}

// Clamp clamps every point to the unit square in place.
func (ps PointSet) Clamp() {
	for i, p := range ps {
		ps[i] = p.Clamp()
	}
}

// Centroid returns the mean position of the set.
// Returns the origin for an empty set.
func (ps PointSet) Centroid() Point {
	if len(ps) == 0 {
		return Point{}
	}
	var sx, sy float64
	for _, p := range ps {
		sx += p.X
		sy += p.Y
	}
	n := float64(len(ps))
	return Point{X: sx / n, Y: sy / n}
}

// Bounds returns the axis-aligned bounding box of the set as (min, max).
// Returns the origin twice for an empty set.
func (ps PointSet) Bounds() (Point, Point) {
	if len(ps) == 0 {
		return Point{}, Point{}
	}
	lo := ps[0]
	hi := ps[0]
	for _, p := range ps[1:] {
		lo.X = math.Min(lo.X, p.X)
		lo.Y = math.Min(lo.Y, p.Y)
		hi.X = math.Max(hi.X, p.X)
		hi.Y = math.Max(hi.Y, p.Y)
	}
	return lo, hi
}

// DistinctCount returns the number of distinct coordinate values in the set.
// Used to detect degenerate inputs before clustering.
func (ps PointSet) DistinctCount() int {
	seen := make(map[Point]struct{}, len(ps))
	for _, p := range ps {
		seen[p] = struct{}{}
	}
	return len(seen)
}
