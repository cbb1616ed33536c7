// Package project reduces high-dimensional embedding vectors to 2D
// coordinates in the unit square.
package project

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/maplab/flatland/pkg/errors"
	"github.com/maplab/flatland/pkg/pointset"
)

// Projector reduces vectors to 2D points.
type Projector interface {
	// Project maps each input vector to a point in [0,1]². All vectors
	// must share the same dimension.
	Project(vectors [][]float64) (pointset.PointSet, error)
}

// =============================================================================
// PCA Projector
// =============================================================================

// PCAProjector projects onto the two leading principal components and
// min-max normalizes the result into the unit square.
type PCAProjector struct{}

// NewPCAProjector creates the default projector.
func NewPCAProjector() *PCAProjector {
	return &PCAProjector{}
}

// Project implements Projector.
func (PCAProjector) Project(vectors [][]float64) (pointset.PointSet, error) {
	n := len(vectors)
	if n == 0 {
		return pointset.PointSet{}, nil
	}

	dim := len(vectors[0])
	if dim < 2 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "vectors must have at least 2 dimensions")
	}
	for i, vec := range vectors {
		if len(vec) != dim {
			return nil, errors.New(errors.ErrCodeInvalidInput,
				"inconsistent vector dimensions: vector %d has %d, expected %d", i, len(vec), dim)
		}
	}

	// PCA needs more samples than components.
	if n < 3 {
		return normalize(padTo2D(vectors)), nil
	}

	data := mat.NewDense(n, dim, nil)
	for i, vec := range vectors {
		data.SetRow(i, vec)
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(data, nil); !ok {
		return nil, errors.New(errors.ErrCodeInternal, "principal component decomposition failed")
	}

	var vecs mat.Dense
	pc.VectorsTo(&vecs)

	// Center the data before projecting onto the leading components.
	means := make([]float64, dim)
	for j := 0; j < dim; j++ {
		col := mat.Col(nil, j, data)
		for _, v := range col {
			means[j] += v
		}
		means[j] /= float64(n)
	}
	centered := mat.NewDense(n, dim, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < dim; j++ {
			centered.Set(i, j, data.At(i, j)-means[j])
		}
	}

	var projected mat.Dense
	projected.Mul(centered, vecs.Slice(0, dim, 0, 2))

	points := make(pointset.PointSet, n)
	for i := range points {
		points[i] = pointset.Point{X: projected.At(i, 0), Y: projected.At(i, 1)}
	}
	return normalize(points), nil
}

// padTo2D takes the first two coordinates of each vector directly.
func padTo2D(vectors [][]float64) pointset.PointSet {
	points := make(pointset.PointSet, len(vectors))
	for i, vec := range vectors {
		points[i] = pointset.Point{X: vec[0], Y: vec[1]}
	}
	return points
}

// normalize min-max scales points into the unit square in place. Axes
// without spread collapse to the center line.
func normalize(points pointset.PointSet) pointset.PointSet {
	if len(points) == 0 {
		return points
	}

	lo, hi := points.Bounds()
	spanX := hi.X - lo.X
	spanY := hi.Y - lo.Y

	for i, p := range points {
		if spanX > 0 {
			points[i].X = (p.X - lo.X) / spanX
		} else {
			points[i].X = 0.5
		}
		if spanY > 0 {
			points[i].Y = (p.Y - lo.Y) / spanY
		} else {
			points[i].Y = 0.5
		}
	}
	return points
}
