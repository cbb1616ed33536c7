package flatten

import (
	"fmt"
)

// Params controls a flatten run.
//
// All parameters are validated before any computation begins; invalid values
// are rejected with an [InvalidParameterError] naming the offending field.
type Params struct {
	// Mu is the interpolation strength between the original layout (0)
	// and the fully-redistributed layout (1).
	Mu float64

	// ClusterCount is the number of local density neighborhoods the
	// primary points are partitioned into. Must be positive and at most
	// the number of primary points.
	ClusterCount int

	// NeighborK is the number of nearest primary points used to
	// interpolate displacements for secondary points. Must be positive.
	NeighborK int

	// Margin is the fractional inset of the target layout from the unit
	// square edges. Must be in [0, 0.5).
	Margin float64

	// Seed drives all randomized steps (cluster initialization). The same
	// seed and inputs always produce identical output.
	Seed uint64
}

// Default parameter values.
const (
	DefaultMu           = 0.75
	DefaultClusterCount = 20
	DefaultNeighborK    = 8
	DefaultMargin       = 0.02
	DefaultSeed         = uint64(42)
)

// DefaultParams returns the parameters used by the pipeline when the caller
// does not override them.
func DefaultParams() Params {
	return Params{
		Mu:           DefaultMu,
		ClusterCount: DefaultClusterCount,
		NeighborK:    DefaultNeighborK,
		Margin:       DefaultMargin,
		Seed:         DefaultSeed,
	}
}

// Validate checks parameter ranges. n is the number of primary points.
func (p Params) Validate(n int) error {
	if p.Mu < 0 || p.Mu > 1 {
		return &InvalidParameterError{Field: "mu", Value: p.Mu, Constraint: "must be in [0,1]"}
	}
	if p.ClusterCount <= 0 {
		return &InvalidParameterError{Field: "cluster_count", Value: p.ClusterCount, Constraint: "must be positive"}
	}
	if p.ClusterCount > n {
		return &InvalidParameterError{
			Field:      "cluster_count",
			Value:      p.ClusterCount,
			Constraint: fmt.Sprintf("must not exceed the number of primary points (%d)", n),
		}
	}
	if p.NeighborK <= 0 {
		return &InvalidParameterError{Field: "neighbor_k", Value: p.NeighborK, Constraint: "must be positive"}
	}
	if p.Margin < 0 || p.Margin >= 0.5 {
		return &InvalidParameterError{Field: "margin", Value: p.Margin, Constraint: "must be in [0, 0.5)"}
	}
	return nil
}

// InvalidParameterError reports a parameter that failed validation.
// Field names match the serialized parameter names (mu, cluster_count,
// neighbor_k, margin, seed).
type InvalidParameterError struct {
	Field      string
	Value      any
	Constraint string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %s=%v: %s", e.Field, e.Value, e.Constraint)
}

// DegenerateInputError reports input that is structurally valid but cannot
// be partitioned into the requested number of non-empty clusters (e.g.,
// fewer distinct coordinates than cluster_count). Callers should reduce
// cluster_count or deduplicate the input.
type DegenerateInputError struct {
	Distinct     int
	ClusterCount int
}

func (e *DegenerateInputError) Error() string {
	return fmt.Sprintf("degenerate input: %d distinct coordinates cannot fill %d clusters", e.Distinct, e.ClusterCount)
}
