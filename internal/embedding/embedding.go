// Package embedding holds the vector arithmetic used by the matching engine:
// unit normalization, centroid aggregation and bounded similarity scoring.
//
// Every function that could divide by a zero magnitude reports ok=false
// instead, so NaN or Inf never leave this package.
package embedding

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// UnitTolerance is the maximum deviation from magnitude 1.0 accepted for a
// vector to count as normalized.
const UnitTolerance = 1e-6

// Vector is a fixed-length embedding. A nil Vector means "absent".
type Vector []float64

// Dim returns the vector dimensionality.
func (v Vector) Dim() int {
	return len(v)
}

// Clone returns a copy that does not share the backing array.
func (v Vector) Clone() Vector {
	if v == nil {
		return nil
	}
	out := make(Vector, len(v))
	copy(out, v)
	return out
}

// Magnitude returns the L2 norm of v.
func (v Vector) Magnitude() float64 {
	if len(v) == 0 {
		return 0
	}
	return floats.Norm(v, 2)
}

// IsUnit reports whether v is a finite vector of magnitude 1 within UnitTolerance.
func (v Vector) IsUnit() bool {
	if len(v) == 0 || !finite(v) {
		return false
	}
	return math.Abs(v.Magnitude()-1) <= UnitTolerance
}

// Normalize scales v to unit length. It returns ok=false for empty,
// zero-magnitude or non-finite input. The input is not modified.
func Normalize(v []float64) (Vector, bool) {
	if len(v) == 0 || !finite(v) {
		return nil, false
	}

	norm := floats.Norm(v, 2)
	if norm == 0 || math.IsInf(norm, 0) {
		return nil, false
	}

	out := make(Vector, len(v))
	floats.ScaleTo(out, 1/norm, v)
	return out, true
}

// FromFloat32 widens a float32 slice, as stored by pgvector.
func FromFloat32(v []float32) Vector {
	if v == nil {
		return nil
	}
	out := make(Vector, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

// Float32 narrows v for pgvector storage.
func (v Vector) Float32() []float32 {
	if v == nil {
		return nil
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

func finite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
