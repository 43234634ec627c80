package embedding

import (
	"gonum.org/v1/gonum/floats"
)

// Centroid returns the unit-normalized arithmetic mean of samples.
//
// The result is absent (ok=false) when samples is empty, when the
// dimensions disagree, or when the mean cancels out to zero magnitude.
// Absent samples (nil) must be filtered out by the caller.
func Centroid(samples []Vector) (Vector, bool) {
	if len(samples) == 0 {
		return nil, false
	}

	dim := samples[0].Dim()
	if dim == 0 {
		return nil, false
	}

	sum := make([]float64, dim)
	for _, s := range samples {
		if s.Dim() != dim {
			return nil, false
		}
		floats.Add(sum, s)
	}
	floats.Scale(1/float64(len(samples)), sum)

	return Normalize(sum)
}
