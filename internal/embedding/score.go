package embedding

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// MaxScore caps reported similarity so a perfect match is never shown as certainty.
const MaxScore = 0.99

// Cosine returns the dot product of two unit vectors, clamped to [-1, 1]
// to absorb rounding drift.
func Cosine(a, b Vector) float64 {
	raw := floats.Dot(a, b)
	return math.Max(-1, math.Min(1, raw))
}

// Score maps the cosine similarity of two unit vectors onto [0, MaxScore]
// with clamp((raw+1)/2, 0, MaxScore).
//
// ok is false when either vector is absent or their dimensions differ; the
// caller must then exclude the reference instead of treating it as a zero score.
func Score(probe, reference Vector) (float64, bool) {
	if len(probe) == 0 || len(reference) == 0 || len(probe) != len(reference) {
		return 0, false
	}

	score := (Cosine(probe, reference) + 1) / 2
	if math.IsNaN(score) {
		return 0, false
	}

	return math.Max(0, math.Min(MaxScore, score)), true
}
