// Package decision turns ranked candidate scores into a recognition outcome
// and resolves ambiguous outcomes once a human has picked the right person.
package decision

import (
	"fmt"
	"math"
)

// Thresholds calibrate the classifier for one scoring scale.
type Thresholds struct {
	High   float64
	Medium float64
	MinGap float64
}

// DefaultThresholds is calibrated for the (cos+1)/2 scale, where unrelated
// faces sit around 0.5.
func DefaultThresholds() Thresholds {
	return Thresholds{
		High:   0.85,
		Medium: 0.70,
		MinGap: 0.08,
	}
}

// Validate reports the first non-finite threshold in high, medium, min gap
// order, then range and ordering problems.
func (t Thresholds) Validate() error {
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"high", t.High},
		{"medium", t.Medium},
		{"min gap", t.MinGap},
	} {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("%s threshold must be finite", f.name)
		}
	}
	if t.Medium < 0 || t.High > 1 {
		return fmt.Errorf("thresholds must be within [0, 1]: medium=%.3f high=%.3f", t.Medium, t.High)
	}
	if t.Medium > t.High {
		return fmt.Errorf("medium threshold %.3f exceeds high threshold %.3f", t.Medium, t.High)
	}
	if t.MinGap < 0 {
		return fmt.Errorf("min gap must not be negative: %.3f", t.MinGap)
	}
	return nil
}
