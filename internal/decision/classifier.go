package decision

import (
	"fmt"
	"sort"

	"github.com/saturnino-fabrica-de-software/recall/internal/domain"
)

// DefaultCandidateLimit is how many ranked candidates an event keeps.
const DefaultCandidateLimit = 3

// Decision is the classifier output for a single recognition attempt.
type Decision struct {
	Status        domain.Status
	Band          domain.Band
	Winner        *domain.Candidate
	NeedsTieBreak bool
	TopScore      float64
	Gap           float64
	Candidates    []domain.Candidate
}

// Rank returns a copy of candidates sorted by score descending. Equal scores
// keep their input order, so callers must pass people in registration order.
func Rank(candidates []domain.Candidate) []domain.Candidate {
	ranked := make([]domain.Candidate, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

// Classifier applies the decision rules with one set of thresholds.
type Classifier struct {
	thresholds Thresholds
	limit      int
}

// NewClassifier validates thresholds. A non-positive candidateLimit falls
// back to DefaultCandidateLimit.
func NewClassifier(thresholds Thresholds, candidateLimit int) (*Classifier, error) {
	if err := thresholds.Validate(); err != nil {
		return nil, fmt.Errorf("classifier: %w", err)
	}
	if candidateLimit <= 0 {
		candidateLimit = DefaultCandidateLimit
	}
	return &Classifier{thresholds: thresholds, limit: candidateLimit}, nil
}

// Thresholds returns the thresholds the classifier was built with.
func (c *Classifier) Thresholds() Thresholds {
	return c.thresholds
}

// Classify expects ranked to already be ordered by Rank. probePresent is false
// when no embedding could be extracted from the submitted frame, in which case
// ranked is ignored.
func (c *Classifier) Classify(probePresent bool, ranked []domain.Candidate) Decision {
	if !probePresent || len(ranked) == 0 {
		return Decision{
			Status:     domain.StatusUnknown,
			Band:       domain.BandLow,
			Candidates: []domain.Candidate{},
		}
	}

	top := ranked[0]
	gap := top.Score
	if len(ranked) > 1 {
		gap = top.Score - ranked[1].Score
	}

	d := Decision{
		TopScore:   top.Score,
		Gap:        gap,
		Candidates: c.capped(ranked),
	}

	switch {
	case top.Score >= c.thresholds.High && gap >= c.thresholds.MinGap:
		winner := top
		d.Status = domain.StatusIdentified
		d.Band = domain.BandHigh
		d.Winner = &winner
	case top.Score >= c.thresholds.Medium:
		// a lone candidate stays ambiguous but has nobody to be tie-broken against
		d.Status = domain.StatusAmbiguous
		d.Band = domain.BandMedium
		d.NeedsTieBreak = len(ranked) > 1
	default:
		d.Status = domain.StatusUnknown
		d.Band = domain.BandLow
	}

	return d
}

func (c *Classifier) capped(ranked []domain.Candidate) []domain.Candidate {
	n := len(ranked)
	if n > c.limit {
		n = c.limit
	}
	out := make([]domain.Candidate, n)
	copy(out, ranked[:n])
	return out
}
