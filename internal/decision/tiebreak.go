package decision

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/recall/internal/domain"
)

var (
	errNotPending    = errors.New("event is not awaiting a tie-break")
	errNotACandidate = errors.New("selected person is not among the event candidates")
)

// Resolve promotes an ambiguous event to identified with the selected person
// as winner. Candidates, scores, top score and gap are left untouched. The
// returned event no longer needs a tie-break, so resolving it again fails.
func Resolve(event domain.RecognitionEvent, selected uuid.UUID) (domain.RecognitionEvent, error) {
	if !event.NeedsTieBreak || event.ResolvedAt != nil {
		return domain.RecognitionEvent{}, domain.ErrInvalidTieBreak.WithError(errNotPending)
	}

	winner, ok := event.HasCandidate(selected)
	if !ok {
		return domain.RecognitionEvent{}, domain.ErrInvalidTieBreak.
			WithStatus(http.StatusUnprocessableEntity).
			WithError(errNotACandidate)
	}

	resolved := event
	resolved.Candidates = append([]domain.Candidate(nil), event.Candidates...)
	resolved.Status = domain.StatusIdentified
	resolved.Band = domain.BandHigh
	resolved.NeedsTieBreak = false
	resolved.WinnerPersonID = &winner.PersonID
	resolved.WinnerName = winner.Name

	now := time.Now().UTC()
	resolved.ResolvedAt = &now

	return resolved, nil
}
