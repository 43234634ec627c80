package domain

import (
	"time"

	"github.com/google/uuid"
)

// Status is the outcome of a recognition attempt.
type Status string

const (
	StatusIdentified Status = "identified"
	StatusAmbiguous  Status = "ambiguous"
	StatusUnknown    Status = "unknown"
)

// Band is the coarse confidence tier of a recognition attempt.
type Band string

const (
	BandHigh   Band = "high"
	BandMedium Band = "medium"
	BandLow    Band = "low"
)

// Candidate is one scored person in a recognition event
type Candidate struct {
	PersonID uuid.UUID `json:"person_id"`
	Name     string    `json:"name"`
	Score    float64   `json:"score"`
}

// BoundingBox locates the primary face in the submitted frame.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// RecognitionEvent é o registro imutável de uma tentativa de reconhecimento.
// Só o resolvedor de desempate pode alterá-lo, uma única vez.
type RecognitionEvent struct {
	ID             uuid.UUID    `json:"event_id"`
	SessionID      uuid.UUID    `json:"session_id"`
	SubjectID      uuid.UUID    `json:"-"`
	Status         Status       `json:"status"`
	Band           Band         `json:"confidence_band"`
	TopScore       float64      `json:"confidence_score"`
	Gap            float64      `json:"gap"`
	WinnerPersonID *uuid.UUID   `json:"winner_person_id,omitempty"`
	WinnerName     string       `json:"recognized_name,omitempty"`
	Candidates     []Candidate  `json:"candidates"`
	NeedsTieBreak  bool         `json:"needs_tie_break"`
	Extractor      string       `json:"extractor,omitempty"`
	PrimaryFace    *BoundingBox `json:"primary_bbox,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	ResolvedAt     *time.Time   `json:"resolved_at,omitempty"`
}

// HasCandidate reports whether personID is among the event's candidates.
func (e *RecognitionEvent) HasCandidate(personID uuid.UUID) (Candidate, bool) {
	for _, c := range e.Candidates {
		if c.PersonID == personID {
			return c, true
		}
	}
	return Candidate{}, false
}

// Lifecycle notifications published for recognition events.
const (
	EventRecognitionCompleted = "recognition.completed"
	EventRecognitionResolved  = "recognition.resolved"
)
