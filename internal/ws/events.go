package ws

import (
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/recall/internal/domain"
)

type EventType string

const (
	EventRecognitionCompleted EventType = domain.EventRecognitionCompleted
	EventRecognitionResolved  EventType = domain.EventRecognitionResolved
)

type Event struct {
	SubjectID uuid.UUID   `json:"-"`
	Type      EventType   `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}
