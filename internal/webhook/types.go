package webhook

import (
	"time"

	"github.com/google/uuid"
)

type EventPayload struct {
	ID        uuid.UUID   `json:"id"`
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	SubjectID uuid.UUID   `json:"subject_id"`
	Timestamp time.Time   `json:"timestamp"`
}

type job struct {
	eventType string
	payload   []byte
}
