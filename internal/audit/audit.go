package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// EventType defines the type of auditable event
type EventType string

const (
	EventRecognitionSubmitted EventType = "RECOGNITION_SUBMITTED"
	EventTieBreakResolved     EventType = "TIEBREAK_RESOLVED"
	EventCentroidRebuilt      EventType = "CENTROID_REBUILT"
	EventSampleAdded          EventType = "SAMPLE_ADDED"
	EventSampleRemoved        EventType = "SAMPLE_REMOVED"
	EventPersonDeleted        EventType = "PERSON_DELETED"
)

// Event is one entry of the biometric audit trail
type Event struct {
	ID        uuid.UUID         `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	SubjectID uuid.UUID         `json:"subject_id"`
	EventType EventType         `json:"event_type"`
	SessionID *uuid.UUID        `json:"session_id,omitempty"`
	PersonID  *uuid.UUID        `json:"person_id,omitempty"`
	Extractor string            `json:"extractor,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Logger defines the interface for audit logging
type Logger interface {
	Log(ctx context.Context, event Event) error
}

// SlogLogger implements Logger using slog
type SlogLogger struct {
	logger *slog.Logger
}

func NewSlogLogger(logger *slog.Logger) *SlogLogger {
	return &SlogLogger{
		logger: logger.With("component", "audit"),
	}
}

func (l *SlogLogger) Log(ctx context.Context, event Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		l.logger.ErrorContext(ctx, "failed to marshal audit event",
			slog.String("error", err.Error()),
			slog.String("event_type", string(event.EventType)),
		)
		return err
	}

	l.logger.InfoContext(ctx, "audit_event",
		slog.String("event_id", event.ID.String()),
		slog.String("event_type", string(event.EventType)),
		slog.String("subject_id", event.SubjectID.String()),
		slog.Bool("success", event.Success),
		slog.String("event_data", string(eventJSON)),
	)

	return nil
}

// NoOpLogger discards every event
type NoOpLogger struct{}

func (l *NoOpLogger) Log(_ context.Context, _ Event) error {
	return nil
}
