package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/recall/internal/audit"
	"github.com/saturnino-fabrica-de-software/recall/internal/decision"
	"github.com/saturnino-fabrica-de-software/recall/internal/domain"
	"github.com/saturnino-fabrica-de-software/recall/internal/embedding"
	"github.com/saturnino-fabrica-de-software/recall/internal/provider"
	"github.com/saturnino-fabrica-de-software/recall/internal/repository"
)

var errNoPendingEvent = errors.New("session has no event awaiting a tie-break")

// RecognitionService scores submitted frames against the enrolled people of
// a session's subject and records the decision.
type RecognitionService struct {
	sessions   repository.SessionRepositoryInterface
	people     repository.PersonRepositoryInterface
	events     repository.RecognitionEventRepositoryInterface
	extractor  provider.Extractor
	classifier *decision.Classifier

	extractionTimeout time.Duration
	publisher         EventPublisher
	audit             audit.Logger
	recorder          Recorder
	logger            *slog.Logger
}

func NewRecognitionService(
	sessions repository.SessionRepositoryInterface,
	people repository.PersonRepositoryInterface,
	events repository.RecognitionEventRepositoryInterface,
	extractor provider.Extractor,
	classifier *decision.Classifier,
) *RecognitionService {
	return &RecognitionService{
		sessions:          sessions,
		people:            people,
		events:            events,
		extractor:         extractor,
		classifier:        classifier,
		extractionTimeout: 10 * time.Second,
		publisher:         Publishers{},
		audit:             &audit.NoOpLogger{},
		recorder:          nopRecorder{},
		logger:            slog.Default(),
	}
}

func (s *RecognitionService) WithExtractionTimeout(d time.Duration) *RecognitionService {
	if d > 0 {
		s.extractionTimeout = d
	}
	return s
}

func (s *RecognitionService) WithPublisher(p EventPublisher) *RecognitionService {
	s.publisher = p
	return s
}

func (s *RecognitionService) WithAudit(l audit.Logger) *RecognitionService {
	s.audit = l
	return s
}

func (s *RecognitionService) WithRecorder(r Recorder) *RecognitionService {
	s.recorder = r
	return s
}

func (s *RecognitionService) WithLogger(l *slog.Logger) *RecognitionService {
	s.logger = l.With("component", "recognition")
	return s
}

// SubmitFrame classifies one probe. An empty probe, a probe without a
// detectable subject and an extractor failure all yield an unknown decision
// rather than an error.
func (s *RecognitionService) SubmitFrame(ctx context.Context, sessionID uuid.UUID, probe []byte) (*domain.RecognitionEvent, error) {
	start := time.Now()

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	analysis := s.extractProbe(ctx, sessionID, probe)

	var result decision.Decision
	if analysis == nil {
		result = s.classifier.Classify(false, nil)
	} else {
		candidates, err := s.score(ctx, session.SubjectID, analysis.Vector)
		if err != nil {
			return nil, err
		}
		result = s.classifier.Classify(true, decision.Rank(candidates))
	}

	event := &domain.RecognitionEvent{
		SessionID:     session.ID,
		SubjectID:     session.SubjectID,
		Status:        result.Status,
		Band:          result.Band,
		TopScore:      result.TopScore,
		Gap:           result.Gap,
		Candidates:    result.Candidates,
		NeedsTieBreak: result.NeedsTieBreak,
		Extractor:     s.extractor.Name(),
	}
	if result.Winner != nil {
		winner := result.Winner.PersonID
		event.WinnerPersonID = &winner
		event.WinnerName = result.Winner.Name
	}
	if analysis != nil && analysis.Face != nil {
		event.PrimaryFace = analysis.Face.BoundingBox.Domain()
	}

	if err := s.events.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}

	s.publisher.Publish(ctx, domain.EventRecognitionCompleted, event)
	s.recorder.ObserveRecognition(event.Status, time.Since(start))
	_ = s.audit.Log(ctx, audit.Event{
		SubjectID: session.SubjectID,
		EventType: audit.EventRecognitionSubmitted,
		SessionID: &session.ID,
		PersonID:  event.WinnerPersonID,
		Extractor: event.Extractor,
		Success:   true,
		Metadata: map[string]string{
			"event_id": event.ID.String(),
			"status":   string(event.Status),
			"band":     string(event.Band),
		},
	})

	return event, nil
}

// extractProbe returns nil when the probe yields no usable embedding.
func (s *RecognitionService) extractProbe(ctx context.Context, sessionID uuid.UUID, probe []byte) *provider.Analysis {
	if len(probe) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.extractionTimeout)
	defer cancel()

	analysis, err := provider.Analyze(ctx, s.extractor, probe)
	if err != nil {
		if errors.Is(err, domain.ErrNoFaceDetected) {
			s.logger.DebugContext(ctx, "no subject in probe", "session_id", sessionID)
			return nil
		}
		s.recorder.ObserveExtractionFailure("probe")
		s.logger.WarnContext(ctx, "probe extraction failed",
			"session_id", sessionID,
			"extractor", s.extractor.Name(),
			"error", err,
		)
		return nil
	}

	v, ok := embedding.Normalize(analysis.Vector)
	if !ok {
		return nil
	}
	analysis.Vector = v
	return analysis
}

// score compares probe with every stored centroid. People without a centroid
// or with a centroid of another dimension are left out.
func (s *RecognitionService) score(ctx context.Context, subjectID uuid.UUID, probe embedding.Vector) ([]domain.Candidate, error) {
	people, err := s.people.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("subject %s: %w", subjectID, err)
	}

	candidates := make([]domain.Candidate, 0, len(people))
	for _, p := range people {
		if !p.HasCentroid() {
			continue
		}
		score, ok := embedding.Score(probe, p.Centroid)
		if !ok {
			s.logger.DebugContext(ctx, "centroid not comparable with probe",
				"person_id", p.ID,
				"probe_dim", probe.Dim(),
				"centroid_dim", p.Centroid.Dim(),
			)
			continue
		}
		candidates = append(candidates, domain.Candidate{PersonID: p.ID, Name: p.Name, Score: score})
	}

	return candidates, nil
}

// ResolveTieBreak confirms the winner of an ambiguous event. A nil eventID
// resolves the session's most recent pending event.
func (s *RecognitionService) ResolveTieBreak(ctx context.Context, sessionID uuid.UUID, eventID *uuid.UUID, selectedPersonID uuid.UUID) (*domain.RecognitionEvent, error) {
	event, err := s.pendingEvent(ctx, sessionID, eventID)
	if err != nil {
		s.recorder.ObserveTieBreak(false)
		return nil, err
	}

	resolved, err := decision.Resolve(*event, selectedPersonID)
	if err != nil {
		s.recorder.ObserveTieBreak(false)
		return nil, err
	}

	if err := s.events.Resolve(ctx, &resolved); err != nil {
		s.recorder.ObserveTieBreak(false)
		return nil, err
	}

	s.publisher.Publish(ctx, domain.EventRecognitionResolved, &resolved)
	s.recorder.ObserveTieBreak(true)
	_ = s.audit.Log(ctx, audit.Event{
		SubjectID: resolved.SubjectID,
		EventType: audit.EventTieBreakResolved,
		SessionID: &resolved.SessionID,
		PersonID:  resolved.WinnerPersonID,
		Success:   true,
		Metadata:  map[string]string{"event_id": resolved.ID.String()},
	})

	return &resolved, nil
}

func (s *RecognitionService) pendingEvent(ctx context.Context, sessionID uuid.UUID, eventID *uuid.UUID) (*domain.RecognitionEvent, error) {
	if _, err := s.sessions.GetByID(ctx, sessionID); err != nil {
		return nil, err
	}

	if eventID != nil {
		return s.events.GetByID(ctx, sessionID, *eventID)
	}

	event, err := s.events.LatestPending(ctx, sessionID)
	if errors.Is(err, domain.ErrEventNotFound) {
		return nil, domain.ErrInvalidTieBreak.WithError(errNoPendingEvent)
	}
	return event, err
}

func (s *RecognitionService) GetResult(ctx context.Context, sessionID, eventID uuid.UUID) (*domain.RecognitionEvent, error) {
	return s.events.GetByID(ctx, sessionID, eventID)
}
