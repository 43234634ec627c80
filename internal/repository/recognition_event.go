package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/saturnino-fabrica-de-software/recall/internal/domain"
)

var errAlreadyResolved = errors.New("event was already resolved")

type RecognitionEventRepository struct {
	pool PgxPool
}

func NewRecognitionEventRepository(pool PgxPool) *RecognitionEventRepository {
	return &RecognitionEventRepository{pool: pool}
}

const eventColumns = `e.id, e.session_id, s.subject_id, e.status, e.confidence_band, e.top_score, e.gap,
		e.winner_person_id, e.winner_name, e.candidates, e.needs_tie_break, e.extractor, e.primary_face,
		e.created_at, e.resolved_at`

func (r *RecognitionEventRepository) Create(ctx context.Context, event *domain.RecognitionEvent) error {
	query := `
		INSERT INTO recognition_events (
			id, session_id, status, confidence_band, top_score, gap,
			winner_person_id, winner_name, candidates, needs_tie_break, extractor, primary_face, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
		RETURNING created_at
	`

	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Candidates == nil {
		event.Candidates = []domain.Candidate{}
	}

	candidates, err := json.Marshal(event.Candidates)
	if err != nil {
		return fmt.Errorf("marshal candidates: %w", err)
	}

	var face []byte
	if event.PrimaryFace != nil {
		if face, err = json.Marshal(event.PrimaryFace); err != nil {
			return fmt.Errorf("marshal primary face: %w", err)
		}
	}

	err = r.pool.QueryRow(ctx, query,
		event.ID,
		event.SessionID,
		string(event.Status),
		string(event.Band),
		event.TopScore,
		event.Gap,
		event.WinnerPersonID,
		event.WinnerName,
		candidates,
		event.NeedsTieBreak,
		event.Extractor,
		face,
	).Scan(&event.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrSessionNotFound
		}
		return fmt.Errorf("create recognition event: %w", err)
	}

	return nil
}

func (r *RecognitionEventRepository) GetByID(ctx context.Context, sessionID, eventID uuid.UUID) (*domain.RecognitionEvent, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM recognition_events e
		JOIN sessions s ON s.id = e.session_id
		WHERE e.session_id = $1 AND e.id = $2
	`

	event, err := scanEvent(r.pool.QueryRow(ctx, query, sessionID, eventID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get recognition event: %w", err)
	}

	return event, nil
}

// LatestPending returns the newest event of the session still awaiting a
// tie-break.
func (r *RecognitionEventRepository) LatestPending(ctx context.Context, sessionID uuid.UUID) (*domain.RecognitionEvent, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM recognition_events e
		JOIN sessions s ON s.id = e.session_id
		WHERE e.session_id = $1 AND e.needs_tie_break = true
		ORDER BY e.created_at DESC, e.id DESC
		LIMIT 1
	`

	event, err := scanEvent(r.pool.QueryRow(ctx, query, sessionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get pending recognition event: %w", err)
	}

	return event, nil
}

// Resolve persists a tie-break outcome. The update only applies while the
// row still needs a tie-break, so concurrent resolutions cannot both win.
func (r *RecognitionEventRepository) Resolve(ctx context.Context, event *domain.RecognitionEvent) error {
	query := `
		UPDATE recognition_events
		SET status = $3, confidence_band = $4, winner_person_id = $5, winner_name = $6,
			needs_tie_break = false, resolved_at = $7
		WHERE session_id = $1 AND id = $2 AND needs_tie_break = true
	`

	result, err := r.pool.Exec(ctx, query,
		event.SessionID,
		event.ID,
		string(event.Status),
		string(event.Band),
		event.WinnerPersonID,
		event.WinnerName,
		event.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("resolve recognition event: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrInvalidTieBreak.WithError(errAlreadyResolved)
	}

	return nil
}

func scanEvent(row pgx.Row) (*domain.RecognitionEvent, error) {
	var event domain.RecognitionEvent
	var status, band string
	var candidates, face []byte

	err := row.Scan(
		&event.ID,
		&event.SessionID,
		&event.SubjectID,
		&status,
		&band,
		&event.TopScore,
		&event.Gap,
		&event.WinnerPersonID,
		&event.WinnerName,
		&candidates,
		&event.NeedsTieBreak,
		&event.Extractor,
		&face,
		&event.CreatedAt,
		&event.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}

	event.Status = domain.Status(status)
	event.Band = domain.Band(band)

	event.Candidates = []domain.Candidate{}
	if len(candidates) > 0 {
		if err := json.Unmarshal(candidates, &event.Candidates); err != nil {
			return nil, fmt.Errorf("decode candidates: %w", err)
		}
	}
	if len(face) > 0 {
		event.PrimaryFace = &domain.BoundingBox{}
		if err := json.Unmarshal(face, event.PrimaryFace); err != nil {
			return nil, fmt.Errorf("decode primary face: %w", err)
		}
	}

	return &event, nil
}
