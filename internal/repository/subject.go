package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/saturnino-fabrica-de-software/recall/internal/domain"
)

type SubjectRepository struct {
	pool PgxPool
}

func NewSubjectRepository(pool PgxPool) *SubjectRepository {
	return &SubjectRepository{pool: pool}
}

func (r *SubjectRepository) Create(ctx context.Context, subject *domain.Subject) error {
	query := `
		INSERT INTO subjects (id, name, created_at)
		VALUES ($1, $2, NOW())
		RETURNING created_at
	`

	if subject.ID == uuid.Nil {
		subject.ID = uuid.New()
	}

	if err := r.pool.QueryRow(ctx, query, subject.ID, subject.Name).Scan(&subject.CreatedAt); err != nil {
		return fmt.Errorf("create subject: %w", err)
	}

	return nil
}

func (r *SubjectRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Subject, error) {
	query := `
		SELECT id, name, created_at
		FROM subjects
		WHERE id = $1
	`

	var subject domain.Subject
	err := r.pool.QueryRow(ctx, query, id).Scan(&subject.ID, &subject.Name, &subject.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSubjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get subject by id: %w", err)
	}

	return &subject, nil
}
