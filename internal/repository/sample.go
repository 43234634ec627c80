package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/saturnino-fabrica-de-software/recall/internal/domain"
)

type SampleRepository struct {
	pool PgxPool
}

func NewSampleRepository(pool PgxPool) *SampleRepository {
	return &SampleRepository{pool: pool}
}

func (r *SampleRepository) Create(ctx context.Context, sample *domain.Sample) error {
	query := `
		INSERT INTO enrollment_samples (id, person_id, source_locator, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING created_at
	`

	if sample.ID == uuid.Nil {
		sample.ID = uuid.New()
	}

	err := r.pool.QueryRow(ctx, query, sample.ID, sample.PersonID, sample.SourceLocator).Scan(&sample.CreatedAt)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return domain.ErrSampleExists
		case isForeignKeyViolation(err):
			return domain.ErrPersonNotFound
		}
		return fmt.Errorf("create sample: %w", err)
	}

	return nil
}

func (r *SampleRepository) GetByID(ctx context.Context, personID, sampleID uuid.UUID) (*domain.Sample, error) {
	query := `
		SELECT id, person_id, source_locator, created_at
		FROM enrollment_samples
		WHERE person_id = $1 AND id = $2
	`

	var sample domain.Sample
	err := r.pool.QueryRow(ctx, query, personID, sampleID).Scan(
		&sample.ID,
		&sample.PersonID,
		&sample.SourceLocator,
		&sample.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSampleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get sample by id: %w", err)
	}

	return &sample, nil
}

// ListByPerson returns samples ordered by id.
func (r *SampleRepository) ListByPerson(ctx context.Context, personID uuid.UUID) ([]domain.Sample, error) {
	query := `
		SELECT id, person_id, source_locator, created_at
		FROM enrollment_samples
		WHERE person_id = $1
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, personID)
	if err != nil {
		return nil, fmt.Errorf("list samples: %w", err)
	}
	defer rows.Close()

	samples := make([]domain.Sample, 0)
	for rows.Next() {
		var s domain.Sample
		if err := rows.Scan(&s.ID, &s.PersonID, &s.SourceLocator, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		samples = append(samples, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate samples: %w", err)
	}

	return samples, nil
}

func (r *SampleRepository) Delete(ctx context.Context, personID, sampleID uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM enrollment_samples WHERE person_id = $1 AND id = $2`, personID, sampleID)
	if err != nil {
		return fmt.Errorf("delete sample: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrSampleNotFound
	}

	return nil
}
