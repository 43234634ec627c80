package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/saturnino-fabrica-de-software/recall/internal/domain"
	"github.com/saturnino-fabrica-de-software/recall/internal/embedding"
)

type PersonRepository struct {
	pool PgxPool
}

func NewPersonRepository(pool PgxPool) *PersonRepository {
	return &PersonRepository{pool: pool}
}

const personColumns = `id, subject_id, name, relationship, centroid, sample_count, centroid_updated_at, created_at`

func (r *PersonRepository) Create(ctx context.Context, person *domain.Person) error {
	query := `
		INSERT INTO people (id, subject_id, name, relationship, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING created_at
	`

	if person.ID == uuid.Nil {
		person.ID = uuid.New()
	}

	err := r.pool.QueryRow(ctx, query,
		person.ID,
		person.SubjectID,
		person.Name,
		person.Relationship,
	).Scan(&person.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrSubjectNotFound
		}
		return fmt.Errorf("create person: %w", err)
	}

	return nil
}

func (r *PersonRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Person, error) {
	query := `SELECT ` + personColumns + ` FROM people WHERE id = $1`

	person, err := scanPerson(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrPersonNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get person by id: %w", err)
	}

	return person, nil
}

// ListBySubject returns people in registration order, the order scoring
// ties are broken in.
func (r *PersonRepository) ListBySubject(ctx context.Context, subjectID uuid.UUID) ([]domain.Person, error) {
	query := `SELECT ` + personColumns + ` FROM people WHERE subject_id = $1 ORDER BY created_at, id`

	rows, err := r.pool.Query(ctx, query, subjectID)
	if err != nil {
		return nil, fmt.Errorf("list people: %w", err)
	}
	defer rows.Close()

	people := make([]domain.Person, 0)
	for rows.Next() {
		person, err := scanPerson(rows)
		if err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		people = append(people, *person)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate people: %w", err)
	}

	return people, nil
}

// UpdateCentroid stores a rebuilt centroid. A nil centroid clears it.
func (r *PersonRepository) UpdateCentroid(ctx context.Context, id uuid.UUID, centroid embedding.Vector, sampleCount int) (time.Time, error) {
	query := `
		UPDATE people
		SET centroid = $2, sample_count = $3, centroid_updated_at = NOW()
		WHERE id = $1
		RETURNING centroid_updated_at
	`

	var updatedAt time.Time
	err := r.pool.QueryRow(ctx, query, id, toPgVector(centroid), sampleCount).Scan(&updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, domain.ErrPersonNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("update centroid: %w", err)
	}

	return updatedAt, nil
}

func (r *PersonRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM people WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete person: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrPersonNotFound
	}

	return nil
}

func scanPerson(row pgx.Row) (*domain.Person, error) {
	var person domain.Person
	var centroid *pgvector.Vector

	err := row.Scan(
		&person.ID,
		&person.SubjectID,
		&person.Name,
		&person.Relationship,
		&centroid,
		&person.SampleCount,
		&person.CentroidUpdatedAt,
		&person.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	person.Centroid = fromPgVector(centroid)
	return &person, nil
}
