package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/saturnino-fabrica-de-software/recall/internal/domain"
	"github.com/saturnino-fabrica-de-software/recall/internal/embedding"
)

// PgxPool is satisfied by *pgxpool.Pool and pgxmock.PgxPoolIface
type PgxPool interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// SubjectRepositoryInterface defines operations for subject data access
type SubjectRepositoryInterface interface {
	Create(ctx context.Context, subject *domain.Subject) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Subject, error)
}

// PersonRepositoryInterface defines operations for enrolled people
type PersonRepositoryInterface interface {
	Create(ctx context.Context, person *domain.Person) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Person, error)
	ListBySubject(ctx context.Context, subjectID uuid.UUID) ([]domain.Person, error)
	UpdateCentroid(ctx context.Context, id uuid.UUID, centroid embedding.Vector, sampleCount int) (time.Time, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// SampleRepositoryInterface defines operations for enrollment samples
type SampleRepositoryInterface interface {
	Create(ctx context.Context, sample *domain.Sample) error
	GetByID(ctx context.Context, personID, sampleID uuid.UUID) (*domain.Sample, error)
	ListByPerson(ctx context.Context, personID uuid.UUID) ([]domain.Sample, error)
	Delete(ctx context.Context, personID, sampleID uuid.UUID) error
}

// SessionRepositoryInterface defines operations for recognition sessions
type SessionRepositoryInterface interface {
	Create(ctx context.Context, session *domain.Session) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Session, error)
}

// RecognitionEventRepositoryInterface defines operations for recognition events
type RecognitionEventRepositoryInterface interface {
	Create(ctx context.Context, event *domain.RecognitionEvent) error
	GetByID(ctx context.Context, sessionID, eventID uuid.UUID) (*domain.RecognitionEvent, error)
	LatestPending(ctx context.Context, sessionID uuid.UUID) (*domain.RecognitionEvent, error)
	Resolve(ctx context.Context, event *domain.RecognitionEvent) error
}
