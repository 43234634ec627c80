package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/recall/internal/embedding"
)

// Subject representa o escopo dono das pessoas e sessões (ex.: um paciente)
type Subject struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Person representa uma identidade cadastrada para um subject
type Person struct {
	ID                uuid.UUID        `json:"id"`
	SubjectID         uuid.UUID        `json:"subject_id"`
	Name              string           `json:"name"`
	Relationship      string           `json:"relationship,omitempty"`
	Centroid          embedding.Vector `json:"-"`
	SampleCount       int              `json:"sample_count"`
	CentroidUpdatedAt *time.Time       `json:"centroid_updated_at,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	Samples           []Sample         `json:"samples,omitempty"`
}

// HasCentroid reports whether the person can take part in scoring.
func (p *Person) HasCentroid() bool {
	return len(p.Centroid) > 0
}

// Sample representa uma amostra de referência (foto ou clipe de voz)
type Sample struct {
	ID            uuid.UUID `json:"id"`
	PersonID      uuid.UUID `json:"person_id"`
	SourceLocator string    `json:"source_locator"`
	CreatedAt     time.Time `json:"created_at"`
}

// CacheKey is the embedding cache key for the sample.
func (s Sample) CacheKey() string {
	return s.ID.String()
}

// Session groups recognition events for one subject.
type Session struct {
	ID        uuid.UUID `json:"id"`
	SubjectID uuid.UUID `json:"subject_id"`
	CreatedAt time.Time `json:"created_at"`
}
