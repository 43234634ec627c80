package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/saturnino-fabrica-de-software/recall/internal/audit"
	"github.com/saturnino-fabrica-de-software/recall/internal/cache"
	"github.com/saturnino-fabrica-de-software/recall/internal/domain"
	"github.com/saturnino-fabrica-de-software/recall/internal/embedding"
	"github.com/saturnino-fabrica-de-software/recall/internal/fetch"
	"github.com/saturnino-fabrica-de-software/recall/internal/provider"
	"github.com/saturnino-fabrica-de-software/recall/internal/repository"
)

// EmbeddingCache is satisfied by *cache.EmbeddingCache.
type EmbeddingCache interface {
	GetOrCompute(ctx context.Context, sampleID string, fetch cache.FetchFunc, extract cache.ExtractFunc) (embedding.Vector, bool)
	Invalidate(ctx context.Context, sampleID string) error
}

// EnrollmentService manages people, their reference samples and the
// centroid built from them.
type EnrollmentService struct {
	subjects  repository.SubjectRepositoryInterface
	people    repository.PersonRepositoryInterface
	samples   repository.SampleRepositoryInterface
	cache     EmbeddingCache
	fetcher   fetch.Fetcher
	extractor provider.Extractor
	locks     *KeyedMutex

	fanOut       int
	fetchTimeout time.Duration
	audit        audit.Logger
	recorder     Recorder
	logger       *slog.Logger
}

func NewEnrollmentService(
	subjects repository.SubjectRepositoryInterface,
	people repository.PersonRepositoryInterface,
	samples repository.SampleRepositoryInterface,
	embeddings EmbeddingCache,
	fetcher fetch.Fetcher,
	extractor provider.Extractor,
) *EnrollmentService {
	return &EnrollmentService{
		subjects:     subjects,
		people:       people,
		samples:      samples,
		cache:        embeddings,
		fetcher:      fetcher,
		extractor:    extractor,
		locks:        NewKeyedMutex(),
		fanOut:       8,
		fetchTimeout: 15 * time.Second,
		audit:        &audit.NoOpLogger{},
		recorder:     nopRecorder{},
		logger:       slog.Default(),
	}
}

func (s *EnrollmentService) WithFanOut(n int) *EnrollmentService {
	if n > 0 {
		s.fanOut = n
	}
	return s
}

func (s *EnrollmentService) WithFetchTimeout(d time.Duration) *EnrollmentService {
	if d > 0 {
		s.fetchTimeout = d
	}
	return s
}

func (s *EnrollmentService) WithAudit(l audit.Logger) *EnrollmentService {
	s.audit = l
	return s
}

func (s *EnrollmentService) WithRecorder(r Recorder) *EnrollmentService {
	s.recorder = r
	return s
}

func (s *EnrollmentService) WithLogger(l *slog.Logger) *EnrollmentService {
	s.logger = l.With("component", "enrollment")
	return s
}

func (s *EnrollmentService) CreatePerson(ctx context.Context, subjectID uuid.UUID, name, relationship string) (*domain.Person, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrValidationFailed.WithError(errors.New("name is required"))
	}

	person := &domain.Person{
		SubjectID:    subjectID,
		Name:         name,
		Relationship: strings.TrimSpace(relationship),
	}
	if err := s.people.Create(ctx, person); err != nil {
		return nil, err
	}
	return person, nil
}

// GetPerson returns the person with its samples.
func (s *EnrollmentService) GetPerson(ctx context.Context, id uuid.UUID) (*domain.Person, error) {
	person, err := s.people.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	samples, err := s.samples.ListByPerson(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("person %s: %w", id, err)
	}
	person.Samples = samples

	return person, nil
}

func (s *EnrollmentService) ListPeople(ctx context.Context, subjectID uuid.UUID) ([]domain.Person, error) {
	if _, err := s.subjects.GetByID(ctx, subjectID); err != nil {
		return nil, err
	}
	return s.people.ListBySubject(ctx, subjectID)
}

// DeletePerson removes the person and drops the cached embedding of every
// sample it owned.
func (s *EnrollmentService) DeletePerson(ctx context.Context, id uuid.UUID) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	person, err := s.people.GetByID(ctx, id)
	if err != nil {
		return err
	}

	samples, err := s.samples.ListByPerson(ctx, id)
	if err != nil {
		return fmt.Errorf("person %s: %w", id, err)
	}

	if err := s.people.Delete(ctx, id); err != nil {
		return err
	}

	for _, sample := range samples {
		s.invalidate(ctx, sample)
	}

	_ = s.audit.Log(ctx, audit.Event{
		SubjectID: person.SubjectID,
		EventType: audit.EventPersonDeleted,
		PersonID:  &person.ID,
		Success:   true,
		Metadata:  map[string]string{"samples": fmt.Sprint(len(samples))},
	})

	return nil
}

// AddSample registers a reference sample and rebuilds the centroid. When the
// rebuild fails the sample is removed again, so a retry is not a duplicate.
func (s *EnrollmentService) AddSample(ctx context.Context, personID uuid.UUID, locator string) (*domain.Sample, *domain.Person, error) {
	locator = strings.TrimSpace(locator)
	if locator == "" {
		return nil, nil, domain.ErrValidationFailed.WithError(errors.New("source_locator is required"))
	}
	if r, ok := s.fetcher.(interface{ Supports(string) bool }); ok && !r.Supports(locator) {
		return nil, nil, domain.ErrValidationFailed.WithError(fmt.Errorf("unsupported source_locator %q", locator))
	}

	person, err := s.people.GetByID(ctx, personID)
	if err != nil {
		return nil, nil, err
	}

	sample := &domain.Sample{PersonID: personID, SourceLocator: locator}
	if err := s.samples.Create(ctx, sample); err != nil {
		return nil, nil, err
	}

	updated, err := s.RebuildCentroid(ctx, personID)
	if err != nil {
		s.rollbackSample(ctx, *sample)
		return nil, nil, err
	}

	_ = s.audit.Log(ctx, audit.Event{
		SubjectID: person.SubjectID,
		EventType: audit.EventSampleAdded,
		PersonID:  &person.ID,
		Success:   true,
		Metadata:  map[string]string{"sample_id": sample.ID.String()},
	})

	return sample, updated, nil
}

func (s *EnrollmentService) rollbackSample(ctx context.Context, sample domain.Sample) {
	ctx = context.WithoutCancel(ctx)
	if err := s.samples.Delete(ctx, sample.PersonID, sample.ID); err != nil {
		s.logger.ErrorContext(ctx, "failed to roll back sample after rebuild error",
			"person_id", sample.PersonID,
			"sample_id", sample.ID,
			"error", err,
		)
		return
	}
	s.invalidate(ctx, sample)
}

// RemoveSample deletes a sample, drops its cached embedding and rebuilds the
// centroid from what is left.
func (s *EnrollmentService) RemoveSample(ctx context.Context, personID, sampleID uuid.UUID) (*domain.Person, error) {
	sample, err := s.samples.GetByID(ctx, personID, sampleID)
	if err != nil {
		return nil, err
	}

	if err := s.samples.Delete(ctx, personID, sampleID); err != nil {
		return nil, err
	}
	s.invalidate(ctx, *sample)

	person, err := s.RebuildCentroid(ctx, personID)
	if err != nil {
		return nil, err
	}

	_ = s.audit.Log(ctx, audit.Event{
		SubjectID: person.SubjectID,
		EventType: audit.EventSampleRemoved,
		PersonID:  &person.ID,
		Success:   true,
		Metadata:  map[string]string{"sample_id": sampleID.String()},
	})

	return person, nil
}

// RebuildCentroid recomputes the person's centroid from every sample that
// yields an embedding. Rebuilds of one person are serialized; samples are
// fetched and extracted in parallel up to the fan-out limit, and a sample
// that fails is left out rather than failing the rebuild. When no sample
// yields an embedding and at least one failed to load or extract, the stored
// centroid is kept and ErrSamplesUnavailable is returned.
func (s *EnrollmentService) RebuildCentroid(ctx context.Context, personID uuid.UUID) (*domain.Person, error) {
	start := time.Now()

	unlock := s.locks.Lock(personID)
	defer unlock()

	person, err := s.rebuild(ctx, personID)
	s.recorder.ObserveCentroidRebuild(err == nil, time.Since(start))
	return person, err
}

func (s *EnrollmentService) rebuild(ctx context.Context, personID uuid.UUID) (*domain.Person, error) {
	person, err := s.people.GetByID(ctx, personID)
	if err != nil {
		return nil, err
	}

	samples, err := s.samples.ListByPerson(ctx, personID)
	if err != nil {
		return nil, fmt.Errorf("person %s: %w", personID, err)
	}
	slices.SortFunc(samples, func(a, b domain.Sample) int {
		return bytes.Compare(a.ID[:], b.ID[:])
	})

	vectors := make([]embedding.Vector, len(samples))
	failed := make([]bool, len(samples))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.fanOut)
	for i, sample := range samples {
		g.Go(func() error {
			v, ok := s.cache.GetOrCompute(gctx, sample.CacheKey(), s.fetchFunc(sample, &failed[i]), s.extractFunc(&failed[i]))
			if ok {
				vectors[i] = v
			} else {
				s.logger.DebugContext(gctx, "sample has no embedding",
					"person_id", personID,
					"sample_id", sample.ID,
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	// a cancelled rebuild must not persist a centroid missing samples
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("person %s: rebuild centroid: %w", personID, err)
	}

	valid := make([]embedding.Vector, 0, len(vectors))
	unavailable := 0
	for i, v := range vectors {
		switch {
		case v != nil:
			valid = append(valid, v)
		case failed[i]:
			unavailable++
		}
	}

	if len(valid) == 0 && unavailable > 0 {
		s.logger.WarnContext(ctx, "keeping stored centroid, samples unavailable",
			"person_id", personID,
			"unavailable", unavailable,
			"samples", len(samples),
		)
		return nil, domain.ErrSamplesUnavailable.WithError(
			fmt.Errorf("person %s: %d of %d samples unavailable", personID, unavailable, len(samples)))
	}

	centroid, ok := embedding.Centroid(valid)
	if !ok {
		centroid = nil
		if len(valid) > 0 {
			s.logger.WarnContext(ctx, "sample embeddings do not combine into a centroid",
				"person_id", personID,
				"samples", len(valid),
			)
			valid = valid[:0]
		}
	}

	updatedAt, err := s.people.UpdateCentroid(ctx, personID, centroid, len(valid))
	if err != nil {
		return nil, err
	}

	person.Centroid = centroid
	person.SampleCount = len(valid)
	person.CentroidUpdatedAt = &updatedAt
	person.Samples = samples

	_ = s.audit.Log(ctx, audit.Event{
		SubjectID: person.SubjectID,
		EventType: audit.EventCentroidRebuilt,
		PersonID:  &person.ID,
		Extractor: s.extractor.Name(),
		Success:   centroid != nil,
		Metadata: map[string]string{
			"samples":      fmt.Sprint(len(samples)),
			"valid":        fmt.Sprint(len(valid)),
			"has_centroid": fmt.Sprint(centroid != nil),
		},
	})

	return person, nil
}

// fetchFunc and extractFunc set failed when the sample could not be read for
// a reason other than holding no subject.
func (s *EnrollmentService) fetchFunc(sample domain.Sample, failed *bool) cache.FetchFunc {
	return func(ctx context.Context) ([]byte, error) {
		ctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
		defer cancel()
		data, err := s.fetcher.Fetch(ctx, sample.SourceLocator)
		if err != nil {
			*failed = true
		}
		return data, err
	}
}

func (s *EnrollmentService) extractFunc(failed *bool) cache.ExtractFunc {
	return func(ctx context.Context, data []byte) (embedding.Vector, error) {
		v, err := s.extractor.Extract(ctx, data)
		if err != nil && !errors.Is(err, domain.ErrNoFaceDetected) {
			*failed = true
		}
		return v, err
	}
}

func (s *EnrollmentService) invalidate(ctx context.Context, sample domain.Sample) {
	if err := s.cache.Invalidate(ctx, sample.CacheKey()); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate cached embedding",
			"sample_id", sample.ID,
			"error", err,
		)
	}
}
