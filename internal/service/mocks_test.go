package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/saturnino-fabrica-de-software/recall/internal/domain"
	"github.com/saturnino-fabrica-de-software/recall/internal/embedding"
)

type MockSubjectRepository struct {
	mock.Mock
}

func (m *MockSubjectRepository) Create(ctx context.Context, subject *domain.Subject) error {
	args := m.Called(ctx, subject)
	return args.Error(0)
}

func (m *MockSubjectRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Subject, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Subject), args.Error(1)
}

type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Create(ctx context.Context, session *domain.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

type MockPersonRepository struct {
	mock.Mock
}

func (m *MockPersonRepository) Create(ctx context.Context, person *domain.Person) error {
	args := m.Called(ctx, person)
	return args.Error(0)
}

func (m *MockPersonRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Person, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	// return a copy so callers can mutate it freely
	p := *args.Get(0).(*domain.Person)
	return &p, args.Error(1)
}

func (m *MockPersonRepository) ListBySubject(ctx context.Context, subjectID uuid.UUID) ([]domain.Person, error) {
	args := m.Called(ctx, subjectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Person), args.Error(1)
}

func (m *MockPersonRepository) UpdateCentroid(ctx context.Context, id uuid.UUID, centroid embedding.Vector, sampleCount int) (time.Time, error) {
	args := m.Called(ctx, id, centroid, sampleCount)
	return args.Get(0).(time.Time), args.Error(1)
}

func (m *MockPersonRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockSampleRepository struct {
	mock.Mock
}

func (m *MockSampleRepository) Create(ctx context.Context, sample *domain.Sample) error {
	args := m.Called(ctx, sample)
	if sample.ID == uuid.Nil {
		sample.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *MockSampleRepository) GetByID(ctx context.Context, personID, sampleID uuid.UUID) (*domain.Sample, error) {
	args := m.Called(ctx, personID, sampleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Sample), args.Error(1)
}

func (m *MockSampleRepository) ListByPerson(ctx context.Context, personID uuid.UUID) ([]domain.Sample, error) {
	args := m.Called(ctx, personID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return append([]domain.Sample(nil), args.Get(0).([]domain.Sample)...), args.Error(1)
}

func (m *MockSampleRepository) Delete(ctx context.Context, personID, sampleID uuid.UUID) error {
	args := m.Called(ctx, personID, sampleID)
	return args.Error(0)
}

type MockEventRepository struct {
	mock.Mock
}

func (m *MockEventRepository) Create(ctx context.Context, event *domain.RecognitionEvent) error {
	args := m.Called(ctx, event)
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *MockEventRepository) GetByID(ctx context.Context, sessionID, eventID uuid.UUID) (*domain.RecognitionEvent, error) {
	args := m.Called(ctx, sessionID, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RecognitionEvent), args.Error(1)
}

func (m *MockEventRepository) LatestPending(ctx context.Context, sessionID uuid.UUID) (*domain.RecognitionEvent, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RecognitionEvent), args.Error(1)
}

func (m *MockEventRepository) Resolve(ctx context.Context, event *domain.RecognitionEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, eventType string, event *domain.RecognitionEvent) {
	m.Called(ctx, eventType, event)
}

// stubExtractor returns a fixed vector, or err when set.
type stubExtractor struct {
	vector embedding.Vector
	err    error
	calls  atomic.Int32
}

func (s *stubExtractor) Extract(_ context.Context, _ []byte) (embedding.Vector, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return s.vector, nil
}

func (s *stubExtractor) Name() string {
	return "stub"
}

// mapExtractor maps input bytes to a vector; unknown input has no subject.
type mapExtractor struct {
	mu      sync.Mutex
	vectors map[string]embedding.Vector
	calls   map[string]int
}

func newMapExtractor(vectors map[string]embedding.Vector) *mapExtractor {
	return &mapExtractor{vectors: vectors, calls: make(map[string]int)}
}

func (m *mapExtractor) Extract(_ context.Context, data []byte) (embedding.Vector, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[string(data)]++
	v, ok := m.vectors[string(data)]
	if !ok {
		return nil, domain.ErrNoFaceDetected
	}
	return v, nil
}

func (m *mapExtractor) Name() string {
	return "map"
}

func (m *mapExtractor) callCount(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[key]
}

// mapFetcher serves locators from memory; missing ones fail.
type mapFetcher map[string][]byte

func (f mapFetcher) Fetch(_ context.Context, locator string) ([]byte, error) {
	data, ok := f[locator]
	if !ok {
		return nil, context.DeadlineExceeded
	}
	return data, nil
}

type spyRecorder struct {
	mu               sync.Mutex
	recognitions     []domain.Status
	probeFailures    int
	tieBreaks        []bool
	centroidRebuilds []bool
}

func (r *spyRecorder) ObserveRecognition(status domain.Status, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recognitions = append(r.recognitions, status)
}

func (r *spyRecorder) ObserveExtractionFailure(string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.probeFailures++
}

func (r *spyRecorder) ObserveTieBreak(ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tieBreaks = append(r.tieBreaks, ok)
}

func (r *spyRecorder) ObserveCentroidRebuild(ok bool, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.centroidRebuilds = append(r.centroidRebuilds, ok)
}
