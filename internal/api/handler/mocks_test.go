package handler

import (
	"context"
	"io"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/saturnino-fabrica-de-software/recall/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/recall/internal/domain"
)

// testLogger returns a logger that discards all output
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestApp() *fiber.App {
	return fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler(testLogger())})
}

type MockSessionService struct {
	mock.Mock
}

func (m *MockSessionService) CreateSubject(ctx context.Context, name string) (*domain.Subject, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Subject), args.Error(1)
}

func (m *MockSessionService) GetSubject(ctx context.Context, id uuid.UUID) (*domain.Subject, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Subject), args.Error(1)
}

func (m *MockSessionService) CreateSession(ctx context.Context, subjectID uuid.UUID) (*domain.Session, error) {
	args := m.Called(ctx, subjectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *MockSessionService) GetSession(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

type MockEnrollmentService struct {
	mock.Mock
}

func (m *MockEnrollmentService) CreatePerson(ctx context.Context, subjectID uuid.UUID, name, relationship string) (*domain.Person, error) {
	args := m.Called(ctx, subjectID, name, relationship)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Person), args.Error(1)
}

func (m *MockEnrollmentService) GetPerson(ctx context.Context, id uuid.UUID) (*domain.Person, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Person), args.Error(1)
}

func (m *MockEnrollmentService) ListPeople(ctx context.Context, subjectID uuid.UUID) ([]domain.Person, error) {
	args := m.Called(ctx, subjectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Person), args.Error(1)
}

func (m *MockEnrollmentService) DeletePerson(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockEnrollmentService) AddSample(ctx context.Context, personID uuid.UUID, locator string) (*domain.Sample, *domain.Person, error) {
	args := m.Called(ctx, personID, locator)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*domain.Sample), args.Get(1).(*domain.Person), args.Error(2)
}

func (m *MockEnrollmentService) RemoveSample(ctx context.Context, personID, sampleID uuid.UUID) (*domain.Person, error) {
	args := m.Called(ctx, personID, sampleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Person), args.Error(1)
}

func (m *MockEnrollmentService) RebuildCentroid(ctx context.Context, personID uuid.UUID) (*domain.Person, error) {
	args := m.Called(ctx, personID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Person), args.Error(1)
}

type MockRecognitionService struct {
	mock.Mock
}

func (m *MockRecognitionService) SubmitFrame(ctx context.Context, sessionID uuid.UUID, probe []byte) (*domain.RecognitionEvent, error) {
	args := m.Called(ctx, sessionID, probe)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RecognitionEvent), args.Error(1)
}

func (m *MockRecognitionService) ResolveTieBreak(ctx context.Context, sessionID uuid.UUID, eventID *uuid.UUID, selectedPersonID uuid.UUID) (*domain.RecognitionEvent, error) {
	args := m.Called(ctx, sessionID, eventID, selectedPersonID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RecognitionEvent), args.Error(1)
}

func (m *MockRecognitionService) GetResult(ctx context.Context, sessionID, eventID uuid.UUID) (*domain.RecognitionEvent, error) {
	args := m.Called(ctx, sessionID, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RecognitionEvent), args.Error(1)
}
