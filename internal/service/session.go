package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/recall/internal/domain"
	"github.com/saturnino-fabrica-de-software/recall/internal/repository"
)

type SessionService struct {
	subjects repository.SubjectRepositoryInterface
	sessions repository.SessionRepositoryInterface
}

func NewSessionService(
	subjects repository.SubjectRepositoryInterface,
	sessions repository.SessionRepositoryInterface,
) *SessionService {
	return &SessionService{subjects: subjects, sessions: sessions}
}

func (s *SessionService) CreateSubject(ctx context.Context, name string) (*domain.Subject, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrValidationFailed.WithError(errors.New("name is required"))
	}

	subject := &domain.Subject{Name: name}
	if err := s.subjects.Create(ctx, subject); err != nil {
		return nil, err
	}
	return subject, nil
}

func (s *SessionService) GetSubject(ctx context.Context, id uuid.UUID) (*domain.Subject, error) {
	return s.subjects.GetByID(ctx, id)
}

func (s *SessionService) CreateSession(ctx context.Context, subjectID uuid.UUID) (*domain.Session, error) {
	if _, err := s.subjects.GetByID(ctx, subjectID); err != nil {
		return nil, err
	}

	session := &domain.Session{SubjectID: subjectID}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *SessionService) GetSession(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	return s.sessions.GetByID(ctx, id)
}
