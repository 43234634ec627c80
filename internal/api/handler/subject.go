package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/recall/internal/domain"
)

// SessionService is satisfied by *service.SessionService.
type SessionService interface {
	CreateSubject(ctx context.Context, name string) (*domain.Subject, error)
	GetSubject(ctx context.Context, id uuid.UUID) (*domain.Subject, error)
	CreateSession(ctx context.Context, subjectID uuid.UUID) (*domain.Session, error)
	GetSession(ctx context.Context, id uuid.UUID) (*domain.Session, error)
}

type SubjectHandler struct {
	service SessionService
}

func NewSubjectHandler(service SessionService) *SubjectHandler {
	return &SubjectHandler{service: service}
}

type CreateSubjectRequest struct {
	Name string `json:"name"`
}

// Create POST /v1/subjects
func (h *SubjectHandler) Create(c *fiber.Ctx) error {
	var req CreateSubjectRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	subject, err := h.service.CreateSubject(c.UserContext(), req.Name)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(subject)
}

// Get GET /v1/subjects/:subject_id
func (h *SubjectHandler) Get(c *fiber.Ctx) error {
	id, err := uuidParam(c, "subject_id")
	if err != nil {
		return err
	}

	subject, err := h.service.GetSubject(c.UserContext(), id)
	if err != nil {
		return err
	}

	return c.JSON(subject)
}

// CreateSession POST /v1/subjects/:subject_id/sessions
func (h *SubjectHandler) CreateSession(c *fiber.Ctx) error {
	id, err := uuidParam(c, "subject_id")
	if err != nil {
		return err
	}

	session, err := h.service.CreateSession(c.UserContext(), id)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(session)
}

// GetSession GET /v1/sessions/:session_id
func (h *SubjectHandler) GetSession(c *fiber.Ctx) error {
	id, err := uuidParam(c, "session_id")
	if err != nil {
		return err
	}

	session, err := h.service.GetSession(c.UserContext(), id)
	if err != nil {
		return err
	}

	return c.JSON(session)
}

// SubjectExists adapts GetSubject for the websocket upgrade check.
func (h *SubjectHandler) SubjectExists(c *fiber.Ctx, id uuid.UUID) error {
	_, err := h.service.GetSubject(c.UserContext(), id)
	return err
}
