package handler

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/recall/internal/domain"
)

const maxFrameSize = 10 * 1024 * 1024 // 10MB

// RecognitionService is satisfied by *service.RecognitionService.
type RecognitionService interface {
	SubmitFrame(ctx context.Context, sessionID uuid.UUID, probe []byte) (*domain.RecognitionEvent, error)
	ResolveTieBreak(ctx context.Context, sessionID uuid.UUID, eventID *uuid.UUID, selectedPersonID uuid.UUID) (*domain.RecognitionEvent, error)
	GetResult(ctx context.Context, sessionID, eventID uuid.UUID) (*domain.RecognitionEvent, error)
}

type RecognitionHandler struct {
	service RecognitionService
}

func NewRecognitionHandler(service RecognitionService) *RecognitionHandler {
	return &RecognitionHandler{service: service}
}

type TieBreakRequest struct {
	EventID          *uuid.UUID `json:"event_id"`
	SelectedPersonID uuid.UUID  `json:"selected_person_id"`
}

// SubmitFrame POST /v1/sessions/:session_id/frame
//
// The probe is the multipart "frame" file, or the "seed" form value when no
// file is sent. A request with neither is a probe without a subject.
func (h *RecognitionHandler) SubmitFrame(c *fiber.Ctx) error {
	sessionID, err := uuidParam(c, "session_id")
	if err != nil {
		return err
	}

	probe, err := readProbe(c)
	if err != nil {
		return err
	}

	event, err := h.service.SubmitFrame(c.UserContext(), sessionID, probe)
	if err != nil {
		return err
	}

	return c.JSON(event)
}

// ResolveTieBreak POST /v1/sessions/:session_id/tiebreak
func (h *RecognitionHandler) ResolveTieBreak(c *fiber.Ctx) error {
	sessionID, err := uuidParam(c, "session_id")
	if err != nil {
		return err
	}

	var req TieBreakRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.SelectedPersonID == uuid.Nil {
		return domain.ErrValidationFailed.WithError(errors.New("selected_person_id is required"))
	}

	event, err := h.service.ResolveTieBreak(c.UserContext(), sessionID, req.EventID, req.SelectedPersonID)
	if err != nil {
		return err
	}

	return c.JSON(event)
}

// GetResult GET /v1/sessions/:session_id/result/:event_id
func (h *RecognitionHandler) GetResult(c *fiber.Ctx) error {
	sessionID, err := uuidParam(c, "session_id")
	if err != nil {
		return err
	}
	eventID, err := uuidParam(c, "event_id")
	if err != nil {
		return err
	}

	event, err := h.service.GetResult(c.UserContext(), sessionID, eventID)
	if err != nil {
		return err
	}

	return c.JSON(event)
}

func readProbe(c *fiber.Ctx) ([]byte, error) {
	file, err := c.FormFile("frame")
	if err != nil {
		return []byte(strings.TrimSpace(c.FormValue("seed"))), nil
	}

	if file.Size > maxFrameSize {
		return nil, domain.ErrInvalidImage.WithError(errors.New("frame exceeds 10MB"))
	}

	f, err := file.Open()
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(err)
	}
	defer func() {
		_ = f.Close()
	}()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(err)
	}
	return data, nil
}
