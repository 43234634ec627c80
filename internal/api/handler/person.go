package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/recall/internal/domain"
)

// EnrollmentService is satisfied by *service.EnrollmentService.
type EnrollmentService interface {
	CreatePerson(ctx context.Context, subjectID uuid.UUID, name, relationship string) (*domain.Person, error)
	GetPerson(ctx context.Context, id uuid.UUID) (*domain.Person, error)
	ListPeople(ctx context.Context, subjectID uuid.UUID) ([]domain.Person, error)
	DeletePerson(ctx context.Context, id uuid.UUID) error
	AddSample(ctx context.Context, personID uuid.UUID, locator string) (*domain.Sample, *domain.Person, error)
	RemoveSample(ctx context.Context, personID, sampleID uuid.UUID) (*domain.Person, error)
	RebuildCentroid(ctx context.Context, personID uuid.UUID) (*domain.Person, error)
}

type PersonHandler struct {
	service EnrollmentService
}

func NewPersonHandler(service EnrollmentService) *PersonHandler {
	return &PersonHandler{service: service}
}

type CreatePersonRequest struct {
	Name         string `json:"name"`
	Relationship string `json:"relationship"`
}

type AddSampleRequest struct {
	SourceLocator string `json:"source_locator"`
}

// PersonResponse exposes whether a centroid exists without exposing it.
type PersonResponse struct {
	*domain.Person
	HasCentroid bool `json:"has_centroid"`
}

type AddSampleResponse struct {
	Sample *domain.Sample `json:"sample"`
	Person PersonResponse `json:"person"`
}

type ListPeopleResponse struct {
	People []PersonResponse `json:"people"`
}

func toPersonResponse(p *domain.Person) PersonResponse {
	return PersonResponse{Person: p, HasCentroid: p.HasCentroid()}
}

// List GET /v1/subjects/:subject_id/people
func (h *PersonHandler) List(c *fiber.Ctx) error {
	subjectID, err := uuidParam(c, "subject_id")
	if err != nil {
		return err
	}

	people, err := h.service.ListPeople(c.UserContext(), subjectID)
	if err != nil {
		return err
	}

	resp := ListPeopleResponse{People: make([]PersonResponse, len(people))}
	for i := range people {
		resp.People[i] = toPersonResponse(&people[i])
	}
	return c.JSON(resp)
}

// Create POST /v1/subjects/:subject_id/people
func (h *PersonHandler) Create(c *fiber.Ctx) error {
	subjectID, err := uuidParam(c, "subject_id")
	if err != nil {
		return err
	}

	var req CreatePersonRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	person, err := h.service.CreatePerson(c.UserContext(), subjectID, req.Name, req.Relationship)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(toPersonResponse(person))
}

// Get GET /v1/people/:person_id
func (h *PersonHandler) Get(c *fiber.Ctx) error {
	id, err := uuidParam(c, "person_id")
	if err != nil {
		return err
	}

	person, err := h.service.GetPerson(c.UserContext(), id)
	if err != nil {
		return err
	}

	return c.JSON(toPersonResponse(person))
}

// Delete DELETE /v1/people/:person_id
func (h *PersonHandler) Delete(c *fiber.Ctx) error {
	id, err := uuidParam(c, "person_id")
	if err != nil {
		return err
	}

	if err := h.service.DeletePerson(c.UserContext(), id); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// AddSample POST /v1/people/:person_id/samples
// The sample is only kept when the centroid rebuild succeeds; otherwise the
// rebuild error is returned and the request can be retried as is.
func (h *PersonHandler) AddSample(c *fiber.Ctx) error {
	id, err := uuidParam(c, "person_id")
	if err != nil {
		return err
	}

	var req AddSampleRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	sample, person, err := h.service.AddSample(c.UserContext(), id, req.SourceLocator)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(AddSampleResponse{
		Sample: sample,
		Person: toPersonResponse(person),
	})
}

// RemoveSample DELETE /v1/people/:person_id/samples/:sample_id
func (h *PersonHandler) RemoveSample(c *fiber.Ctx) error {
	personID, err := uuidParam(c, "person_id")
	if err != nil {
		return err
	}
	sampleID, err := uuidParam(c, "sample_id")
	if err != nil {
		return err
	}

	person, err := h.service.RemoveSample(c.UserContext(), personID, sampleID)
	if err != nil {
		return err
	}

	return c.JSON(toPersonResponse(person))
}

// RebuildCentroid POST /v1/people/:person_id/centroid
func (h *PersonHandler) RebuildCentroid(c *fiber.Ctx) error {
	id, err := uuidParam(c, "person_id")
	if err != nil {
		return err
	}

	person, err := h.service.RebuildCentroid(c.UserContext(), id)
	if err != nil {
		return err
	}

	return c.JSON(toPersonResponse(person))
}
