package docs

import (
	"github.com/go-swagno/swagno"
	"github.com/go-swagno/swagno/components/endpoint"
	"github.com/go-swagno/swagno/components/http/response"
	"github.com/go-swagno/swagno/components/mime"
	"github.com/go-swagno/swagno/components/parameter"
)

type SubjectResponse struct {
	ID        string `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Name      string `json:"name" example:"Dona Lúcia"`
	CreatedAt string `json:"created_at" example:"2024-01-01T00:00:00Z"`
}

type CreateSubjectRequest struct {
	Name string `json:"name" example:"Dona Lúcia"`
}

type SessionResponse struct {
	ID        string `json:"id" example:"7c9e6679-7425-40de-944b-e07fc1f90ae7"`
	SubjectID string `json:"subject_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	CreatedAt string `json:"created_at" example:"2024-01-01T00:00:00Z"`
}

type CreatePersonRequest struct {
	Name         string `json:"name" example:"Maria"`
	Relationship string `json:"relationship" example:"filha"`
}

type SampleResponse struct {
	ID            string `json:"id" example:"9b2d4c1e-0f57-4a0a-9d0e-6f1f0a9c3b11"`
	PersonID      string `json:"person_id" example:"3f1c2b8e-6a4d-4e25-8b0c-2d9e7a1f5c44"`
	SourceLocator string `json:"source_locator" example:"s3://photos/maria-1.jpg"`
	CreatedAt     string `json:"created_at" example:"2024-01-01T00:00:00Z"`
}

type PersonResponse struct {
	ID                string           `json:"id" example:"3f1c2b8e-6a4d-4e25-8b0c-2d9e7a1f5c44"`
	SubjectID         string           `json:"subject_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Name              string           `json:"name" example:"Maria"`
	Relationship      string           `json:"relationship,omitempty" example:"filha"`
	SampleCount       int              `json:"sample_count" example:"3"`
	HasCentroid       bool             `json:"has_centroid" example:"true"`
	CentroidUpdatedAt string           `json:"centroid_updated_at,omitempty" example:"2024-01-01T00:00:00Z"`
	CreatedAt         string           `json:"created_at" example:"2024-01-01T00:00:00Z"`
	Samples           []SampleResponse `json:"samples,omitempty"`
}

type ListPeopleResponse struct {
	People []PersonResponse `json:"people"`
}

type AddSampleRequest struct {
	SourceLocator string `json:"source_locator" example:"s3://photos/maria-1.jpg"`
}

type AddSampleResponse struct {
	Sample SampleResponse `json:"sample"`
	Person PersonResponse `json:"person"`
}

type CandidateResponse struct {
	PersonID string  `json:"person_id" example:"3f1c2b8e-6a4d-4e25-8b0c-2d9e7a1f5c44"`
	Name     string  `json:"name" example:"Maria"`
	Score    float64 `json:"score" example:"0.91"`
}

type BoundingBoxResponse struct {
	X      float64 `json:"x" example:"120"`
	Y      float64 `json:"y" example:"80"`
	Width  float64 `json:"width" example:"200"`
	Height float64 `json:"height" example:"240"`
}

type RecognitionEventResponse struct {
	EventID         string               `json:"event_id" example:"d290f1ee-6c54-4b01-90e6-d701748f0851"`
	SessionID       string               `json:"session_id" example:"7c9e6679-7425-40de-944b-e07fc1f90ae7"`
	Status          string               `json:"status" example:"identified"`
	ConfidenceBand  string               `json:"confidence_band" example:"high"`
	ConfidenceScore float64              `json:"confidence_score" example:"0.91"`
	Gap             float64              `json:"gap" example:"0.2"`
	WinnerPersonID  string               `json:"winner_person_id,omitempty" example:"3f1c2b8e-6a4d-4e25-8b0c-2d9e7a1f5c44"`
	RecognizedName  string               `json:"recognized_name,omitempty" example:"Maria"`
	Candidates      []CandidateResponse  `json:"candidates"`
	NeedsTieBreak   bool                 `json:"needs_tie_break" example:"false"`
	Extractor       string               `json:"extractor,omitempty" example:"deepface:ArcFace"`
	PrimaryBBox     *BoundingBoxResponse `json:"primary_bbox,omitempty"`
	CreatedAt       string               `json:"created_at" example:"2024-01-01T00:00:00Z"`
	ResolvedAt      string               `json:"resolved_at,omitempty" example:"2024-01-01T00:00:05Z"`
}

type TieBreakRequest struct {
	EventID          string `json:"event_id,omitempty" example:"d290f1ee-6c54-4b01-90e6-d701748f0851"`
	SelectedPersonID string `json:"selected_person_id" example:"3f1c2b8e-6a4d-4e25-8b0c-2d9e7a1f5c44"`
}

type HealthResponse struct {
	Status  string `json:"status" example:"ok"`
	Version string `json:"version,omitempty" example:"0.1.0"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Code    string `json:"code" example:"VALIDATION_FAILED"`
	Message string `json:"message" example:"Request validation failed"`
	Details string `json:"details,omitempty" example:"name is required"`
}

// EmptyResponse represents no content response (204)
type EmptyResponse struct{}

var internalError = response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error")

func badRequest(message string) response.Response {
	return response.New(ErrorResponse{Code: "BAD_REQUEST", Message: message}, "400", "Bad Request")
}

func notFound(code, message string) response.Response {
	return response.New(ErrorResponse{Code: code, Message: message}, "404", "Not Found")
}

func NewSwagger() *swagno.Swagger {
	sw := swagno.New(swagno.Config{
		Title:       "Recall Recognition API",
		Version:     "v1.0.0",
		Description: "Identity matching engine: enroll people from reference samples, submit frames and resolve ambiguous recognitions",
		Host:        "localhost:3000",
		Path:        "/v1",
	})

	endpoints := []*endpoint.EndPoint{
		// Subjects

		endpoint.New(
			endpoint.POST,
			"/subjects",
			endpoint.WithTags("Subjects"),
			endpoint.WithSummary("Create a subject"),
			endpoint.WithDescription("Creates the scope that owns enrolled people and recognition sessions"),
			endpoint.WithBody(CreateSubjectRequest{}),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(SubjectResponse{}, "201", "Subject created"),
			}),
			endpoint.WithErrors([]response.Response{
				badRequest("Malformed body"),
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "Request validation failed"}, "422", "Unprocessable Entity"),
				internalError,
			}),
		),

		endpoint.New(
			endpoint.GET,
			"/subjects/{subject_id}",
			endpoint.WithTags("Subjects"),
			endpoint.WithSummary("Get a subject"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("subject_id", parameter.Path, parameter.WithDescription("Subject ID")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(SubjectResponse{}, "200", "Subject found"),
			}),
			endpoint.WithErrors([]response.Response{
				notFound("SUBJECT_NOT_FOUND", "Subject not found"),
				internalError,
			}),
		),

		endpoint.New(
			endpoint.POST,
			"/subjects/{subject_id}/sessions",
			endpoint.WithTags("Subjects"),
			endpoint.WithSummary("Open a recognition session"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("subject_id", parameter.Path, parameter.WithDescription("Subject ID")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(SessionResponse{}, "201", "Session created"),
			}),
			endpoint.WithErrors([]response.Response{
				notFound("SUBJECT_NOT_FOUND", "Subject not found"),
				internalError,
			}),
		),

		// People

		endpoint.New(
			endpoint.GET,
			"/subjects/{subject_id}/people",
			endpoint.WithTags("People"),
			endpoint.WithSummary("List enrolled people"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("subject_id", parameter.Path, parameter.WithDescription("Subject ID")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(ListPeopleResponse{}, "200", "People of the subject"),
			}),
			endpoint.WithErrors([]response.Response{
				notFound("SUBJECT_NOT_FOUND", "Subject not found"),
				internalError,
			}),
		),

		endpoint.New(
			endpoint.POST,
			"/subjects/{subject_id}/people",
			endpoint.WithTags("People"),
			endpoint.WithSummary("Enroll a person"),
			endpoint.WithDescription("Creates a person without samples. The person takes part in recognition once a sample yields an embedding."),
			endpoint.WithBody(CreatePersonRequest{}),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("subject_id", parameter.Path, parameter.WithDescription("Subject ID")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(PersonResponse{}, "201", "Person created"),
			}),
			endpoint.WithErrors([]response.Response{
				badRequest("Malformed body"),
				notFound("SUBJECT_NOT_FOUND", "Subject not found"),
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "Request validation failed"}, "422", "Unprocessable Entity"),
				internalError,
			}),
		),

		endpoint.New(
			endpoint.GET,
			"/people/{person_id}",
			endpoint.WithTags("People"),
			endpoint.WithSummary("Get a person with its samples"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("person_id", parameter.Path, parameter.WithDescription("Person ID")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(PersonResponse{}, "200", "Person found"),
			}),
			endpoint.WithErrors([]response.Response{
				notFound("PERSON_NOT_FOUND", "Person not found"),
				internalError,
			}),
		),

		endpoint.New(
			endpoint.DELETE,
			"/people/{person_id}",
			endpoint.WithTags("People"),
			endpoint.WithSummary("Delete a person"),
			endpoint.WithDescription("Removes the person, its samples and every cached sample embedding"),
			endpoint.WithParams(
				parameter.StrParam("person_id", parameter.Path, parameter.WithDescription("Person ID")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EmptyResponse{}, "204", "Person deleted"),
			}),
			endpoint.WithErrors([]response.Response{
				notFound("PERSON_NOT_FOUND", "Person not found"),
				internalError,
			}),
		),

		endpoint.New(
			endpoint.POST,
			"/people/{person_id}/samples",
			endpoint.WithTags("People"),
			endpoint.WithSummary("Add a reference sample"),
			endpoint.WithDescription("Registers a sample by locator (http, https, s3 or file) and rebuilds the centroid"),
			endpoint.WithBody(AddSampleRequest{}),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("person_id", parameter.Path, parameter.WithDescription("Person ID")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(AddSampleResponse{}, "201", "Sample added"),
			}),
			endpoint.WithErrors([]response.Response{
				notFound("PERSON_NOT_FOUND", "Person not found"),
				response.New(ErrorResponse{Code: "SAMPLE_ALREADY_EXISTS", Message: "Sample already registered for this person"}, "409", "Conflict"),
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "Request validation failed"}, "422", "Unprocessable Entity"),
				internalError,
			}),
		),

		endpoint.New(
			endpoint.DELETE,
			"/people/{person_id}/samples/{sample_id}",
			endpoint.WithTags("People"),
			endpoint.WithSummary("Remove a reference sample"),
			endpoint.WithDescription("Deletes the sample, drops its cached embedding and rebuilds the centroid"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("person_id", parameter.Path, parameter.WithDescription("Person ID")),
				parameter.StrParam("sample_id", parameter.Path, parameter.WithDescription("Sample ID")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(PersonResponse{}, "200", "Sample removed"),
			}),
			endpoint.WithErrors([]response.Response{
				notFound("SAMPLE_NOT_FOUND", "Sample not found"),
				internalError,
			}),
		),

		endpoint.New(
			endpoint.POST,
			"/people/{person_id}/centroid",
			endpoint.WithTags("People"),
			endpoint.WithSummary("Rebuild the centroid"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("person_id", parameter.Path, parameter.WithDescription("Person ID")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(PersonResponse{}, "200", "Centroid rebuilt"),
			}),
			endpoint.WithErrors([]response.Response{
				notFound("PERSON_NOT_FOUND", "Person not found"),
				internalError,
			}),
		),

		// Recognition

		endpoint.New(
			endpoint.POST,
			"/sessions/{session_id}/frame",
			endpoint.WithTags("Recognition"),
			endpoint.WithSummary("Submit a frame"),
			endpoint.WithDescription("Classifies the probe against every enrolled person of the session's subject. Send a multipart 'frame' file, or a 'seed' form value in development. A frame without a detectable subject yields status unknown."),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("session_id", parameter.Path, parameter.WithDescription("Session ID")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(RecognitionEventResponse{}, "200", "Recognition decided"),
			}),
			endpoint.WithErrors([]response.Response{
				notFound("SESSION_NOT_FOUND", "Session not found"),
				response.New(ErrorResponse{Code: "INVALID_IMAGE", Message: "Invalid image"}, "422", "Unprocessable Entity"),
				internalError,
			}),
		),

		endpoint.New(
			endpoint.POST,
			"/sessions/{session_id}/tiebreak",
			endpoint.WithTags("Recognition"),
			endpoint.WithSummary("Resolve an ambiguous recognition"),
			endpoint.WithDescription("Confirms one of the candidates of a pending event. Without event_id the session's latest pending event is resolved."),
			endpoint.WithBody(TieBreakRequest{}),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("session_id", parameter.Path, parameter.WithDescription("Session ID")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(RecognitionEventResponse{}, "200", "Event resolved"),
			}),
			endpoint.WithErrors([]response.Response{
				notFound("EVENT_NOT_FOUND", "Recognition event not found"),
				response.New(ErrorResponse{Code: "INVALID_TIE_BREAK", Message: "Tie-break request is not valid for this event"}, "409", "Event is not awaiting a tie-break"),
				response.New(ErrorResponse{Code: "INVALID_TIE_BREAK", Message: "Tie-break request is not valid for this event"}, "422", "Selected person is not a candidate"),
				internalError,
			}),
		),

		endpoint.New(
			endpoint.GET,
			"/sessions/{session_id}/result/{event_id}",
			endpoint.WithTags("Recognition"),
			endpoint.WithSummary("Get a recognition event"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("session_id", parameter.Path, parameter.WithDescription("Session ID")),
				parameter.StrParam("event_id", parameter.Path, parameter.WithDescription("Event ID")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(RecognitionEventResponse{}, "200", "Event found"),
			}),
			endpoint.WithErrors([]response.Response{
				notFound("EVENT_NOT_FOUND", "Recognition event not found"),
				internalError,
			}),
		),
	}

	sw.AddEndpoints(endpoints)

	return sw
}
