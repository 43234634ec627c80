package domain

import (
	"fmt"
)

type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any AppError carrying the same code, so sentinels still match
// after WithError has attached a cause.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    e.Message,
		StatusCode: e.StatusCode,
		Err:        err,
	}
}

// WithStatus returns a copy reported under a different HTTP status.
func (e *AppError) WithStatus(status int) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    e.Message,
		StatusCode: status,
		Err:        e.Err,
	}
}

// Pre-defined errors
var (
	ErrInternal = &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "An unexpected error occurred",
		StatusCode: 500,
	}

	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: 400,
	}

	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		StatusCode: 404,
	}

	ErrValidationFailed = &AppError{
		Code:       "VALIDATION_FAILED",
		Message:    "Request validation failed",
		StatusCode: 422,
	}

	ErrSubjectNotFound = &AppError{
		Code:       "SUBJECT_NOT_FOUND",
		Message:    "Subject not found",
		StatusCode: 404,
	}

	ErrSessionNotFound = &AppError{
		Code:       "SESSION_NOT_FOUND",
		Message:    "Session not found",
		StatusCode: 404,
	}

	ErrEventNotFound = &AppError{
		Code:       "EVENT_NOT_FOUND",
		Message:    "Recognition event not found",
		StatusCode: 404,
	}

	ErrPersonNotFound = &AppError{
		Code:       "PERSON_NOT_FOUND",
		Message:    "Person not found",
		StatusCode: 404,
	}

	ErrSampleNotFound = &AppError{
		Code:       "SAMPLE_NOT_FOUND",
		Message:    "Enrollment sample not found",
		StatusCode: 404,
	}

	ErrSampleExists = &AppError{
		Code:       "SAMPLE_ALREADY_EXISTS",
		Message:    "Enrollment sample already registered for this person",
		StatusCode: 409,
	}

	ErrInvalidImage = &AppError{
		Code:       "INVALID_IMAGE",
		Message:    "Invalid image format or corrupted file",
		StatusCode: 422,
	}

	// ErrNoFaceDetected is what extractors return when the input holds no
	// usable subject. The engine treats it as an absent embedding.
	ErrNoFaceDetected = &AppError{
		Code:       "NO_FACE_DETECTED",
		Message:    "No face detected in the image",
		StatusCode: 422,
	}

	// ErrSamplesUnavailable means every sample that yielded nothing failed to
	// load or extract, so the stored centroid was kept.
	ErrSamplesUnavailable = &AppError{
		Code:       "SAMPLES_UNAVAILABLE",
		Message:    "Enrollment samples could not be read, try again later",
		StatusCode: 503,
	}

	ErrInvalidTieBreak = &AppError{
		Code:       "INVALID_TIE_BREAK",
		Message:    "Tie-break request is not valid for this event",
		StatusCode: 409,
	}
)
