package api

import (
	"errors"
	"net/http"

	"github.com/harunari/batchscan-api/internal/domain"
	"github.com/harunari/batchscan-api/internal/service"
	"github.com/harunari/batchscan-api/internal/store"
	"github.com/harunari/batchscan-api/internal/task"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, store.ErrSessionNotFound):
		return http.StatusNotFound

	case errors.Is(err, service.ErrNoValidFiles),
		errors.Is(err, service.ErrNoFailedResult),
		errors.Is(err, service.ErrNoFailedResults),
		errors.Is(err, domain.ErrNoFiles),
		errors.Is(err, domain.ErrFileIndexRange),
		errors.Is(err, domain.ErrEmptyFilename),
		errors.Is(err, domain.ErrEmptyFilePayload):
		return http.StatusBadRequest

	case errors.Is(err, task.ErrQueueFull),
		errors.Is(err, task.ErrRunnerClosed):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, store.ErrSessionNotFound):
		return "Session not found"

	case errors.Is(err, service.ErrNoValidFiles):
		return "No valid image files in request"

	case errors.Is(err, service.ErrNoFailedResult):
		return "No failed result at that file index"

	case errors.Is(err, service.ErrNoFailedResults):
		return "Session has no failed results to retry"

	case errors.Is(err, domain.ErrFileIndexRange):
		return "File index out of range"

	case errors.Is(err, domain.ErrNoFiles),
		errors.Is(err, domain.ErrEmptyFilename),
		errors.Is(err, domain.ErrEmptyFilePayload):
		return "Invalid file data"

	case errors.Is(err, task.ErrQueueFull),
		errors.Is(err, task.ErrRunnerClosed):
		return "Server is busy, try again later"

	default:
		return "An unexpected error occurred"
	}
}
