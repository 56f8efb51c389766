package batch

import (
	"errors"
	"net/http"
)

// Domain errors for batch submission.
var (
	ErrEmptyBatch      = errors.New("batch contains no files")
	ErrMissingPractice = errors.New("practice id required")
	ErrInvalidUpload   = errors.New("invalid upload")
	ErrFileTooLarge    = errors.New("upload exceeds maximum size")
)

// MapHTTPStatus maps batch domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrEmptyBatch) || errors.Is(err, ErrMissingPractice) || errors.Is(err, ErrInvalidUpload) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrFileTooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusInternalServerError
}
