package buckets

import (
	"errors"
	"net/http"
)

// Domain errors for bucket operations.
var (
	ErrBucketNotFound   = errors.New("settlement bucket not found")
	ErrFileNotFound     = errors.New("settlement file not found")
	ErrDuplicateFile    = errors.New("settlement file already exists")
	ErrInvalidQuarter   = errors.New("quarter must be between 1 and 4")
	ErrInvalidYear      = errors.New("invalid settlement year")
	ErrExtractionFailed = errors.New("extraction failed")
)

// MapHTTPStatus maps bucket domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrBucketNotFound) || errors.Is(err, ErrFileNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicateFile) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrInvalidQuarter) || errors.Is(err, ErrInvalidYear) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrExtractionFailed) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
