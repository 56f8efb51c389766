package resolutions

import (
	"errors"
	"net/http"

	"github.com/quartalhq/quartal/internal/buckets"
)

// Domain errors for resolution queue operations.
var (
	ErrNotFound       = errors.New("pending resolution not found")
	ErrNonePending    = errors.New("no pending resolutions")
	ErrDuplicate      = errors.New("file already queued for resolution")
	ErrInvalidQuarter = errors.New("quarter must be between 1 and 4")
)

// MapHTTPStatus maps resolution domain errors to appropriate HTTP status
// codes, deferring to the bucket mapping for errors raised while committing
// a resolved file.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrNonePending) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrInvalidQuarter) {
		return http.StatusBadRequest
	}
	return buckets.MapHTTPStatus(err)
}
