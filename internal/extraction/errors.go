package extraction

import "errors"

// Domain errors for extraction operations.
var (
	ErrServiceUnavailable = errors.New("extraction service unavailable")
	ErrUnparseable        = errors.New("unparseable extraction response")
)
