// Package resolutions implements the manual resolution queue for settlement
// files whose year was detected but whose quarter was not. Items wait here
// until a person assigns a quarter or discards the file.
package resolutions

import (
	"time"

	"github.com/google/uuid"

	"github.com/quartalhq/quartal/internal/buckets"
)

// Resolution is one pending queue item. File carries the stored document
// and the extraction result captured at classification time, so resolving
// never re-runs extraction.
type Resolution struct {
	PracticeID   uuid.UUID    `json:"practice_id"`
	DetectedYear int          `json:"detected_year"`
	File         buckets.File `json:"file"`
	EnqueuedAt   time.Time    `json:"enqueued_at"`
}

// EnqueueCommand carries the data needed to queue a file for manual
// quarter resolution.
type EnqueueCommand struct {
	PracticeID   uuid.UUID
	DetectedYear int
	File         buckets.File
}
