// Package buckets implements the settlement bucket store. A bucket holds
// every settlement file a practice uploaded for one (year, quarter) pair
// together with a rollup over the files' extraction results.
package buckets

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/quartalhq/quartal/internal/extraction"
	"github.com/quartalhq/quartal/internal/rollup"
)

// Bucket is one practice's settlement bucket for a year and quarter.
// Rollup is recomputed inside the same transaction as every file mutation,
// so readers never observe a stale aggregate.
type Bucket struct {
	ID         uuid.UUID     `json:"id"`
	PracticeID uuid.UUID     `json:"practice_id"`
	Year       int           `json:"year"`
	Quarter    int           `json:"quarter"`
	Rollup     rollup.Rollup `json:"rollup"`
	Files      []File        `json:"files"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// File is a stored settlement document inside a bucket.
// Extraction is nil until an extraction result has been recorded.
type File struct {
	ID           uuid.UUID          `json:"id"`
	URL          string             `json:"url"`
	StorageKey   string             `json:"storage_key"`
	OriginalName string             `json:"original_name"`
	ByteSize     int64              `json:"byte_size"`
	PageCount    *int               `json:"page_count"`
	UploadedAt   time.Time          `json:"uploaded_at"`
	Extraction   *extraction.Result `json:"extraction"`
}

// AddFileCommand carries the data needed to place a stored file into a
// bucket, creating the bucket on first use. A zero File.ID is assigned.
//
// Companion, when set, runs inside the same transaction as the file insert
// and rollup update. A companion error rolls the whole add back; callers use
// it to move a file from another table into the bucket atomically.
type AddFileCommand struct {
	PracticeID uuid.UUID
	Year       int
	Quarter    int
	File       File
	Companion  func(ctx context.Context, tx *sql.Tx) error
}

// rollupInputs projects the files onto the aggregator's input shape.
// Files without a successful extraction contribute nothing; a successful
// extraction with no reported amount keeps a nil Amount.
func rollupInputs(files []File) []rollup.Input {
	inputs := make([]rollup.Input, 0, len(files))
	for _, f := range files {
		in := rollup.Input{Failed: f.Extraction == nil || f.Extraction.Failed()}
		if !in.Failed {
			in.Amount = f.Extraction.TotalAmount
			in.Patients = f.Extraction.PatientCount
			in.Cases = f.Extraction.CaseCount
		}
		inputs = append(inputs, in)
	}
	return inputs
}
