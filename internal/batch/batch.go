// Package batch implements batch submission of settlement documents.
// A batch uploads every file to blob storage, classifies each one, and
// commits outcomes as they complete while isolating per-file failures.
package batch

import (
	"github.com/google/uuid"

	"github.com/quartalhq/quartal/internal/classify"
)

// RawFile is one uploaded document before storage and classification.
type RawFile struct {
	Name        string
	ContentType string
	Data        []byte
	PageCount   *int
}

// FileResult reports the outcome of one file within a batch. Year is set
// for classified and ambiguous outcomes, Quarter only for classified ones,
// and Error only for failed ones.
type FileResult struct {
	Filename string        `json:"filename"`
	Outcome  classify.Kind `json:"outcome"`
	FileID   *uuid.UUID    `json:"file_id,omitempty"`
	Year     *int          `json:"year,omitempty"`
	Quarter  *int          `json:"quarter,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// Report is the synchronous response for a batch submission.
// Results preserves the submission order of the files.
type Report struct {
	PracticeID uuid.UUID    `json:"practice_id"`
	Results    []FileResult `json:"results"`
	Classified int          `json:"classified"`
	Ambiguous  int          `json:"ambiguous"`
	Failed     int          `json:"failed"`
}

func buildReport(practiceID uuid.UUID, results []FileResult) *Report {
	report := &Report{
		PracticeID: practiceID,
		Results:    results,
	}

	for _, r := range results {
		switch r.Outcome {
		case classify.KindClassified:
			report.Classified++
		case classify.KindAmbiguous:
			report.Ambiguous++
		default:
			report.Failed++
		}
	}

	return report
}
