// Package extraction implements the AI extraction service for settlement
// documents. It sends a stored document image to a vision model and parses
// the structured fields the model reports.
package extraction

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Service defines the contract for extracting settlement fields from a
// stored document. Implementations make exactly one model call per Extract.
type Service interface {
	Extract(ctx context.Context, documentURL string) (*Fields, error)
}

// Fields holds the raw fields reported by the extraction model.
// Every field is optional; nil means the model did not report a value,
// which is distinct from a reported zero.
type Fields struct {
	Year         *int             `json:"year"`
	Quarter      *int             `json:"quarter"`
	TotalAmount  *decimal.Decimal `json:"total_amount"`
	PatientCount *int             `json:"patient_count"`
	CaseCount    *int             `json:"case_count"`
	Region       *string          `json:"region"`
}

// Result is the extraction outcome persisted alongside a settlement file.
// Error and the value fields are mutually exclusive: a failed extraction
// carries only Error, a successful one never does. A nil value field means
// the model did not report it; an unknown amount is never coerced to zero.
type Result struct {
	TotalAmount  *decimal.Decimal `json:"total_amount"`
	PatientCount *int             `json:"patient_count"`
	CaseCount    *int             `json:"case_count"`
	Region       *string          `json:"region"`
	Error        *string          `json:"error,omitempty"`
	ExtractedAt  time.Time        `json:"extracted_at"`
}

// Failed reports whether the extraction carries an error instead of values.
func (r *Result) Failed() bool {
	return r != nil && r.Error != nil
}

// ResultFromFields converts a successful model response into a Result.
// Absent fields stay nil; a reported amount is rounded to two fraction digits.
func ResultFromFields(f *Fields, at time.Time) *Result {
	r := &Result{ExtractedAt: at}
	if f == nil {
		return r
	}
	if f.TotalAmount != nil {
		rounded := f.TotalAmount.Round(2)
		r.TotalAmount = &rounded
	}
	r.PatientCount = f.PatientCount
	r.CaseCount = f.CaseCount
	r.Region = f.Region
	return r
}

// FailedResult builds a Result carrying only an error description.
func FailedResult(reason string, at time.Time) *Result {
	return &Result{Error: &reason, ExtractedAt: at}
}
