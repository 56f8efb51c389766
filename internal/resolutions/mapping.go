package resolutions

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/quartalhq/quartal/internal/extraction"
	"github.com/quartalhq/quartal/pkg/query"
	"github.com/quartalhq/quartal/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "pending_resolutions", "r").
	Project("file_id", "FileID").
	Project("practice_id", "PracticeID").
	Project("detected_year", "DetectedYear").
	Project("url", "URL").
	Project("storage_key", "StorageKey").
	Project("original_name", "OriginalName").
	Project("byte_size", "ByteSize").
	Project("page_count", "PageCount").
	Project("uploaded_at", "UploadedAt").
	Project("total_amount", "TotalAmount").
	Project("patient_count", "PatientCount").
	Project("case_count", "CaseCount").
	Project("region", "Region").
	Project("extraction_error", "ExtractionError").
	Project("extracted_at", "ExtractedAt").
	Project("enqueued_at", "EnqueuedAt")

// FIFO: the oldest queued item resolves first.
var defaultSort = query.SortField{Field: "EnqueuedAt", Descending: false}

func scanResolution(s repository.Scanner) (Resolution, error) {
	var (
		res         Resolution
		amount      decimal.NullDecimal
		patients    *int
		cases       *int
		region      *string
		errText     *string
		extractedAt *time.Time
	)

	err := s.Scan(
		&res.File.ID,
		&res.PracticeID,
		&res.DetectedYear,
		&res.File.URL,
		&res.File.StorageKey,
		&res.File.OriginalName,
		&res.File.ByteSize,
		&res.File.PageCount,
		&res.File.UploadedAt,
		&amount,
		&patients,
		&cases,
		&region,
		&errText,
		&extractedAt,
		&res.EnqueuedAt,
	)
	if err != nil {
		return res, err
	}

	if extractedAt != nil {
		var amountPtr *decimal.Decimal
		if amount.Valid {
			amountPtr = &amount.Decimal
		}
		res.File.Extraction = &extraction.Result{
			TotalAmount:  amountPtr,
			PatientCount: patients,
			CaseCount:    cases,
			Region:       region,
			Error:        errText,
			ExtractedAt:  *extractedAt,
		}
	}

	return res, nil
}

func extractionArgs(r *extraction.Result) []any {
	if r == nil {
		return []any{decimal.NullDecimal{}, (*int)(nil), (*int)(nil), (*string)(nil), (*string)(nil), (*time.Time)(nil)}
	}
	if r.Failed() {
		return []any{decimal.NullDecimal{}, (*int)(nil), (*int)(nil), (*string)(nil), r.Error, &r.ExtractedAt}
	}
	amount := decimal.NullDecimal{}
	if r.TotalAmount != nil {
		amount = decimal.NullDecimal{Decimal: *r.TotalAmount, Valid: true}
	}
	return []any{
		amount,
		r.PatientCount,
		r.CaseCount,
		r.Region,
		r.Error,
		&r.ExtractedAt,
	}
}
