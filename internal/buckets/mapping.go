package buckets

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/quartalhq/quartal/internal/extraction"
	"github.com/quartalhq/quartal/pkg/query"
	"github.com/quartalhq/quartal/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "settlements", "s").
	Project("id", "ID").
	Project("practice_id", "PracticeID").
	Project("year", "Year").
	Project("quarter", "Quarter").
	Project("total_amount", "TotalAmount").
	Project("total_patients", "TotalPatients").
	Project("total_cases", "TotalCases").
	Project("average_per_case", "AveragePerCase").
	Project("average_per_patient", "AveragePerPatient").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = []query.SortField{
	{Field: "Year", Descending: true},
	{Field: "Quarter", Descending: true},
}

func scanBucket(s repository.Scanner) (Bucket, error) {
	var b Bucket
	err := s.Scan(
		&b.ID,
		&b.PracticeID,
		&b.Year,
		&b.Quarter,
		&b.Rollup.TotalAmount,
		&b.Rollup.TotalPatients,
		&b.Rollup.TotalCases,
		&b.Rollup.AveragePerCase,
		&b.Rollup.AveragePerPatient,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	return b, err
}

const fileColumns = `f.id, f.url, f.storage_key, f.original_name, f.byte_size, f.page_count, f.uploaded_at,
	f.total_amount, f.patient_count, f.case_count, f.region, f.extraction_error, f.extracted_at`

func scanFile(s repository.Scanner) (File, error) {
	var (
		f           File
		amount      decimal.NullDecimal
		patients    *int
		cases       *int
		region      *string
		errText     *string
		extractedAt *time.Time
	)

	err := s.Scan(
		&f.ID,
		&f.URL,
		&f.StorageKey,
		&f.OriginalName,
		&f.ByteSize,
		&f.PageCount,
		&f.UploadedAt,
		&amount,
		&patients,
		&cases,
		&region,
		&errText,
		&extractedAt,
	)
	if err != nil {
		return f, err
	}

	if extractedAt != nil {
		var amountPtr *decimal.Decimal
		if amount.Valid {
			amountPtr = &amount.Decimal
		}
		f.Extraction = &extraction.Result{
			TotalAmount:  amountPtr,
			PatientCount: patients,
			CaseCount:    cases,
			Region:       region,
			Error:        errText,
			ExtractedAt:  *extractedAt,
		}
	}

	return f, nil
}

// extractionArgs flattens an optional extraction result into the nullable
// column argument order used by file insert and update statements.
func extractionArgs(r *extraction.Result) []any {
	if r == nil {
		return []any{decimal.NullDecimal{}, (*int)(nil), (*int)(nil), (*string)(nil), (*string)(nil), (*time.Time)(nil)}
	}
	if r.Failed() {
		return []any{decimal.NullDecimal{}, (*int)(nil), (*int)(nil), (*string)(nil), r.Error, &r.ExtractedAt}
	}
	return []any{
		nullDecimal(r.TotalAmount),
		r.PatientCount,
		r.CaseCount,
		r.Region,
		r.Error,
		&r.ExtractedAt,
	}
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}
