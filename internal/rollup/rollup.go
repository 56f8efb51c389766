// Package rollup computes per-bucket financial aggregates over the
// extraction results of a settlement bucket's files.
package rollup

import "github.com/shopspring/decimal"

// Input is the slice of an extraction result the rollup consumes.
// Failed inputs contribute nothing to any aggregate; a nil Amount means the
// amount is unknown and is excluded from the sum rather than treated as zero.
type Input struct {
	Amount   *decimal.Decimal
	Patients *int
	Cases    *int
	Failed   bool
}

// Rollup holds the aggregates for one settlement bucket.
// TotalPatients and TotalCases are nil when no contributing file reported
// the count; averages are nil when their denominator is zero or absent.
type Rollup struct {
	TotalAmount       decimal.Decimal  `json:"total_amount"`
	TotalPatients     *int             `json:"total_patients"`
	TotalCases        *int             `json:"total_cases"`
	AveragePerCase    *decimal.Decimal `json:"average_per_case"`
	AveragePerPatient *decimal.Decimal `json:"average_per_patient"`
}

// Compute aggregates the inputs into a Rollup. The result depends only on
// the multiset of inputs, never on their order. An empty slice yields a
// zero amount and nil counts.
func Compute(inputs []Input) Rollup {
	var r Rollup
	r.TotalAmount = decimal.Zero

	var patients, cases int
	var havePatients, haveCases bool

	for _, in := range inputs {
		if in.Failed {
			continue
		}

		if in.Amount != nil {
			r.TotalAmount = r.TotalAmount.Add(*in.Amount)
		}

		if in.Patients != nil {
			patients += *in.Patients
			havePatients = true
		}
		if in.Cases != nil {
			cases += *in.Cases
			haveCases = true
		}
	}

	r.TotalAmount = r.TotalAmount.Round(2)

	if havePatients {
		r.TotalPatients = &patients
		if patients > 0 {
			avg := r.TotalAmount.Div(decimal.NewFromInt(int64(patients))).Round(2)
			r.AveragePerPatient = &avg
		}
	}
	if haveCases {
		r.TotalCases = &cases
		if cases > 0 {
			avg := r.TotalAmount.Div(decimal.NewFromInt(int64(cases))).Round(2)
			r.AveragePerCase = &avg
		}
	}

	return r
}
