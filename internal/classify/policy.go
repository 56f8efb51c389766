package classify

import "github.com/quartalhq/quartal/internal/extraction"

// Policy decides whether extracted fields pin down a settlement quarter.
// Implementations return the accepted quarter and true, or false when the
// fields are not conclusive enough.
type Policy interface {
	AcceptQuarter(f *extraction.Fields) (int, bool)
}

// StrictPolicy accepts a quarter only when the extraction service reports
// one explicitly and it falls in 1..4.
type StrictPolicy struct{}

func (StrictPolicy) AcceptQuarter(f *extraction.Fields) (int, bool) {
	if f == nil || f.Quarter == nil {
		return 0, false
	}
	if *f.Quarter < 1 || *f.Quarter > 4 {
		return 0, false
	}
	return *f.Quarter, true
}
