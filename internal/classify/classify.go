// Package classify decides which settlement bucket a stored document
// belongs to based on a single extraction service call.
package classify

import (
	"github.com/quartalhq/quartal/internal/extraction"
)

// Kind discriminates classification outcomes.
type Kind string

const (
	// KindClassified means year and quarter were both determined.
	KindClassified Kind = "classified"
	// KindAmbiguous means the year was determined but the quarter was not.
	KindAmbiguous Kind = "ambiguous"
	// KindFailed means the document could not be classified at all.
	KindFailed Kind = "failed"
)

// Outcome is the result of classifying one document.
// Year is set for classified and ambiguous outcomes, Quarter only for
// classified ones, and Reason only for failed ones. Extraction carries the
// captured result for classified and ambiguous outcomes.
type Outcome struct {
	Kind       Kind
	Year       int
	Quarter    int
	Extraction *extraction.Result
	Reason     string
}

// Classified builds a classified outcome.
func Classified(year, quarter int, result *extraction.Result) Outcome {
	return Outcome{Kind: KindClassified, Year: year, Quarter: quarter, Extraction: result}
}

// Ambiguous builds an ambiguous outcome awaiting manual quarter resolution.
func Ambiguous(year int, result *extraction.Result) Outcome {
	return Outcome{Kind: KindAmbiguous, Year: year, Extraction: result}
}

// Failed builds a failed outcome with a human-readable reason.
func Failed(reason string) Outcome {
	return Outcome{Kind: KindFailed, Reason: reason}
}
