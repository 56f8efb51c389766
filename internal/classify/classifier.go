package classify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/quartalhq/quartal/internal/extraction"
)

// Classifier turns extraction service responses into bucket assignments.
type Classifier struct {
	svc     extraction.Service
	policy  Policy
	timeout time.Duration
	logger  *slog.Logger
}

// New creates a Classifier. A nil policy falls back to StrictPolicy.
func New(svc extraction.Service, policy Policy, timeout time.Duration, logger *slog.Logger) *Classifier {
	if policy == nil {
		policy = StrictPolicy{}
	}
	return &Classifier{
		svc:     svc,
		policy:  policy,
		timeout: timeout,
		logger:  logger.With("system", "classify"),
	}
}

// Classify runs one extraction call for the stored document and maps the
// response to an Outcome. Errors never escape; every failure mode becomes
// a failed outcome.
func (c *Classifier) Classify(ctx context.Context, documentURL, contentType string) Outcome {
	if !extractable(contentType) {
		return Failed(fmt.Sprintf("unsupported document format for automated extraction: %s", contentType))
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	fields, err := c.svc.Extract(ctx, documentURL)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			c.logger.Warn("extraction timed out", "url", documentURL, "timeout", c.timeout)
			return Failed("extraction timed out")
		}
		c.logger.Warn("extraction failed", "url", documentURL, "error", err)
		return Failed(fmt.Sprintf("extraction failed: %v", err))
	}

	if fields.Year == nil || *fields.Year < 1990 || *fields.Year > 2100 {
		return Failed("no settlement year detected")
	}

	result := extraction.ResultFromFields(fields, time.Now().UTC())

	if quarter, ok := c.policy.AcceptQuarter(fields); ok {
		return Classified(*fields.Year, quarter, result)
	}

	return Ambiguous(*fields.Year, result)
}

// extractable reports whether the vision model can analyze the content type.
// Scanned settlements arrive as images; other accepted upload types still
// require manual handling.
func extractable(contentType string) bool {
	return strings.HasPrefix(contentType, "image/")
}
