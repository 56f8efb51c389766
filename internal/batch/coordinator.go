package batch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/quartalhq/quartal/internal/buckets"
	"github.com/quartalhq/quartal/internal/classify"
	"github.com/quartalhq/quartal/internal/resolutions"
	"github.com/quartalhq/quartal/pkg/storage"
)

// Coordinator fans a batch of files across a bounded worker pool.
// Outcomes are committed as each file completes, not after the batch.
type Coordinator struct {
	storage       storage.System
	classifier    *classify.Classifier
	buckets       buckets.System
	resolutions   resolutions.System
	workers       int
	uploadTimeout time.Duration
	logger        *slog.Logger
}

// NewCoordinator creates a batch coordinator.
func NewCoordinator(
	store storage.System,
	classifier *classify.Classifier,
	bucketSys buckets.System,
	resolutionSys resolutions.System,
	cfg *Config,
	logger *slog.Logger,
) *Coordinator {
	return &Coordinator{
		storage:       store,
		classifier:    classifier,
		buckets:       bucketSys,
		resolutions:   resolutionSys,
		workers:       cfg.Workers,
		uploadTimeout: cfg.UploadTimeoutDuration(),
		logger:        logger.With("system", "batch"),
	}
}

// Handler returns the HTTP handler for batch submission.
func (c *Coordinator) Handler(maxUploadSize int64) *Handler {
	return NewHandler(c, c.logger, maxUploadSize)
}

// Submit processes every file of a batch and returns a report whose results
// preserve submission order. Per-file failures never fail the batch; only a
// missing practice id or an empty batch does. Files that started processing
// run to completion even when the caller's context is cancelled, so their
// committed outcomes stay committed.
func (c *Coordinator) Submit(ctx context.Context, practiceID uuid.UUID, files []RawFile) (*Report, error) {
	if practiceID == uuid.Nil {
		return nil, ErrMissingPractice
	}
	if len(files) == 0 {
		return nil, ErrEmptyBatch
	}

	detached := context.WithoutCancel(ctx)

	results := make([]FileResult, len(files))

	var g errgroup.Group
	g.SetLimit(c.workers)

	for i, f := range files {
		g.Go(func() error {
			results[i] = c.process(detached, practiceID, f)
			return nil
		})
	}

	g.Wait()

	report := buildReport(practiceID, results)

	c.logger.Info(
		"batch processed",
		"practice_id", practiceID,
		"files", len(files),
		"classified", report.Classified,
		"ambiguous", report.Ambiguous,
		"failed", report.Failed,
	)

	return report, nil
}

func (c *Coordinator) process(ctx context.Context, practiceID uuid.UUID, f RawFile) FileResult {
	result := FileResult{Filename: f.Name, Outcome: classify.KindFailed}

	if !acceptedUploadType(f.ContentType) {
		result.Error = fmt.Sprintf("unsupported file type: %s", f.ContentType)
		return result
	}

	fileID := uuid.New()
	key := buildStorageKey(practiceID, fileID, sanitizeFilename(f.Name))

	uploadCtx, cancel := context.WithTimeout(ctx, c.uploadTimeout)
	blobURL, err := c.storage.Upload(uploadCtx, key, bytes.NewReader(f.Data), f.ContentType)
	cancel()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			result.Error = "upload timed out"
		} else {
			result.Error = fmt.Sprintf("upload failed: %v", err)
		}
		c.logger.Warn("file upload failed", "filename", f.Name, "error", err)
		return result
	}

	outcome := c.classifier.Classify(ctx, blobURL, f.ContentType)

	stored := buckets.File{
		ID:           fileID,
		URL:          blobURL,
		StorageKey:   key,
		OriginalName: f.Name,
		ByteSize:     int64(len(f.Data)),
		PageCount:    f.PageCount,
		UploadedAt:   time.Now().UTC(),
		Extraction:   outcome.Extraction,
	}

	switch outcome.Kind {
	case classify.KindClassified:
		_, err := c.buckets.AddFile(ctx, buckets.AddFileCommand{
			PracticeID: practiceID,
			Year:       outcome.Year,
			Quarter:    outcome.Quarter,
			File:       stored,
		})
		if err != nil {
			c.discardBlob(ctx, key)
			result.Error = fmt.Sprintf("bucket commit failed: %v", err)
			return result
		}
		result.Outcome = classify.KindClassified
		result.FileID = &fileID
		result.Year = &outcome.Year
		result.Quarter = &outcome.Quarter

	case classify.KindAmbiguous:
		_, err := c.resolutions.Enqueue(ctx, resolutions.EnqueueCommand{
			PracticeID:   practiceID,
			DetectedYear: outcome.Year,
			File:         stored,
		})
		if err != nil {
			c.discardBlob(ctx, key)
			result.Error = fmt.Sprintf("resolution enqueue failed: %v", err)
			return result
		}
		result.Outcome = classify.KindAmbiguous
		result.FileID = &fileID
		result.Year = &outcome.Year

	default:
		c.discardBlob(ctx, key)
		result.Error = outcome.Reason
	}

	return result
}

// discardBlob removes the blob of a file that ended up in no store.
func (c *Coordinator) discardBlob(ctx context.Context, key string) {
	if err := c.storage.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
		c.logger.Warn("discard blob delete failed", "key", key, "error", err)
	}
}

func acceptedUploadType(contentType string) bool {
	if strings.HasPrefix(contentType, "image/") {
		return true
	}
	switch contentType {
	case "application/pdf",
		"application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return true
	}
	return false
}

func buildStorageKey(practiceID, fileID uuid.UUID, filename string) string {
	return fmt.Sprintf("practices/%s/%s/%s", practiceID, fileID, filename)
}

func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	if name == "." || name == "" {
		name = "settlement"
	}
	return url.PathEscape(name)
}
