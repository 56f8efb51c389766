package resolutions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/quartalhq/quartal/internal/buckets"
	"github.com/quartalhq/quartal/pkg/pagination"
	"github.com/quartalhq/quartal/pkg/query"
	"github.com/quartalhq/quartal/pkg/repository"
	"github.com/quartalhq/quartal/pkg/storage"
)

const insertResolutionSQL = `
	INSERT INTO pending_resolutions (
		file_id, practice_id, detected_year, url, storage_key, original_name,
		byte_size, page_count, uploaded_at,
		total_amount, patient_count, case_count, region, extraction_error, extracted_at,
		enqueued_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

const deleteResolutionSQL = `
	DELETE FROM pending_resolutions
	WHERE file_id = $1 AND practice_id = $2`

type repo struct {
	db         *sql.DB
	buckets    buckets.System
	storage    storage.System
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a resolution queue repository implementing the System interface.
func New(
	db *sql.DB,
	bucketSys buckets.System,
	store storage.System,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		buckets:    bucketSys,
		storage:    store,
		logger:     logger.With("system", "resolutions"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	practiceID uuid.UUID,
	page pagination.PageRequest,
) (*pagination.PageResult[Resolution], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereEquals("PracticeID", practiceID).
		WhereSearch(page.Search, "OriginalName", "Region")

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count pending resolutions: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanResolution)
	if err != nil {
		return nil, fmt.Errorf("query pending resolutions: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Next(ctx context.Context, practiceID uuid.UUID) (*Resolution, error) {
	q, args := query.
		NewBuilder(projection, defaultSort).
		WhereEquals("PracticeID", practiceID).
		BuildSingleOrNull()

	res, err := repository.QueryOne(ctx, r.db, q, args, scanResolution)
	if err != nil {
		return nil, repository.MapError(err, ErrNonePending, ErrDuplicate)
	}
	return &res, nil
}

func (r *repo) Enqueue(ctx context.Context, cmd EnqueueCommand) (*Resolution, error) {
	file := cmd.File
	if file.ID == uuid.Nil {
		file.ID = uuid.New()
	}
	if file.UploadedAt.IsZero() {
		file.UploadedAt = time.Now().UTC()
	}

	res := Resolution{
		PracticeID:   cmd.PracticeID,
		DetectedYear: cmd.DetectedYear,
		File:         file,
		EnqueuedAt:   time.Now().UTC(),
	}

	args := []any{
		file.ID, cmd.PracticeID, cmd.DetectedYear, file.URL, file.StorageKey,
		file.OriginalName, file.ByteSize, file.PageCount, file.UploadedAt,
	}
	args = append(args, extractionArgs(file.Extraction)...)
	args = append(args, res.EnqueuedAt)

	if _, err := r.db.ExecContext(ctx, insertResolutionSQL, args...); err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info(
		"file queued for quarter resolution",
		"practice_id", cmd.PracticeID,
		"file_id", file.ID,
		"detected_year", cmd.DetectedYear,
	)

	return &res, nil
}

func (r *repo) Resolve(ctx context.Context, practiceID, fileID uuid.UUID, quarter int) (*buckets.Bucket, error) {
	if quarter < 1 || quarter > 4 {
		return nil, ErrInvalidQuarter
	}

	res, err := r.find(ctx, practiceID, fileID)
	if err != nil {
		return nil, err
	}

	// The queue row delete rides in the bucket transaction so the file can
	// never exist in both places: a failed delete rolls the add back.
	bucket, err := r.buckets.AddFile(ctx, buckets.AddFileCommand{
		PracticeID: practiceID,
		Year:       res.DetectedYear,
		Quarter:    quarter,
		File:       res.File,
		Companion: func(ctx context.Context, tx *sql.Tx) error {
			if err := repository.ExecExpectOne(ctx, tx, deleteResolutionSQL, fileID, practiceID); err != nil {
				return repository.MapError(err, ErrNotFound, ErrDuplicate)
			}
			return nil
		},
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info(
		"resolution committed",
		"practice_id", practiceID,
		"file_id", fileID,
		"year", res.DetectedYear,
		"quarter", quarter,
	)

	return bucket, nil
}

func (r *repo) Cancel(ctx context.Context, practiceID, fileID uuid.UUID) error {
	res, err := r.find(ctx, practiceID, fileID)
	if err != nil {
		return err
	}

	if err := repository.ExecExpectOne(ctx, r.db, deleteResolutionSQL, fileID, practiceID); err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	if delErr := r.storage.Delete(ctx, res.File.StorageKey); delErr != nil && !errors.Is(delErr, storage.ErrNotFound) {
		r.logger.Warn(
			"blob delete failed after cancel",
			"key", res.File.StorageKey,
			"error", delErr,
		)
	}

	r.logger.Info("resolution cancelled", "practice_id", practiceID, "file_id", fileID)
	return nil
}

func (r *repo) find(ctx context.Context, practiceID, fileID uuid.UUID) (*Resolution, error) {
	q, args := query.
		NewBuilder(projection).
		WhereEquals("PracticeID", practiceID).
		WhereEquals("FileID", fileID).
		BuildSingleOrNull()

	res, err := repository.QueryOne(ctx, r.db, q, args, scanResolution)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &res, nil
}
