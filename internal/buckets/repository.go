package buckets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/quartalhq/quartal/internal/extraction"
	"github.com/quartalhq/quartal/internal/rollup"
	"github.com/quartalhq/quartal/pkg/query"
	"github.com/quartalhq/quartal/pkg/repository"
	"github.com/quartalhq/quartal/pkg/storage"
)

const upsertBucketSQL = `
	INSERT INTO settlements (id, practice_id, year, quarter)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (practice_id, year, quarter)
	DO UPDATE SET updated_at = now()
	RETURNING id`

const insertFileSQL = `
	INSERT INTO settlement_files (
		id, settlement_id, url, storage_key, original_name, byte_size, page_count, uploaded_at,
		total_amount, patient_count, case_count, region, extraction_error, extracted_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

const selectFilesSQL = `SELECT ` + fileColumns + `
	FROM settlement_files f
	WHERE f.settlement_id = $1
	ORDER BY f.uploaded_at, f.id`

const selectBucketIDSQL = `
	SELECT id FROM settlements
	WHERE practice_id = $1 AND year = $2 AND quarter = $3`

const updateFileExtractionSQL = `
	UPDATE settlement_files
	SET total_amount = $1, patient_count = $2, case_count = $3, region = $4,
		extraction_error = $5, extracted_at = $6
	WHERE id = $7 AND settlement_id = $8`

const updateRollupSQL = `
	UPDATE settlements
	SET total_amount = $1, total_patients = $2, total_cases = $3,
		average_per_case = $4, average_per_patient = $5, updated_at = now()
	WHERE id = $6`

type repo struct {
	db        *sql.DB
	storage   storage.System
	extractor extraction.Service
	timeout   time.Duration
	logger    *slog.Logger
	locks     *keyedMutex
}

// New creates a bucket repository implementing the System interface.
// The extraction service and timeout serve the re-analysis operations.
func New(
	db *sql.DB,
	store storage.System,
	extractor extraction.Service,
	timeout time.Duration,
	logger *slog.Logger,
) System {
	return &repo{
		db:        db,
		storage:   store,
		extractor: extractor,
		timeout:   timeout,
		logger:    logger.With("system", "buckets"),
		locks:     newKeyedMutex(),
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger)
}

func (r *repo) List(ctx context.Context, practiceID uuid.UUID) ([]Bucket, error) {
	q, args := query.
		NewBuilder(projection, defaultSort...).
		WhereEquals("PracticeID", practiceID).
		Build()

	bucketList, err := repository.QueryMany(ctx, r.db, q, args, scanBucket)
	if err != nil {
		return nil, fmt.Errorf("query settlement buckets: %w", err)
	}

	for i := range bucketList {
		files, err := repository.QueryMany(
			ctx, r.db,
			selectFilesSQL,
			[]any{bucketList[i].ID},
			scanFile,
		)
		if err != nil {
			return nil, fmt.Errorf("query settlement files: %w", err)
		}
		bucketList[i].Files = files
	}

	return bucketList, nil
}

func (r *repo) Find(ctx context.Context, practiceID uuid.UUID, year, quarter int) (*Bucket, error) {
	q, args := query.
		NewBuilder(projection).
		WhereEquals("PracticeID", practiceID).
		WhereEquals("Year", year).
		WhereEquals("Quarter", quarter).
		BuildSingleOrNull()

	b, err := repository.QueryOne(ctx, r.db, q, args, scanBucket)
	if err != nil {
		return nil, repository.MapError(err, ErrBucketNotFound, ErrDuplicateFile)
	}

	files, err := repository.QueryMany(ctx, r.db, selectFilesSQL, []any{b.ID}, scanFile)
	if err != nil {
		return nil, fmt.Errorf("query settlement files: %w", err)
	}
	b.Files = files

	return &b, nil
}

func (r *repo) AddFile(ctx context.Context, cmd AddFileCommand) (*Bucket, error) {
	if err := validateBucketKey(cmd.Year, cmd.Quarter); err != nil {
		return nil, err
	}

	file := cmd.File
	if file.ID == uuid.Nil {
		file.ID = uuid.New()
	}
	if file.UploadedAt.IsZero() {
		file.UploadedAt = time.Now().UTC()
	}

	unlock := r.locks.Lock(bucketKey(cmd.PracticeID, cmd.Year, cmd.Quarter))
	defer unlock()

	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		var bucketID uuid.UUID
		if err := tx.QueryRowContext(
			ctx, upsertBucketSQL,
			uuid.New(), cmd.PracticeID, cmd.Year, cmd.Quarter,
		).Scan(&bucketID); err != nil {
			return struct{}{}, fmt.Errorf("upsert bucket: %w", err)
		}

		args := []any{
			file.ID, bucketID, file.URL, file.StorageKey,
			file.OriginalName, file.ByteSize, file.PageCount, file.UploadedAt,
		}
		args = append(args, extractionArgs(file.Extraction)...)

		if _, err := tx.ExecContext(ctx, insertFileSQL, args...); err != nil {
			return struct{}{}, err
		}

		if err := r.recomputeRollup(ctx, tx, bucketID); err != nil {
			return struct{}{}, err
		}

		if cmd.Companion != nil {
			return struct{}{}, cmd.Companion(ctx, tx)
		}
		return struct{}{}, nil
	})
	if err != nil {
		return nil, repository.MapError(err, ErrBucketNotFound, ErrDuplicateFile)
	}

	r.logger.Info(
		"file added to bucket",
		"practice_id", cmd.PracticeID,
		"year", cmd.Year,
		"quarter", cmd.Quarter,
		"file_id", file.ID,
	)

	return r.Find(ctx, cmd.PracticeID, cmd.Year, cmd.Quarter)
}

func (r *repo) RemoveFile(ctx context.Context, practiceID uuid.UUID, year, quarter int, fileID uuid.UUID) (*Bucket, error) {
	unlock := r.locks.Lock(bucketKey(practiceID, year, quarter))
	defer unlock()

	storageKey, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (string, error) {
		bucketID, err := findBucketID(ctx, tx, practiceID, year, quarter)
		if err != nil {
			return "", err
		}

		var key string
		if err := tx.QueryRowContext(
			ctx,
			"SELECT storage_key FROM settlement_files WHERE id = $1 AND settlement_id = $2",
			fileID, bucketID,
		).Scan(&key); err != nil {
			return "", repository.MapError(err, ErrFileNotFound, ErrDuplicateFile)
		}

		if err := repository.ExecExpectOne(
			ctx, tx,
			"DELETE FROM settlement_files WHERE id = $1 AND settlement_id = $2",
			fileID, bucketID,
		); err != nil {
			return "", repository.MapError(err, ErrFileNotFound, ErrDuplicateFile)
		}

		return key, r.recomputeRollup(ctx, tx, bucketID)
	})
	if err != nil {
		return nil, err
	}

	if delErr := r.storage.Delete(ctx, storageKey); delErr != nil && !errors.Is(delErr, storage.ErrNotFound) {
		r.logger.Warn("blob delete failed after file removal", "key", storageKey, "error", delErr)
	}

	r.logger.Info(
		"file removed from bucket",
		"practice_id", practiceID,
		"year", year,
		"quarter", quarter,
		"file_id", fileID,
	)

	return r.Find(ctx, practiceID, year, quarter)
}

func (r *repo) ReplaceExtraction(
	ctx context.Context,
	practiceID uuid.UUID,
	year, quarter int,
	fileID uuid.UUID,
	result *extraction.Result,
) (*Bucket, error) {
	unlock := r.locks.Lock(bucketKey(practiceID, year, quarter))
	defer unlock()

	if _, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		bucketID, err := findBucketID(ctx, tx, practiceID, year, quarter)
		if err != nil {
			return struct{}{}, err
		}

		args := append(extractionArgs(result), fileID, bucketID)
		if err := repository.ExecExpectOne(ctx, tx, updateFileExtractionSQL, args...); err != nil {
			return struct{}{}, repository.MapError(err, ErrFileNotFound, ErrDuplicateFile)
		}

		return struct{}{}, r.recomputeRollup(ctx, tx, bucketID)
	}); err != nil {
		return nil, err
	}

	return r.Find(ctx, practiceID, year, quarter)
}

func (r *repo) ReanalyzeFile(ctx context.Context, practiceID uuid.UUID, year, quarter int, fileID uuid.UUID) (*Bucket, error) {
	bucket, err := r.Find(ctx, practiceID, year, quarter)
	if err != nil {
		return nil, err
	}

	var file *File
	for i := range bucket.Files {
		if bucket.Files[i].ID == fileID {
			file = &bucket.Files[i]
			break
		}
	}
	if file == nil {
		return nil, ErrFileNotFound
	}

	result, err := r.extract(ctx, file.URL)
	if err != nil {
		// The prior extraction result stays in place.
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	return r.ReplaceExtraction(ctx, practiceID, year, quarter, fileID, result)
}

func (r *repo) ReanalyzeBucket(ctx context.Context, practiceID uuid.UUID, year, quarter int) (*Bucket, error) {
	bucket, err := r.Find(ctx, practiceID, year, quarter)
	if err != nil {
		return nil, err
	}

	updates := make(map[uuid.UUID]*extraction.Result, len(bucket.Files))
	for _, f := range bucket.Files {
		result, err := r.extract(ctx, f.URL)
		if err != nil {
			r.logger.Warn(
				"re-analysis kept prior extraction",
				"file_id", f.ID,
				"error", err,
			)
			continue
		}
		updates[f.ID] = result
	}

	if len(updates) == 0 {
		return bucket, nil
	}

	unlock := r.locks.Lock(bucketKey(practiceID, year, quarter))
	defer unlock()

	if _, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		bucketID, err := findBucketID(ctx, tx, practiceID, year, quarter)
		if err != nil {
			return struct{}{}, err
		}

		for fileID, result := range updates {
			args := append(extractionArgs(result), fileID, bucketID)
			if err := repository.ExecExpectOne(ctx, tx, updateFileExtractionSQL, args...); err != nil {
				return struct{}{}, repository.MapError(err, ErrFileNotFound, ErrDuplicateFile)
			}
		}

		return struct{}{}, r.recomputeRollup(ctx, tx, bucketID)
	}); err != nil {
		return nil, err
	}

	r.logger.Info(
		"bucket re-analyzed",
		"practice_id", practiceID,
		"year", year,
		"quarter", quarter,
		"updated", len(updates),
		"total", len(bucket.Files),
	)

	return r.Find(ctx, practiceID, year, quarter)
}

func (r *repo) extract(ctx context.Context, documentURL string) (*extraction.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	fields, err := r.extractor.Extract(ctx, documentURL)
	if err != nil {
		return nil, err
	}

	return extraction.ResultFromFields(fields, time.Now().UTC()), nil
}

func (r *repo) recomputeRollup(ctx context.Context, tx *sql.Tx, bucketID uuid.UUID) error {
	files, err := repository.QueryMany(ctx, tx, selectFilesSQL, []any{bucketID}, scanFile)
	if err != nil {
		return fmt.Errorf("load files for rollup: %w", err)
	}

	agg := rollup.Compute(rollupInputs(files))

	_, err = tx.ExecContext(
		ctx, updateRollupSQL,
		agg.TotalAmount,
		agg.TotalPatients,
		agg.TotalCases,
		nullDecimal(agg.AveragePerCase),
		nullDecimal(agg.AveragePerPatient),
		bucketID,
	)
	if err != nil {
		return fmt.Errorf("update rollup: %w", err)
	}

	return nil
}

func findBucketID(ctx context.Context, q repository.Querier, practiceID uuid.UUID, year, quarter int) (uuid.UUID, error) {
	var id uuid.UUID
	if err := q.QueryRowContext(ctx, selectBucketIDSQL, practiceID, year, quarter).Scan(&id); err != nil {
		return uuid.Nil, repository.MapError(err, ErrBucketNotFound, ErrDuplicateFile)
	}
	return id, nil
}

func validateBucketKey(year, quarter int) error {
	if quarter < 1 || quarter > 4 {
		return ErrInvalidQuarter
	}
	if year < 1990 || year > 2100 {
		return ErrInvalidYear
	}
	return nil
}
