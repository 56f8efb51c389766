package resolutions_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/quartalhq/quartal/internal/buckets"
	"github.com/quartalhq/quartal/internal/resolutions"
	"github.com/quartalhq/quartal/pkg/lifecycle"
	"github.com/quartalhq/quartal/pkg/pagination"
	"github.com/quartalhq/quartal/pkg/storage"
)

type stubStore struct{}

func (stubStore) Start(*lifecycle.Coordinator) error { return nil }

func (stubStore) Upload(_ context.Context, key string, _ io.Reader, _ string) (string, error) {
	return "https://blobs.test/settlements/" + key, nil
}

func (stubStore) Download(context.Context, string) (*storage.DownloadResult, error) {
	return nil, storage.ErrNotFound
}

func (stubStore) Delete(context.Context, string) error { return nil }

func (stubStore) URL(key string) string {
	return "https://blobs.test/settlements/" + key
}

var resolutionColumns = []string{
	"file_id", "practice_id", "detected_year", "url", "storage_key", "original_name",
	"byte_size", "page_count", "uploaded_at",
	"total_amount", "patient_count", "case_count", "region", "extraction_error", "extracted_at",
	"enqueued_at",
}

var bucketColumns = []string{
	"id", "practice_id", "year", "quarter",
	"total_amount", "total_patients", "total_cases",
	"average_per_case", "average_per_patient",
	"created_at", "updated_at",
}

var fileColumns = []string{
	"id", "url", "storage_key", "original_name", "byte_size", "page_count", "uploaded_at",
	"total_amount", "patient_count", "case_count", "region", "extraction_error", "extracted_at",
}

func newMockQueue(t *testing.T) (sqlmock.Sqlmock, resolutions.System) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	bucketSys := buckets.New(db, stubStore{}, nil, time.Second, discard())
	sys := resolutions.New(db, bucketSys, stubStore{}, discard(), pagination.Config{})

	return mock, sys
}

func pendingRow(fileID, practiceID uuid.UUID, now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(resolutionColumns).
		AddRow(fileID.String(), practiceID.String(), 2024,
			"https://blobs.test/settlements/scan.png", "practices/p/f/scan.png", "scan.png",
			int64(2048), nil, now,
			"120.50", int64(12), nil, "Nordrhein", nil, now,
			now)
}

func TestResolveCommitsAddAndDeleteTogether(t *testing.T) {
	mock, sys := newMockQueue(t)

	practiceID := uuid.New()
	fileID := uuid.New()
	bucketID := uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery(`FROM public\.pending_resolutions`).
		WillReturnRows(pendingRow(fileID, practiceID, now))

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO settlements`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(bucketID.String()))
	mock.ExpectExec(`INSERT INTO settlement_files`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT f\.id`).
		WithArgs(bucketID).
		WillReturnRows(sqlmock.NewRows(fileColumns).
			AddRow(fileID.String(), "https://blobs.test/settlements/scan.png",
				"practices/p/f/scan.png", "scan.png", int64(2048), nil, now,
				"120.50", int64(12), nil, "Nordrhein", nil, now))
	mock.ExpectExec(`UPDATE settlements`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM pending_resolutions`).
		WithArgs(fileID, practiceID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectQuery(`FROM public\.settlements`).
		WillReturnRows(sqlmock.NewRows(bucketColumns).
			AddRow(bucketID.String(), practiceID.String(), 2024, 2,
				"120.50", int64(12), nil, nil, "10.04", now, now))
	mock.ExpectQuery(`SELECT f\.id`).
		WithArgs(bucketID).
		WillReturnRows(sqlmock.NewRows(fileColumns).
			AddRow(fileID.String(), "https://blobs.test/settlements/scan.png",
				"practices/p/f/scan.png", "scan.png", int64(2048), nil, now,
				"120.50", int64(12), nil, "Nordrhein", nil, now))

	bucket, err := sys.Resolve(context.Background(), practiceID, fileID, 2)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if bucket.Year != 2024 || bucket.Quarter != 2 {
		t.Errorf("period = %d/Q%d, want 2024/Q2", bucket.Year, bucket.Quarter)
	}
	if len(bucket.Files) != 1 {
		t.Errorf("files = %d, want 1", len(bucket.Files))
	}
	if !bucket.Rollup.TotalAmount.Equal(decimal.RequireFromString("120.50")) {
		t.Errorf("rollup total = %s, want 120.50", bucket.Rollup.TotalAmount)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestResolveRollsBackWhenQueueDeleteFails(t *testing.T) {
	mock, sys := newMockQueue(t)

	practiceID := uuid.New()
	fileID := uuid.New()
	bucketID := uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery(`FROM public\.pending_resolutions`).
		WillReturnRows(pendingRow(fileID, practiceID, now))

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO settlements`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(bucketID.String()))
	mock.ExpectExec(`INSERT INTO settlement_files`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT f\.id`).
		WithArgs(bucketID).
		WillReturnRows(sqlmock.NewRows(fileColumns).
			AddRow(fileID.String(), "https://blobs.test/settlements/scan.png",
				"practices/p/f/scan.png", "scan.png", int64(2048), nil, now,
				"120.50", int64(12), nil, "Nordrhein", nil, now))
	mock.ExpectExec(`UPDATE settlements`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// The queue row vanished underneath the transaction; the bucket add
	// must roll back with it so the file never lands in both stores.
	mock.ExpectExec(`DELETE FROM pending_resolutions`).
		WithArgs(fileID, practiceID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := sys.Resolve(context.Background(), practiceID, fileID, 2)
	if !errors.Is(err, resolutions.ErrNotFound) {
		t.Fatalf("Resolve = %v, want ErrNotFound", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
