package resolutions_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/quartalhq/quartal/internal/buckets"
	"github.com/quartalhq/quartal/internal/resolutions"
	"github.com/quartalhq/quartal/pkg/pagination"
	"github.com/quartalhq/quartal/pkg/routes"
)

type mockSystem struct {
	listFn    func(ctx context.Context, practiceID uuid.UUID, page pagination.PageRequest) (*pagination.PageResult[resolutions.Resolution], error)
	nextFn    func(ctx context.Context, practiceID uuid.UUID) (*resolutions.Resolution, error)
	resolveFn func(ctx context.Context, practiceID, fileID uuid.UUID, quarter int) (*buckets.Bucket, error)
	cancelFn  func(ctx context.Context, practiceID, fileID uuid.UUID) error
}

func (m *mockSystem) Handler() *resolutions.Handler {
	return resolutions.NewHandler(m, discard(), pagination.Config{DefaultPageSize: 20, MaxPageSize: 100})
}

func (m *mockSystem) List(ctx context.Context, practiceID uuid.UUID, page pagination.PageRequest) (*pagination.PageResult[resolutions.Resolution], error) {
	return m.listFn(ctx, practiceID, page)
}

func (m *mockSystem) Next(ctx context.Context, practiceID uuid.UUID) (*resolutions.Resolution, error) {
	return m.nextFn(ctx, practiceID)
}

func (m *mockSystem) Enqueue(ctx context.Context, cmd resolutions.EnqueueCommand) (*resolutions.Resolution, error) {
	return nil, resolutions.ErrDuplicate
}

func (m *mockSystem) Resolve(ctx context.Context, practiceID, fileID uuid.UUID, quarter int) (*buckets.Bucket, error) {
	return m.resolveFn(ctx, practiceID, fileID, quarter)
}

func (m *mockSystem) Cancel(ctx context.Context, practiceID, fileID uuid.UUID) error {
	return m.cancelFn(ctx, practiceID, fileID)
}

func setupMux(sys *mockSystem) *http.ServeMux {
	mux := http.NewServeMux()
	routes.Register(mux, sys.Handler().Routes())
	return mux
}

func sampleResolution(practiceID uuid.UUID) resolutions.Resolution {
	return resolutions.Resolution{
		PracticeID:   practiceID,
		DetectedYear: 2024,
		File: buckets.File{
			ID:           uuid.MustParse("650e8400-e29b-41d4-a716-446655440001"),
			URL:          "https://blobs.test/settlements/scan.png",
			StorageKey:   "practices/p/f/scan.png",
			OriginalName: "scan.png",
			ByteSize:     2048,
			UploadedAt:   time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC),
		},
		EnqueuedAt: time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC),
	}
}

func TestHandlerList(t *testing.T) {
	practiceID := uuid.New()
	sys := &mockSystem{
		listFn: func(_ context.Context, _ uuid.UUID, page pagination.PageRequest) (*pagination.PageResult[resolutions.Resolution], error) {
			result := pagination.NewPageResult([]resolutions.Resolution{sampleResolution(practiceID)}, 1, page.Page, page.PageSize)
			return &result, nil
		},
	}

	mux := setupMux(sys)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/practices/"+practiceID.String()+"/resolutions?page=1&page_size=10", nil)
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var result pagination.PageResult[resolutions.Resolution]
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Total != 1 || len(result.Data) != 1 {
		t.Fatalf("total = %d, data = %d, want 1/1", result.Total, len(result.Data))
	}
	if result.Data[0].DetectedYear != 2024 {
		t.Errorf("detected year = %d, want 2024", result.Data[0].DetectedYear)
	}
}

func TestHandlerNextNonePending(t *testing.T) {
	sys := &mockSystem{
		nextFn: func(_ context.Context, _ uuid.UUID) (*resolutions.Resolution, error) {
			return nil, resolutions.ErrNonePending
		},
	}

	mux := setupMux(sys)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/practices/"+uuid.NewString()+"/resolutions/next", nil)
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHandlerResolve(t *testing.T) {
	practiceID := uuid.New()
	fileID := uuid.New()

	var gotQuarter int
	sys := &mockSystem{
		resolveFn: func(_ context.Context, _ uuid.UUID, id uuid.UUID, quarter int) (*buckets.Bucket, error) {
			if id != fileID {
				t.Errorf("fileID = %v, want %v", id, fileID)
			}
			gotQuarter = quarter
			return &buckets.Bucket{PracticeID: practiceID, Year: 2024, Quarter: quarter}, nil
		},
	}

	mux := setupMux(sys)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(
		"POST",
		"/practices/"+practiceID.String()+"/resolutions/"+fileID.String(),
		strings.NewReader(`{"quarter": 2}`),
	)
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotQuarter != 2 {
		t.Errorf("quarter = %d, want 2", gotQuarter)
	}

	var bucket buckets.Bucket
	if err := json.NewDecoder(rec.Body).Decode(&bucket); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if bucket.Quarter != 2 {
		t.Errorf("bucket quarter = %d, want 2", bucket.Quarter)
	}
}

func TestHandlerResolveInvalidBody(t *testing.T) {
	mux := setupMux(&mockSystem{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(
		"POST",
		"/practices/"+uuid.NewString()+"/resolutions/"+uuid.NewString(),
		strings.NewReader("not json"),
	)
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandlerResolveInvalidQuarter(t *testing.T) {
	sys := &mockSystem{
		resolveFn: func(_ context.Context, _, _ uuid.UUID, _ int) (*buckets.Bucket, error) {
			return nil, resolutions.ErrInvalidQuarter
		},
	}

	mux := setupMux(sys)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(
		"POST",
		"/practices/"+uuid.NewString()+"/resolutions/"+uuid.NewString(),
		strings.NewReader(`{"quarter": 9}`),
	)
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandlerCancel(t *testing.T) {
	practiceID := uuid.New()
	fileID := uuid.New()

	var cancelled uuid.UUID
	sys := &mockSystem{
		cancelFn: func(_ context.Context, _ uuid.UUID, id uuid.UUID) error {
			cancelled = id
			return nil
		},
	}

	mux := setupMux(sys)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(
		"DELETE",
		"/practices/"+practiceID.String()+"/resolutions/"+fileID.String(),
		nil,
	)
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if cancelled != fileID {
		t.Errorf("cancelled = %v, want %v", cancelled, fileID)
	}
}

func TestHandlerCancelNotFound(t *testing.T) {
	sys := &mockSystem{
		cancelFn: func(_ context.Context, _, _ uuid.UUID) error {
			return resolutions.ErrNotFound
		},
	}

	mux := setupMux(sys)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(
		"DELETE",
		"/practices/"+uuid.NewString()+"/resolutions/"+uuid.NewString(),
		nil,
	)
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
