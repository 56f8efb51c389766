package buckets

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/quartalhq/quartal/pkg/handlers"
	"github.com/quartalhq/quartal/pkg/routes"
)

// Handler provides HTTP endpoints for settlement bucket operations.
type Handler struct {
	sys    System
	logger *slog.Logger
}

// NewHandler creates a Handler with the given system and logger.
func NewHandler(sys System, logger *slog.Logger) *Handler {
	return &Handler{
		sys:    sys,
		logger: logger.With("handler", "buckets"),
	}
}

// Routes returns the route group definition for bucket endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/practices",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/{practiceID}/settlements", Handler: h.List},
			{Method: "GET", Pattern: "/{practiceID}/settlements/{year}/{quarter}", Handler: h.Find},
			{Method: "POST", Pattern: "/{practiceID}/settlements/{year}/{quarter}/reanalyze", Handler: h.ReanalyzeBucket},
			{Method: "POST", Pattern: "/{practiceID}/settlements/{year}/{quarter}/files/{fileID}/reanalyze", Handler: h.ReanalyzeFile},
			{Method: "DELETE", Pattern: "/{practiceID}/settlements/{year}/{quarter}/files/{fileID}", Handler: h.RemoveFile},
		},
	}
}

// List returns every settlement bucket for a practice.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	practiceID, err := uuid.Parse(r.PathValue("practiceID"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	result, err := h.sys.List(r.Context(), practiceID)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Find returns one settlement bucket with its files and rollup.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	practiceID, year, quarter, err := bucketParams(r)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	bucket, err := h.sys.Find(r.Context(), practiceID, year, quarter)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, bucket)
}

// ReanalyzeBucket re-runs extraction for every file in a bucket.
func (h *Handler) ReanalyzeBucket(w http.ResponseWriter, r *http.Request) {
	practiceID, year, quarter, err := bucketParams(r)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	bucket, err := h.sys.ReanalyzeBucket(r.Context(), practiceID, year, quarter)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, bucket)
}

// ReanalyzeFile re-runs extraction for a single file in a bucket.
func (h *Handler) ReanalyzeFile(w http.ResponseWriter, r *http.Request) {
	practiceID, year, quarter, err := bucketParams(r)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	fileID, err := uuid.Parse(r.PathValue("fileID"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrFileNotFound)
		return
	}

	bucket, err := h.sys.ReanalyzeFile(r.Context(), practiceID, year, quarter, fileID)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, bucket)
}

// RemoveFile deletes one file from a bucket and returns the updated bucket.
func (h *Handler) RemoveFile(w http.ResponseWriter, r *http.Request) {
	practiceID, year, quarter, err := bucketParams(r)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	fileID, err := uuid.Parse(r.PathValue("fileID"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrFileNotFound)
		return
	}

	bucket, err := h.sys.RemoveFile(r.Context(), practiceID, year, quarter, fileID)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, bucket)
}

func bucketParams(r *http.Request) (uuid.UUID, int, int, error) {
	practiceID, err := uuid.Parse(r.PathValue("practiceID"))
	if err != nil {
		return uuid.Nil, 0, 0, err
	}

	year, err := strconv.Atoi(r.PathValue("year"))
	if err != nil {
		return uuid.Nil, 0, 0, ErrInvalidYear
	}

	quarter, err := strconv.Atoi(r.PathValue("quarter"))
	if err != nil {
		return uuid.Nil, 0, 0, ErrInvalidQuarter
	}

	return practiceID, year, quarter, nil
}
