package resolutions

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/quartalhq/quartal/pkg/handlers"
	"github.com/quartalhq/quartal/pkg/pagination"
	"github.com/quartalhq/quartal/pkg/routes"
)

// Handler provides HTTP endpoints for the resolution queue.
type Handler struct {
	sys        System
	logger     *slog.Logger
	pagination pagination.Config
}

// ResolveRequest is the JSON body for committing a manual quarter choice.
type ResolveRequest struct {
	Quarter int `json:"quarter"`
}

// NewHandler creates a Handler with the given system, logger, and pagination config.
func NewHandler(sys System, logger *slog.Logger, pagination pagination.Config) *Handler {
	return &Handler{
		sys:        sys,
		logger:     logger.With("handler", "resolutions"),
		pagination: pagination,
	}
}

// Routes returns the route group definition for resolution endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/practices",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/{practiceID}/resolutions", Handler: h.List},
			{Method: "GET", Pattern: "/{practiceID}/resolutions/next", Handler: h.Next},
			{Method: "POST", Pattern: "/{practiceID}/resolutions/{fileID}", Handler: h.Resolve},
			{Method: "DELETE", Pattern: "/{practiceID}/resolutions/{fileID}", Handler: h.Cancel},
		},
	}
}

// List returns a paginated view of a practice's pending resolutions.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	practiceID, err := uuid.Parse(r.PathValue("practiceID"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)

	result, err := h.sys.List(r.Context(), practiceID, page)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Next returns the oldest pending resolution for a practice.
func (h *Handler) Next(w http.ResponseWriter, r *http.Request) {
	practiceID, err := uuid.Parse(r.PathValue("practiceID"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	res, err := h.sys.Next(r.Context(), practiceID)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, res)
}

// Resolve assigns a quarter to a queued file and moves it into its bucket.
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	practiceID, fileID, err := queueParams(r)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidQuarter)
		return
	}

	bucket, err := h.sys.Resolve(r.Context(), practiceID, fileID, req.Quarter)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, bucket)
}

// Cancel discards a queued file without assigning it to a bucket.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	practiceID, fileID, err := queueParams(r)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	if err := h.sys.Cancel(r.Context(), practiceID, fileID); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func queueParams(r *http.Request) (uuid.UUID, uuid.UUID, error) {
	practiceID, err := uuid.Parse(r.PathValue("practiceID"))
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}

	fileID, err := uuid.Parse(r.PathValue("fileID"))
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}

	return practiceID, fileID, nil
}
