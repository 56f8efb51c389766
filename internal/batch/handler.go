package batch

import (
	"bytes"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/quartalhq/quartal/pkg/handlers"
	"github.com/quartalhq/quartal/pkg/routes"
)

// Handler provides the HTTP endpoint for batch submission.
type Handler struct {
	coordinator   *Coordinator
	logger        *slog.Logger
	maxUploadSize int64
}

// NewHandler creates a Handler with the given coordinator, logger, and upload size limit.
func NewHandler(coordinator *Coordinator, logger *slog.Logger, maxUploadSize int64) *Handler {
	return &Handler{
		coordinator:   coordinator,
		logger:        logger.With("handler", "batch"),
		maxUploadSize: maxUploadSize,
	}
}

// Routes returns the route group definition for batch submission.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/practices",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/{practiceID}/settlements/batch", Handler: h.Submit},
		},
	}
}

// Submit processes a multipart batch of settlement documents and responds
// with the synchronous batch report.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	practiceID, err := uuid.Parse(r.PathValue("practiceID"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrMissingPractice)
		return
	}

	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		handlers.RespondError(w, h.logger, http.StatusRequestEntityTooLarge, ErrFileTooLarge)
		return
	}

	files, err := readFiles(h.logger, r.MultipartForm.File["files"])
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	report, err := h.coordinator.Submit(r.Context(), practiceID, files)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, report)
}

func readFiles(logger *slog.Logger, headers []*multipart.FileHeader) ([]RawFile, error) {
	if len(headers) == 0 {
		return nil, ErrEmptyBatch
	}

	files := make([]RawFile, 0, len(headers))
	for _, header := range headers {
		part, err := header.Open()
		if err != nil {
			return nil, ErrInvalidUpload
		}

		data, err := io.ReadAll(part)
		part.Close()
		if err != nil {
			return nil, ErrInvalidUpload
		}

		contentType := detectContentType(header.Header.Get("Content-Type"), data)

		files = append(files, RawFile{
			Name:        header.Filename,
			ContentType: contentType,
			Data:        data,
			PageCount:   extractPDFPageCount(logger, data, contentType),
		})
	}

	return files, nil
}

func detectContentType(header string, data []byte) string {
	header = strings.TrimSpace(header)
	if header != "" && header != "application/octet-stream" {
		return header
	}
	return http.DetectContentType(data)
}

func extractPDFPageCount(logger *slog.Logger, data []byte, contentType string) *int {
	if contentType != "application/pdf" {
		return nil
	}

	count, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		logger.Warn("failed to extract PDF page count", "error", err)
		return nil
	}

	return &count
}
