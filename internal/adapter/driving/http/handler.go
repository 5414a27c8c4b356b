// Package httphandler is the HTTP driving adapter that serves the REST API.
package httphandler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ericfisherdev/payvault/internal/application"
	"github.com/ericfisherdev/payvault/internal/domain/model"
)

// maxUploadBytes bounds the multipart form held in memory per save request.
// Payslip captures are phone photos; 20 MiB leaves generous headroom.
const maxUploadBytes = 20 << 20

// Handler exposes the sync service over HTTP.
type Handler struct {
	sync   *application.SyncService
	logger *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(sync *application.SyncService, logger *slog.Logger) *Handler {
	return &Handler{sync: sync, logger: logger}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/documents", h.ListDocuments)
	mux.HandleFunc("POST /api/v1/documents", h.SaveDocument)
	mux.HandleFunc("GET /api/v1/documents/{id}/content", h.DocumentContent)
	mux.HandleFunc("DELETE /api/v1/documents/{id}", h.DeleteDocument)
	mux.HandleFunc("POST /api/v1/sync", h.TriggerSync)
	mux.HandleFunc("POST /api/v1/logout", h.Logout)
	mux.HandleFunc("GET /api/v1/status", h.Status)
	mux.HandleFunc("GET /api/v1/health", h.Health)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// ListDocuments returns the current reconciled document list, newest first.
// The optional "q" query parameter filters by title substring.
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs := h.sync.Documents(r.URL.Query().Get("q"))

	resp := make([]DocumentResponse, 0, len(docs))
	for _, d := range docs {
		resp = append(resp, toDocumentResponse(d))
	}

	writeJSON(w, http.StatusOK, resp)
}

// SaveDocument accepts a multipart form with a "file" part (the captured
// image) and a "period" field ("YYYY-MM"), uploads it, and returns the stored
// document.
func (h *Handler) SaveDocument(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	period := r.FormValue("period")
	if _, err := time.Parse("2006-01", period); err != nil {
		writeError(w, http.StatusBadRequest, "invalid period: expected YYYY-MM")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file part")
		return
	}
	defer file.Close()

	image, err := io.ReadAll(file)
	if err != nil {
		h.logger.Error("failed to read upload body", "error", err)
		writeError(w, http.StatusBadRequest, "unreadable file part")
		return
	}
	if len(image) == 0 {
		writeError(w, http.StatusBadRequest, "empty file part")
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	doc, err := h.sync.Save(r.Context(), image, mimeType, period)
	if err != nil {
		h.writeServiceError(w, "save document", err)
		return
	}

	writeJSON(w, http.StatusCreated, toDocumentResponse(doc))
}

// DocumentContent streams the stored image bytes for a document.
func (h *Handler) DocumentContent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	rc, contentType, err := h.sync.Content(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, "fetch document content", err)
		return
	}
	defer rc.Close()

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Error("failed to stream document content", "id", id, "error", err)
	}
}

// DeleteDocument removes a document remotely and from the local list.
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := h.sync.Delete(r.Context(), id); err != nil {
		h.writeServiceError(w, "delete document", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// TriggerSync runs a full refresh and returns the resulting document list.
func (h *Handler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	if err := h.sync.Refresh(r.Context()); err != nil {
		h.writeServiceError(w, "refresh", err)
		return
	}

	docs := h.sync.Documents("")
	resp := make([]DocumentResponse, 0, len(docs))
	for _, d := range docs {
		resp = append(resp, toDocumentResponse(d))
	}

	writeJSON(w, http.StatusOK, resp)
}

// Logout invalidates the credential and clears local state.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sync.Logout(r.Context()); err != nil {
		h.writeServiceError(w, "logout", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Status reports the current sync state and document count.
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{
		State:     string(h.sync.State()),
		Documents: len(h.sync.Documents("")),
	})
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// writeServiceError maps sync service failures onto HTTP status codes.
func (h *Handler) writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, model.ErrBusy):
		writeError(w, http.StatusConflict, "another sync operation is in progress")
	case errors.Is(err, model.ErrAuthDenied):
		writeError(w, http.StatusUnauthorized, "authorization was denied")
	case errors.Is(err, model.ErrAuthUnavailable):
		writeError(w, http.StatusServiceUnavailable, "authorization is not available")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "operation cancelled")
	default:
		var storageErr *model.StorageError
		if errors.As(err, &storageErr) && storageErr.Status == http.StatusNotFound {
			writeError(w, http.StatusNotFound, "document not found")
			return
		}
		if errors.Is(err, model.ErrSyncFailed) || errors.Is(err, model.ErrUploadFailed) || storageErr != nil {
			h.logger.Error("backend operation failed", "op", op, "error", err)
			writeError(w, http.StatusBadGateway, "storage backend error")
			return
		}
		h.logger.Error("request failed", "op", op, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
