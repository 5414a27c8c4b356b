package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/payvault/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// DocumentResponse is the JSON representation of a synced payslip document.
type DocumentResponse struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Period       string `json:"period"`
	CreatedAt    string `json:"created_at"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	ViewURL      string `json:"view_url,omitempty"`
	MimeType     string `json:"mime_type"`
}

// StatusResponse is the JSON representation of the sync status endpoint.
type StatusResponse struct {
	State     string `json:"state"`
	Documents int    `json:"documents"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// toDocumentResponse converts a domain Document to its JSON representation.
func toDocumentResponse(d model.Document) DocumentResponse {
	return DocumentResponse{
		ID:           d.ID,
		Title:        d.Title,
		Period:       d.Period,
		CreatedAt:    d.CreatedAt.UTC().Format(time.RFC3339),
		ThumbnailURL: d.ThumbnailURL,
		ViewURL:      d.ViewURL,
		MimeType:     d.MimeType,
	}
}
