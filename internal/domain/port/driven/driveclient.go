package driven

import (
	"context"
	"io"

	"github.com/ericfisherdev/payvault/internal/domain/model"
)

// DriveClient defines the driven port for the document-storage backend. An
// implementation is bound to a single bearer credential; the application layer
// rebuilds the client whenever the credential changes.
//
// Backend failures are reported as *model.StorageError carrying the HTTP
// status when one was observable, so the orchestrator can distinguish
// credential rejection (401/403) from other outages.
type DriveClient interface {
	// EnsureFolder resolves the canonical storage folder, creating it when
	// absent, and returns its id. Resolution is idempotent: repeated calls
	// against unchanged backend state return the same id and create at most
	// one folder.
	EnsureFolder(ctx context.Context) (string, error)

	// ListDocuments returns the normalized image documents inside the folder,
	// newest first as reported by the backend. A single item whose metadata
	// cannot be fetched is skipped, never failing the whole listing.
	ListDocuments(ctx context.Context, folderID string) ([]model.Document, error)

	// UploadDocument stores image bytes as a new file in the folder, named
	// from the configured prefix and the given period, and returns the
	// normalized Document for the created file. A non-success status yields
	// an error matching both model.ErrUploadFailed and *model.StorageError.
	UploadDocument(ctx context.Context, folderID string, image []byte, mimeType, period string) (model.Document, error)

	// DeleteDocument removes the remote file with the given id.
	DeleteDocument(ctx context.Context, id string) error

	// DownloadDocument streams the content of the remote file with the given
	// id. The caller must close the reader. The second return value is the
	// content type reported by the backend.
	DownloadDocument(ctx context.Context, id string) (io.ReadCloser, string, error)
}
