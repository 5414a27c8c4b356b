package model

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors of the sync core. SyncService either retries once (the
// credential-rejection case) or forwards these verbatim; nothing is
// logged-and-swallowed at that level.
var (
	// ErrAuthDenied means the user declined consent or the flow itself errored.
	ErrAuthDenied = errors.New("authorization denied")
	// ErrAuthUnavailable means the authorization provider is not configured or
	// failed to initialize.
	ErrAuthUnavailable = errors.New("authorization provider unavailable")
	// ErrUploadFailed means the create-file call returned a non-success status.
	// The local document list is left untouched.
	ErrUploadFailed = errors.New("upload failed")
	// ErrBusy means a sync operation is already in flight; the caller may retry.
	ErrBusy = errors.New("sync operation already in progress")
	// ErrSyncFailed means the backend rejected the credential again after one
	// invalidate-and-reacquire retry.
	ErrSyncFailed = errors.New("sync failed after credential retry")
)

// StorageError wraps a Drive backend failure with the HTTP status it carried,
// when one was observable. Status 0 means the call failed before a response
// was received (network error, context cancellation).
type StorageError struct {
	Op     string
	Status int
	Err    error
}

func (e *StorageError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("storage unavailable: %s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("storage unavailable: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsAuthStatus reports whether err is a StorageError carrying 401/403
// semantics, i.e. the backend rejected the current credential.
func IsAuthStatus(err error) bool {
	var se *StorageError
	if !errors.As(err, &se) {
		return false
	}
	return se.Status == http.StatusUnauthorized || se.Status == http.StatusForbidden
}
