package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/ericfisherdev/payvault/internal/domain/model"
	"github.com/ericfisherdev/payvault/internal/domain/port/driven"
)

// SyncService orchestrates credential acquisition, folder resolution,
// catalog reconciliation, and uploads. It never talks to the backend itself;
// it only sequences AuthSession, the client provider, and the DriveClient
// port, and exposes the resulting state as plain data.
//
// At most one sync sequence runs at a time: concurrent Refresh calls coalesce
// into the pending one, while Save and Delete are rejected with ErrBusy. A
// failed sequence leaves the document list fully unchanged.
type SyncService struct {
	auth     *AuthSession
	provider *DriveClientProvider

	refreshGroup singleflight.Group
	opMu         sync.Mutex // Serializes sync sequences; TryLock backs the Busy rejection.

	mu        sync.RWMutex
	state     model.SyncState
	docs      []model.Document
	lastToken string // Token the current provider client was built with.
}

// NewSyncService creates a SyncService starting in the unauthenticated state
// with an empty document list.
func NewSyncService(auth *AuthSession, provider *DriveClientProvider) *SyncService {
	return &SyncService{
		auth:     auth,
		provider: provider,
		state:    model.SyncStateUnauthenticated,
	}
}

// Refresh rebuilds the local document list from the backend: ensure
// credential, resolve the canonical folder, list documents, reconcile, and
// replace the list wholesale. Concurrent refreshes share one in-flight
// sequence and its result.
func (s *SyncService) Refresh(ctx context.Context) error {
	_, err, _ := s.refreshGroup.Do("refresh", func() (any, error) {
		s.opMu.Lock()
		defer s.opMu.Unlock()
		return nil, s.doRefresh(ctx)
	})
	return err
}

func (s *SyncService) doRefresh(ctx context.Context) error {
	var docs []model.Document
	err := s.runAuthed(ctx, func(ctx context.Context, client driven.DriveClient) error {
		folderID, err := client.EnsureFolder(ctx)
		if err != nil {
			return err
		}
		raw, err := client.ListDocuments(ctx, folderID)
		if err != nil {
			return err
		}
		docs = Reconcile(raw)
		return nil
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.docs = docs
	s.mu.Unlock()

	slog.Info("refresh complete", "documents", len(docs))
	return nil
}

// Save uploads captured image bytes as a new document for the given period
// ("YYYY-MM") and merges the result into the local list, re-applying the
// dedup and ordering rules, so a fresh upload may supersede an existing
// same-title entry. Returns ErrBusy while another sync sequence is running.
func (s *SyncService) Save(ctx context.Context, image []byte, mimeType, period string) (model.Document, error) {
	if len(image) == 0 {
		return model.Document{}, errors.New("empty image")
	}
	if !s.opMu.TryLock() {
		return model.Document{}, model.ErrBusy
	}
	defer s.opMu.Unlock()

	var doc model.Document
	err := s.runAuthed(ctx, func(ctx context.Context, client driven.DriveClient) error {
		folderID, err := client.EnsureFolder(ctx)
		if err != nil {
			return err
		}
		d, err := client.UploadDocument(ctx, folderID, image, mimeType, period)
		if err != nil {
			return err
		}
		doc = d
		return nil
	})
	if err != nil {
		return model.Document{}, err
	}

	s.mu.Lock()
	merged := append(append([]model.Document(nil), s.docs...), doc)
	s.docs = Reconcile(merged)
	s.mu.Unlock()

	slog.Info("document saved", "id", doc.ID, "title", doc.Title)
	return doc, nil
}

// Delete removes the remote document with the given id and drops it from the
// local list. Returns ErrBusy while another sync sequence is running.
func (s *SyncService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("empty document id")
	}
	if !s.opMu.TryLock() {
		return model.ErrBusy
	}
	defer s.opMu.Unlock()

	err := s.runAuthed(ctx, func(ctx context.Context, client driven.DriveClient) error {
		return client.DeleteDocument(ctx, id)
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	kept := make([]model.Document, 0, len(s.docs))
	for _, d := range s.docs {
		if d.ID != id {
			kept = append(kept, d)
		}
	}
	s.docs = Reconcile(kept)
	s.mu.Unlock()

	slog.Info("document deleted", "id", id)
	return nil
}

// Content streams the stored image bytes for the given document id. The
// caller must close the reader. Content does not touch the document list, so
// it is not serialized against refresh/save.
func (s *SyncService) Content(ctx context.Context, id string) (io.ReadCloser, string, error) {
	var rc io.ReadCloser
	var contentType string
	err := s.runAuthed(ctx, func(ctx context.Context, client driven.DriveClient) error {
		r, ct, err := client.DownloadDocument(ctx, id)
		if err != nil {
			return err
		}
		rc, contentType = r, ct
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return rc, contentType, nil
}

// Logout invalidates the credential, clears the document list, and returns
// to the unauthenticated state. Idempotent.
func (s *SyncService) Logout(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if err := s.auth.Invalidate(ctx); err != nil {
		return err
	}
	s.provider.Clear()

	s.mu.Lock()
	s.docs = nil
	s.lastToken = ""
	s.state = model.SyncStateUnauthenticated
	s.mu.Unlock()

	slog.Info("logged out")
	return nil
}

// Documents returns a copy of the reconciled document list, newest first,
// optionally filtered by a case-insensitive title substring.
func (s *SyncService) Documents(filter string) []model.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(filter))
	out := make([]model.Document, 0, len(s.docs))
	for _, d := range s.docs {
		if needle != "" && !strings.Contains(strings.ToLower(d.Title), needle) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// State returns the current authentication/synchronization state.
func (s *SyncService) State() model.SyncState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// runAuthed ensures an authenticated client and runs op with it. When the
// backend rejects the credential (401/403) the credential is invalidated,
// reacquired, and op retried exactly once; a second rejection surfaces as
// ErrSyncFailed. This replaces the unbounded retry-by-recursion the naive
// approach falls into on persistent auth failure.
func (s *SyncService) runAuthed(ctx context.Context, op func(ctx context.Context, client driven.DriveClient) error) error {
	client, err := s.ensureClient(ctx)
	if err != nil {
		return err
	}

	err = op(ctx, client)
	if err == nil {
		s.setState(model.SyncStateReady)
		return nil
	}
	if !model.IsAuthStatus(err) {
		s.setState(model.SyncStateReady)
		return err
	}

	slog.Info("credential rejected by backend, reacquiring", "error", err)
	if ierr := s.auth.Invalidate(ctx); ierr != nil {
		slog.Error("credential invalidation failed", "error", ierr)
	}
	s.provider.Clear()
	s.mu.Lock()
	s.lastToken = ""
	s.state = model.SyncStateUnauthenticated
	s.mu.Unlock()

	client, err = s.ensureClient(ctx)
	if err != nil {
		return err
	}

	err = op(ctx, client)
	if err == nil {
		s.setState(model.SyncStateReady)
		return nil
	}
	if model.IsAuthStatus(err) {
		s.setState(model.SyncStateUnauthenticated)
		return fmt.Errorf("%w: %w", model.ErrSyncFailed, err)
	}
	s.setState(model.SyncStateReady)
	return err
}

// ensureClient acquires a credential and makes sure the provider holds a
// client built for it, rebuilding after credential changes.
func (s *SyncService) ensureClient(ctx context.Context) (driven.DriveClient, error) {
	s.mu.Lock()
	if s.state == model.SyncStateUnauthenticated {
		s.state = model.SyncStateAuthenticating
	}
	s.mu.Unlock()

	cred, err := s.auth.Acquire(ctx)
	if err != nil {
		s.setState(model.SyncStateUnauthenticated)
		return nil, err
	}

	s.mu.RLock()
	stale := s.lastToken != cred.Token
	s.mu.RUnlock()

	if stale || !s.provider.HasClient() {
		if err := s.provider.Rebuild(ctx, cred.Token); err != nil {
			s.setState(model.SyncStateUnauthenticated)
			return nil, fmt.Errorf("build drive client: %w", err)
		}
		s.mu.Lock()
		s.lastToken = cred.Token
		s.mu.Unlock()
	}

	s.setState(model.SyncStateSyncing)
	return s.provider.Get(), nil
}

func (s *SyncService) setState(state model.SyncState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}
