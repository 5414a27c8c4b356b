// Package application contains use-case orchestration services.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ericfisherdev/payvault/internal/domain/model"
	"github.com/ericfisherdev/payvault/internal/domain/port/driven"
)

// AuthSession owns the lifecycle of the single bearer credential. It serves
// stored credentials that are still fresh by policy, and otherwise drives the
// interactive authorization flow through a singleflight group so concurrent
// callers share one consent prompt instead of opening a second.
type AuthSession struct {
	store      driven.CredentialStore
	authorizer driven.Authorizer
	ttl        time.Duration

	group singleflight.Group

	mu     sync.Mutex
	cached model.Credential // In-memory copy; authoritative when persistence is disabled.

	now func() time.Time // Injectable clock for tests.
}

// NewAuthSession creates an AuthSession. ttl is the freshness policy: a
// credential older than ttl is treated as absent and reacquired.
func NewAuthSession(store driven.CredentialStore, authorizer driven.Authorizer, ttl time.Duration) *AuthSession {
	return &AuthSession{
		store:      store,
		authorizer: authorizer,
		ttl:        ttl,
		now:        time.Now,
	}
}

// Acquire returns a usable credential. A persisted, still-fresh credential is
// returned without interaction; otherwise one interactive flow runs and its
// result is persisted and shared with every concurrent caller.
func (s *AuthSession) Acquire(ctx context.Context) (model.Credential, error) {
	if cred, ok := s.current(ctx); ok {
		return cred, nil
	}

	v, err, _ := s.group.Do("acquire", func() (any, error) {
		// A flow that finished while this caller was queued already stored a
		// fresh credential.
		if cred, ok := s.current(ctx); ok {
			return cred, nil
		}

		cred, err := s.authorizer.Authorize(ctx)
		if err != nil {
			return nil, err
		}
		if cred.IsZero() {
			return nil, fmt.Errorf("%w: authorizer returned empty credential", model.ErrAuthDenied)
		}

		s.remember(ctx, cred)
		return cred, nil
	})
	if err != nil {
		return model.Credential{}, err
	}

	return v.(model.Credential), nil
}

// Invalidate clears the stored credential. Called after the backend rejects
// it (401/403) and on logout. Idempotent.
func (s *AuthSession) Invalidate(ctx context.Context) error {
	s.mu.Lock()
	s.cached = model.Credential{}
	s.mu.Unlock()

	if err := s.store.Delete(ctx); err != nil {
		return fmt.Errorf("invalidate credential: %w", err)
	}
	return nil
}

// current returns the freshest known credential, preferring the in-memory
// copy and falling back to the store, along with whether it is usable.
func (s *AuthSession) current(ctx context.Context) (model.Credential, bool) {
	now := s.now()

	s.mu.Lock()
	cached := s.cached
	s.mu.Unlock()

	if cached.FreshAt(now, s.ttl) {
		return cached, true
	}

	stored, err := s.store.Load(ctx)
	if err != nil {
		slog.Warn("credential load failed, treating as absent", "error", err)
		return model.Credential{}, false
	}
	if !stored.FreshAt(now, s.ttl) {
		return model.Credential{}, false
	}

	s.mu.Lock()
	s.cached = stored
	s.mu.Unlock()

	return stored, true
}

// remember caches the credential and persists it. Persistence failure is not
// fatal: the credential stays usable in memory for this process, it just will
// not survive a restart.
func (s *AuthSession) remember(ctx context.Context, cred model.Credential) {
	s.mu.Lock()
	s.cached = cred
	s.mu.Unlock()

	if err := s.store.Save(ctx, cred); err != nil {
		if errors.Is(err, driven.ErrEncryptionKeyNotSet) {
			slog.Warn("credential persistence disabled, keeping credential in memory only")
			return
		}
		slog.Error("credential save failed, keeping credential in memory only", "error", err)
	}
}
