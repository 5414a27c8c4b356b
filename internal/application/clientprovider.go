package application

import (
	"context"
	"sync"

	"github.com/ericfisherdev/payvault/internal/domain/port/driven"
)

// DriveClientFactory builds a DriveClient bound to the given bearer token.
type DriveClientFactory func(ctx context.Context, token string) (driven.DriveClient, error)

// DriveClientProvider enables runtime swap of the authenticated Drive client.
// The client is bound to one bearer token, so every (re)acquired credential
// requires a rebuild; the provider holds a mutex-protected reference so the
// swap takes effect without restarting the application.
type DriveClientProvider struct {
	factory DriveClientFactory

	mu     sync.RWMutex
	client driven.DriveClient
}

// NewDriveClientProvider creates a provider with no client; Rebuild installs
// one once a credential is available.
func NewDriveClientProvider(factory DriveClientFactory) *DriveClientProvider {
	return &DriveClientProvider{factory: factory}
}

// Get returns the current Drive client. Callers should check HasClient first
// or handle nil.
func (p *DriveClientProvider) Get() driven.DriveClient {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.client
}

// HasClient returns true if a non-nil client is currently held.
func (p *DriveClientProvider) HasClient() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.client != nil
}

// Rebuild constructs a client for the given token and swaps it in. The next
// caller of Get() receives the new client.
func (p *DriveClientProvider) Rebuild(ctx context.Context, token string) error {
	client, err := p.factory(ctx, token)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.client = client
	p.mu.Unlock()
	return nil
}

// Clear drops the current client, used when the credential is invalidated.
func (p *DriveClientProvider) Clear() {
	p.mu.Lock()
	p.client = nil
	p.mu.Unlock()
}
