package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/payvault/internal/domain/model"
)

// ErrEncryptionKeyNotSet is returned by CredentialStore write operations when
// PAYVAULT_SECRET_KEY has not been configured. AuthSession degrades to an
// in-memory credential in that case.
var ErrEncryptionKeyNotSet = errors.New("encryption key not configured: set PAYVAULT_SECRET_KEY")

// CredentialStore defines the driven port for persisting the single bearer
// credential across process restarts. The adapter layer is responsible for
// encryption at rest; this interface operates on plaintext at the domain
// boundary. Writes are last-write-wins.
type CredentialStore interface {
	// Save stores or replaces the credential. Returns ErrEncryptionKeyNotSet
	// if the adapter was constructed without an encryption key.
	Save(ctx context.Context, cred model.Credential) error

	// Load retrieves the stored credential. Returns a zero Credential and nil
	// error when none is stored or when no encryption key is configured.
	Load(ctx context.Context) (model.Credential, error)

	// Delete removes the stored credential. Deleting an absent credential is
	// not an error.
	Delete(ctx context.Context) error
}
