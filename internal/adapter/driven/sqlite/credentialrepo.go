package sqlite

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ericfisherdev/payvault/internal/domain/model"
	"github.com/ericfisherdev/payvault/internal/domain/port/driven"
)

// credentialService is the fixed service key under which the single Drive
// credential is stored. There is exactly one account and one credential.
const credentialService = "google-drive"

// Compile-time interface satisfaction check.
var _ driven.CredentialStore = (*CredentialRepo)(nil)

// CredentialRepo is the SQLite implementation of the CredentialStore port.
// Token values are encrypted with AES-256-GCM before write and decrypted
// after read.
type CredentialRepo struct {
	db  *DB
	key []byte // 32-byte AES-256 key; nil when encryption is disabled.
}

// NewCredentialRepo creates a new CredentialRepo. key must be 32 bytes for
// AES-256-GCM, or nil to disable credential persistence (Save returns
// ErrEncryptionKeyNotSet, Load reports no credential).
func NewCredentialRepo(db *DB, key []byte) *CredentialRepo {
	return &CredentialRepo{db: db, key: key}
}

// Save stores or replaces the credential. An empty token is rejected: a
// credential is either absent or a byte string the backend accepts.
func (r *CredentialRepo) Save(ctx context.Context, cred model.Credential) error {
	if cred.IsZero() {
		return errors.New("refusing to store empty credential")
	}

	encrypted, err := r.encrypt(cred.Token)
	if err != nil {
		return err
	}

	const query = `INSERT OR REPLACE INTO credentials (service, token, acquired_at, updated_at)
	               VALUES (?, ?, ?, CURRENT_TIMESTAMP)`
	_, err = r.db.Writer.ExecContext(ctx, query,
		credentialService, encrypted, cred.AcquiredAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

// Load retrieves the stored credential. Returns a zero Credential and nil
// error when none is stored or when encryption is disabled.
func (r *CredentialRepo) Load(ctx context.Context) (model.Credential, error) {
	if r.key == nil {
		return model.Credential{}, nil
	}

	const query = `SELECT token, acquired_at FROM credentials WHERE service = ?`
	var encrypted, acquiredAt string
	err := r.db.Reader.QueryRowContext(ctx, query, credentialService).Scan(&encrypted, &acquiredAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Credential{}, nil
	}
	if err != nil {
		return model.Credential{}, fmt.Errorf("load credential: %w", err)
	}

	token, err := r.decrypt(encrypted)
	if err != nil {
		return model.Credential{}, fmt.Errorf("decrypt credential: %w", err)
	}

	acquired, err := time.Parse(time.RFC3339Nano, acquiredAt)
	if err != nil {
		return model.Credential{}, fmt.Errorf("parse credential acquired_at: %w", err)
	}

	return model.Credential{Token: token, AcquiredAt: acquired}, nil
}

// Delete removes the stored credential. Deleting an absent credential is a no-op.
func (r *CredentialRepo) Delete(ctx context.Context) error {
	const query = `DELETE FROM credentials WHERE service = ?`
	_, err := r.db.Writer.ExecContext(ctx, query, credentialService)
	if err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	return nil
}

// encrypt encrypts plaintext using AES-256-GCM and returns a base64-encoded
// string containing the nonce (12 bytes) prepended to the ciphertext.
func (r *CredentialRepo) encrypt(plaintext string) (string, error) {
	if r.key == nil {
		return "", driven.ErrEncryptionKeyNotSet
	}

	block, err := aes.NewCipher(r.key)
	if err != nil {
		return "", fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("cipher.NewGCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("rand nonce: %w", err)
	}

	// Seal appends the ciphertext to nonce, producing: nonce || ciphertext || tag.
	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// decrypt decrypts a base64-encoded AES-256-GCM ciphertext.
func (r *CredentialRepo) decrypt(encoded string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("base64 decode: %w", err)
	}

	block, err := aes.NewCipher(r.key)
	if err != nil {
		return "", fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("cipher.NewGCM: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", errors.New("ciphertext too short")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("gcm.Open: %w", err)
	}

	return string(plaintext), nil
}
