// Package config loads application configuration from environment variables.
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"time"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	ListenAddr         string
	DBPath             string
	SecretKey          []byte // 32-byte AES-256 key; nil disables credential persistence.
	GoogleClientID     string
	GoogleClientSecret string
	OAuthRedirectAddr  string
	FolderName         string
	FilePrefix         string
	TokenTTL           time.Duration
}

// HasOAuthClient returns true when both the Google client id and secret are
// set. Used by the composition root to log whether interactive authorization
// will be possible.
func (c *Config) HasOAuthClient() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// Load reads configuration from environment variables and returns a validated
// Config. Google OAuth credentials (PAYVAULT_GOOGLE_CLIENT_ID,
// PAYVAULT_GOOGLE_CLIENT_SECRET) are optional; without them the app starts but
// every authorization attempt fails as unavailable. Optional variables with
// defaults: PAYVAULT_LISTEN_ADDR (127.0.0.1:8080), PAYVAULT_DB_PATH
// (payvault.db), PAYVAULT_OAUTH_REDIRECT_ADDR (127.0.0.1:8437),
// PAYVAULT_FOLDER_NAME (Payslips), PAYVAULT_FILE_PREFIX (Payslip),
// PAYVAULT_TOKEN_TTL (50m).
func Load() (*Config, error) {
	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("PAYVAULT_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	dbPath := "payvault.db"
	if v, ok := os.LookupEnv("PAYVAULT_DB_PATH"); ok {
		dbPath = v
	}

	var secretKey []byte
	if v, ok := os.LookupEnv("PAYVAULT_SECRET_KEY"); ok && v != "" {
		decoded, err := hex.DecodeString(v)
		if err != nil {
			return nil, fmt.Errorf("PAYVAULT_SECRET_KEY is not valid hex: %w", err)
		}
		if len(decoded) != 32 {
			return nil, fmt.Errorf("PAYVAULT_SECRET_KEY must decode to 32 bytes, got %d", len(decoded))
		}
		secretKey = decoded
	}

	redirectAddr := "127.0.0.1:8437"
	if v, ok := os.LookupEnv("PAYVAULT_OAUTH_REDIRECT_ADDR"); ok {
		redirectAddr = v
	}

	folderName := "Payslips"
	if v, ok := os.LookupEnv("PAYVAULT_FOLDER_NAME"); ok && v != "" {
		folderName = v
	}

	filePrefix := "Payslip"
	if v, ok := os.LookupEnv("PAYVAULT_FILE_PREFIX"); ok && v != "" {
		filePrefix = v
	}

	tokenTTL := 50 * time.Minute
	if v, ok := os.LookupEnv("PAYVAULT_TOKEN_TTL"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("PAYVAULT_TOKEN_TTL has invalid duration %q: %w", v, err)
		}
		if parsed <= 0 {
			return nil, fmt.Errorf("PAYVAULT_TOKEN_TTL must be positive, got %q", v)
		}
		tokenTTL = parsed
	}

	return &Config{
		ListenAddr:         listenAddr,
		DBPath:             dbPath,
		SecretKey:          secretKey,
		GoogleClientID:     os.Getenv("PAYVAULT_GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("PAYVAULT_GOOGLE_CLIENT_SECRET"),
		OAuthRedirectAddr:  redirectAddr,
		FolderName:         folderName,
		FilePrefix:         filePrefix,
		TokenTTL:           tokenTTL,
	}, nil
}
