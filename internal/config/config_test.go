package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// allConfigKeys lists every PAYVAULT_ env var that Load() reads.
var allConfigKeys = []string{
	"PAYVAULT_LISTEN_ADDR",
	"PAYVAULT_DB_PATH",
	"PAYVAULT_SECRET_KEY",
	"PAYVAULT_GOOGLE_CLIENT_ID",
	"PAYVAULT_GOOGLE_CLIENT_SECRET",
	"PAYVAULT_OAUTH_REDIRECT_ADDR",
	"PAYVAULT_FOLDER_NAME",
	"PAYVAULT_FILE_PREFIX",
	"PAYVAULT_TOKEN_TTL",
}

// isolateConfigEnv saves and unsets all PAYVAULT_ env vars so tests don't
// inherit values from the host environment (e.g. a running dev server).
// t.Cleanup restores original values after the test.
func isolateConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range allConfigKeys {
		if orig, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, orig) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	isolateConfigEnv(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", cfg.ListenAddr)
	assert.Equal(t, "payvault.db", cfg.DBPath)
	assert.Nil(t, cfg.SecretKey)
	assert.Equal(t, "127.0.0.1:8437", cfg.OAuthRedirectAddr)
	assert.Equal(t, "Payslips", cfg.FolderName)
	assert.Equal(t, "Payslip", cfg.FilePrefix)
	assert.Equal(t, 50*time.Minute, cfg.TokenTTL)
	assert.False(t, cfg.HasOAuthClient())
}

func TestLoad_Overrides(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("PAYVAULT_LISTEN_ADDR", "0.0.0.0:9090")
	t.Setenv("PAYVAULT_DB_PATH", "/tmp/test.db")
	t.Setenv("PAYVAULT_GOOGLE_CLIENT_ID", "client-id")
	t.Setenv("PAYVAULT_GOOGLE_CLIENT_SECRET", "client-secret")
	t.Setenv("PAYVAULT_FOLDER_NAME", "Documents")
	t.Setenv("PAYVAULT_FILE_PREFIX", "Doc")
	t.Setenv("PAYVAULT_TOKEN_TTL", "10m")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9090", cfg.ListenAddr)
	assert.Equal(t, "/tmp/test.db", cfg.DBPath)
	assert.Equal(t, "Documents", cfg.FolderName)
	assert.Equal(t, "Doc", cfg.FilePrefix)
	assert.Equal(t, 10*time.Minute, cfg.TokenTTL)
	assert.True(t, cfg.HasOAuthClient())
}

func TestLoad_SecretKey_Valid(t *testing.T) {
	isolateConfigEnv(t)
	// 64 hex chars = 32 bytes
	t.Setenv("PAYVAULT_SECRET_KEY", "0102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f20")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Len(t, cfg.SecretKey, 32)
}

func TestLoad_SecretKey_TooShort(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("PAYVAULT_SECRET_KEY", "deadbeef")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PAYVAULT_SECRET_KEY")
}

func TestLoad_SecretKey_NotHex(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("PAYVAULT_SECRET_KEY", "zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PAYVAULT_SECRET_KEY")
}

func TestLoad_InvalidTokenTTL(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("PAYVAULT_TOKEN_TTL", "not-a-duration")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PAYVAULT_TOKEN_TTL")
}

func TestLoad_NegativeTokenTTL(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("PAYVAULT_TOKEN_TTL", "-5m")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PAYVAULT_TOKEN_TTL")
}
