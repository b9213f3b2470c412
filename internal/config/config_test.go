package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"snowdash/pkg/models"
)

func TestGetConfigFileEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	t.Setenv("SNOWDASH_CONFIG", path)

	assert.Equal(t, path, GetConfigFile())
	assert.Equal(t, filepath.Dir(path), GetConfigPath())
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("SNOWDASH_CONFIG", filepath.Join(t.TempDir(), "config.yaml"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "INSURANCE_WORKSHOP_DB", cfg.Warehouse.Database)
	assert.Equal(t, "ANALYTICS", cfg.Warehouse.AnalyticsSchema)
	assert.Equal(t, models.DefaultDashboard().QualityTTL, cfg.Dashboard.QualityTTL)
	assert.Equal(t, ":8080", cfg.Server.Listen)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	keyring.MockInit()
	t.Setenv("SNOWDASH_CONFIG", filepath.Join(t.TempDir(), "config.yaml"))

	cfg := &models.Config{}
	cfg.Snowflake.Account = "xy12345.us-east-1"
	cfg.Snowflake.Username = "workshop_user"
	cfg.Snowflake.Password = "s3cret"
	cfg.Snowflake.Role = "WORKSHOP_ROLE"
	cfg.Snowflake.Warehouse = "COMPUTE_WH"
	cfg.ApplyDefaults()

	require.NoError(t, Save(cfg))

	// the file on disk must not carry the plaintext password
	data, err := os.ReadFile(GetConfigFile())
	require.NoError(t, err)
	assert.NotContains(t, string(data), "s3cret")

	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "xy12345.us-east-1", loaded.Snowflake.Account)
	assert.Equal(t, "s3cret", loaded.Snowflake.Password)
	assert.Equal(t, "WORKSHOP_ROLE", loaded.Snowflake.Role)
}

func TestExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv("SNOWDASH_CONFIG", path)

	assert.False(t, Exists())
	require.NoError(t, os.WriteFile(path, []byte("server:\n  listen: ':9090'\n"), 0600))
	assert.True(t, Exists())
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	t.Setenv("SNOWDASH_ENCRYPTION_KEY", "unit-test-key")

	encrypted, err := EncryptPassword("hunter2")
	require.NoError(t, err)
	assert.True(t, IsEncrypted(encrypted))
	assert.NotContains(t, encrypted, "hunter2")

	decrypted, err := DecryptPassword(encrypted)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", decrypted)
}

func TestEncryptPasswordEmpty(t *testing.T) {
	encrypted, err := EncryptPassword("")
	require.NoError(t, err)
	assert.Equal(t, "", encrypted)
}

func TestDecryptPasswordPlaintextPassesThrough(t *testing.T) {
	decrypted, err := DecryptPassword("not-encrypted")
	require.NoError(t, err)
	assert.Equal(t, "not-encrypted", decrypted)
}

func TestIsEncrypted(t *testing.T) {
	assert.True(t, IsEncrypted("ENC[abc123]"))
	assert.False(t, IsEncrypted("abc123"))
	assert.False(t, IsEncrypted("ENC[abc123"))
	assert.False(t, IsEncrypted(""))
}
