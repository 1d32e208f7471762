package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ransomguard.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoad_OverridesDefaultsFromFile(t *testing.T) {
	path := writeConfigFile(t, `
MONITORING_DIR = "/mnt/protected"
RECOVERY_TIMEOUT = 30
`)

	cfg, err := Load(path, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, "/mnt/protected", cfg.MonitoringDir)
	assert.Equal(t, 30, cfg.RecoveryTimeout)
	// Untouched keys keep their defaults.
	assert.Equal(t, "./backup_directory", cfg.BackupDir)
}

func TestLoad_UnknownKeyFails(t *testing.T) {
	path := writeConfigFile(t, `BOGUS_KEY = "x"`)

	_, err := Load(path, discardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BOGUS_KEY")
}

func TestLoad_InvalidValuesFailValidation(t *testing.T) {
	path := writeConfigFile(t, `ENTROPY_THRESHOLD = 5.0`)

	_, err := Load(path, discardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ENTROPY_THRESHOLD")
}

func TestLoad_MissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"), discardLogger())
	require.Error(t, err)
}

func TestLoad_EnvOverridesFileValue(t *testing.T) {
	path := writeConfigFile(t, `RECOVERY_TIMEOUT = 30`)
	t.Setenv("RANSOMGUARD_RECOVERY_TIMEOUT", "99")

	cfg, err := Load(path, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, 99, cfg.RecoveryTimeout)
}

func TestLoadOrDefault_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.toml"), discardLogger())
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().MonitoringDir, cfg.MonitoringDir)
}

func TestLoadOrDefault_ExistingFileIsLoaded(t *testing.T) {
	path := writeConfigFile(t, `BACKUP_DIR = "/mnt/shadow"`)

	cfg, err := LoadOrDefault(path, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, "/mnt/shadow", cfg.BackupDir)
}
