package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyEnvOverrides_StringField(t *testing.T) {
	t.Setenv("RANSOMGUARD_MONITORING_DIR", "/mnt/protected")
	cfg := DefaultConfig()
	require.NoError(t, ApplyEnvOverrides(cfg))
	assert.Equal(t, "/mnt/protected", cfg.MonitoringDir)
}

func TestApplyEnvOverrides_FloatField(t *testing.T) {
	t.Setenv("RANSOMGUARD_ENTROPY_THRESHOLD", "0.95")
	cfg := DefaultConfig()
	require.NoError(t, ApplyEnvOverrides(cfg))
	assert.Equal(t, 0.95, cfg.EntropyThreshold)
}

func TestApplyEnvOverrides_IntField(t *testing.T) {
	t.Setenv("RANSOMGUARD_RECOVERY_TIMEOUT", "45")
	cfg := DefaultConfig()
	require.NoError(t, ApplyEnvOverrides(cfg))
	assert.Equal(t, 45, cfg.RecoveryTimeout)
}

func TestApplyEnvOverrides_BoolField(t *testing.T) {
	t.Setenv("RANSOMGUARD_AUTO_RECOVERY", "false")
	cfg := DefaultConfig()
	require.NoError(t, ApplyEnvOverrides(cfg))
	assert.False(t, cfg.AutoRecovery)
}

func TestApplyEnvOverrides_UnsetLeavesDefault(t *testing.T) {
	cfg := DefaultConfig()
	want := cfg.RecoveryTimeout
	require.NoError(t, ApplyEnvOverrides(cfg))
	assert.Equal(t, want, cfg.RecoveryTimeout)
}

func TestApplyEnvOverrides_InvalidFloatErrors(t *testing.T) {
	t.Setenv("RANSOMGUARD_ENTROPY_THRESHOLD", "not-a-number")
	cfg := DefaultConfig()
	err := ApplyEnvOverrides(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RANSOMGUARD_ENTROPY_THRESHOLD")
}

func TestApplyEnvOverrides_InvalidBoolErrors(t *testing.T) {
	t.Setenv("RANSOMGUARD_AUTO_RECOVERY", "maybe")
	cfg := DefaultConfig()
	err := ApplyEnvOverrides(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RANSOMGUARD_AUTO_RECOVERY")
}
