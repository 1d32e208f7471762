// Package config loads the engine's flat key-value configuration: a
// DefaultConfig, an optional TOML file layered on top, then
// RANSOMGUARD_<KEY> environment overrides. A Holder offers thread-safe
// access to a *Config; the engine's components take *Config directly.
package config

import (
	"time"

	"github.com/ransomguard/ransomguard/internal/scorer"
)

// Config is the flat key-value configuration, one field per key in the
// engine's external interface. Struct tags are the literal TOML key names;
// ApplyEnvOverrides names the same keys explicitly, one per field.
type Config struct {
	MonitoringDir string `toml:"MONITORING_DIR"`
	BackupDir     string `toml:"BACKUP_DIR"`
	LogDir        string `toml:"LOG_DIR"`

	FileOpFrequencyThreshold float64 `toml:"FILE_OP_FREQUENCY_THRESHOLD"`
	ExtensionChangeThreshold int     `toml:"EXTENSION_CHANGE_THRESHOLD"`
	EntropyThreshold         float64 `toml:"ENTROPY_THRESHOLD"`

	FrequencyWeight float64 `toml:"FREQUENCY_WEIGHT"`
	ExtensionWeight float64 `toml:"EXTENSION_WEIGHT"`
	EntropyWeight   float64 `toml:"ENTROPY_WEIGHT"`

	DetectionThreshold       float64 `toml:"DETECTION_THRESHOLD"`
	RequireModelConfirmation bool    `toml:"REQUIRE_MODEL_CONFIRMATION"`
	// ModelPath points at the opaque pre-trained anomaly model artifact
	// (spec.md §4.3's "a configurable path"). Empty means no model: the
	// scorer degrades to threshold+rule mode, never treated as an error.
	ModelPath string `toml:"MODEL_PATH"`

	AutoRecovery    bool `toml:"AUTO_RECOVERY"`
	RecoveryTimeout int  `toml:"RECOVERY_TIMEOUT"` // seconds

	EnableConsoleAlerts   bool   `toml:"ENABLE_CONSOLE_ALERTS"`
	LogAlerts             bool   `toml:"LOG_ALERTS"`
	EnableExternalAlerts  bool   `toml:"ENABLE_EXTERNAL_ALERTS"`
	ExternalAlertEndpoint string `toml:"EXTERNAL_ALERT_ENDPOINT"`
	ExternalAlertToken    string `toml:"EXTERNAL_ALERT_TOKEN"`
}

// RecoveryTimeoutDuration converts the configured RecoveryTimeout (seconds)
// to a time.Duration for the orchestrator's debounce timer.
func (c *Config) RecoveryTimeoutDuration() time.Duration {
	return time.Duration(c.RecoveryTimeout) * time.Second
}

// ScorerConfig projects the flat config onto scorer.Config, the shape the
// Scorer's constructor actually takes.
func (c *Config) ScorerConfig() scorer.Config {
	return scorer.Config{
		OpThreshold:              c.FileOpFrequencyThreshold,
		ExtThreshold:             c.ExtensionChangeThreshold,
		EntropyThreshold:         c.EntropyThreshold,
		OpWeight:                 c.FrequencyWeight,
		ExtWeight:                c.ExtensionWeight,
		EntropyWeight:            c.EntropyWeight,
		DetectionThreshold:       c.DetectionThreshold,
		RequireModelConfirmation: c.RequireModelConfirmation,
	}
}
