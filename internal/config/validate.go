package config

import (
	"errors"
	"fmt"
)

// Validation range constants.
const (
	minThreshold = 0.0
	maxThreshold = 1.0
	minWeight    = 0.0
)

// Validate checks all configuration values and returns all errors found. It
// accumulates every error rather than stopping at the first, so users see a
// complete report and can fix all issues in one pass, matching the
// teacher's own Validate.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.MonitoringDir == "" {
		errs = append(errs, errors.New("MONITORING_DIR: must not be empty"))
	}
	if cfg.BackupDir == "" {
		errs = append(errs, errors.New("BACKUP_DIR: must not be empty"))
	}
	if cfg.LogDir == "" {
		errs = append(errs, errors.New("LOG_DIR: must not be empty"))
	}

	if cfg.FileOpFrequencyThreshold <= 0 {
		errs = append(errs, fmt.Errorf("FILE_OP_FREQUENCY_THRESHOLD: must be positive, got %v", cfg.FileOpFrequencyThreshold))
	}
	if cfg.ExtensionChangeThreshold <= 0 {
		errs = append(errs, fmt.Errorf("EXTENSION_CHANGE_THRESHOLD: must be positive, got %d", cfg.ExtensionChangeThreshold))
	}
	if cfg.EntropyThreshold < minThreshold || cfg.EntropyThreshold > maxThreshold {
		errs = append(errs, fmt.Errorf("ENTROPY_THRESHOLD: must be in [0,1], got %v", cfg.EntropyThreshold))
	}

	if cfg.FrequencyWeight < minWeight {
		errs = append(errs, fmt.Errorf("FREQUENCY_WEIGHT: must be non-negative, got %v", cfg.FrequencyWeight))
	}
	if cfg.ExtensionWeight < minWeight {
		errs = append(errs, fmt.Errorf("EXTENSION_WEIGHT: must be non-negative, got %v", cfg.ExtensionWeight))
	}
	if cfg.EntropyWeight < minWeight {
		errs = append(errs, fmt.Errorf("ENTROPY_WEIGHT: must be non-negative, got %v", cfg.EntropyWeight))
	}

	if cfg.DetectionThreshold < minThreshold || cfg.DetectionThreshold > maxThreshold {
		errs = append(errs, fmt.Errorf("DETECTION_THRESHOLD: must be in [0,1], got %v", cfg.DetectionThreshold))
	}

	if cfg.RecoveryTimeout <= 0 {
		errs = append(errs, fmt.Errorf("RECOVERY_TIMEOUT: must be positive, got %d", cfg.RecoveryTimeout))
	}

	if cfg.EnableExternalAlerts && cfg.ExternalAlertEndpoint == "" {
		errs = append(errs, errors.New("EXTERNAL_ALERT_ENDPOINT: required when ENABLE_EXTERNAL_ALERTS is true"))
	}

	return errors.Join(errs...)
}
