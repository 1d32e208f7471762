package config

import (
	"fmt"
	"os"
	"strconv"
)

// envPrefix names the environment variable convention: RANSOMGUARD_<KEY>,
// one variable per config key, read the same way the teacher's
// internal/config/env.go reads ONEDRIVE_GO_*.
const envPrefix = "RANSOMGUARD_"

// ApplyEnvOverrides overlays any RANSOMGUARD_<KEY> environment variables
// found onto cfg, in place. Unset variables leave the existing value (file
// or default) untouched. Returns an error naming the first key whose value
// fails to parse as its field's type.
func ApplyEnvOverrides(cfg *Config) error {
	if v, ok := lookupEnv("MONITORING_DIR"); ok {
		cfg.MonitoringDir = v
	}
	if v, ok := lookupEnv("BACKUP_DIR"); ok {
		cfg.BackupDir = v
	}
	if v, ok := lookupEnv("LOG_DIR"); ok {
		cfg.LogDir = v
	}

	if err := overrideFloat("FILE_OP_FREQUENCY_THRESHOLD", &cfg.FileOpFrequencyThreshold); err != nil {
		return err
	}
	if err := overrideInt("EXTENSION_CHANGE_THRESHOLD", &cfg.ExtensionChangeThreshold); err != nil {
		return err
	}
	if err := overrideFloat("ENTROPY_THRESHOLD", &cfg.EntropyThreshold); err != nil {
		return err
	}

	if err := overrideFloat("FREQUENCY_WEIGHT", &cfg.FrequencyWeight); err != nil {
		return err
	}
	if err := overrideFloat("EXTENSION_WEIGHT", &cfg.ExtensionWeight); err != nil {
		return err
	}
	if err := overrideFloat("ENTROPY_WEIGHT", &cfg.EntropyWeight); err != nil {
		return err
	}

	if err := overrideFloat("DETECTION_THRESHOLD", &cfg.DetectionThreshold); err != nil {
		return err
	}
	if err := overrideBool("REQUIRE_MODEL_CONFIRMATION", &cfg.RequireModelConfirmation); err != nil {
		return err
	}
	if v, ok := lookupEnv("MODEL_PATH"); ok {
		cfg.ModelPath = v
	}

	if err := overrideBool("AUTO_RECOVERY", &cfg.AutoRecovery); err != nil {
		return err
	}
	if err := overrideInt("RECOVERY_TIMEOUT", &cfg.RecoveryTimeout); err != nil {
		return err
	}

	if err := overrideBool("ENABLE_CONSOLE_ALERTS", &cfg.EnableConsoleAlerts); err != nil {
		return err
	}
	if err := overrideBool("LOG_ALERTS", &cfg.LogAlerts); err != nil {
		return err
	}
	if err := overrideBool("ENABLE_EXTERNAL_ALERTS", &cfg.EnableExternalAlerts); err != nil {
		return err
	}
	if v, ok := lookupEnv("EXTERNAL_ALERT_ENDPOINT"); ok {
		cfg.ExternalAlertEndpoint = v
	}
	if v, ok := lookupEnv("EXTERNAL_ALERT_TOKEN"); ok {
		cfg.ExternalAlertToken = v
	}

	return nil
}

func lookupEnv(key string) (string, bool) {
	return os.LookupEnv(envPrefix + key)
}

func overrideFloat(key string, dst *float64) error {
	v, ok := lookupEnv(key)
	if !ok {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%s%s: %w", envPrefix, key, err)
	}
	*dst = f
	return nil
}

func overrideInt(key string, dst *int) error {
	v, ok := lookupEnv(key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", envPrefix, key, err)
	}
	*dst = n
	return nil
}

func overrideBool(key string, dst *bool) error {
	v, ok := lookupEnv(key)
	if !ok {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", envPrefix, key, err)
	}
	*dst = b
	return nil
}
