package config

// Default values for every configuration key, matching the engine's
// documented external interface one for one.
const (
	defaultMonitoringDir = "./test_directory"
	defaultBackupDir     = "./backup_directory"
	defaultLogDir        = "./logs"

	defaultFileOpFrequencyThreshold = 10.0
	defaultExtensionChangeThreshold = 3
	defaultEntropyThreshold         = 0.8

	defaultFrequencyWeight = 30.0
	defaultExtensionWeight = 50.0
	defaultEntropyWeight   = 20.0

	defaultDetectionThreshold       = 0.6
	defaultRequireModelConfirmation = true

	defaultAutoRecovery    = true
	defaultRecoveryTimeout = 10

	defaultEnableConsoleAlerts  = true
	defaultLogAlerts            = true
	defaultEnableExternalAlerts = false
)

// DefaultConfig returns a Config populated with all default values. This is
// used both as the starting point for TOML decoding (so unset keys retain
// defaults) and as the fallback when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		MonitoringDir: defaultMonitoringDir,
		BackupDir:     defaultBackupDir,
		LogDir:        defaultLogDir,

		FileOpFrequencyThreshold: defaultFileOpFrequencyThreshold,
		ExtensionChangeThreshold: defaultExtensionChangeThreshold,
		EntropyThreshold:         defaultEntropyThreshold,

		FrequencyWeight: defaultFrequencyWeight,
		ExtensionWeight: defaultExtensionWeight,
		EntropyWeight:   defaultEntropyWeight,

		DetectionThreshold:       defaultDetectionThreshold,
		RequireModelConfirmation: defaultRequireModelConfirmation,

		AutoRecovery:    defaultAutoRecovery,
		RecoveryTimeout: defaultRecoveryTimeout,

		EnableConsoleAlerts:  defaultEnableConsoleAlerts,
		LogAlerts:            defaultLogAlerts,
		EnableExternalAlerts: defaultEnableExternalAlerts,
	}
}
