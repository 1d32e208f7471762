package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/BurntSushi/toml"
)

// Load reads and parses a flat TOML config file, applies RANSOMGUARD_<KEY>
// environment overrides, validates the result, and returns the resulting
// Config. Unlike the teacher's two-pass drive-aware Load, there are no
// sections to extract — a single toml.Decode into the embedded flat struct
// is enough. Unknown keys are fatal, with "did you mean?" suggestions.
func Load(path string, logger *slog.Logger) (*Config, error) {
	logger.Debug("loading config file", "path", path)

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := checkUnknownKeys(&md); err != nil {
		return nil, err
	}

	if err := ApplyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	logger.Debug("config file parsed successfully", "path", path)

	return cfg, nil
}

// LoadOrDefault reads path if it exists, otherwise starts from
// DefaultConfig. Either way, environment overrides are applied and the
// result validated. This supports the zero-config first-run experience: the
// engine runs against its documented defaults without a config file.
func LoadOrDefault(path string, logger *slog.Logger) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		logger.Debug("config file not found, using defaults", "path", path)

		cfg := DefaultConfig()
		if err := ApplyEnvOverrides(cfg); err != nil {
			return nil, fmt.Errorf("applying environment overrides: %w", err)
		}
		if err := Validate(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}

		return cfg, nil
	}

	return Load(path, logger)
}
