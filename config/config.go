// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Schemas SchemasConfig `yaml:"schemas"`
	Engine  EngineConfig  `yaml:"engine"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// SchemasConfig locates the model definition files.
type SchemasConfig struct {
	Dir      string        `yaml:"dir"`
	Watch    bool          `yaml:"watch"`
	Debounce time.Duration `yaml:"debounce"` // quiet period before a watched change is reloaded
}

// EngineConfig configures the model engine.
type EngineConfig struct {
	MaxDepth int    `yaml:"max_depth"`
	IDFormat string `yaml:"id_format"` // "uuid" or "ordered"
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// MetricsConfig configures metrics collection.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadFromEnv creates configuration entirely from environment variables.
//
// Environment variables:
//
//	MODELTYPE_SCHEMAS_DIR       - Model definition directory (default: schemas)
//	MODELTYPE_SCHEMAS_WATCH     - Reload definitions on change (default: false)
//	MODELTYPE_SCHEMAS_DEBOUNCE  - Quiet period before reloading (default: 200ms)
//	MODELTYPE_ENGINE_MAX_DEPTH  - Nested instance limit (default: 64)
//	MODELTYPE_ENGINE_ID_FORMAT  - Instance IDs: uuid or ordered (default: uuid)
//	MODELTYPE_LOG_LEVEL         - Log level: debug, info, warn, error (default: info)
//	MODELTYPE_LOG_FORMAT        - Log format: json or console (default: console)
//	MODELTYPE_METRICS_ENABLED   - Collect Prometheus metrics (default: false)
func LoadFromEnv() (*Config, error) {
	var cfg Config

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadWithFallback loads path when it exists and falls back to the
// environment otherwise.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return LoadFromEnv()
}

// applyEnvOverrides applies MODELTYPE_* environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MODELTYPE_SCHEMAS_DIR"); v != "" {
		cfg.Schemas.Dir = v
	}
	if v := os.Getenv("MODELTYPE_SCHEMAS_WATCH"); v != "" {
		cfg.Schemas.Watch = parseBool(v)
	}
	if v := os.Getenv("MODELTYPE_SCHEMAS_DEBOUNCE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Schemas.Debounce = d
		}
	}

	if v := os.Getenv("MODELTYPE_ENGINE_MAX_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Engine.MaxDepth = n
		}
	}
	if v := os.Getenv("MODELTYPE_ENGINE_ID_FORMAT"); v != "" {
		cfg.Engine.IDFormat = v
	}

	if v := os.Getenv("MODELTYPE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("MODELTYPE_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	if v := os.Getenv("MODELTYPE_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func setDefaults(cfg *Config) {
	if cfg.Schemas.Dir == "" {
		cfg.Schemas.Dir = "schemas"
	}
	if cfg.Schemas.Debounce == 0 {
		cfg.Schemas.Debounce = 200 * time.Millisecond
	}

	if cfg.Engine.MaxDepth == 0 {
		cfg.Engine.MaxDepth = 64
	}
	if cfg.Engine.IDFormat == "" {
		cfg.Engine.IDFormat = "uuid"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
}

func validate(cfg *Config) error {
	if cfg.Engine.MaxDepth < 0 {
		return fmt.Errorf("engine.max_depth must be positive, got %d", cfg.Engine.MaxDepth)
	}
	if cfg.Schemas.Debounce < 0 {
		return fmt.Errorf("schemas.debounce must not be negative, got %s", cfg.Schemas.Debounce)
	}

	validIDFormats := map[string]bool{"uuid": true, "ordered": true}
	if !validIDFormats[cfg.Engine.IDFormat] {
		return fmt.Errorf("engine.id_format must be 'uuid' or 'ordered', got %q", cfg.Engine.IDFormat)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format)
	}

	return nil
}
