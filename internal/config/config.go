// Package config provides configuration management for the book pipeline.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Default values used when the config file leaves a setting empty.
const (
	DefaultDriver       = "sqlite"
	DefaultDBPath       = "DB_libri.db"
	DefaultExchangeRate = 1.16
	DefaultMetricsAddr  = ":9108"
)

// Environment variables that override file settings.
const (
	EnvDBPath       = "BOOKPIPE_DB_PATH"
	EnvExchangeRate = "BOOKPIPE_EXCHANGE_RATE"
	EnvPostgresDSN  = "BOOKPIPE_PG_DSN"
	EnvLogLevel     = "BOOKPIPE_LOG_LEVEL"
)

// Configuration validation errors.
var (
	ErrInvalidDriver       = errors.New("storage.driver must be 'sqlite' or 'postgres'")
	ErrMissingDBPath       = errors.New("storage.db_path is required for the sqlite driver")
	ErrMissingDSN          = errors.New("storage.dsn is required for the postgres driver")
	ErrInvalidExchangeRate = errors.New("normalizer.exchange_rate must be a positive number")
	ErrInvalidLogLevel     = errors.New("logging.level must be one of: debug, info, warn, error")
	ErrInvalidLogFormat    = errors.New("logging.format must be 'text' or 'json'")
	ErrMissingMetricsAddr  = errors.New("metrics.listen is required when metrics are enabled")
)

// Config represents the complete pipeline configuration.
type Config struct {
	Storage    StorageConfig    `yaml:"storage"`
	Normalizer NormalizerConfig `yaml:"normalizer"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Report     ReportConfig     `yaml:"report"`
}

// StorageConfig selects and locates the record store.
type StorageConfig struct {
	Driver string `yaml:"driver"`
	DBPath string `yaml:"db_path"`
	DSN    string `yaml:"dsn"`
}

// NormalizerConfig holds field conversion settings.
type NormalizerConfig struct {
	ExchangeRate float64 `yaml:"exchange_rate"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Listen  string `yaml:"listen"`
	Enabled bool   `yaml:"enabled"`
}

// ReportConfig controls the end-of-run summary table.
type ReportConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns a configuration that works with no file at all.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Driver: DefaultDriver,
			DBPath: DefaultDBPath,
		},
		Normalizer: NormalizerConfig{
			ExchangeRate: DefaultExchangeRate,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Listen: DefaultMetricsAddr,
		},
		Report: ReportConfig{
			Enabled: true,
		},
	}
}

// LoadConfig loads configuration from a YAML file on top of the defaults,
// applies environment overrides and validates the result.
func LoadConfig(filepath string) (*Config, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadDotEnv reads KEY=value pairs from the given files (".env" when none
// are named) into the process environment. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}

	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	return nil
}

// ApplyEnv overrides settings from BOOKPIPE_* environment variables.
func (c *Config) ApplyEnv() error {
	if v, ok := os.LookupEnv(EnvDBPath); ok && v != "" {
		c.Storage.DBPath = v
	}

	if v, ok := os.LookupEnv(EnvPostgresDSN); ok && v != "" {
		c.Storage.Driver = "postgres"
		c.Storage.DSN = v
	}

	if v, ok := os.LookupEnv(EnvExchangeRate); ok && v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidExchangeRate, EnvExchangeRate, v)
		}

		c.Normalizer.ExchangeRate = rate
	}

	if v, ok := os.LookupEnv(EnvLogLevel); ok && v != "" {
		c.Logging.Level = v
	}

	return nil
}

// SaveConfig saves configuration to YAML file.
func (c *Config) SaveConfig(filepath string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filepath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "sqlite":
		if c.Storage.DBPath == "" {
			return ErrMissingDBPath
		}
	case "postgres":
		if c.Storage.DSN == "" {
			return ErrMissingDSN
		}
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidDriver, c.Storage.Driver)
	}

	rate := c.Normalizer.ExchangeRate
	if rate <= 0 || math.IsInf(rate, 0) || math.IsNaN(rate) {
		return ErrInvalidExchangeRate
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return ErrInvalidLogLevel
	}

	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return ErrInvalidLogFormat
	}

	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		return ErrMissingMetricsAddr
	}

	return nil
}

// String returns a string representation of the config.
func (c *Config) String() string {
	location := c.Storage.DBPath
	if c.Storage.Driver == "postgres" {
		location = "<dsn>"
	}

	return fmt.Sprintf(
		"Config{Driver: %s, Location: %s, ExchangeRate: %.4f}",
		c.Storage.Driver,
		location,
		c.Normalizer.ExchangeRate,
	)
}
