// Package config loads runtime settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config holds settings shared by the CLI and the HTTP server. Command-line
// flags take precedence over these values.
type Config struct {
	Port         int    `env:"PAYMENTS_PORT" envDefault:"8080"`
	Format       string `env:"PAYMENTS_FORMAT" envDefault:"csv"`
	SQLitePath   string `env:"PAYMENTS_SQLITE_PATH"`
	PostgresURL  string `env:"PAYMENTS_POSTGRES_URL"`
	LogLevel     string `env:"PAYMENTS_LOG_LEVEL" envDefault:"info"`
	MaxBodyBytes int64  `env:"PAYMENTS_MAX_BODY_BYTES" envDefault:"67108864"`
}

// Load parses and validates the environment.
func Load() (*Config, error) {
	cfg, err := Parse()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse reads the environment without validating it. Callers that merge
// flags on top must call Validate afterwards.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

// Validate checks the merged settings.
func (c *Config) Validate() error {
	switch c.Format {
	case "csv", "table":
	default:
		return fmt.Errorf("unsupported output format %q (want csv or table)", c.Format)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("max body bytes must be positive, got %d", c.MaxBodyBytes)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}
