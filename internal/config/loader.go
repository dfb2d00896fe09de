package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config captures environment driven configuration values for the booking service.
//
// All variables share the ROOMBOOK_ prefix, e.g. ROOMBOOK_HTTP_PORT. The
// SQLite DSN defaults to immediate transactions so overlap checks and writes
// serialize at BEGIN.
type Config struct {
	HTTPPort        int           `envconfig:"HTTP_PORT" default:"8080"`
	SQLiteDSN       string        `envconfig:"SQLITE_DSN" default:"file:roombook.db?_txlock=immediate"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
}

// Load parses configuration values from the current process environment.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("roombook", &cfg); err != nil {
		return Config{}, fmt.Errorf("load configuration: %w", err)
	}

	if cfg.HTTPPort <= 0 || cfg.HTTPPort > 65535 {
		return Config{}, fmt.Errorf("ROOMBOOK_HTTP_PORT must be a valid TCP port, got %d", cfg.HTTPPort)
	}
	if cfg.SQLiteDSN == "" {
		return Config{}, fmt.Errorf("ROOMBOOK_SQLITE_DSN must not be empty")
	}
	if cfg.ShutdownTimeout <= 0 {
		return Config{}, fmt.Errorf("ROOMBOOK_SHUTDOWN_TIMEOUT must be positive, got %s", cfg.ShutdownTimeout)
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return Config{}, fmt.Errorf("ROOMBOOK_LOG_LEVEL must be one of debug, info, warn, error; got %q", cfg.LogLevel)
	}

	return cfg, nil
}
