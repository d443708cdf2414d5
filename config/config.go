// Package config provides configuration management for the asset tools.
// It handles loading and validating configuration from YAML or JSON files
// and environment variables.
package config

import (
	"time"

	"github.com/recommerce/asset/factory"
)

// AppConfig represents the complete application configuration
type AppConfig struct {
	Log    LogConfig      `koanf:"log"`
	Asset  factory.Record `koanf:"asset"`
	Server ServerConfig   `koanf:"server"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Mode   string `koanf:"mode"` // path redaction: debug, development or production
}

// ServerConfig holds the read-only HTTP gateway configuration
type ServerConfig struct {
	ListenAddr      string        `koanf:"listen_addr"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}
