package config

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// ServerConfig defines the HTTP listener of the backend.
type ServerConfig struct {
	// Address is the host:port the API listens on.
	Address string `json:"address"`
	// ShutdownTimeoutSeconds bounds graceful shutdown.
	ShutdownTimeoutSeconds int `json:"shutdown_timeout_seconds"`
}

// SetDefaults applies sane defaults.
func (c *ServerConfig) SetDefaults() {
	if c.Address == "" {
		c.Address = ":8000"
	}
	if c.ShutdownTimeoutSeconds == 0 {
		c.ShutdownTimeoutSeconds = 5
	}
}

// Validate checks mandatory fields.
func (c ServerConfig) Validate() error {
	if c.ShutdownTimeoutSeconds < 0 {
		return fmt.Errorf("server.shutdown_timeout_seconds must be positive")
	}
	return nil
}

// LoggingConfig controls the application log output.
type LoggingConfig struct {
	// Level is one of trace, debug, info, warn, error.
	Level string `json:"level"`
}

// SetDefaults applies sane defaults.
func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
}

// Validate checks the level is known.
func (c LoggingConfig) Validate() error {
	if _, err := zerolog.ParseLevel(strings.ToLower(c.Level)); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	return nil
}
