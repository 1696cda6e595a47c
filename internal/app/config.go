package app

import (
	"io"
)

// Config holds the application configuration
type Config struct {
	// LogLevel overrides the logLevel setting when non-empty.
	LogLevel string

	// ConfigDir is the settings directory; empty means ~/.config/ahpbridge.
	ConfigDir string

	// Silent discards all log output.
	Silent bool

	// LogOutput receives log lines. Defaults to stderr so stdout stays
	// reserved for results and protocol traffic.
	LogOutput io.Writer

	// Watch reloads settings when the configuration file changes.
	Watch bool
}

// NewConfig creates a new application configuration
func NewConfig(logLevel, configDir string) *Config {
	return &Config{
		LogLevel:  logLevel,
		ConfigDir: configDir,
	}
}
