package app

import (
	"io"

	"relay/internal/config"
)

// Config holds the application configuration
type Config struct {
	// Debug settings
	Debug bool

	// Silent suppresses all log output. Command output is unaffected.
	Silent bool

	// Custom configuration path (optional)
	// When empty, ~/.config/relay is used
	ConfigPath string

	// Output receives the serve console. Defaults to stdout.
	Output io.Writer

	// ServerLogs prints every line supervised servers write while serving.
	ServerLogs bool

	// Loaded configuration, set during bootstrap
	RelayConfig *config.RelayConfig
}

// NewConfig creates a new application configuration
func NewConfig(debug, silent bool, configPath string) *Config {
	return &Config{
		Debug:      debug,
		Silent:     silent,
		ConfigPath: configPath,
	}
}
