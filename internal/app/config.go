package app

import (
	"connectkit/internal/config"
)

// Config holds the application configuration
type Config struct {
	// LogLevel overrides logging.level from config.yaml when set.
	LogLevel string

	// LogFile overrides logging.file from config.yaml when set.
	LogFile string

	// Quiet limits log output to errors.
	Quiet bool

	// Configuration directory; defaults to ~/.config/connectkit.
	ConfigPath string

	// ConnectKit is loaded from ConfigPath by NewApplication unless already set.
	ConnectKit *config.ConnectKitConfig
}

// NewConfig creates a new application configuration
func NewConfig(configPath, logLevel, logFile string, quiet bool) *Config {
	return &Config{
		LogLevel:   logLevel,
		LogFile:    logFile,
		Quiet:      quiet,
		ConfigPath: configPath,
	}
}
