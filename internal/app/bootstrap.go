package app

import (
	"fmt"
	"os"

	"connectkit/internal/config"
	"connectkit/internal/lifecycle"
	"connectkit/pkg/logging"
)

// Application bootstraps connectkit: it loads the configuration, sets up
// logging and, on demand, the services behind the CLI commands.
//
// Initialization is two-phase. NewApplication only loads configuration and
// logging so that commands such as serve and prefs never touch the network
// clients; Start builds the services and the lifecycle machine.
type Application struct {
	config   *Config
	services *Services
}

// NewApplication loads the configuration from cfg.ConfigPath (unless
// cfg.ConnectKit is already set) and initializes logging. Flag values in cfg
// take precedence over the logging section of config.yaml.
func NewApplication(cfg *Config) (*Application, error) {
	flagLevel, err := logging.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if cfg.LogLevel == "" {
		flagLevel = logging.LevelWarn
	}
	// Until config.yaml is read only the flag level applies.
	logging.InitForCLI(bootstrapLevel(cfg, flagLevel), os.Stderr)

	if cfg.ConfigPath == "" {
		cfg.ConfigPath, err = config.GetDefaultConfigPath()
		if err != nil {
			return nil, err
		}
	}

	if cfg.ConnectKit == nil {
		ck, err := config.LoadConfig(cfg.ConfigPath)
		if err != nil {
			logging.Error("Bootstrap", err, "Failed to load configuration from %s", cfg.ConfigPath)
			return nil, fmt.Errorf("failed to load configuration from %s: %w", cfg.ConfigPath, err)
		}
		cfg.ConnectKit = &ck
	}

	level := flagLevel
	if cfg.LogLevel == "" {
		level, err = logging.ParseLogLevel(cfg.ConnectKit.Logging.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid logging.level: %w", err)
		}
	}
	logFile := cfg.LogFile
	if logFile == "" {
		logFile = cfg.ConnectKit.Logging.File
	}
	logging.Init(bootstrapLevel(cfg, level), os.Stderr, logging.FileOptions{
		Path:       logFile,
		MaxSizeMB:  cfg.ConnectKit.Logging.MaxSizeMB,
		MaxBackups: cfg.ConnectKit.Logging.MaxBackups,
	})
	logging.Debug("Bootstrap", "Using configuration directory %s", cfg.ConfigPath)

	return &Application{config: cfg}, nil
}

func bootstrapLevel(cfg *Config, level logging.LogLevel) logging.LogLevel {
	if cfg.Quiet {
		return logging.LevelError
	}
	return level
}

// Config returns the resolved configuration.
func (a *Application) Config() *Config {
	return a.config
}

// Start initializes the services and the lifecycle machine, which reports
// to listener. It is a no-op when the services already exist.
func (a *Application) Start(listener lifecycle.Listener) (*Services, error) {
	if a.services != nil {
		return a.services, nil
	}
	services, err := InitializeServices(a.config, listener)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to initialize services")
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	a.services = services
	return services, nil
}

// Close shuts the services down and closes the log file.
func (a *Application) Close() {
	if a.services != nil {
		a.services.Close()
	}
	_ = logging.Close()
}
