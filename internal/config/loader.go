package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"connectkit/pkg/logging"

	"gopkg.in/yaml.v3"
)

const (
	userConfigDir  = ".config/connectkit"
	configFileName = "config.yaml"
)

// osUserHomeDir is a variable so tests can point it at a temp dir.
var osUserHomeDir = os.UserHomeDir

// GetDefaultConfigPath returns ~/.config/connectkit.
func GetDefaultConfigPath() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine user config directory: %w", err)
	}
	return filepath.Join(homeDir, userConfigDir), nil
}

// LoadConfig loads config.yaml from configPath. A missing file yields the
// defaults. The storage directory defaults to configPath.
func LoadConfig(configPath string) (ConnectKitConfig, error) {
	configFilePath := filepath.Join(configPath, configFileName)
	config := GetDefaultConfig()

	data, err := os.ReadFile(configFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Info("ConfigLoader", "No config.yaml found at %s, using defaults", configFilePath)
			config.Storage.Dir = configPath
			return config, nil
		}
		logging.Info("ConfigLoader", "Error loading config.yaml from %s: %s", configFilePath, err)
		return ConnectKitConfig{}, err
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return ConnectKitConfig{}, ConfigurationError{
			FilePath:  configFilePath,
			FileName:  configFileName,
			ErrorType: "parse",
			Message:   "malformed YAML",
			Details:   err.Error(),
		}
	}
	applyDefaults(&config)
	if config.Storage.Dir == "" {
		config.Storage.Dir = configPath
	}

	if err := Validate(config); err != nil {
		var ce ConfigurationError
		if errors.As(err, &ce) {
			ce.FilePath = configFilePath
			ce.FileName = configFileName
			return ConnectKitConfig{}, ce
		}
		return ConnectKitConfig{}, err
	}

	logging.Info("ConfigLoader", "Loaded configuration from %s", configFilePath)
	return config, nil
}

// Save writes cfg to configPath/config.yaml.
func Save(configPath string, cfg ConnectKitConfig) error {
	if err := os.MkdirAll(configPath, 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(filepath.Join(configPath, configFileName), data, 0o600)
}
