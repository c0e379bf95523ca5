package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"relay/pkg/logging"

	"gopkg.in/yaml.v3"
)

const (
	userConfigDir  = ".config/relay"
	configFileName = "config.yaml"
)

// GetUserConfigDir returns ~/.config/relay.
func GetUserConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine user config directory: %w", err)
	}
	return filepath.Join(homeDir, userConfigDir), nil
}

func GetDefaultConfigPathOrPanic() string {
	dir, err := GetUserConfigDir()
	if err != nil {
		panic(err)
	}
	return dir
}

// LoadConfig loads configuration from a single specified directory.
// The directory should contain config.yaml and the store subdirectories.
// Values missing from the file keep their defaults.
func LoadConfig(configPath string) (RelayConfig, error) {
	configFilePath := filepath.Join(configPath, configFileName)
	config := GetDefaultConfig()

	data, err := os.ReadFile(configFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Info("ConfigLoader", "No config.yaml found at %s, using defaults", configFilePath)
			return config, nil
		}
		logging.Info("ConfigLoader", "Error loading config.yaml from %s: %s", configFilePath, err)
		return RelayConfig{}, err
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return RelayConfig{}, NewConfigurationError(configFilePath, "parse", "malformed YAML", err)
	}
	if err := Validate(config); err != nil {
		return RelayConfig{}, NewConfigurationError(configFilePath, "validation", "invalid configuration", err)
	}
	logging.Info("ConfigLoader", "Loaded configuration from %s", configFilePath)
	return config, nil
}

// SecretsFilePath resolves the vault file against the config directory.
func (c RelayConfig) SecretsFilePath(configPath string) string {
	file := c.Secrets.File
	if file == "" {
		file = DefaultSecretsFile
	}
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(configPath, file)
}
