package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ahpbridge/pkg/logging"

	"gopkg.in/yaml.v3"
)

const (
	userConfigDir  = ".config/ahpbridge"
	configFileName = "config.yaml"
)

// Environment variables that override file values.
const (
	EnvServerURL    = "AHP_SERVER_URL"
	EnvEmail        = "AHP_EMAIL"
	EnvPreSharedKey = "AHP_PRE_SHARED_KEY"
)

// DefaultConfigDir returns ~/.config/ahpbridge.
func DefaultConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine user config directory: %w", err)
	}
	return filepath.Join(homeDir, userConfigDir), nil
}

// ConfigFilePath returns the settings file inside configDir.
func ConfigFilePath(configDir string) string {
	return filepath.Join(configDir, configFileName)
}

// LoadSettings loads configuration from configDir/config.yaml and applies
// environment overrides. Defaults are applied first; a missing file yields
// the defaults.
func LoadSettings(configDir string) (Settings, error) {
	settings, err := LoadFileSettings(configDir)
	if err != nil {
		return Settings{}, err
	}
	return applyEnv(settings), nil
}

// LoadFileSettings loads configDir/config.yaml without environment
// overrides, for commands that edit and save the file.
func LoadFileSettings(configDir string) (Settings, error) {
	configFilePath := ConfigFilePath(configDir)
	settings := GetDefaultSettings()

	data, err := os.ReadFile(configFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Debug("Config", "No config.yaml found at %s, using defaults", configFilePath)
			return settings, nil
		}
		return Settings{}, NewConfigurationError(configFilePath, "io", err.Error())
	}

	if err := yaml.Unmarshal(data, &settings); err != nil {
		return Settings{}, NewConfigurationError(configFilePath, "parse", err.Error())
	}

	logging.Debug("Config", "Loaded configuration from %s", configFilePath)
	return settings, nil
}

// applyEnv overlays environment overrides. A server URL override switches
// the server type to custom.
func applyEnv(s Settings) Settings {
	if v := strings.TrimSpace(os.Getenv(EnvServerURL)); v != "" {
		s.ServerType = ServerTypeCustom
		s.CustomServerURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvEmail)); v != "" {
		s.Email = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvPreSharedKey)); v != "" {
		s.PreSharedKey = v
	}
	return s
}

// SaveSettings writes settings to configDir/config.yaml. The file holds the
// pre-shared key, so it is written owner-only.
func SaveSettings(configDir string, settings Settings) error {
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	configFilePath := ConfigFilePath(configDir)
	tmp := configFilePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := os.Rename(tmp, configFilePath); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace settings: %w", err)
	}

	logging.Info("Config", "Saved configuration to %s", configFilePath)
	return nil
}
