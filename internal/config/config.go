package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"snowdash/pkg/models"
)

// GetConfigPath returns the directory holding the configuration file
func GetConfigPath() string {
	if configPath := os.Getenv("SNOWDASH_CONFIG"); configPath != "" {
		return filepath.Dir(configPath)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".snowdash")
}

// GetConfigFile returns the full path of the configuration file
func GetConfigFile() string {
	if configFile := os.Getenv("SNOWDASH_CONFIG"); configFile != "" {
		return filepath.Clean(configFile)
	}
	return filepath.Join(GetConfigPath(), "config.yaml")
}

// Exists reports whether a configuration file is present
func Exists() bool {
	_, err := os.Stat(GetConfigFile())
	return err == nil
}

// Load reads the configuration file, fills defaults, and resolves the
// Snowflake password from the credential store when the file carries none.
func Load() (*models.Config, error) {
	configFile := GetConfigFile()

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		cfg := &models.Config{}
		cfg.ApplyDefaults()
		return cfg, nil
	}

	data, err := os.ReadFile(configFile) // #nosec G304 - path comes from the user's own environment
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config models.Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	config.ApplyDefaults()

	if err := resolvePassword(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// Save writes the configuration file with the password moved to the
// credential store (or encrypted in place when no keyring is available).
func Save(config *models.Config) error {
	configPath := GetConfigPath()
	if err := os.MkdirAll(configPath, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	persisted := *config
	if err := storePassword(&persisted); err != nil {
		return err
	}

	data, err := yaml.Marshal(&persisted)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(GetConfigFile(), data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
