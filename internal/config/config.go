// Package config loads the process-wide settings: OAuth client
// credentials, delivery schedule, and server options. Settings are read
// once at startup and treated as read-only afterwards.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	ConfigDirName  = ".gazette"
	ConfigFileName = "config.yaml"

	defaultListenAddr = ":8080"
	defaultLogLevel   = "info"
)

// Settings holds the static configuration of the publication service.
type Settings struct {
	// OAuth client credentials for the analytics provider.
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`

	// WeeklyDeliveryDay is the weekday weekly editions go out,
	// 1=Monday .. 7=Sunday.
	WeeklyDeliveryDay int `yaml:"weekly_delivery_day"`

	// ListenAddr is the HTTP bind address.
	ListenAddr string `yaml:"listen_addr"`

	// CacheDir enables the on-disk reporting query cache when set.
	CacheDir string `yaml:"cache_dir,omitempty"`

	LogLevel string `yaml:"log_level"`
}

// DefaultPath returns the default config file location
// (~/.gazette/config.yaml).
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ConfigDirName, ConfigFileName), nil
}

// Load reads settings from path, fills defaults, and applies
// environment overrides (GAZETTE_CLIENT_ID, GAZETTE_CLIENT_SECRET,
// GAZETTE_LISTEN_ADDR). A missing file is not an error so the service
// can run from environment variables alone.
func Load(path string) (*Settings, error) {
	settings := &Settings{
		WeeklyDeliveryDay: 1,
		ListenAddr:        defaultListenAddr,
		LogLevel:          defaultLogLevel,
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// Fall through to env overrides.
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, settings); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	if v := os.Getenv("GAZETTE_CLIENT_ID"); v != "" {
		settings.ClientID = v
	}
	if v := os.Getenv("GAZETTE_CLIENT_SECRET"); v != "" {
		settings.ClientSecret = v
	}
	if v := os.Getenv("GAZETTE_LISTEN_ADDR"); v != "" {
		settings.ListenAddr = v
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// Validate checks invariants that would otherwise surface mid-request.
func (s *Settings) Validate() error {
	if s.WeeklyDeliveryDay < 1 || s.WeeklyDeliveryDay > 7 {
		return fmt.Errorf("weekly_delivery_day must be 1..7 (1=Monday), got %d", s.WeeklyDeliveryDay)
	}
	if s.ListenAddr == "" {
		return fmt.Errorf("listen_addr must not be empty")
	}
	return nil
}

// Save writes settings to path, creating the directory if needed. Used
// by the `config set` command.
func Save(path string, settings *Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
