// Package config provides configuration loading and management for the
// boardsync client.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete client configuration.
type Config struct {
	API     APIConfig     `yaml:"api"`
	NATS    NATSConfig    `yaml:"nats"`
	Session SessionConfig `yaml:"session"`
	Cache   CacheConfig   `yaml:"cache"`
	Client  ClientConfig  `yaml:"client"`
}

// APIConfig configures the REST endpoint.
type APIConfig struct {
	// BaseURL is the board API root (e.g., https://boards.example.com/api).
	BaseURL string `yaml:"base_url"`
	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration `yaml:"timeout"`
}

// NATSConfig configures the push-event connection.
type NATSConfig struct {
	// URL is the NATS server URL (empty = use embedded server).
	URL string `yaml:"url"`
	// Embedded indicates whether to run an in-process NATS server.
	Embedded bool `yaml:"embedded"`
}

// SessionConfig configures where the external auth process stores the
// bearer token.
type SessionConfig struct {
	// TokenPath is the file holding the bearer token.
	TokenPath string `yaml:"token_path"`
}

// CacheConfig configures the offline snapshot cache.
type CacheConfig struct {
	// Path is the sqlite file for last-known-good snapshots.
	Path string `yaml:"path"`
	// Enabled controls whether snapshots are persisted at all.
	Enabled bool `yaml:"enabled"`
}

// ClientConfig holds client identity and UI tuning.
type ClientConfig struct {
	// Name is this client's origin id on the event channel.
	Name string `yaml:"name"`
	// SearchDebounce is how long the UI waits after the last keystroke
	// before filtering.
	SearchDebounce time.Duration `yaml:"search_debounce"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		API: APIConfig{
			BaseURL: "http://localhost:8080/api",
			Timeout: 15 * time.Second,
		},
		NATS: NATSConfig{
			URL:      "",
			Embedded: true,
		},
		Session: SessionConfig{
			TokenPath: filepath.Join(home, ".config", "boardsync", "token"),
		},
		Cache: CacheConfig{
			Path:    filepath.Join(home, ".cache", "boardsync", "snapshots.db"),
			Enabled: true,
		},
		Client: ClientConfig{
			Name:           "",
			SearchDebounce: 300 * time.Millisecond,
		},
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive")
	}
	if c.Session.TokenPath == "" {
		return fmt.Errorf("session.token_path is required")
	}
	if c.Client.SearchDebounce < 250*time.Millisecond {
		return fmt.Errorf("client.search_debounce must be at least 250ms")
	}
	if c.Cache.Enabled && c.Cache.Path == "" {
		return fmt.Errorf("cache.path is required when cache is enabled")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file, layered over the
// defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file.
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for
// non-zero values).
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.API.BaseURL != "" {
		c.API.BaseURL = other.API.BaseURL
	}
	if other.API.Timeout != 0 {
		c.API.Timeout = other.API.Timeout
	}

	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
		c.NATS.Embedded = false
	}

	if other.Session.TokenPath != "" {
		c.Session.TokenPath = other.Session.TokenPath
	}

	if other.Cache.Path != "" {
		c.Cache.Path = other.Cache.Path
	}

	if other.Client.Name != "" {
		c.Client.Name = other.Client.Name
	}
	if other.Client.SearchDebounce != 0 {
		c.Client.SearchDebounce = other.Client.SearchDebounce
	}
}
