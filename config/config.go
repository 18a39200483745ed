// Package config provides configuration loading and management for boardsync.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config represents the complete boardsync configuration
type Config struct {
	API   APIConfig   `yaml:"api"`
	NATS  NATSConfig  `yaml:"nats"`
	Cache CacheConfig `yaml:"cache"`
}

// APIConfig configures the backend API connection
type APIConfig struct {
	// BaseURL is the backend API root (e.g. https://boards.example.com)
	BaseURL string `yaml:"base_url" env:"BOARDSYNC_API_URL"`
	// Timeout is the per-call timeout for remote requests
	Timeout time.Duration `yaml:"timeout" env:"BOARDSYNC_API_TIMEOUT"`
	// Token is the bearer credential (prefer the env var over the file)
	Token string `yaml:"token" env:"BOARDSYNC_TOKEN"`
}

// NATSConfig configures the realtime notification channel
type NATSConfig struct {
	// URL is the NATS server URL (empty = realtime disabled)
	URL string `yaml:"url" env:"BOARDSYNC_NATS_URL"`
	// SubjectPrefix is the root of the board event subject space
	SubjectPrefix string `yaml:"subject_prefix" env:"BOARDSYNC_NATS_PREFIX"`
}

// CacheConfig configures collection staleness bounds
type CacheConfig struct {
	// ProjectsTTL bounds staleness of the projects list
	ProjectsTTL time.Duration `yaml:"projects_ttl" env:"BOARDSYNC_PROJECTS_TTL"`
	// TasksTTL bounds staleness of each project's task list
	TasksTTL time.Duration `yaml:"tasks_ttl" env:"BOARDSYNC_TASKS_TTL"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "http://localhost:8080",
			Timeout: 10 * time.Second,
		},
		NATS: NATSConfig{
			URL:           "",
			SubjectPrefix: "board.events",
		},
		Cache: CacheConfig{
			ProjectsTTL: 5 * time.Minute,
			TasksTTL:    2 * time.Minute,
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive")
	}
	if c.Cache.ProjectsTTL <= 0 {
		return fmt.Errorf("cache.projects_ttl must be positive")
	}
	if c.Cache.TasksTTL <= 0 {
		return fmt.Errorf("cache.tasks_ttl must be positive")
	}
	if c.NATS.SubjectPrefix == "" {
		return fmt.Errorf("nats.subject_prefix is required")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
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

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
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
	if other.API.Token != "" {
		c.API.Token = other.API.Token
	}

	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}
	if other.NATS.SubjectPrefix != "" {
		c.NATS.SubjectPrefix = other.NATS.SubjectPrefix
	}

	if other.Cache.ProjectsTTL != 0 {
		c.Cache.ProjectsTTL = other.Cache.ProjectsTTL
	}
	if other.Cache.TasksTTL != 0 {
		c.Cache.TasksTTL = other.Cache.TasksTTL
	}
}

// ApplyEnv overlays environment variables onto the config. Environment
// values win over file values.
func (c *Config) ApplyEnv() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}
	return nil
}
