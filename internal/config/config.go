// Package config loads the application configuration from a YAML file,
// falling back to defaults when no file exists.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds the tunable application settings.
type Config struct {
	// DataDir is where the database lives.
	DataDir string `yaml:"data_dir"`
	// Timeout is the outbound request timeout in seconds.
	Timeout int `yaml:"timeout"`
	// FollowRedirects controls whether sends follow HTTP redirects.
	FollowRedirects bool `yaml:"follow_redirects"`
	// HistoryLimit caps retained history entries; zero means unbounded.
	HistoryLimit int `yaml:"history_limit"`
}

// Default returns the baseline configuration.
func Default() Config {
	dataDir := ".restdeck"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".restdeck")
	}
	return Config{
		DataDir:         dataDir,
		Timeout:         30,
		FollowRedirects: true,
		HistoryLimit:    500,
	}
}

// Load reads a config file over the defaults. A missing file is not an
// error; a malformed one is.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// DefaultPath returns the conventional config file location.
func DefaultPath() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".restdeck", "config.yaml")
	}
	return filepath.Join(".restdeck", "config.yaml")
}

// DatabasePath returns the sqlite database location under DataDir.
func (c Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "restdeck.db")
}
