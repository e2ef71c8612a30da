package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const appDir = "playerdash"

// ProgressConfig tunes the cosmetic progress indicator
type ProgressConfig struct {
	// Interval between ticks
	Interval time.Duration `yaml:"interval"`

	// Step added per tick
	Step int `yaml:"step"`

	// Ceiling is the highest value the indicator shows
	Ceiling int `yaml:"ceiling"`
}

// ExportConfig controls report and chart output
type ExportConfig struct {
	// Dir receives CSV reports and chart images
	Dir string `yaml:"dir"`

	// TimestampLayout is the Go time layout for event timestamps in reports
	TimestampLayout string `yaml:"timestamp_layout"`
}

// LogConfig controls logging
type LogConfig struct {
	// File is the log file; logs never go to stdout while the dashboard runs
	File string `yaml:"file"`

	// Level is one of trace, debug, info, warn, error, fatal
	Level string `yaml:"level"`

	// JSON switches to the JSON formatter
	JSON bool `yaml:"json"`
}

// Config holds the application configuration
type Config struct {
	// ServerURL is the root of the analytics service
	ServerURL string `yaml:"server_url"`

	// RequestTimeout bounds every request; zero disables the bound
	RequestTimeout time.Duration `yaml:"request_timeout"`

	Progress ProgressConfig `yaml:"progress"`
	Export   ExportConfig   `yaml:"export"`
	Log      LogConfig      `yaml:"log"`

	// Theme is the catppuccin flavour (mocha, macchiato, frappe, latte)
	Theme string `yaml:"theme"`

	// MetricsAddr exposes prometheus metrics when set (headless commands only)
	MetricsAddr string `yaml:"metrics_addr"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		ServerURL:      "http://localhost:5001",
		RequestTimeout: 2 * time.Minute,
		Progress: ProgressConfig{
			Interval: time.Second,
			Step:     10,
			Ceiling:  100,
		},
		Export: ExportConfig{
			Dir:             ".",
			TimestampLayout: "1/2/2006, 3:04:05 PM",
		},
		Log: LogConfig{
			File:  "playerdash.log",
			Level: "info",
		},
		Theme: "mocha",
	}
}

// Load reads the config from a YAML file, falling back to defaults
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	cleanPath := filepath.Clean(path)
	data, err := os.ReadFile(cleanPath) //nolint:gosec // config path from flag or known locations
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Use defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", cleanPath, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", cleanPath, err)
	}

	return cfg, nil
}

// DefaultPaths lists the config locations in search order
func DefaultPaths() []string {
	paths := []string{"config.yaml"}

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, appDir, "config.yaml"))
	}
	paths = append(paths, filepath.Join(os.Getenv("HOME"), ".config", appDir, "config.yaml"))

	return paths
}

// LoadFromDefaultPath attempts to load config from standard locations. The
// returned path is empty when no file was found.
func LoadFromDefaultPath() (*Config, string, error) {
	for _, path := range DefaultPaths() {
		cleanPath := filepath.Clean(path)
		if _, err := os.Stat(cleanPath); err == nil {
			cfg, err := Load(cleanPath)
			return cfg, cleanPath, err
		}
	}

	return DefaultConfig(), "", nil
}

// Validate checks values that would otherwise fail later in confusing ways
func (c *Config) Validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("server_url is required")
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("request_timeout must not be negative")
	}
	if c.Progress.Step < 0 || c.Progress.Ceiling < 0 || c.Progress.Interval < 0 {
		return fmt.Errorf("progress settings must not be negative")
	}
	return nil
}
