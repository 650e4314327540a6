// Package config holds the devpreview application configuration: a YAML file
// layered over defaults, validated once at startup.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/entrhq/devpreview/pkg/logging"
	"github.com/entrhq/devpreview/pkg/preview"
	"gopkg.in/yaml.v3"
)

// DefaultURL is previewed when no url launch parameter is given.
const DefaultURL = "https://example.com"

// Bounds for the detection timings.
const (
	MinSettleDelay      = 10 * time.Millisecond
	MaxSettleDelay      = 5 * time.Second
	MinDetectionTimeout = 500 * time.Millisecond
	MaxDetectionTimeout = 60 * time.Second
)

// Config is the application configuration.
type Config struct {
	// URL previewed when none is given.
	DefaultURL string `yaml:"default_url" json:"default_url"`

	// Path of the device storage file. Empty means ~/.devpreview/storage.json,
	// "memory" keeps nothing between runs.
	StoragePath string `yaml:"storage_path" json:"storage_path"`

	Timing  TimingConfig  `yaml:"timing" json:"timing"`
	Server  ServerConfig  `yaml:"server" json:"server"`
	Browser BrowserConfig `yaml:"browser" json:"browser"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// TimingConfig holds the load detection delays.
type TimingConfig struct {
	SettleDelay      time.Duration `yaml:"settle_delay" json:"settle_delay"`
	DetectionTimeout time.Duration `yaml:"detection_timeout" json:"detection_timeout"`
}

// ServerConfig configures the web surface.
type ServerConfig struct {
	Host         string        `yaml:"host" json:"host"`
	Port         int           `yaml:"port" json:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
}

// BrowserConfig configures the headless browser frame host.
type BrowserConfig struct {
	// Enabled selects playwright frames. When false, or when the browser
	// cannot start, header probing is used instead.
	Enabled   bool `yaml:"enabled" json:"enabled"`
	Headless  bool `yaml:"headless" json:"headless"`
	MaxFrames int  `yaml:"max_frames" json:"max_frames"`
}

// LoggingConfig defines logging configuration.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" json:"level"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		DefaultURL: DefaultURL,
		Timing: TimingConfig{
			SettleDelay:      preview.DefaultSettleDelay,
			DetectionTimeout: preview.DefaultDetectionTimeout,
		},
		Server: ServerConfig{
			Host:         "127.0.0.1",
			Port:         7878,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Browser: BrowserConfig{
			Enabled:   true,
			Headless:  true,
			MaxFrames: 16,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DefaultPath returns ~/.devpreview/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".devpreview", "config.yaml"), nil
}

// Load reads the YAML file at path over DefaultConfig and validates the
// result. A missing file is not an error when path is the default path
// (empty); an explicitly named file must exist.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks every field. Empty optional fields are filled with
// defaults first.
func (c *Config) Validate() error {
	if c.DefaultURL == "" {
		c.DefaultURL = DefaultURL
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	t := c.Timing
	if t.SettleDelay < MinSettleDelay || t.SettleDelay > MaxSettleDelay {
		return fmt.Errorf("timing.settle_delay must be between %v and %v, got %v", MinSettleDelay, MaxSettleDelay, t.SettleDelay)
	}
	if t.DetectionTimeout < MinDetectionTimeout || t.DetectionTimeout > MaxDetectionTimeout {
		return fmt.Errorf("timing.detection_timeout must be between %v and %v, got %v", MinDetectionTimeout, MaxDetectionTimeout, t.DetectionTimeout)
	}
	if err := c.PreviewTiming().Validate(); err != nil {
		return fmt.Errorf("timing: %w", err)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 || c.Server.IdleTimeout < 0 {
		return fmt.Errorf("server timeouts cannot be negative")
	}

	if c.Browser.MaxFrames < 1 {
		return fmt.Errorf("browser.max_frames must be at least 1, got %d", c.Browser.MaxFrames)
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	return nil
}

// PreviewTiming converts the timing section for the preview package.
func (c *Config) PreviewTiming() preview.Timing {
	return preview.Timing{
		SettleDelay:      c.Timing.SettleDelay,
		DetectionTimeout: c.Timing.DetectionTimeout,
	}
}

// LogLevel returns the parsed logging level. Call after Validate.
func (c *Config) LogLevel() logging.Level {
	level, _ := logging.ParseLevel(c.Logging.Level)
	return level
}

// Addr returns the server listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
