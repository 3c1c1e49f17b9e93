// Package config provides configuration management for the vulnerability feed pipelines.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Configuration validation errors.
var (
	ErrMissingBaseURL     = errors.New("cwe.base_url is required")
	ErrInvalidBaseURL     = errors.New("cwe.base_url must be an absolute http(s) URL")
	ErrInvalidIDRange     = errors.New("cwe.start_id must be >= 1 and <= cwe.end_id")
	ErrNegativeDelay      = errors.New("cwe.delay must be non-negative")
	ErrInvalidTimeout     = errors.New("cwe.timeout must be positive")
	ErrInvalidWorkers     = errors.New("cwe.workers must be at least 1")
	ErrInvalidMaxBody     = errors.New("cwe.max_body_kb must be at least 1")
	ErrMissingCWEOutput   = errors.New("cwe.output is required")
	ErrMissingArchiveGlob = errors.New("nvd.archive_glob is required")
	ErrMissingOutputDir   = errors.New("nvd.output_dir is required")
	ErrInvalidLogLevel    = errors.New("logging.level must be one of: debug, info, warn, error")
	ErrInvalidLogFormat   = errors.New("logging.format must be 'text' or 'json'")
)

// Defaults.
const (
	DefaultBaseURL     = "https://cwe.mitre.org/data/definitions/"
	DefaultUserAgent   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	DefaultStartID     = 1
	DefaultEndID       = 1400
	DefaultDelay       = time.Second
	DefaultTimeout     = 10 * time.Second
	DefaultMaxBodyKb   = 4096
	DefaultCWEOutput   = "cwe_full_dataset.csv"
	DefaultArchiveGlob = "cve_data/nvdcve-1.1-*.json.zip"
	DefaultOutputDir   = "output"
)

// Config represents the complete pipeline configuration.
type Config struct {
	CWE     CWEConfig     `yaml:"cwe"`
	NVD     NVDConfig     `yaml:"nvd"`
	Logging LoggingConfig `yaml:"logging"`
}

// CWEConfig contains settings for the weakness range walk.
type CWEConfig struct {
	BaseURL   string        `yaml:"base_url"`
	UserAgent string        `yaml:"user_agent"`
	Output    string        `yaml:"output"`
	StartID   int           `yaml:"start_id"`
	EndID     int           `yaml:"end_id"`
	Delay     time.Duration `yaml:"delay"`
	Timeout   time.Duration `yaml:"timeout"`
	Workers   int           `yaml:"workers"`
	MaxBodyKb int           `yaml:"max_body_kb"`
}

// NVDConfig contains settings for the feed archive walk.
type NVDConfig struct {
	ArchiveGlob string `yaml:"archive_glob"`
	OutputDir   string `yaml:"output_dir"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	ShowProgress bool   `yaml:"show_progress"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		CWE: CWEConfig{
			BaseURL:   DefaultBaseURL,
			UserAgent: DefaultUserAgent,
			Output:    DefaultCWEOutput,
			StartID:   DefaultStartID,
			EndID:     DefaultEndID,
			Delay:     DefaultDelay,
			Timeout:   DefaultTimeout,
			Workers:   1,
			MaxBodyKb: DefaultMaxBodyKb,
		},
		NVD: NVDConfig{
			ArchiveGlob: DefaultArchiveGlob,
			OutputDir:   DefaultOutputDir,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig loads configuration from a YAML file on top of the defaults.
func LoadConfig(filepath string) (*Config, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves configuration to a YAML file.
func (c *Config) SaveConfig(filepath string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filepath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.CWE.BaseURL == "" {
		return ErrMissingBaseURL
	}

	u, err := url.Parse(c.CWE.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidBaseURL, c.CWE.BaseURL)
	}

	if c.CWE.StartID < 1 || c.CWE.StartID > c.CWE.EndID {
		return fmt.Errorf("%w: %d..%d", ErrInvalidIDRange, c.CWE.StartID, c.CWE.EndID)
	}

	if c.CWE.Delay < 0 {
		return ErrNegativeDelay
	}

	if c.CWE.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.CWE.Workers < 1 {
		return ErrInvalidWorkers
	}

	if c.CWE.MaxBodyKb < 1 {
		return ErrInvalidMaxBody
	}

	if c.CWE.Output == "" {
		return ErrMissingCWEOutput
	}

	if c.NVD.ArchiveGlob == "" {
		return ErrMissingArchiveGlob
	}

	if c.NVD.OutputDir == "" {
		return ErrMissingOutputDir
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return ErrInvalidLogLevel
	}

	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return ErrInvalidLogFormat
	}

	return nil
}

// RangeSize returns the number of ids in the configured range.
func (c *CWEConfig) RangeSize() int {
	if c.EndID < c.StartID {
		return 0
	}

	return c.EndID - c.StartID + 1
}

// String returns a string representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{CWE: %d..%d, Delay: %s, Workers: %d, Archives: %s, OutputDir: %s}",
		c.CWE.StartID,
		c.CWE.EndID,
		c.CWE.Delay,
		c.CWE.Workers,
		c.NVD.ArchiveGlob,
		c.NVD.OutputDir,
	)
}
