// Package config loads gdf settings from YAML files and GDF_* environment
// variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/l3aro/go-dataflow/internal/log"
)

// OutputFormat selects how reports are printed.
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// Config holds all configuration for gdf
type Config struct {
	// Logging
	LogLevel string `yaml:"log_level" env:"GDF_LOG_LEVEL"`
	JSONLogs bool   `yaml:"json_logs" env:"GDF_JSON_LOGS"`

	// Report cache keyed by file content and function name
	CacheEnabled    bool   `yaml:"cache_enabled" env:"GDF_CACHE_ENABLED"`
	CacheDir        string `yaml:"cache_dir" env:"GDF_CACHE_DIR"`
	MaxCacheEntries int    `yaml:"max_cache_entries" env:"GDF_MAX_CACHE_ENTRIES"`

	// Output
	OutputFormat OutputFormat `yaml:"output_format" env:"GDF_OUTPUT_FORMAT"`

	// Scanning
	Exclude      []string `yaml:"exclude" env:"GDF_EXCLUDE"`
	IncludeTests bool     `yaml:"include_tests" env:"GDF_INCLUDE_TESTS"`
	Workers      int      `yaml:"workers" env:"GDF_WORKERS"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:        "info",
		JSONLogs:        false,
		CacheEnabled:    true,
		CacheDir:        ".gdf/cache",
		MaxCacheEntries: 1000,
		OutputFormat:    FormatText,
		Exclude:         nil,
		IncludeTests:    false,
		Workers:         4,
	}
}

// GlobalConfigFilePath returns the global config file path (~/.gdf/config.yaml)
func GlobalConfigFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ProjectConfigFilePath()
	}
	return filepath.Join(home, ".gdf", "config.yaml")
}

// ProjectConfigFilePath returns the project-level config file path (./.gdf/config.yaml)
func ProjectConfigFilePath() string {
	return filepath.Join(".gdf", "config.yaml")
}

// Load reads configuration with the following priority (highest to lowest):
// 1. Environment variables
// 2. Project-level config (./.gdf/config.yaml)
// 3. Global config (~/.gdf/config.yaml)
// 4. Defaults
func Load() (*Config, error) {
	cfg := DefaultConfig()

	for _, path := range []string{GlobalConfigFilePath(), ProjectConfigFilePath()} {
		if err := mergeFile(cfg, path); err != nil {
			return nil, err
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromFile reads configuration from a specific YAML file path
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// mergeFile unmarshals path over cfg. A missing file is not an error.
func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Save writes the configuration to the specified YAML file path.
// It creates parent directories if they don't exist.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("GDF_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("GDF_JSON_LOGS"); v != "" {
		cfg.JSONLogs = parseBool(v)
	}
	if v := os.Getenv("GDF_CACHE_ENABLED"); v != "" {
		cfg.CacheEnabled = parseBool(v)
	}
	if v := os.Getenv("GDF_CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}
	if v := os.Getenv("GDF_MAX_CACHE_ENTRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("GDF_MAX_CACHE_ENTRIES: %w", err)
		}
		cfg.MaxCacheEntries = n
	}
	if v := os.Getenv("GDF_OUTPUT_FORMAT"); v != "" {
		cfg.OutputFormat = OutputFormat(strings.ToLower(v))
	}
	if v := os.Getenv("GDF_EXCLUDE"); v != "" {
		cfg.Exclude = splitList(v)
	}
	if v := os.Getenv("GDF_INCLUDE_TESTS"); v != "" {
		cfg.IncludeTests = parseBool(v)
	}
	if v := os.Getenv("GDF_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("GDF_WORKERS: %w", err)
		}
		cfg.Workers = n
	}
	return nil
}

// Validate checks that the configuration has valid required fields
func (c *Config) Validate() error {
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}

	switch c.OutputFormat {
	case FormatText, FormatJSON:
	default:
		return fmt.Errorf("invalid output_format: %s (must be 'text' or 'json')", c.OutputFormat)
	}

	if c.CacheEnabled {
		if c.CacheDir == "" {
			return fmt.Errorf("cache_dir is required when the cache is enabled")
		}
		if c.MaxCacheEntries <= 0 {
			return fmt.Errorf("max_cache_entries must be positive")
		}
	}

	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive")
	}

	for _, pattern := range c.Exclude {
		if strings.TrimSpace(pattern) == "" {
			return fmt.Errorf("exclude patterns must not be empty")
		}
	}

	return nil
}

// Level returns the parsed log level, InfoLevel when invalid.
func (c *Config) Level() log.Level {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return level
}

// CacheFile returns the path of the persisted report cache.
func (c *Config) CacheFile() string {
	return filepath.Join(c.CacheDir, "reports.msgpack")
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
