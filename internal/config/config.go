// Package config provides layered configuration loading.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the resolved configuration.
type Config struct {
	// Logging
	LogLevel string `yaml:"log_level"`

	// Output settings
	Format string `yaml:"format"`

	// Behavior preferences (overridable by flags)
	Stats   *bool `yaml:"stats,omitempty"`
	Verbose *int  `yaml:"verbose,omitempty"`

	// Catalog settings for the demo data source
	Latency  time.Duration `yaml:"latency"`
	PageSize int           `yaml:"page_size"`
	Total    int           `yaml:"total"`
	FailRate float64       `yaml:"fail_rate"`

	// Sources tracks where each value came from (for debugging).
	Sources map[string]string `yaml:"-"`
}

// Source indicates where a config value came from.
type Source string

const (
	SourceDefault Source = "default"
	SourceGlobal  Source = "global"
	SourceLocal   Source = "local"
	SourceFile    Source = "file"
	SourceDotenv  Source = "dotenv"
	SourceEnv     Source = "env"
	SourceFlag    Source = "flag"
)

// EnvPrefix prefixes every environment variable the config reads.
const EnvPrefix = "LOADABLE_"

// LocalConfigName is the per-directory config file name.
const LocalConfigName = ".loadable.yaml"

// FlagOverrides holds command-line flag values.
// Zero values mean "not set"; pointer fields distinguish explicit zero.
type FlagOverrides struct {
	ConfigPath string
	LogLevel   string
	Format     string
	Stats      *bool
	Verbose    *int
	Latency    *time.Duration
	PageSize   int
	Total      int
	FailRate   *float64
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		LogLevel: "warn",
		Format:   "auto",
		Latency:  300 * time.Millisecond,
		PageSize: 20,
		Total:    200,
		FailRate: 0,
		Sources:  make(map[string]string),
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence: flags > env > .env > explicit file > local > global > defaults
func Load(overrides FlagOverrides) (*Config, error) {
	cfg := Default()

	if err := loadFromFile(cfg, globalConfigPath(), SourceGlobal); err != nil {
		return nil, err
	}
	if err := loadFromFile(cfg, localConfigPath(), SourceLocal); err != nil {
		return nil, err
	}
	if overrides.ConfigPath != "" {
		if _, err := os.Stat(overrides.ConfigPath); err != nil {
			return nil, fmt.Errorf("config file %s: %w", overrides.ConfigPath, err)
		}
		if err := loadFromFile(cfg, overrides.ConfigPath, SourceFile); err != nil {
			return nil, err
		}
	}

	if err := LoadDotenv(cfg, ".env"); err != nil {
		return nil, err
	}
	LoadFromEnv(cfg)

	ApplyOverrides(cfg, overrides)

	return cfg, cfg.Validate()
}

// fileConfig mirrors Config with optional fields so absent keys keep lower layers.
type fileConfig struct {
	LogLevel *string  `yaml:"log_level"`
	Format   *string  `yaml:"format"`
	Stats    *bool    `yaml:"stats"`
	Verbose  *int     `yaml:"verbose"`
	Latency  *string  `yaml:"latency"`
	PageSize *int     `yaml:"page_size"`
	Total    *int     `yaml:"total"`
	FailRate *float64 `yaml:"fail_rate"`
}

func loadFromFile(cfg *Config, path string, source Source) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: Path is from trusted config locations
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil // File doesn't exist, skip
		}
		return fmt.Errorf("reading config %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		fmt.Fprintf(os.Stderr, "warning: skipping malformed config at %s: %v\n", path, err)
		return nil
	}

	src := string(source)
	if fc.LogLevel != nil && *fc.LogLevel != "" {
		cfg.LogLevel = *fc.LogLevel
		cfg.Sources["log_level"] = src
	}
	if fc.Format != nil && *fc.Format != "" {
		cfg.Format = *fc.Format
		cfg.Sources["format"] = src
	}
	if fc.Stats != nil {
		v := *fc.Stats
		cfg.Stats = &v
		cfg.Sources["stats"] = src
	}
	if fc.Verbose != nil && *fc.Verbose >= 0 && *fc.Verbose <= 2 {
		v := *fc.Verbose
		cfg.Verbose = &v
		cfg.Sources["verbose"] = src
	}
	if fc.Latency != nil {
		if d, err := time.ParseDuration(*fc.Latency); err == nil {
			cfg.Latency = d
			cfg.Sources["latency"] = src
		} else {
			fmt.Fprintf(os.Stderr, "warning: ignoring latency %q from %s: %v\n", *fc.Latency, path, err)
		}
	}
	if fc.PageSize != nil {
		cfg.PageSize = *fc.PageSize
		cfg.Sources["page_size"] = src
	}
	if fc.Total != nil {
		cfg.Total = *fc.Total
		cfg.Sources["total"] = src
	}
	if fc.FailRate != nil {
		cfg.FailRate = *fc.FailRate
		cfg.Sources["fail_rate"] = src
	}
	return nil
}

// LoadDotenv applies LOADABLE_* entries from a dotenv file without
// touching the process environment. A missing file is not an error.
func LoadDotenv(cfg *Config, path string) error {
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", path, err)
	}
	applyEnv(cfg, func(key string) string { return values[key] }, SourceDotenv)
	return nil
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv(cfg *Config) {
	applyEnv(cfg, os.Getenv, SourceEnv)
}

func applyEnv(cfg *Config, getenv func(string) string, source Source) {
	src := string(source)
	if v := getenv(EnvPrefix + "LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
		cfg.Sources["log_level"] = src
	}
	if v := getenv(EnvPrefix + "FORMAT"); v != "" {
		cfg.Format = v
		cfg.Sources["format"] = src
	}
	if v := getenv(EnvPrefix + "STATS"); v != "" {
		if b, ok := parseEnvBool(v); ok {
			cfg.Stats = &b
			cfg.Sources["stats"] = src
		}
	}
	if v := getenv(EnvPrefix + "VERBOSE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 && n <= 2 {
			cfg.Verbose = &n
			cfg.Sources["verbose"] = src
		}
	}
	if v := getenv(EnvPrefix + "LATENCY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Latency = d
			cfg.Sources["latency"] = src
		}
	}
	if v := getenv(EnvPrefix + "PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.PageSize = n
			cfg.Sources["page_size"] = src
		}
	}
	if v := getenv(EnvPrefix + "TOTAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Total = n
			cfg.Sources["total"] = src
		}
	}
	if v := getenv(EnvPrefix + "FAIL_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.FailRate = f
			cfg.Sources["fail_rate"] = src
		}
	}
}

// parseEnvBool parses a boolean environment variable strictly.
// Returns (value, true) for recognized values, (false, false) for unrecognized.
// Unrecognized values are ignored to preserve three-state pointer semantics.
func parseEnvBool(v string) (bool, bool) {
	switch strings.ToLower(v) {
	case "true", "1":
		return true, true
	case "false", "0":
		return false, true
	default:
		return false, false
	}
}

// ApplyOverrides applies set flag overrides to cfg.
func ApplyOverrides(cfg *Config, o FlagOverrides) {
	flag := string(SourceFlag)
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
		cfg.Sources["log_level"] = flag
	}
	if o.Format != "" {
		cfg.Format = o.Format
		cfg.Sources["format"] = flag
	}
	if o.Stats != nil {
		v := *o.Stats
		cfg.Stats = &v
		cfg.Sources["stats"] = flag
	}
	if o.Verbose != nil {
		v := *o.Verbose
		cfg.Verbose = &v
		cfg.Sources["verbose"] = flag
	}
	if o.Latency != nil {
		cfg.Latency = *o.Latency
		cfg.Sources["latency"] = flag
	}
	if o.PageSize > 0 {
		cfg.PageSize = o.PageSize
		cfg.Sources["page_size"] = flag
	}
	if o.Total > 0 {
		cfg.Total = o.Total
		cfg.Sources["total"] = flag
	}
	if o.FailRate != nil {
		cfg.FailRate = *o.FailRate
		cfg.Sources["fail_rate"] = flag
	}
}

// Validate reports the first out-of-range setting.
func (cfg *Config) Validate() error {
	switch {
	case cfg.PageSize <= 0:
		return fmt.Errorf("page_size must be positive, got %d", cfg.PageSize)
	case cfg.Total < 0:
		return fmt.Errorf("total must not be negative, got %d", cfg.Total)
	case cfg.FailRate < 0 || cfg.FailRate > 1:
		return fmt.Errorf("fail_rate must be between 0 and 1, got %g", cfg.FailRate)
	case cfg.Latency < 0:
		return fmt.Errorf("latency must not be negative, got %s", cfg.Latency)
	}
	return nil
}

// VerboseLevel returns the configured verbosity, defaulting to 0.
func (cfg *Config) VerboseLevel() int {
	if cfg.Verbose == nil {
		return 0
	}
	return *cfg.Verbose
}

// StatsEnabled reports whether session stats should be printed.
func (cfg *Config) StatsEnabled() bool {
	return cfg.Stats != nil && *cfg.Stats
}

// Path helpers

func globalConfigPath() string {
	return filepath.Join(GlobalConfigDir(), "config.yaml")
}

func localConfigPath() string {
	dir, err := os.Getwd()
	if err != nil {
		return "" // fail closed: can't determine CWD
	}
	return filepath.Join(dir, LocalConfigName)
}

// GlobalConfigDir returns the global config directory path.
func GlobalConfigDir() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, _ := os.UserHomeDir()
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "loadable")
}
