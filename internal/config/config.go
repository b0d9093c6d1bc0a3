// Package config loads jmeter-gen settings from .jmeter-gen/config.yaml,
// JMETER_GEN_* environment variables and an optional .env file.
//
// Precedence, lowest to highest: built-in defaults, the config file, the
// environment. Variables from .env never override ones already set.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.yaml.in/yaml/v4"

	"github.com/kzaorski/jmeter-test-generator-sub001/logging"
	"github.com/kzaorski/jmeter-test-generator-sub001/snapshot"
)

// FileName is the config file inside the store directory.
const FileName = "config.yaml"

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "JMETER_GEN_"

// Config holds the settings shared by the CLI and the MCP server.
type Config struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// MaxBackups is the number of artifact backups kept per plan.
	MaxBackups int `yaml:"max_backups"`
	// Indent is the number of spaces per level in rewritten plans.
	Indent int `yaml:"indent"`
	// StrictDuplicates makes repeated (path, method) keys an error.
	StrictDuplicates bool `yaml:"strict_duplicates"`
	// ExternalRefs allows spec $ref pointers into sibling files.
	ExternalRefs bool `yaml:"external_refs"`
	// GitTimeout bounds each git query made while saving a snapshot.
	GitTimeout time.Duration `yaml:"git_timeout"`
	// WatchDebounce is how long watch waits for writes to settle.
	WatchDebounce time.Duration `yaml:"watch_debounce"`

	// Parsed spec cache used by the MCP server.
	CacheEnabled bool          `yaml:"cache_enabled"`
	CacheMaxSize int           `yaml:"cache_max_size"`
	CacheTTL     time.Duration `yaml:"cache_ttl"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		LogLevel:      "info",
		LogFormat:     logging.FormatConsole,
		MaxBackups:    snapshot.DefaultMaxBackups,
		Indent:        2,
		GitTimeout:    snapshot.DefaultGitTimeout,
		WatchDebounce: 300 * time.Millisecond,
		CacheEnabled:  true,
		CacheMaxSize:  10,
		CacheTTL:      15 * time.Minute,
	}
}

// Path returns the config file location for projectDir.
func Path(projectDir string) string {
	return filepath.Join(projectDir, snapshot.DirName, FileName)
}

// Load builds the configuration for projectDir. A missing config file or
// .env is not an error; a malformed one is.
func Load(projectDir string) (*Config, error) {
	cfg := Default()

	envFile := filepath.Join(projectDir, ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: loading %s: %w", envFile, err)
	}

	if err := cfg.readFile(Path(projectDir)); err != nil {
		return nil, err
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // fixed location under the project
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("config: reading %s: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.LogLevel = envString(EnvPrefix+"LOG_LEVEL", c.LogLevel)
	c.LogFormat = envString(EnvPrefix+"LOG_FORMAT", c.LogFormat)
	c.MaxBackups = envInt(EnvPrefix+"MAX_BACKUPS", c.MaxBackups)
	c.Indent = envInt(EnvPrefix+"INDENT", c.Indent)
	c.StrictDuplicates = envBool(EnvPrefix+"STRICT_DUPLICATES", c.StrictDuplicates)
	c.ExternalRefs = envBool(EnvPrefix+"EXTERNAL_REFS", c.ExternalRefs)
	c.GitTimeout = envDuration(EnvPrefix+"GIT_TIMEOUT", c.GitTimeout)
	c.WatchDebounce = envDuration(EnvPrefix+"WATCH_DEBOUNCE", c.WatchDebounce)
	c.CacheEnabled = envBool(EnvPrefix+"CACHE_ENABLED", c.CacheEnabled)
	c.CacheMaxSize = envInt(EnvPrefix+"CACHE_MAX_SIZE", c.CacheMaxSize)
	c.CacheTTL = envDuration(EnvPrefix+"CACHE_TTL", c.CacheTTL)
}

// Validate reports the first setting that is out of range.
func (c *Config) Validate() error {
	switch {
	case c.LogFormat != logging.FormatConsole && c.LogFormat != logging.FormatJSON:
		return fmt.Errorf("config: log_format must be %q or %q, got %q", logging.FormatConsole, logging.FormatJSON, c.LogFormat)
	case c.MaxBackups < 1:
		return fmt.Errorf("config: max_backups must be at least 1, got %d", c.MaxBackups)
	case c.Indent < 0:
		return fmt.Errorf("config: indent must not be negative, got %d", c.Indent)
	case c.GitTimeout <= 0:
		return fmt.Errorf("config: git_timeout must be positive, got %s", c.GitTimeout)
	case c.WatchDebounce < 0:
		return fmt.Errorf("config: watch_debounce must not be negative, got %s", c.WatchDebounce)
	case c.CacheMaxSize < 1:
		return fmt.Errorf("config: cache_max_size must be at least 1, got %d", c.CacheMaxSize)
	case c.CacheTTL <= 0:
		return fmt.Errorf("config: cache_ttl must be positive, got %s", c.CacheTTL)
	}
	return nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("invalid bool env var, using default", "key", key, "value", v, "default", fallback) //nolint:gosec // G706: values are structured log fields, not format strings
		return fallback
	}
	return b
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		slog.Warn("invalid int env var, using default", "key", key, "value", v, "default", fallback) //nolint:gosec // G706: values are structured log fields, not format strings
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		slog.Warn("invalid duration env var, using default", "key", key, "value", v, "default", fallback) //nolint:gosec // G706: values are structured log fields, not format strings
		return fallback
	}
	return d
}
