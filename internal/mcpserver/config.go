package mcpserver

import (
	"errors"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/kzaorski/jmeter-test-generator-sub001/internal/app"
	"github.com/kzaorski/jmeter-test-generator-sub001/internal/config"
	"github.com/kzaorski/jmeter-test-generator-sub001/logging"
)

// serverConfig holds the MCP server settings. Cache settings come from the
// project config; list limits are MCP-only and read from the environment.
type serverConfig struct {
	CacheEnabled bool
	CacheMaxSize int
	CacheTTL     time.Duration

	// List tool defaults.
	ListLimit int
	MaxLimit  int

	// MaxInlineSize bounds inline spec content in bytes.
	MaxInlineSize int

	logger    logging.Logger
	buildOpts []app.Option
}

// Option is a function that configures a Server
type Option func(*serverConfig) error

// WithLogger sets the server's logger.
func WithLogger(l logging.Logger) Option {
	return func(cfg *serverConfig) error {
		cfg.logger = logging.OrNop(l)
		return nil
	}
}

// WithBuildOptions forwards options to the component wiring.
func WithBuildOptions(opts ...app.Option) Option {
	return func(cfg *serverConfig) error {
		cfg.buildOpts = append(cfg.buildOpts, opts...)
		return nil
	}
}

// WithListLimit overrides the default and maximum page sizes.
func WithListLimit(def, maxLimit int) Option {
	return func(cfg *serverConfig) error {
		if def <= 0 || maxLimit < def {
			return errors.New("list limits must satisfy 0 < default <= max")
		}
		cfg.ListLimit, cfg.MaxLimit = def, maxLimit
		return nil
	}
}

// loadConfig derives the server settings from the project config and the
// JMETER_GEN_MCP_* environment variables. Invalid values log a warning and
// fall back to the hardcoded default.
func loadConfig(c *config.Config) *serverConfig {
	return &serverConfig{
		CacheEnabled:  c.CacheEnabled,
		CacheMaxSize:  c.CacheMaxSize,
		CacheTTL:      c.CacheTTL,
		ListLimit:     envInt(config.EnvPrefix+"MCP_LIST_LIMIT", 100),
		MaxLimit:      envInt(config.EnvPrefix+"MCP_MAX_LIMIT", 1000),
		MaxInlineSize: envInt(config.EnvPrefix+"MCP_MAX_INLINE_SIZE", 10*1024*1024),
		logger:        logging.NopLogger{},
	}
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		slog.Warn("invalid int env var, using default", "key", key, "value", v, "default", fallback) //nolint:gosec // G706: values are structured log fields, not format strings
		return fallback
	}
	return n
}
