package parser

import (
	"errors"
	"fmt"

	"github.com/kzaorski/jmeter-test-generator-sub001/apispec"
	"github.com/kzaorski/jmeter-test-generator-sub001/logging"
)

// Option is a function that configures a load operation
type Option func(*loadConfig) error

// loadConfig holds configuration for a load operation
type loadConfig struct {
	// Input source (exactly one must be set)
	filePath *string
	bytes    []byte

	sourceName        string
	allowExternalRefs bool
	logger            logging.Logger
}

// LoadWithOptions loads a specification using functional options.
//
// Example:
//
//	spec, err := parser.LoadWithOptions(
//	    parser.WithFilePath("openapi.yaml"),
//	    parser.WithExternalRefs(true),
//	)
func LoadWithOptions(opts ...Option) (*apispec.Spec, error) {
	cfg, err := applyOptions(opts...)
	if err != nil {
		return nil, fmt.Errorf("parser: invalid options: %w", err)
	}
	p := &Parser{AllowExternalRefs: cfg.allowExternalRefs, Logger: cfg.logger}
	if cfg.filePath != nil {
		return p.Load(*cfg.filePath)
	}
	return p.LoadData(cfg.bytes, cfg.sourceName)
}

func applyOptions(opts ...Option) (*loadConfig, error) {
	cfg := &loadConfig{sourceName: "bytes"}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	switch {
	case cfg.filePath == nil && cfg.bytes == nil:
		return nil, errors.New("must specify an input source (WithFilePath or WithBytes)")
	case cfg.filePath != nil && cfg.bytes != nil:
		return nil, errors.New("must specify exactly one input source")
	}
	return cfg, nil
}

// WithFilePath specifies a file path as the input source
func WithFilePath(path string) Option {
	return func(cfg *loadConfig) error {
		if path == "" {
			return errors.New("file path must not be empty")
		}
		cfg.filePath = &path
		return nil
	}
}

// WithBytes specifies an in-memory document as the input source
func WithBytes(data []byte) Option {
	return func(cfg *loadConfig) error {
		if data == nil {
			data = []byte{}
		}
		cfg.bytes = data
		return nil
	}
}

// WithSourceName sets the name used for an in-memory document in errors.
// Default: "bytes"
func WithSourceName(name string) Option {
	return func(cfg *loadConfig) error {
		cfg.sourceName = name
		return nil
	}
}

// WithExternalRefs enables resolving $ref pointers into sibling files.
// Default: false
func WithExternalRefs(enabled bool) Option {
	return func(cfg *loadConfig) error {
		cfg.allowExternalRefs = enabled
		return nil
	}
}

// WithLogger sets the logger used for debug output
func WithLogger(l logging.Logger) Option {
	return func(cfg *loadConfig) error {
		cfg.logger = l
		return nil
	}
}
