// Package app assembles the change detection components for one project
// from a loaded configuration. The CLI and the MCP server share it.
package app

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/kzaorski/jmeter-test-generator-sub001/differ"
	"github.com/kzaorski/jmeter-test-generator-sub001/internal/config"
	"github.com/kzaorski/jmeter-test-generator-sub001/jmxsync"
	"github.com/kzaorski/jmeter-test-generator-sub001/logging"
	"github.com/kzaorski/jmeter-test-generator-sub001/parser"
	"github.com/kzaorski/jmeter-test-generator-sub001/snapshot"
	"github.com/kzaorski/jmeter-test-generator-sub001/updater"
)

// Components is the wired object graph.
type Components struct {
	ProjectDir string
	Parser     *parser.Parser
	Differ     *differ.Differ
	Store      *snapshot.Store
	Updater    *updater.Updater
	Service    *jmxsync.Service
}

// Option is a function that configures Build
type Option func(*buildConfig) error

type buildConfig struct {
	vcs        snapshot.VersionControl
	wrapLoader func(*parser.Parser) jmxsync.SpecLoader
}

// WithVersionControl replaces the git metadata source.
// Default: git in the project directory
func WithVersionControl(vc snapshot.VersionControl) Option {
	return func(cfg *buildConfig) error {
		if vc == nil {
			return errors.New("version control must not be nil")
		}
		cfg.vcs = vc
		return nil
	}
}

// WithLoader makes the service load specs through the loader returned by fn
// instead of the bare parser.
func WithLoader(fn func(*parser.Parser) jmxsync.SpecLoader) Option {
	return func(cfg *buildConfig) error {
		if fn == nil {
			return errors.New("loader constructor must not be nil")
		}
		cfg.wrapLoader = fn
		return nil
	}
}

// Build wires every component for projectDir. A nil cfg means
// config.Default().
func Build(projectDir string, cfg *config.Config, logger logging.Logger, opts ...Option) (*Components, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger = logging.OrNop(logger)

	abs, err := filepath.Abs(projectDir)
	if err != nil {
		return nil, fmt.Errorf("app: resolving project directory: %w", err)
	}
	bc := &buildConfig{vcs: &snapshot.Git{Dir: abs, Timeout: cfg.GitTimeout}}
	for _, opt := range opts {
		if err := opt(bc); err != nil {
			return nil, fmt.Errorf("app: invalid options: %w", err)
		}
	}

	p := &parser.Parser{AllowExternalRefs: cfg.ExternalRefs, Logger: logger.With("component", "parser")}
	var loader jmxsync.SpecLoader = p
	if bc.wrapLoader != nil {
		loader = bc.wrapLoader(p)
	}

	d, err := differ.New(
		differ.WithStrictDuplicates(cfg.StrictDuplicates),
		differ.WithLogger(logger.With("component", "differ")))
	if err != nil {
		return nil, err
	}
	store, err := snapshot.NewStore(abs,
		snapshot.WithMaxBackups(cfg.MaxBackups),
		snapshot.WithVersionControl(bc.vcs),
		snapshot.WithLogger(logger.With("component", "snapshot")))
	if err != nil {
		return nil, err
	}
	u, err := updater.New(store,
		updater.WithIndent(cfg.Indent),
		updater.WithLogger(logger.With("component", "updater")))
	if err != nil {
		return nil, err
	}
	svc, err := jmxsync.New(loader, d, store, u, jmxsync.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return &Components{
		ProjectDir: abs,
		Parser:     p,
		Differ:     d,
		Store:      store,
		Updater:    u,
		Service:    svc,
	}, nil
}
