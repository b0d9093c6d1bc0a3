// Package commands provides CLI command handlers for jmeter-gen.
package commands

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"

	"go.yaml.in/yaml/v4"

	"github.com/kzaorski/jmeter-test-generator-sub001/discover"
	"github.com/kzaorski/jmeter-test-generator-sub001/internal/app"
	"github.com/kzaorski/jmeter-test-generator-sub001/internal/cliutil"
	"github.com/kzaorski/jmeter-test-generator-sub001/internal/config"
	"github.com/kzaorski/jmeter-test-generator-sub001/logging"
)

// Output format constants
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ErrChangesDetected is returned by check when the plan is out of date.
// main maps it to exit status 2.
var ErrChangesDetected = errors.New("API changes detected")

// ValidateOutputFormat validates an output format and returns an error if invalid.
func ValidateOutputFormat(format string) error {
	if format != FormatText && format != FormatJSON && format != FormatYAML {
		return fmt.Errorf("invalid format '%s'. Valid formats: %s, %s, %s", format, FormatText, FormatJSON, FormatYAML)
	}
	return nil
}

// OutputStructured writes data to w in the specified format (json or yaml).
func OutputStructured(w io.Writer, data any, format string) error {
	var bytes []byte
	var err error

	switch format {
	case FormatJSON:
		bytes, err = json.MarshalIndent(data, "", "  ")
	case FormatYAML:
		bytes, err = yaml.Marshal(data)
	default:
		return fmt.Errorf("invalid format for structured output: %s", format)
	}

	if err != nil {
		return fmt.Errorf("marshaling to %s: %w", format, err)
	}

	cliutil.Writef(w, "%s\n", bytes)
	return nil
}

// CommonFlags are accepted by every command that works on a project.
type CommonFlags struct {
	Project   string
	LogLevel  string
	LogFormat string
}

func addCommonFlags(fs *flag.FlagSet, c *CommonFlags) {
	fs.StringVar(&c.Project, "project", ".", "project directory holding .jmeter-gen/")
	fs.StringVar(&c.LogLevel, "log-level", "", "log level: debug, info, warn, or error (overrides config)")
	fs.StringVar(&c.LogFormat, "log-format", "", "log format: console or json (overrides config)")
}

// printCommonUsage writes the shared flag help and the config precedence note.
func printCommonUsage(w io.Writer) {
	cliutil.Writef(w, "\nConfiguration:\n")
	cliutil.Writef(w, "  Settings come from <project>/.jmeter-gen/config.yaml, then JMETER_GEN_*\n")
	cliutil.Writef(w, "  environment variables, then <project>/.env. Flags override all of them.\n")
}

// buildOptions is appended to every app.Build call. Tests use it to swap
// out git.
var buildOptions []app.Option

// project is an opened jmeter-gen project.
type project struct {
	cfg    *config.Config
	logger logging.Logger
	zap    *logging.ZapAdapter
	comps  *app.Components
}

// openProject loads the project configuration, applies flag overrides and
// wires the components.
func openProject(c *CommonFlags) (*project, error) {
	cfg, err := config.Load(c.Project)
	if err != nil {
		return nil, err
	}
	if c.LogLevel != "" {
		cfg.LogLevel = c.LogLevel
	}
	if c.LogFormat != "" {
		cfg.LogFormat = c.LogFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	zl, err := logging.NewZap(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	za := logging.NewZapAdapter(zl)

	comps, err := app.Build(c.Project, cfg, za, buildOptions...)
	if err != nil {
		_ = za.Sync()
		return nil, err
	}
	return &project{cfg: cfg, logger: za, zap: za, comps: comps}, nil
}

// Close flushes buffered log entries.
func (p *project) Close() {
	// stderr may not support fsync; nothing useful to report.
	_ = p.zap.Sync()
}

// parseArgs parses args with fs and enforces the positional argument count.
// It returns done=true when --help was requested.
func parseArgs(fs *flag.FlagSet, args []string, minArgs, maxArgs int, usageErr string) (done bool, err error) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return true, nil
		}
		return false, err
	}
	if fs.NArg() < minArgs || fs.NArg() > maxArgs {
		fs.Usage()
		return false, errors.New(usageErr)
	}
	return false, nil
}

// planPaths returns the spec and plan named by the positional arguments
// [<spec>] <jmx>. Without a spec the best one in the project directory is
// used.
func (p *project) planPaths(fs *flag.FlagSet) (specPath, jmxPath string, err error) {
	if fs.NArg() == 2 {
		return fs.Arg(0), fs.Arg(1), nil
	}
	found, err := discover.FindSpec(p.comps.ProjectDir)
	if err != nil {
		return "", "", err
	}
	p.logger.Info("using discovered spec", "spec", found.Path)
	return found.Path, fs.Arg(0), nil
}
