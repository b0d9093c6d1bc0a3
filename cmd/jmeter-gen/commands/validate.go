package commands

import (
	"errors"
	"flag"
	"io"

	"github.com/kzaorski/jmeter-test-generator-sub001/internal/cliutil"
	"github.com/kzaorski/jmeter-test-generator-sub001/validator"
)

// ErrInvalidPlan is returned by validate when the plan has issues. main maps
// it to exit status 1 without printing it again.
var ErrInvalidPlan = errors.New("JMX plan is invalid")

// ValidateFlags contains flags for the validate command
type ValidateFlags struct {
	CommonFlags
	Format string
}

// SetupValidateFlags creates and configures a FlagSet for the validate command.
func SetupValidateFlags() (*flag.FlagSet, *ValidateFlags) {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	flags := &ValidateFlags{}

	addCommonFlags(fs, &flags.CommonFlags)
	fs.StringVar(&flags.Format, "format", FormatText, "output format: text, json, or yaml")

	fs.Usage = func() {
		cliutil.Writef(fs.Output(), "Usage: jmeter-gen validate [flags] <jmx>\n\n")
		cliutil.Writef(fs.Output(), "Check a JMeter plan for the structure and thread group settings a\n")
		cliutil.Writef(fs.Output(), "load test needs, and suggest commonly missing elements.\n\n")
		cliutil.Writef(fs.Output(), "Flags:\n")
		fs.PrintDefaults()
		cliutil.Writef(fs.Output(), "\nExamples:\n")
		cliutil.Writef(fs.Output(), "  jmeter-gen validate tests/api.jmx\n")
		cliutil.Writef(fs.Output(), "  jmeter-gen validate --format json tests/api.jmx | jq .issues\n")
		cliutil.Writef(fs.Output(), "\nExit Status:\n")
		cliutil.Writef(fs.Output(), "  0    The plan is valid (recommendations may still be printed)\n")
		cliutil.Writef(fs.Output(), "  1    The plan has issues, or could not be read\n")
	}

	return fs, flags
}

// HandleValidate executes the validate command. It returns ErrInvalidPlan
// when the plan has issues.
func HandleValidate(args []string, out io.Writer) error {
	fs, flags := SetupValidateFlags()
	done, err := parseArgs(fs, args, 1, 1, "validate command requires a JMX file")
	if done || err != nil {
		return err
	}
	if err := ValidateOutputFormat(flags.Format); err != nil {
		return err
	}

	p, err := openProject(&flags.CommonFlags)
	if err != nil {
		return err
	}
	defer p.Close()

	v, err := validator.New(validator.WithLogger(p.logger))
	if err != nil {
		return err
	}
	res, err := v.ValidateFile(fs.Arg(0))
	if err != nil {
		return err
	}

	if flags.Format != FormatText {
		if err := OutputStructured(out, res, flags.Format); err != nil {
			return err
		}
	} else {
		renderValidation(out, res)
	}

	if !res.Valid {
		return ErrInvalidPlan
	}
	return nil
}

func renderValidation(w io.Writer, res *validator.Result) {
	cliutil.Writef(w, "Plan: %s\n", res.Path)
	cliutil.Writef(w, "Samplers: %d\n", res.Samplers)
	if res.Valid {
		cliutil.Writef(w, "Status: Valid\n")
	} else {
		cliutil.Writef(w, "Status: Invalid (%d issue(s))\n", len(res.Issues))
		cliutil.Writef(w, "\nIssues:\n")
		for _, issue := range res.Issues {
			cliutil.Writef(w, "  - %s\n", issue)
		}
	}
	if len(res.Recommendations) > 0 {
		cliutil.Writef(w, "\nRecommendations:\n")
		for _, rec := range res.Recommendations {
			cliutil.Writef(w, "  - %s\n", rec)
		}
	}
}
