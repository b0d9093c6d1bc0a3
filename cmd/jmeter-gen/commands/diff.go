package commands

import (
	"flag"
	"io"

	"github.com/kzaorski/jmeter-test-generator-sub001/internal/cliutil"
)

// DiffFlags contains flags for the diff command
type DiffFlags struct {
	CommonFlags
	Format string
}

// SetupDiffFlags creates and configures a FlagSet for the diff command.
// Returns the FlagSet and a DiffFlags struct with bound flag variables.
func SetupDiffFlags() (*flag.FlagSet, *DiffFlags) {
	fs := flag.NewFlagSet("diff", flag.ContinueOnError)
	flags := &DiffFlags{}

	addCommonFlags(fs, &flags.CommonFlags)
	fs.StringVar(&flags.Format, "format", FormatText, "output format: text, json, or yaml")

	fs.Usage = func() {
		cliutil.Writef(fs.Output(), "Usage: jmeter-gen diff [flags] <old-spec> <new-spec>\n\n")
		cliutil.Writef(fs.Output(), "Compare the endpoints of two OpenAPI or Swagger files directly,\n")
		cliutil.Writef(fs.Output(), "without reading or writing any snapshot.\n\n")
		cliutil.Writef(fs.Output(), "Flags:\n")
		fs.PrintDefaults()
		cliutil.Writef(fs.Output(), "\nOutput Formats:\n")
		cliutil.Writef(fs.Output(), "  text (default)  Human-readable text output\n")
		cliutil.Writef(fs.Output(), "  json            JSON format for programmatic processing\n")
		cliutil.Writef(fs.Output(), "  yaml            YAML format for programmatic processing\n")
		cliutil.Writef(fs.Output(), "\nExamples:\n")
		cliutil.Writef(fs.Output(), "  jmeter-gen diff api-v1.yaml api-v2.yaml\n")
		cliutil.Writef(fs.Output(), "  jmeter-gen diff --format json api-v1.yaml api-v2.yaml | jq .summary\n")
	}

	return fs, flags
}

// HandleDiff executes the diff command
func HandleDiff(args []string, out io.Writer) error {
	fs, flags := SetupDiffFlags()
	done, err := parseArgs(fs, args, 2, 2, "diff command requires exactly two spec files")
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

	diff, err := p.comps.Service.CompareSpecs(fs.Arg(0), fs.Arg(1))
	if err != nil {
		return err
	}

	if flags.Format != FormatText {
		return OutputStructured(out, diff.Sorted(), flags.Format)
	}
	cliutil.Writef(out, "Old: %s (version %s)\n", fs.Arg(0), diff.OldVersion)
	cliutil.Writef(out, "New: %s (version %s)\n\n", fs.Arg(1), diff.NewVersion)
	if !diff.HasChanges {
		cliutil.Writef(out, "No endpoint differences found.\n")
		return nil
	}
	renderDiff(out, diff, true)
	return nil
}
