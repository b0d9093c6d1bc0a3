package commands

import (
	"flag"
	"io"

	"github.com/kzaorski/jmeter-test-generator-sub001/internal/cliutil"
	"github.com/kzaorski/jmeter-test-generator-sub001/jmxsync"
)

// CheckFlags contains flags for the check command
type CheckFlags struct {
	CommonFlags
	Format  string
	Details bool
}

// SetupCheckFlags creates and configures a FlagSet for the check command.
func SetupCheckFlags() (*flag.FlagSet, *CheckFlags) {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	flags := &CheckFlags{}

	addCommonFlags(fs, &flags.CommonFlags)
	fs.StringVar(&flags.Format, "format", FormatText, "output format: text, json, or yaml")
	fs.BoolVar(&flags.Details, "details", false, "list every changed endpoint")

	fs.Usage = func() {
		cliutil.Writef(fs.Output(), "Usage: jmeter-gen check [flags] [<spec>] <jmx>\n\n")
		cliutil.Writef(fs.Output(), "Compare an OpenAPI spec with the snapshot recorded for a JMeter plan.\n")
		cliutil.Writef(fs.Output(), "Without <spec>, the best match in the project directory is used\n")
		cliutil.Writef(fs.Output(), "(openapi.yaml, swagger.json and similar names, up to 3 levels deep).\n")
		cliutil.Writef(fs.Output(), "Nothing is written.\n\n")
		cliutil.Writef(fs.Output(), "Flags:\n")
		fs.PrintDefaults()
		printCommonUsage(fs.Output())
		cliutil.Writef(fs.Output(), "\nExamples:\n")
		cliutil.Writef(fs.Output(), "  jmeter-gen check openapi.yaml tests/api.jmx\n")
		cliutil.Writef(fs.Output(), "  jmeter-gen check --details openapi.yaml tests/api.jmx\n")
		cliutil.Writef(fs.Output(), "  jmeter-gen check --project ./service tests/api.jmx\n")
		cliutil.Writef(fs.Output(), "  jmeter-gen check --format json openapi.yaml tests/api.jmx | jq .status\n")
		cliutil.Writef(fs.Output(), "\nExit Status:\n")
		cliutil.Writef(fs.Output(), "  0    Plan is up to date, or no snapshot exists yet\n")
		cliutil.Writef(fs.Output(), "  1    An error occurred\n")
		cliutil.Writef(fs.Output(), "  2    The spec changed since the last snapshot\n")
	}

	return fs, flags
}

// HandleCheck executes the check command. It returns ErrChangesDetected when
// the spec no longer matches the snapshot.
func HandleCheck(args []string, out io.Writer) error {
	fs, flags := SetupCheckFlags()
	done, err := parseArgs(fs, args, 1, 2, "check command requires a JMX file, optionally preceded by a spec file")
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

	specPath, jmxPath, err := p.planPaths(fs)
	if err != nil {
		return err
	}
	res, err := p.comps.Service.Check(specPath, jmxPath)
	if err != nil {
		return err
	}

	if flags.Format != FormatText {
		if err := OutputStructured(out, res, flags.Format); err != nil {
			return err
		}
	} else {
		renderCheck(out, res, flags.Details)
	}

	if res.HasChanges() {
		return ErrChangesDetected
	}
	return nil
}

func renderCheck(w io.Writer, res *jmxsync.CheckResult, details bool) {
	cliutil.Writef(w, "Spec: %s\n", res.SpecPath)
	cliutil.Writef(w, "Plan: %s\n", res.JMXPath)
	switch res.Status {
	case jmxsync.StatusNew:
		cliutil.Writef(w, "Status: New project - no previous snapshot found\n")
		cliutil.Writef(w, "\nNext step: jmeter-gen snapshot %s %s\n", res.SpecPath, res.JMXPath)
		return
	case jmxsync.StatusUnchanged:
		cliutil.Writef(w, "Status: No changes - spec unchanged since last snapshot\n")
		return
	}
	cliutil.Writef(w, "Snapshot: %s\n\n", res.SnapshotPath)
	renderDiff(w, res.Diff, details)
	cliutil.Writef(w, "\nNext step: jmeter-gen update %s %s\n", res.SpecPath, res.JMXPath)
}
