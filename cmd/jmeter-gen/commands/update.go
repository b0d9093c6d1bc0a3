package commands

import (
	"context"
	"errors"
	"flag"
	"io"

	"github.com/kzaorski/jmeter-test-generator-sub001/internal/cliutil"
	"github.com/kzaorski/jmeter-test-generator-sub001/jmxsync"
)

// UpdateFlags contains flags for the update command
type UpdateFlags struct {
	CommonFlags
	Format string
}

// SetupUpdateFlags creates and configures a FlagSet for the update command.
func SetupUpdateFlags() (*flag.FlagSet, *UpdateFlags) {
	fs := flag.NewFlagSet("update", flag.ContinueOnError)
	flags := &UpdateFlags{}

	addCommonFlags(fs, &flags.CommonFlags)
	fs.StringVar(&flags.Format, "format", FormatText, "output format: text, json, or yaml")

	fs.Usage = func() {
		cliutil.Writef(fs.Output(), "Usage: jmeter-gen update [flags] [<spec>] <jmx>\n\n")
		cliutil.Writef(fs.Output(), "Apply spec changes to a JMeter plan: add samplers for new endpoints,\n")
		cliutil.Writef(fs.Output(), "disable samplers of removed ones and rename samplers whose operationId\n")
		cliutil.Writef(fs.Output(), "changed. The plan is backed up first and restored on failure.\n")
		cliutil.Writef(fs.Output(), "A new snapshot is saved only after a fully successful update.\n")
		cliutil.Writef(fs.Output(), "Without <spec>, the best match in the project directory is used.\n\n")
		cliutil.Writef(fs.Output(), "Flags:\n")
		fs.PrintDefaults()
		printCommonUsage(fs.Output())
		cliutil.Writef(fs.Output(), "\nExamples:\n")
		cliutil.Writef(fs.Output(), "  jmeter-gen update openapi.yaml tests/api.jmx\n")
		cliutil.Writef(fs.Output(), "  jmeter-gen update --project ./service openapi.yaml tests/api.jmx\n")
		cliutil.Writef(fs.Output(), "  jmeter-gen update tests/api.jmx\n")
	}

	return fs, flags
}

// HandleUpdate executes the update command. An update that reported errors
// is returned as an error after the result is printed.
func HandleUpdate(ctx context.Context, args []string, out io.Writer) error {
	fs, flags := SetupUpdateFlags()
	done, err := parseArgs(fs, args, 1, 2, "update command requires a JMX file, optionally preceded by a spec file")
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
	res, err := p.comps.Service.Sync(ctx, specPath, jmxPath)
	if err != nil {
		return err
	}

	if flags.Format != FormatText {
		if err := OutputStructured(out, res, flags.Format); err != nil {
			return err
		}
	} else {
		renderSync(out, res)
	}

	if res.Update != nil && !res.Update.Success {
		return errors.New("update failed; the plan was restored from backup")
	}
	return nil
}

func renderSync(w io.Writer, res *jmxsync.SyncResult) {
	switch res.Check.Status {
	case jmxsync.StatusUnchanged:
		cliutil.Writef(w, "Plan is up to date.\n")
	case jmxsync.StatusNew:
		cliutil.Writef(w, "No snapshot found; current spec recorded as the baseline.\n")
	default:
		renderDiff(w, res.Check.Diff, true)
		cliutil.Writef(w, "\n")
		renderUpdate(w, res.Update)
	}
	if res.SnapshotPath != "" {
		cliutil.Writef(w, "Snapshot saved: %s\n", res.SnapshotPath)
	}
	for _, warn := range res.Warnings {
		cliutil.Writef(w, "Warning: %s\n", warn)
	}
}
