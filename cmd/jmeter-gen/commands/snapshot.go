package commands

import (
	"context"
	"flag"
	"io"

	"github.com/kzaorski/jmeter-test-generator-sub001/internal/cliutil"
)

// SnapshotFlags contains flags for the snapshot command
type SnapshotFlags struct {
	CommonFlags
}

// SetupSnapshotFlags creates and configures a FlagSet for the snapshot command.
func SetupSnapshotFlags() (*flag.FlagSet, *SnapshotFlags) {
	fs := flag.NewFlagSet("snapshot", flag.ContinueOnError)
	flags := &SnapshotFlags{}

	addCommonFlags(fs, &flags.CommonFlags)

	fs.Usage = func() {
		cliutil.Writef(fs.Output(), "Usage: jmeter-gen snapshot [flags] [<spec>] <jmx>\n\n")
		cliutil.Writef(fs.Output(), "Record the spec as the baseline for a JMeter plan. Run it after\n")
		cliutil.Writef(fs.Output(), "generating or hand-editing a plan so later checks compare against it.\n")
		cliutil.Writef(fs.Output(), "Without <spec>, the best match in the project directory is used.\n\n")
		cliutil.Writef(fs.Output(), "Flags:\n")
		fs.PrintDefaults()
		printCommonUsage(fs.Output())
	}

	return fs, flags
}

// HandleSnapshot executes the snapshot command
func HandleSnapshot(ctx context.Context, args []string, out io.Writer) error {
	fs, flags := SetupSnapshotFlags()
	done, err := parseArgs(fs, args, 1, 2, "snapshot command requires a JMX file, optionally preceded by a spec file")
	if done || err != nil {
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
	path, err := p.comps.Service.SaveSnapshot(ctx, specPath, jmxPath)
	if err != nil {
		return err
	}
	cliutil.Writef(out, "Snapshot saved: %s\n", path)
	return nil
}
