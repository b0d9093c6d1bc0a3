package commands

import (
	"flag"
	"io"

	"github.com/kzaorski/jmeter-test-generator-sub001/internal/cliutil"
	"github.com/kzaorski/jmeter-test-generator-sub001/jmxsync"
)

// AnalyzeFlags contains flags for the analyze command
type AnalyzeFlags struct {
	CommonFlags
	JMX    string
	Format string
}

// SetupAnalyzeFlags creates and configures a FlagSet for the analyze command.
func SetupAnalyzeFlags() (*flag.FlagSet, *AnalyzeFlags) {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	flags := &AnalyzeFlags{}

	addCommonFlags(fs, &flags.CommonFlags)
	fs.StringVar(&flags.JMX, "jmx", "", "plan to check (default: <project>/<api-title>-test.jmx)")
	fs.StringVar(&flags.Format, "format", FormatText, "output format: text, json, or yaml")

	fs.Usage = func() {
		cliutil.Writef(fs.Output(), "Usage: jmeter-gen analyze [flags]\n\n")
		cliutil.Writef(fs.Output(), "Find the OpenAPI spec in the project directory, summarize it and\n")
		cliutil.Writef(fs.Output(), "report whether the plan still matches its snapshot. Nothing is written.\n\n")
		cliutil.Writef(fs.Output(), "Flags:\n")
		fs.PrintDefaults()
		printCommonUsage(fs.Output())
		cliutil.Writef(fs.Output(), "\nExamples:\n")
		cliutil.Writef(fs.Output(), "  jmeter-gen analyze\n")
		cliutil.Writef(fs.Output(), "  jmeter-gen analyze --project ./service --jmx tests/api.jmx\n")
	}

	return fs, flags
}

// HandleAnalyze executes the analyze command
func HandleAnalyze(args []string, out io.Writer) error {
	fs, flags := SetupAnalyzeFlags()
	done, err := parseArgs(fs, args, 0, 0, "analyze command takes no arguments")
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

	res, err := p.comps.Service.Analyze(p.comps.ProjectDir, flags.JMX)
	if err != nil {
		return err
	}

	if flags.Format != FormatText {
		return OutputStructured(out, res, flags.Format)
	}
	renderAnalysis(out, res)
	return nil
}

func renderAnalysis(w io.Writer, res *jmxsync.AnalyzeResult) {
	cliutil.Writef(w, "Spec: %s (%s)\n", res.SpecPath, res.SpecFormat)
	cliutil.Writef(w, "API: %s %s\n", res.Title, res.APIVersion)
	cliutil.Writef(w, "Base URL: %s\n", res.BaseURL)
	cliutil.Writef(w, "Endpoints: %d\n", res.Endpoints)
	if res.MultipleSpecs() {
		cliutil.Writef(w, "\nOther specs found:\n")
		for _, s := range res.AvailableSpecs[1:] {
			cliutil.Writef(w, "  - %s\n", s.Path)
		}
	}

	cliutil.Writef(w, "\nPlan: %s\n", res.JMXPath)
	switch {
	case !res.JMXExists:
		cliutil.Writef(w, "Status: Plan not found (recommended name: %s)\n", res.RecommendedJMX)
	case res.Check.Status == jmxsync.StatusNew:
		cliutil.Writef(w, "Status: No snapshot recorded\n")
		cliutil.Writef(w, "\nNext step: jmeter-gen snapshot %s\n", res.JMXPath)
	case res.Check.Status == jmxsync.StatusUnchanged:
		cliutil.Writef(w, "Status: Up to date\n")
	default:
		s := res.Check.Diff.Summary
		cliutil.Writef(w, "Status: Changed (%d added, %d removed, %d modified)\n", s.Added, s.Removed, s.Modified)
		cliutil.Writef(w, "\nNext step: jmeter-gen update %s\n", res.JMXPath)
	}
}
