package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	jmetergen "github.com/kzaorski/jmeter-test-generator-sub001"
	"github.com/kzaorski/jmeter-test-generator-sub001/cmd/jmeter-gen/commands"
	"github.com/kzaorski/jmeter-test-generator-sub001/internal/cliutil"
)

// commandNames lists the dispatchable commands for typo suggestions.
var commandNames = []string{"analyze", "check", "diff", "update", "snapshot", "validate", "watch", "mcp", "version", "help"}

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1], os.Args[2:], os.Stdout)
	stop()
	os.Exit(exitCode(err))
}

func run(ctx context.Context, command string, args []string, out io.Writer) error {
	switch command {
	case "version", "-v", "--version":
		cliutil.Writef(out, "%s\n", jmetergen.UserAgent())
		if len(args) > 0 && args[0] == "--verbose" {
			cliutil.Writef(out, "%s", jmetergen.BuildInfo())
		}
		return nil
	case "help", "-h", "--help":
		printUsage(out)
		return nil
	case "analyze":
		return commands.HandleAnalyze(args, out)
	case "check":
		return commands.HandleCheck(args, out)
	case "diff":
		return commands.HandleDiff(args, out)
	case "update":
		return commands.HandleUpdate(ctx, args, out)
	case "snapshot":
		return commands.HandleSnapshot(ctx, args, out)
	case "validate":
		return commands.HandleValidate(args, out)
	case "watch":
		return commands.HandleWatch(ctx, args, out)
	case "mcp":
		return commands.HandleMCP(ctx, args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		if s := suggestCommand(command); s != "" {
			fmt.Fprintf(os.Stderr, "Did you mean: %s?\n", s)
		}
		fmt.Fprintln(os.Stderr)
		printUsage(os.Stderr)
		return errUnknownCommand
	}
}

var errUnknownCommand = errors.New("unknown command")

// exitCode maps a command error to the process exit status and reports it.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, commands.ErrChangesDetected):
		return 2
	case errors.Is(err, errUnknownCommand), errors.Is(err, commands.ErrInvalidPlan):
		return 1
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
}

// suggestCommand returns the command closest to input within an edit
// distance of 2, or "" when nothing is close enough.
func suggestCommand(input string) string {
	best, bestDist := "", 3
	for _, name := range commandNames {
		if d := editDistance(input, name); d < bestDist {
			best, bestDist = name, d
		}
	}
	return best
}

func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}

func printUsage(w io.Writer) {
	cliutil.Writef(w, "%s", `jmeter-gen - keep JMeter test plans in sync with OpenAPI specs

Usage:
  jmeter-gen <command> [flags] [args]

Commands:
  analyze    Find the project's spec and report the state of its plan
  check      Report endpoint changes since the last snapshot (exit 2 when changed)
  diff       Compare the endpoints of two spec files
  update     Apply spec changes to a JMeter plan and save a new snapshot
  snapshot   Record the spec as the baseline for a plan
  validate   Check a plan's structure and suggest missing elements
  watch      Update the plan whenever the spec file changes
  mcp        Serve the tools over MCP on stdio
  version    Show version information (--verbose for build details)
  help       Show this help message

Examples:
  jmeter-gen check openapi.yaml tests/api.jmx
  jmeter-gen update openapi.yaml tests/api.jmx
  jmeter-gen update tests/api.jmx              (spec found in the project)
  jmeter-gen validate tests/api.jmx
  jmeter-gen diff api-v1.yaml api-v2.yaml

Run 'jmeter-gen <command> --help' for more information on a command.
`)
}
