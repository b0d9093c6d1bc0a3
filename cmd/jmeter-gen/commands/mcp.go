package commands

import (
	"context"
	"flag"

	"github.com/kzaorski/jmeter-test-generator-sub001/internal/cliutil"
	"github.com/kzaorski/jmeter-test-generator-sub001/internal/mcpserver"
)

// MCPFlags contains flags for the mcp command
type MCPFlags struct {
	CommonFlags
}

// SetupMCPFlags creates and configures a FlagSet for the mcp command.
func SetupMCPFlags() (*flag.FlagSet, *MCPFlags) {
	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	flags := &MCPFlags{}

	addCommonFlags(fs, &flags.CommonFlags)

	fs.Usage = func() {
		cliutil.Writef(fs.Output(), "Usage: jmeter-gen mcp [flags]\n\n")
		cliutil.Writef(fs.Output(), "Serve the change detection tools over MCP on stdin/stdout.\n")
		cliutil.Writef(fs.Output(), "Logs go to stderr.\n\n")
		cliutil.Writef(fs.Output(), "Tools: analyze_project, detect_changes, compare_specs, update_jmx,\n")
		cliutil.Writef(fs.Output(), "       save_snapshot, list_endpoints, validate_jmx\n\n")
		cliutil.Writef(fs.Output(), "Flags:\n")
		fs.PrintDefaults()
		printCommonUsage(fs.Output())
	}

	return fs, flags
}

// HandleMCP executes the mcp command. It returns when the client disconnects
// or ctx is cancelled.
func HandleMCP(ctx context.Context, args []string) error {
	fs, flags := SetupMCPFlags()
	done, err := parseArgs(fs, args, 0, 0, "mcp command takes no arguments")
	if done || err != nil {
		return err
	}

	p, err := openProject(&flags.CommonFlags)
	if err != nil {
		return err
	}
	defer p.Close()

	p.logger.Info("starting MCP server", "project", p.comps.ProjectDir)
	return mcpserver.Run(ctx, p.comps.ProjectDir, p.cfg,
		mcpserver.WithLogger(p.logger),
		mcpserver.WithBuildOptions(buildOptions...))
}
