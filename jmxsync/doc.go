/*
Package jmxsync ties the spec loader, differ, snapshot store and updater
into the flows the CLI and the MCP server expose.

	svc, err := jmxsync.New(parser.New(), d, store, u)
	check, err := svc.Check("openapi.yaml", "tests/api.jmx")
	if check.HasChanges() {
		res, err := svc.Sync(ctx, "openapi.yaml", "tests/api.jmx")
	}

Check never writes. Sync updates the artifact when the spec changed and
saves a new snapshot only after a fully successful update, so a partially
applied diff is detected again on the next run.
*/
package jmxsync
