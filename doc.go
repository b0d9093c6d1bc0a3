// Package jmetergen keeps generated JMeter test plans in step with the
// OpenAPI and Swagger specifications they were generated from.
//
// Instead of regenerating a plan when its spec changes, jmeter-gen records a
// redacted snapshot of the spec next to the plan, computes an endpoint-level
// diff against that snapshot, and patches the existing .jmx in place. User
// edits such as CSV data sets, extractors and tuned thread groups survive.
//
// # Overview
//
// The library consists of these packages:
//
//   - apispec: The normalized endpoint model and its JSON/YAML tree
//   - parser: Load OpenAPI 3.x and Swagger 2.0 documents into the model
//   - fingerprint: Normalize endpoints and compute content fingerprints
//   - differ: Compare two endpoint sets (added, removed, modified)
//   - snapshot: Persist redacted baselines and artifact backups
//   - updater: Apply a diff to a JMX plan with backup and rollback
//   - discover: Find the OpenAPI document of a project directory
//   - validator: Check a JMX plan's structure and thread group settings
//   - jmxsync: Tie the above into check, update, snapshot and analyze flows
//   - jmxerrors: Typed errors shared by every package
//   - logging: The Logger interface with slog and zap adapters
//
// # Installation
//
// Install the command-line tool using go install:
//
//	go install github.com/kzaorski/jmeter-test-generator-sub001/cmd/jmeter-gen@latest
//
// # Quick Start
//
// Check a plan against its spec:
//
//	import "github.com/kzaorski/jmeter-test-generator-sub001/jmxsync"
//
//	check, err := svc.Check("openapi.yaml", "tests/api.jmx")
//	if err != nil {
//		log.Fatal(err)
//	}
//	if check.HasChanges() {
//		fmt.Printf("%d endpoint(s) changed\n", check.Diff.Summary.Total())
//	}
//
// Compare two specs directly:
//
//	import (
//		"github.com/kzaorski/jmeter-test-generator-sub001/differ"
//		"github.com/kzaorski/jmeter-test-generator-sub001/parser"
//	)
//
//	oldSpec, _ := parser.Load("v1.yaml")
//	newSpec, _ := parser.Load("v2.yaml")
//	diff, err := differ.Compare(oldSpec, newSpec)
//	for _, c := range diff.Sorted().Changes() {
//		fmt.Println(c)
//	}
//
// # Project Layout
//
// All state lives in a .jmeter-gen directory at the project root:
//
//	.jmeter-gen/
//	  config.yaml          optional settings
//	  .gitignore           excludes backups/, keeps snapshots/
//	  snapshots/           one <plan>.spec.json per plan, committed
//	  backups/             <plan>.jmx.backup.<timestamp>, local only
//
// Snapshots never contain secret-looking values: properties such as
// password, token or api_key are replaced before writing, and each endpoint
// keeps the fingerprint computed before redaction so a redacted baseline
// still compares equal to the unredacted spec.
//
// # Command-Line Tool
//
// The jmeter-gen command exposes the same flows:
//
//	jmeter-gen check openapi.yaml tests/api.jmx     # exit 2 when the plan is out of date
//	jmeter-gen update openapi.yaml tests/api.jmx    # patch the plan and save a snapshot
//	jmeter-gen snapshot openapi.yaml tests/api.jmx  # record a baseline
//	jmeter-gen diff v1.yaml v2.yaml
//	jmeter-gen watch openapi.yaml tests/api.jmx     # re-sync on every save
//	jmeter-gen update tests/api.jmx                 # spec found in the project
//	jmeter-gen validate tests/api.jmx               # exit 1 when the plan has issues
//	jmeter-gen analyze                              # spec summary and plan status
//	jmeter-gen mcp                                  # MCP server over stdio
package jmetergen
