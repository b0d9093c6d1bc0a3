package commands

import (
	"io"
	"strings"

	"github.com/kzaorski/jmeter-test-generator-sub001/differ"
	"github.com/kzaorski/jmeter-test-generator-sub001/internal/cliutil"
	"github.com/kzaorski/jmeter-test-generator-sub001/updater"
)

// renderDiff writes the change summary and, when details is set, one line
// per changed endpoint.
func renderDiff(w io.Writer, diff *differ.SpecDiff, details bool) {
	if !diff.HasChanges {
		cliutil.Writef(w, "No API changes detected since last snapshot.\n")
		return
	}

	cliutil.Writef(w, "API Changes Detected\n")
	cliutil.Writef(w, "  Added:    %d endpoint(s)\n", diff.Summary.Added)
	cliutil.Writef(w, "  Removed:  %d endpoint(s)\n", diff.Summary.Removed)
	cliutil.Writef(w, "  Modified: %d endpoint(s)\n", diff.Summary.Modified)

	for _, d := range diff.Duplicates {
		cliutil.Writef(w, "  Warning: %s spec repeats %s %s (index %d, first at %d)\n",
			d.Side, d.Method, d.Path, d.Index, d.FirstIndex)
	}
	if !details {
		return
	}

	sorted := diff.Sorted()
	renderGroup(w, "Added Endpoints", sorted.Added)
	renderGroup(w, "Removed Endpoints", sorted.Removed)
	renderGroup(w, "Modified Endpoints", sorted.Modified)
}

func renderGroup(w io.Writer, title string, changes []differ.EndpointChange) {
	if len(changes) == 0 {
		return
	}
	cliutil.Writef(w, "\n%s:\n", title)
	for _, c := range changes {
		cliutil.Writef(w, "  %s\n", c.String())
		if !c.Changes.IsEmpty() {
			cliutil.Writef(w, "      changed: %s\n", strings.Join(c.Changes.Fields(), ", "))
		}
	}
}

// renderUpdate writes the outcome of one plan update.
func renderUpdate(w io.Writer, res *updater.UpdateResult) {
	if res.Success {
		cliutil.Writef(w, "Updated %s\n", res.JMXPath)
	} else {
		cliutil.Writef(w, "Update of %s failed; plan restored from backup\n", res.JMXPath)
	}
	if res.BackupPath != "" {
		cliutil.Writef(w, "  Backup:   %s\n", res.BackupPath)
	}
	cliutil.Writef(w, "  Added:    %d sampler(s)\n", res.ChangesApplied.Added)
	cliutil.Writef(w, "  Disabled: %d sampler(s)\n", res.ChangesApplied.Disabled)
	cliutil.Writef(w, "  Updated:  %d sampler(s)\n", res.ChangesApplied.Updated)
	for _, e := range res.Errors {
		cliutil.Writef(w, "  Error: %s\n", e)
	}
	for _, warn := range res.Warnings {
		cliutil.Writef(w, "  Warning: %s\n", warn)
	}
}
