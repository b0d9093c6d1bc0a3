/*
Package differ compares two endpoint sets and produces a SpecDiff.

# Overview

Endpoints are matched by identity key (path, upper-cased method). Every
endpoint lands in exactly one bucket:

  - Added: key only in the new spec
  - Removed: key only in the old spec
  - Modified: key on both sides with differing fingerprints and at least one
    field-level change

Fingerprint equality (see package fingerprint) is the only test for "no
modification". When fingerprints differ the Differ builds a FieldChanges
record covering request_body, parameters, responses, operation_id and the
whole normalized request_body_schema. A record with no entries drops the
endpoint from the modified list.

# Ordering

Added and Modified follow the new spec's endpoint order, Removed follows the
old spec's. No sort is applied; call SpecDiff.Sorted for display order.

# Duplicate Keys

A (path, method) key that repeats within one spec is an upstream defect. The
first occurrence takes part in matching; later ones are listed in
SpecDiff.Duplicates and logged as warnings. WithStrictDuplicates(true) turns
them into a *jmxerrors.FormatError instead.

# Example

	d, err := differ.New(differ.WithLogger(logger))
	if err != nil {
		return err
	}
	diff, err := d.Compare(snapshotSpec, liveSpec)
	if err != nil {
		return err
	}
	if diff.HasChanges {
		fmt.Printf("%d added, %d removed, %d modified\n",
			diff.Summary.Added, diff.Summary.Removed, diff.Summary.Modified)
	}
*/
package differ
