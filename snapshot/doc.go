/*
Package snapshot persists redacted spec baselines and artifact backups.

A project keeps its state under .jmeter-gen:

	.jmeter-gen/
	  .gitignore                         generated, excludes backups/
	  snapshots/<stem>.spec.json         committed baseline per artifact
	  backups/<stem>.jmx.backup.<stamp>  local copies taken before updates

Snapshots are keyed by the artifact's base name. Load looks a snapshot up by
artifact; FindBySpec scans all snapshots for a matching spec path, which
survives artifact renames. A missing snapshot is reported as (nil, nil) while
an unreadable one is a *jmxerrors.SnapshotCorruptedError, so callers never
confuse corruption with a first run.

Before writing, every endpoint is passed through Redact, which drops member
names that look like credentials or examples along with security subtrees.
Each stored endpoint keeps the fingerprint computed before redaction, so a
snapshot diffed against the live spec it was taken from shows no changes.
*/
package snapshot
