// Package jmxerrors provides structured error types for jmeter-gen.
//
// These error types enable programmatic error handling via errors.Is() and
// errors.As(), allowing callers to distinguish between the failure modes of
// change detection and incremental JMX updates.
//
// # Error Categories
//
//   - FormatError: a spec handed to the differ lacks required structure
//   - ParseError: a JMX artifact cannot be read as a JMeter test plan
//   - BackupError: the pre-mutation backup copy could not be created
//   - UpdateError: a mutation failed after backup; the artifact was rolled back
//   - SnapshotCorruptedError: a snapshot file exists but cannot be decoded
//   - SnapshotSaveError: writing a snapshot failed (reported as a warning)
//   - SpecError: an OpenAPI/Swagger document could not be loaded
//
// # Usage with errors.As
//
//	result, err := u.Update("tests/api.jmx", diff, spec)
//	if err != nil {
//	    var updErr *jmxerrors.UpdateError
//	    if errors.As(err, &updErr) && updErr.RolledBack {
//	        // artifact on disk is the pre-update content
//	    }
//	}
package jmxerrors

import (
	"errors"
	"fmt"
)

// Sentinel errors for use with errors.Is().
var (
	// ErrFormat indicates a spec is missing required structure.
	ErrFormat = errors.New("format error")

	// ErrParse indicates a JMX artifact could not be parsed.
	ErrParse = errors.New("jmx parse error")

	// ErrBackup indicates a backup copy failed.
	ErrBackup = errors.New("backup error")

	// ErrUpdate indicates an artifact update failed and was rolled back.
	ErrUpdate = errors.New("update error")

	// ErrSnapshotCorrupted indicates an existing snapshot could not be decoded.
	ErrSnapshotCorrupted = errors.New("snapshot corrupted")

	// ErrSnapshotSave indicates a snapshot could not be written.
	ErrSnapshotSave = errors.New("snapshot save error")

	// ErrSpec indicates an API specification could not be loaded.
	ErrSpec = errors.New("spec error")
)

// FormatError represents a spec that does not satisfy the differ's
// preconditions, e.g. a missing endpoints collection.
type FormatError struct {
	// Side is "old" or "new" when the error comes from a comparison
	Side string
	// Field names what is missing or malformed (e.g. "endpoints", "endpoints[3].path")
	Field string
	// Message provides additional context
	Message string
}

// Error returns a human-readable error message.
func (e *FormatError) Error() string {
	msg := "format error"
	if e.Side != "" {
		msg += " in " + e.Side + " spec"
	}
	if e.Field != "" {
		msg += ": missing or invalid " + e.Field
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// Unwrap returns nil as FormatError has no underlying cause.
func (e *FormatError) Unwrap() error {
	return nil
}

// Is reports whether target matches this error type.
func (e *FormatError) Is(target error) bool {
	return target == ErrFormat
}

// ParseError represents a JMX artifact that cannot be parsed as the expected
// test plan structure. Files that trigger it are left untouched.
type ParseError struct {
	// Path is the artifact path
	Path string
	// Message describes the structural problem
	Message string
	// Cause is the underlying error, if any
	Cause error
}

// Error returns a human-readable error message.
func (e *ParseError) Error() string {
	msg := "jmx parse error"
	if e.Path != "" {
		msg += " in " + e.Path
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause for error chaining.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error type.
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// BackupError represents a failed backup copy. No mutation is attempted
// after it; retrying is safe once the underlying cause is fixed.
type BackupError struct {
	// Path is the artifact being backed up
	Path string
	// BackupPath is the destination, if one was chosen
	BackupPath string
	// Cause is the underlying error, if any
	Cause error
}

// Error returns a human-readable error message.
func (e *BackupError) Error() string {
	msg := "backup error"
	if e.Path != "" {
		msg += " for " + e.Path
	}
	if e.BackupPath != "" {
		msg += " (to " + e.BackupPath + ")"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause for error chaining.
func (e *BackupError) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error type.
func (e *BackupError) Is(target error) bool {
	return target == ErrBackup
}

// UpdateError represents a failure during or after mutation of an artifact.
// When RolledBack is true the artifact was restored from BackupPath.
type UpdateError struct {
	// Path is the artifact path
	Path string
	// BackupPath is the backup used for rollback
	BackupPath string
	// RolledBack reports whether the restore succeeded
	RolledBack bool
	// RollbackErr is set when restoring the backup itself failed
	RollbackErr error
	// Cause is the original failure
	Cause error
}

// Error returns a human-readable error message.
func (e *UpdateError) Error() string {
	msg := "update error"
	if e.Path != "" {
		msg += " in " + e.Path
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	switch {
	case e.RolledBack:
		msg += " (restored from backup)"
	case e.RollbackErr != nil:
		msg += fmt.Sprintf(" (rollback failed: %v)", e.RollbackErr)
	}
	return msg
}

// Unwrap returns the underlying cause for error chaining.
func (e *UpdateError) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error type.
func (e *UpdateError) Is(target error) bool {
	return target == ErrUpdate
}

// SnapshotCorruptedError represents a snapshot file that exists but cannot be
// decoded. It is distinct from an absent snapshot and must not be treated as
// a first run.
type SnapshotCorruptedError struct {
	// Path is the snapshot file path
	Path string
	// Cause is the underlying read or decode error
	Cause error
}

// Error returns a human-readable error message.
func (e *SnapshotCorruptedError) Error() string {
	msg := "snapshot corrupted"
	if e.Path != "" {
		msg += ": " + e.Path
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause for error chaining.
func (e *SnapshotCorruptedError) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error type.
func (e *SnapshotCorruptedError) Is(target error) bool {
	return target == ErrSnapshotCorrupted
}

// SnapshotSaveError represents a failed snapshot write. Callers report it as a
// warning; the generation or update that preceded it still counts as done.
type SnapshotSaveError struct {
	// Path is the snapshot file path
	Path string
	// Cause is the underlying error
	Cause error
}

// Error returns a human-readable error message.
func (e *SnapshotSaveError) Error() string {
	msg := "snapshot save error"
	if e.Path != "" {
		msg += ": " + e.Path
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause for error chaining.
func (e *SnapshotSaveError) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error type.
func (e *SnapshotSaveError) Is(target error) bool {
	return target == ErrSnapshotSave
}

// SpecError represents an OpenAPI or Swagger document that could not be
// loaded into the endpoint model.
type SpecError struct {
	// Path is the file path or source identifier
	Path string
	// Message describes the failure
	Message string
	// Cause is the underlying error, if any
	Cause error
}

// Error returns a human-readable error message.
func (e *SpecError) Error() string {
	msg := "spec error"
	if e.Path != "" {
		msg += " in " + e.Path
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause for error chaining.
func (e *SpecError) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error type.
func (e *SpecError) Is(target error) bool {
	return target == ErrSpec
}
