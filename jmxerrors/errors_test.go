package jmxerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessages(t *testing.T) {
	cause := errors.New("permission denied")

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"format minimal", &FormatError{}, "format error"},
		{"format side and field", &FormatError{Side: "old", Field: "endpoints"}, "format error in old spec: missing or invalid endpoints"},
		{"format message", &FormatError{Field: "endpoints[2].path", Message: "empty"}, "format error: missing or invalid endpoints[2].path: empty"},
		{"parse", &ParseError{Path: "api.jmx", Message: "root element is foo"}, "jmx parse error in api.jmx: root element is foo"},
		{"parse cause", &ParseError{Path: "api.jmx", Cause: cause}, "jmx parse error in api.jmx: permission denied"},
		{"backup", &BackupError{Path: "api.jmx", BackupPath: "b/api.jmx.backup.1", Cause: cause}, "backup error for api.jmx (to b/api.jmx.backup.1): permission denied"},
		{"update restored", &UpdateError{Path: "api.jmx", Cause: cause, RolledBack: true}, "update error in api.jmx: permission denied (restored from backup)"},
		{"update rollback failed", &UpdateError{Path: "api.jmx", Cause: cause, RollbackErr: errors.New("disk full")}, "update error in api.jmx: permission denied (rollback failed: disk full)"},
		{"snapshot corrupted", &SnapshotCorruptedError{Path: "s.spec.json", Cause: cause}, "snapshot corrupted: s.spec.json: permission denied"},
		{"snapshot save", &SnapshotSaveError{Path: "s.spec.json"}, "snapshot save error: s.spec.json"},
		{"spec", &SpecError{Path: "api.yaml", Message: "unsupported version"}, "spec error in api.yaml: unsupported version"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestSentinelMatching(t *testing.T) {
	sentinels := []error{ErrFormat, ErrParse, ErrBackup, ErrUpdate, ErrSnapshotCorrupted, ErrSnapshotSave, ErrSpec}

	tests := []struct {
		err      error
		sentinel error
	}{
		{&FormatError{}, ErrFormat},
		{&ParseError{}, ErrParse},
		{&BackupError{}, ErrBackup},
		{&UpdateError{}, ErrUpdate},
		{&SnapshotCorruptedError{}, ErrSnapshotCorrupted},
		{&SnapshotSaveError{}, ErrSnapshotSave},
		{&SpecError{}, ErrSpec},
	}

	for _, tt := range tests {
		t.Run(tt.sentinel.Error(), func(t *testing.T) {
			for _, s := range sentinels {
				if s == tt.sentinel {
					assert.ErrorIs(t, tt.err, s)
				} else {
					assert.NotErrorIs(t, tt.err, s)
				}
			}
		})
	}
}

func TestWrappedErrorsAreExtractable(t *testing.T) {
	cause := &BackupError{Path: "api.jmx"}
	upd := &UpdateError{Path: "api.jmx", Cause: cause, RolledBack: true}
	wrapped := fmt.Errorf("sync: %w", upd)

	var got *UpdateError
	require.ErrorAs(t, wrapped, &got)
	assert.True(t, got.RolledBack)

	// The cause chain stays visible through the update error.
	assert.ErrorIs(t, wrapped, ErrUpdate)
	assert.ErrorIs(t, wrapped, ErrBackup)

	var be *BackupError
	require.ErrorAs(t, wrapped, &be)
	assert.Equal(t, "api.jmx", be.Path)
}

func TestUnwrapWithoutCause(t *testing.T) {
	assert.NoError(t, (&FormatError{}).Unwrap())
	assert.NoError(t, (&ParseError{}).Unwrap())
	assert.NoError(t, (&SnapshotCorruptedError{}).Unwrap())
}
