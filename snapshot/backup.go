package snapshot

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/kzaorski/jmeter-test-generator-sub001/internal/fileutil"
	"github.com/kzaorski/jmeter-test-generator-sub001/jmxerrors"
)

// Backup file names are <stem>.jmx.backup.<timestamp>. Older tools wrote
// second-resolution stamps; both are accepted when rotating.
const (
	backupInfix       = ".jmx.backup."
	backupStampLayout = "20060102_150405.000000000"
	legacyStampLayout = "20060102_150405"
)

// BackupName returns the backup file name for an artifact stem at t.
func BackupName(stem string, t time.Time) string {
	return stem + backupInfix + t.UTC().Format(backupStampLayout)
}

// parseBackupStamp extracts the timestamp embedded in a backup name.
func parseBackupStamp(stem, name string) (time.Time, bool) {
	suffix, ok := strings.CutPrefix(name, stem+backupInfix)
	if !ok {
		return time.Time{}, false
	}
	for _, layout := range []string{backupStampLayout, legacyStampLayout} {
		if t, err := time.Parse(layout, suffix); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Backup copies the artifact into the backup directory under a timestamped
// name, then rotates old backups. Failure to copy is a
// *jmxerrors.BackupError; rotation failures are only logged.
func (s *Store) Backup(jmxPath string) (string, error) {
	st := stem(jmxPath)
	if err := os.MkdirAll(s.backupDir, fileutil.DirMode); err != nil {
		return "", &jmxerrors.BackupError{Path: jmxPath, BackupPath: s.backupDir, Cause: err}
	}

	// Same-instant backups bump the stamp so none is overwritten.
	t := s.now()
	target := filepath.Join(s.backupDir, BackupName(st, t))
	for {
		if _, err := os.Lstat(target); err != nil {
			break
		}
		t = t.Add(time.Nanosecond)
		target = filepath.Join(s.backupDir, BackupName(st, t))
	}

	if err := fileutil.CopyFile(jmxPath, target, fileutil.OwnerReadWrite); err != nil {
		_ = os.Remove(target)
		return "", &jmxerrors.BackupError{Path: jmxPath, BackupPath: target, Cause: err}
	}
	s.logger.Debug("artifact backed up", "path", jmxPath, "backup", target)

	if err := s.Rotate(st); err != nil {
		s.logger.Warn("backup rotation failed", "stem", st, "error", err)
	}
	return target, nil
}

// Restore overwrites target with the exact bytes of backupPath.
func (s *Store) Restore(backupPath, target string) error {
	data, err := os.ReadFile(backupPath) //nolint:gosec // path produced by Backup
	if err != nil {
		return fmt.Errorf("snapshot: reading backup: %w", err)
	}
	perm := fileutil.ReadableByAll
	if info, err := os.Stat(target); err == nil {
		perm = info.Mode().Perm()
	}
	if err := fileutil.WriteFileAtomic(target, data, perm); err != nil {
		return fmt.Errorf("snapshot: restoring %s: %w", target, err)
	}
	s.logger.Info("artifact restored from backup", "path", target, "backup", backupPath)
	return nil
}

// Rotate keeps the newest MaxBackups backups of stem, ordered by the
// timestamp in their names. Files whose suffix is not a timestamp are left
// alone.
func (s *Store) Rotate(stem string) error {
	if _, err := os.Stat(s.backupDir); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	names, err := doublestar.Glob(os.DirFS(s.backupDir), escapeGlob(stem+backupInfix)+"*", doublestar.WithFilesOnly())
	if err != nil {
		return fmt.Errorf("snapshot: listing backups: %w", err)
	}

	type backup struct {
		name  string
		stamp time.Time
	}
	var backups []backup
	for _, name := range names {
		if t, ok := parseBackupStamp(stem, name); ok {
			backups = append(backups, backup{name: name, stamp: t})
		}
	}
	if len(backups) <= s.maxBackups {
		return nil
	}
	sort.Slice(backups, func(i, j int) bool {
		if !backups[i].stamp.Equal(backups[j].stamp) {
			return backups[i].stamp.Before(backups[j].stamp)
		}
		return backups[i].name < backups[j].name
	})

	var errs []error
	for _, b := range backups[:len(backups)-s.maxBackups] {
		path := filepath.Join(s.backupDir, b.name)
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		s.logger.Debug("old backup removed", "path", path)
	}
	return errors.Join(errs...)
}

// Backups lists the backup files of stem, newest first.
func (s *Store) Backups(stem string) ([]string, error) {
	if _, err := os.Stat(s.backupDir); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	names, err := doublestar.Glob(os.DirFS(s.backupDir), escapeGlob(stem+backupInfix)+"*", doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("snapshot: listing backups: %w", err)
	}
	type backup struct {
		path  string
		stamp time.Time
	}
	var backups []backup
	for _, name := range names {
		if t, ok := parseBackupStamp(stem, name); ok {
			backups = append(backups, backup{path: filepath.Join(s.backupDir, name), stamp: t})
		}
	}
	sort.SliceStable(backups, func(i, j int) bool { return backups[i].stamp.After(backups[j].stamp) })
	out := make([]string, len(backups))
	for i, b := range backups {
		out[i] = b.path
	}
	return out, nil
}

func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '{', '}', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
