// Package fileutil holds the file modes and write helpers shared by the
// snapshot store and the artifact updater.
package fileutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// OwnerReadWrite is the file permission mode for backups, which may hold
// unredacted request templates (owner read/write only).
const OwnerReadWrite os.FileMode = 0o600

// ReadableByAll is the file permission mode for snapshots, excludes files and
// rewritten artifacts, all of which are meant to be committed and shared.
const ReadableByAll os.FileMode = 0o644

// DirMode is the permission mode for the .jmeter-gen directory tree.
const DirMode os.FileMode = 0o755

// WriteFileAtomic writes data to a temporary file in the target directory and
// renames it over path, so readers never observe a partial file.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// CopyFile copies src to dst, creating or truncating dst with perm.
func CopyFile(src, dst string, perm os.FileMode) (err error) {
	in, err := os.Open(src) //nolint:gosec // caller-supplied artifact path
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm) //nolint:gosec // path built by the caller
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", dst, cerr)
		}
	}()

	_, err = io.Copy(out, in)
	return err
}
