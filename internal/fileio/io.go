// Package fileio provides the one file-write primitive every mutable file
// the core touches (caches, vector stores, document metadata) goes
// through: a crash-safe atomic write, so a crash mid-write never leaves a
// half-written file in its place.
package fileio

import (
	"os"
	"path/filepath"
)

// WriteFileAtomic writes data to path by first writing to a uniquely named
// sibling "<name>.*.tmp" file, fsyncing it, then renaming it over path. The rename is
// atomic on POSIX filesystems, so concurrent readers of path always see
// either the old or the new content, never a partial write.
//
// Parent directories are created as needed with perm 0o755.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err = tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err = os.Chmod(tmpPath, perm); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	if err = os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	return nil
}
