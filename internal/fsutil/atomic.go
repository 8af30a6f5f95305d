// Package fsutil holds small filesystem helpers shared across packages.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/conn-castle/langpatch/internal/messages"
)

// AtomicFS is the set of operations WriteFileAtomicFS needs. Tests substitute it to
// simulate a crash between materializing the temp file and renaming it.
type AtomicFS interface {
	CreateTemp(dir string, pattern string) (*os.File, error)
	Rename(oldpath string, newpath string) error
	Remove(name string) error
	Chmod(name string, mode os.FileMode) error
}

// OSAtomicFS implements AtomicFS with the os package.
type OSAtomicFS struct{}

// CreateTemp creates a new temporary file in dir.
func (OSAtomicFS) CreateTemp(dir string, pattern string) (*os.File, error) {
	return os.CreateTemp(dir, pattern)
}

// Rename renames (moves) oldpath to newpath.
func (OSAtomicFS) Rename(oldpath string, newpath string) error {
	return os.Rename(oldpath, newpath)
}

// Remove removes the named file.
func (OSAtomicFS) Remove(name string) error {
	return os.Remove(name)
}

// Chmod changes the mode of the named file.
func (OSAtomicFS) Chmod(name string, mode os.FileMode) error {
	return os.Chmod(name, mode)
}

// WriteFileAtomic writes data to filename by writing a temp file in the same directory,
// syncing it, and renaming it over filename.
func WriteFileAtomic(filename string, data []byte, perm os.FileMode) error {
	return WriteFileAtomicFS(OSAtomicFS{}, filename, data, perm)
}

// WriteFileAtomicFS is WriteFileAtomic over an explicit AtomicFS.
// The temp file lives next to filename so the rename never crosses a volume.
func WriteFileAtomicFS(fsys AtomicFS, filename string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(filename)
	tmp, err := fsys.CreateTemp(dir, "."+filepath.Base(filename)+".tmp-*")
	if err != nil {
		return fmt.Errorf(messages.FsutilCreateTempFmt, filename, err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = fsys.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf(messages.FsutilWriteTempFmt, tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf(messages.FsutilSyncTempFmt, tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf(messages.FsutilCloseTempFmt, tmpName, err)
	}
	if err := fsys.Chmod(tmpName, perm); err != nil {
		return fmt.Errorf(messages.FsutilChmodTempFmt, tmpName, err)
	}
	if err := fsys.Rename(tmpName, filename); err != nil {
		return fmt.Errorf(messages.FsutilRenameFmt, tmpName, filename, err)
	}
	committed = true
	return nil
}
