package txn

import (
	"io"
	"os"
)

// File is the writable file handle the coordinator uses for staging and the journal.
type File interface {
	io.Writer
	Name() string
	Sync() error
	Close() error
}

// System abstracts the filesystem operations of the coordinator.
type System interface {
	MkdirAll(path string, perm os.FileMode) error
	Remove(name string) error
	RemoveAll(path string) error
	Rename(oldpath string, newpath string) error
	CreateTemp(dir string, pattern string) (File, error)
	OpenFile(name string, flag int, perm os.FileMode) (File, error)
	ReadFile(name string) ([]byte, error)
}

// RealSystem implements System using the OS filesystem.
type RealSystem struct{}

// MkdirAll creates a directory path and any missing parents.
func (RealSystem) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

// Remove deletes a file or empty directory.
func (RealSystem) Remove(name string) error {
	return os.Remove(name)
}

// RemoveAll deletes a path and its children.
func (RealSystem) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

// Rename renames a file.
func (RealSystem) Rename(oldpath string, newpath string) error {
	return os.Rename(oldpath, newpath)
}

// CreateTemp creates a new temporary file.
func (RealSystem) CreateTemp(dir string, pattern string) (File, error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// OpenFile opens a file with the given flags.
func (RealSystem) OpenFile(name string, flag int, perm os.FileMode) (File, error) {
	f, err := os.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// ReadFile reads the named file.
func (RealSystem) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(name)
}
