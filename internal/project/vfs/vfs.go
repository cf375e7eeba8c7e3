// Package vfs is the storage layer source documents are read from and
// saved to.
//
// OSFS talks to the operating system; MemFS keeps everything in memory and
// backs the tests. Both report missing files with fs.ErrNotExist so callers
// can tell "gone" apart from other failures with errors.Is.
package vfs

import (
	"io/fs"
	"time"
)

// VFS is the file system abstraction used by the document store.
type VFS interface {
	// ReadFile reads the entire file content.
	ReadFile(path string) ([]byte, error)

	// Stat returns file information.
	Stat(path string) (FileInfo, error)

	// WriteFile replaces the content of a file, creating it if necessary.
	// The mode of an existing file is kept.
	WriteFile(path string, data []byte, perm fs.FileMode) error

	// Abs returns the absolute, cleaned form of path.
	Abs(path string) (string, error)

	// Join joins path elements.
	Join(elem ...string) string

	// Dir returns the directory portion of a path.
	Dir(path string) string

	// IsAbs reports whether path is absolute.
	IsAbs(path string) bool

	// Exists returns true if the path exists.
	Exists(path string) bool

	// Chmod changes the mode of a file.
	Chmod(path string, mode fs.FileMode) error
}

// FileInfo describes a file.
type FileInfo struct {
	path    string
	size    int64
	mode    fs.FileMode
	modTime time.Time
}

// NewFileInfo creates a FileInfo.
func NewFileInfo(path string, size int64, mode fs.FileMode, modTime time.Time) FileInfo {
	return FileInfo{path: path, size: size, mode: mode, modTime: modTime}
}

// Path returns the full path.
func (fi FileInfo) Path() string { return fi.path }

// Size returns the file size in bytes.
func (fi FileInfo) Size() int64 { return fi.size }

// Mode returns the file mode.
func (fi FileInfo) Mode() fs.FileMode { return fi.mode }

// ModTime returns the modification time.
func (fi FileInfo) ModTime() time.Time { return fi.modTime }

// IsDir returns true if this is a directory.
func (fi FileInfo) IsDir() bool { return fi.mode.IsDir() }

// Writable reports whether the owner write bit is set.
func (fi FileInfo) Writable() bool { return fi.mode.Perm()&0o200 != 0 }
