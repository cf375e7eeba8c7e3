// Package errors defines the errors shared by the project storage packages.
package errors

import (
	"errors"
	"fmt"
)

// Standard errors returned by the storage packages.
var (
	ErrNotFound        = errors.New("not found")
	ErrIsDirectory     = errors.New("path is a directory")
	ErrReadOnly        = errors.New("file is read-only")
	ErrFileTooLarge    = errors.New("file too large")
	ErrBinaryFile      = errors.New("binary file")
	ErrDocumentNotOpen = errors.New("document not open")
	ErrDocumentDirty   = errors.New("document has unsaved changes")
	ErrWatcherFailed   = errors.New("file watcher failed")
)

// PathError represents an error associated with a file path.
type PathError struct {
	Op   string // operation that failed (open, save, reload, ...)
	Path string
	Err  error
}

// Error implements the error interface.
func (e *PathError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *PathError) Unwrap() error {
	return e.Err
}

// NewPathError creates a new PathError.
func NewPathError(op, path string, err error) *PathError {
	return &PathError{Op: op, Path: path, Err: err}
}

// IsNotFound returns true if the error indicates a file was not found.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDirty returns true if the error indicates a document has unsaved changes.
func IsDirty(err error) bool {
	return errors.Is(err, ErrDocumentDirty)
}
