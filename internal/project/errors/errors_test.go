package errors

import (
	"errors"
	"testing"
)

func TestPathError(t *testing.T) {
	err := &PathError{
		Op:   "open",
		Path: "/test/file.txt",
		Err:  ErrNotFound,
	}

	if got := err.Error(); got != "open /test/file.txt: not found" {
		t.Errorf("Error() = %q, want 'open /test/file.txt: not found'", got)
	}
	if err.Unwrap() != ErrNotFound {
		t.Error("Unwrap() should return underlying error")
	}
}

func TestNewPathError(t *testing.T) {
	err := NewPathError("save", "/test.txt", ErrReadOnly)
	if err.Op != "save" || err.Path != "/test.txt" || err.Err != ErrReadOnly {
		t.Errorf("NewPathError = %+v", err)
	}
}

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(ErrNotFound) {
		t.Error("IsNotFound(ErrNotFound) should be true")
	}
	if !IsNotFound(NewPathError("open", "/test", ErrNotFound)) {
		t.Error("IsNotFound should work with wrapped errors")
	}
	if IsNotFound(ErrReadOnly) {
		t.Error("IsNotFound(ErrReadOnly) should be false")
	}
}

func TestIsDirty(t *testing.T) {
	if !IsDirty(NewPathError("reload", "/a", ErrDocumentDirty)) {
		t.Error("IsDirty should see through PathError")
	}
	if IsDirty(ErrNotFound) {
		t.Error("IsDirty(ErrNotFound) should be false")
	}
}

func TestErrorsAreDistinct(t *testing.T) {
	all := []error{
		ErrNotFound,
		ErrIsDirectory,
		ErrReadOnly,
		ErrFileTooLarge,
		ErrBinaryFile,
		ErrDocumentNotOpen,
		ErrDocumentDirty,
		ErrWatcherFailed,
	}
	for i, a := range all {
		for j, b := range all {
			if i != j && errors.Is(a, b) {
				t.Errorf("Error %d and %d should be distinct", i, j)
			}
		}
	}
}
