package engine

import "errors"

// Errors returned by session operations.
var (
	// ErrClosed indicates the session was closed.
	ErrClosed = errors.New("session is closed")

	// ErrBusy indicates a commit is in progress.
	ErrBusy = errors.New("session is committing")

	// ErrNoResultLine indicates the line is not a live result line.
	ErrNoResultLine = errors.New("not a result line")

	// ErrNoPendingEdit indicates the result line has no pending change.
	ErrNoPendingEdit = errors.New("no pending change on line")

	// ErrNoLocator indicates a session was created without a way to find
	// source documents.
	ErrNoLocator = errors.New("no source locator configured")
)
