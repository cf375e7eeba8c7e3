package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/dshills/wgrep/internal/engine/commit"
	perrors "github.com/dshills/wgrep/internal/project/errors"
	"github.com/dshills/wgrep/internal/project/filestore"
)

// StoreLocator resolves result paths to documents of a FileStore.
type StoreLocator struct {
	store         *filestore.FileStore
	baseDir       string
	allowReadOnly bool
}

var _ commit.Locator = (*StoreLocator)(nil)

// NewStoreLocator creates a locator over store. Relative paths are joined
// to baseDir when it is set.
func NewStoreLocator(store *filestore.FileStore, baseDir string, allowReadOnly bool) *StoreLocator {
	return &StoreLocator{store: store, baseDir: baseDir, allowReadOnly: allowReadOnly}
}

// Path returns the path path is opened at.
func (l *StoreLocator) Path(path string) string {
	fsys := l.store.VFS()
	if l.baseDir == "" || fsys.IsAbs(path) {
		return path
	}
	return fsys.Join(l.baseDir, path)
}

// Resolve opens the document of path.
func (l *StoreLocator) Resolve(ctx context.Context, path string) (commit.Document, error) {
	doc, err := l.store.Open(ctx, l.Path(path))
	if err != nil {
		if perrors.IsNotFound(err) || errors.Is(err, perrors.ErrIsDirectory) {
			return nil, fmt.Errorf("%w: %s", commit.ErrTargetNotFound, path)
		}
		return nil, err
	}
	if doc.ReadOnly() && !l.allowReadOnly {
		return nil, fmt.Errorf("%w: %s", commit.ErrTargetNotWritable, path)
	}
	return sourceDocument{doc}, nil
}

// sourceDocument adapts a filestore document to commit.Document.
type sourceDocument struct {
	*filestore.Document
}

func (d sourceDocument) MarkLine(line int) commit.Mark {
	if m := d.Document.MarkLine(line); m != nil {
		return m
	}
	return nil
}

// overwriter saves documents of read-only files too.
type overwriter struct {
	store *filestore.FileStore
}

func (o overwriter) Save(ctx context.Context, path string) error {
	return o.store.Overwrite(ctx, path)
}
