package filestore

import (
	"context"
	"errors"
	"io/fs"
	"sort"
	"sync"
	"time"

	"github.com/dshills/wgrep/internal/logging"
	perrors "github.com/dshills/wgrep/internal/project/errors"
	"github.com/dshills/wgrep/internal/project/vfs"
)

// DefaultMaxFileSize is the largest file Open accepts by default.
const DefaultMaxFileSize = 10 * 1024 * 1024

// FileStore manages open documents.
// It provides thread-safe access to documents and tracks their state.
type FileStore struct {
	mu        sync.RWMutex
	documents map[string]*Document
	vfs       vfs.VFS
	log       *logging.Logger

	maxFileSize int64 // 0 = unlimited

	onOpen   []func(doc *Document)
	onClose  []func(path string)
	onSave   []func(doc *Document)
	onReload []func(doc *Document)
}

// Option configures a FileStore.
type Option func(*FileStore)

// WithMaxFileSize sets the maximum file size.
func WithMaxFileSize(size int64) Option {
	return func(s *FileStore) {
		s.maxFileSize = size
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *FileStore) {
		if l != nil {
			s.log = l.WithComponent("filestore")
		}
	}
}

// NewFileStore creates a FileStore on top of fsys.
func NewFileStore(fsys vfs.VFS, opts ...Option) *FileStore {
	s := &FileStore{
		documents:   make(map[string]*Document),
		vfs:         fsys,
		log:         logging.Nop(),
		maxFileSize: DefaultMaxFileSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// VFS returns the file system the store reads from.
func (s *FileStore) VFS() vfs.VFS {
	return s.vfs
}

// Open returns the document for path, reading it from storage if it is not
// open yet. Files without the owner write bit open read-only. A missing
// file fails with an error matching ErrNotFound.
func (s *FileStore) Open(ctx context.Context, path string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	absPath, err := s.vfs.Abs(path)
	if err != nil {
		return nil, perrors.NewPathError("open", path, err)
	}

	s.mu.RLock()
	if doc, ok := s.documents[absPath]; ok {
		s.mu.RUnlock()
		return doc, nil
	}
	s.mu.RUnlock()

	info, err := s.vfs.Stat(absPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = perrors.ErrNotFound
		}
		return nil, perrors.NewPathError("open", path, err)
	}
	if info.IsDir() {
		return nil, perrors.NewPathError("open", path, perrors.ErrIsDirectory)
	}
	if s.maxFileSize > 0 && info.Size() > s.maxFileSize {
		return nil, perrors.NewPathError("open", path, perrors.ErrFileTooLarge)
	}

	content, err := s.vfs.ReadFile(absPath)
	if err != nil {
		return nil, perrors.NewPathError("open", path, err)
	}
	if vfs.DetectEncodingInfo(content).IsBinary {
		return nil, perrors.NewPathError("open", path, perrors.ErrBinaryFile)
	}

	doc := NewDocument(absPath, content, info.ModTime())
	doc.readOnly = !info.Writable()

	s.mu.Lock()
	if existing, ok := s.documents[absPath]; ok {
		s.mu.Unlock()
		return existing, nil
	}
	s.documents[absPath] = doc
	handlers := make([]func(*Document), len(s.onOpen))
	copy(handlers, s.onOpen)
	s.mu.Unlock()

	s.log.Debug("opened %s (%s, %s, read-only=%v)", absPath, doc.encoding, doc.lineEnding, doc.readOnly)
	for _, h := range handlers {
		h(doc)
	}
	return doc, nil
}

// Get returns a document by path if it is open.
func (s *FileStore) Get(path string) (*Document, bool) {
	absPath, err := s.vfs.Abs(path)
	if err != nil {
		return nil, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[absPath]
	return doc, ok
}

// IsOpen returns true if the file is open.
func (s *FileStore) IsOpen(path string) bool {
	_, ok := s.Get(path)
	return ok
}

// OpenDocuments returns all open documents sorted by path.
func (s *FileStore) OpenDocuments() []*Document {
	s.mu.RLock()
	docs := make([]*Document, 0, len(s.documents))
	for _, doc := range s.documents {
		docs = append(docs, doc)
	}
	s.mu.RUnlock()

	sort.Slice(docs, func(i, j int) bool { return docs[i].Path() < docs[j].Path() })
	return docs
}

// DirtyDocuments returns all documents with unsaved changes, sorted by path.
func (s *FileStore) DirtyDocuments() []*Document {
	var dirty []*Document
	for _, doc := range s.OpenDocuments() {
		if doc.IsDirty() {
			dirty = append(dirty, doc)
		}
	}
	return dirty
}

// Count returns the number of open documents.
func (s *FileStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.documents)
}

// Save writes a document to storage and clears its change markers.
// Documents of read-only files are refused with ErrReadOnly.
func (s *FileStore) Save(ctx context.Context, path string) error {
	return s.save(ctx, path, false)
}

// Overwrite saves like Save but also writes documents of read-only files.
// The owner write bit is set for the write and the file mode put back after.
func (s *FileStore) Overwrite(ctx context.Context, path string) error {
	return s.save(ctx, path, true)
}

func (s *FileStore) save(ctx context.Context, path string, overwrite bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	doc, ok := s.Get(path)
	if !ok {
		return perrors.NewPathError("save", path, perrors.ErrDocumentNotOpen)
	}
	if doc.ReadOnly() && !overwrite {
		return perrors.NewPathError("save", path, perrors.ErrReadOnly)
	}

	absPath := doc.Path()
	content, err := doc.ContentForSave()
	if err != nil {
		return perrors.NewPathError("save", path, err)
	}
	if err := s.write(absPath, content, doc.ReadOnly()); err != nil {
		return perrors.NewPathError("save", path, err)
	}

	modTime := time.Now()
	if info, err := s.vfs.Stat(absPath); err == nil {
		modTime = info.ModTime()
	}
	doc.markSaved(modTime)
	s.log.Info("saved %s", absPath)

	s.mu.RLock()
	handlers := make([]func(*Document), len(s.onSave))
	copy(handlers, s.onSave)
	s.mu.RUnlock()
	for _, h := range handlers {
		h(doc)
	}
	return nil
}

func (s *FileStore) write(path string, content []byte, readOnly bool) error {
	if !readOnly {
		return s.vfs.WriteFile(path, content, 0o644)
	}
	info, err := s.vfs.Stat(path)
	if err != nil {
		return err
	}
	mode := info.Mode().Perm()
	if err := s.vfs.Chmod(path, mode|0o200); err != nil {
		return err
	}
	werr := s.vfs.WriteFile(path, content, mode)
	if err := s.vfs.Chmod(path, mode); err != nil && werr == nil {
		werr = err
	}
	s.log.Warn("wrote read-only file %s", path)
	return werr
}

// Reload rereads a document from storage. Dirty documents are only
// reloaded when force is set.
func (s *FileStore) Reload(ctx context.Context, path string, force bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	doc, ok := s.Get(path)
	if !ok {
		return perrors.NewPathError("reload", path, perrors.ErrDocumentNotOpen)
	}
	if !force && doc.IsDirty() {
		return perrors.NewPathError("reload", path, perrors.ErrDocumentDirty)
	}

	absPath := doc.Path()
	content, err := s.vfs.ReadFile(absPath)
	if err != nil {
		return perrors.NewPathError("reload", path, err)
	}
	info, err := s.vfs.Stat(absPath)
	if err != nil {
		return perrors.NewPathError("reload", path, err)
	}
	doc.SetReadOnly(!info.Writable())

	if !doc.Reload(content, info.ModTime()) {
		return nil
	}
	s.log.Info("reloaded %s", absPath)

	s.mu.RLock()
	handlers := make([]func(*Document), len(s.onReload))
	copy(handlers, s.onReload)
	s.mu.RUnlock()
	for _, h := range handlers {
		h(doc)
	}
	return nil
}

// Close closes a document. Dirty documents are only closed when force is set.
func (s *FileStore) Close(ctx context.Context, path string, force bool) error {
	absPath, err := s.vfs.Abs(path)
	if err != nil {
		return perrors.NewPathError("close", path, err)
	}

	s.mu.Lock()
	doc, ok := s.documents[absPath]
	if !ok {
		s.mu.Unlock()
		return perrors.NewPathError("close", path, perrors.ErrDocumentNotOpen)
	}
	if !force && doc.IsDirty() {
		s.mu.Unlock()
		return perrors.NewPathError("close", path, perrors.ErrDocumentDirty)
	}
	doc.markClosed()
	delete(s.documents, absPath)
	handlers := make([]func(string), len(s.onClose))
	copy(handlers, s.onClose)
	s.mu.Unlock()

	for _, h := range handlers {
		h(absPath)
	}
	return nil
}

// CheckExternalChanges returns the open documents whose file changed on
// storage since they were read or saved.
func (s *FileStore) CheckExternalChanges() []*Document {
	var changed []*Document
	for _, doc := range s.OpenDocuments() {
		info, err := s.vfs.Stat(doc.Path())
		if err != nil {
			continue
		}
		if doc.HasExternalChanges(info.ModTime()) {
			changed = append(changed, doc)
		}
	}
	return changed
}

// OnOpen registers a handler called when a document is opened.
func (s *FileStore) OnOpen(handler func(doc *Document)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onOpen = append(s.onOpen, handler)
}

// OnClose registers a handler called when a document is closed.
func (s *FileStore) OnClose(handler func(path string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onClose = append(s.onClose, handler)
}

// OnSave registers a handler called when a document is saved.
func (s *FileStore) OnSave(handler func(doc *Document)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSave = append(s.onSave, handler)
}

// OnReload registers a handler called when a document is reloaded.
func (s *FileStore) OnReload(handler func(doc *Document)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onReload = append(s.onReload, handler)
}
