package filestore

import (
	"context"
	"errors"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/wgrep/internal/logging"
	perrors "github.com/dshills/wgrep/internal/project/errors"
)

// ErrWatcherRunning is returned by Start on a running watcher.
var ErrWatcherRunning = errors.New("watcher already running")

// Watcher keeps open documents in step with their files.
//
// A clean document whose file changes is reloaded. A dirty one is left
// alone and reported as a conflict. Start drives the check from fsnotify
// events on the directories of open documents; CheckNow runs it directly.
type Watcher struct {
	mu    sync.Mutex
	store *FileStore
	log   *logging.Logger

	fsw     *fsnotify.Watcher
	dirs    map[string]bool
	running bool
	stop    chan struct{}
	done    chan struct{}

	onExternalChange []func(doc *Document)
	onConflict       []func(doc *Document)
}

// NewWatcher creates a watcher for the documents of store.
func NewWatcher(store *FileStore, log *logging.Logger) *Watcher {
	if log == nil {
		log = logging.Nop()
	}
	w := &Watcher{
		store: store,
		log:   log.WithComponent("watcher"),
		dirs:  make(map[string]bool),
	}
	store.OnOpen(func(doc *Document) {
		w.watchDir(doc.Path())
	})
	return w
}

// Start begins watching the directories of every open document and of
// every document opened later.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return ErrWatcherRunning
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return perrors.NewPathError("watch", "", errors.Join(perrors.ErrWatcherFailed, err))
	}

	w.fsw = fsw
	w.dirs = make(map[string]bool)
	w.running = true
	w.stop = make(chan struct{})
	w.done = make(chan struct{})

	for _, doc := range w.store.OpenDocuments() {
		w.addDirLocked(doc.Path())
	}

	go w.loop(fsw, w.stop, w.done)
	return nil
}

// Stop stops watching. It is a no-op on a stopped watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	close(w.stop)
	done, fsw := w.done, w.fsw
	w.fsw = nil
	w.mu.Unlock()

	<-done
	return fsw.Close()
}

// IsRunning returns true if the watcher is running.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// WatchedDirs returns the number of directories being watched.
func (w *Watcher) WatchedDirs() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.dirs)
}

func (w *Watcher) watchDir(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		w.addDirLocked(path)
	}
}

func (w *Watcher) addDirLocked(path string) {
	dir := w.store.VFS().Dir(path)
	if w.dirs[dir] {
		return
	}
	if err := w.fsw.Add(dir); err != nil {
		w.log.Warn("cannot watch %s: %v", dir, err)
		return
	}
	w.dirs[dir] = true
}

func (w *Watcher) loop(fsw *fsnotify.Watcher, stop, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-stop:
			return

		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Rename) {
				continue
			}
			if !w.store.IsOpen(ev.Name) {
				continue
			}
			w.log.Debug("%s changed on disk (%s)", ev.Name, ev.Op)
			w.CheckNow(context.Background())

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.log.Error("watch error: %v", err)
		}
	}
}

// CheckNow compares every open document against its file. Clean documents
// that changed are reloaded; dirty ones go to the conflict handlers. It
// returns the documents that changed on disk.
func (w *Watcher) CheckNow(ctx context.Context) []*Document {
	changed := w.store.CheckExternalChanges()

	w.mu.Lock()
	externalHandlers := make([]func(*Document), len(w.onExternalChange))
	copy(externalHandlers, w.onExternalChange)
	conflictHandlers := make([]func(*Document), len(w.onConflict))
	copy(conflictHandlers, w.onConflict)
	w.mu.Unlock()

	for _, doc := range changed {
		if doc.IsDirty() {
			w.log.Warn("%s changed on disk and has unsaved commits", doc.Path())
			for _, h := range conflictHandlers {
				h(doc)
			}
			continue
		}
		if err := w.store.Reload(ctx, doc.Path(), false); err != nil {
			w.log.Error("reload %s: %v", doc.Path(), err)
			continue
		}
		for _, h := range externalHandlers {
			h(doc)
		}
	}
	return changed
}

// OnExternalChange registers a handler called after a clean document was
// reloaded from disk.
func (w *Watcher) OnExternalChange(handler func(doc *Document)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onExternalChange = append(w.onExternalChange, handler)
}

// OnConflict registers a handler called when a dirty document changed on
// disk.
func (w *Watcher) OnConflict(handler func(doc *Document)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onConflict = append(w.onConflict, handler)
}
