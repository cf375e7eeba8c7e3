package engine

import (
	"github.com/dshills/wgrep/internal/engine/commit"
	"github.com/dshills/wgrep/internal/engine/grammar"
	"github.com/dshills/wgrep/internal/logging"
	"github.com/dshills/wgrep/internal/project/filestore"
)

// Option configures a Session during creation.
type Option func(*Session)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// WithParser sets the header grammar. The default grammar is used otherwise.
func WithParser(p *grammar.Parser) Option {
	return func(s *Session) {
		s.parser = p
	}
}

// WithProtected sets whether headers start out read-only. Default true.
func WithProtected(on bool) Option {
	return func(s *Session) {
		s.protected = on
	}
}

// WithLocator sets how source documents are found.
func WithLocator(loc commit.Locator) Option {
	return func(s *Session) {
		s.locator = loc
	}
}

// WithSaver sets what saves touched documents on Exit.
func WithSaver(saver Saver) Option {
	return func(s *Session) {
		s.saver = saver
	}
}

// WithStore resolves source documents through store and saves them with
// it. Relative paths are joined to baseDir; read-only files are refused
// unless allowReadOnly is set, in which case they are also written on save.
// The session follows saves, reloads and closes made through the store.
func WithStore(store *filestore.FileStore, baseDir string, allowReadOnly bool) Option {
	return func(s *Session) {
		s.locator = NewStoreLocator(store, baseDir, allowReadOnly)
		s.saver = store
		if allowReadOnly {
			s.saver = overwriter{store}
		}
		s.store = store
	}
}
