// Package shadow keeps the original content of a virtual document.
//
// A Snapshot is taken once when editing starts. It answers what a result
// line said before any edit (keyed by the line's original header) and can
// put the whole document back the way it was.
package shadow

import (
	"errors"
	"sync"

	"github.com/dshills/wgrep/internal/engine/buffer"
	"github.com/dshills/wgrep/internal/engine/vdoc"
)

// ErrRestoreUnavailable is returned when the snapshot was released.
var ErrRestoreUnavailable = errors.New("original search result is no longer available")

// Snapshot is an immutable copy of a document's initial content.
type Snapshot struct {
	mu       sync.RWMutex
	doc      *vdoc.Document
	text     string
	revision buffer.RevisionID
	index    map[string]string
	released bool
}

// Take captures doc and attaches the snapshot to it.
func Take(doc *vdoc.Document) *Snapshot {
	s := &Snapshot{
		doc:   doc,
		text:     doc.Text(),
		revision: doc.Revision(),
		index:    make(map[string]string),
	}
	for _, rl := range doc.ResultLines() {
		if _, seen := s.index[rl.OrigHeader]; seen {
			continue
		}
		text, _ := doc.Trailing(rl)
		s.index[rl.OrigHeader] = text
	}
	doc.SetShadow(s)
	return s
}

// Document returns the document the snapshot belongs to.
func (s *Snapshot) Document() *vdoc.Document {
	return s.doc
}

// Text returns the captured content.
func (s *Snapshot) Text() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.text
}

// OldTextFor returns the original editable text of the line whose header was
// header. The first occurrence wins when a header appears twice.
func (s *Snapshot) OldTextFor(header string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.released {
		return "", false
	}
	text, ok := s.index[header]
	return text, ok
}

// Restore puts the original content back into the document. The cursor is
// kept on the line with the same header when there is one, at the same
// column clamped to the line; otherwise it keeps its offset, clamped to the
// document. A document that was never changed keeps its result lines.
func (s *Snapshot) Restore(cursor buffer.ByteOffset) (buffer.ByteOffset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released || s.doc == nil {
		return cursor, ErrRestoreUnavailable
	}
	if s.doc.Revision() == s.revision {
		return s.clamp(cursor), nil
	}

	at := s.doc.OffsetToPoint(cursor)
	header := ""
	if rl := s.doc.Line(at.Line); rl != nil {
		header = rl.OrigHeader
	}

	s.doc.Reset(s.text)
	s.revision = s.doc.Revision()

	if header != "" {
		for i := 0; i < s.doc.LineCount(); i++ {
			rl := s.doc.Line(i)
			if rl == nil || rl.OrigHeader != header {
				continue
			}
			col := at.Column
			if n := len(s.doc.LineText(i)); col > n {
				col = n
			}
			return s.doc.LineStartOffset(i) + buffer.ByteOffset(col), nil
		}
	}

	return s.clamp(cursor), nil
}

func (s *Snapshot) clamp(cursor buffer.ByteOffset) buffer.ByteOffset {
	if cursor < 0 {
		return 0
	}
	if n := s.doc.Len(); cursor > n {
		return n
	}
	return cursor
}

// Release kills the snapshot. Later restores fail with ErrRestoreUnavailable
// and OldTextFor finds nothing.
func (s *Snapshot) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released {
		return
	}
	s.released = true
	s.index = nil
	s.text = ""
	if s.doc != nil && s.doc.Shadow() == s {
		s.doc.SetShadow(nil)
	}
}

// Released reports whether Release was called.
func (s *Snapshot) Released() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.released
}
