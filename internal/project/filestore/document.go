// Package filestore keeps the source documents result lines are committed
// to.
//
// A FileStore opens each file at most once and hands out the same Document
// to every caller, so two edit sessions touching the same file see each
// other's commits. Documents hold their text in a line buffer with the byte
// order mark removed and line endings normalized; both are restored on save.
package filestore

import (
	"sort"
	"sync"
	"time"

	"github.com/dshills/wgrep/internal/engine/buffer"
	"github.com/dshills/wgrep/internal/project/vfs"
)

// Document is an open source file.
type Document struct {
	mu sync.RWMutex

	path       string
	buf        *buffer.Buffer
	original   string // text when opened or last saved
	encoding   vfs.Encoding
	lineEnding vfs.LineEnding

	version     int64
	openedAt    time.Time
	diskModTime time.Time
	readOnly    bool
	closed      bool

	// changed pins the lines modified by commits until the next save.
	changed []*buffer.Mark
}

// NewDocument creates a Document from raw file content.
func NewDocument(path string, content []byte, diskModTime time.Time) *Document {
	info := vfs.DetectEncodingInfo(content)
	text := decodeText(content, info.Encoding)

	return &Document{
		path:        path,
		buf:         buffer.NewBufferFromString(text),
		original:    text,
		encoding:    info.Encoding,
		lineEnding:  info.LineEnding,
		version:     1,
		openedAt:    time.Now(),
		diskModTime: diskModTime,
	}
}

// Path returns the absolute path of the file.
func (d *Document) Path() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.path
}

// Encoding returns the detected encoding.
func (d *Document) Encoding() vfs.Encoding {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.encoding
}

// LineEnding returns the detected line ending style.
func (d *Document) LineEnding() vfs.LineEnding {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lineEnding
}

// HasByteOrderMark reports whether the file is saved with a byte order mark.
func (d *Document) HasByteOrderMark() bool {
	return d.Encoding().HasBOM()
}

// ReadOnly reports whether the document refuses to be saved.
func (d *Document) ReadOnly() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.readOnly
}

// SetReadOnly marks the document read-only.
func (d *Document) SetReadOnly(ro bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.readOnly = ro
}

// Version is incremented by every modification.
func (d *Document) Version() int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.version
}

// IsClosed reports whether the document was closed.
func (d *Document) IsClosed() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.closed
}

// IsDirty reports unsaved changes.
func (d *Document) IsDirty() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.buf.Text() != d.original
}

// Text returns the current content (LF line endings, no byte order mark).
func (d *Document) Text() string {
	return d.buf.Text()
}

// LineCount returns the number of lines. Text ending in a newline has an
// empty final line.
func (d *Document) LineCount() int {
	return d.buf.LineCount()
}

// LineText returns the text of a 0-based line.
func (d *Document) LineText(line int) string {
	return d.buf.LineText(line)
}

// ReplaceLine replaces the content of a 0-based line.
func (d *Document) ReplaceLine(line int, text string) error {
	if err := d.buf.ReplaceLine(line, text); err != nil {
		return err
	}
	d.touch()
	return nil
}

// DeleteLine removes a 0-based line with its terminator.
func (d *Document) DeleteLine(line int) error {
	if err := d.buf.DeleteLine(line); err != nil {
		return err
	}
	d.touch()
	return nil
}

func (d *Document) touch() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.version++
}

// MarkLine pins the start of a 0-based line. Returns nil if the line does
// not exist.
func (d *Document) MarkLine(line int) *buffer.Mark {
	return d.buf.MarkLine(line)
}

// MarkChanged flags a line as modified. The flag follows the line across
// later edits and is cleared by a save.
func (d *Document) MarkChanged(line int) {
	m := d.buf.MarkLine(line)
	if m == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.changed = append(d.changed, m)
}

// ChangedLines returns the 0-based lines flagged by MarkChanged, ascending
// and without duplicates.
func (d *Document) ChangedLines() []int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	seen := make(map[int]bool)
	var lines []int
	for _, m := range d.changed {
		p := d.buf.OffsetToPoint(m.Offset())
		if !seen[p.Line] {
			seen[p.Line] = true
			lines = append(lines, p.Line)
		}
	}
	sort.Ints(lines)
	return lines
}

// ContentForSave returns the bytes to write: the text converted back to the
// file's encoding, with its original line endings and byte order mark.
func (d *Document) ContentForSave() ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	text := vfs.ApplyLineEnding([]byte(d.buf.Text()), d.lineEnding)
	content, err := vfs.Encode(text, d.encoding)
	if err != nil {
		return nil, err
	}
	return vfs.AddBOM(content, d.encoding), nil
}

func decodeText(content []byte, enc vfs.Encoding) string {
	body, _ := vfs.StripBOM(content)
	if data, err := vfs.Decode(body, enc); err == nil {
		body = data
	}
	return buffer.NormalizeLineEndings(string(body))
}

// markSaved records a successful save and clears the change markers.
func (d *Document) markSaved(diskModTime time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.original = d.buf.Text()
	d.diskModTime = diskModTime
	d.clearChangedLocked()
}

// ClearChanged removes every change marker.
func (d *Document) ClearChanged() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clearChangedLocked()
}

func (d *Document) clearChangedLocked() {
	for _, m := range d.changed {
		m.Release()
	}
	d.changed = nil
}

func (d *Document) markClosed() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
}

// HasExternalChanges reports whether the file on disk is newer than the
// document.
func (d *Document) HasExternalChanges(currentDiskModTime time.Time) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return !currentDiskModTime.Equal(d.diskModTime)
}

// Reload replaces the content with content read from disk. Returns true if
// the text changed. Marks collapse to the start of the document, so marks
// held across a reload go stale.
func (d *Document) Reload(content []byte, diskModTime time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	info := vfs.DetectEncodingInfo(content)
	text := decodeText(content, info.Encoding)
	d.diskModTime = diskModTime
	if text == d.buf.Text() {
		return false
	}

	d.buf.SetText(text)
	d.original = text
	d.version++
	d.encoding = info.Encoding
	d.lineEnding = info.LineEnding
	d.clearChangedLocked()
	return true
}
