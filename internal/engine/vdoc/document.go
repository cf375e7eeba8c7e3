package vdoc

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/dshills/wgrep/internal/engine/buffer"
	"github.com/dshills/wgrep/internal/engine/grammar"
)

// Errors returned by Document mutations.
var (
	ErrReadOnly   = errors.New("text is read-only")
	ErrMultiLine  = errors.New("edit would span lines")
	ErrOutOfRange = errors.New("position out of range")
)

// ResultLine is a line of the document that refers to one line of a source
// file.
type ResultLine struct {
	Path    string // path as printed by the search tool
	Number  int    // 1-based line number in the source file
	Context bool   // context line rather than match line

	// HeaderLen is the byte length of the header currently in the document.
	HeaderLen int

	// OrigHeader is the header text when the document was loaded. It stays
	// fixed across renumbering and keys the shadow snapshot.
	OrigHeader string

	// Orphaned is set once the source line was deleted by a commit.
	// Orphaned lines take no further edits.
	Orphaned bool

	header string
}

// HeaderText returns the header currently in the document.
func (r *ResultLine) HeaderText() string {
	return r.header
}

// String returns "path:number".
func (r *ResultLine) String() string {
	return r.Path + ":" + strconv.Itoa(r.Number)
}

// Shadow is the original content a Document was loaded from.
type Shadow interface {
	OldTextFor(header string) (string, bool)
}

// Change describes the effect of a mutation.
type Change struct {
	// Lines bounds the document lines touched, after the mutation.
	Lines buffer.LineRange

	// Affected are the result lines within Lines, in document order.
	Affected []*ResultLine

	// Removed are the result lines no longer in the document.
	Removed []*ResultLine
}

// Option configures a Document.
type Option func(*Document)

// WithProtected sets whether headers and decoration are read-only.
// Protection is on by default.
func WithProtected(on bool) Option {
	return func(d *Document) {
		d.protected = on
	}
}

// Document is the editable view of search output.
// All methods are thread-safe.
type Document struct {
	mu        sync.RWMutex
	buf       *buffer.Buffer
	tags      []*ResultLine // parallel to buffer lines, nil for decoration
	parser    *grammar.Parser
	protected bool
	shadow    Shadow

	// removedAt remembers where detached result lines used to be.
	removedAt map[*ResultLine]int

	// detached holds result lines whose header was edited away. Typing the
	// header back re-attaches them.
	detached map[*ResultLine]bool
}

// New creates a document from search output. Merged context windows are
// normalized before the lines are tagged.
func New(text string, parser *grammar.Parser, opts ...Option) *Document {
	if parser == nil {
		parser = grammar.Default()
	}
	d := &Document{
		buf:       buffer.NewBuffer(),
		parser:    parser,
		protected: true,
		removedAt: make(map[*ResultLine]int),
		detached:  make(map[*ResultLine]bool),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.load(text)
	return d
}

func (d *Document) load(text string) {
	lines := d.parser.Scan(strings.Split(buffer.NormalizeLineEndings(text), "\n"))

	texts := make([]string, len(lines))
	d.tags = make([]*ResultLine, len(lines))
	for i, l := range lines {
		texts[i] = l.Text
		if l.Header == nil {
			continue
		}
		header := l.Text[:l.Header.Len]
		d.tags[i] = &ResultLine{
			Path:       l.Header.Path,
			Number:     l.Header.Number,
			Context:    l.Header.Context,
			HeaderLen:  l.Header.Len,
			OrigHeader: header,
			header:     header,
		}
	}
	d.buf.SetText(strings.Join(texts, "\n"))
	d.removedAt = make(map[*ResultLine]int)
	d.detached = make(map[*ResultLine]bool)
}

// Reset replaces the whole content and re-tags every line. Result lines
// from before the reset are detached.
func (d *Document) Reset(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.load(text)
}

// Parser returns the grammar the document was tagged with.
func (d *Document) Parser() *grammar.Parser {
	return d.parser
}

// Shadow returns the attached snapshot, or nil.
func (d *Document) Shadow() Shadow {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.shadow
}

// SetShadow attaches a snapshot. Pass nil to detach.
func (d *Document) SetShadow(s Shadow) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.shadow = s
}

// Protected reports whether headers and decoration are read-only.
func (d *Document) Protected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.protected
}

// SetProtected switches header protection.
func (d *Document) SetProtected(on bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.protected = on
}

// Text returns the full content.
func (d *Document) Text() string {
	return d.buf.Text()
}

// Revision changes with every mutation of the content.
func (d *Document) Revision() buffer.RevisionID {
	return d.buf.RevisionID()
}

// Len returns the content length in bytes.
func (d *Document) Len() buffer.ByteOffset {
	return d.buf.Len()
}

// Lines returns a copy of all lines.
func (d *Document) Lines() []string {
	return d.buf.Lines()
}

// LineCount returns the number of lines.
func (d *Document) LineCount() int {
	return d.buf.LineCount()
}

// LineText returns the text of line i.
func (d *Document) LineText(i int) string {
	return d.buf.LineText(i)
}

// LineStartOffset returns the offset of the start of line i.
func (d *Document) LineStartOffset(i int) buffer.ByteOffset {
	return d.buf.LineStartOffset(i)
}

// OffsetToPoint converts an offset to line/column.
func (d *Document) OffsetToPoint(off buffer.ByteOffset) buffer.Point {
	return d.buf.OffsetToPoint(off)
}

// Line returns the result line tagged on line i, or nil.
func (d *Document) Line(i int) *ResultLine {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if i < 0 || i >= len(d.tags) {
		return nil
	}
	return d.tags[i]
}

// ResultLines returns every result line in document order.
func (d *Document) ResultLines() []*ResultLine {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []*ResultLine
	for _, rl := range d.tags {
		if rl != nil {
			out = append(out, rl)
		}
	}
	return out
}

// IndexOf returns the line carrying rl, or -1 if rl is not in the document.
func (d *Document) IndexOf(rl *ResultLine) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.indexLocked(rl)
}

func (d *Document) indexLocked(rl *ResultLine) int {
	if rl == nil {
		return -1
	}
	for i, t := range d.tags {
		if t == rl {
			return i
		}
	}
	return -1
}

// Order returns a sort key placing rl in document order. Detached result
// lines sort at the position they were removed from.
func (d *Document) Order(rl *ResultLine) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if i := d.indexLocked(rl); i >= 0 {
		return i
	}
	if i, ok := d.removedAt[rl]; ok {
		return i
	}
	return len(d.tags)
}

// Trailing returns the editable text of rl. ok is false if rl is not in
// the document.
func (d *Document) Trailing(rl *ResultLine) (text string, ok bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	i := d.indexLocked(rl)
	if i < 0 {
		return "", false
	}
	line := d.buf.LineText(i)
	if rl.HeaderLen > len(line) {
		return "", true
	}
	return line[rl.HeaderLen:], true
}

// EditableRange returns the byte range of rl's editable text.
func (d *Document) EditableRange(rl *ResultLine) (buffer.Range, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	i := d.indexLocked(rl)
	if i < 0 {
		return buffer.Range{}, ErrOutOfRange
	}
	start := d.buf.LineStartOffset(i)
	return buffer.NewRange(start+buffer.ByteOffset(rl.HeaderLen), d.buf.LineEndOffset(i)), nil
}

// Apply is the single entry point for user mutations. In protected mode
// only the editable text of one live result line may change and no line
// terminator may be inserted. In unprotected mode anything goes; afterwards
// every touched line is matched back to its result line by header, and
// result lines whose header vanished are reported as removed. A line that
// regains the header of a removed result line is matched back to it.
func (d *Document) Apply(edit buffer.Edit) (Change, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if edit.Range.Start < 0 || edit.Range.Start > edit.Range.End || edit.Range.End > d.buf.Len() {
		return Change{}, fmt.Errorf("%w: %s", ErrOutOfRange, edit.Range)
	}
	start := d.buf.OffsetToPoint(edit.Range.Start)
	end := d.buf.OffsetToPoint(edit.Range.End)

	if d.protected {
		if err := d.checkProtectedLocked(start, end, edit.NewText); err != nil {
			return Change{}, err
		}
	}

	res, err := d.buf.ApplyEdit(edit)
	if err != nil {
		return Change{}, fmt.Errorf("%w: %v", ErrOutOfRange, err)
	}
	return d.retagLocked(start.Line, end.Line, res.FirstLine, res.LastLine), nil
}

func (d *Document) checkProtectedLocked(start, end buffer.Point, text string) error {
	if start.Line != end.Line {
		return ErrMultiLine
	}
	if strings.ContainsAny(text, "\r\n") {
		return ErrMultiLine
	}
	rl := d.tags[start.Line]
	if rl == nil || rl.Orphaned || start.Column < rl.HeaderLen {
		return ErrReadOnly
	}
	return nil
}

// retagLocked replaces the tags of old lines [oldFirst, oldLast] with tags
// for the new lines [newFirst, newLast].
func (d *Document) retagLocked(oldFirst, oldLast, newFirst, newLast int) Change {
	old := make([]*ResultLine, oldLast-oldFirst+1)
	copy(old, d.tags[oldFirst:oldLast+1])

	used := make(map[*ResultLine]bool, len(old))
	fresh := make([]*ResultLine, newLast-newFirst+1)
	for k := range fresh {
		text := d.buf.LineText(newFirst + k)
		for _, rl := range old {
			if rl == nil || used[rl] {
				continue
			}
			if strings.HasPrefix(text, rl.header) {
				fresh[k] = rl
				used[rl] = true
				break
			}
		}
		if fresh[k] == nil {
			if rl := d.reattachLocked(text); rl != nil {
				fresh[k] = rl
			}
		}
	}

	tags := make([]*ResultLine, 0, len(d.tags)-len(old)+len(fresh))
	tags = append(tags, d.tags[:oldFirst]...)
	tags = append(tags, fresh...)
	tags = append(tags, d.tags[oldLast+1:]...)
	d.tags = tags

	change := Change{Lines: buffer.LineRange{First: newFirst, Last: newLast}}
	for _, rl := range fresh {
		if rl != nil {
			change.Affected = append(change.Affected, rl)
		}
	}
	for _, rl := range old {
		if rl != nil && !used[rl] {
			d.removedAt[rl] = oldFirst
			d.detached[rl] = true
			change.Removed = append(change.Removed, rl)
		}
	}
	return change
}

// reattachLocked returns the detached result line whose header starts
// text, preferring the one removed earliest in the document.
func (d *Document) reattachLocked(text string) *ResultLine {
	var best *ResultLine
	for rl := range d.detached {
		if rl.Orphaned || !strings.HasPrefix(text, rl.header) {
			continue
		}
		if best == nil || d.removedAt[rl] < d.removedAt[best] {
			best = rl
		}
	}
	if best != nil {
		delete(d.detached, best)
		delete(d.removedAt, best)
	}
	return best
}

// SetTrailing replaces the editable text of rl regardless of protection.
func (d *Document) SetTrailing(rl *ResultLine, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	i := d.indexLocked(rl)
	if i < 0 {
		return ErrOutOfRange
	}
	if strings.ContainsAny(text, "\r\n") {
		return ErrMultiLine
	}
	return d.buf.ReplaceLine(i, rl.header+text)
}

// RemoveLine deletes the line carrying rl regardless of protection.
func (d *Document) RemoveLine(rl *ResultLine) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	i := d.indexLocked(rl)
	if i < 0 {
		return ErrOutOfRange
	}
	if err := d.buf.DeleteLine(i); err != nil {
		return err
	}
	if len(d.tags) == 1 {
		d.tags[0] = nil
	} else {
		d.tags = append(d.tags[:i], d.tags[i+1:]...)
	}
	d.removedAt[rl] = i
	delete(d.detached, rl)
	return nil
}

// Renumber rewrites the line number in rl's header, keeping the path, the
// separators, and the editable text.
func (d *Document) Renumber(rl *ResultLine, number int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	i := d.indexLocked(rl)
	if i < 0 {
		return ErrOutOfRange
	}

	header := rl.header
	digits := len(rl.Path) + 1
	j := digits
	for j < len(header) && header[j] >= '0' && header[j] <= '9' {
		j++
	}
	if j == digits {
		return fmt.Errorf("%w: header %q has no line number", ErrOutOfRange, header)
	}
	newHeader := header[:digits] + strconv.Itoa(number) + header[j:]

	start := d.buf.LineStartOffset(i)
	if _, err := d.buf.Replace(start, start+buffer.ByteOffset(len(header)), newHeader); err != nil {
		return err
	}
	rl.header = newHeader
	rl.HeaderLen = len(newHeader)
	rl.Number = number
	return nil
}
