package buffer

import (
	"errors"
	"strings"
	"sync"
)

// Errors returned by buffer operations.
var (
	ErrOffsetOutOfRange = errors.New("offset out of range")
	ErrRangeInvalid     = errors.New("invalid range")
	ErrLineOutOfRange   = errors.New("line out of range")
)

// Buffer holds text as a slice of lines. Lines never contain a line
// terminator; the text of the buffer is the lines joined with "\n", so a
// trailing newline shows up as a final empty line.
// All methods are thread-safe.
type Buffer struct {
	mu         sync.RWMutex
	lines      []string
	starts     []ByteOffset // cached line start offsets, nil when stale
	revisionID RevisionID
	marks      map[*Mark]struct{}
}

// NewBuffer creates a new empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{
		lines:      []string{""},
		revisionID: NewRevisionID(),
		marks:      make(map[*Mark]struct{}),
	}
}

// NewBufferFromString creates a buffer with initial content.
// CRLF and CR line endings are normalized to LF.
func NewBufferFromString(s string) *Buffer {
	b := NewBuffer()
	b.lines = splitLines(NormalizeLineEndings(s))
	return b
}

// NormalizeLineEndings converts CRLF and CR line endings to LF.
func NormalizeLineEndings(s string) string {
	if !strings.Contains(s, "\r") {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

func splitLines(s string) []string {
	return strings.Split(s, "\n")
}

// Read Operations

// Text returns the full buffer content as a string.
func (b *Buffer) Text() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return strings.Join(b.lines, "\n")
}

// Len returns the total byte length of the buffer.
func (b *Buffer) Len() ByteOffset {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lenLocked()
}

// IsEmpty returns true if the buffer holds no text.
func (b *Buffer) IsEmpty() bool {
	return b.Len() == 0
}

// LineCount returns the number of lines.
func (b *Buffer) LineCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.lines)
}

// LineText returns the text of a specific line (without newline).
// Returns "" for lines out of range.
func (b *Buffer) LineText(line int) string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if line < 0 || line >= len(b.lines) {
		return ""
	}
	return b.lines[line]
}

// Lines returns a copy of all lines.
func (b *Buffer) Lines() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]string, len(b.lines))
	copy(out, b.lines)
	return out
}

// LineStartOffset returns the byte offset of the start of a line.
func (b *Buffer) LineStartOffset(line int) ByteOffset {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lineStartLocked(line)
}

// LineEndOffset returns the byte offset of the end of a line (before newline).
func (b *Buffer) LineEndOffset(line int) ByteOffset {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lineEndLocked(line)
}

// OffsetToPoint converts a byte offset to line/column.
func (b *Buffer) OffsetToPoint(offset ByteOffset) Point {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.offsetToPointLocked(offset)
}

// PointToOffset converts line/column to byte offset.
// The column is clamped to the line length.
func (b *Buffer) PointToOffset(p Point) ByteOffset {
	b.mu.Lock()
	defer b.mu.Unlock()

	if p.Line < 0 {
		return 0
	}
	if p.Line >= len(b.lines) {
		return b.lenLocked()
	}
	col := p.Column
	if col < 0 {
		col = 0
	}
	if col > len(b.lines[p.Line]) {
		col = len(b.lines[p.Line])
	}
	return b.lineStartLocked(p.Line) + ByteOffset(col)
}

// RevisionID returns the current revision.
func (b *Buffer) RevisionID() RevisionID {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.revisionID
}

// Write Operations

// Insert inserts text at the given offset.
// Returns the end position of the inserted text.
func (b *Buffer) Insert(offset ByteOffset, text string) (ByteOffset, error) {
	res, err := b.ApplyEdit(NewInsert(offset, text))
	if err != nil {
		return 0, err
	}
	return res.NewRange.End, nil
}

// Delete removes text in the given range.
func (b *Buffer) Delete(start, end ByteOffset) error {
	_, err := b.ApplyEdit(NewDelete(start, end))
	return err
}

// Replace replaces text in the given range with new text.
// Returns the end position of the replacement text.
func (b *Buffer) Replace(start, end ByteOffset, text string) (ByteOffset, error) {
	res, err := b.ApplyEdit(NewEdit(NewRange(start, end), text))
	if err != nil {
		return 0, err
	}
	return res.NewRange.End, nil
}

// ApplyEdit applies a single edit to the buffer and transforms all marks.
func (b *Buffer) ApplyEdit(edit Edit) (EditResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.applyEditLocked(edit)
}

// ReplaceLine replaces the content of line, keeping its terminator.
func (b *Buffer) ReplaceLine(line int, text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if line < 0 || line >= len(b.lines) {
		return ErrLineOutOfRange
	}
	start := b.lineStartLocked(line)
	end := b.lineEndLocked(line)
	_, err := b.applyEditLocked(NewEdit(NewRange(start, end), text))
	return err
}

// DeleteLine removes line together with its terminator. The last line has
// no terminator of its own, so the newline before it is removed instead.
func (b *Buffer) DeleteLine(line int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if line < 0 || line >= len(b.lines) {
		return ErrLineOutOfRange
	}

	var start, end ByteOffset
	switch {
	case line+1 < len(b.lines):
		start = b.lineStartLocked(line)
		end = b.lineStartLocked(line + 1)
	case line > 0:
		start = b.lineEndLocked(line - 1)
		end = b.lineEndLocked(line)
	default:
		start, end = 0, b.lineEndLocked(0)
	}
	_, err := b.applyEditLocked(NewDelete(start, end))
	return err
}

// SetText replaces the whole content. All marks collapse to offset 0.
func (b *Buffer) SetText(s string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	old := b.lenLocked()
	b.lines = splitLines(NormalizeLineEndings(s))
	b.starts = nil
	b.revisionID = NewRevisionID()
	b.transformMarksLocked(NewDelete(0, old))
}

func (b *Buffer) applyEditLocked(edit Edit) (EditResult, error) {
	total := b.lenLocked()
	if edit.Range.Start < 0 || edit.Range.Start > edit.Range.End || edit.Range.End > total {
		return EditResult{}, ErrRangeInvalid
	}

	text := NormalizeLineEndings(edit.NewText)
	edit.NewText = text

	startPt := b.offsetToPointLocked(edit.Range.Start)
	endPt := b.offsetToPointLocked(edit.Range.End)

	first := b.lines[startPt.Line]
	last := b.lines[endPt.Line]
	oldText := b.sliceLocked(startPt, endPt)

	merged := first[:startPt.Column] + text + last[endPt.Column:]
	replacement := splitLines(merged)

	lines := make([]string, 0, len(b.lines)-(endPt.Line-startPt.Line+1)+len(replacement))
	lines = append(lines, b.lines[:startPt.Line]...)
	lines = append(lines, replacement...)
	lines = append(lines, b.lines[endPt.Line+1:]...)

	b.lines = lines
	b.starts = nil
	b.revisionID = NewRevisionID()
	b.transformMarksLocked(edit)

	newEnd := edit.Range.Start + ByteOffset(len(text))
	return EditResult{
		OldRange:     edit.Range,
		NewRange:     Range{Start: edit.Range.Start, End: newEnd},
		OldText:      oldText,
		FirstLine:    startPt.Line,
		LastLine:     startPt.Line + len(replacement) - 1,
		LinesRemoved: endPt.Line - startPt.Line,
	}, nil
}

func (b *Buffer) sliceLocked(from, to Point) string {
	if from.Line == to.Line {
		return b.lines[from.Line][from.Column:to.Column]
	}
	var sb strings.Builder
	sb.WriteString(b.lines[from.Line][from.Column:])
	for i := from.Line + 1; i < to.Line; i++ {
		sb.WriteByte('\n')
		sb.WriteString(b.lines[i])
	}
	sb.WriteByte('\n')
	sb.WriteString(b.lines[to.Line][:to.Column])
	return sb.String()
}

func (b *Buffer) lenLocked() ByteOffset {
	var n ByteOffset
	for _, l := range b.lines {
		n += ByteOffset(len(l))
	}
	return n + ByteOffset(len(b.lines)-1)
}

// ensureStartsLocked rebuilds the line start cache (must hold write lock).
func (b *Buffer) ensureStartsLocked() {
	if b.starts != nil {
		return
	}
	b.starts = make([]ByteOffset, len(b.lines))
	var off ByteOffset
	for i, l := range b.lines {
		b.starts[i] = off
		off += ByteOffset(len(l)) + 1
	}
}

func (b *Buffer) lineStartLocked(line int) ByteOffset {
	if line <= 0 {
		return 0
	}
	if line >= len(b.lines) {
		return b.lenLocked()
	}
	b.ensureStartsLocked()
	return b.starts[line]
}

func (b *Buffer) lineEndLocked(line int) ByteOffset {
	if line < 0 {
		return 0
	}
	if line >= len(b.lines) {
		return b.lenLocked()
	}
	return b.lineStartLocked(line) + ByteOffset(len(b.lines[line]))
}

// offsetToPointLocked walks the lines without touching the start cache so it
// is usable under a read lock.
func (b *Buffer) offsetToPointLocked(offset ByteOffset) Point {
	if offset <= 0 {
		return Point{}
	}
	var start ByteOffset
	for i, l := range b.lines {
		end := start + ByteOffset(len(l))
		if offset <= end {
			return Point{Line: i, Column: int(offset - start)}
		}
		start = end + 1
	}
	last := len(b.lines) - 1
	return Point{Line: last, Column: len(b.lines[last])}
}
