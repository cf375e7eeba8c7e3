package buffer

// Mark is a stable position reference into a Buffer. Every edit applied to
// the buffer after the mark was created moves the mark along with the text
// around it, so a mark placed at the start of a line keeps pointing at that
// line while other lines are inserted, replaced, or deleted.
type Mark struct {
	buf      *Buffer
	offset   ByteOffset
	sticky   bool
	released bool
}

// Offset returns the current offset of the mark.
func (m *Mark) Offset() ByteOffset {
	m.buf.mu.RLock()
	defer m.buf.mu.RUnlock()
	return m.offset
}

// Line returns the line the mark sits at the start of.
// ok is false when the mark was released or no longer sits at a line start,
// which happens when the text it pointed into was removed.
func (m *Mark) Line() (line int, ok bool) {
	m.buf.mu.RLock()
	defer m.buf.mu.RUnlock()

	if m.released {
		return 0, false
	}
	p := m.buf.offsetToPointLocked(m.offset)
	if p.Column != 0 {
		return p.Line, false
	}
	return p.Line, true
}

// Released reports whether Release was called.
func (m *Mark) Released() bool {
	m.buf.mu.RLock()
	defer m.buf.mu.RUnlock()
	return m.released
}

// Release detaches the mark from its buffer. Released marks are no longer
// transformed and report ok=false from Line.
func (m *Mark) Release() {
	m.buf.mu.Lock()
	defer m.buf.mu.Unlock()

	if m.released {
		return
	}
	m.released = true
	delete(m.buf.marks, m)
}

// AddMark creates a mark at offset. A sticky mark stays in place when text
// is inserted exactly at its offset; a non-sticky mark moves to the end of
// the inserted text.
func (b *Buffer) AddMark(offset ByteOffset, sticky bool) (*Mark, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if offset < 0 || offset > b.lenLocked() {
		return nil, ErrOffsetOutOfRange
	}
	m := &Mark{buf: b, offset: offset, sticky: sticky}
	b.marks[m] = struct{}{}
	return m, nil
}

// MarkLine creates a sticky mark at the start of line.
// Returns nil if the line does not exist.
func (b *Buffer) MarkLine(line int) *Mark {
	b.mu.Lock()
	defer b.mu.Unlock()

	if line < 0 || line >= len(b.lines) {
		return nil
	}
	m := &Mark{buf: b, offset: b.lineStartLocked(line), sticky: true}
	b.marks[m] = struct{}{}
	return m
}

// MarkCount returns the number of live marks.
func (b *Buffer) MarkCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.marks)
}

// transformMarksLocked moves every live mark across edit (must hold lock).
func (b *Buffer) transformMarksLocked(edit Edit) {
	for m := range b.marks {
		m.offset = TransformOffsetSticky(m.offset, edit, m.sticky)
	}
}

// TransformOffset updates an offset after an edit.
//
// Transformation rules:
//   - If edit is entirely before offset: adjust offset by the edit's delta
//   - If edit starts at or after offset: offset unchanged
//   - If edit spans offset: move offset to end of new text
func TransformOffset(offset ByteOffset, edit Edit) ByteOffset {
	if edit.Range.End <= offset {
		return offset + edit.Delta()
	}
	if edit.Range.Start >= offset {
		return offset
	}
	return edit.Range.Start + ByteOffset(len(edit.NewText))
}

// TransformOffsetSticky is like TransformOffset but decides how the offset
// behaves when an insertion lands exactly on it: sticky offsets stay put,
// non-sticky offsets move to the end of the inserted text.
func TransformOffsetSticky(offset ByteOffset, edit Edit, sticky bool) ByteOffset {
	if edit.Range.IsEmpty() && edit.Range.Start == offset {
		if sticky {
			return offset
		}
		return offset + ByteOffset(len(edit.NewText))
	}
	return TransformOffset(offset, edit)
}
