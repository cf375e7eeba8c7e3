// Package buffer provides the line-addressed text buffer shared by the
// virtual result document and the source documents edits are committed to.
//
// The buffer package provides:
//
//   - Thread-safe read/write access via sync.RWMutex
//   - Coordinate conversion between byte offsets and line/column points
//   - Whole-line helpers (LineText, ReplaceLine, DeleteLine)
//   - Marks: stable position references that slide across mutations
//   - Line ending normalization (content is always held with LF)
//
// Basic usage:
//
//	buf := buffer.NewBufferFromString("alpha\nbeta\ngamma\n")
//
//	// Pin the start of "gamma" before touching earlier lines
//	m := buf.MarkLine(2)
//	defer m.Release()
//
//	_ = buf.DeleteLine(0)
//	line, _ := m.Line() // 1: the mark followed "gamma" up
//
// Marks:
//
// A Mark is resolved once and then transformed by every edit applied to its
// buffer. This is what lets a batch of line edits be computed against the
// original line numbers and applied one after another without the earlier
// edits invalidating the positions of the later ones.
//
// Thread Safety:
//
// All Buffer and Mark methods are thread-safe. Read operations acquire a
// read lock, write operations acquire an exclusive lock.
package buffer
