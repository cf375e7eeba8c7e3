// Package commit applies tracked result-line changes to source documents.
//
// Build groups records by the document they target and pins every target
// line with a Mark before anything is changed. Apply then checks and applies
// one change: the live line must still read exactly what the search
// returned, otherwise the change is rejected as stale and the document is
// left alone. Because marks follow their line, deleting line 2 of a file
// does not make a later edit of line 5 land on the old line 6.
package commit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dshills/wgrep/internal/engine/tracking"
)

// Errors reported for records that cannot be applied.
var (
	ErrTargetNotFound    = errors.New("file not found")
	ErrTargetNotWritable = errors.New("file is not writable")
	ErrStaleContent      = errors.New("Buffer was changed after grep")
)

// ByteOrderMark is the UTF-8 encoded byte order mark.
const ByteOrderMark = "\uFEFF"

// Mark pins a position in a Document across that document's mutations.
type Mark interface {
	// Line returns the 0-based line the mark sits at the start of.
	// ok is false once the mark no longer sits at a line start.
	Line() (line int, ok bool)
	Release()
}

// Document is a live, line-addressed source document. Line numbers are
// 0-based.
type Document interface {
	Path() string
	LineCount() int
	LineText(line int) string
	ReplaceLine(line int, text string) error
	DeleteLine(line int) error
	HasByteOrderMark() bool

	// MarkLine pins the start of line. Returns nil if line does not exist.
	MarkLine(line int) Mark

	// MarkChanged flags line as changed by a commit until the next save.
	MarkChanged(line int)
}

// Locator resolves a path to its live document, opening it if needed.
// It fails with ErrTargetNotFound or ErrTargetNotWritable.
type Locator interface {
	Resolve(ctx context.Context, path string) (Document, error)
}

// PositionedEdit is a record bound to the position of its target line.
type PositionedEdit struct {
	Record *tracking.Record
	Mark   Mark // nil when the target line did not exist at build time
}

// Transaction holds the edits to one document in document order.
type Transaction struct {
	Document Document
	Edits    []PositionedEdit
}

// Failure is a record for which no transaction could be built.
type Failure struct {
	Record *tracking.Record
	Err    error
}

// Result is the outcome of applying one record.
type Result struct {
	Record *tracking.Record
	Status tracking.Status // Done or Rejected
	Reason string
	Err    error
}

// Build groups records per document and resolves every target line to a
// mark, once, before any edit is applied. Records whose file cannot be
// resolved are returned as failures; no transaction is built for them.
func Build(ctx context.Context, loc Locator, records []*tracking.Record) ([]*Transaction, []Failure) {
	type resolved struct {
		doc Document
		err error
	}
	byPath := make(map[string]resolved)
	byDoc := make(map[Document]*Transaction)

	var txs []*Transaction
	var failures []Failure

	for _, r := range records {
		res, ok := byPath[r.TargetFile]
		if !ok {
			doc, err := loc.Resolve(ctx, r.TargetFile)
			res = resolved{doc: doc, err: err}
			byPath[r.TargetFile] = res
		}
		if res.err != nil {
			failures = append(failures, Failure{Record: r, Err: res.err})
			continue
		}

		tx, ok := byDoc[res.doc]
		if !ok {
			tx = &Transaction{Document: res.doc}
			byDoc[res.doc] = tx
			txs = append(txs, tx)
		}
		tx.Edits = append(tx.Edits, PositionedEdit{
			Record: r,
			Mark:   res.doc.MarkLine(r.TargetLine - 1),
		})
	}
	return txs, failures
}

// Apply applies one positioned edit to doc. On failure the document is not
// modified.
func Apply(doc Document, pe PositionedEdit) Result {
	r := pe.Record
	reject := func(err error) Result {
		return Result{Record: r, Status: tracking.Rejected, Reason: err.Error(), Err: err}
	}

	if pe.Mark == nil {
		return reject(fmt.Errorf("%w (line %d no longer exists)", ErrStaleContent, r.TargetLine))
	}
	line, ok := pe.Mark.Line()
	if !ok {
		return reject(fmt.Errorf("%w (line %d was removed)", ErrStaleContent, r.TargetLine))
	}

	current := doc.LineText(line)
	oldText, newText := r.OldText, r.NewText
	if line == 0 && doc.HasByteOrderMark() {
		current = strings.TrimPrefix(current, ByteOrderMark)
		oldText = strings.TrimPrefix(oldText, ByteOrderMark)
		newText = strings.TrimPrefix(newText, ByteOrderMark)
	}
	if current != oldText {
		return Result{Record: r, Status: tracking.Rejected, Reason: ErrStaleContent.Error(), Err: ErrStaleContent}
	}

	if r.Delete {
		if err := doc.DeleteLine(line); err != nil {
			return reject(err)
		}
		if n := doc.LineCount(); n > 0 {
			doc.MarkChanged(min(line, n-1))
		}
	} else {
		if err := doc.ReplaceLine(line, newText); err != nil {
			return reject(err)
		}
		doc.MarkChanged(line)
	}
	return Result{Record: r, Status: tracking.Done}
}

// Run applies every edit of tx in order and releases the marks afterwards.
// A rejected edit does not stop the later ones.
func Run(tx *Transaction) []Result {
	results := make([]Result, 0, len(tx.Edits))
	for _, pe := range tx.Edits {
		results = append(results, Apply(tx.Document, pe))
	}
	for _, pe := range tx.Edits {
		if pe.Mark != nil {
			pe.Mark.Release()
		}
	}
	return results
}
