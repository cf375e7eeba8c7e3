package commit

import (
	"context"
	"errors"
	"testing"

	"github.com/dshills/wgrep/internal/engine/buffer"
	"github.com/dshills/wgrep/internal/engine/tracking"
)

type memDoc struct {
	path    string
	buf     *buffer.Buffer
	bom     bool
	changed map[int]bool
}

func newMemDoc(path, text string) *memDoc {
	return &memDoc{path: path, buf: buffer.NewBufferFromString(text), changed: make(map[int]bool)}
}

func (d *memDoc) Path() string                         { return d.path }
func (d *memDoc) LineCount() int                       { return d.buf.LineCount() }
func (d *memDoc) LineText(line int) string             { return d.buf.LineText(line) }
func (d *memDoc) ReplaceLine(line int, t string) error { return d.buf.ReplaceLine(line, t) }
func (d *memDoc) DeleteLine(line int) error            { return d.buf.DeleteLine(line) }
func (d *memDoc) HasByteOrderMark() bool               { return d.bom }
func (d *memDoc) MarkChanged(line int)                 { d.changed[line] = true }

func (d *memDoc) MarkLine(line int) Mark {
	m := d.buf.MarkLine(line)
	if m == nil {
		return nil
	}
	return m
}

type memLocator map[string]*memDoc

func (l memLocator) Resolve(_ context.Context, path string) (Document, error) {
	d, ok := l[path]
	if !ok {
		return nil, ErrTargetNotFound
	}
	return d, nil
}

func edit(path string, line int, old, new string) *tracking.Record {
	return &tracking.Record{TargetFile: path, TargetLine: line, OldText: old, NewText: new}
}

func del(path string, line int, old string) *tracking.Record {
	return &tracking.Record{TargetFile: path, TargetLine: line, OldText: old, Delete: true}
}

func commitAll(t *testing.T, loc Locator, records ...*tracking.Record) ([]Result, []Failure) {
	t.Helper()
	txs, failures := Build(context.Background(), loc, records)
	var results []Result
	for _, tx := range txs {
		results = append(results, Run(tx)...)
	}
	return results, failures
}

func TestBatchKeepsLogicalLines(t *testing.T) {
	doc := newMemDoc("a.txt", "l1\nl2\nl3\nl4\nl5\nl6\n")
	loc := memLocator{"a.txt": doc}

	results, failures := commitAll(t, loc,
		del("a.txt", 2, "l2"),
		edit("a.txt", 5, "l5", "five"),
	)
	if len(failures) != 0 {
		t.Fatalf("failures = %v", failures)
	}
	for _, r := range results {
		if r.Status != tracking.Done {
			t.Errorf("%v: %v (%s)", r.Record, r.Status, r.Reason)
		}
	}
	if got, want := doc.buf.Text(), "l1\nl3\nl4\nfive\nl6\n"; got != want {
		t.Errorf("text = %q, want %q", got, want)
	}
	if doc.buf.MarkCount() != 0 {
		t.Errorf("Run left %d marks", doc.buf.MarkCount())
	}
}

func TestScenarioDeleteAndEdit(t *testing.T) {
	doc := newMemDoc("a.txt", "1\n2\nfoo\n4\n5\n6\nbar\n8\n")
	loc := memLocator{"a.txt": doc}

	commitAll(t, loc, del("a.txt", 3, "foo"), edit("a.txt", 7, "bar", "baz"))

	if got, want := doc.buf.Text(), "1\n2\n4\n5\n6\nbaz\n8\n"; got != want {
		t.Errorf("text = %q, want %q", got, want)
	}
}

func TestStaleContentRejected(t *testing.T) {
	doc := newMemDoc("a.txt", "l1\nl2\nl3\nchanged\nl5\n")
	loc := memLocator{"a.txt": doc}
	before := doc.buf.Text()

	results, _ := commitAll(t, loc, edit("a.txt", 4, "l4", "four"))
	if len(results) != 1 {
		t.Fatalf("results = %d", len(results))
	}
	r := results[0]
	if r.Status != tracking.Rejected || !errors.Is(r.Err, ErrStaleContent) {
		t.Errorf("result = %+v", r)
	}
	if r.Reason != "Buffer was changed after grep" {
		t.Errorf("reason = %q", r.Reason)
	}
	if doc.buf.Text() != before {
		t.Error("stale edit modified the document")
	}
	if len(doc.changed) != 0 {
		t.Error("stale edit set a change marker")
	}
}

func TestPartialSuccess(t *testing.T) {
	doc := newMemDoc("a.txt", "l1\nl2\nl3\n")
	loc := memLocator{"a.txt": doc}

	results, _ := commitAll(t, loc,
		edit("a.txt", 1, "nope", "x"),
		edit("a.txt", 3, "l3", "three"),
	)
	if results[0].Status != tracking.Rejected || results[1].Status != tracking.Done {
		t.Fatalf("statuses = %v, %v", results[0].Status, results[1].Status)
	}
	if got := doc.buf.Text(); got != "l1\nl2\nthree\n" {
		t.Errorf("text = %q", got)
	}
	if !doc.changed[2] {
		t.Error("applied line should carry a change marker")
	}
}

func TestTargetLineMissing(t *testing.T) {
	doc := newMemDoc("a.txt", "only\n")
	loc := memLocator{"a.txt": doc}

	results, _ := commitAll(t, loc, edit("a.txt", 9, "x", "y"))
	if results[0].Status != tracking.Rejected || !errors.Is(results[0].Err, ErrStaleContent) {
		t.Errorf("result = %+v", results[0])
	}
}

func TestDeleteLastLine(t *testing.T) {
	doc := newMemDoc("a.txt", "a\nb")
	loc := memLocator{"a.txt": doc}

	commitAll(t, loc, del("a.txt", 2, "b"))
	if got := doc.buf.Text(); got != "a" {
		t.Errorf("text = %q, want %q", got, "a")
	}
}

func TestDuplicateTargetsOnlyFirstApplies(t *testing.T) {
	doc := newMemDoc("a.txt", "l1\nl2\nl3\n")
	loc := memLocator{"a.txt": doc}

	results, _ := commitAll(t, loc,
		del("a.txt", 2, "l2"),
		del("a.txt", 2, "l2"),
	)
	if results[0].Status != tracking.Done || results[1].Status != tracking.Rejected {
		t.Errorf("statuses = %v, %v", results[0].Status, results[1].Status)
	}
	if got := doc.buf.Text(); got != "l1\nl3\n" {
		t.Errorf("text = %q", got)
	}
}

func TestByteOrderMarkOnFirstLine(t *testing.T) {
	doc := newMemDoc("a.txt", "head\nbody\n")
	doc.bom = true
	loc := memLocator{"a.txt": doc}

	results, _ := commitAll(t, loc, edit("a.txt", 1, ByteOrderMark+"head", ByteOrderMark+"HEAD"))
	if results[0].Status != tracking.Done {
		t.Fatalf("result = %+v", results[0])
	}
	if got := doc.buf.LineText(0); got != "HEAD" {
		t.Errorf("line 0 = %q, want HEAD", got)
	}
}

func TestByteOrderMarkOnlyStrippedOnFirstLine(t *testing.T) {
	doc := newMemDoc("a.txt", "head\nbody\n")
	doc.bom = true
	loc := memLocator{"a.txt": doc}

	results, _ := commitAll(t, loc, edit("a.txt", 2, ByteOrderMark+"body", "x"))
	if results[0].Status != tracking.Rejected {
		t.Errorf("BOM on line 2 should not be stripped: %+v", results[0])
	}
}

func TestBuildFailures(t *testing.T) {
	doc := newMemDoc("a.txt", "l1\n")
	loc := memLocator{"a.txt": doc}

	records := []*tracking.Record{
		edit("gone.txt", 1, "x", "y"),
		edit("a.txt", 1, "l1", "one"),
		edit("gone.txt", 2, "x", "y"),
	}
	txs, failures := Build(context.Background(), loc, records)

	if len(txs) != 1 || len(txs[0].Edits) != 1 {
		t.Fatalf("transactions = %v", txs)
	}
	if len(failures) != 2 {
		t.Fatalf("failures = %d, want 2", len(failures))
	}
	for _, f := range failures {
		if !errors.Is(f.Err, ErrTargetNotFound) {
			t.Errorf("failure err = %v", f.Err)
		}
	}
	for _, tx := range txs {
		Run(tx)
	}
}

func TestBuildOneTransactionPerDocument(t *testing.T) {
	doc := newMemDoc("a.txt", "l1\nl2\n")
	loc := memLocator{"a.txt": doc, "./a.txt": doc}

	txs, _ := Build(context.Background(), loc, []*tracking.Record{
		edit("a.txt", 1, "l1", "x"),
		edit("./a.txt", 2, "l2", "y"),
	})
	if len(txs) != 1 || len(txs[0].Edits) != 2 {
		t.Fatalf("want one transaction with two edits, got %d", len(txs))
	}
	Run(txs[0])
	if got := doc.buf.Text(); got != "x\ny\n" {
		t.Errorf("text = %q", got)
	}
}
