package tracking

import (
	"errors"
	"sort"
	"sync"

	"github.com/dshills/wgrep/internal/engine/vdoc"
)

// ErrNoBaseline is returned when the original text of a line cannot be found.
var ErrNoBaseline = errors.New("original text of line not available")

// Tracker indexes Records by result line.
// All operations are thread-safe.
type Tracker struct {
	mu        sync.RWMutex
	doc       *vdoc.Document
	records   map[*vdoc.ResultLine]*Record
	committed map[*vdoc.ResultLine]string
	seq       uint64
}

// NewTracker creates a tracker for doc. Baselines are looked up in the
// shadow snapshot attached to doc.
func NewTracker(doc *vdoc.Document) *Tracker {
	return &Tracker{
		doc:       doc,
		records:   make(map[*vdoc.ResultLine]*Record),
		committed: make(map[*vdoc.ResultLine]string),
	}
}

// Baseline returns the text line is compared against.
func (t *Tracker) Baseline(line *vdoc.ResultLine) (string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.baselineLocked(line)
}

func (t *Tracker) baselineLocked(line *vdoc.ResultLine) (string, error) {
	if text, ok := t.committed[line]; ok {
		return text, nil
	}
	if s := t.doc.Shadow(); s != nil {
		if text, ok := s.OldTextFor(line.OrigHeader); ok {
			return text, nil
		}
	}
	return "", ErrNoBaseline
}

// Track records that line now reads newText. It returns the live record,
// or nil when the line is back to its baseline (the record is dropped) or
// the line is orphaned.
func (t *Tracker) Track(line *vdoc.ResultLine, newText string) (*Record, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if line == nil || line.Orphaned {
		return nil, nil
	}

	if r, ok := t.records[line]; ok {
		if newText == r.OldText {
			delete(t.records, line)
			return nil, nil
		}
		r.NewText = newText
		r.Delete = false
		r.reopen()
		return r, nil
	}

	old, err := t.baselineLocked(line)
	if err != nil {
		return nil, err
	}
	if newText == old {
		return nil, nil
	}
	return t.addLocked(line, old, newText, false), nil
}

// MarkDelete records that line is to be removed from its source file.
func (t *Tracker) MarkDelete(line *vdoc.ResultLine) (*Record, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if line == nil || line.Orphaned {
		return nil, nil
	}

	if r, ok := t.records[line]; ok {
		r.NewText = ""
		r.Delete = true
		r.reopen()
		return r, nil
	}

	old, err := t.baselineLocked(line)
	if err != nil {
		return nil, err
	}
	return t.addLocked(line, old, "", true), nil
}

func (t *Tracker) addLocked(line *vdoc.ResultLine, old, newText string, del bool) *Record {
	t.seq++
	r := &Record{
		Line:       line,
		TargetFile: line.Path,
		TargetLine: line.Number,
		OldText:    old,
		NewText:    newText,
		Delete:     del,
		Status:     Pending,
		seq:        t.seq,
	}
	t.records[line] = r
	return r
}

func (r *Record) reopen() {
	if r.Status == Rejected {
		r.Status = Pending
		r.Reason = ""
	}
}

// Get returns the record of line.
func (t *Tracker) Get(line *vdoc.ResultLine) (*Record, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.records[line]
	return r, ok
}

// All returns every record in document order.
func (t *Tracker) All() []*Record {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.sortedLocked(func(*Record) bool { return true })
}

// Pending returns the records still to be applied, Rejected ones included,
// in document order.
func (t *Tracker) Pending() []*Record {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.sortedLocked(func(r *Record) bool { return r.Status != Done })
}

func (t *Tracker) sortedLocked(keep func(*Record) bool) []*Record {
	type keyed struct {
		r     *Record
		order int
	}
	list := make([]keyed, 0, len(t.records))
	for _, r := range t.records {
		if keep(r) {
			list = append(list, keyed{r: r, order: t.doc.Order(r.Line)})
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].order != list[j].order {
			return list[i].order < list[j].order
		}
		return list[i].r.seq < list[j].r.seq
	})

	out := make([]*Record, len(list))
	for i, k := range list {
		out[i] = k.r
	}
	return out
}

// Len returns the number of records.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.records)
}

// Remove drops r without touching any document.
func (t *Tracker) Remove(r *Record) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if cur, ok := t.records[r.Line]; ok && cur == r {
		delete(t.records, r.Line)
	}
}

// ClearRange drops the records of lines and returns them.
func (t *Tracker) ClearRange(lines []*vdoc.ResultLine) []*Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	var removed []*Record
	for _, l := range lines {
		if r, ok := t.records[l]; ok {
			delete(t.records, l)
			removed = append(removed, r)
		}
	}
	return removed
}

// Clear drops every record and every committed baseline.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records = make(map[*vdoc.ResultLine]*Record)
	t.committed = make(map[*vdoc.ResultLine]string)
}

// Reject flags r as rejected with reason.
func (t *Tracker) Reject(r *Record, reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r.Status = Rejected
	r.Reason = reason
}

// Complete marks r as Done and drops it. For edits the new text becomes
// the line's baseline; deletions orphan the line.
func (t *Tracker) Complete(r *Record) {
	t.mu.Lock()
	defer t.mu.Unlock()

	r.Status = Done
	r.Reason = ""
	if r.Delete {
		r.Line.Orphaned = true
		delete(t.committed, r.Line)
	} else {
		t.committed[r.Line] = r.NewText
	}
	if cur, ok := t.records[r.Line]; ok && cur == r {
		delete(t.records, r.Line)
	}
}

// Retarget points the record of line at a new source line number.
func (t *Tracker) Retarget(line *vdoc.ResultLine, number int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if r, ok := t.records[line]; ok {
		r.TargetLine = number
	}
}
