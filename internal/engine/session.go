package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/dshills/wgrep/internal/engine/buffer"
	"github.com/dshills/wgrep/internal/engine/commit"
	"github.com/dshills/wgrep/internal/engine/grammar"
	"github.com/dshills/wgrep/internal/engine/shadow"
	"github.com/dshills/wgrep/internal/engine/tracking"
	"github.com/dshills/wgrep/internal/engine/vdoc"
	"github.com/dshills/wgrep/internal/logging"
	"github.com/dshills/wgrep/internal/project/filestore"
)

// Re-export commonly used types for convenience.
type (
	// ByteOffset is a byte position in the document.
	ByteOffset = buffer.ByteOffset

	// ResultLine is a document line that refers to a source line.
	ResultLine = vdoc.ResultLine

	// Record is a pending change of one result line.
	Record = tracking.Record

	// Status is the state of a Record.
	Status = tracking.Status

	// Result is the outcome of committing one Record.
	Result = commit.Result
)

// Re-export constants.
const (
	Pending  = tracking.Pending
	Done     = tracking.Done
	Rejected = tracking.Rejected
)

// State is the commit state of a Session.
type State uint8

const (
	StateEditing State = iota
	StateCommitting
	StateClosed
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateEditing:
		return "editing"
	case StateCommitting:
		return "committing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Saver writes a source document back to storage.
type Saver interface {
	Save(ctx context.Context, path string) error
}

// Summary is the outcome of a commit.
type Summary struct {
	Applied   int
	Unapplied int

	// Results holds one entry per committed record, in document order.
	Results []Result
}

// Session is one editing session over a search result.
type Session struct {
	id        uuid.UUID
	log       *logging.Logger
	parser    *grammar.Parser
	protected bool
	locator   commit.Locator
	saver     Saver
	store     *filestore.FileStore

	doc     *vdoc.Document
	snap    *shadow.Snapshot
	tracker *tracking.Tracker
	state   State

	// touched holds the documents changed by commits, by path.
	touched      map[string]commit.Document
	touchedOrder []string

	subscribers []func(Notification)
	onClosed    []func()
}

// NewSession starts editing the search output results. A locator must be
// configured with WithLocator or WithStore.
func NewSession(results string, opts ...Option) (*Session, error) {
	s := &Session{
		id:        uuid.New(),
		log:       logging.Nop(),
		protected: true,
		touched:   make(map[string]commit.Document),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.locator == nil {
		return nil, ErrNoLocator
	}

	s.log = s.log.WithComponent("session").WithField("session", s.id.String())
	s.doc = vdoc.New(results, s.parser, vdoc.WithProtected(s.protected))
	s.snap = shadow.Take(s.doc)
	s.tracker = tracking.NewTracker(s.doc)
	if s.store != nil {
		s.follow(s.store)
	}

	s.log.Info("editing %d result lines", len(s.doc.ResultLines()))
	return s, nil
}

// NewSessionFromReader starts editing the search output read from r.
func NewSessionFromReader(r io.Reader, opts ...Option) (*Session, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading search output: %w", err)
	}
	return NewSession(string(data), opts...)
}

// ID returns the session identifier.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// State returns the commit state.
func (s *Session) State() State {
	return s.state
}

// Document returns the document being edited.
func (s *Session) Document() *vdoc.Document {
	return s.doc
}

// Snapshot returns the snapshot taken when the session started.
func (s *Session) Snapshot() *shadow.Snapshot {
	return s.snap
}

// Text returns the current document text.
func (s *Session) Text() string {
	return s.doc.Text()
}

// Line returns the result line on document line i, or nil.
func (s *Session) Line(i int) *ResultLine {
	return s.doc.Line(i)
}

// Record returns the pending change of line.
func (s *Session) Record(line *ResultLine) (*Record, bool) {
	return s.tracker.Get(line)
}

// Records returns every pending change, rejected ones included, in
// document order.
func (s *Session) Records() []*Record {
	return s.tracker.Pending()
}

// Protected reports whether headers are read-only.
func (s *Session) Protected() bool {
	return s.doc.Protected()
}

// Touched returns the paths of the documents changed by commits, in the
// order they were first changed.
func (s *Session) Touched() []string {
	out := make([]string, len(s.touchedOrder))
	copy(out, s.touchedOrder)
	return out
}

func (s *Session) checkEditable() error {
	switch s.state {
	case StateClosed:
		return ErrClosed
	case StateCommitting:
		return ErrBusy
	}
	return nil
}

func (s *Session) liveLine(line *ResultLine) error {
	if line == nil || line.Orphaned || s.doc.IndexOf(line) < 0 {
		return ErrNoResultLine
	}
	return nil
}

// Insert inserts text at offset.
func (s *Session) Insert(offset ByteOffset, text string) error {
	return s.apply(buffer.NewInsert(offset, text))
}

// Delete removes the text between start and end.
func (s *Session) Delete(start, end ByteOffset) error {
	return s.apply(buffer.NewDelete(start, end))
}

// Replace replaces the text between start and end with text.
func (s *Session) Replace(start, end ByteOffset, text string) error {
	return s.apply(buffer.NewEdit(buffer.NewRange(start, end), text))
}

// SetLine replaces the editable text of line.
func (s *Session) SetLine(line *ResultLine, text string) error {
	if err := s.checkEditable(); err != nil {
		return err
	}
	if err := s.liveLine(line); err != nil {
		return err
	}
	rng, err := s.doc.EditableRange(line)
	if err != nil {
		return err
	}
	return s.apply(buffer.NewEdit(rng, text))
}

// MarkDeletion records that the source line of line is to be deleted on
// the next commit.
func (s *Session) MarkDeletion(line *ResultLine) error {
	if err := s.checkEditable(); err != nil {
		return err
	}
	if err := s.liveLine(line); err != nil {
		return err
	}
	return s.markDelete(line)
}

func (s *Session) apply(edit buffer.Edit) error {
	if err := s.checkEditable(); err != nil {
		return err
	}
	change, err := s.doc.Apply(edit)
	if err != nil {
		return err
	}

	var errs []error
	for _, rl := range change.Affected {
		text, _ := s.doc.Trailing(rl)
		if err := s.track(rl, text); err != nil {
			errs = append(errs, err)
		}
	}
	for _, rl := range change.Removed {
		if err := s.markDelete(rl); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Session) track(line *ResultLine, text string) error {
	prev, had := s.tracker.Get(line)
	wasRejected := had && prev.Status == Rejected

	r, err := s.tracker.Track(line, text)
	if err != nil {
		return fmt.Errorf("%s: %w", line, err)
	}
	switch {
	case r == nil && had:
		s.log.Debug("%s reverted", line)
		s.notify(EventReverted, line, Pending, "")
	case r != nil && (!had || wasRejected):
		s.log.Debug("%s changed", line)
		s.notifyRecord(EventTracked, r)
	}
	return nil
}

func (s *Session) markDelete(line *ResultLine) error {
	r, err := s.tracker.MarkDelete(line)
	if err != nil {
		return fmt.Errorf("%s: %w", line, err)
	}
	if r != nil {
		s.log.Debug("%s marked for deletion", line)
		s.notifyRecord(EventTracked, r)
	}
	return nil
}

// CommitAll applies every pending change. Changes that cannot be applied
// are rejected with a reason and stay pending; the others are dropped and
// their text becomes the new baseline of their line. Headers are not
// renumbered.
func (s *Session) CommitAll(ctx context.Context) (Summary, error) {
	if err := s.checkEditable(); err != nil {
		return Summary{}, err
	}
	return s.commit(ctx, s.tracker.Pending()), nil
}

// CommitOne applies the pending change of line immediately. A deletion
// renumbers the later lines of the same file.
func (s *Session) CommitOne(ctx context.Context, line *ResultLine) (Result, error) {
	if err := s.checkEditable(); err != nil {
		return Result{}, err
	}
	r, ok := s.tracker.Get(line)
	if !ok {
		return Result{}, ErrNoPendingEdit
	}

	sum := s.commit(ctx, []*Record{r})
	res := sum.Results[0]
	if res.Status == Done && r.Delete {
		s.renumber(line)
	}
	return res, nil
}

// DeleteLine deletes the source line of line immediately and renumbers the
// later lines of the same file.
func (s *Session) DeleteLine(ctx context.Context, line *ResultLine) (Result, error) {
	if err := s.checkEditable(); err != nil {
		return Result{}, err
	}
	if err := s.liveLine(line); err != nil {
		return Result{}, err
	}
	if err := s.markDelete(line); err != nil {
		return Result{}, err
	}
	return s.CommitOne(ctx, line)
}

func (s *Session) commit(ctx context.Context, records []*Record) Summary {
	var sum Summary
	if len(records) == 0 {
		return sum
	}

	s.state = StateCommitting
	defer func() {
		if s.state == StateCommitting {
			s.state = StateEditing
		}
	}()

	results := make(map[*Record]Result, len(records))
	docs := make(map[*Record]commit.Document, len(records))

	txs, failures := commit.Build(ctx, s.locator, records)
	for _, f := range failures {
		results[f.Record] = Result{Record: f.Record, Status: Rejected, Reason: f.Err.Error(), Err: f.Err}
	}
	for _, tx := range txs {
		for _, res := range commit.Run(tx) {
			results[res.Record] = res
			docs[res.Record] = tx.Document
		}
	}

	for _, r := range records {
		res := results[r]
		if res.Status == Done {
			s.tracker.Complete(r)
			s.touch(docs[r])
			sum.Applied++
			s.notifyRecord(EventApplied, r)
		} else {
			s.tracker.Reject(r, res.Reason)
			sum.Unapplied++
			s.log.Warn("%s:%d not applied: %s", r.TargetFile, r.TargetLine, res.Reason)
			s.notifyRecord(EventRejected, r)
		}
		sum.Results = append(sum.Results, res)
	}

	s.log.Info("commit: %d applied, %d not applied", sum.Applied, sum.Unapplied)
	return sum
}

func (s *Session) touch(doc commit.Document) {
	if doc == nil {
		return
	}
	p := doc.Path()
	if _, ok := s.touched[p]; ok {
		return
	}
	s.touched[p] = doc
	s.touchedOrder = append(s.touchedOrder, p)
}

// renumber keeps the headers of deleted's file in step with the source
// after deleted's source line was removed: lines showing the same source
// line go, lines below it move up by one.
func (s *Session) renumber(deleted *ResultLine) {
	path := filepath.Clean(deleted.Path)
	n := deleted.Number

	for _, rl := range s.doc.ResultLines() {
		if filepath.Clean(rl.Path) != path {
			continue
		}
		switch {
		case rl.Number == n:
			for _, r := range s.tracker.ClearRange([]*ResultLine{rl}) {
				s.notifyRecord(EventDiscarded, r)
			}
			if err := s.doc.RemoveLine(rl); err != nil {
				s.log.Warn("renumber: removing %s: %v", rl, err)
			}
		case rl.Number > n:
			if err := s.doc.Renumber(rl, rl.Number-1); err != nil {
				s.log.Warn("renumber: %s: %v", rl, err)
				continue
			}
			s.tracker.Retarget(rl, rl.Number)
			s.notify(EventRenumbered, rl, s.statusOf(rl), "")
		}
	}
}

func (s *Session) untouch(path string) {
	delete(s.touched, path)
	for i, p := range s.touchedOrder {
		if p == path {
			s.touchedOrder = append(s.touchedOrder[:i], s.touchedOrder[i+1:]...)
			break
		}
	}
}

func (s *Session) statusOf(line *ResultLine) Status {
	if r, ok := s.tracker.Get(line); ok {
		return r.Status
	}
	return Done
}

// DiscardRange drops the pending changes of the result lines on document
// lines first through last and puts their original text back. Source
// documents are not touched.
func (s *Session) DiscardRange(first, last int) ([]*Record, error) {
	if err := s.checkEditable(); err != nil {
		return nil, err
	}
	if first > last {
		first, last = last, first
	}
	first = max(first, 0)
	last = min(last, s.doc.LineCount()-1)

	var lines []*ResultLine
	for i := first; i <= last; i++ {
		if rl := s.doc.Line(i); rl != nil {
			lines = append(lines, rl)
		}
	}

	removed := s.tracker.ClearRange(lines)
	for _, r := range removed {
		if !r.Delete {
			if err := s.doc.SetTrailing(r.Line, r.OldText); err != nil {
				s.log.Warn("discard %s: %v", r.Line, err)
			}
		}
		s.notifyRecord(EventDiscarded, r)
	}
	return removed, nil
}

// DiscardAll puts the document back the way it was when the session
// started and drops every pending change. It returns where cursor ends up.
// If the snapshot is gone the document and changes are left as they are
// and shadow.ErrRestoreUnavailable is returned.
func (s *Session) DiscardAll(cursor ByteOffset) (ByteOffset, error) {
	if err := s.checkEditable(); err != nil {
		return cursor, err
	}

	pending := s.tracker.All()
	pos, err := s.snap.Restore(cursor)
	if err != nil {
		s.log.Warn("cannot restore search output: %v", err)
		return cursor, err
	}
	s.tracker.Clear()
	for _, r := range pending {
		s.notifyRecord(EventDiscarded, r)
	}
	s.log.Info("discarded %d changes", len(pending))
	return pos, nil
}

// Abort discards every change and closes the session.
func (s *Session) Abort() error {
	_, err := s.DiscardAll(0)
	if errors.Is(err, ErrClosed) || errors.Is(err, ErrBusy) {
		return err
	}
	s.Close()
	return err
}

// ToggleProtected flips header protection and returns the new setting.
func (s *Session) ToggleProtected() (bool, error) {
	if err := s.checkEditable(); err != nil {
		return s.doc.Protected(), err
	}
	on := !s.doc.Protected()
	s.doc.SetProtected(on)
	s.log.Debug("protection %v", on)
	return on, nil
}

// Exit closes the session. With save, every pending change is committed
// first and the touched documents are saved.
func (s *Session) Exit(ctx context.Context, save bool) (Summary, error) {
	if err := s.checkEditable(); err != nil {
		return Summary{}, err
	}

	var sum Summary
	var err error
	if save {
		sum, _ = s.CommitAll(ctx)
		err = s.SaveTouched(ctx)
	}
	s.Close()
	return sum, err
}

// SaveTouched saves the documents changed by commits through the
// configured Saver. Without one it does nothing.
func (s *Session) SaveTouched(ctx context.Context) error {
	if s.saver == nil {
		return nil
	}
	var errs []error
	for _, p := range s.Touched() {
		if err := s.saver.Save(ctx, p); err != nil {
			s.log.Error("save %s: %v", p, err)
			errs = append(errs, err)
			continue
		}
		s.OnDocumentSaved(p)
	}
	return errors.Join(errs...)
}

// changeClearer is implemented by documents that mark committed lines.
type changeClearer interface {
	ClearChanged()
}

// OnDocumentSaved tells the session the source document at path was saved.
// Its change markers are cleared and it no longer counts as touched.
func (s *Session) OnDocumentSaved(path string) {
	doc, ok := s.touched[path]
	if !ok {
		return
	}
	if c, ok := doc.(changeClearer); ok {
		c.ClearChanged()
	}
	s.untouch(path)
	s.log.Debug("%s saved", path)
}

// follow keeps the touched set in step with what happens to documents in
// store outside the session.
func (s *Session) follow(store *filestore.FileStore) {
	store.OnSave(func(doc *filestore.Document) {
		if s.state != StateClosed {
			s.OnDocumentSaved(doc.Path())
		}
	})
	store.OnReload(func(doc *filestore.Document) {
		s.forget(doc.Path(), "reloaded")
	})
	store.OnClose(func(path string) {
		s.forget(path, "closed")
	})
}

// forget drops path from the touched set when its commits were lost.
func (s *Session) forget(path, why string) {
	if s.state == StateClosed {
		return
	}
	if _, ok := s.touched[path]; !ok {
		return
	}
	s.untouch(path)
	s.log.Warn("%s was %s before it was saved; its commits are lost", path, why)
}

// OnSessionClosed tells the session its document went away. It closes the
// session.
func (s *Session) OnSessionClosed() {
	s.Close()
}

// Close ends the session. The snapshot is released and pending changes
// are dropped. Close is idempotent.
func (s *Session) Close() {
	if s.state == StateClosed {
		return
	}
	s.state = StateClosed
	s.snap.Release()
	s.tracker.Clear()
	s.log.Info("closed")

	handlers := s.onClosed
	s.onClosed = nil
	for _, h := range handlers {
		h()
	}
}
