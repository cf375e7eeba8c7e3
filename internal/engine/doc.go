// Package engine turns the output of a multi-file search into an editable
// document and writes the edits back into the files the results came from.
//
// The Session type is the facade over the sub-packages:
//
//   - buffer: line buffer with byte offsets and marks
//   - grammar: recognition of "path:line:" and "path-line-" headers
//   - vdoc: the editable document of result lines with protected headers
//   - shadow: the snapshot of the search output taken when editing starts
//   - tracking: the record of which result lines differ from their baseline
//   - commit: building and applying per-file transactions
//
// # Editing
//
// Every mutation goes through the session so the tracker sees it:
//
//	s, err := engine.NewSession(output, engine.WithStore(store))
//	if err != nil {
//	    return err
//	}
//	line := s.Line(0)
//	_ = s.SetLine(line, "fixed text")
//
// With protection on (the default) headers cannot be edited and no line
// breaks can be inserted. ToggleProtected lifts that; deleting a whole
// result line then marks its source line for deletion.
//
// # Committing
//
// CommitAll applies every pending edit. Each target line is pinned with a
// mark before anything changes, so deletions earlier in a file do not shift
// later edits, and a line whose current text no longer matches what the
// search returned is rejected rather than overwritten:
//
//	sum, err := s.CommitAll(ctx)
//	for _, r := range sum.Results {
//	    if r.Status == engine.Rejected {
//	        log.Printf("%s:%d: %s", r.Record.TargetFile, r.Record.TargetLine, r.Reason)
//	    }
//	}
//
// A batch commit leaves the headers of the document alone, so after a
// committed deletion the numbers of later lines of that file are off by
// one until the search is run again. DeleteLine deletes a single line
// immediately and renumbers the document.
//
// # Thread Safety
//
// A Session is meant to be driven by one goroutine. Notifications are
// delivered synchronously; a handler calling back into the session while
// a commit is running gets ErrBusy.
package engine
