// Package tracking records which result lines the user changed.
//
// A Record exists for a result line while its editable text differs from
// the baseline: the text captured by the shadow snapshot, or the text most
// recently committed for that line. Editing a line back to its baseline
// drops the record again, however the line got there.
//
//	tr := tracking.NewTracker(doc)
//	r, _ := tr.Track(line, "new text")   // Pending record
//	_, _ = tr.Track(line, original)      // reverted: record gone
//
// Deleting a whole source line is recorded with MarkDelete. Records are
// returned in document order so that commits walk each source file top to
// bottom.
package tracking
