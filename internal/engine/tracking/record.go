package tracking

import (
	"fmt"

	"github.com/dshills/wgrep/internal/engine/vdoc"
)

// Status is the state of a Record.
type Status int

const (
	// Pending records wait to be committed.
	Pending Status = iota
	// Done records were applied to their source document.
	Done
	// Rejected records failed to apply and carry a reason.
	Rejected
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Done:
		return "done"
	case Rejected:
		return "rejected"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Record is a tracked change to one result line.
type Record struct {
	Line       *vdoc.ResultLine
	TargetFile string
	TargetLine int // 1-based

	// OldText is the line's text before the change: the committed text
	// when the line was already committed this session, otherwise the
	// text captured at session start.
	OldText string

	NewText string
	Delete  bool

	Status Status
	Reason string

	seq uint64
}

// String returns a short description such as "a.txt:7 edit pending".
func (r *Record) String() string {
	kind := "edit"
	if r.Delete {
		kind = "delete"
	}
	return fmt.Sprintf("%s:%d %s %s", r.TargetFile, r.TargetLine, kind, r.Status)
}
