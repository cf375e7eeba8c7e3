package engine

import (
	"github.com/google/uuid"

	"github.com/dshills/wgrep/internal/engine/tracking"
	"github.com/dshills/wgrep/internal/engine/vdoc"
)

// Event is what happened to a result line.
type Event uint8

const (
	// EventTracked is sent when a line gets a pending change or a rejected
	// change is edited again.
	EventTracked Event = iota
	// EventReverted is sent when a line is edited back to its baseline.
	EventReverted
	// EventApplied is sent when a change was written to its source document.
	EventApplied
	// EventRejected is sent when a change could not be applied.
	EventRejected
	// EventDiscarded is sent when a pending change was thrown away.
	EventDiscarded
	// EventRenumbered is sent when the header of a line got a new number.
	EventRenumbered
)

// String returns a human-readable name for the event.
func (e Event) String() string {
	switch e {
	case EventTracked:
		return "tracked"
	case EventReverted:
		return "reverted"
	case EventApplied:
		return "applied"
	case EventRejected:
		return "rejected"
	case EventDiscarded:
		return "discarded"
	case EventRenumbered:
		return "renumbered"
	default:
		return "unknown"
	}
}

// Notification reports a status change of one result line.
type Notification struct {
	Event   Event
	Session uuid.UUID
	Line    *vdoc.ResultLine
	Path    string
	Number  int

	// Status is the status of the line's change, Done if it has none.
	Status tracking.Status
	Reason string
}

// Subscribe registers a handler for notifications. Handlers run
// synchronously, in registration order.
func (s *Session) Subscribe(handler func(Notification)) {
	s.subscribers = append(s.subscribers, handler)
}

// OnClosed registers a handler called once when the session closes.
func (s *Session) OnClosed(handler func()) {
	s.onClosed = append(s.onClosed, handler)
}

func (s *Session) notify(ev Event, line *vdoc.ResultLine, status tracking.Status, reason string) {
	if len(s.subscribers) == 0 || line == nil {
		return
	}
	n := Notification{
		Event:   ev,
		Session: s.id,
		Line:    line,
		Path:    line.Path,
		Number:  line.Number,
		Status:  status,
		Reason:  reason,
	}
	handlers := make([]func(Notification), len(s.subscribers))
	copy(handlers, s.subscribers)
	for _, h := range handlers {
		h(n)
	}
}

func (s *Session) notifyRecord(ev Event, r *tracking.Record) {
	s.notify(ev, r.Line, r.Status, r.Reason)
}
