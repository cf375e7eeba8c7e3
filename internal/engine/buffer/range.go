package buffer

import "fmt"

// Range represents a byte range in the buffer.
// Start is inclusive, End is exclusive: [Start, End).
type Range struct {
	Start ByteOffset
	End   ByteOffset
}

// NewRange creates a new Range from start and end offsets.
func NewRange(start, end ByteOffset) Range {
	return Range{Start: start, End: end}
}

// String returns a human-readable representation of the range.
func (r Range) String() string {
	return fmt.Sprintf("[%d:%d)", r.Start, r.End)
}

// Len returns the length of the range in bytes.
func (r Range) Len() ByteOffset {
	return r.End - r.Start
}

// IsEmpty returns true if the range has zero length.
func (r Range) IsEmpty() bool {
	return r.Start == r.End
}

// IsValid returns true if the range is valid (Start <= End).
func (r Range) IsValid() bool {
	return r.Start <= r.End
}

// Contains returns true if the given offset is within the range.
func (r Range) Contains(offset ByteOffset) bool {
	return offset >= r.Start && offset < r.End
}

// Overlaps returns true if this range overlaps with another range.
// An empty range overlaps r when it sits strictly inside it.
func (r Range) Overlaps(other Range) bool {
	if other.IsEmpty() {
		return other.Start > r.Start && other.Start < r.End
	}
	return r.Start < other.End && other.Start < r.End
}

// LineRange is an inclusive range of 0-indexed lines.
type LineRange struct {
	First int
	Last  int
}

// Contains reports whether line falls inside the range.
func (lr LineRange) Contains(line int) bool {
	return line >= lr.First && line <= lr.Last
}
