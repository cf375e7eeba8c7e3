package buffer

import "testing"

func TestTransformOffset(t *testing.T) {
	tests := []struct {
		name   string
		offset ByteOffset
		edit   Edit
		want   ByteOffset
	}{
		{"edit before", 10, NewInsert(2, "abc"), 13},
		{"delete before", 10, NewDelete(2, 5), 7},
		{"edit after", 10, NewInsert(12, "abc"), 10},
		{"replace starting at offset", 10, NewEdit(NewRange(10, 14), "z"), 10},
		{"edit spans offset", 10, NewEdit(NewRange(8, 12), "xy"), 10},
		{"delete spans offset", 10, NewDelete(8, 12), 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TransformOffset(tt.offset, tt.edit); got != tt.want {
				t.Errorf("TransformOffset = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestTransformOffsetSticky(t *testing.T) {
	insert := NewInsert(4, "xyz")

	if got := TransformOffsetSticky(4, insert, true); got != 4 {
		t.Errorf("sticky offset moved to %d", got)
	}
	if got := TransformOffsetSticky(4, insert, false); got != 7 {
		t.Errorf("non-sticky offset = %d, want 7", got)
	}
}

func TestMarkFollowsLineAcrossDeletes(t *testing.T) {
	b := NewBufferFromString("l1\nl2\nl3\nl4\nl5\n")

	m5 := b.MarkLine(4)
	m3 := b.MarkLine(2)

	if err := b.DeleteLine(1); err != nil {
		t.Fatal(err)
	}
	if line, ok := m5.Line(); !ok || line != 3 {
		t.Errorf("m5 at %d (ok=%v), want 3", line, ok)
	}
	if b.LineText(3) != "l5" {
		t.Errorf("line 3 = %q", b.LineText(3))
	}

	if err := b.ReplaceLine(1, "third"); err != nil {
		t.Fatal(err)
	}
	if line, ok := m3.Line(); !ok || line != 1 {
		t.Errorf("m3 at %d (ok=%v), want 1", line, ok)
	}
}

func TestMarkOnEmptyLineStaysOnReplace(t *testing.T) {
	b := NewBufferFromString("a\n\nc")
	m := b.MarkLine(1)

	if err := b.ReplaceLine(1, "filled"); err != nil {
		t.Fatal(err)
	}
	if line, ok := m.Line(); !ok || line != 1 {
		t.Errorf("mark at %d (ok=%v), want 1", line, ok)
	}
}

func TestMarkInvalidatedWhenTextRemoved(t *testing.T) {
	b := NewBufferFromString("a\nb")
	m := b.MarkLine(1)

	if err := b.DeleteLine(1); err != nil {
		t.Fatal(err)
	}
	if _, ok := m.Line(); ok {
		t.Error("mark on a removed last line should not report a line start")
	}
}

func TestMarkRelease(t *testing.T) {
	b := NewBufferFromString("a\nb")
	m := b.MarkLine(0)

	if b.MarkCount() != 1 {
		t.Fatalf("MarkCount = %d", b.MarkCount())
	}
	m.Release()
	m.Release()
	if b.MarkCount() != 0 {
		t.Errorf("MarkCount after release = %d", b.MarkCount())
	}
	if !m.Released() {
		t.Error("Released should report true")
	}
	if _, ok := m.Line(); ok {
		t.Error("released mark should not resolve")
	}
	if b.MarkLine(5) != nil {
		t.Error("MarkLine out of range should be nil")
	}
}
