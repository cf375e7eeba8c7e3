package grammar

import (
	"errors"
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	p := Default()

	tests := []struct {
		name   string
		line   string
		want   Header
		wantOK bool
	}{
		{
			name:   "match line",
			line:   "a.txt:3:foo",
			want:   Header{Path: "a.txt", Number: 3, Len: 8},
			wantOK: true,
		},
		{
			name:   "context line",
			line:   "src/a.go-12-  return nil",
			want:   Header{Path: "src/a.go", Number: 12, Len: 12, Context: true},
			wantOK: true,
		},
		{
			name:   "match text containing colons",
			line:   "a.txt:7:key: value",
			want:   Header{Path: "a.txt", Number: 7, Len: 8},
			wantOK: true,
		},
		{
			name:   "empty trailing text",
			line:   "a.txt:1:",
			want:   Header{Path: "a.txt", Number: 1, Len: 8},
			wantOK: true,
		},
		{name: "separator", line: "--"},
		{name: "banner", line: "grep -nH foo *"},
		{name: "zero line number", line: "a.txt:0:foo"},
		{name: "missing number", line: "a.txt::foo"},
		{name: "empty", line: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := p.Parse(tt.line)
			if ok != tt.wantOK {
				t.Fatalf("Parse(%q) ok = %v, want %v", tt.line, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.line, got, tt.want)
			}
		})
	}
}

func TestParseWithPath(t *testing.T) {
	p := Default()

	tests := []struct {
		name        string
		line        string
		path        string
		wantNumber  int
		wantLen     int
		wantContext bool
		wantOK      bool
	}{
		{"match", "a-1-b.txt:4:x", "a-1-b.txt", 4, 12, false, true},
		{"context", "a-1-b.txt-5-x", "a-1-b.txt", 5, 12, true, true},
		{"mixed colon dash", "a.txt:6-x", "a.txt", 6, 8, true, true},
		{"mixed dash colon", "a.txt-6:x", "a.txt", 6, 8, true, true},
		{"other path", "b.txt:6:x", "a.txt", 0, 0, false, false},
		{"no number", "a.txt--x", "a.txt", 0, 0, false, false},
		{"no closing separator", "a.txt:12", "a.txt", 0, 0, false, false},
		{"empty path", "a.txt:1:x", "", 0, 0, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, ok := p.ParseWithPath(tt.line, tt.path)
			if ok != tt.wantOK {
				t.Fatalf("ParseWithPath ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if h.Number != tt.wantNumber || h.Len != tt.wantLen || h.Context != tt.wantContext {
				t.Errorf("ParseWithPath = %+v, want number=%d len=%d context=%v",
					h, tt.wantNumber, tt.wantLen, tt.wantContext)
			}
		})
	}
}

func TestFormat(t *testing.T) {
	if got := Format("a.txt", 3, false); got != "a.txt:3:" {
		t.Errorf("Format match = %q", got)
	}
	if got := Format("a.txt", 3, true); got != "a.txt-3-" {
		t.Errorf("Format context = %q", got)
	}

	h := Header{Path: "dir/x.go", Number: 10, Context: true}
	if h.String() != "dir/x.go-10-" {
		t.Errorf("Header.String() = %q", h.String())
	}
}

func TestNewBadPattern(t *testing.T) {
	if _, err := New(`^(.+):`, ""); !errors.Is(err, ErrBadPattern) {
		t.Errorf("New with one group: err = %v, want ErrBadPattern", err)
	}
	if _, err := New("", `^([`); err == nil {
		t.Error("New with invalid regexp should fail")
	}
}

func TestCustomSeparator(t *testing.T) {
	p, err := New("", "", WithSeparator("=="))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !p.IsSeparator("==") || p.IsSeparator("--") {
		t.Error("custom separator not honoured")
	}
}

func TestNormalize(t *testing.T) {
	p := Default()

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "canonical output untouched",
			in:   []string{"a.txt-2-before", "a.txt:3:foo", "a.txt-4-after"},
			want: []string{"a.txt-2-before", "a.txt:3:foo", "a.txt-4-after"},
		},
		{
			name: "path containing dash number dash",
			in:   []string{"a-1-b.txt-3-ctx", "a-1-b.txt:4:hit", "a-1-b.txt-5-ctx"},
			want: []string{"a-1-b.txt-3-ctx", "a-1-b.txt:4:hit", "a-1-b.txt-5-ctx"},
		},
		{
			name: "mixed separators rewritten to context",
			in:   []string{"a.txt:3:foo", "a.txt:4-bar"},
			want: []string{"a.txt:3:foo", "a.txt-4-bar"},
		},
		{
			name: "broken sequence renumbered",
			in:   []string{"a.txt-7-x", "a.txt:3:foo", "a.txt-9-y"},
			want: []string{"a.txt-2-x", "a.txt:3:foo", "a.txt-4-y"},
		},
		{
			name: "blocks split at separator",
			in:   []string{"a.txt:3:foo", "--", "a.txt-9-y", "b.txt:1:z"},
			want: []string{"a.txt:3:foo", "--", "a.txt-9-y", "b.txt:1:z"},
		},
		{
			name: "context text holding a match header",
			in:   []string{"a.txt-2-m[a:1:b]", "a.txt:3:foo", "a.txt-4-x:9:y"},
			want: []string{"a.txt-2-m[a:1:b]", "a.txt:3:foo", "a.txt-4-x:9:y"},
		},
		{
			name: "decoration untouched",
			in:   []string{"grep -nH foo *", "a.txt:1:foo", "", "Grep finished"},
			want: []string{"grep -nH foo *", "a.txt:1:foo", "", "Grep finished"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Normalize(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Normalize() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestScanClassifies(t *testing.T) {
	p := Default()
	lines := p.Scan([]string{
		"grep -nH foo *",
		"a.txt-2-ctx",
		"a.txt:3:foo",
		"--",
		"stray-5-line",
	})

	kinds := []string{"decoration", "context", "match", "decoration", "decoration"}
	for i, l := range lines {
		var got string
		switch {
		case l.Header == nil:
			got = "decoration"
		case l.Header.Context:
			got = "context"
		default:
			got = "match"
		}
		if got != kinds[i] {
			t.Errorf("line %d (%q) = %s, want %s", i, l.Text, got, kinds[i])
		}
	}

	if h := lines[1].Header; h.Number != 2 || h.Len != len("a.txt-2-") {
		t.Errorf("context header = %+v", h)
	}
}

func TestScanContextLinesAttached(t *testing.T) {
	tests := []struct {
		name string
		p    *Parser
		in   []string
		want []Header
	}{
		{
			name: "context text holding a match header",
			p:    Default(),
			in:   []string{"a.txt-2-m[a:1:b]", "a.txt:3:foo"},
			want: []Header{
				{Path: "a.txt", Number: 2, Len: len("a.txt-2-"), Context: true},
				{Path: "a.txt", Number: 3, Len: len("a.txt:3:")},
			},
		},
		{
			name: "custom context grammar",
			p:    mustNew(t, `^(.+?):([0-9]+):`, `^(.+?)=([0-9]+)=`),
			in:   []string{"a.go=2=ctx", "a.go:3:match", "a.go=4=after"},
			want: []Header{
				{Path: "a.go", Number: 2, Len: len("a.go=2="), Context: true},
				{Path: "a.go", Number: 3, Len: len("a.go:3:")},
				{Path: "a.go", Number: 4, Len: len("a.go=4="), Context: true},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines := tt.p.Scan(tt.in)
			for i, l := range lines {
				if l.Text != tt.in[i] {
					t.Errorf("line %d rewritten to %q", i, l.Text)
				}
				if l.Header == nil {
					t.Errorf("line %d (%q) not attached", i, l.Text)
					continue
				}
				if *l.Header != tt.want[i] {
					t.Errorf("line %d header = %+v, want %+v", i, *l.Header, tt.want[i])
				}
			}
		})
	}
}

func mustNew(t *testing.T, match, context string) *Parser {
	t.Helper()
	p, err := New(match, context)
	if err != nil {
		t.Fatal(err)
	}
	return p
}
