package grammar

import "strings"

// Line is one classified line of search output.
type Line struct {
	Text   string
	Header *Header // nil for decoration (banners, separators, summaries)
}

// Scan classifies search output line by line and rewrites context regions
// into canonical form.
//
// Output is split into blocks at separator lines. Inside a block every match
// line anchors a window: neighbouring lines that carry the match's path are
// context lines, numbered consecutively from the match. Those lines are
// rewritten as "path-N-" (or kept as "path:N:" when both separators are
// ':'), and a number that breaks the consecutive sequence is replaced by the
// expected one. This undoes the ambiguity of merged -A/-B/-C windows, where
// a path containing "-N-" cannot be told apart from a context header without
// knowing the path. Lines not attributable to a match stay decoration.
func (p *Parser) Scan(lines []string) []Line {
	out := make([]Line, len(lines))
	for i, text := range lines {
		out[i].Text = text
	}

	start := 0
	for i := 0; i <= len(lines); i++ {
		if i == len(lines) || p.IsSeparator(lines[i]) {
			p.scanBlock(out, start, i)
			start = i + 1
		}
	}
	return out
}

// Normalize returns the canonical text of lines; see Scan.
func (p *Parser) Normalize(lines []string) []string {
	scanned := p.Scan(lines)
	out := make([]string, len(scanned))
	for i, l := range scanned {
		out[i] = l.Text
	}
	return out
}

func (p *Parser) scanBlock(out []Line, start, end int) {
	for i := start; i < end; i++ {
		if h, ok := parseWith(p.match, out[i].Text); ok {
			h := h
			out[i].Header = &h
		}
	}
	for i := start; i < end; i++ {
		if out[i].Header != nil && p.neighbourContext(out, start, end, i) {
			out[i].Header = nil
		}
	}

	for i := start; i < end; i++ {
		anchor := out[i].Header
		if anchor == nil || anchor.Context {
			continue
		}
		// Walk backward, then forward, until a line cannot be attributed.
		for j := i - 1; j >= start && out[j].Header == nil; j-- {
			if !p.attach(&out[j], anchor.Path, anchor.Number-(i-j)) {
				break
			}
		}
		for j := i + 1; j < end && out[j].Header == nil; j++ {
			if !p.attach(&out[j], anchor.Path, anchor.Number+(j-i)) {
				break
			}
		}
	}
}

// neighbourContext reports whether the match header of out[i] is really
// the context line of the nearest match line before or after it. A context
// line whose text holds ":N:" parses as a match line with a longer path,
// such as "a.txt-2-x:1:y" next to "a.txt:3:foo".
func (p *Parser) neighbourContext(out []Line, start, end, i int) bool {
	h := out[i].Header
	check := func(j int) bool {
		anchor := out[j].Header
		if anchor.Context || anchor.Path == h.Path || !strings.HasPrefix(h.Path, anchor.Path) {
			return false
		}
		c, ok := p.parseKnown(out[i].Text, anchor.Path)
		return ok && c.Context && c.Number == anchor.Number+(i-j)
	}
	for j := i - 1; j >= start; j-- {
		if out[j].Header != nil {
			if check(j) {
				return true
			}
			break
		}
	}
	for j := i + 1; j < end; j++ {
		if out[j].Header != nil {
			return check(j)
		}
	}
	return false
}

// parseKnown parses line as a line of path: the context grammar first,
// then either separator around the number.
func (p *Parser) parseKnown(line, path string) (Header, bool) {
	if h, ok := parseWith(p.context, line); ok && h.Path == path {
		h.Context = true
		return h, true
	}
	return p.ParseWithPath(line, path)
}

// attach canonicalizes l as a line of path numbered expected. Lines in the
// configured context grammar are kept as written.
func (p *Parser) attach(l *Line, path string, expected int) bool {
	if expected <= 0 {
		return false
	}
	if h, ok := parseWith(p.context, l.Text); ok && h.Path == path && h.Number == expected {
		h.Context = true
		l.Header = &h
		return true
	}
	h, ok := p.ParseWithPath(l.Text, path)
	if !ok {
		return false
	}

	canonical := Header{Path: path, Number: expected, Context: h.Context}
	prefix := canonical.String()
	canonical.Len = len(prefix)

	l.Text = prefix + l.Text[h.Len:]
	l.Header = &canonical
	return true
}
