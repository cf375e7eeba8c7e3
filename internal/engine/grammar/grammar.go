// Package grammar recognizes and rewrites the headers of search result lines.
//
// A result line starts with a header naming the file and line it came from:
//
//	<path>:<line-number>:<text>   match line
//	<path>-<line-number>-<text>   context line (before/after a match)
//	--                            context-block separator
//
// The exact record grammar belongs to the search tool that produced the
// output, so the Parser is built from regular expressions supplied by the
// caller. Context lines are only trusted next to a match line for the same
// path; Normalize rewrites merged context windows into canonical form.
package grammar

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Default record grammars. Capture group 1 is the path, group 2 the line number.
const (
	DefaultMatchPattern   = `^(.+?):([1-9][0-9]*):`
	DefaultContextPattern = `^(.+?)-([1-9][0-9]*)-`
	DefaultSeparator      = "--"
)

// Separator characters of the two header forms.
const (
	MatchSep   = ':'
	ContextSep = '-'
)

// ErrBadPattern is returned when a grammar pattern lacks the path and line groups.
var ErrBadPattern = errors.New("grammar pattern needs two capture groups (path, line)")

// Header is a parsed result line header.
type Header struct {
	Path    string // file path exactly as printed
	Number  int    // 1-based line number in the file
	Len     int    // byte length of the header, including the trailing separator
	Context bool   // true for context lines
}

// String renders the header canonically.
func (h Header) String() string {
	return Format(h.Path, h.Number, h.Context)
}

// Format renders a canonical header for path and line number.
func Format(path string, number int, context bool) string {
	sep := string(MatchSep)
	if context {
		sep = string(ContextSep)
	}
	return path + sep + strconv.Itoa(number) + sep
}

// Parser recognizes result line headers.
type Parser struct {
	match     *regexp.Regexp
	context   *regexp.Regexp
	separator string
}

// Option configures a Parser.
type Option func(*Parser)

// WithSeparator sets the context-block separator line.
func WithSeparator(sep string) Option {
	return func(p *Parser) {
		if sep != "" {
			p.separator = sep
		}
	}
}

// New builds a Parser from match and context patterns.
// Empty patterns fall back to the defaults.
func New(matchPattern, contextPattern string, opts ...Option) (*Parser, error) {
	if matchPattern == "" {
		matchPattern = DefaultMatchPattern
	}
	if contextPattern == "" {
		contextPattern = DefaultContextPattern
	}

	match, err := compile(matchPattern)
	if err != nil {
		return nil, fmt.Errorf("match pattern: %w", err)
	}
	context, err := compile(contextPattern)
	if err != nil {
		return nil, fmt.Errorf("context pattern: %w", err)
	}

	p := &Parser{match: match, context: context, separator: DefaultSeparator}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Default returns a Parser using the default grep grammar.
func Default() *Parser {
	p, err := New("", "")
	if err != nil {
		panic(err)
	}
	return p
}

func compile(pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	if re.NumSubexp() < 2 {
		return nil, ErrBadPattern
	}
	return re, nil
}

// Parse recognizes the header of line. The match grammar is tried first.
func (p *Parser) Parse(line string) (Header, bool) {
	if h, ok := parseWith(p.match, line); ok {
		return h, true
	}
	if h, ok := parseWith(p.context, line); ok {
		h.Context = true
		return h, true
	}
	return Header{}, false
}

func parseWith(re *regexp.Regexp, line string) (Header, bool) {
	loc := re.FindStringSubmatchIndex(line)
	if loc == nil || loc[2] < 0 || loc[4] < 0 {
		return Header{}, false
	}
	n, err := strconv.Atoi(line[loc[4]:loc[5]])
	if err != nil || n <= 0 {
		return Header{}, false
	}
	return Header{Path: line[loc[2]:loc[3]], Number: n, Len: loc[1]}, true
}

// ParseWithPath parses a line whose path is already known. Either separator
// is accepted on either side of the number, so "path-12:" and "path:12-"
// both parse; the header is a match header only when both are ':'.
func (p *Parser) ParseWithPath(line, path string) (Header, bool) {
	if path == "" || !strings.HasPrefix(line, path) {
		return Header{}, false
	}
	rest := line[len(path):]
	if len(rest) < 3 || !isSep(rest[0]) {
		return Header{}, false
	}

	i := 1
	for i < len(rest) && rest[i] >= '0' && rest[i] <= '9' {
		i++
	}
	if i == 1 || i >= len(rest) || !isSep(rest[i]) {
		return Header{}, false
	}
	n, err := strconv.Atoi(rest[1:i])
	if err != nil || n <= 0 {
		return Header{}, false
	}

	return Header{
		Path:    path,
		Number:  n,
		Len:     len(path) + i + 1,
		Context: rest[0] != MatchSep || rest[i] != MatchSep,
	}, true
}

// IsSeparator reports whether line is a context-block separator.
func (p *Parser) IsSeparator(line string) bool {
	return line == p.separator
}

func isSep(c byte) bool {
	return c == MatchSep || c == ContextSep
}
