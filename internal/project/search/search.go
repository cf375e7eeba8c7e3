// Package search produces search results in the file:line:text form an
// edit session consumes.
//
// A Searcher scans files line by line for a query and returns one Match per
// matching line, with optional context lines around it. Write renders
// matches the way grep -n does, merging overlapping context windows and
// separating disjoint ones with the context-block separator.
package search

import (
	"errors"
	"fmt"
	"regexp"
)

// Common errors.
var (
	ErrInvalidQuery   = errors.New("invalid search query")
	ErrSearchCanceled = errors.New("search canceled")
)

// Options configures content search behavior.
type Options struct {
	// Query matching
	CaseSensitive bool
	WholeWord     bool
	UseRegex      bool

	// Scope
	IncludePaths []string // Glob patterns to include
	ExcludePaths []string // Glob patterns to exclude

	// Limits
	MaxResults  int
	MaxFileSize int64

	// Context
	ContextLines int // Lines of context around matches
}

// Match is one matching line.
type Match struct {
	// Path is the file path as given to the searcher.
	Path string

	// Line is the 1-based line number.
	Line int

	// Text is the matching line content.
	Text string

	// ContextBefore and ContextAfter hold the surrounding lines.
	ContextBefore []string
	ContextAfter  []string
}

// DefaultOptions returns sensible defaults for content search.
func DefaultOptions() Options {
	return Options{
		CaseSensitive: true,
		MaxFileSize:   10 * 1024 * 1024, // 10 MB
	}
}

// CompileQuery compiles a search query into a regex pattern.
// Returns an error if the query is invalid.
func CompileQuery(query string, opts Options) (*regexp.Regexp, error) {
	if query == "" {
		return nil, ErrInvalidQuery
	}
	pattern := query

	// Escape regex special characters if not using regex mode
	if !opts.UseRegex {
		pattern = regexp.QuoteMeta(pattern)
	}

	if opts.WholeWord {
		pattern = `\b(?:` + pattern + `)\b`
	}

	if !opts.CaseSensitive {
		pattern = "(?i)" + pattern
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	return re, nil
}
