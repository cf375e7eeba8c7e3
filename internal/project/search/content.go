package search

import (
	"context"
	stdpath "path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dshills/wgrep/internal/engine/buffer"
	"github.com/dshills/wgrep/internal/project/vfs"
)

// Searcher searches file contents.
type Searcher struct {
	vfs vfs.VFS
}

// NewSearcher creates a searcher reading files from fs.
func NewSearcher(fs vfs.VFS) *Searcher {
	return &Searcher{vfs: fs}
}

// Search searches paths, in order, for query. Files that cannot be read,
// are binary or exceed MaxFileSize are skipped.
func (s *Searcher) Search(ctx context.Context, paths []string, query string, opts Options) ([]Match, error) {
	re, err := CompileQuery(query, opts)
	if err != nil {
		return nil, err
	}

	var results []Match
	for _, path := range paths {
		select {
		case <-ctx.Done():
			return nil, ErrSearchCanceled
		default:
		}

		if !matchesFilters(path, opts) {
			continue
		}

		content, err := s.vfs.ReadFile(path)
		if err != nil {
			continue // Skip files we can't read
		}
		if opts.MaxFileSize > 0 && int64(len(content)) > opts.MaxFileSize {
			continue
		}

		lines, ok := decodeLines(content)
		if !ok {
			continue
		}
		results = append(results, searchLines(path, lines, re, opts)...)

		if opts.MaxResults > 0 && len(results) >= opts.MaxResults {
			results = results[:opts.MaxResults]
			break
		}
	}
	return results, nil
}

// decodeLines returns the lines of content as UTF-8. ok is false for
// binary content.
func decodeLines(content []byte) ([]string, bool) {
	info := vfs.DetectEncodingInfo(content)
	if info.IsBinary {
		return nil, false
	}
	body, _ := vfs.StripBOM(content)
	if data, err := vfs.Decode(body, info.Encoding); err == nil {
		body = data
	}
	if len(body) == 0 {
		return []string{}, true
	}
	text := strings.TrimSuffix(buffer.NormalizeLineEndings(string(body)), "\n")
	return strings.Split(text, "\n"), true
}

func searchLines(path string, lines []string, re *regexp.Regexp, opts Options) []Match {
	var matches []Match
	for i, line := range lines {
		if !re.MatchString(line) {
			continue
		}
		matches = append(matches, Match{
			Path:          path,
			Line:          i + 1,
			Text:          line,
			ContextBefore: contextBefore(lines, i, opts.ContextLines),
			ContextAfter:  contextAfter(lines, i, opts.ContextLines),
		})
	}
	return matches
}

func contextBefore(lines []string, i, count int) []string {
	if count <= 0 {
		return nil
	}
	start := max(i-count, 0)
	if start >= i {
		return nil
	}
	return lines[start:i]
}

func contextAfter(lines []string, i, count int) []string {
	if count <= 0 {
		return nil
	}
	end := min(i+1+count, len(lines))
	if i+1 >= end {
		return nil
	}
	return lines[i+1 : end]
}

func matchesFilters(path string, opts Options) bool {
	if len(opts.IncludePaths) > 0 {
		matched := false
		for _, pattern := range opts.IncludePaths {
			if matchGlob(pattern, path) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	for _, pattern := range opts.ExcludePaths {
		if matchGlob(pattern, path) {
			return false
		}
	}
	return true
}

// matchGlob matches a path against a glob pattern. "**" spans directories;
// other patterns are tried against the base name, then the whole path.
func matchGlob(pattern, filePath string) bool {
	pattern = filepath.ToSlash(pattern)
	filePath = filepath.ToSlash(filePath)

	if strings.Contains(pattern, "**") {
		parts := strings.Split(pattern, "**")

		// "**/vendor/**"
		if len(parts) == 3 && parts[0] == "" && parts[2] == "" {
			return strings.Contains(filePath, parts[1])
		}

		if len(parts) == 2 {
			prefix := strings.TrimSuffix(parts[0], "/")
			suffix := strings.TrimPrefix(parts[1], "/")
			hasPrefix := strings.HasPrefix(filePath, prefix) || strings.HasPrefix(filePath, "/"+prefix)

			switch {
			case prefix == "" && suffix != "":
				return strings.HasSuffix(filePath, suffix) || strings.Contains(filePath, "/"+suffix+"/")
			case suffix == "" && prefix != "":
				return hasPrefix
			case prefix != "" && suffix != "":
				return hasPrefix && strings.HasSuffix(filePath, suffix)
			}
			return true
		}
	}

	baseName := filePath[strings.LastIndex(filePath, "/")+1:]
	if matched, _ := stdpath.Match(pattern, baseName); matched {
		return true
	}
	matched, _ := stdpath.Match(pattern, filePath)
	return matched
}
