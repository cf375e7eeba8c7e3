package search

import (
	"bufio"
	"io"
	"sort"

	"github.com/dshills/wgrep/internal/engine/grammar"
)

type outputLine struct {
	text  string
	match bool
}

// Write renders matches as result lines: "path:N:text" for matching lines
// and "path-N-text" for context lines. Overlapping context windows of one
// file are merged; when there is context, disjoint windows are separated
// by separator.
func Write(w io.Writer, matches []Match, separator string) error {
	bw := bufio.NewWriter(w)
	withContext := false
	for _, m := range matches {
		if len(m.ContextBefore) > 0 || len(m.ContextAfter) > 0 {
			withContext = true
			break
		}
	}

	first := true
	for start := 0; start < len(matches); {
		end := start
		for end < len(matches) && matches[end].Path == matches[start].Path {
			end++
		}
		path := matches[start].Path
		lines := collect(matches[start:end])

		numbers := make([]int, 0, len(lines))
		for n := range lines {
			numbers = append(numbers, n)
		}
		sort.Ints(numbers)

		// A new file always starts a new window.
		prev := -1
		for _, n := range numbers {
			if withContext && !first && (prev < 0 || n != prev+1) {
				bw.WriteString(separator)
				bw.WriteByte('\n')
			}
			l := lines[n]
			bw.WriteString(grammar.Format(path, n, !l.match))
			bw.WriteString(l.text)
			bw.WriteByte('\n')
			prev = n
			first = false
		}
		start = end
	}
	return bw.Flush()
}

func collect(matches []Match) map[int]outputLine {
	lines := make(map[int]outputLine)
	for _, m := range matches {
		for i, text := range m.ContextBefore {
			n := m.Line - len(m.ContextBefore) + i
			if _, ok := lines[n]; !ok {
				lines[n] = outputLine{text: text}
			}
		}
		lines[m.Line] = outputLine{text: m.Text, match: true}
		for i, text := range m.ContextAfter {
			n := m.Line + 1 + i
			if _, ok := lines[n]; !ok {
				lines[n] = outputLine{text: text}
			}
		}
	}
	return lines
}
