package main

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/dshills/wgrep/internal/engine"
	"github.com/dshills/wgrep/internal/engine/buffer"
)

// replay turns the line difference between results and edited into
// session mutations. Changed result lines are set to their new text;
// removed result lines are marked for deletion. It returns a description
// of every edit it could not express.
func replay(s *engine.Session, results, edited string) []string {
	results = buffer.NormalizeLineEndings(results)
	edited = buffer.NormalizeLineEndings(edited)

	r := &replayer{
		session: s,
		raw:     strings.Split(results, "\n"),
		edited:  strings.Split(edited, "\n"),
	}

	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(results, edited)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var ai, bi, dels, ins int
	flush := func() {
		if dels > 0 || ins > 0 {
			r.hunk(ai, dels, bi, ins)
		}
		ai += dels
		bi += ins
		dels, ins = 0, 0
	}
	for _, d := range diffs {
		n := countLines(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			flush()
			ai += n
			bi += n
		case diffmatchpatch.DiffDelete:
			dels += n
		case diffmatchpatch.DiffInsert:
			ins += n
		}
	}
	flush()
	return r.problems
}

type replayer struct {
	session  *engine.Session
	raw      []string
	edited   []string
	problems []string
}

// hunk matches the removed result lines raw[ai:ai+dels] with the inserted
// lines edited[bi:bi+ins] by header. A result line whose header reappears
// was edited. One whose header is gone was deleted, unless the hunk also
// holds inserted lines nothing matched: then the header was rewritten and
// the line is left alone.
func (r *replayer) hunk(ai, dels, bi, ins int) {
	used := make([]bool, ins)
	parser := r.session.Document().Parser()

	var gone []*engine.ResultLine
	for k := 0; k < dels; k++ {
		i := ai + k
		line := r.session.Line(i)
		if line == nil {
			// Decoration: accept it unchanged, ignore it otherwise.
			for j := 0; j < ins; j++ {
				if !used[j] && r.edited[bi+j] == r.raw[i] {
					used[j] = true
					break
				}
			}
			continue
		}

		header := line.HeaderText()
		if h, ok := parser.ParseWithPath(r.raw[i], line.Path); ok {
			header = r.raw[i][:h.Len]
		}

		match := -1
		for j := 0; j < ins; j++ {
			if !used[j] && strings.HasPrefix(r.edited[bi+j], header) {
				match = j
				break
			}
		}
		if match < 0 {
			gone = append(gone, line)
			continue
		}
		used[match] = true
		text := strings.TrimPrefix(r.edited[bi+match], header)
		if err := r.session.SetLine(line, text); err != nil {
			r.problems = append(r.problems, fmt.Sprintf("%s: %v", line, err))
		}
	}

	var extra []int
	for j, u := range used {
		if !u {
			extra = append(extra, bi+j+1)
		}
	}

	for _, line := range gone {
		if len(extra) > 0 {
			r.problems = append(r.problems, fmt.Sprintf("%s: header changed; line left alone", line))
			continue
		}
		if err := r.session.MarkDeletion(line); err != nil {
			r.problems = append(r.problems, fmt.Sprintf("%s: %v", line, err))
		}
	}
	for _, n := range extra {
		r.problems = append(r.problems,
			fmt.Sprintf("edited line %d does not belong to a result line; ignored", n))
	}
}

func countLines(text string) int {
	if text == "" {
		return 0
	}
	n := strings.Count(text, "\n")
	if !strings.HasSuffix(text, "\n") {
		n++
	}
	return n
}
