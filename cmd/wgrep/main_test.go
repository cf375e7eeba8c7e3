package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const source = "1\n2\nfoo\n4\n5\n6\nbar\n8\n"

type workspace struct {
	dir     string
	results string
	edited  string
}

func newWorkspace(t *testing.T, src, results, edited string) *workspace {
	t.Helper()
	dir := t.TempDir()
	w := &workspace{
		dir:     dir,
		results: filepath.Join(dir, "results.grep"),
		edited:  filepath.Join(dir, "edited.grep"),
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte(src), 0o644))
	require.NoError(t, os.WriteFile(w.results, []byte(results), 0o644))
	require.NoError(t, os.WriteFile(w.edited, []byte(edited), 0o644))
	return w
}

func (w *workspace) source(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(w.dir, "a.txt"))
	require.NoError(t, err)
	return string(data)
}

func runArgs(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunAppliesEdits(t *testing.T) {
	w := newWorkspace(t, source, "a.txt:3:foo\na.txt:7:bar\n", "a.txt:7:baz\n")

	code, out, errOut := runArgs(t, "-base", w.dir, w.results, w.edited)

	require.Equal(t, exitOK, code, errOut)
	require.Equal(t, "1\n2\n4\n5\n6\nbaz\n8\n", w.source(t))
	require.Contains(t, out, "applied a.txt:3")
	require.Contains(t, out, "applied a.txt:7")
	require.Contains(t, out, "2 applied, 0 not applied")
}

func TestRunDryRun(t *testing.T) {
	w := newWorkspace(t, source, "a.txt:3:foo\na.txt:7:bar\n", "a.txt:7:baz\n")

	code, out, _ := runArgs(t, "-dry-run", "-base", w.dir, w.results, w.edited)

	require.Equal(t, exitOK, code)
	require.Equal(t, source, w.source(t))
	require.Contains(t, out, `a.txt:3: delete "foo"`)
	require.Contains(t, out, `a.txt:7: "bar" -> "baz"`)
}

func TestRunStaleContent(t *testing.T) {
	w := newWorkspace(t, "1\n2\nfoo\n4\n5\n6\nchanged\n8\n",
		"a.txt:3:foo\na.txt:7:bar\n",
		"a.txt:3:FOO\na.txt:7:baz\n")

	code, out, _ := runArgs(t, "-base", w.dir, w.results, w.edited)

	require.Equal(t, exitPartial, code)
	require.Equal(t, "1\n2\nFOO\n4\n5\n6\nchanged\n8\n", w.source(t))
	require.Contains(t, out, "rejected a.txt:7: Buffer was changed after grep")
	require.Contains(t, out, "1 applied, 1 not applied")
}

func TestRunNoChanges(t *testing.T) {
	results := "a.txt:3:foo\na.txt:7:bar\n"
	w := newWorkspace(t, source, results, results)

	code, out, _ := runArgs(t, "-base", w.dir, w.results, w.edited)

	require.Equal(t, exitOK, code)
	require.Contains(t, out, "no changes")
	require.Equal(t, source, w.source(t))
}

func TestRunHeaderChanged(t *testing.T) {
	w := newWorkspace(t, source, "a.txt:3:foo\n", "a.txt:9:foo\n")

	code, _, errOut := runArgs(t, "-base", w.dir, w.results, w.edited)

	require.Equal(t, exitPartial, code)
	require.Contains(t, errOut, "header changed")
	require.Equal(t, source, w.source(t))
}

func TestRunConfigFile(t *testing.T) {
	w := newWorkspace(t, source, "a.txt:7:bar\n", "a.txt:7:qux\n")
	cfg := filepath.Join(w.dir, "wgrep.toml")
	require.NoError(t, os.WriteFile(cfg, []byte(fmt.Sprintf("base_dir = %q\n", w.dir)), 0o644))

	code, _, errOut := runArgs(t, "-config", cfg, w.results, w.edited)

	require.Equal(t, exitOK, code, errOut)
	require.Equal(t, "1\n2\nfoo\n4\n5\n6\nqux\n8\n", w.source(t))
}

func TestRunMissingSource(t *testing.T) {
	w := newWorkspace(t, source, "gone.txt:1:x\n", "gone.txt:1:y\n")

	code, out, _ := runArgs(t, "-base", w.dir, w.results, w.edited)

	require.Equal(t, exitPartial, code)
	require.Contains(t, out, "rejected gone.txt:1: file not found")
}

func TestRunReadOnlySource(t *testing.T) {
	tests := []struct {
		name     string
		force    bool
		wantCode int
		wantOut  string
		wantSrc  string
	}{
		{"refused", false, exitPartial, "rejected a.txt:7: file is not writable", source},
		{"forced", true, exitOK, "applied a.txt:7", "1\n2\nfoo\n4\n5\n6\nbaz\n8\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newWorkspace(t, source, "a.txt:7:bar\n", "a.txt:7:baz\n")
			src := filepath.Join(w.dir, "a.txt")
			require.NoError(t, os.Chmod(src, 0o444))

			args := []string{"-base", w.dir, w.results, w.edited}
			if tt.force {
				args = append([]string{"-force"}, args...)
			}
			code, out, errOut := runArgs(t, args...)

			require.Equal(t, tt.wantCode, code, errOut)
			require.Contains(t, out, tt.wantOut)
			require.Equal(t, tt.wantSrc, w.source(t))
			info, err := os.Stat(src)
			require.NoError(t, err)
			require.Equal(t, os.FileMode(0o444), info.Mode().Perm())
		})
	}
}

func TestRunUsageErrors(t *testing.T) {
	w := newWorkspace(t, source, "a.txt:3:foo\n", "a.txt:3:foo\n")

	tests := []struct {
		name string
		args []string
	}{
		{"no arguments", nil},
		{"one argument", []string{w.results}},
		{"unknown flag", []string{"-bogus", w.results, w.edited}},
		{"missing results", []string{filepath.Join(w.dir, "nope"), w.edited}},
		{"missing edited", []string{w.results, filepath.Join(w.dir, "nope")}},
		{"bad log level", []string{"-log-level", "loud", w.results, w.edited}},
		{"missing config", []string{"-config", filepath.Join(w.dir, "nope.toml"), w.results, w.edited}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, errOut := runArgs(t, tt.args...)
			require.Equal(t, exitUsage, code)
			require.NotEmpty(t, errOut)
		})
	}
}

func TestRunVersion(t *testing.T) {
	code, out, _ := runArgs(t, "-version")
	require.Equal(t, exitOK, code)
	require.Contains(t, out, "wgrep dev")
}

func TestRunHelp(t *testing.T) {
	code, _, errOut := runArgs(t, "-h")
	require.Equal(t, exitOK, code)
	require.Contains(t, errOut, "Usage: wgrep")
}

func TestSearchThenApply(t *testing.T) {
	src := t.TempDir()
	a := filepath.Join(src, "a.txt")
	require.NoError(t, os.WriteFile(a, []byte(source), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(src, ".git"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, ".git", "x"), []byte("foo\n"), 0o644))

	code, out, errOut := runArgs(t, "search", "foo", src)
	require.Equal(t, exitOK, code, errOut)
	require.Equal(t, a+":3:foo\n", out)

	work := t.TempDir()
	results := filepath.Join(work, "results")
	edited := filepath.Join(work, "edited")
	require.NoError(t, os.WriteFile(results, []byte(out), 0o644))
	require.NoError(t, os.WriteFile(edited, []byte(strings.Replace(out, ":3:foo", ":3:FOO", 1)), 0o644))

	code, _, errOut = runArgs(t, results, edited)
	require.Equal(t, exitOK, code, errOut)
	data, err := os.ReadFile(a)
	require.NoError(t, err)
	require.Equal(t, "1\n2\nFOO\n4\n5\n6\nbar\n8\n", string(data))
}

func TestSearchContext(t *testing.T) {
	src := t.TempDir()
	a := filepath.Join(src, "a.txt")
	require.NoError(t, os.WriteFile(a, []byte(source), 0o644))

	code, out, _ := runArgs(t, "search", "-C", "1", "-i", "FOO", a)
	require.Equal(t, exitOK, code)
	require.Equal(t, a+"-2-2\n"+a+":3:foo\n"+a+"-4-4\n", out)
}

func TestSearchNoMatch(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.txt"), []byte(source), 0o644))

	code, out, _ := runArgs(t, "search", "nothing-here", src)
	require.Equal(t, exitPartial, code)
	require.Empty(t, out)
}

func TestSearchUsageErrors(t *testing.T) {
	tests := [][]string{
		{"search"},
		{"search", "foo"},
		{"search", "foo", filepath.Join(t.TempDir(), "missing")},
		{"search", "-E", "(", t.TempDir()},
	}
	for _, args := range tests {
		code, _, _ := runArgs(t, args...)
		require.Equal(t, exitUsage, code, "args %v", args)
	}
}
