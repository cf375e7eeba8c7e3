package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/dshills/wgrep/internal/project/search"
	"github.com/dshills/wgrep/internal/project/vfs"
)

type multiFlag []string

func (m *multiFlag) String() string { return strings.Join(*m, ",") }

func (m *multiFlag) Set(v string) error {
	*m = append(*m, v)
	return nil
}

// runSearch implements "wgrep search": it writes result lines for PATTERN
// in the given files and directories. Like grep it exits 1 when nothing
// matched.
func runSearch(args []string, stdout, stderr io.Writer) int {
	opts := search.DefaultOptions()
	var configPath string
	var ignoreCase bool
	var include, exclude multiFlag

	flags := flag.NewFlagSet("wgrep search", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.StringVar(&configPath, "config", "", "Path to configuration file (.toml, .yaml)")
	flags.BoolVar(&ignoreCase, "i", false, "Ignore case")
	flags.BoolVar(&opts.WholeWord, "w", false, "Match whole words only")
	flags.BoolVar(&opts.UseRegex, "E", false, "Treat PATTERN as a regular expression")
	flags.IntVar(&opts.ContextLines, "C", 0, "Lines of context around each match")
	flags.IntVar(&opts.MaxResults, "max", 0, "Stop after this many matches (0 for no limit)")
	flags.Var(&include, "include", "Only search files matching this glob (repeatable)")
	flags.Var(&exclude, "exclude", "Skip files matching this glob (repeatable)")

	flags.Usage = func() {
		fmt.Fprintf(stderr, "Usage: wgrep search [options] PATTERN PATH...\n\n")
		fmt.Fprintf(stderr, "Writes file:line:text result lines, ready to be edited and applied.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		flags.PrintDefaults()
	}

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if flags.NArg() < 2 {
		flags.Usage()
		return exitUsage
	}

	cfg, err := loadConfig(&options{configPath: configPath})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	opts.CaseSensitive = !ignoreCase
	opts.MaxFileSize = cfg.MaxFileSize
	opts.IncludePaths = include
	opts.ExcludePaths = exclude

	paths, err := expandPaths(flags.Args()[1:])
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	matches, err := search.NewSearcher(vfs.NewOSFS()).Search(ctx, paths, flags.Arg(0), opts)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	if err := search.Write(stdout, matches, cfg.Grammar.Separator); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	if len(matches) == 0 {
		return exitPartial
	}
	return exitOK
}

// expandPaths replaces directories with the regular files below them,
// skipping hidden directories.
func expandPaths(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				if path != arg && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if d.Type().IsRegular() {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return paths, nil
}
