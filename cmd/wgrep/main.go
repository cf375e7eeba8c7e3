// Package main is the entry point for wgrep.
//
// wgrep takes saved search output and a copy of it that the user edited,
// and writes the edits back to the files the search results came from.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dshills/wgrep/internal/config"
	"github.com/dshills/wgrep/internal/engine"
	"github.com/dshills/wgrep/internal/logging"
	"github.com/dshills/wgrep/internal/project/filestore"
	"github.com/dshills/wgrep/internal/project/vfs"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Exit statuses.
const (
	exitOK      = 0
	exitPartial = 1
	exitUsage   = 2
)

var errUsage = errors.New("usage")

type options struct {
	configPath string
	baseDir    string
	force      bool
	dryRun     bool
	logLevel   string
	results    string
	edited     string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) > 0 && args[0] == "search" {
		return runSearch(args[1:], stdout, stderr)
	}

	opts, err := parseFlags(args, stdout, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if opts == nil {
		return exitOK
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	log := logging.New(logging.Config{Level: cfg.Level(), Output: stderr, Prefix: "wgrep"})

	results, err := os.ReadFile(opts.results)
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to read results: %v\n", err)
		return exitUsage
	}
	edited, err := os.ReadFile(opts.edited)
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to read edited copy: %v\n", err)
		return exitUsage
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := filestore.NewFileStore(vfs.NewOSFS(),
		filestore.WithMaxFileSize(cfg.MaxFileSize),
		filestore.WithLogger(log),
	)
	if cfg.Watch {
		w := filestore.NewWatcher(store, log)
		if err := w.Start(); err != nil {
			log.Warn("file watching disabled: %v", err)
		} else {
			defer w.Stop()
		}
	}

	parser, err := cfg.Parser()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	session, err := engine.NewSession(string(results),
		engine.WithParser(parser),
		engine.WithProtected(cfg.Protected),
		engine.WithStore(store, cfg.BaseDir, cfg.AllowReadOnly),
		engine.WithLogger(log),
	)
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to load results: %v\n", err)
		return exitUsage
	}
	defer session.Close()

	problems := replay(session, string(results), string(edited))
	for _, p := range problems {
		fmt.Fprintf(stderr, "warning: %s\n", p)
	}

	status := exitOK
	if len(problems) > 0 {
		status = exitPartial
	}

	records := session.Records()
	if len(records) == 0 {
		fmt.Fprintln(stdout, "no changes")
		return status
	}

	if opts.dryRun {
		for _, r := range records {
			fmt.Fprintln(stdout, describe(r))
		}
		return status
	}

	sum, err := session.Exit(ctx, true)
	for _, res := range sum.Results {
		if res.Status == engine.Done {
			fmt.Fprintf(stdout, "applied %s:%d\n", res.Record.TargetFile, res.Record.TargetLine)
		} else {
			fmt.Fprintf(stdout, "rejected %s:%d: %s\n", res.Record.TargetFile, res.Record.TargetLine, res.Reason)
		}
	}
	fmt.Fprintf(stdout, "%d applied, %d not applied\n", sum.Applied, sum.Unapplied)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		for _, doc := range store.DirtyDocuments() {
			fmt.Fprintf(stderr, "not saved: %s\n", doc.Path())
		}
		return exitPartial
	}
	if sum.Unapplied > 0 {
		return exitPartial
	}
	return status
}

func describe(r *engine.Record) string {
	if r.Delete {
		return fmt.Sprintf("%s:%d: delete %q", r.TargetFile, r.TargetLine, r.OldText)
	}
	return fmt.Sprintf("%s:%d: %q -> %q", r.TargetFile, r.TargetLine, r.OldText, r.NewText)
}

func loadConfig(opts *options) (*config.Config, error) {
	cfg, err := config.LoadFrom(vfs.NewOSFS(), opts.configPath, config.EnvLookup)
	if err != nil {
		return nil, err
	}
	if opts.baseDir != "" {
		cfg.BaseDir = opts.baseDir
	}
	if opts.force {
		cfg.AllowReadOnly = true
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseFlags returns nil options when the invocation only asked for the
// version.
func parseFlags(args []string, stdout, stderr io.Writer) (*options, error) {
	var opts options
	var showVersion bool

	fs := flag.NewFlagSet("wgrep", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", "", "Path to configuration file (.toml, .yaml)")
	fs.StringVar(&opts.configPath, "c", "", "Path to configuration file (shorthand)")
	fs.StringVar(&opts.baseDir, "base", "", "Directory relative result paths are resolved against")
	fs.BoolVar(&opts.force, "force", false, "Apply changes to read-only files")
	fs.BoolVar(&opts.dryRun, "dry-run", false, "Print the changes without applying them")
	fs.BoolVar(&opts.dryRun, "n", false, "Print the changes without applying them (shorthand)")
	fs.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.BoolVar(&showVersion, "version", false, "Show version information")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "wgrep - apply edited search results to their files\n\n")
		fmt.Fprintf(stderr, "Usage: wgrep [options] RESULTS EDITED\n")
		fmt.Fprintf(stderr, "       wgrep search [options] PATTERN PATH...\n\n")
		fmt.Fprintf(stderr, "RESULTS is saved grep output (file:line:text), EDITED a copy of it\n")
		fmt.Fprintf(stderr, "with the text after the headers changed or whole lines removed.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  wgrep search foo . > out; cp out edit; $EDITOR edit; wgrep out edit\n")
		fmt.Fprintf(stderr, "  grep -rn foo . > out         Output of grep -n works too\n")
		fmt.Fprintf(stderr, "  wgrep -n out edit            Show what would change\n")
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, err
		}
		// The flag set already reported it.
		return nil, errUsage
	}

	if showVersion {
		fmt.Fprintf(stdout, "wgrep %s\n", version)
		fmt.Fprintf(stdout, "Commit: %s\n", commit)
		fmt.Fprintf(stdout, "Built: %s\n", date)
		return nil, nil
	}

	if fs.NArg() != 2 {
		fs.Usage()
		return nil, errUsage
	}
	opts.results = fs.Arg(0)
	opts.edited = fs.Arg(1)
	return &opts, nil
}
