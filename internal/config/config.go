package config

import (
	"fmt"

	"github.com/dshills/wgrep/internal/engine/grammar"
	"github.com/dshills/wgrep/internal/logging"
)

// DefaultMaxFileSize is the largest source file opened by default.
const DefaultMaxFileSize int64 = 10 * 1024 * 1024

// Config holds every wgrep setting.
type Config struct {
	// BaseDir is the directory relative result paths are resolved against.
	// Empty means the working directory.
	BaseDir string `toml:"base_dir" yaml:"base_dir"`

	// Protected keeps result headers read-only and forbids line breaks.
	Protected bool `toml:"protected" yaml:"protected"`

	// AllowReadOnly lets commits modify documents of read-only files.
	AllowReadOnly bool `toml:"allow_read_only" yaml:"allow_read_only"`

	MaxFileSize int64  `toml:"max_file_size" yaml:"max_file_size"`
	LogLevel    string `toml:"log_level" yaml:"log_level"`

	// Watch reloads clean source documents changed on disk.
	Watch bool `toml:"watch" yaml:"watch"`

	Grammar GrammarConfig `toml:"grammar" yaml:"grammar"`
}

// GrammarConfig configures the result line grammar.
type GrammarConfig struct {
	Match     string `toml:"match" yaml:"match"`
	Context   string `toml:"context" yaml:"context"`
	Separator string `toml:"separator" yaml:"separator"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Protected:   true,
		MaxFileSize: DefaultMaxFileSize,
		LogLevel:    "warn",
		Grammar: GrammarConfig{
			Match:     grammar.DefaultMatchPattern,
			Context:   grammar.DefaultContextPattern,
			Separator: grammar.DefaultSeparator,
		},
	}
}

// Validate checks the configuration. All problems are reported, joined.
func (c *Config) Validate() error {
	var errs ValidationErrors

	if c.MaxFileSize < 0 {
		errs = append(errs, &ValidationError{
			Path:    "max_file_size",
			Message: "must not be negative",
			Value:   c.MaxFileSize,
		})
	}
	if _, ok := logging.ParseLevel(c.LogLevel); !ok {
		errs = append(errs, &ValidationError{
			Path:    "log_level",
			Message: "must be one of debug, info, warn, error",
			Value:   c.LogLevel,
		})
	}
	if c.Grammar.Separator == "" {
		errs = append(errs, &ValidationError{
			Path:    "grammar.separator",
			Message: "must not be empty",
			Value:   c.Grammar.Separator,
		})
	} else if _, err := c.Parser(); err != nil {
		errs = append(errs, &ValidationError{
			Path:    "grammar",
			Message: err.Error(),
			Value:   fmt.Sprintf("match=%q context=%q", c.Grammar.Match, c.Grammar.Context),
		})
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Parser builds the result line parser described by the grammar settings.
func (c *Config) Parser() (*grammar.Parser, error) {
	return grammar.New(c.Grammar.Match, c.Grammar.Context, grammar.WithSeparator(c.Grammar.Separator))
}

// Level returns the configured log level, LevelWarn if it is invalid.
func (c *Config) Level() logging.Level {
	if l, ok := logging.ParseLevel(c.LogLevel); ok {
		return l
	}
	return logging.LevelWarn
}
