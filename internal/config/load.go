package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/dshills/wgrep/internal/project/vfs"
)

// FileSystem is the file access Load needs. vfs.VFS implementations
// satisfy it.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
}

// Load reads the configuration file at path from the OS file system,
// applies WGREP_* environment overrides and validates the result.
func Load(path string) (*Config, error) {
	return LoadFrom(vfs.NewOSFS(), path, EnvLookup)
}

// LoadFrom reads the configuration file at path from fsys, applies the
// overrides found through lookup (nil skips them) and validates the result.
// An empty path yields the defaults.
func LoadFrom(fsys FileSystem, path string, lookup LookupFunc) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := fsys.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
			}
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := Decode(path, data, cfg); err != nil {
			return nil, err
		}
	}

	if lookup != nil {
		if err := cfg.ApplyEnv(lookup); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Decode parses data into cfg, choosing the format from the extension of
// path. Keys missing from data leave cfg unchanged; unknown keys fail.
func Decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return decodeTOML(path, data, cfg)
	case ".yaml", ".yml":
		return decodeYAML(path, data, cfg)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

func decodeTOML(path string, data []byte, cfg *Config) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		pe := &ParseError{Path: path, Message: err.Error(), Err: err}
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			pe.Line, pe.Column = derr.Position()
		}
		return pe
	}
	return nil
}

func decodeYAML(path string, data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil // empty document
		}
		return &ParseError{Path: path, Message: err.Error(), Err: err}
	}
	return nil
}
