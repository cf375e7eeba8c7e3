package config

import (
	"os"
	"sort"
	"strconv"
)

// LookupFunc looks up an environment variable.
type LookupFunc func(key string) (string, bool)

// EnvLookup reads the process environment.
var EnvLookup LookupFunc = os.LookupEnv

type envSetter func(c *Config, value string) error

// envMapping maps environment variables to the setting they override.
var envMapping = map[string]envSetter{
	"WGREP_BASE_DIR":        func(c *Config, v string) error { c.BaseDir = v; return nil },
	"WGREP_PROTECTED":       boolSetter(func(c *Config) *bool { return &c.Protected }),
	"WGREP_ALLOW_READ_ONLY": boolSetter(func(c *Config) *bool { return &c.AllowReadOnly }),
	"WGREP_WATCH":           boolSetter(func(c *Config) *bool { return &c.Watch }),
	"WGREP_LOG_LEVEL":       func(c *Config, v string) error { c.LogLevel = v; return nil },
	"WGREP_MATCH_PATTERN":   func(c *Config, v string) error { c.Grammar.Match = v; return nil },
	"WGREP_CONTEXT_PATTERN": func(c *Config, v string) error { c.Grammar.Context = v; return nil },
	"WGREP_SEPARATOR":       func(c *Config, v string) error { c.Grammar.Separator = v; return nil },
	"WGREP_MAX_FILE_SIZE": func(c *Config, v string) error {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return err
		}
		c.MaxFileSize = n
		return nil
	},
}

func boolSetter(field func(*Config) *bool) envSetter {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*field(c) = b
		return nil
	}
}

// EnvVars returns the environment variables ApplyEnv reads, sorted.
func EnvVars() []string {
	names := make([]string, 0, len(envMapping))
	for name := range envMapping {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ApplyEnv overrides settings from the variables found through lookup.
// Empty values are applied as they are. Values that do not parse are
// reported as validation errors and leave the setting unchanged.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	var errs ValidationErrors
	for _, name := range EnvVars() {
		v, ok := lookup(name)
		if !ok {
			continue
		}
		if err := envMapping[name](c, v); err != nil {
			errs = append(errs, &ValidationError{Path: name, Message: err.Error(), Value: v})
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}
