// Package config provides the configuration for wgrep.
//
// Settings come from three places, later ones overriding earlier ones:
//
//  1. Built-in defaults (Default)
//  2. A configuration file, TOML or YAML by extension (Load)
//  3. WGREP_* environment variables (ApplyEnv)
//
// Keys left out of a file keep their default value.
//
// # Basic Usage
//
//	cfg, err := config.Load("wgrep.toml")
//	if err != nil {
//	    return err
//	}
//	parser, err := cfg.Parser()
//
// # Example File
//
//	base_dir = "/home/me/project"
//	protected = true
//	log_level = "info"
//
//	[grammar]
//	match = '^(.+?):([1-9][0-9]*):'
//	context = '^(.+?)-([1-9][0-9]*)-'
//	separator = "--"
package config
