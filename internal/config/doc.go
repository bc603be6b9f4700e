// Package config loads lens configuration and project review policy.
//
// Tool configuration precedence (highest to lowest):
//  1. CLI flags
//  2. Environment variables (LENS_PROVIDER, LENS_MODEL, LENS_LOG_LEVEL, etc.)
//  3. Config file ($XDG_CONFIG_HOME/lens/config.json)
//  4. Built-in defaults
//
// Use [Load] to obtain a merged [Config], [Save] to write the config file and
// [SetField] to update a single key.
//
// A project policy ([Policy]) lives in the repository, in TOML or YAML, and
// customizes review: priority rules, strategy overrides, false-positive
// patterns, conventions and critical paths. [FindPolicy] locates it and
// [Policy.Compile] turns it into engine options.
package config
