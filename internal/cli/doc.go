// Package cli wires together the Cobra command tree for the lens binary.
//
// It defines the root command and all subcommands (review, plan, patterns,
// config, models, hook, version), binds flags, loads the tool configuration
// and the project review policy, runs the review engine and returns
// deterministic exit codes for CI gating.
package cli
