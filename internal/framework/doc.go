// Package framework holds per-framework review profiles and a path and
// manifest heuristic that guesses which framework a change targets.
//
// A Profile is plain data: review guidance text, extra false-positive
// patterns, extra priority rules and extra critical-module globs. Profiles
// are looked up by name; unknown names fall back to the generic profile.
package framework
