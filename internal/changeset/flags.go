package changeset

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Flags are path-derived risk signals for a change.
type Flags struct {
	Critical      bool `json:"criticalModule"`
	ConfigOnly    bool `json:"configOnly"`
	TestChanged   bool `json:"testChanged"`
	SchemaChanged bool `json:"schemaChanged"`
}

var (
	criticalPathRe = regexp.MustCompile(`(?i)(^|/)(auth|authentication|payments?|billing|security)(/|$)`)
	testPathRe     = regexp.MustCompile(`(?i)(_test\.go$|\.(test|spec)\.[a-z]+$|(^|/)(tests?|__tests__|spec)/|(^|/)test_[^/]+\.py$)`)
	schemaPathRe   = regexp.MustCompile(`(?i)((^|/)migrations?/|\.sql$|(^|/)schema\.[a-z]+$|\.prisma$|\.proto$|\.graphql$)`)
)

var configExts = map[string]bool{
	".md": true, ".markdown": true, ".txt": true, ".rst": true,
	".json": true, ".yaml": true, ".yml": true, ".toml": true,
	".ini": true, ".cfg": true, ".conf": true, ".env": true,
	".lock": true, ".properties": true, ".xml": true,
}

var configNames = map[string]bool{
	"dockerfile": true, "makefile": true, ".gitignore": true,
	".dockerignore": true, ".editorconfig": true, "license": true,
	"codeowners": true,
}

// IsConfigOrDoc reports whether a path is a configuration or documentation
// file.
func IsConfigOrDoc(path string) bool {
	base := strings.ToLower(filepath.Base(path))
	if configNames[base] {
		return true
	}
	if strings.HasPrefix(path, "docs/") || strings.Contains(path, "/docs/") {
		return true
	}
	return configExts[strings.ToLower(filepath.Ext(base))]
}

// IsCritical reports whether a path touches a security-sensitive module,
// either by the built-in path segments or one of the extra globs.
func IsCritical(path string, extra []string) bool {
	return criticalPathRe.MatchString(path) || MatchesAny(path, extra)
}

// ComputeFlags derives risk flags from the changed paths. extraCritical are
// additional globs counted as critical modules.
func ComputeFlags(paths []string, extraCritical []string) Flags {
	var f Flags
	if len(paths) == 0 {
		return f
	}
	f.ConfigOnly = true
	for _, p := range paths {
		if IsCritical(p, extraCritical) {
			f.Critical = true
		}
		if testPathRe.MatchString(p) {
			f.TestChanged = true
		}
		if schemaPathRe.MatchString(p) {
			f.SchemaChanged = true
		}
		if !IsConfigOrDoc(p) {
			f.ConfigOnly = false
		}
	}
	return f
}
