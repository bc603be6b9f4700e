package changeset

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bluekeyes/go-gitdiff/gitdiff"
)

// ChangedFile is one file of a change, as seen by the reviewer.
type ChangedFile struct {
	Path      string `json:"path"`
	Content   string `json:"-"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
}

// SkippedFile records a file dropped during ingest.
type SkippedFile struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Set is the result of parsing a diff.
type Set struct {
	Files     []ChangedFile
	Skipped   []SkippedFile
	DiffBytes int
}

// Paths returns the paths of the kept files in order.
func (s Set) Paths() []string {
	paths := make([]string, len(s.Files))
	for i, f := range s.Files {
		paths[i] = f.Path
	}
	return paths
}

// Options controls which files are kept.
type Options struct {
	Include      []string
	Exclude      []string
	MaxFileBytes int
}

// generatedPatterns match files that are produced by tools rather than
// written by hand.
var generatedPatterns = []string{
	"**/*.pb.go",
	"**/*_gen.go",
	"**/*.gen.go",
	"**/*.min.js",
	"**/*.min.css",
	"**/package-lock.json",
	"**/yarn.lock",
	"**/pnpm-lock.yaml",
	"**/go.sum",
	"**/Cargo.lock",
	"**/dist/**",
	"vendor/**",
	"node_modules/**",
}

// Parse reads a unified diff and returns the files worth reviewing.
func Parse(diff string, opts Options) (Set, error) {
	var set Set
	if strings.TrimSpace(diff) == "" {
		return set, nil
	}

	parsed, _, err := gitdiff.Parse(strings.NewReader(diff))
	if err != nil {
		return Set{}, fmt.Errorf("parsing diff: %w", err)
	}

	for _, f := range parsed {
		path := f.NewName
		if path == "" {
			path = f.OldName
		}

		if reason := skipReason(f, path, opts); reason != "" {
			set.Skipped = append(set.Skipped, SkippedFile{Path: path, Reason: reason})
			continue
		}

		content, adds, dels := render(f)
		if opts.MaxFileBytes > 0 && len(content) > opts.MaxFileBytes {
			set.Skipped = append(set.Skipped, SkippedFile{Path: path, Reason: "exceeds max file bytes"})
			continue
		}

		set.Files = append(set.Files, ChangedFile{
			Path:      path,
			Content:   content,
			Additions: adds,
			Deletions: dels,
		})
		set.DiffBytes += len(content)
	}

	return set, nil
}

func skipReason(f *gitdiff.File, path string, opts Options) string {
	switch {
	case f.IsBinary:
		return "binary"
	case f.IsDelete:
		return "deleted"
	case len(opts.Include) > 0 && !MatchesAny(path, opts.Include):
		return "not included"
	case MatchesAny(path, opts.Exclude):
		return "excluded"
	case MatchesAny(path, generatedPatterns):
		return "generated"
	}
	return ""
}

// render writes the file's fragments back out as unified hunks and counts
// added and deleted lines.
func render(f *gitdiff.File) (string, int, int) {
	var b strings.Builder
	var adds, dels int
	for _, frag := range f.TextFragments {
		fmt.Fprintf(&b, "@@ -%d,%d +%d,%d @@", frag.OldPosition, frag.OldLines, frag.NewPosition, frag.NewLines)
		if frag.Comment != "" {
			b.WriteString(" ")
			b.WriteString(frag.Comment)
		}
		b.WriteString("\n")
		for _, line := range frag.Lines {
			switch line.Op {
			case gitdiff.OpAdd:
				adds++
				b.WriteString("+")
			case gitdiff.OpDelete:
				dels++
				b.WriteString("-")
			default:
				b.WriteString(" ")
			}
			b.WriteString(line.Line)
			if !strings.HasSuffix(line.Line, "\n") {
				b.WriteString("\n")
			}
		}
	}
	return b.String(), adds, dels
}

// MatchesAny returns true if the path matches any of the given glob patterns.
// A leading "**/" matches at any depth and a trailing "/**" matches anything
// below a directory.
func MatchesAny(path string, patterns []string) bool {
	for _, pattern := range patterns {
		if pattern == "**/*" || pattern == "**" {
			return true
		}
		if matched, err := filepath.Match(pattern, path); err == nil && matched {
			return true
		}
		if dir, ok := strings.CutSuffix(pattern, "/**"); ok {
			dir = strings.TrimPrefix(dir, "**/")
			if strings.HasPrefix(path, dir+"/") || strings.Contains(path, "/"+dir+"/") {
				return true
			}
			continue
		}
		clean := strings.TrimPrefix(pattern, "**/")
		if clean != pattern {
			if matched, err := filepath.Match(clean, filepath.Base(path)); err == nil && matched {
				return true
			}
			if matched, err := filepath.Match(clean, path); err == nil && matched {
				return true
			}
		}
	}
	return false
}
