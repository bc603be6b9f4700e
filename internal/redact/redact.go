package redact

import (
	"regexp"

	"github.com/dshills/lens/internal/changeset"
)

// Placeholder replaces every redacted secret.
const Placeholder = "[REDACTED]"

// PathPlaceholder replaces the whole content of a file redacted by path.
const PathPlaceholder = Placeholder + " (file content redacted by path policy)\n"

// secretPatterns are regex heuristics for common secret types.
var secretPatterns = []*regexp.Regexp{
	// Generic API keys (long hex/base64 strings after common key patterns)
	regexp.MustCompile(`(?i)(api[_-]?key|apikey|api[_-]?secret)\s*[:=]\s*["']?([A-Za-z0-9/+=_-]{20,})["']?`),
	// AWS access key IDs
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
	// AWS secret access keys
	regexp.MustCompile(`(?i)(aws[_-]?secret[_-]?access[_-]?key)\s*[:=]\s*["']?([A-Za-z0-9/+=]{40})["']?`),
	// Secrets, tokens and passwords in quoted assignments
	regexp.MustCompile(`(?i)(secret|token|password|passwd|credential)\s*[:=]\s*["']([^"']{8,})["']`),
	regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9._-]{20,}`),
	// JWTs
	regexp.MustCompile(`eyJ[A-Za-z0-9_-]{10,}\.eyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}`),
	regexp.MustCompile(`-----BEGIN\s+((RSA|EC|OPENSSH|DSA)\s+)?PRIVATE KEY-----`),
	// Database URLs with inline credentials
	regexp.MustCompile(`(?i)\b(postgres(ql)?|mysql|mongodb(\+srv)?|redis|amqp)://[^\s:/@]+:[^\s@]+@`),
	regexp.MustCompile(`gh[pousr]_[A-Za-z0-9_]{36,}`),
	regexp.MustCompile(`xox[bporas]-[A-Za-z0-9-]{10,}`),
	regexp.MustCompile(`sk-ant-[A-Za-z0-9_-]{20,}`),
	regexp.MustCompile(`sk-[A-Za-z0-9]{20,}`),
	// Google API keys
	regexp.MustCompile(`AIza[0-9A-Za-z_-]{35}`),
	// Long hex values assigned to key-like names
	regexp.MustCompile(`(?i)(key|secret|token)\s*[:=]\s*["']?[0-9a-f]{32,}["']?`),
}

// Secrets replaces detected secrets in text with [REDACTED] and returns the
// number of replacements.
func Secrets(text string) (string, int) {
	n := 0
	for _, pat := range secretPatterns {
		text = pat.ReplaceAllStringFunc(text, func(string) string {
			n++
			return Placeholder
		})
	}
	return text, n
}

// Options selects what Files redacts.
type Options struct {
	Secrets bool
	// Paths are globs whose files are blanked entirely.
	Paths []string
}

// Report counts what Files changed.
type Report struct {
	Secrets int      `json:"secrets"`
	Paths   []string `json:"paths,omitempty"`
}

// Files returns copies of files with secrets and path-matched contents
// redacted. The input slice is not modified.
func Files(files []changeset.ChangedFile, opts Options) ([]changeset.ChangedFile, Report) {
	var rep Report
	out := make([]changeset.ChangedFile, len(files))
	for i, f := range files {
		switch {
		case changeset.MatchesAny(f.Path, opts.Paths):
			f.Content = PathPlaceholder
			rep.Paths = append(rep.Paths, f.Path)
		case opts.Secrets:
			var n int
			f.Content, n = Secrets(f.Content)
			rep.Secrets += n
		}
		out[i] = f
	}
	return out, rep
}
