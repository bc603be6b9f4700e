package output

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/dshills/lens/internal/findings"
	"github.com/dshills/lens/internal/review"
)

// MarkdownWriter outputs a PR-comment-friendly markdown report.
type MarkdownWriter struct{}

func (m *MarkdownWriter) Write(w io.Writer, results ...*review.Result) error {
	ew := &errWriter{w: w}
	for i, r := range results {
		if i > 0 {
			ew.println("\n---\n")
		}
		writeMarkdown(ew, r)
	}
	return ew.err
}

func writeMarkdown(ew *errWriter, r *review.Result) {
	ew.printf("## %s\n\n", title(r))

	if r.Skipped {
		ew.printf("> :warning: %s\n\n", r.Notice)
		writeMarkdownFooter(ew, r)
		return
	}
	if r.ParseFailed {
		ew.printf("> :warning: The review response could not be parsed (%s). No issues are reported.\n\n", r.Notice)
		writeMarkdownFooter(ew, r)
		return
	}

	ew.printf("**%s**\n\n", r.Summary.OverallAssessment)

	grouped := groupByKind(r.Issues)
	ew.println("| Type | Count |")
	ew.println("|------|-------|")
	for _, kind := range kindOrder {
		ew.printf("| %s | %d |\n", kindLabel(kind), len(grouped[kind]))
	}
	ew.printf("| **Total** | **%d** |\n\n", r.Summary.TotalIssues)

	if len(r.Summary.AffectedAreas) > 0 {
		ew.printf("Affected areas: %s\n\n", "`"+strings.Join(r.Summary.AffectedAreas, "`, `")+"`")
	}

	if len(r.Issues) == 0 {
		ew.println("No issues found. :white_check_mark:\n")
	}

	for _, kind := range kindOrder {
		issues := grouped[kind]
		if len(issues) == 0 {
			continue
		}
		ew.printf("<details>\n<summary>%s %s (%d)</summary>\n\n", mdKindIcon(kind), strings.ToUpper(string(kind)), len(issues))
		for _, is := range issues {
			ew.printf("### %s\n\n", is.Title)
			ew.printf("**`%s`** | Confidence: %s\n\n", location(is), is.Confidence)
			ew.printf("%s\n\n", is.Description)
			if is.Suggestion != "" {
				ew.printf("**Suggestion:**\n\n")
				if looksLikeCode(is.Suggestion) {
					ew.printf("```%s\n%s\n```\n\n", inferLang(is.File), is.Suggestion)
				} else {
					ew.printf("> %s\n\n", strings.ReplaceAll(is.Suggestion, "\n", "\n> "))
				}
			}
			ew.printf("---\n\n")
		}
		ew.printf("</details>\n\n")
	}

	if n := len(r.Removed); n > 0 {
		ew.printf("<details>\n<summary>Removed as likely false positives (%d)</summary>\n\n", n)
		for _, rm := range r.Removed {
			ew.printf("- %s (`%s`, %.0f%%): %s\n", rm.Issue.Title, rm.PatternID, rm.Confidence*100, rm.Reason)
		}
		ew.printf("\n</details>\n\n")
	}

	writeMarkdownFooter(ew, r)
}

func writeMarkdownFooter(ew *errWriter, r *review.Result) {
	ew.printf("*Framework: %s | Strategy: %s | %d files reviewed, %d excluded | %d tokens | %dms*\n",
		frameworkLabel(r), r.Metadata.Tier, r.Metadata.FilesReviewed, r.Metadata.FilesExcluded,
		r.Metadata.TokensUsed, r.Metadata.DurationMs)
}

func kindLabel(k findings.Kind) string {
	s := string(k)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func mdKindIcon(k findings.Kind) string {
	switch k {
	case findings.KindSecurity:
		return ":red_circle:"
	case findings.KindBug:
		return ":orange_circle:"
	case findings.KindPerformance:
		return ":yellow_circle:"
	default:
		return ":white_circle:"
	}
}

func looksLikeCode(s string) bool {
	codeIndicators := []string{
		"func ", "if ", "for ", "return ", "var ", "const ",
		"def ", "class ", "import ", "from ",
		"{", "}", "=>", "->", ":=", "==",
		"()", "[];",
	}
	for _, indicator := range codeIndicators {
		if strings.Contains(s, indicator) {
			return true
		}
	}
	return false
}

var langByExt = map[string]string{
	".go":   "go",
	".py":   "python",
	".js":   "javascript",
	".ts":   "typescript",
	".tsx":  "tsx",
	".jsx":  "jsx",
	".rs":   "rust",
	".java": "java",
	".kt":   "kotlin",
	".rb":   "ruby",
	".cpp":  "cpp",
	".c":    "c",
	".cs":   "csharp",
	".php":  "php",
	".sh":   "bash",
	".sql":  "sql",
	".yaml": "yaml",
	".yml":  "yaml",
	".json": "json",
	".tf":   "hcl",
}

func inferLang(path string) string {
	return langByExt[strings.ToLower(filepath.Ext(path))]
}

// Markdown renders results as markdown.
func Markdown(results ...*review.Result) string {
	var b strings.Builder
	_ = (&MarkdownWriter{}).Write(&b, results...)
	return b.String()
}
