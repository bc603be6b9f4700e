package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dshills/lens/internal/findings"
	"github.com/dshills/lens/internal/review"
)

// TextWriter outputs a human-readable text report.
type TextWriter struct{}

func (t *TextWriter) Write(w io.Writer, results ...*review.Result) error {
	ew := &errWriter{w: w}
	for i, r := range results {
		if i > 0 {
			ew.println("")
		}
		writeText(ew, r)
	}
	return ew.err
}

func writeText(ew *errWriter, r *review.Result) {
	ew.println(title(r))
	if r.Source.Repo.Root != "" {
		ew.printf("Repository: %s (branch: %s)\n", r.Source.Repo.Root, r.Source.Repo.Branch)
	}
	ew.printf("Framework: %s | Strategy: %s | Files: %d reviewed, %d excluded\n",
		frameworkLabel(r), r.Metadata.Tier, r.Metadata.FilesReviewed, r.Metadata.FilesExcluded)
	ew.println(strings.Repeat("─", 60))

	if r.Skipped || r.ParseFailed {
		ew.printf("%s\n", r.Notice)
		return
	}

	ew.printf("Issues: %d total", r.Summary.TotalIssues)
	if r.Summary.CriticalIssues > 0 {
		ew.printf(" (%d critical)", r.Summary.CriticalIssues)
	}
	ew.println("")
	ew.printf("Assessment: %s\n", r.Summary.OverallAssessment)
	if len(r.Summary.AffectedAreas) > 0 {
		ew.printf("Affected areas: %s\n", strings.Join(r.Summary.AffectedAreas, ", "))
	}
	ew.println(strings.Repeat("─", 60))

	if len(r.Issues) == 0 {
		ew.println("\nNo issues found. Looks good!")
	}

	grouped := groupByKind(r.Issues)
	for _, kind := range kindOrder {
		issues := grouped[kind]
		if len(issues) == 0 {
			continue
		}
		ew.printf("\n%s %s\n", kindIcon(kind), strings.ToUpper(string(kind)))
		ew.println(strings.Repeat("─", 40))

		for _, is := range issues {
			ew.printf("\n  %s  %s\n", location(is), is.Title)
			ew.printf("  Confidence: %s\n", is.Confidence)
			for _, line := range wrapText(is.Description, 70) {
				ew.printf("    %s\n", line)
			}
			if is.Suggestion != "" {
				ew.println("  Suggestion:")
				for _, line := range wrapText(is.Suggestion, 70) {
					ew.printf("    %s\n", line)
				}
			}
		}
	}

	if n := len(r.Removed); n > 0 {
		ew.printf("\nRemoved as likely false positives: %d\n", n)
		for _, rm := range r.Removed {
			ew.printf("  - %s (%s, %.0f%%)\n", rm.Issue.Title, rm.PatternID, rm.Confidence*100)
		}
	}

	ew.printf("\n%s\n", strings.Repeat("─", 60))
	ew.printf("Completed in %dms | %d tokens", r.Metadata.DurationMs, r.Metadata.TokensUsed)
	if r.Metadata.CacheReadTokens > 0 {
		ew.printf(" (%d cached)", r.Metadata.CacheReadTokens)
	}
	if r.Metadata.CostUSD > 0 {
		ew.printf(" | $%.4f", r.Metadata.CostUSD)
	}
	ew.println("")
}

// errWriter wraps an io.Writer and captures the first error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, s)
}

func kindIcon(k findings.Kind) string {
	switch k {
	case findings.KindSecurity:
		return "[!!]"
	case findings.KindBug:
		return "[!]"
	case findings.KindPerformance:
		return "[~]"
	default:
		return "[-]"
	}
}

func itoa(n int) string { return strconv.Itoa(n) }

func wrapText(text string, width int) []string {
	if len(text) <= width {
		return []string{text}
	}
	var lines []string
	words := strings.Fields(text)
	var current strings.Builder
	for _, word := range words {
		if current.Len()+len(word)+1 > width && current.Len() > 0 {
			lines = append(lines, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}
	return lines
}
