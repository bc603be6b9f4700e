package output

import (
	"sort"
	"strings"

	"github.com/dshills/lens/internal/findings"
	"github.com/dshills/lens/internal/review"
)

// kindOrder is the display order of issue kinds, most severe first.
var kindOrder = []findings.Kind{
	findings.KindSecurity,
	findings.KindBug,
	findings.KindPerformance,
	findings.KindMaintainability,
}

// groupByKind groups issues by kind, sorted by file then line within a kind.
func groupByKind(issues []findings.Issue) map[findings.Kind][]findings.Issue {
	m := make(map[findings.Kind][]findings.Issue)
	for _, is := range issues {
		m[is.Kind] = append(m[is.Kind], is)
	}
	for _, group := range m {
		sort.SliceStable(group, func(i, j int) bool {
			if group[i].File != group[j].File {
				return group[i].File < group[j].File
			}
			return lineOf(group[i]) < lineOf(group[j])
		})
	}
	return m
}

func lineOf(is findings.Issue) int {
	if is.Line == nil {
		return 0
	}
	return *is.Line
}

func location(is findings.Issue) string {
	if is.Line == nil {
		return is.File
	}
	return is.File + ":" + itoa(*is.Line)
}

func title(r *review.Result) string {
	var b strings.Builder
	b.WriteString("Lens Code Review")
	if r.Source.Mode != "" {
		b.WriteString(" (" + r.Source.Mode)
		if r.Source.Range != "" {
			b.WriteString(" " + shortRange(r.Source.Range))
		}
		b.WriteString(")")
	}
	return b.String()
}

// shortRange abbreviates full commit SHAs.
func shortRange(s string) string {
	if len(s) == 40 && !strings.ContainsAny(s, ".~^") {
		return s[:12]
	}
	return s
}

func frameworkLabel(r *review.Result) string {
	s := string(r.Framework.Name)
	if r.Framework.Version != "" {
		s += " " + r.Framework.Version
	}
	return s
}
