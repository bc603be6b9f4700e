package review

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dshills/lens/internal/changeset"
	"github.com/dshills/lens/internal/falsepositive"
	"github.com/dshills/lens/internal/framework"
	"github.com/dshills/lens/internal/priority"
	"github.com/dshills/lens/internal/providers"
	"github.com/dshills/lens/internal/strategy"
)

// Segment names.
const (
	SegmentProtocol  = "consensus-protocol"
	SegmentPatterns  = "false-positive-catalog"
	SegmentFramework = "framework-guidance"
)

const consensusProtocol = `You are a code review panel of two personas working in a single pass.

HAWK is the critical reviewer. Hawk surfaces every plausible concern in the changed code: bugs, security issues, unhandled edge cases, error-handling gaps and type-safety gaps.

OWL is the pragmatic validator. Owl examines each of Hawk's concerns and keeps it only if all of the following hold:
1. It is not explained by one of the known false-positive patterns listed below.
2. It is a genuine risk of a production bug, vulnerability or significant performance problem.
3. It can be reported with high confidence from the code shown.
4. It is worth a reviewer's time to read and act on.

Return only the issues both Hawk and Owl endorse. Report nothing about unchanged code, style preferences or missing tests. If nothing survives Owl's validation, return an empty issues array.

Issue fields:
- file: the path exactly as shown in the file header
- line: the line number in the new version of the file, if known
- type: one of bug, security, performance, maintainability
- confidence: high or medium
- title: a short summary
- description: what is wrong and what breaks in production
- suggestion: a concrete fix, optional`

// ConsensusProtocol returns the fixed protocol instructions.
func ConsensusProtocol() string {
	return consensusProtocol
}

const outputSchema = `Respond with ONLY a JSON object of this exact shape. No markdown, no explanation, no preamble.
{
  "issues": [
    {
      "file": "relative/file/path",
      "line": 1,
      "type": "bug|security|performance|maintainability",
      "confidence": "high|medium",
      "title": "Short descriptive title",
      "description": "What is wrong and why it matters",
      "suggestion": "How to fix it"
    }
  ],
  "consensus": {
    "hawkCount": 0,
    "owlRejected": 0,
    "assessment": "<one sentence overall assessment>",
    "affectedAreas": ["area"]
  }
}`

// FormatCatalog renders the false-positive catalog for the model.
func FormatCatalog(c *falsepositive.Catalog) string {
	var b strings.Builder
	b.WriteString("Known false-positive patterns. Owl rejects any concern that matches one of these:\n")
	patterns := c.Patterns()
	if len(patterns) == 0 {
		b.WriteString("(none)\n")
		return b.String()
	}
	for _, p := range patterns {
		fmt.Fprintf(&b, "- [%s] (%s) %s", p.ID, p.Category, p.Explanation)
		if len(p.Indicators) > 0 {
			quoted := make([]string, len(p.Indicators))
			for i, ind := range p.Indicators {
				quoted[i] = fmt.Sprintf("%q", ind)
			}
			fmt.Fprintf(&b, " Indicators: %s", strings.Join(quoted, ", "))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// FrameworkGuidance renders a profile's review guidance.
func FrameworkGuidance(p framework.Profile) string {
	return fmt.Sprintf("Framework guidance (%s):\n%s", p.Name, p.Instructions)
}

// TaskInput is the per-review data of the task segment.
type TaskInput struct {
	Framework     framework.Detected
	AffectedAreas []string
	Flags         changeset.Flags
	Strategy      strategy.Strategy
	Conventions   string
	Packed        priority.PackResult
}

// BuildTask renders the dynamic task segment.
func BuildTask(in TaskInput) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Framework: %s", in.Framework.Name)
	if in.Framework.Version != "" {
		fmt.Fprintf(&b, " %s", in.Framework.Version)
	}
	fmt.Fprintf(&b, " (detection confidence %.2f)\n", in.Framework.Confidence)
	if len(in.AffectedAreas) > 0 {
		fmt.Fprintf(&b, "Affected areas: %s\n", strings.Join(in.AffectedAreas, ", "))
	}
	fmt.Fprintf(&b, "Risk flags: critical module: %s; tests changed: %s; schema changed: %s; config only: %s\n",
		yesNo(in.Flags.Critical), yesNo(in.Flags.TestChanged), yesNo(in.Flags.SchemaChanged), yesNo(in.Flags.ConfigOnly))
	fmt.Fprintf(&b, "Review strategy: %s\n%s\n", in.Strategy.Name, in.Strategy.Instructions)

	if c := strings.TrimSpace(in.Conventions); c != "" {
		fmt.Fprintf(&b, "\nProject conventions:\n%s\n", c)
	}

	total := len(in.Packed.Included) + len(in.Packed.Excluded)
	fmt.Fprintf(&b, "\nChanged files (%d of %d included, highest priority first):\n", len(in.Packed.Included), total)
	for _, f := range in.Packed.Included {
		fmt.Fprintf(&b, "\n=== %s (%s: %s) +%d -%d ===\n", f.Path, f.Tier, f.Reason, f.Additions, f.Deletions)
		b.WriteString(f.Content)
		if !strings.HasSuffix(f.Content, "\n") {
			b.WriteString("\n")
		}
	}
	if len(in.Packed.Excluded) > 0 {
		b.WriteString("\nNot included (token budget):")
		for _, f := range in.Packed.Excluded {
			fmt.Fprintf(&b, " %s", f.Path)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(outputSchema)
	return b.String()
}

// BuildRequest assembles the completion request: three cacheable context
// segments and the task.
func BuildRequest(catalog *falsepositive.Catalog, profile framework.Profile, task TaskInput) providers.Request {
	return providers.Request{
		Context: []providers.Segment{
			{Name: SegmentProtocol, Text: ConsensusProtocol(), Cacheable: true},
			{Name: SegmentPatterns, Text: FormatCatalog(catalog), Cacheable: true},
			{Name: SegmentFramework, Text: FrameworkGuidance(profile), Cacheable: true},
		},
		Task:      BuildTask(task),
		MaxTokens: task.Strategy.MaxCompletionTokens,
		JSON:      true,
	}
}

// sourceRoots are directories whose children name the real area.
var sourceRoots = map[string]bool{
	"src": true, "lib": true, "app": true, "internal": true, "pkg": true,
	"packages": true, "apps": true,
}

// AffectedAreas returns the sorted distinct areas touched by paths: the
// top-level directory, or the first two levels under a source root. Files at
// the repository root count as "root".
func AffectedAreas(paths []string) []string {
	seen := make(map[string]bool)
	var areas []string
	for _, p := range paths {
		area := "root"
		if parts := strings.Split(p, "/"); len(parts) > 1 {
			area = parts[0]
			if sourceRoots[area] && len(parts) > 2 {
				area = parts[0] + "/" + parts[1]
			}
		}
		if !seen[area] {
			seen[area] = true
			areas = append(areas, area)
		}
	}
	sort.Strings(areas)
	return areas
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
