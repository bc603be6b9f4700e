package falsepositive

import (
	"fmt"
	"regexp"
	"strings"
)

// Pattern is one known false-positive class.
type Pattern struct {
	ID          string
	Category    string
	Severity    string
	Explanation string
	// Content, when set, is tested against the reviewed file's content.
	Content *regexp.Regexp
	// ContextMarkers are substrings expected in the file content when the
	// pattern applies.
	ContextMarkers []string
	// Indicators are lowercase phrases looked up in the issue text.
	Indicators []string
}

// Validate reports structural problems with a pattern.
func (p Pattern) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("false-positive pattern: id is required")
	}
	if len(p.Indicators) == 0 {
		return fmt.Errorf("false-positive pattern %q: at least one indicator phrase is required", p.ID)
	}
	for _, ind := range p.Indicators {
		if strings.TrimSpace(ind) == "" {
			return fmt.Errorf("false-positive pattern %q: empty indicator phrase", p.ID)
		}
	}
	return nil
}

// maxScore is the highest raw score the pattern can reach.
func (p Pattern) maxScore() float64 {
	m := float64(len(p.Indicators))
	if p.Content != nil {
		m += contentWeight
	}
	if len(p.ContextMarkers) > 0 {
		m += contextWeight
	}
	return m
}

// Builtin returns the built-in catalog in evaluation order. Each call
// returns fresh values.
func Builtin() []Pattern {
	return []Pattern{
		{
			ID:          "debug-logging",
			Category:    "logging",
			Severity:    "low",
			Explanation: "Console or debug logging in scripts, CLIs and development code is usually intentional.",
			Content:     regexp.MustCompile(`console\.(log|debug|info)\(|fmt\.Print(ln|f)?\(|print\(`),
			Indicators:  []string{"remove console.log", "console.log statement", "debug logging left"},
		},
		{
			ID:          "magic-number",
			Category:    "style",
			Severity:    "low",
			Explanation: "Small literal numbers in obvious contexts do not need named constants.",
			Indicators:  []string{"magic number", "extract to a constant", "hardcoded number"},
		},
		{
			ID:          "missing-documentation",
			Category:    "documentation",
			Severity:    "low",
			Explanation: "Requests for more comments or docstrings are not production risks.",
			Indicators:  []string{"add comments", "missing documentation", "add jsdoc", "lacks documentation"},
		},
		{
			ID:          "compiler-caught",
			Category:    "tooling",
			Severity:    "medium",
			Explanation: "Unused imports and variables are reported by the compiler or linter in CI.",
			Indicators:  []string{"unused import", "unused variable", "imported but not used"},
		},
		{
			ID:          "formatting",
			Category:    "style",
			Severity:    "low",
			Explanation: "Formatting is enforced by the project's formatter.",
			Indicators:  []string{"line too long", "inconsistent indentation", "trailing whitespace", "formatting issue"},
		},
		{
			ID:          "todo-comment",
			Category:    "style",
			Severity:    "low",
			Explanation: "TODO and FIXME comments are tracked work, not defects.",
			Indicators:  []string{"todo comment", "fixme comment", "address the todo"},
		},
		{
			ID:             "test-credentials",
			Category:       "security",
			Severity:       "high",
			Explanation:    "Credentials in test fixtures and mocks are placeholders, not leaked secrets.",
			ContextMarkers: []string{"describe(", "it(", "func Test", "def test_", "@Test", "mock", "fixture"},
			Indicators:     []string{"hardcoded password", "hardcoded credential", "hardcoded secret"},
		},
		{
			ID:             "any-in-tests",
			Category:       "type-safety",
			Severity:       "medium",
			Explanation:    "Loose typing in test doubles is acceptable.",
			ContextMarkers: []string{"describe(", "it(", "test(", "jest.", "vi."},
			Indicators:     []string{"use of any", "avoid any", "'any' type"},
		},
		{
			ID:          "missing-tests",
			Category:    "testing",
			Severity:    "medium",
			Explanation: "Requests for more tests are process feedback, not defects in the change.",
			Indicators:  []string{"add unit tests", "missing tests", "no test coverage"},
		},
		{
			ID:          "redundant-validation",
			Category:    "defensive-coding",
			Severity:    "medium",
			Explanation: "Extra checks on values already validated upstream add noise without reducing risk.",
			Content:     regexp.MustCompile(`(?i)(\.parse\(|validate|schema|if err != nil)`),
			Indicators:  []string{"add a null check", "add optional chaining", "defensive check"},
		},
	}
}
