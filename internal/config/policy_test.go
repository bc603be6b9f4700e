package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dshills/lens/internal/priority"
	"github.com/dshills/lens/internal/strategy"
)

const tomlPolicy = `
conventions = "Handlers return typed errors."
critical_paths = ["internal/billing/**"]

[[priority_rules]]
match = "migrations/"
tier = "critical"
reason = "schema migration"
prepend = true

[[priority_rules]]
pattern = '\.sh$'
tier = "low"

[strategies.small]
max_completion_tokens = 8000
instructions = "Focus on concurrency."

[false_positives]
disable = ["magic-number"]

[[false_positives.patterns]]
id = "ignore-feature-flags"
category = "config"
explanation = "Feature flag checks are intentional."
indicators = ["Feature Flag", "remove the flag"]
content = 'flags\.Enabled\('
`

const yamlPolicy = `
conventions: Handlers return typed errors.
critical_paths: ["internal/billing/**"]
priority_rules:
  - match: migrations/
    tier: critical
    reason: schema migration
    prepend: true
  - pattern: '\.sh$'
    tier: low
strategies:
  small:
    max_completion_tokens: 8000
    instructions: Focus on concurrency.
false_positives:
  disable: [magic-number]
  patterns:
    - id: ignore-feature-flags
      category: config
      explanation: Feature flag checks are intentional.
      indicators: ["Feature Flag", "remove the flag"]
      content: 'flags\.Enabled\('
`

func TestParsePolicy_FormatsAgree(t *testing.T) {
	fromTOML, err := ParsePolicyTOML([]byte(tomlPolicy))
	if err != nil {
		t.Fatalf("ParsePolicyTOML: %v", err)
	}
	fromYAML, err := ParsePolicyYAML([]byte(yamlPolicy))
	if err != nil {
		t.Fatalf("ParsePolicyYAML: %v", err)
	}
	if diff := cmp.Diff(fromTOML, fromYAML); diff != "" {
		t.Errorf("TOML and YAML policies differ (-toml +yaml):\n%s", diff)
	}
}

func TestCompile(t *testing.T) {
	p, err := ParsePolicyTOML([]byte(tomlPolicy))
	if err != nil {
		t.Fatal(err)
	}
	c, err := p.Compile()
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	if len(c.PrependedRules) != 1 || c.PrependedRules[0].Contains != "migrations/" || c.PrependedRules[0].Tier != priority.TierCritical {
		t.Errorf("PrependedRules = %+v", c.PrependedRules)
	}
	if len(c.Rules) != 1 || c.Rules[0].Pattern == nil || !c.Rules[0].Matches("deploy/run.sh") {
		t.Errorf("Rules = %+v", c.Rules)
	}
	if c.Rules[0].Reason != "project rule" {
		t.Errorf("default reason = %q", c.Rules[0].Reason)
	}
	want := strategy.Override{MaxCompletionTokens: strategy.Int(8000), Instructions: "Focus on concurrency."}
	if diff := cmp.Diff(want, c.Overrides[strategy.Small]); diff != "" {
		t.Errorf("small override mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"magic-number"}, c.Disabled); diff != "" {
		t.Errorf("Disabled mismatch (-want +got):\n%s", diff)
	}
	if len(c.Patterns) != 1 {
		t.Fatalf("Patterns = %d, want 1", len(c.Patterns))
	}
	pat := c.Patterns[0]
	if diff := cmp.Diff([]string{"feature flag", "remove the flag"}, pat.Indicators); diff != "" {
		t.Errorf("indicators not normalized (-want +got):\n%s", diff)
	}
	if pat.Content == nil || !pat.Content.MatchString("if flags.Enabled(ctx)") {
		t.Error("content regexp not compiled")
	}
	if c.Conventions != "Handlers return typed errors." {
		t.Errorf("Conventions = %q", c.Conventions)
	}
	if got := len(c.EngineOptions()); got != 7 {
		t.Errorf("EngineOptions = %d, want 7", got)
	}
}

func TestCompile_ExplicitZeroOverride(t *testing.T) {
	tests := []struct {
		name  string
		parse func([]byte) (Policy, error)
		body  string
	}{
		{"toml", ParsePolicyTOML, "[strategies.medium]\ncontext_token_budget = 0\n"},
		{"yaml", ParsePolicyYAML, "strategies:\n  medium:\n    context_token_budget: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := tt.parse([]byte(tt.body))
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			c, err := p.Compile()
			if err != nil {
				t.Fatalf("Compile: %v", err)
			}
			want := strategy.Override{ContextTokenBudget: strategy.Int(0)}
			if diff := cmp.Diff(want, c.Overrides[strategy.Medium]); diff != "" {
				t.Errorf("medium override mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name   string
		policy string
		want   string
	}{
		{"bad tier", "[[priority_rules]]\nmatch = \"x\"\ntier = \"urgent\"\n", "unknown priority tier"},
		{"bad regexp", "[[priority_rules]]\npattern = \"(\"\ntier = \"low\"\n", "invalid pattern"},
		{"both matchers", "[[priority_rules]]\nmatch = \"a\"\npattern = \"b\"\ntier = \"low\"\n", "not both"},
		{"no matcher", "[[priority_rules]]\ntier = \"low\"\n", "match or pattern is required"},
		{"bad strategy", "[strategies.huge]\nmax_completion_tokens = 1\n", "unknown strategy"},
		{"negative budget", "[strategies.large]\ncontext_token_budget = -1\n", "must not be negative"},
		{"pattern without indicators", "[[false_positives.patterns]]\nid = \"x\"\n", "indicator"},
		{"bad content", "[[false_positives.patterns]]\nid = \"x\"\nindicators = [\"y\"]\ncontent = \"[\"\n", "invalid content pattern"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParsePolicyTOML([]byte(tt.policy))
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			_, err = p.Compile()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Compile error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestParsePolicy_UnknownKeys(t *testing.T) {
	if _, err := ParsePolicyTOML([]byte("convention = \"typo\"\n")); err == nil {
		t.Error("TOML: expected unknown key error")
	}
	if _, err := ParsePolicyYAML([]byte("convention: typo\n")); err == nil {
		t.Error("YAML: expected unknown key error")
	}
}

func TestParsePolicyYAML_Empty(t *testing.T) {
	p, err := ParsePolicyYAML(nil)
	if err != nil {
		t.Fatalf("empty YAML: %v", err)
	}
	if len(p.PriorityRules) != 0 {
		t.Errorf("got %+v", p)
	}
}

func TestFindAndLoadPolicy(t *testing.T) {
	root := t.TempDir()
	if got := FindPolicy(root); got != "" {
		t.Fatalf("FindPolicy on empty repo = %q", got)
	}

	dir := filepath.Join(root, ".lens")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	yml := filepath.Join(dir, "policy.yml")
	if err := os.WriteFile(yml, []byte(yamlPolicy), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := FindPolicy(root); got != yml {
		t.Fatalf("FindPolicy = %q, want %q", got, yml)
	}
	tml := filepath.Join(dir, "policy.toml")
	if err := os.WriteFile(tml, []byte(tomlPolicy), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := FindPolicy(root); got != tml {
		t.Fatalf("FindPolicy = %q, want the TOML file first", got)
	}

	p, err := LoadPolicy(tml)
	if err != nil {
		t.Fatalf("LoadPolicy: %v", err)
	}
	if p.Conventions != "Handlers return typed errors." {
		t.Errorf("Conventions = %q", p.Conventions)
	}

	bad := filepath.Join(dir, "policy.json")
	if err := os.WriteFile(bad, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadPolicy(bad); err == nil || !strings.Contains(err.Error(), "unsupported extension") {
		t.Errorf("LoadPolicy(.json) error = %v", err)
	}
}
