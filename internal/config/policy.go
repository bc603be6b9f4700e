package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/dshills/lens/internal/falsepositive"
	"github.com/dshills/lens/internal/priority"
	"github.com/dshills/lens/internal/review"
	"github.com/dshills/lens/internal/strategy"
)

// PolicyCandidates are the repository-relative paths searched for a project
// policy, in order.
var PolicyCandidates = []string{
	".lens/policy.toml",
	".lens/policy.yaml",
	".lens/policy.yml",
}

// Policy is a project's review policy as written on disk.
type Policy struct {
	PriorityRules  []PolicyRule                `toml:"priority_rules" yaml:"priority_rules"`
	Strategies     map[string]StrategyOverride `toml:"strategies" yaml:"strategies"`
	FalsePositives FalsePositivePolicy         `toml:"false_positives" yaml:"false_positives"`
	Conventions    string                      `toml:"conventions" yaml:"conventions"`
	CriticalPaths  []string                    `toml:"critical_paths" yaml:"critical_paths"`
}

// PolicyRule is a custom priority rule. Match is a path substring; Pattern
// is a regular expression tested against the full path. Exactly one is set.
type PolicyRule struct {
	Match   string `toml:"match" yaml:"match"`
	Pattern string `toml:"pattern" yaml:"pattern"`
	Tier    string `toml:"tier" yaml:"tier"`
	Reason  string `toml:"reason" yaml:"reason"`
	Prepend bool   `toml:"prepend" yaml:"prepend"`
}

// StrategyOverride replaces parts of a built-in tier.
// Omitted numeric fields keep the tier default; an explicit 0 sets zero.
type StrategyOverride struct {
	MaxCompletionTokens *int   `toml:"max_completion_tokens" yaml:"max_completion_tokens"`
	ContextTokenBudget  *int   `toml:"context_token_budget" yaml:"context_token_budget"`
	Instructions        string `toml:"instructions" yaml:"instructions"`
}

// FalsePositivePolicy disables built-in patterns and adds project ones.
type FalsePositivePolicy struct {
	Disable  []string        `toml:"disable" yaml:"disable"`
	Patterns []PolicyPattern `toml:"patterns" yaml:"patterns"`
}

// PolicyPattern is a project false-positive pattern.
type PolicyPattern struct {
	ID             string   `toml:"id" yaml:"id"`
	Category       string   `toml:"category" yaml:"category"`
	Severity       string   `toml:"severity" yaml:"severity"`
	Explanation    string   `toml:"explanation" yaml:"explanation"`
	Content        string   `toml:"content" yaml:"content"`
	ContextMarkers []string `toml:"context_markers" yaml:"context_markers"`
	Indicators     []string `toml:"indicators" yaml:"indicators"`
}

// FindPolicy returns the first policy candidate that exists under root, or
// "" if there is none.
func FindPolicy(root string) string {
	for _, rel := range PolicyCandidates {
		p := filepath.Join(root, rel)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

// LoadPolicy reads a policy file. The format follows the extension: .toml,
// or .yaml/.yml.
func LoadPolicy(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("reading policy: %w", err)
	}
	var p Policy
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		p, err = ParsePolicyTOML(data)
	case ".yaml", ".yml":
		p, err = ParsePolicyYAML(data)
	default:
		return Policy{}, fmt.Errorf("policy %s: unsupported extension %q (want .toml, .yaml or .yml)", path, ext)
	}
	if err != nil {
		return Policy{}, fmt.Errorf("policy %s: %w", path, err)
	}
	return p, nil
}

// ParsePolicyTOML decodes a TOML policy. Unknown keys are errors.
func ParsePolicyTOML(data []byte) (Policy, error) {
	var p Policy
	md, err := toml.Decode(string(data), &p)
	if err != nil {
		return Policy{}, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Policy{}, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return p, nil
}

// ParsePolicyYAML decodes a YAML policy. Unknown keys are errors.
func ParsePolicyYAML(data []byte) (Policy, error) {
	var p Policy
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return Policy{}, err
	}
	return p, nil
}

// CompiledPolicy is a policy converted to core types.
type CompiledPolicy struct {
	Rules          []priority.Rule
	PrependedRules []priority.Rule
	Overrides      map[strategy.Name]strategy.Override
	Disabled       []string
	Patterns       []falsepositive.Pattern
	Conventions    string
	CriticalPaths  []string
}

// Compile validates the policy and converts it to core types.
func (p Policy) Compile() (CompiledPolicy, error) {
	c := CompiledPolicy{
		Overrides:     make(map[strategy.Name]strategy.Override),
		Disabled:      p.FalsePositives.Disable,
		Conventions:   strings.TrimSpace(p.Conventions),
		CriticalPaths: p.CriticalPaths,
	}

	for i, r := range p.PriorityRules {
		rule, err := r.compile()
		if err != nil {
			return CompiledPolicy{}, fmt.Errorf("priority_rules[%d]: %w", i, err)
		}
		if r.Prepend {
			c.PrependedRules = append(c.PrependedRules, rule)
		} else {
			c.Rules = append(c.Rules, rule)
		}
	}

	for name, o := range p.Strategies {
		n, err := strategy.ParseName(name)
		if err != nil {
			return CompiledPolicy{}, fmt.Errorf("strategies.%s: %w", name, err)
		}
		if negative(o.MaxCompletionTokens) || negative(o.ContextTokenBudget) {
			return CompiledPolicy{}, fmt.Errorf("strategies.%s: token values must not be negative", name)
		}
		c.Overrides[n] = strategy.Override{
			MaxCompletionTokens: o.MaxCompletionTokens,
			ContextTokenBudget:  o.ContextTokenBudget,
			Instructions:        strings.TrimSpace(o.Instructions),
		}
	}

	for i, pp := range p.FalsePositives.Patterns {
		pat, err := pp.compile()
		if err != nil {
			return CompiledPolicy{}, fmt.Errorf("false_positives.patterns[%d]: %w", i, err)
		}
		c.Patterns = append(c.Patterns, pat)
	}
	return c, nil
}

func negative(n *int) bool { return n != nil && *n < 0 }

func (r PolicyRule) compile() (priority.Rule, error) {
	tier, err := priority.ParseTier(r.Tier)
	if err != nil {
		return priority.Rule{}, err
	}
	rule := priority.Rule{Tier: tier, Reason: r.Reason}
	switch {
	case r.Match != "" && r.Pattern != "":
		return priority.Rule{}, fmt.Errorf("set either match or pattern, not both")
	case r.Pattern != "":
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return priority.Rule{}, fmt.Errorf("invalid pattern: %w", err)
		}
		rule.Pattern = re
	case r.Match != "":
		rule.Contains = r.Match
	default:
		return priority.Rule{}, fmt.Errorf("match or pattern is required")
	}
	if rule.Reason == "" {
		rule.Reason = "project rule"
	}
	return rule, nil
}

func (pp PolicyPattern) compile() (falsepositive.Pattern, error) {
	pat := falsepositive.Pattern{
		ID:             strings.TrimSpace(pp.ID),
		Category:       pp.Category,
		Severity:       pp.Severity,
		Explanation:    pp.Explanation,
		ContextMarkers: pp.ContextMarkers,
	}
	for _, ind := range pp.Indicators {
		pat.Indicators = append(pat.Indicators, strings.ToLower(strings.TrimSpace(ind)))
	}
	if pp.Content != "" {
		re, err := regexp.Compile(pp.Content)
		if err != nil {
			return falsepositive.Pattern{}, fmt.Errorf("invalid content pattern: %w", err)
		}
		pat.Content = re
	}
	if err := pat.Validate(); err != nil {
		return falsepositive.Pattern{}, err
	}
	return pat, nil
}

// EngineOptions returns the review engine options expressing the policy.
func (c CompiledPolicy) EngineOptions() []review.Option {
	opts := []review.Option{
		review.WithPriorityRules(c.Rules...),
		review.WithPrependedPriorityRules(c.PrependedRules...),
		review.WithFalsePositivePatterns(c.Patterns...),
		review.WithDisabledPatterns(c.Disabled...),
		review.WithCriticalPaths(c.CriticalPaths...),
	}
	if c.Conventions != "" {
		opts = append(opts, review.WithConventions(c.Conventions))
	}
	for name, o := range c.Overrides {
		opts = append(opts, review.WithStrategyOverride(name, o))
	}
	return opts
}
