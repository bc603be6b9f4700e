// Package strategy selects how intensely a change is reviewed from its size
// and risk flags.
//
// Five named tiers carry a completion-token ceiling and a context-token
// budget. Larger changes get smaller budgets and critical modules get a 1.5x
// boost. Configuration-only changes always get a quick small review.
// The skip tier means the completion service must not be called.
package strategy

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Name identifies a strategy tier.
type Name string

const (
	Small  Name = "small"
	Medium Name = "medium"
	Large  Name = "large"
	XLarge Name = "xlarge"
	Skip   Name = "skip"
)

// Names lists every tier in size order.
var Names = []Name{Small, Medium, Large, XLarge, Skip}

// ParseName validates a tier name.
func ParseName(s string) (Name, error) {
	n := Name(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Names {
		if n == known {
			return n, nil
		}
	}
	return "", fmt.Errorf("unknown strategy %q (want small, medium, large, xlarge or skip)", s)
}

// Size bounds in diff bytes. A change belongs to the first tier whose bound
// is strictly greater than its size.
const (
	SmallBound  = 50 * 1024
	MediumBound = 150 * 1024
	LargeBound  = 200 * 1024
	XLargeBound = 800 * 1024
)

// ConfigOnlyInstructions replaces the tier instructions on the
// configuration-only path.
const ConfigOnlyInstructions = "Quick review of configuration changes only. Flag invalid values, leaked secrets and settings that would break deployment; ignore style."

// Strategy is the review plan for one change.
type Strategy struct {
	Name                Name   `json:"name"`
	MaxCompletionTokens int    `json:"maxCompletionTokens"`
	ContextTokenBudget  int    `json:"contextTokenBudget"`
	Instructions        string `json:"instructions"`
}

// ShouldSkip reports whether the completion service must not be called.
func (s Strategy) ShouldSkip() bool {
	return s.Name == Skip
}

// Defaults returns the built-in tier table.
func Defaults() map[Name]Strategy {
	return map[Name]Strategy{
		Small: {
			Name:                Small,
			MaxCompletionTokens: 16000,
			ContextTokenBudget:  4000,
			Instructions:        "Thorough review. Examine every changed line for bugs, security issues, edge cases, error handling and type safety.",
		},
		Medium: {
			Name:                Medium,
			MaxCompletionTokens: 12000,
			ContextTokenBudget:  3000,
			Instructions:        "Focused review. Prioritize bugs, security issues and error handling in the most important files; skip minor concerns.",
		},
		Large: {
			Name:                Large,
			MaxCompletionTokens: 8000,
			ContextTokenBudget:  2000,
			Instructions:        "High-level review of a large change. Report only significant bugs and security issues in critical files.",
		},
		XLarge: {
			Name:                XLarge,
			MaxCompletionTokens: 4000,
			ContextTokenBudget:  1000,
			Instructions:        "Very large change. Report only critical security vulnerabilities and obvious production-breaking bugs.",
		},
		Skip: {
			Name:         Skip,
			Instructions: "Change is too large to review. Do not call the completion service.",
		},
	}
}

// Override replaces numeric fields and instructions of a tier. Nil fields
// and an empty string leave the default in place; a pointer to zero sets the
// field to zero.
type Override struct {
	MaxCompletionTokens *int
	ContextTokenBudget  *int
	Instructions        string
}

// Int returns a pointer to n for building an Override.
func Int(n int) *int { return &n }

// criticalBoost multiplies both budgets when a critical module is touched.
const criticalBoost = 1.5

// Selector picks a Strategy for a change. It is safe to share a Selector
// between reviews once overrides have been registered.
type Selector struct {
	tiers  map[Name]Strategy
	logger *zap.Logger
}

// NewSelector returns a Selector over the default tier table.
func NewSelector(logger *zap.Logger) *Selector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Selector{tiers: Defaults(), logger: logger}
}

// Override registers an override for a tier. It applies to every later
// selection. The tier name itself cannot change.
func (s *Selector) Override(name Name, o Override) {
	t := s.tiers[name]
	t.Name = name
	if o.MaxCompletionTokens != nil {
		t.MaxCompletionTokens = *o.MaxCompletionTokens
	}
	if o.ContextTokenBudget != nil {
		t.ContextTokenBudget = *o.ContextTokenBudget
	}
	if o.Instructions != "" {
		t.Instructions = o.Instructions
	}
	s.tiers[name] = t
}

// Tier returns the configured strategy for a tier, without any boost.
func (s *Selector) Tier(name Name) Strategy {
	return s.tiers[name]
}

// Select returns the strategy for a change of diffBytes bytes.
func (s *Selector) Select(diffBytes int, criticalModule, configOnly bool) Strategy {
	if configOnly {
		st := s.tiers[Small]
		st.Instructions = ConfigOnlyInstructions
		s.logger.Debug("strategy selected", zap.String("name", string(st.Name)), zap.Bool("configOnly", true))
		return st
	}

	st := s.tiers[TierFor(diffBytes)]
	if criticalModule && !st.ShouldSkip() {
		st.MaxCompletionTokens = int(float64(st.MaxCompletionTokens) * criticalBoost)
		st.ContextTokenBudget = int(float64(st.ContextTokenBudget) * criticalBoost)
	}
	s.logger.Debug("strategy selected",
		zap.String("name", string(st.Name)),
		zap.Int("diffBytes", diffBytes),
		zap.Bool("criticalModule", criticalModule),
		zap.Int("maxCompletionTokens", st.MaxCompletionTokens),
		zap.Int("contextTokenBudget", st.ContextTokenBudget),
	)
	return st
}

// TierFor maps a diff size to a tier name. Bounds are exclusive: a size
// equal to a bound belongs to the next tier.
func TierFor(diffBytes int) Name {
	switch {
	case diffBytes < SmallBound:
		return Small
	case diffBytes < MediumBound:
		return Medium
	case diffBytes < LargeBound:
		return Large
	case diffBytes < XLargeBound:
		return XLarge
	default:
		return Skip
	}
}

// SkipNotice is the message shown instead of a review for oversized changes.
func SkipNotice(diffBytes int) string {
	return fmt.Sprintf("Change is too large to review (%d bytes). Please split it into smaller changes.", diffBytes)
}
