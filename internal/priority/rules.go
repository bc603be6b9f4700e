package priority

import (
	"regexp"
	"strings"
)

// Rule assigns a tier to paths it matches. A rule with a Pattern tests the
// full path against it; otherwise the path must contain Contains.
type Rule struct {
	Contains string
	Pattern  *regexp.Regexp
	Tier     Tier
	Reason   string
}

// Matches reports whether the rule applies to path.
func (r Rule) Matches(path string) bool {
	if r.Pattern != nil {
		return r.Pattern.MatchString(path)
	}
	return r.Contains != "" && strings.Contains(path, r.Contains)
}

// UnknownReason is the reason given to files no rule matches.
const UnknownReason = "unknown file type"

// DefaultRules returns the built-in rule list in evaluation order. Each call
// returns a fresh slice.
func DefaultRules() []Rule {
	return []Rule{
		{
			Pattern: regexp.MustCompile(`(?i)(^|/)(auth|authentication|payments?|billing|security)(/|$)`),
			Tier:    TierCritical,
			Reason:  "security-sensitive module",
		},
		{
			Pattern: regexp.MustCompile(`(?i)((^|/)(controllers?|guards?|middlewares?)/|[._-](controller|guard|middleware)\.[a-z]+$)`),
			Tier:    TierCritical,
			Reason:  "HTTP boundary",
		},
		{
			Pattern: regexp.MustCompile(`^(src|lib|app|internal|pkg|cmd)/`),
			Tier:    TierHigh,
			Reason:  "core source file",
		},
		{
			Pattern: regexp.MustCompile(`(?i)((^|/)(services?|repositor(y|ies)|handlers?|schemas?)/|[._-](service|repository|handler|schema)\.[a-z]+$)`),
			Tier:    TierHigh,
			Reason:  "service, repository, handler or schema",
		},
		{
			Pattern: regexp.MustCompile(`(?i)(_test\.go$|\.(test|spec)\.[a-z]+$|(^|/)(tests?|__tests__|spec)/)`),
			Tier:    TierLow,
			Reason:  "test file",
		},
		{
			Pattern: regexp.MustCompile(`(?i)\.(go|ts|tsx|js|jsx|mjs|cjs|py|rb|java|kt|rs|cs|php|swift|c|cc|cpp|h|hpp|scala|ex|exs|vue|svelte)$`),
			Tier:    TierNormal,
			Reason:  "source code",
		},
		{
			Pattern: regexp.MustCompile(`(?i)(\.(md|markdown|txt|rst|json|ya?ml|toml|ini|cfg|conf|lock|xml)$|(^|/)docs?/)`),
			Tier:    TierLow,
			Reason:  "documentation or configuration",
		},
	}
}
