package priority

import (
	"fmt"
	"strings"
)

// Tier is a file's review importance.
type Tier string

const (
	TierCritical Tier = "critical"
	TierHigh     Tier = "high"
	TierNormal   Tier = "normal"
	TierLow      Tier = "low"
)

// Tiers lists every tier from most to least important.
var Tiers = []Tier{TierCritical, TierHigh, TierNormal, TierLow}

// Rank returns the sort rank of a tier; lower sorts first. Unknown tiers
// rank with low.
func (t Tier) Rank() int {
	switch t {
	case TierCritical:
		return 0
	case TierHigh:
		return 1
	case TierNormal:
		return 2
	default:
		return 3
	}
}

// ParseTier validates a tier name.
func ParseTier(s string) (Tier, error) {
	t := Tier(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case TierCritical, TierHigh, TierNormal, TierLow:
		return t, nil
	default:
		return "", fmt.Errorf("unknown priority tier %q (want critical, high, normal or low)", s)
	}
}
