package providers

import (
	"sort"
	"strings"
)

// Pricing is the USD price per million tokens for a model family.
type Pricing struct {
	Input      float64 `json:"input"`
	Output     float64 `json:"output"`
	CacheRead  float64 `json:"cacheRead"`
	CacheWrite float64 `json:"cacheWrite"`
}

// Cost returns the USD cost of u.
func (p Pricing) Cost(u Usage) float64 {
	const perM = 1_000_000
	return (float64(u.InputTokens)*p.Input +
		float64(u.OutputTokens)*p.Output +
		float64(u.CacheReadTokens)*p.CacheRead +
		float64(u.CacheCreationTokens)*p.CacheWrite) / perM
}

// prices is keyed by model-name prefix.
var prices = map[string]Pricing{
	"claude-opus-4":    {Input: 15, Output: 75, CacheRead: 1.5, CacheWrite: 18.75},
	"claude-sonnet-4":  {Input: 3, Output: 15, CacheRead: 0.3, CacheWrite: 3.75},
	"claude-haiku-4":   {Input: 1, Output: 5, CacheRead: 0.1, CacheWrite: 1.25},
	"claude-3-5-haiku": {Input: 0.8, Output: 4, CacheRead: 0.08, CacheWrite: 1},
	"gpt-5":            {Input: 1.25, Output: 10, CacheRead: 0.125},
	"gpt-4.1-mini":     {Input: 0.4, Output: 1.6, CacheRead: 0.1},
	"gpt-4.1":          {Input: 2, Output: 8, CacheRead: 0.5},
	"gpt-4o-mini":      {Input: 0.15, Output: 0.6, CacheRead: 0.075},
	"gpt-4o":           {Input: 2.5, Output: 10, CacheRead: 1.25},
	"o3-mini":          {Input: 1.1, Output: 4.4, CacheRead: 0.55},
	"gemini-2.5-pro":   {Input: 1.25, Output: 10, CacheRead: 0.31},
	"gemini-2.5-flash": {Input: 0.3, Output: 2.5, CacheRead: 0.075},
	"gemini-2.0-flash": {Input: 0.1, Output: 0.4, CacheRead: 0.025},
}

// pricePrefixes is longest first so "gpt-4o-mini" wins over "gpt-4o".
var pricePrefixes = func() []string {
	keys := make([]string, 0, len(prices))
	for k := range prices {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}()

// Price returns the pricing for model. Local and unknown models are not
// priced.
func Price(model string) (Pricing, bool) {
	m := strings.ToLower(model)
	for _, prefix := range pricePrefixes {
		if strings.HasPrefix(m, prefix) {
			return prices[prefix], true
		}
	}
	return Pricing{}, false
}

func withCost(model string, u Usage) Usage {
	if p, ok := Price(model); ok {
		u.CostUSD = p.Cost(u)
	}
	return u
}
