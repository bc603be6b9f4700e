package falsepositive

import "sort"

// Catalog is an ordered, immutable list of patterns.
type Catalog struct {
	patterns []Pattern
}

// NewCatalog returns a catalog over patterns in the given order.
func NewCatalog(patterns ...Pattern) *Catalog {
	c := &Catalog{patterns: make([]Pattern, len(patterns))}
	copy(c.patterns, patterns)
	return c
}

// Effective builds the catalog for one review: the built-ins minus disabled
// ids, then project patterns, then framework patterns.
func Effective(builtin []Pattern, disabled []string, project, framework []Pattern) *Catalog {
	return NewCatalog(builtin...).Without(disabled...).With(project...).With(framework...)
}

// With returns a new catalog with extra patterns appended.
func (c *Catalog) With(extra ...Pattern) *Catalog {
	out := make([]Pattern, 0, len(c.patterns)+len(extra))
	out = append(out, c.patterns...)
	out = append(out, extra...)
	return &Catalog{patterns: out}
}

// Without returns a new catalog lacking the given pattern ids.
func (c *Catalog) Without(ids ...string) *Catalog {
	if len(ids) == 0 {
		return NewCatalog(c.patterns...)
	}
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	out := make([]Pattern, 0, len(c.patterns))
	for _, p := range c.patterns {
		if !drop[p.ID] {
			out = append(out, p)
		}
	}
	return &Catalog{patterns: out}
}

// Patterns returns a copy of the patterns in evaluation order.
func (c *Catalog) Patterns() []Pattern {
	out := make([]Pattern, len(c.patterns))
	copy(out, c.patterns)
	return out
}

// Len returns the number of patterns.
func (c *Catalog) Len() int {
	return len(c.patterns)
}

// Stats describes catalog composition.
type Stats struct {
	Total      int            `json:"total"`
	ByCategory map[string]int `json:"byCategory"`
	BySeverity map[string]int `json:"bySeverity"`
}

// Categories returns the category names in sorted order.
func (s Stats) Categories() []string {
	names := make([]string, 0, len(s.ByCategory))
	for k := range s.ByCategory {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Stats tallies patterns by category and severity.
func (c *Catalog) Stats() Stats {
	s := Stats{
		Total:      len(c.patterns),
		ByCategory: make(map[string]int),
		BySeverity: make(map[string]int),
	}
	for _, p := range c.patterns {
		cat := p.Category
		if cat == "" {
			cat = "uncategorized"
		}
		sev := p.Severity
		if sev == "" {
			sev = "unspecified"
		}
		s.ByCategory[cat]++
		s.BySeverity[sev]++
	}
	return s
}
