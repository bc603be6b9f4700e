package falsepositive

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/dshills/lens/internal/findings"
)

// Scoring weights.
const (
	indicatorWeight = 1.0
	contentWeight   = 0.5
	contextWeight   = 0.3
	contextPenalty  = 0.5

	// Threshold is the minimum normalized score for a match.
	Threshold = 0.3
)

// Match is a pattern hit for one issue.
type Match struct {
	PatternID  string
	Category   string
	Confidence float64
	Reason     string
}

// Removed is an issue dropped by FilterIssues.
type Removed struct {
	Issue      findings.Issue `json:"issue"`
	PatternID  string         `json:"patternId"`
	Confidence float64        `json:"confidence"`
	Reason     string         `json:"matchReason"`
}

// Result partitions issues into kept and removed, both in input order.
type Result struct {
	Kept    []findings.Issue
	Removed []Removed
}

// Filter evaluates issues against a catalog.
type Filter struct {
	catalog *Catalog
	logger  *zap.Logger
}

// Option configures a Filter.
type Option func(*Filter)

// WithLogger sets the logger used for removals.
func WithLogger(l *zap.Logger) Option {
	return func(f *Filter) {
		if l != nil {
			f.logger = l
		}
	}
}

// NewFilter returns a filter over catalog. A nil catalog means the built-ins.
func NewFilter(catalog *Catalog, opts ...Option) *Filter {
	if catalog == nil {
		catalog = NewCatalog(Builtin()...)
	}
	f := &Filter{catalog: catalog, logger: zap.NewNop()}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Catalog returns the filter's catalog.
func (f *Filter) Catalog() *Catalog {
	return f.catalog
}

// Match returns the first pattern the issue matches. content is the reviewed
// file's text, or "" when unavailable.
func (f *Filter) Match(issue findings.Issue, content string) (Match, bool) {
	text := issue.Text()
	for _, p := range f.catalog.patterns {
		conf, hits, ok := score(p, text, content)
		if !ok {
			continue
		}
		return Match{
			PatternID:  p.ID,
			Category:   p.Category,
			Confidence: conf,
			Reason:     fmt.Sprintf("%s (%s; %d indicator(s), confidence %.2f)", p.Explanation, p.ID, hits, conf),
		}, true
	}
	return Match{}, false
}

// FilterIssues drops issues that match a pattern. contents maps file paths to
// file text and may be nil.
func (f *Filter) FilterIssues(issues []findings.Issue, contents map[string]string) Result {
	res := Result{Kept: make([]findings.Issue, 0, len(issues))}
	for _, is := range issues {
		m, ok := f.Match(is, contents[is.File])
		if !ok {
			res.Kept = append(res.Kept, is)
			continue
		}
		res.Removed = append(res.Removed, Removed{
			Issue:      is,
			PatternID:  m.PatternID,
			Confidence: m.Confidence,
			Reason:     m.Reason,
		})
		f.logger.Debug("issue removed as false positive",
			zap.String("file", is.File),
			zap.String("title", is.Title),
			zap.String("pattern", m.PatternID),
			zap.Float64("confidence", m.Confidence))
	}
	return res
}

// score returns the normalized confidence, the indicator hit count and
// whether the pattern matches.
func score(p Pattern, text, content string) (float64, int, bool) {
	hits := 0
	for _, ind := range p.Indicators {
		if ind != "" && strings.Contains(text, strings.ToLower(ind)) {
			hits++
		}
	}
	if hits == 0 {
		return 0, 0, false
	}
	raw := float64(hits) * indicatorWeight
	if p.Content != nil && content != "" && p.Content.MatchString(content) {
		raw += contentWeight
	}
	if len(p.ContextMarkers) > 0 {
		if containsAny(content, p.ContextMarkers) {
			raw += contextWeight
		} else {
			raw -= contextPenalty
		}
	}
	conf := raw / p.maxScore()
	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}
	return conf, hits, conf >= Threshold
}

func containsAny(s string, subs []string) bool {
	if s == "" {
		return false
	}
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
