package priority

import (
	"fmt"
	"sort"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/dshills/lens/internal/changeset"
)

// excludedPreview caps how many excluded files are logged by Pack.
const excludedPreview = 5

// File is a changed file with its assigned tier.
type File struct {
	changeset.ChangedFile
	Tier   Tier   `json:"tier"`
	Reason string `json:"reason"`
}

// Tokens returns the estimated token size of the file content.
func (f File) Tokens() int {
	return EstimateTokens(f.Content)
}

// Prioritizer classifies files by an ordered rule list.
type Prioritizer struct {
	rules  []Rule
	logger *zap.Logger
}

// Option configures a Prioritizer.
type Option func(*options)

type options struct {
	base    []Rule
	prepend []Rule
	profile []Rule
	append  []Rule
	logger  *zap.Logger
}

// WithRules appends custom rules after the built-ins.
func WithRules(rules ...Rule) Option {
	return func(o *options) { o.append = append(o.append, rules...) }
}

// WithPrependedRules evaluates custom rules before the built-ins.
func WithPrependedRules(rules ...Rule) Option {
	return func(o *options) { o.prepend = append(o.prepend, rules...) }
}

// WithProfileRules evaluates framework rules after the leading critical
// built-ins and before the remaining built-ins, so a profile can raise a
// file's tier but never demote a security-sensitive one.
func WithProfileRules(rules ...Rule) Option {
	return func(o *options) { o.profile = append(o.profile, rules...) }
}

// WithBaseRules replaces the built-in list used as the base. Intended for
// tests; callers normally extend DefaultRules instead.
func WithBaseRules(rules []Rule) Option {
	return func(o *options) { o.base = rules }
}

// WithLogger sets the logger used for packing diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New returns a Prioritizer over the built-in rules plus any custom rules.
func New(opts ...Option) *Prioritizer {
	o := options{base: DefaultRules()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	split := 0
	for split < len(o.base) && o.base[split].Tier == TierCritical {
		split++
	}
	rules := make([]Rule, 0, len(o.prepend)+len(o.base)+len(o.profile)+len(o.append))
	rules = append(rules, o.prepend...)
	rules = append(rules, o.base[:split]...)
	rules = append(rules, o.profile...)
	rules = append(rules, o.base[split:]...)
	rules = append(rules, o.append...)
	return &Prioritizer{rules: rules, logger: o.logger}
}

// Rules returns a copy of the effective rule list.
func (p *Prioritizer) Rules() []Rule {
	out := make([]Rule, len(p.rules))
	copy(out, p.rules)
	return out
}

// Classify returns the tier and reason of the first rule matching path.
// Files no rule matches are low with UnknownReason.
func (p *Prioritizer) Classify(path string) (Tier, string) {
	for _, r := range p.rules {
		if r.Matches(path) {
			return r.Tier, r.Reason
		}
	}
	return TierLow, UnknownReason
}

// Prioritize classifies every file and returns them sorted by tier.
func (p *Prioritizer) Prioritize(files []changeset.ChangedFile) []File {
	out := make([]File, len(files))
	for i, f := range files {
		tier, reason := p.Classify(f.Path)
		out[i] = File{ChangedFile: f, Tier: tier, Reason: reason}
	}
	Sort(out)
	return out
}

// Sort orders files by tier, critical first. Files of equal tier keep their
// relative order.
func Sort(files []File) {
	sort.SliceStable(files, func(i, j int) bool {
		return files[i].Tier.Rank() < files[j].Tier.Rank()
	})
}

// PackResult is the outcome of fitting files into a token budget.
type PackResult struct {
	Included []File
	Excluded []File
	Tokens   int
}

// Pack walks files in order and includes each one whose estimated tokens
// still fit within budget. A file that does not fit is excluded and the
// scan continues with the next file. files should already be sorted.
func (p *Prioritizer) Pack(files []File, budget int) PackResult {
	var res PackResult
	if budget <= 0 {
		res.Excluded = append(res.Excluded, files...)
		p.logExcluded(res, budget)
		return res
	}
	for _, f := range files {
		tokens := f.Tokens()
		if res.Tokens+tokens <= budget {
			res.Included = append(res.Included, f)
			res.Tokens += tokens
			continue
		}
		res.Excluded = append(res.Excluded, f)
	}

	p.logExcluded(res, budget)
	return res
}

func (p *Prioritizer) logExcluded(res PackResult, budget int) {
	if len(res.Excluded) == 0 {
		return
	}
	n := min(len(res.Excluded), excludedPreview)
	preview := make([]string, n)
	for i, f := range res.Excluded[:n] {
		preview[i] = fmt.Sprintf("%s [%s] %s (%d tokens)", f.Path, f.Tier, f.Reason, f.Tokens())
	}
	p.logger.Info("files excluded by token budget",
		zap.Int("budget", budget),
		zap.Int("included", len(res.Included)),
		zap.Int("excluded", len(res.Excluded)),
		zap.Strings("preview", preview),
		zap.Int("notShown", len(res.Excluded)-n),
	)
}

// Stats counts files per tier.
type Stats struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Normal   int `json:"normal"`
	Low      int `json:"low"`
}

// Total returns the number of files counted.
func (s Stats) Total() int {
	return s.Critical + s.High + s.Normal + s.Low
}

// ComputeStats tallies files per tier.
func ComputeStats(files []File) Stats {
	var s Stats
	for _, f := range files {
		switch f.Tier {
		case TierCritical:
			s.Critical++
		case TierHigh:
			s.High++
		case TierNormal:
			s.Normal++
		default:
			s.Low++
		}
	}
	return s
}

// charsPerToken is the divisor of the character-based token estimate.
const charsPerToken = 4

// EstimateTokens returns ceil(characters / 4).
func EstimateTokens(s string) int {
	n := utf8.RuneCountInString(s)
	return (n + charsPerToken - 1) / charsPerToken
}
