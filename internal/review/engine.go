package review

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dshills/lens/internal/changeset"
	"github.com/dshills/lens/internal/falsepositive"
	"github.com/dshills/lens/internal/findings"
	"github.com/dshills/lens/internal/framework"
	"github.com/dshills/lens/internal/priority"
	"github.com/dshills/lens/internal/providers"
	"github.com/dshills/lens/internal/strategy"
)

// Input is everything the engine needs for one review.
type Input struct {
	Files     []changeset.ChangedFile
	Framework framework.Detected
	Flags     changeset.Flags
	// DiffBytes is the change size used for tier selection. Zero means the
	// summed content length of Files.
	DiffBytes int
}

// Plan is the pre-call decision for a review.
type Plan struct {
	Framework     framework.Detected
	Profile       framework.Profile
	Flags         changeset.Flags
	DiffBytes     int
	Strategy      strategy.Strategy
	Files         []priority.File
	Stats         priority.Stats
	Packed        priority.PackResult
	Catalog       *falsepositive.Catalog
	AffectedAreas []string
	// Request is the zero value when the strategy is skip.
	Request providers.Request
}

// Engine runs budgeted single-call consensus reviews.
type Engine struct {
	completer     providers.Completer
	model         string
	logger        *zap.Logger
	rules         []priority.Rule
	prependRules  []priority.Rule
	overrides     map[strategy.Name]strategy.Override
	basePatterns  []falsepositive.Pattern
	extraPatterns []falsepositive.Pattern
	disabled      []string
	conventions   string
	criticalPaths []string
	validate      bool
	now           func() time.Time
	newID         func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger. Components built by the engine share it.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithModel records the model name in result metadata.
func WithModel(model string) Option {
	return func(e *Engine) { e.model = model }
}

// WithPriorityRules appends custom rules after the built-ins.
func WithPriorityRules(rules ...priority.Rule) Option {
	return func(e *Engine) { e.rules = append(e.rules, rules...) }
}

// WithPrependedPriorityRules puts custom rules ahead of built-in and
// framework rules.
func WithPrependedPriorityRules(rules ...priority.Rule) Option {
	return func(e *Engine) { e.prependRules = append(e.prependRules, rules...) }
}

// WithStrategyOverride overrides a tier's budgets or instructions.
func WithStrategyOverride(name strategy.Name, o strategy.Override) Option {
	return func(e *Engine) { e.overrides[name] = o }
}

// WithBasePatterns replaces the built-in false-positive catalog.
func WithBasePatterns(patterns []falsepositive.Pattern) Option {
	return func(e *Engine) { e.basePatterns = patterns }
}

// WithFalsePositivePatterns adds project patterns after the built-ins.
func WithFalsePositivePatterns(patterns ...falsepositive.Pattern) Option {
	return func(e *Engine) { e.extraPatterns = append(e.extraPatterns, patterns...) }
}

// WithDisabledPatterns removes built-in patterns by id.
func WithDisabledPatterns(ids ...string) Option {
	return func(e *Engine) { e.disabled = append(e.disabled, ids...) }
}

// WithConventions sets free-text project conventions for the task segment.
func WithConventions(text string) Option {
	return func(e *Engine) { e.conventions = text }
}

// WithCriticalPaths adds globs that count as critical modules.
func WithCriticalPaths(globs ...string) Option {
	return func(e *Engine) { e.criticalPaths = append(e.criticalPaths, globs...) }
}

// WithValidation toggles the post-hoc false-positive pass over returned
// issues. It is on by default.
func WithValidation(on bool) Option {
	return func(e *Engine) { e.validate = on }
}

// WithClock sets the time source used for durations.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine returns an engine that sends requests to c.
func NewEngine(c providers.Completer, opts ...Option) *Engine {
	e := &Engine{
		completer:    c,
		logger:       zap.NewNop(),
		overrides:    make(map[strategy.Name]strategy.Override),
		basePatterns: falsepositive.Builtin(),
		validate:     true,
		now:          time.Now,
		newID:        uuid.NewString,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Plan prioritizes, selects a strategy, packs and builds the request without
// calling the completion service.
func (e *Engine) Plan(in Input) Plan {
	profile := framework.Lookup(in.Framework.Name)

	flags := in.Flags
	if !flags.Critical {
		extra := append(append([]string{}, profile.CriticalPathPatterns...), e.criticalPaths...)
		for _, f := range in.Files {
			if changeset.IsCritical(f.Path, extra) {
				flags.Critical = true
				break
			}
		}
	}

	diffBytes := in.DiffBytes
	if diffBytes == 0 {
		for _, f := range in.Files {
			diffBytes += len(f.Content)
		}
	}

	prioritizer := priority.New(
		priority.WithPrependedRules(e.prependRules...),
		priority.WithProfileRules(profile.PriorityRules...),
		priority.WithRules(e.rules...),
		priority.WithLogger(e.logger),
	)

	selector := strategy.NewSelector(e.logger)
	for name, o := range e.overrides {
		selector.Override(name, o)
	}
	st := selector.Select(diffBytes, flags.Critical, flags.ConfigOnly)

	files := prioritizer.Prioritize(in.Files)
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}

	plan := Plan{
		Framework:     in.Framework,
		Profile:       profile,
		Flags:         flags,
		DiffBytes:     diffBytes,
		Strategy:      st,
		Files:         files,
		Stats:         priority.ComputeStats(files),
		Catalog:       falsepositive.Effective(e.basePatterns, e.disabled, e.extraPatterns, profile.FalsePositivePatterns),
		AffectedAreas: AffectedAreas(paths),
	}
	if plan.Framework.Name == "" {
		plan.Framework.Name = framework.Generic
	}

	if st.ShouldSkip() {
		plan.Packed = priority.PackResult{Excluded: files}
		return plan
	}

	plan.Packed = prioritizer.Pack(files, st.ContextTokenBudget)
	plan.Request = BuildRequest(plan.Catalog, profile, TaskInput{
		Framework:     plan.Framework,
		AffectedAreas: plan.AffectedAreas,
		Flags:         flags,
		Strategy:      st,
		Conventions:   e.conventions,
		Packed:        plan.Packed,
	})
	return plan
}

// Execute sends the planned request and builds the result. A skip plan
// returns a notice without calling the completion service. Completion errors
// are returned; parse failures are not.
func (e *Engine) Execute(ctx context.Context, plan Plan) (*Result, error) {
	res := &Result{
		RunID:     e.newID(),
		Framework: plan.Framework,
		Issues:    []findings.Issue{},
		Metadata: Metadata{
			Tier:          plan.Strategy.Name,
			Model:         e.model,
			FilesReviewed: len(plan.Packed.Included),
			FilesExcluded: len(plan.Packed.Excluded),
		},
	}

	if plan.Strategy.ShouldSkip() {
		res.Skipped = true
		res.Notice = strategy.SkipNotice(plan.DiffBytes)
		res.Summary = Summarize(nil, nil)
		res.Summary.OverallAssessment = res.Notice
		e.logger.Info("review skipped",
			zap.Int("diffBytes", plan.DiffBytes),
			zap.Int("files", len(plan.Files)))
		return res, nil
	}

	e.logger.Debug("sending review request",
		zap.String("tier", string(plan.Strategy.Name)),
		zap.Int("included", len(plan.Packed.Included)),
		zap.Int("excluded", len(plan.Packed.Excluded)),
		zap.Int("contextTokens", plan.Packed.Tokens),
		zap.Int("taskBytes", len(plan.Request.Task)),
		zap.Int("maxTokens", plan.Request.MaxTokens))

	start := e.now()
	resp, err := e.completer.Complete(ctx, plan.Request)
	if err != nil {
		return nil, fmt.Errorf("completion: %w", err)
	}
	res.Metadata.DurationMs = e.now().Sub(start).Milliseconds()
	res.Metadata.TokensUsed = resp.Usage.Total()
	res.Metadata.CacheReadTokens = resp.Usage.CacheReadTokens
	res.Metadata.CacheCreationTokens = resp.Usage.CacheCreationTokens
	res.Metadata.CostUSD = resp.Usage.CostUSD

	switch out := ParseResponse(resp.Content).(type) {
	case *ParseFailure:
		e.logger.Warn("failed to parse review response",
			zap.String("reason", out.Reason),
			zap.String("excerpt", excerpt(out.Raw, 200)))
		res.ParseFailed = true
		res.Notice = ParseFailureAssessment
		res.Summary = Summarize(nil, nil)
		res.Summary.OverallAssessment = ParseFailureAssessment
		return res, nil
	case *Parsed:
		issues := out.Issues
		if e.validate {
			filter := falsepositive.NewFilter(plan.Catalog, falsepositive.WithLogger(e.logger))
			fr := filter.FilterIssues(issues, contentsOf(plan.Packed.Included))
			issues = fr.Kept
			res.Removed = fr.Removed
		}
		res.Issues = issues
		res.Consensus = out.Consensus
		if res.Consensus == nil {
			res.Consensus = synthesizeConsensus(issues)
		}
		res.Summary = Summarize(issues, res.Consensus)
	}
	return res, nil
}

// Run plans and executes a review.
func (e *Engine) Run(ctx context.Context, in Input) (*Result, error) {
	return e.Execute(ctx, e.Plan(in))
}

func contentsOf(files []priority.File) map[string]string {
	m := make(map[string]string, len(files))
	for _, f := range files {
		m[f.Path] = f.Content
	}
	return m
}

// excerpt returns at most n bytes of s without splitting a rune.
func excerpt(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
