package output

import (
	"github.com/dshills/lens/internal/falsepositive"
	"github.com/dshills/lens/internal/findings"
	"github.com/dshills/lens/internal/framework"
	"github.com/dshills/lens/internal/review"
	"github.com/dshills/lens/internal/strategy"
)

func intPtr(n int) *int { return &n }

func sampleResult() *review.Result {
	issues := []findings.Issue{
		{
			File: "db/query.go", Line: intPtr(42), Kind: findings.KindSecurity, Confidence: findings.ConfidenceHigh,
			Title: "SQL injection risk", Description: "User input is concatenated into the query.",
			Suggestion: "Use parameterized queries",
		},
		{
			File: "main.go", Line: intPtr(10), Kind: findings.KindBug, Confidence: findings.ConfidenceMedium,
			Title: "Nil pointer", Description: "Can panic when the lookup fails.",
			Suggestion: "if err != nil { return err }",
		},
		{
			File: "util.go", Kind: findings.KindPerformance, Confidence: findings.ConfidenceMedium,
			Title: "Quadratic scan", Description: "Nested loop over all users.",
		},
	}
	return &review.Result{
		RunID:     "run-1",
		Source:    review.Source{Mode: "staged", Repo: review.RepoInfo{Root: "/tmp/repo", Branch: "main"}},
		Framework: framework.Detected{Name: framework.Go, Version: "1.23", Confidence: 0.9},
		Issues:    issues,
		Summary:   review.Summarize(issues, &review.Consensus{Assessment: "Fix the injection before merging.", AffectedAreas: []string{"db"}}),
		Metadata: review.Metadata{
			Tier: strategy.Small, Model: "m", TokensUsed: 1200, CacheReadTokens: 800,
			CostUSD: 0.0123, FilesReviewed: 3, DurationMs: 520,
		},
		Removed: []falsepositive.Removed{{
			Issue:      findings.Issue{Title: "Magic number"},
			PatternID:  "magic-number",
			Confidence: 0.67,
			Reason:     "matched 2 indicator(s)",
		}},
	}
}

func emptyResult() *review.Result {
	return &review.Result{
		Source:    review.Source{Mode: "unstaged", Repo: review.RepoInfo{Root: "/tmp/repo", Branch: "main"}},
		Framework: framework.Detected{Name: framework.Generic},
		Issues:    []findings.Issue{},
		Summary:   review.Summarize(nil, nil),
		Metadata:  review.Metadata{Tier: strategy.Small},
	}
}
