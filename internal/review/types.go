package review

import (
	"github.com/dshills/lens/internal/falsepositive"
	"github.com/dshills/lens/internal/findings"
	"github.com/dshills/lens/internal/framework"
	"github.com/dshills/lens/internal/strategy"
)

// Consensus is the model's account of the two-persona protocol.
type Consensus struct {
	HawkCount     int      `json:"hawkCount"`
	OwlRejected   int      `json:"owlRejected"`
	Assessment    string   `json:"assessment"`
	AffectedAreas []string `json:"affectedAreas,omitempty"`
	// Synthesized is set when the model supplied no usable consensus and
	// these values were derived from the issue list.
	Synthesized bool `json:"synthesized,omitempty"`
}

// Summary is the digest of a review's issues.
type Summary struct {
	TotalIssues       int      `json:"totalIssues"`
	CriticalIssues    int      `json:"criticalIssues"`
	AffectedAreas     []string `json:"affectedAreas"`
	OverallAssessment string   `json:"overallAssessment"`
}

// Metadata describes how a review was carried out.
type Metadata struct {
	Tier                strategy.Name `json:"tier"`
	Model               string        `json:"model,omitempty"`
	TokensUsed          int           `json:"tokensUsed"`
	CacheReadTokens     int           `json:"cacheReadTokens,omitempty"`
	CacheCreationTokens int           `json:"cacheCreationTokens,omitempty"`
	CostUSD             float64       `json:"costUsd,omitempty"`
	FilesReviewed       int           `json:"filesReviewed"`
	FilesExcluded       int           `json:"filesExcluded"`
	DurationMs          int64         `json:"durationMs"`
}

// RepoInfo contains repository metadata.
type RepoInfo struct {
	Root   string `json:"root"`
	Head   string `json:"head"`
	Branch string `json:"branch"`
}

// Source describes what was reviewed. It is filled in by the caller.
type Source struct {
	Mode  string   `json:"mode"`
	Range string   `json:"range,omitempty"`
	Repo  RepoInfo `json:"repo"`
}

// Result is the terminal output of one review.
type Result struct {
	RunID     string                  `json:"runId"`
	Source    Source                  `json:"source"`
	Framework framework.Detected      `json:"framework"`
	Issues    []findings.Issue        `json:"issues"`
	Summary   Summary                 `json:"summary"`
	Consensus *Consensus              `json:"consensus,omitempty"`
	Metadata  Metadata                `json:"metadata"`
	Removed   []falsepositive.Removed `json:"removedAsFalsePositive,omitempty"`
	// Skipped is set when the change was too large and no call was made.
	Skipped bool `json:"skipped,omitempty"`
	// ParseFailed is set when the response could not be parsed.
	ParseFailed bool `json:"parseFailed,omitempty"`
	// Notice is a user-facing message for skipped or failed reviews.
	Notice string `json:"notice,omitempty"`
}

// HasCritical reports whether any security or bug issue was found.
func (r *Result) HasCritical() bool {
	return r.Summary.CriticalIssues > 0
}
