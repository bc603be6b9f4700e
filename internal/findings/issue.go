package findings

import "strings"

// Kind classifies what an issue is about.
type Kind string

const (
	KindBug             Kind = "bug"
	KindSecurity        Kind = "security"
	KindPerformance     Kind = "performance"
	KindMaintainability Kind = "maintainability"
)

// ParseKind maps a model-supplied string to a Kind. Unknown or empty values
// default to maintainability.
func ParseKind(s string) Kind {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindBug:
		return KindBug
	case KindSecurity:
		return KindSecurity
	case KindPerformance:
		return KindPerformance
	default:
		return KindMaintainability
	}
}

// Confidence is the reviewer's confidence in an issue.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
)

// ParseConfidence maps a model-supplied string to a Confidence. Anything
// other than "high" is medium.
func ParseConfidence(s string) Confidence {
	if strings.EqualFold(strings.TrimSpace(s), string(ConfidenceHigh)) {
		return ConfidenceHigh
	}
	return ConfidenceMedium
}

// Issue is a single reported review issue.
type Issue struct {
	File        string     `json:"file"`
	Line        *int       `json:"line,omitempty"`
	Kind        Kind       `json:"type"`
	Confidence  Confidence `json:"confidence"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Suggestion  string     `json:"suggestion,omitempty"`
}

// IsCritical reports whether the issue counts toward the critical total.
func (i Issue) IsCritical() bool {
	return i.Kind == KindSecurity || i.Kind == KindBug
}

// Text returns the lowercase concatenation of title, description and
// suggestion used for phrase matching.
func (i Issue) Text() string {
	parts := []string{i.Title, i.Description}
	if i.Suggestion != "" {
		parts = append(parts, i.Suggestion)
	}
	return strings.ToLower(strings.Join(parts, " "))
}

// CountCritical returns the number of security or bug issues.
func CountCritical(issues []Issue) int {
	n := 0
	for _, i := range issues {
		if i.IsCritical() {
			n++
		}
	}
	return n
}
