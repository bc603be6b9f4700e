package review

import (
	"fmt"

	"github.com/dshills/lens/internal/findings"
)

// NoIssuesAssessment is the assessment of a clean review.
const NoIssuesAssessment = "no significant issues found"

// Summarize digests issues. A non-nil consensus with a usable assessment
// supplies the assessment and affected areas.
func Summarize(issues []findings.Issue, consensus *Consensus) Summary {
	s := Summary{
		TotalIssues:    len(issues),
		CriticalIssues: findings.CountCritical(issues),
	}

	if consensus != nil && len(consensus.AffectedAreas) > 0 {
		s.AffectedAreas = consensus.AffectedAreas
	} else {
		paths := make([]string, 0, len(issues))
		for _, is := range issues {
			if is.File != DefaultFile {
				paths = append(paths, is.File)
			}
		}
		s.AffectedAreas = AffectedAreas(paths)
	}
	if s.AffectedAreas == nil {
		s.AffectedAreas = []string{}
	}

	switch {
	case consensus != nil && !consensus.Synthesized && !isPlaceholder(consensus.Assessment):
		s.OverallAssessment = consensus.Assessment
	case s.TotalIssues == 0:
		s.OverallAssessment = NoIssuesAssessment
	case s.CriticalIssues > 0:
		s.OverallAssessment = fmt.Sprintf("%d critical issue(s) need attention before merging", s.CriticalIssues)
	default:
		s.OverallAssessment = fmt.Sprintf("%d issue(s) to consider", s.TotalIssues)
	}
	return s
}

// synthesizeConsensus derives consensus metadata from the issue list when the
// model supplied none.
func synthesizeConsensus(issues []findings.Issue) *Consensus {
	paths := make([]string, 0, len(issues))
	for _, is := range issues {
		if is.File != DefaultFile {
			paths = append(paths, is.File)
		}
	}
	return &Consensus{
		HawkCount:     len(issues),
		AffectedAreas: AffectedAreas(paths),
		Synthesized:   true,
	}
}
