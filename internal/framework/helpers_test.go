package framework

import "github.com/dshills/lens/internal/findings"

func findingsIssue(title, desc string) findings.Issue {
	return findings.Issue{File: "app.js", Title: title, Description: desc}
}
