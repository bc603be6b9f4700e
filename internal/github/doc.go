// Package github is a minimal GitHub REST API client for reviewing pull
// requests: it fetches a PR diff and posts the review back, either as one
// conversation comment or as a PR review with inline comments.
//
// The repository is detected from the local git remote and the token is read
// from GITHUB_TOKEN. GITHUB_API_URL selects a GitHub Enterprise endpoint.
package github
