package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dshills/lens/internal/findings"
	"github.com/dshills/lens/internal/review"
)

const defaultAPIURL = "https://api.github.com"

// MaxCommentLen is the longest comment body posted. GitHub rejects bodies
// above 65536 characters.
const MaxCommentLen = 60000

const truncatedNote = "\n\n*Review truncated: the full report exceeds GitHub's comment size limit.*\n"

// Client provides access to the GitHub REST API.
type Client struct {
	token   string
	apiURL  string
	httpCli *http.Client
}

// NewClient creates a new GitHub client. Requires GITHUB_TOKEN env var.
func NewClient() (*Client, error) {
	token := os.Getenv("GITHUB_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("GITHUB_TOKEN environment variable is not set")
	}
	apiURL := os.Getenv("GITHUB_API_URL")
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	return &Client{
		token:   token,
		apiURL:  strings.TrimRight(apiURL, "/"),
		httpCli: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

func (c *Client) do(ctx context.Context, method, url, accept string, payload any) ([]byte, int, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("marshaling request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", accept)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpCli.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return data, resp.StatusCode, fmt.Errorf("authentication failed: %s", string(data))
	}
	return data, resp.StatusCode, nil
}

// GetPRDiff fetches the diff for a pull request.
func (c *Client) GetPRDiff(ctx context.Context, owner, repo string, prNumber int) (string, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/pulls/%d", c.apiURL, owner, repo, prNumber)
	body, status, err := c.do(ctx, http.MethodGet, url, "application/vnd.github.v3.diff", nil)
	if err != nil {
		return "", fmt.Errorf("fetching PR diff: %w", err)
	}
	if status == http.StatusNotFound {
		return "", fmt.Errorf("PR #%d not found in %s/%s", prNumber, owner, repo)
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("GitHub API error (status %d): %s", status, string(body))
	}
	return string(body), nil
}

// PostComment posts body as a pull request conversation comment. Bodies
// longer than MaxCommentLen are truncated.
func (c *Client) PostComment(ctx context.Context, owner, repo string, prNumber int, body string) error {
	url := fmt.Sprintf("%s/repos/%s/%s/issues/%d/comments", c.apiURL, owner, repo, prNumber)
	resp, status, err := c.do(ctx, http.MethodPost, url, "application/vnd.github.v3+json",
		map[string]string{"body": TruncateComment(body)})
	if err != nil {
		return fmt.Errorf("posting comment: %w", err)
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("GitHub API error (status %d): %s", status, string(resp))
	}
	return nil
}

// TruncateComment shortens body to at most MaxCommentLen bytes, cutting on
// a rune boundary and appending a note.
func TruncateComment(body string) string {
	if len(body) <= MaxCommentLen {
		return body
	}
	cut := MaxCommentLen - len(truncatedNote)
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return body[:cut] + truncatedNote
}

// ReviewComment represents an inline comment on a PR review.
type ReviewComment struct {
	Path string `json:"path"`
	Line int    `json:"line"`
	Body string `json:"body"`
}

// ReviewRequest represents a PR review to post.
type ReviewRequest struct {
	Body     string          `json:"body"`
	Event    string          `json:"event"`
	Comments []ReviewComment `json:"comments"`
}

// PostReview posts a pull request review with inline comments.
func (c *Client) PostReview(ctx context.Context, owner, repo string, prNumber int, rr ReviewRequest) error {
	url := fmt.Sprintf("%s/repos/%s/%s/pulls/%d/reviews", c.apiURL, owner, repo, prNumber)
	rr.Body = TruncateComment(rr.Body)
	body, status, err := c.do(ctx, http.MethodPost, url, "application/vnd.github.v3+json", rr)
	if err != nil {
		return fmt.Errorf("posting review: %w", err)
	}
	if status == http.StatusUnprocessableEntity {
		return fmt.Errorf("GitHub rejected review (422): %s", string(body))
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("GitHub API error (status %d): %s", status, string(body))
	}
	return nil
}

// BuildReview converts a review result into a GitHub PR review. The body is
// the summary report; issues with a line in a file of the diff are also
// attached as inline comments.
func BuildReview(res *review.Result, summary string, diffFiles map[string]bool) ReviewRequest {
	var comments []ReviewComment
	for _, is := range res.Issues {
		if is.Line == nil || !diffFiles[is.File] {
			continue
		}
		comments = append(comments, ReviewComment{
			Path: is.File,
			Line: *is.Line,
			Body: formatInlineComment(is),
		})
	}
	return ReviewRequest{
		Body:     summary,
		Event:    "COMMENT",
		Comments: comments,
	}
}

func formatInlineComment(is findings.Issue) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**%s** (%s, confidence: %s)\n\n", is.Title, is.Kind, is.Confidence)
	sb.WriteString(is.Description)
	if is.Suggestion != "" {
		fmt.Fprintf(&sb, "\n\n**Suggestion:**\n```\n%s\n```", is.Suggestion)
	}
	return sb.String()
}

var (
	httpsRemoteRe = regexp.MustCompile(`https?://[^/]+/([^/]+)/([^/.\s]+)`)
	sshRemoteRe   = regexp.MustCompile(`[^@]+@[^:]+:([^/]+)/([^/.\s]+)`)
)

// DetectRepo parses owner/repo from the git remote origin URL.
func DetectRepo(ctx context.Context, dir string) (owner, repo string, err error) {
	cmd := exec.CommandContext(ctx, "git", "remote", "get-url", "origin")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", "", fmt.Errorf("cannot detect repo: git remote get-url origin failed: %w", err)
	}
	return ParseRemoteURL(strings.TrimSpace(string(out)))
}

// ParseRemoteURL extracts owner/repo from a git remote URL.
func ParseRemoteURL(url string) (owner, repo string, err error) {
	url = strings.TrimSuffix(url, ".git")

	if m := httpsRemoteRe.FindStringSubmatch(url); len(m) == 3 {
		return m[1], m[2], nil
	}
	if m := sshRemoteRe.FindStringSubmatch(url); len(m) == 3 {
		return m[1], m[2], nil
	}
	return "", "", fmt.Errorf("cannot parse owner/repo from remote URL: %s", url)
}

// ParseRepo splits an "owner/repo" string.
func ParseRepo(s string) (owner, repo string, err error) {
	owner, repo, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", fmt.Errorf("invalid repository %q (want owner/repo)", s)
	}
	return owner, repo, nil
}
