package review

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/dshills/lens/internal/findings"
)

// Outcome is the result of parsing a review response: either *Parsed or
// *ParseFailure.
type Outcome interface {
	outcome()
}

// Parsed is a successfully parsed response.
type Parsed struct {
	Issues []findings.Issue
	// Consensus is nil when the model supplied none or only placeholders.
	Consensus *Consensus
	// Dropped counts issue entries that were not JSON objects.
	Dropped int
}

// ParseFailure is a response that did not match the expected shape.
type ParseFailure struct {
	Raw    string
	Reason string
}

func (*Parsed) outcome()       {}
func (*ParseFailure) outcome() {}

// ParseFailureAssessment is the overall assessment of an unparseable review.
const ParseFailureAssessment = "failed to parse review response"

// Defaults applied to issue fields the model left out.
const (
	DefaultFile  = "unknown"
	DefaultTitle = "Issue"
)

type rawResponse struct {
	Issues    json.RawMessage `json:"issues"`
	Consensus json.RawMessage `json:"consensus"`
}

type rawIssue struct {
	File        string          `json:"file"`
	Line        json.RawMessage `json:"line"`
	Type        string          `json:"type"`
	Confidence  string          `json:"confidence"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Suggestion  string          `json:"suggestion"`
}

type rawConsensus struct {
	HawkCount     json.Number `json:"hawkCount"`
	OwlRejected   json.Number `json:"owlRejected"`
	Assessment    string      `json:"assessment"`
	AffectedAreas []string    `json:"affectedAreas"`
}

// ParseResponse parses a completion into issues and consensus metadata. It
// never returns an error; malformed input yields a *ParseFailure.
func ParseResponse(content string) Outcome {
	body, ok := extractJSONObject(content)
	if !ok {
		return &ParseFailure{Raw: content, Reason: "response is not a JSON object"}
	}

	var raw rawResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return &ParseFailure{Raw: content, Reason: "invalid JSON: " + err.Error()}
	}
	trimmed := bytes.TrimSpace(raw.Issues)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return &ParseFailure{Raw: content, Reason: "missing issues array"}
	}

	var items []json.RawMessage
	if trimmed[0] != '[' || json.Unmarshal(trimmed, &items) != nil {
		return &ParseFailure{Raw: content, Reason: "issues is not an array"}
	}

	p := &Parsed{Issues: make([]findings.Issue, 0, len(items))}
	for _, item := range items {
		var ri rawIssue
		if t := bytes.TrimSpace(item); len(t) == 0 || t[0] != '{' || json.Unmarshal(t, &ri) != nil {
			p.Dropped++
			continue
		}
		p.Issues = append(p.Issues, normalizeIssue(ri))
	}
	p.Consensus = parseConsensus(raw.Consensus)
	return p
}

func normalizeIssue(ri rawIssue) findings.Issue {
	is := findings.Issue{
		File:        strings.TrimSpace(ri.File),
		Line:        parseLine(ri.Line),
		Kind:        findings.ParseKind(ri.Type),
		Confidence:  findings.ParseConfidence(ri.Confidence),
		Title:       strings.TrimSpace(ri.Title),
		Description: strings.TrimSpace(ri.Description),
		Suggestion:  strings.TrimSpace(ri.Suggestion),
	}
	if is.File == "" {
		is.File = DefaultFile
	}
	if is.Title == "" {
		is.Title = DefaultTitle
	}
	return is
}

// parseLine accepts a positive number or a numeric string.
func parseLine(raw json.RawMessage) *int {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" || s == "null" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 1 {
		return nil
	}
	n := int(f)
	return &n
}

func parseConsensus(raw json.RawMessage) *Consensus {
	if t := bytes.TrimSpace(raw); len(t) == 0 || t[0] != '{' {
		return nil
	}
	var rc rawConsensus
	if err := json.Unmarshal(raw, &rc); err != nil {
		return nil
	}
	if isPlaceholder(rc.Assessment) {
		return nil
	}
	hawk, _ := rc.HawkCount.Int64()
	owl, _ := rc.OwlRejected.Int64()
	return &Consensus{
		HawkCount:     int(hawk),
		OwlRejected:   int(owl),
		Assessment:    strings.TrimSpace(rc.Assessment),
		AffectedAreas: rc.AffectedAreas,
	}
}

var placeholders = map[string]bool{
	"": true, "string": true, "...": true, "n/a": true, "na": true,
	"none": true, "tbd": true, "todo": true, "assessment": true,
}

// isPlaceholder reports whether an assessment is empty or template text
// echoed back from the output schema.
func isPlaceholder(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if placeholders[s] {
		return true
	}
	return strings.HasPrefix(s, "<") && strings.HasSuffix(s, ">")
}

// extractJSONObject strips markdown fences and surrounding prose and returns
// the first complete JSON object. Text after the object is ignored.
func extractJSONObject(content string) ([]byte, bool) {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		lines := strings.Split(content, "\n")
		if len(lines) >= 2 {
			end := len(lines)
			if strings.TrimSpace(lines[end-1]) == "```" {
				end--
			}
			content = strings.TrimSpace(strings.Join(lines[1:end], "\n"))
		}
	}
	for rest := content; ; {
		start := strings.IndexByte(rest, '{')
		if start < 0 {
			return nil, false
		}
		rest = rest[start:]
		var raw json.RawMessage
		err := json.NewDecoder(strings.NewReader(rest)).Decode(&raw)
		switch {
		case err == nil:
			return raw, true
		case errors.Is(err, io.ErrUnexpectedEOF):
			// Truncated object; an inner brace would only yield a fragment.
			return nil, false
		}
		rest = rest[1:]
	}
}
