// Package output formats review results for display or machine consumption.
//
// Three formats are supported:
//   - text: human-readable terminal output (default)
//   - json: the full structured result
//   - markdown: PR-comment-friendly with collapsible sections per issue type
//
// Use [GetWriter] to obtain a [Writer] for a format, or [WriteResults] to
// pick the destination. Markdown sent to a terminal is rendered with glamour.
package output
