// Package redact removes secrets from changed files before they are sent to
// any completion provider.
//
// Detection uses regex heuristics covering common secret shapes: API keys,
// JWTs, private keys, AWS credentials, bearer tokens, database URLs with
// inline passwords and provider-specific tokens.
//
// Files whose paths match configured glob patterns have their entire content
// replaced rather than being scanned line by line.
package redact
