// Package changeset turns a raw unified diff into the list of changed files
// a review operates on, and computes path-based risk flags for it.
//
// Parsing uses go-gitdiff. Binary, deleted, generated, oversized and
// excluded files are dropped here so later stages never see them; every
// dropped file is reported with a reason.
package changeset
