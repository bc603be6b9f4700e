// Package gitctx extracts diffs and commit metadata from a git repository.
//
// It supports the unstaged, staged, commit and range review modes by
// shelling out to git. The raw unified diff is returned as is; file
// filtering happens when the diff is parsed into a change set.
//
// [ListCommits] returns the ordered list of commits in a revision range for
// use with per-commit review mode. [TrackedFiles] and [ReadManifests] feed
// framework detection.
package gitctx
