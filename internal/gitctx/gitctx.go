package gitctx

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Options controls how diffs are gathered.
type Options struct {
	// Dir is the working directory git runs in. Empty means the process
	// working directory.
	Dir          string
	ContextLines int
}

// DiffResult holds the collected diff and metadata.
type DiffResult struct {
	Diff  string
	Mode  string
	Range string
	Repo  RepoMeta
}

// RepoMeta contains git repository metadata.
type RepoMeta struct {
	Root   string
	Head   string
	Branch string
}

// GetRepoMeta collects repository metadata from git.
func GetRepoMeta(ctx context.Context, dir string) (RepoMeta, error) {
	root, err := gitOutput(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return RepoMeta{}, fmt.Errorf("not a git repository: %w", err)
	}
	head, err := gitOutput(ctx, dir, "rev-parse", "HEAD")
	if err != nil {
		head = "" // new repo with no commits
	}
	branch, err := gitOutput(ctx, dir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		branch = ""
	}
	return RepoMeta{
		Root:   strings.TrimSpace(root),
		Head:   strings.TrimSpace(head),
		Branch: strings.TrimSpace(branch),
	}, nil
}

// Unstaged returns the diff of working tree vs index.
func Unstaged(ctx context.Context, opts Options) (DiffResult, error) {
	diff, err := gitOutput(ctx, opts.Dir, diffArgs(opts, "diff")...)
	if err != nil {
		return DiffResult{}, fmt.Errorf("git diff: %w", err)
	}
	return buildResult(ctx, diff, "unstaged", "", opts), nil
}

// Staged returns the diff of index vs HEAD.
func Staged(ctx context.Context, opts Options) (DiffResult, error) {
	diff, err := gitOutput(ctx, opts.Dir, diffArgs(opts, "diff", "--cached")...)
	if err != nil {
		return DiffResult{}, fmt.Errorf("git diff --cached: %w", err)
	}
	return buildResult(ctx, diff, "staged", "", opts), nil
}

// Commit returns the diff for a specific commit vs its parent.
func Commit(ctx context.Context, sha string, opts Options) (DiffResult, error) {
	diff, err := gitOutput(ctx, opts.Dir, diffArgs(opts, "diff", sha+"~1", sha)...)
	if err != nil {
		// Might be the initial commit, which has no parent.
		diff, err = gitOutput(ctx, opts.Dir, diffArgs(opts, "show", "--format=", sha)...)
		if err != nil {
			return DiffResult{}, fmt.Errorf("git show %s: %w", sha, err)
		}
	}
	return buildResult(ctx, diff, "commit", sha, opts), nil
}

// Range returns the combined diff for a revision range.
func Range(ctx context.Context, revRange string, mergeBase bool, opts Options) (DiffResult, error) {
	diff, err := gitOutput(ctx, opts.Dir, diffArgs(opts, "diff", mergeBaseRange(revRange, mergeBase))...)
	if err != nil {
		return DiffResult{}, fmt.Errorf("git diff %s: %w", revRange, err)
	}
	return buildResult(ctx, diff, "range", revRange, opts), nil
}

// mergeBaseRange converts "a..b" to "a...b" when mergeBase is set.
func mergeBaseRange(revRange string, mergeBase bool) string {
	if mergeBase && strings.Contains(revRange, "..") && !strings.Contains(revRange, "...") {
		return strings.Replace(revRange, "..", "...", 1)
	}
	return revRange
}

func diffArgs(opts Options, cmd ...string) []string {
	args := append([]string{}, cmd...)
	args = append(args, "--no-color", "--no-ext-diff")
	if opts.ContextLines > 0 {
		args = append(args, fmt.Sprintf("-U%d", opts.ContextLines))
	}
	return args
}

func buildResult(ctx context.Context, diff, mode, rangeStr string, opts Options) DiffResult {
	meta, err := GetRepoMeta(ctx, opts.Dir)
	if err != nil {
		meta = RepoMeta{}
	}
	return DiffResult{
		Diff:  diff,
		Mode:  mode,
		Range: rangeStr,
		Repo:  meta,
	}
}

// CommitInfo holds a commit SHA and its subject line.
type CommitInfo struct {
	SHA     string
	Subject string
}

// ListCommits returns commits in a revision range, oldest first.
// If mergeBase is true, ".." is converted to "..." for merge-base comparison.
func ListCommits(ctx context.Context, dir, revRange string, mergeBase bool) ([]CommitInfo, error) {
	// Output format: "commit <sha>\n<subject>\n" per commit.
	out, err := gitOutput(ctx, dir, "rev-list", "--reverse", "--format=%s", mergeBaseRange(revRange, mergeBase))
	if err != nil {
		return nil, fmt.Errorf("git rev-list %s: %w", revRange, err)
	}

	out = strings.TrimSpace(out)
	if out == "" {
		return nil, nil
	}

	lines := strings.Split(out, "\n")
	var commits []CommitInfo
	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(line, "commit ") {
			continue
		}
		sha := strings.TrimPrefix(line, "commit ")
		var subject string
		if i+1 < len(lines) {
			subject = strings.TrimSpace(lines[i+1])
			i++ // skip the subject line
		}
		commits = append(commits, CommitInfo{
			SHA:     sha,
			Subject: subject,
		})
	}
	return commits, nil
}

// TrackedFiles returns the repository-relative paths git tracks.
func TrackedFiles(ctx context.Context, dir string) ([]string, error) {
	out, err := gitOutput(ctx, dir, "ls-files")
	if err != nil {
		return nil, fmt.Errorf("git ls-files: %w", err)
	}
	var files []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			files = append(files, line)
		}
	}
	return files, nil
}

// maxManifestBytes bounds how much of a manifest is read.
const maxManifestBytes = 256 << 10

// ReadManifests reads the named files relative to root. Missing, unreadable
// or oversized files are left out of the result.
func ReadManifests(root string, names []string) map[string]string {
	out := make(map[string]string)
	for _, name := range names {
		p := filepath.Join(root, filepath.FromSlash(name))
		info, err := os.Stat(p)
		if err != nil || info.IsDir() || info.Size() > maxManifestBytes {
			continue
		}
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		out[name] = string(data)
	}
	return out
}

func gitOutput(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return string(out), fmt.Errorf("%s: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", err
	}
	return string(out), nil
}
