package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/dshills/lens/internal/github"
	"github.com/dshills/lens/internal/gitctx"
	"github.com/dshills/lens/internal/output"
	"github.com/dshills/lens/internal/review"
	"github.com/spf13/cobra"
)

var (
	flagGHRepo   string
	flagGHPost   bool
	flagGHInline bool
)

var reviewPRCmd = &cobra.Command{
	Use:   "pr <number>",
	Short: "Review a GitHub pull request",
	Long:  "Fetch a PR diff from GitHub, run review, and optionally post the result as a PR comment or review.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		prNumber, err := strconv.Atoi(args[0])
		if err != nil || prNumber <= 0 {
			fail(ExitUsageError, fmt.Errorf("invalid PR number %q", args[0]))
			return nil
		}

		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()
		warnRedactionOff(cfg)

		ctx := context.Background()

		owner, repo, err := resolveRepo(ctx)
		if err != nil {
			fail(ExitUsageError, fmt.Errorf("%w; use --repo owner/name", err))
			return nil
		}

		gh, err := github.NewClient()
		if err != nil {
			fail(ExitAuthError, err)
			return nil
		}

		fmt.Fprintf(os.Stderr, "Fetching PR #%d from %s/%s...\n", prNumber, owner, repo)
		diff, err := gh.GetPRDiff(ctx, owner, repo, prNumber)
		if err != nil {
			fail(ExitRuntimeError, err)
			return nil
		}
		if diff == "" {
			fmt.Fprintln(os.Stdout, "PR has no diff, nothing to review.")
			return nil
		}

		sess, err := newSession(cfg, logger, repoRoot(ctx))
		if err != nil {
			fail(ExitUsageError, err)
			return nil
		}
		eng, err := sess.engine()
		if err != nil {
			failEngine(err)
			return nil
		}

		res, prep, err := sess.review(ctx, eng, gitctx.DiffResult{
			Diff:  diff,
			Mode:  "pr",
			Range: fmt.Sprintf("%s/%s#%d", owner, repo, prNumber),
		})
		if err != nil {
			failRun(err)
			return nil
		}
		if res == nil {
			fmt.Fprintln(os.Stdout, "No reviewable changes in PR.")
			return nil
		}

		writeResults([]*review.Result{res}, cfg)
		if exitCode == ExitRuntimeError || !flagGHPost {
			return nil
		}

		body := output.Markdown(res)
		if flagGHInline {
			files := make(map[string]bool, len(prep.set.Files))
			for _, p := range prep.set.Paths() {
				files[p] = true
			}
			rr := github.BuildReview(res, body, files)
			fmt.Fprintf(os.Stderr, "Posting review (%d inline comments)...\n", len(rr.Comments))
			err = gh.PostReview(ctx, owner, repo, prNumber, rr)
		} else {
			fmt.Fprintln(os.Stderr, "Posting comment...")
			err = gh.PostComment(ctx, owner, repo, prNumber, body)
		}
		if err != nil {
			fail(ExitRuntimeError, fmt.Errorf("posting to GitHub: %w", err))
			return nil
		}
		fmt.Fprintf(os.Stderr, "Posted to PR #%d.\n", prNumber)
		return nil
	},
}

// resolveRepo returns the repository from --repo, or from the origin remote.
func resolveRepo(ctx context.Context) (string, string, error) {
	if flagGHRepo != "" {
		return github.ParseRepo(flagGHRepo)
	}
	return github.DetectRepo(ctx, "")
}

func init() {
	reviewPRCmd.Flags().StringVar(&flagGHRepo, "repo", "", "GitHub repository as owner/name (auto-detected if omitted)")
	reviewPRCmd.Flags().BoolVar(&flagGHPost, "post", false, "Post the review to the pull request")
	reviewPRCmd.Flags().BoolVar(&flagGHInline, "inline", false, "With --post, attach line comments as a PR review")
}
