package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dshills/lens/internal/config"
	"github.com/dshills/lens/internal/gitctx"
	"github.com/dshills/lens/internal/logging"
	"github.com/dshills/lens/internal/output"
	"github.com/dshills/lens/internal/review"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Shared review flags
var (
	flagPaths          string
	flagExclude        string
	flagContextLines   int
	flagMaxFileBytes   int
	flagProvider       string
	flagModel          string
	flagFormat         string
	flagOut            string
	flagFramework      string
	flagPolicy         string
	flagConcurrency    int
	flagLogLevel       string
	flagNoRedact       bool
	flagNoValidate     bool
	flagFailOnCritical bool
)

func addReviewFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagPaths, "paths", "", "Include file path globs (comma-separated)")
	cmd.Flags().StringVar(&flagExclude, "exclude", "", "Exclude file path globs (comma-separated)")
	cmd.Flags().IntVar(&flagContextLines, "context-lines", 0, "Number of context lines in diff")
	cmd.Flags().IntVar(&flagMaxFileBytes, "max-file-bytes", 0, "Skip files whose diff is larger than this")
	cmd.Flags().StringVar(&flagProvider, "provider", "", "LLM provider (anthropic, openai, gemini, ollama)")
	cmd.Flags().StringVar(&flagModel, "model", "", "Model name")
	cmd.Flags().StringVar(&flagFormat, "format", "", "Output format (text, json, markdown)")
	cmd.Flags().StringVar(&flagOut, "out", "", "Output file path (default: stdout)")
	cmd.Flags().StringVar(&flagFramework, "framework", "", "Framework profile (skips detection)")
	cmd.Flags().StringVar(&flagPolicy, "policy", "", "Review policy file (.toml or .yaml)")
	cmd.Flags().IntVar(&flagConcurrency, "concurrency", 0, "Parallel reviews for --per-commit")
	cmd.Flags().StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&flagNoRedact, "no-redact", false, "Disable secret redaction (use with caution)")
	cmd.Flags().BoolVar(&flagNoValidate, "no-validate", false, "Keep issues that match known false-positive patterns")
	cmd.Flags().BoolVar(&flagFailOnCritical, "fail-on-critical", false, "Exit 1 when a security or bug issue is found")
}

func buildOverrides() map[string]string {
	m := make(map[string]string)
	if flagProvider != "" {
		m["provider"] = flagProvider
	}
	if flagModel != "" {
		m["model"] = flagModel
	}
	if flagFormat != "" {
		m["format"] = flagFormat
	}
	if flagFramework != "" {
		m["framework"] = flagFramework
	}
	if flagPolicy != "" {
		m["policyFile"] = flagPolicy
	}
	if flagContextLines > 0 {
		m["contextLines"] = strconv.Itoa(flagContextLines)
	}
	if flagMaxFileBytes > 0 {
		m["maxFileBytes"] = strconv.Itoa(flagMaxFileBytes)
	}
	if flagConcurrency > 0 {
		m["concurrency"] = strconv.Itoa(flagConcurrency)
	}
	if flagLogLevel != "" {
		m["log.level"] = flagLogLevel
	}
	if flagNoValidate {
		m["validateIssues"] = "false"
	}
	if flagNoRedact {
		m["privacy.redactSecrets"] = "false"
	}
	return m
}

// applyPathFlags replaces the include globs and extends the exclude globs.
func applyPathFlags(cfg *config.Config) {
	if flagPaths != "" {
		cfg.Include = splitComma(flagPaths)
	}
	if flagExclude != "" {
		cfg.Exclude = append(cfg.Exclude, splitComma(flagExclude)...)
	}
}

func splitComma(s string) []string {
	parts := strings.Split(s, ",")
	var result []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// loadConfig resolves the effective configuration and builds the logger.
func loadConfig() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(buildOverrides())
	if err != nil {
		return config.Config{}, nil, err
	}
	applyPathFlags(&cfg)
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

// collectDiff runs the git command for a review mode.
func collectDiff(ctx context.Context, mode string, args []string, opts gitctx.Options) (gitctx.DiffResult, error) {
	switch mode {
	case "unstaged":
		return gitctx.Unstaged(ctx, opts)
	case "staged":
		return gitctx.Staged(ctx, opts)
	case "commit":
		if len(args) != 1 {
			return gitctx.DiffResult{}, fmt.Errorf("commit requires a SHA")
		}
		return gitctx.Commit(ctx, args[0], opts)
	case "range":
		if len(args) != 1 {
			return gitctx.DiffResult{}, fmt.Errorf("range requires a revision range")
		}
		return gitctx.Range(ctx, args[0], flagMergeBase, opts)
	default:
		return gitctx.DiffResult{}, fmt.Errorf("unknown mode %q (want unstaged, staged, commit or range)", mode)
	}
}

// runLocalReview reviews a diff from the local repository and writes the
// results.
func runLocalReview(mode string, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	warnRedactionOff(cfg)

	ctx := context.Background()
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
	opts := gitctx.Options{ContextLines: cfg.ContextLines}

	var results []*review.Result
	if mode == "range" && flagPerCommit {
		results, err = sess.reviewCommits(ctx, eng, args[0], flagMergeBase, opts)
		if err != nil {
			failRun(err)
			return nil
		}
		if len(results) == 0 {
			fmt.Fprintln(os.Stdout, "No reviewable changes in range.")
			return nil
		}
	} else {
		diff, err := collectDiff(ctx, mode, args, opts)
		if err != nil {
			fail(ExitRuntimeError, err)
			return nil
		}
		res, _, err := sess.review(ctx, eng, diff)
		if err != nil {
			failRun(err)
			return nil
		}
		if res == nil {
			fmt.Fprintln(os.Stdout, "No reviewable changes.")
			return nil
		}
		results = []*review.Result{res}
	}

	writeResults(results, cfg)
	return nil
}

// reviewCommits reviews every commit in revRange independently with at most
// cfg.Concurrency reviews in flight. Results keep commit order; commits with
// nothing to review are left out.
func (s *session) reviewCommits(ctx context.Context, eng *review.Engine, revRange string, mergeBase bool, opts gitctx.Options) ([]*review.Result, error) {
	commits, err := gitctx.ListCommits(ctx, opts.Dir, revRange, mergeBase)
	if err != nil {
		return nil, err
	}

	// Detect once before fanning out.
	s.resolveFramework(ctx, nil)

	results := make([]*review.Result, len(commits))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, s.cfg.Concurrency))
	for i, c := range commits {
		g.Go(func() error {
			diff, err := gitctx.Commit(gctx, c.SHA, opts)
			if err != nil {
				return fmt.Errorf("commit %s: %w", shortSHA(c.SHA), err)
			}
			res, _, err := s.review(gctx, eng, diff)
			if err != nil {
				return fmt.Errorf("commit %s: %w", shortSHA(c.SHA), err)
			}
			if res == nil {
				s.logger.Info("nothing to review in commit", zap.String("sha", c.SHA))
				return nil
			}
			s.logger.Debug("reviewed commit",
				zap.String("sha", c.SHA),
				zap.String("subject", c.Subject),
				zap.Int("issues", len(res.Issues)))
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]*review.Result, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, r)
		}
	}
	return out, nil
}

// writeResults writes the results and sets the exit code for critical
// issues when asked to.
func writeResults(results []*review.Result, cfg config.Config) {
	if err := output.WriteResults(results, cfg.Format, flagOut); err != nil {
		fail(ExitRuntimeError, fmt.Errorf("writing output: %w", err))
		return
	}
	if flagFailOnCritical && anyCritical(results) {
		exitCode = ExitFindings
	}
}

func anyCritical(results []*review.Result) bool {
	for _, r := range results {
		if r.HasCritical() {
			return true
		}
	}
	return false
}

func shortSHA(sha string) string {
	if len(sha) > 12 {
		return sha[:12]
	}
	return sha
}

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review code changes",
	Long:  "Review code changes using an LLM provider. Use subcommands to specify what to review.",
}

var reviewUnstagedCmd = &cobra.Command{
	Use:   "unstaged",
	Short: "Review unstaged changes (working tree vs index)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLocalReview("unstaged", args)
	},
}

var reviewStagedCmd = &cobra.Command{
	Use:   "staged",
	Short: "Review staged changes (index vs HEAD)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLocalReview("staged", args)
	},
}

var reviewCommitCmd = &cobra.Command{
	Use:   "commit <sha>",
	Short: "Review a specific commit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLocalReview("commit", args)
	},
}

var (
	flagMergeBase bool
	flagPerCommit bool
)

var reviewRangeCmd = &cobra.Command{
	Use:   "range <revRange>",
	Short: "Review a revision range (e.g., origin/main..HEAD)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLocalReview("range", args)
	},
}

func init() {
	reviewCmd.AddCommand(reviewUnstagedCmd)
	reviewCmd.AddCommand(reviewStagedCmd)
	reviewCmd.AddCommand(reviewCommitCmd)
	reviewCmd.AddCommand(reviewRangeCmd)
	reviewCmd.AddCommand(reviewPRCmd)

	for _, cmd := range []*cobra.Command{
		reviewUnstagedCmd,
		reviewStagedCmd,
		reviewCommitCmd,
		reviewRangeCmd,
		reviewPRCmd,
	} {
		addReviewFlags(cmd)
	}

	reviewRangeCmd.Flags().BoolVar(&flagMergeBase, "merge-base", true, "Use merge base for branch comparisons")
	reviewRangeCmd.Flags().BoolVar(&flagPerCommit, "per-commit", false, "Review each commit in the range separately")
}
