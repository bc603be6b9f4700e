package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/dshills/lens/internal/changeset"
	"github.com/dshills/lens/internal/framework"
	"github.com/dshills/lens/internal/gitctx"
	"github.com/dshills/lens/internal/priority"
	"github.com/dshills/lens/internal/review"
	"github.com/dshills/lens/internal/strategy"
	"github.com/spf13/cobra"
)

var planCmd = &cobra.Command{
	Use:   "plan <unstaged|staged|commit|range> [ref]",
	Short: "Show how a change would be reviewed without calling a provider",
	Long: "Prioritize, pack and select a strategy for a change and print the decision. " +
		"No request is sent to the completion service.",
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		ctx := context.Background()
		sess, err := newSession(cfg, logger, repoRoot(ctx))
		if err != nil {
			fail(ExitUsageError, err)
			return nil
		}

		diff, err := collectDiff(ctx, args[0], args[1:], gitctx.Options{ContextLines: cfg.ContextLines})
		if err != nil {
			fail(ExitRuntimeError, err)
			return nil
		}
		prep, err := sess.prepare(ctx, diff)
		if err != nil {
			fail(ExitRuntimeError, err)
			return nil
		}

		view := newPlanView(sess.planner().Plan(prep.input), prep.set.Skipped)
		if cfg.Format == "json" {
			err = writePlanJSON(os.Stdout, view)
		} else {
			err = writePlanText(os.Stdout, view)
		}
		if err != nil {
			fail(ExitRuntimeError, err)
		}
		return nil
	},
}

type planFile struct {
	Path   string        `json:"path"`
	Tier   priority.Tier `json:"tier"`
	Reason string        `json:"reason"`
	Tokens int           `json:"tokens"`
}

type planView struct {
	Framework     framework.Detected      `json:"framework"`
	Flags         changeset.Flags         `json:"flags"`
	DiffBytes     int                     `json:"diffBytes"`
	Strategy      strategy.Strategy       `json:"strategy"`
	Stats         priority.Stats          `json:"stats"`
	ContextTokens int                     `json:"contextTokens"`
	Included      []planFile              `json:"included"`
	Excluded      []planFile              `json:"excluded"`
	Skipped       []changeset.SkippedFile `json:"skipped,omitempty"`
	AffectedAreas []string                `json:"affectedAreas"`
	Patterns      int                     `json:"falsePositivePatterns"`
	Notice        string                  `json:"notice,omitempty"`
}

func newPlanView(p review.Plan, skipped []changeset.SkippedFile) planView {
	v := planView{
		Framework:     p.Framework,
		Flags:         p.Flags,
		DiffBytes:     p.DiffBytes,
		Strategy:      p.Strategy,
		Stats:         p.Stats,
		ContextTokens: p.Packed.Tokens,
		Included:      planFiles(p.Packed.Included),
		Excluded:      planFiles(p.Packed.Excluded),
		Skipped:       skipped,
		AffectedAreas: p.AffectedAreas,
		Patterns:      p.Catalog.Len(),
	}
	if p.Strategy.ShouldSkip() {
		v.Notice = strategy.SkipNotice(p.DiffBytes)
	}
	return v
}

func planFiles(files []priority.File) []planFile {
	out := make([]planFile, len(files))
	for i, f := range files {
		out[i] = planFile{Path: f.Path, Tier: f.Tier, Reason: f.Reason, Tokens: f.Tokens()}
	}
	return out
}

func writePlanJSON(w io.Writer, v planView) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writePlanText(w io.Writer, v planView) error {
	ew := &errWriter{w: w}
	fw := string(v.Framework.Name)
	if v.Framework.Version != "" {
		fw += " " + v.Framework.Version
	}
	ew.printf("Framework: %s (confidence %.2f)\n", fw, v.Framework.Confidence)
	ew.printf("Change: %d bytes | critical module: %s | config only: %s\n",
		v.DiffBytes, yesNo(v.Flags.Critical), yesNo(v.Flags.ConfigOnly))
	if v.Notice != "" {
		ew.printf("Strategy: %s\n%s\n", v.Strategy.Name, v.Notice)
		return ew.err
	}
	ew.printf("Strategy: %s (max completion tokens %d, context budget %d)\n",
		v.Strategy.Name, v.Strategy.MaxCompletionTokens, v.Strategy.ContextTokenBudget)
	ew.printf("Files: %d critical, %d high, %d normal, %d low\n",
		v.Stats.Critical, v.Stats.High, v.Stats.Normal, v.Stats.Low)
	ew.printf("Packed: %d included (%d tokens), %d excluded\n",
		len(v.Included), v.ContextTokens, len(v.Excluded))
	for _, f := range v.Included {
		ew.printf("  + [%s] %s (%d tokens) %s\n", f.Tier, f.Path, f.Tokens, f.Reason)
	}
	for _, f := range v.Excluded {
		ew.printf("  - [%s] %s (%d tokens) %s\n", f.Tier, f.Path, f.Tokens, f.Reason)
	}
	for _, s := range v.Skipped {
		ew.printf("  skipped %s: %s\n", s.Path, s.Reason)
	}
	ew.printf("False-positive patterns: %d\n", v.Patterns)
	return ew.err
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// errWriter keeps the first write error so printing code can stay linear.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}

func init() {
	addReviewFlags(planCmd)
	planCmd.Flags().BoolVar(&flagMergeBase, "merge-base", true, "Use merge base for range comparisons")
}
