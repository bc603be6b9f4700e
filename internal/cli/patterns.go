package cli

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/dshills/lens/internal/falsepositive"
	"github.com/dshills/lens/internal/review"
	"github.com/spf13/cobra"
)

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Inspect the effective false-positive catalog",
}

// effectiveCatalog returns the catalog a review in this repository would use:
// built-ins minus disabled ids, then policy patterns, then the framework's.
func effectiveCatalog() (*falsepositive.Catalog, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	sess, err := newSession(cfg, logger, repoRoot(ctx))
	if err != nil {
		return nil, err
	}
	plan := sess.planner().Plan(review.Input{Framework: sess.resolveFramework(ctx, nil)})
	return plan.Catalog, nil
}

var patternsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List false-positive patterns in scoring order",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := effectiveCatalog()
		if err != nil {
			return err
		}
		if flagFormat == "json" {
			return writePatternsJSON(os.Stdout, c)
		}
		return writePatternsText(os.Stdout, c)
	},
}

var patternsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Count false-positive patterns by category and severity",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := effectiveCatalog()
		if err != nil {
			return err
		}
		return writePatternStats(os.Stdout, c.Stats())
	},
}

type patternView struct {
	ID          string   `json:"id"`
	Category    string   `json:"category"`
	Severity    string   `json:"severity"`
	Explanation string   `json:"explanation"`
	Content     string   `json:"content,omitempty"`
	Markers     []string `json:"contextMarkers,omitempty"`
	Indicators  []string `json:"indicators"`
}

func writePatternsJSON(w io.Writer, c *falsepositive.Catalog) error {
	pats := c.Patterns()
	views := make([]patternView, len(pats))
	for i, p := range pats {
		views[i] = patternView{
			ID:          p.ID,
			Category:    p.Category,
			Severity:    p.Severity,
			Explanation: p.Explanation,
			Markers:     p.ContextMarkers,
			Indicators:  p.Indicators,
		}
		if p.Content != nil {
			views[i].Content = p.Content.String()
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(views)
}

func writePatternsText(w io.Writer, c *falsepositive.Catalog) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	ew := &errWriter{w: tw}
	ew.printf("ID\tCATEGORY\tSEVERITY\tEXPLANATION\n")
	for _, p := range c.Patterns() {
		ew.printf("%s\t%s\t%s\t%s\n", p.ID, p.Category, p.Severity, p.Explanation)
	}
	if ew.err != nil {
		return ew.err
	}
	return tw.Flush()
}

func writePatternStats(w io.Writer, s falsepositive.Stats) error {
	ew := &errWriter{w: w}
	ew.printf("Total: %d\n", s.Total)
	ew.printf("By category:\n")
	for _, name := range s.Categories() {
		ew.printf("  %-16s %d\n", name, s.ByCategory[name])
	}
	sev := make([]string, 0, len(s.BySeverity))
	for k := range s.BySeverity {
		sev = append(sev, k)
	}
	sort.Strings(sev)
	ew.printf("By severity:\n")
	for _, name := range sev {
		ew.printf("  %-16s %d\n", name, s.BySeverity[name])
	}
	return ew.err
}

func init() {
	patternsCmd.AddCommand(patternsListCmd)
	patternsCmd.AddCommand(patternsStatsCmd)
	for _, cmd := range []*cobra.Command{patternsListCmd, patternsStatsCmd} {
		cmd.Flags().StringVar(&flagPolicy, "policy", "", "Review policy file (.toml or .yaml)")
		cmd.Flags().StringVar(&flagFramework, "framework", "", "Framework profile (skips detection)")
	}
	patternsListCmd.Flags().StringVar(&flagFormat, "format", "", "Output format (text, json)")
}
