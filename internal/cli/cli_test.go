package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dshills/lens/internal/changeset"
	"github.com/dshills/lens/internal/config"
	"github.com/dshills/lens/internal/falsepositive"
	"github.com/dshills/lens/internal/framework"
	"github.com/dshills/lens/internal/gitctx"
	"github.com/dshills/lens/internal/providers"
	"github.com/dshills/lens/internal/review"
	"github.com/dshills/lens/internal/strategy"
)

// resetFlags resets all package-level flag variables to their zero values.
func resetFlags() {
	flagPaths = ""
	flagExclude = ""
	flagContextLines = 0
	flagMaxFileBytes = 0
	flagProvider = ""
	flagModel = ""
	flagFormat = ""
	flagOut = ""
	flagFramework = ""
	flagPolicy = ""
	flagConcurrency = 0
	flagLogLevel = ""
	flagNoRedact = false
	flagNoValidate = false
	flagFailOnCritical = false
	flagMergeBase = false
	flagPerCommit = false
	flagGHRepo = ""
	flagGHPost = false
	flagGHInline = false
}

func TestSplitComma(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty string", "", nil},
		{"single value", "foo", []string{"foo"}},
		{"multiple values", "a,b,c", []string{"a", "b", "c"}},
		{"whitespace trimmed", " a , b , c ", []string{"a", "b", "c"}},
		{"empty parts skipped", "a,,b", []string{"a", "b"}},
		{"all empty", ",,,", nil},
		{"glob patterns", "*.go,src/**/*.ts", []string{"*.go", "src/**/*.ts"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, splitComma(tt.input)); diff != "" {
				t.Errorf("splitComma(%q) mismatch (-want +got):\n%s", tt.input, diff)
			}
		})
	}
}

func TestBuildOverrides_NoFlags(t *testing.T) {
	resetFlags()
	if m := buildOverrides(); len(m) != 0 {
		t.Errorf("buildOverrides() with no flags = %v, want empty map", m)
	}
}

func TestBuildOverrides_AllFlags(t *testing.T) {
	resetFlags()
	t.Cleanup(resetFlags)
	flagProvider = "openai"
	flagModel = "gpt-4o"
	flagFormat = "json"
	flagFramework = "django"
	flagPolicy = "review.yaml"
	flagContextLines = 5
	flagMaxFileBytes = 1000
	flagConcurrency = 8
	flagLogLevel = "debug"
	flagNoValidate = true
	flagNoRedact = true

	want := map[string]string{
		"provider":              "openai",
		"model":                 "gpt-4o",
		"format":                "json",
		"framework":             "django",
		"policyFile":            "review.yaml",
		"contextLines":          "5",
		"maxFileBytes":          "1000",
		"concurrency":           "8",
		"log.level":             "debug",
		"validateIssues":        "false",
		"privacy.redactSecrets": "false",
	}
	if diff := cmp.Diff(want, buildOverrides()); diff != "" {
		t.Errorf("buildOverrides() mismatch (-want +got):\n%s", diff)
	}
}

// Every override key must be one config.Load accepts.
func TestBuildOverrides_LoadAccepts(t *testing.T) {
	resetFlags()
	t.Cleanup(resetFlags)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	flagProvider = "gemini"
	flagFramework = "rails"
	flagConcurrency = 2
	flagNoValidate = true
	flagNoRedact = true

	cfg, err := config.Load(buildOverrides())
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	if cfg.Provider != "gemini" || cfg.Framework != "rails" || cfg.Concurrency != 2 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.ValidateIssues || cfg.Privacy.RedactSecrets {
		t.Error("--no-validate and --no-redact should turn the toggles off")
	}
}

func TestApplyPathFlags(t *testing.T) {
	resetFlags()
	t.Cleanup(resetFlags)
	flagPaths = "src/**,cmd/**"
	flagExclude = "**/*_test.go"

	cfg := config.Default()
	applyPathFlags(&cfg)

	if diff := cmp.Diff([]string{"src/**", "cmd/**"}, cfg.Include); diff != "" {
		t.Errorf("include mismatch (-want +got):\n%s", diff)
	}
	wantExclude := append(config.Default().Exclude, "**/*_test.go")
	if diff := cmp.Diff(wantExclude, cfg.Exclude); diff != "" {
		t.Errorf("exclude mismatch (-want +got):\n%s", diff)
	}
}

func TestCollectDiff_BadArgs(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		mode string
		args []string
		want string
	}{
		{"snippet", nil, "unknown mode"},
		{"commit", nil, "requires a SHA"},
		{"range", []string{"a", "b"}, "requires a revision range"},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			_, err := collectDiff(ctx, tt.mode, tt.args, gitctx.Options{})
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("collectDiff(%q) error = %v, want %q", tt.mode, err, tt.want)
			}
		})
	}
}

func TestAnyCritical(t *testing.T) {
	clean := &review.Result{}
	critical := &review.Result{Summary: review.Summary{CriticalIssues: 1}}

	if anyCritical([]*review.Result{clean, clean}) {
		t.Error("no critical issues expected")
	}
	if !anyCritical([]*review.Result{clean, critical}) {
		t.Error("critical issue in second result not seen")
	}
}

func TestShortSHA(t *testing.T) {
	if got := shortSHA("0123456789abcdef0123"); got != "0123456789ab" {
		t.Errorf("shortSHA = %q", got)
	}
	if got := shortSHA("abc"); got != "abc" {
		t.Errorf("shortSHA(short) = %q", got)
	}
}

func TestWritePlanText(t *testing.T) {
	v := planView{
		Framework: framework.Detected{Name: framework.Go, Confidence: 0.9, Version: "1.23"},
		Flags:     changeset.Flags{Critical: true},
		DiffBytes: 4096,
		Strategy: strategy.Strategy{
			Name: strategy.Small, MaxCompletionTokens: 24000, ContextTokenBudget: 4000,
		},
		ContextTokens: 120,
		Included:      []planFile{{Path: "src/auth/login.go", Tier: "critical", Reason: "security-sensitive module", Tokens: 120}},
		Excluded:      []planFile{{Path: "docs/guide.md", Tier: "low", Reason: "documentation", Tokens: 9000}},
		Skipped:       []changeset.SkippedFile{{Path: "go.sum", Reason: "generated"}},
		Patterns:      12,
	}
	v.Stats.Critical = 1
	v.Stats.Low = 1

	var buf bytes.Buffer
	if err := writePlanText(&buf, v); err != nil {
		t.Fatalf("writePlanText: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Framework: go 1.23 (confidence 0.90)",
		"Change: 4096 bytes | critical module: yes | config only: no",
		"Strategy: small (max completion tokens 24000, context budget 4000)",
		"Files: 1 critical, 0 high, 0 normal, 1 low",
		"Packed: 1 included (120 tokens), 1 excluded",
		"  + [critical] src/auth/login.go (120 tokens) security-sensitive module",
		"  - [low] docs/guide.md (9000 tokens) documentation",
		"  skipped go.sum: generated",
		"False-positive patterns: 12",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("plan output missing %q:\n%s", want, out)
		}
	}
}

func TestWritePlanText_Skip(t *testing.T) {
	v := planView{
		Framework: framework.Detected{Name: framework.Generic},
		DiffBytes: strategy.XLargeBound,
		Strategy:  strategy.Strategy{Name: strategy.Skip},
		Notice:    strategy.SkipNotice(strategy.XLargeBound),
	}
	var buf bytes.Buffer
	if err := writePlanText(&buf, v); err != nil {
		t.Fatalf("writePlanText: %v", err)
	}
	if !strings.Contains(buf.String(), v.Notice) {
		t.Errorf("skip notice missing:\n%s", buf.String())
	}
	if strings.Contains(buf.String(), "Packed:") {
		t.Error("a skipped plan has nothing packed")
	}
}

func TestNewPlanView(t *testing.T) {
	eng := review.NewEngine(nil)
	plan := eng.Plan(review.Input{
		Files: []changeset.ChangedFile{
			{Path: "src/auth/login.go", Content: "+func Login() {}\n", Additions: 1},
			{Path: "README.md", Content: "+docs\n", Additions: 1},
		},
		Framework: framework.Detected{Name: framework.Go},
	})

	v := newPlanView(plan, nil)

	if len(v.Included) != 2 || v.Included[0].Path != "src/auth/login.go" {
		t.Errorf("included = %+v, want login.go first", v.Included)
	}
	if v.Patterns != plan.Catalog.Len() || v.Patterns == 0 {
		t.Errorf("patterns = %d, want catalog size %d", v.Patterns, plan.Catalog.Len())
	}
	if v.Notice != "" {
		t.Errorf("small change should have no notice, got %q", v.Notice)
	}
}

func TestWritePatterns(t *testing.T) {
	c := falsepositive.NewCatalog(falsepositive.Builtin()...)

	var buf bytes.Buffer
	if err := writePatternsText(&buf, c); err != nil {
		t.Fatalf("writePatternsText: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != c.Len()+1 {
		t.Errorf("got %d lines, want header plus %d patterns", len(lines), c.Len())
	}
	if !strings.HasPrefix(lines[0], "ID") {
		t.Errorf("missing header: %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], c.Patterns()[0].ID) {
		t.Errorf("first row should be the first pattern: %q", lines[1])
	}

	buf.Reset()
	if err := writePatternsJSON(&buf, c); err != nil {
		t.Fatalf("writePatternsJSON: %v", err)
	}
	if !strings.Contains(buf.String(), `"id": "`+c.Patterns()[0].ID+`"`) {
		t.Errorf("json output missing first id:\n%s", buf.String())
	}
}

func TestWritePatternStats(t *testing.T) {
	stats := falsepositive.Stats{
		Total:      3,
		ByCategory: map[string]int{"logging": 2, "testing": 1},
		BySeverity: map[string]int{"low": 3},
	}
	var buf bytes.Buffer
	if err := writePatternStats(&buf, stats); err != nil {
		t.Fatalf("writePatternStats: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Total: 3") {
		t.Errorf("missing total:\n%s", out)
	}
	if strings.Index(out, "logging") > strings.Index(out, "testing") {
		t.Errorf("categories should be sorted:\n%s", out)
	}
}

func TestWriteModels(t *testing.T) {
	var buf bytes.Buffer
	err := writeModels(&buf, []modelInfo{
		{Provider: "anthropic", Models: []string{"claude-sonnet-4-20250514"}},
		{Provider: "ollama", Models: []string{"llama3.3"}},
	})
	if err != nil {
		t.Fatalf("writeModels: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "$3.00 in / $15.00 out per 1M tokens") {
		t.Errorf("priced model missing rates:\n%s", out)
	}
	if !strings.Contains(out, "llama3.3") || !strings.Contains(out, "local") {
		t.Errorf("unpriced model should be marked local:\n%s", out)
	}
}

func TestKnownModelsHaveProviders(t *testing.T) {
	for _, info := range knownModels {
		if len(info.Models) == 0 {
			t.Errorf("%s lists no models", info.Provider)
		}
	}
}

func TestEngineExitCode(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	_, unknown := providers.New("nosuch", "m")
	_, noKey := providers.New("anthropic", "m")

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unknown provider", unknown, ExitUsageError},
		{"missing key", noKey, ExitAuthError},
		{"wrapped auth", fmt.Errorf("engine: %w", &providers.AuthError{Message: "bad key"}), ExitAuthError},
		{"other", errors.New("dial tcp: refused"), ExitRuntimeError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := engineExitCode(tt.err); got != tt.want {
				t.Errorf("engineExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
