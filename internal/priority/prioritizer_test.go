package priority

import (
	"math/rand/v2"
	"regexp"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/dshills/lens/internal/changeset"
)

func TestClassify_DefaultRules(t *testing.T) {
	p := New()
	tests := []struct {
		path   string
		tier   Tier
		reason string
	}{
		{"src/auth/x.ts", TierCritical, "security-sensitive module"},
		{"billing/invoice.go", TierCritical, "security-sensitive module"},
		{"api/controllers/user.ts", TierCritical, "HTTP boundary"},
		{"server/user.controller.ts", TierCritical, "HTTP boundary"},
		{"web/auth.guard.ts", TierCritical, "HTTP boundary"},
		{"src/util/y.ts", TierHigh, "core source file"},
		{"services/order_service.go", TierHigh, "service, repository, handler or schema"},
		{"web/app.test.ts", TierLow, "test file"},
		{"tests/fixtures/data.py", TierLow, "test file"},
		{"scripts/build.py", TierNormal, "source code"},
		{"README.md", TierLow, "documentation or configuration"},
		{"deploy/values.yaml", TierLow, "documentation or configuration"},
		{"LICENSE", TierLow, UnknownReason},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			tier, reason := p.Classify(tt.path)
			if tier != tt.tier || reason != tt.reason {
				t.Errorf("Classify(%q) = (%s, %q), want (%s, %q)", tt.path, tier, reason, tt.tier, tt.reason)
			}
		})
	}
}

func TestPrioritize_Scenario(t *testing.T) {
	p := New()
	files := []changeset.ChangedFile{
		{Path: "README.md"},
		{Path: "src/util/y.ts"},
		{Path: "src/auth/x.ts"},
	}
	got := p.Prioritize(files)

	var paths []string
	var tiers []Tier
	for _, f := range got {
		paths = append(paths, f.Path)
		tiers = append(tiers, f.Tier)
	}
	if diff := cmp.Diff([]string{"src/auth/x.ts", "src/util/y.ts", "README.md"}, paths); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]Tier{TierCritical, TierHigh, TierLow}, tiers); diff != "" {
		t.Errorf("tiers mismatch (-want +got):\n%s", diff)
	}
}

func TestCustomRules(t *testing.T) {
	custom := Rule{Contains: "README", Tier: TierCritical, Reason: "project readme"}

	appended := New(WithRules(custom))
	if tier, _ := appended.Classify("README.md"); tier != TierLow {
		t.Errorf("appended rule should not beat built-ins, got %s", tier)
	}
	if tier, reason := appended.Classify("NOTES_README"); tier != TierCritical || reason != "project readme" {
		t.Errorf("appended rule should match unclassified path, got %s %q", tier, reason)
	}

	prepended := New(WithPrependedRules(custom))
	if tier, reason := prepended.Classify("README.md"); tier != TierCritical || reason != "project readme" {
		t.Errorf("prepended rule should win, got %s %q", tier, reason)
	}

	if got, want := len(appended.Rules()), len(DefaultRules())+1; got != want {
		t.Errorf("len(Rules()) = %d, want %d", got, want)
	}
}

func TestProfileRules_AfterCriticalBuiltins(t *testing.T) {
	profile := Rule{Contains: "models.py", Tier: TierHigh, Reason: "model"}
	custom := Rule{Contains: "models.py", Tier: TierNormal, Reason: "custom"}

	p := New(WithProfileRules(profile))
	if tier, reason := p.Classify("payments/models.py"); tier != TierCritical || reason != "security-sensitive module" {
		t.Errorf("profile rule demoted critical path: %s %q", tier, reason)
	}
	if tier, reason := p.Classify("shop/models.py"); tier != TierHigh || reason != "model" {
		t.Errorf("profile rule should beat non-critical built-ins, got %s %q", tier, reason)
	}

	both := New(WithPrependedRules(custom), WithProfileRules(profile))
	if tier, reason := both.Classify("payments/models.py"); tier != TierNormal || reason != "custom" {
		t.Errorf("prepended rule should win over everything, got %s %q", tier, reason)
	}
	if got, want := len(both.Rules()), len(DefaultRules())+2; got != want {
		t.Errorf("len(Rules()) = %d, want %d", got, want)
	}
}

func TestRuleMatches(t *testing.T) {
	sub := Rule{Contains: "payments"}
	if !sub.Matches("svc/payments/x.go") {
		t.Error("substring rule should match")
	}
	if (Rule{}).Matches("anything") {
		t.Error("empty rule should never match")
	}
	re := Rule{Pattern: regexp.MustCompile(`\.sql$`)}
	if !re.Matches("db/init.sql") || re.Matches("db/init.sql.bak") {
		t.Error("pattern rule should test the full path")
	}
}

func TestSort_StableAndOrdered(t *testing.T) {
	files := []File{
		{ChangedFile: changeset.ChangedFile{Path: "l1"}, Tier: TierLow},
		{ChangedFile: changeset.ChangedFile{Path: "h1"}, Tier: TierHigh},
		{ChangedFile: changeset.ChangedFile{Path: "c1"}, Tier: TierCritical},
		{ChangedFile: changeset.ChangedFile{Path: "h2"}, Tier: TierHigh},
		{ChangedFile: changeset.ChangedFile{Path: "n1"}, Tier: TierNormal},
		{ChangedFile: changeset.ChangedFile{Path: "c2"}, Tier: TierCritical},
	}
	Sort(files)
	var got []string
	for _, f := range files {
		got = append(got, f.Path)
	}
	want := []string{"c1", "c2", "h1", "h2", "n1", "l1"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("sort mismatch (-want +got):\n%s", diff)
	}
}

func fileOf(path string, tier Tier, chars int) File {
	return File{
		ChangedFile: changeset.ChangedFile{Path: path, Content: strings.Repeat("x", chars)},
		Tier:        tier,
	}
}

func TestPack_ContinuesPastOverflow(t *testing.T) {
	p := New()
	files := []File{
		fileOf("a", TierCritical, 40), // 10 tokens
		fileOf("b", TierHigh, 400),    // 100 tokens
		fileOf("c", TierNormal, 20),   // 5 tokens
		fileOf("d", TierLow, 21),      // 6 tokens
	}
	res := p.Pack(files, 20)

	var included, excluded []string
	for _, f := range res.Included {
		included = append(included, f.Path)
	}
	for _, f := range res.Excluded {
		excluded = append(excluded, f.Path)
	}
	if diff := cmp.Diff([]string{"a", "c"}, included); diff != "" {
		t.Errorf("included mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"b", "d"}, excluded); diff != "" {
		t.Errorf("excluded mismatch (-want +got):\n%s", diff)
	}
	if res.Tokens != 15 {
		t.Errorf("Tokens = %d, want 15", res.Tokens)
	}
}

func TestPack_ExactFit(t *testing.T) {
	p := New()
	res := p.Pack([]File{fileOf("a", TierHigh, 40), fileOf("b", TierHigh, 40)}, 20)
	if len(res.Included) != 2 || res.Tokens != 20 {
		t.Errorf("expected both files to fit exactly, got %d included, %d tokens", len(res.Included), res.Tokens)
	}
}

func TestPack_EmptyBudget(t *testing.T) {
	p := New()
	files := []File{fileOf("a", TierHigh, 0), fileOf("b", TierLow, 8)}
	res := p.Pack(files, 0)
	if len(res.Included) != 0 {
		t.Errorf("empty budget should include nothing, got %d", len(res.Included))
	}
	if len(res.Excluded) != 2 {
		t.Errorf("empty budget should exclude everything, got %d", len(res.Excluded))
	}
}

func TestPack_NeverExceedsBudget(t *testing.T) {
	p := New()
	r := rand.New(rand.NewPCG(1, 2))
	for iter := 0; iter < 200; iter++ {
		n := r.IntN(20)
		files := make([]File, n)
		for i := range files {
			files[i] = fileOf("f", Tiers[r.IntN(len(Tiers))], r.IntN(2000))
		}
		Sort(files)
		budget := r.IntN(3000)
		res := p.Pack(files, budget)

		sum := 0
		for _, f := range res.Included {
			sum += f.Tokens()
		}
		if sum > budget {
			t.Fatalf("iteration %d: included %d tokens over budget %d", iter, sum, budget)
		}
		if sum != res.Tokens {
			t.Fatalf("iteration %d: Tokens = %d, sum = %d", iter, res.Tokens, sum)
		}
		if len(res.Included)+len(res.Excluded) != n {
			t.Fatalf("iteration %d: lost files: %d + %d != %d", iter, len(res.Included), len(res.Excluded), n)
		}
	}
}

func TestPack_LogsExcludedPreview(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	p := New(WithLogger(zap.New(core)))

	var files []File
	files = append(files, fileOf("keep", TierCritical, 4))
	for i := 0; i < 7; i++ {
		files = append(files, fileOf("big", TierLow, 400))
	}
	p.Pack(files, 10)

	entries := logs.FilterMessage("files excluded by token budget").All()
	if len(entries) != 1 {
		t.Fatalf("got %d log entries, want 1", len(entries))
	}
	ctx := entries[0].ContextMap()
	if ctx["excluded"] != int64(7) {
		t.Errorf("excluded = %v, want 7", ctx["excluded"])
	}
	if ctx["notShown"] != int64(2) {
		t.Errorf("notShown = %v, want 2", ctx["notShown"])
	}
	preview, ok := ctx["preview"].([]interface{})
	if !ok || len(preview) != 5 {
		t.Errorf("preview = %#v, want 5 entries", ctx["preview"])
	}
}

func TestPack_NoLogWhenEverythingFits(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	p := New(WithLogger(zap.New(core)))
	p.Pack([]File{fileOf("a", TierLow, 4)}, 10)
	if logs.Len() != 0 {
		t.Errorf("expected no log entries, got %d", logs.Len())
	}
}

func TestComputeStats(t *testing.T) {
	files := []File{
		{Tier: TierCritical}, {Tier: TierHigh}, {Tier: TierHigh},
		{Tier: TierLow}, {Tier: TierNormal}, {Tier: TierLow},
	}
	got := ComputeStats(files)
	want := Stats{Critical: 1, High: 2, Normal: 1, Low: 2}
	if got != want {
		t.Errorf("ComputeStats = %+v, want %+v", got, want)
	}
	if got.Total() != 6 {
		t.Errorf("Total = %d, want 6", got.Total())
	}
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"abcd", 1},
		{"abcde", 2},
		{strings.Repeat("x", 100), 25},
		{"café", 1},
	}
	for _, tt := range tests {
		if got := EstimateTokens(tt.in); got != tt.want {
			t.Errorf("EstimateTokens(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestParseTier(t *testing.T) {
	for _, s := range []string{"critical", "HIGH", " normal ", "low"} {
		if _, err := ParseTier(s); err != nil {
			t.Errorf("ParseTier(%q) error: %v", s, err)
		}
	}
	if _, err := ParseTier("urgent"); err == nil {
		t.Error("ParseTier(urgent) should fail")
	}
}
