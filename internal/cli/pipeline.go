package cli

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/dshills/lens/internal/changeset"
	"github.com/dshills/lens/internal/config"
	"github.com/dshills/lens/internal/framework"
	"github.com/dshills/lens/internal/gitctx"
	"github.com/dshills/lens/internal/providers"
	"github.com/dshills/lens/internal/redact"
	"github.com/dshills/lens/internal/review"
	"go.uber.org/zap"
)

// newCompleter builds the completion client. Tests replace it.
var newCompleter = providers.New

// session holds what every review in one invocation shares.
type session struct {
	cfg    config.Config
	logger *zap.Logger
	// root is the local repository root, empty when there is none.
	root    string
	policy  config.CompiledPolicy
	mu      sync.Mutex
	detect  *framework.Detected
	options []review.Option
}

// newSession loads the project policy and builds engine options. root may be
// empty, in which case no policy is looked up unless cfg names one.
func newSession(cfg config.Config, logger *zap.Logger, root string) (*session, error) {
	s := &session{cfg: cfg, logger: logger, root: root}

	path := cfg.PolicyFile
	if path == "" && root != "" {
		path = config.FindPolicy(root)
	}
	if path != "" {
		pol, err := config.LoadPolicy(path)
		if err != nil {
			return nil, err
		}
		compiled, err := pol.Compile()
		if err != nil {
			return nil, fmt.Errorf("policy %s: %w", path, err)
		}
		s.policy = compiled
		logger.Debug("loaded review policy",
			zap.String("path", path),
			zap.Int("rules", len(compiled.Rules)+len(compiled.PrependedRules)),
			zap.Int("patterns", len(compiled.Patterns)),
			zap.Int("overrides", len(compiled.Overrides)))
	}

	if cfg.Framework != "" {
		name, err := framework.ParseName(cfg.Framework)
		if err != nil {
			return nil, err
		}
		s.detect = &framework.Detected{Name: name, Confidence: 1}
	}

	s.options = append([]review.Option{
		review.WithLogger(logger),
		review.WithModel(cfg.Model),
		review.WithValidation(cfg.ValidateIssues),
	}, s.policy.EngineOptions()...)
	return s, nil
}

// resolveFramework returns the configured framework or detects it from the
// repository, falling back to the changed paths.
func (s *session) resolveFramework(ctx context.Context, changed []string) framework.Detected {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.detect != nil {
		return *s.detect
	}
	if s.root != "" {
		tracked, err := gitctx.TrackedFiles(ctx, s.root)
		if err == nil {
			d := framework.Detect(tracked, gitctx.ReadManifests(s.root, framework.ManifestFiles),
				framework.WithLogger(s.logger))
			s.detect = &d
			s.logger.Debug("detected framework",
				zap.String("name", string(d.Name)),
				zap.Float64("confidence", d.Confidence),
				zap.String("version", d.Version))
			return d
		}
		s.logger.Debug("listing tracked files failed", zap.Error(err))
	}
	return framework.Detect(changed, nil, framework.WithLogger(s.logger))
}

// prepared is a diff turned into engine input.
type prepared struct {
	input   review.Input
	set     changeset.Set
	redacts redact.Report
}

// prepare parses, filters and redacts a diff and computes its risk flags.
func (s *session) prepare(ctx context.Context, diff gitctx.DiffResult) (prepared, error) {
	set, err := changeset.Parse(diff.Diff, changeset.Options{
		Include:      s.cfg.Include,
		Exclude:      s.cfg.Exclude,
		MaxFileBytes: s.cfg.MaxFileBytes,
	})
	if err != nil {
		return prepared{}, fmt.Errorf("parsing diff: %w", err)
	}
	for _, sk := range set.Skipped {
		s.logger.Debug("skipped file", zap.String("path", sk.Path), zap.String("reason", sk.Reason))
	}

	files, rep := redact.Files(set.Files, redact.Options{
		Secrets: s.cfg.Privacy.RedactSecrets,
		Paths:   s.cfg.Privacy.RedactPaths,
	})
	if rep.Secrets > 0 || len(rep.Paths) > 0 {
		s.logger.Info("redacted content before review",
			zap.Int("secrets", rep.Secrets),
			zap.Strings("paths", rep.Paths))
	}

	paths := set.Paths()
	return prepared{
		input: review.Input{
			Files:     files,
			Framework: s.resolveFramework(ctx, paths),
			Flags:     changeset.ComputeFlags(paths, s.policy.CriticalPaths),
			DiffBytes: set.DiffBytes,
		},
		set:     set,
		redacts: rep,
	}, nil
}

// engine returns an engine bound to a fresh completion client.
func (s *session) engine() (*review.Engine, error) {
	c, err := newCompleter(s.cfg.Provider, s.cfg.Model, providers.WithLogger(s.logger))
	if err != nil {
		return nil, err
	}
	return review.NewEngine(c, s.options...), nil
}

// planner returns an engine that can plan but not execute.
func (s *session) planner() *review.Engine {
	return review.NewEngine(nil, s.options...)
}

// review runs one review over diff. It returns nil and no error when the
// diff has no reviewable files.
func (s *session) review(ctx context.Context, eng *review.Engine, diff gitctx.DiffResult) (*review.Result, prepared, error) {
	p, err := s.prepare(ctx, diff)
	if err != nil {
		return nil, p, err
	}
	if len(p.input.Files) == 0 {
		return nil, p, nil
	}
	res, err := eng.Run(ctx, p.input)
	if err != nil {
		return nil, p, err
	}
	res.Source = sourceOf(diff)
	return res, p, nil
}

func sourceOf(diff gitctx.DiffResult) review.Source {
	return review.Source{
		Mode:  diff.Mode,
		Range: diff.Range,
		Repo: review.RepoInfo{
			Root:   diff.Repo.Root,
			Head:   diff.Repo.Head,
			Branch: diff.Repo.Branch,
		},
	}
}

// repoRoot returns the repository root of the working directory, or "" when
// it is not inside a git repository.
func repoRoot(ctx context.Context) string {
	meta, err := gitctx.GetRepoMeta(ctx, "")
	if err != nil {
		return ""
	}
	return meta.Root
}

func warnRedactionOff(cfg config.Config) {
	if !cfg.Privacy.RedactSecrets {
		fmt.Fprintln(os.Stderr, "WARNING: secret redaction is disabled")
	}
}
