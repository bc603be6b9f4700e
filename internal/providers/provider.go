package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Segment is one block of request context. Cacheable segments are stable
// across requests and may be cached by providers that support it.
type Segment struct {
	Name      string
	Text      string
	Cacheable bool
}

// Request is a single completion request: ordered context segments followed
// by the task text.
type Request struct {
	Context   []Segment
	Task      string
	MaxTokens int
	// JSON asks the provider for a JSON object response where supported.
	JSON bool
}

// System returns the context segments joined for providers that take a
// single system prompt.
func (r Request) System() string {
	parts := make([]string, 0, len(r.Context))
	for _, s := range r.Context {
		if s.Text != "" {
			parts = append(parts, s.Text)
		}
	}
	return strings.Join(parts, "\n\n")
}

// Usage is the token accounting of one completion. InputTokens excludes
// tokens served from or written to the prompt cache.
type Usage struct {
	InputTokens         int     `json:"inputTokens"`
	OutputTokens        int     `json:"outputTokens"`
	CacheReadTokens     int     `json:"cacheReadTokens"`
	CacheCreationTokens int     `json:"cacheCreationTokens"`
	CostUSD             float64 `json:"costUsd"`
}

// Total returns all tokens consumed by the request.
func (u Usage) Total() int {
	return u.InputTokens + u.OutputTokens + u.CacheReadTokens + u.CacheCreationTokens
}

// Response is the raw completion result.
type Response struct {
	Content string
	Usage   Usage
}

// Completer is the completion service abstraction.
type Completer interface {
	Complete(ctx context.Context, req Request) (Response, error)
	Name() string
}

// Option configures a provider built by New.
type Option func(*options)

type options struct {
	logger *zap.Logger
}

// WithLogger sets the logger used for retry warnings.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// ErrUnknownProvider is returned by New for a name it does not recognize.
var ErrUnknownProvider = errors.New("unknown provider")

// Provider names accepted by New.
var Names = []string{"anthropic", "openai", "gemini", "ollama"}

// New creates a provider by name.
func New(provider, model string, opts ...Option) (Completer, error) {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	switch provider {
	case "anthropic":
		a, err := NewAnthropic(model)
		if err != nil {
			return nil, err
		}
		a.logger = o.logger
		return a, nil
	case "openai":
		p, err := NewOpenAI(model)
		if err != nil {
			return nil, err
		}
		p.logger = o.logger
		return p, nil
	case "gemini", "google":
		g, err := NewGemini(context.Background(), model)
		if err != nil {
			return nil, err
		}
		g.logger = o.logger
		return g, nil
	case "ollama", "lmstudio":
		p, err := NewOllama(model)
		if err != nil {
			return nil, err
		}
		p.logger = o.logger
		return p, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}
}

func maxTokensOr(n int) int {
	if n <= 0 {
		return 4096
	}
	return n
}

func nopIfNil(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
