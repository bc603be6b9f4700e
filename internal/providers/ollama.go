package providers

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultOllamaURL = "http://localhost:11434"

// Ollama implements the Completer interface for Ollama and LM Studio through
// their OpenAI-compatible endpoint.
type Ollama struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewOllama creates a new Ollama provider. No API key is required by default.
func NewOllama(model string) (*Ollama, error) {
	baseURL := os.Getenv("OLLAMA_HOST")
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	return &Ollama{
		apiKey:  os.Getenv("LENS_OLLAMA_API_KEY"),
		model:   model,
		baseURL: chatURL(baseURL),
		client:  &http.Client{Timeout: 300 * time.Second},
		logger:  zap.NewNop(),
	}, nil
}

// chatURL normalizes a host or partial URL to the chat completions endpoint.
func chatURL(base string) string {
	base = strings.TrimRight(base, "/")
	base = strings.TrimSuffix(base, "/v1/chat/completions")
	base = strings.TrimSuffix(base, "/v1")
	return base + "/v1/chat/completions"
}

func (o *Ollama) Name() string { return "ollama" }

func (o *Ollama) Complete(ctx context.Context, req Request) (Response, error) {
	header := http.Header{}
	if o.apiKey != "" {
		header.Set("Authorization", "Bearer "+o.apiKey)
	}
	return completeChat(ctx, chatCall{
		url:     o.baseURL,
		model:   o.model,
		header:  header,
		client:  o.client,
		logger:  nopIfNil(o.logger),
		request: req,
	})
}
