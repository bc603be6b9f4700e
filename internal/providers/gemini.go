package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// Gemini implements the Completer interface for Google's Gemini API through
// the genai SDK.
type Gemini struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

// NewGemini creates a new Gemini provider.
func NewGemini(ctx context.Context, model string) (*Gemini, error) {
	key := os.Getenv("GEMINI_API_KEY")
	if key == "" {
		key = os.Getenv("GOOGLE_API_KEY")
	}
	if key == "" {
		return nil, &AuthError{Message: "GEMINI_API_KEY (or GOOGLE_API_KEY) environment variable is not set"}
	}
	return newGemini(ctx, key, model, os.Getenv("LENS_GEMINI_BASE_URL"), &http.Client{Timeout: 120 * time.Second})
}

func newGemini(ctx context.Context, key, model, baseURL string, httpClient *http.Client) (*Gemini, error) {
	cfg := &genai.ClientConfig{
		APIKey:     key,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &Gemini{client: client, model: model, logger: zap.NewNop()}, nil
}

func (g *Gemini) Name() string { return "gemini" }

func (g *Gemini) Complete(ctx context.Context, req Request) (Response, error) {
	cfg := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(maxTokensOr(req.MaxTokens)),
	}
	if sys := req.System(); sys != "" {
		cfg.SystemInstruction = genai.NewContentFromText(sys, genai.RoleUser)
	}
	if req.JSON {
		cfg.ResponseMIMEType = "application/json"
	}

	var resp Response
	err := retryWithBackoff(ctx, nopIfNil(g.logger), 3, func() error {
		result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(req.Task), cfg)
		if err != nil {
			return geminiError(err)
		}
		text := result.Text()
		if text == "" {
			return fmt.Errorf("no content in response")
		}

		var u Usage
		if md := result.UsageMetadata; md != nil {
			cached := int(md.CachedContentTokenCount)
			u = Usage{
				InputTokens:     max(int(md.PromptTokenCount)-cached, 0),
				OutputTokens:    int(md.CandidatesTokenCount),
				CacheReadTokens: cached,
			}
		}
		resp = Response{Content: text, Usage: withCost(g.model, u)}
		return nil
	})
	return resp, err
}

// geminiError maps SDK errors to the shared typed errors.
func geminiError(err error) error {
	var ae genai.APIError
	if !errors.As(err, &ae) {
		return fmt.Errorf("gemini: %w", err)
	}
	switch {
	case ae.Code == http.StatusTooManyRequests:
		return &RateLimitError{Body: ae.Message}
	case ae.Code == http.StatusUnauthorized || ae.Code == http.StatusForbidden:
		return &AuthError{Message: ae.Message}
	default:
		return &APIError{StatusCode: ae.Code, Body: ae.Message}
	}
}
