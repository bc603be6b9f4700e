package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
)

const defaultOpenAIURL = "https://api.openai.com/v1/chat/completions"

// OpenAI implements the Completer interface for OpenAI's API. OpenAI caches
// long stable prompt prefixes automatically, so segments are sent as one
// system message in order.
type OpenAI struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewOpenAI creates a new OpenAI provider.
func NewOpenAI(model string) (*OpenAI, error) {
	key := os.Getenv("OPENAI_API_KEY")
	if key == "" {
		return nil, &AuthError{Message: "OPENAI_API_KEY environment variable is not set"}
	}
	baseURL := os.Getenv("LENS_OPENAI_BASE_URL")
	if baseURL == "" {
		baseURL = defaultOpenAIURL
	}
	return &OpenAI{
		apiKey:  key,
		model:   model,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 120 * time.Second},
		logger:  zap.NewNop(),
	}, nil
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) Complete(ctx context.Context, req Request) (Response, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+o.apiKey)
	return completeChat(ctx, chatCall{
		url:     o.baseURL,
		model:   o.model,
		header:  header,
		client:  o.client,
		logger:  nopIfNil(o.logger),
		request: req,
	})
}

// chatCall is one OpenAI-compatible chat completion.
type chatCall struct {
	url     string
	model   string
	header  http.Header
	client  *http.Client
	logger  *zap.Logger
	request Request
}

func completeChat(ctx context.Context, c chatCall) (Response, error) {
	var messages []openaiMessage
	if sys := c.request.System(); sys != "" {
		messages = append(messages, openaiMessage{Role: "system", Content: sys})
	}
	messages = append(messages, openaiMessage{Role: "user", Content: c.request.Task})

	body := openaiRequest{
		Model:     c.model,
		Messages:  messages,
		MaxTokens: maxTokensOr(c.request.MaxTokens),
	}
	if c.request.JSON {
		body.ResponseFormat = &openaiResponseFormat{Type: "json_object"}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return Response{}, fmt.Errorf("marshaling request: %w", err)
	}

	var resp Response
	err = retryWithBackoff(ctx, c.logger, 3, func() error {
		respBody, err := postJSON(ctx, c.client, c.url, c.header, payload)
		if err != nil {
			return err
		}

		var result openaiResponse
		if err := json.Unmarshal(respBody, &result); err != nil {
			return fmt.Errorf("parsing response: %w", err)
		}
		if len(result.Choices) == 0 {
			return fmt.Errorf("no choices in response")
		}
		if result.Choices[0].Message.Content == "" {
			return fmt.Errorf("empty text content in API response")
		}

		cached := result.Usage.PromptTokensDetails.CachedTokens
		resp = Response{
			Content: result.Choices[0].Message.Content,
			Usage: withCost(c.model, Usage{
				InputTokens:     max(result.Usage.PromptTokens-cached, 0),
				OutputTokens:    result.Usage.CompletionTokens,
				CacheReadTokens: cached,
			}),
		}
		return nil
	})
	return resp, err
}

type openaiRequest struct {
	Model          string                `json:"model"`
	Messages       []openaiMessage       `json:"messages"`
	MaxTokens      int                   `json:"max_tokens"`
	ResponseFormat *openaiResponseFormat `json:"response_format,omitempty"`
}

type openaiResponseFormat struct {
	Type string `json:"type"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiResponse struct {
	Choices []openaiChoice `json:"choices"`
	Usage   openaiUsage    `json:"usage"`
}

type openaiChoice struct {
	Message openaiMessage `json:"message"`
}

type openaiUsage struct {
	PromptTokens        int `json:"prompt_tokens"`
	CompletionTokens    int `json:"completion_tokens"`
	TotalTokens         int `json:"total_tokens"`
	PromptTokensDetails struct {
		CachedTokens int `json:"cached_tokens"`
	} `json:"prompt_tokens_details"`
}
