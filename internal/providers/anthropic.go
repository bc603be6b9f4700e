package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	anthropicAPIURL     = "https://api.anthropic.com/v1/messages"
	anthropicAPIVersion = "2023-06-01"

	// anthropicMaxCacheBreakpoints is the API limit on cache_control blocks.
	anthropicMaxCacheBreakpoints = 4
)

// Anthropic implements the Completer interface for Anthropic's API.
type Anthropic struct {
	apiKey string
	model  string
	client *http.Client
	logger *zap.Logger
}

// NewAnthropic creates a new Anthropic provider.
func NewAnthropic(model string) (*Anthropic, error) {
	key := os.Getenv("ANTHROPIC_API_KEY")
	if key == "" {
		return nil, &AuthError{Message: "ANTHROPIC_API_KEY environment variable is not set"}
	}
	return &Anthropic{
		apiKey: key,
		model:  model,
		client: &http.Client{Timeout: 120 * time.Second},
		logger: zap.NewNop(),
	}, nil
}

func (a *Anthropic) Name() string { return "anthropic" }

func (a *Anthropic) Complete(ctx context.Context, req Request) (Response, error) {
	body := anthropicRequest{
		Model:     a.model,
		MaxTokens: maxTokensOr(req.MaxTokens),
		System:    anthropicSystem(req.Context),
		Messages: []anthropicMessage{
			{Role: "user", Content: req.Task},
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return Response{}, fmt.Errorf("marshaling request: %w", err)
	}

	header := http.Header{}
	header.Set("x-api-key", a.apiKey)
	header.Set("anthropic-version", anthropicAPIVersion)

	var resp Response
	err = retryWithBackoff(ctx, nopIfNil(a.logger), 3, func() error {
		respBody, err := postJSON(ctx, a.client, anthropicAPIURL, header, payload)
		if err != nil {
			return err
		}

		var result anthropicResponse
		if err := json.Unmarshal(respBody, &result); err != nil {
			return fmt.Errorf("parsing response: %w", err)
		}

		var content strings.Builder
		for _, block := range result.Content {
			if block.Type == "text" {
				content.WriteString(block.Text)
			}
		}

		resp = Response{
			Content: content.String(),
			Usage: withCost(a.model, Usage{
				InputTokens:         result.Usage.InputTokens,
				OutputTokens:        result.Usage.OutputTokens,
				CacheReadTokens:     result.Usage.CacheReadInputTokens,
				CacheCreationTokens: result.Usage.CacheCreationInputTokens,
			}),
		}
		return nil
	})

	return resp, err
}

// anthropicSystem maps segments to system blocks. Cache breakpoints go on
// the last cacheable block of each run of cacheable segments, up to the API
// limit.
func anthropicSystem(segments []Segment) []anthropicBlock {
	var blocks []anthropicBlock
	for _, s := range segments {
		if s.Text == "" {
			continue
		}
		blocks = append(blocks, anthropicBlock{Type: "text", Text: s.Text})
		if s.Cacheable {
			blocks[len(blocks)-1].cacheable = true
		}
	}
	marked := 0
	for i := len(blocks) - 1; i >= 0 && marked < anthropicMaxCacheBreakpoints; i-- {
		if !blocks[i].cacheable {
			continue
		}
		if i+1 < len(blocks) && blocks[i+1].cacheable {
			continue
		}
		blocks[i].CacheControl = &anthropicCacheControl{Type: "ephemeral"}
		marked++
	}
	return blocks
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    []anthropicBlock   `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []anthropicBlock `json:"content"`
	Usage   anthropicUsage   `json:"usage"`
}

type anthropicBlock struct {
	Type         string                 `json:"type"`
	Text         string                 `json:"text"`
	CacheControl *anthropicCacheControl `json:"cache_control,omitempty"`

	cacheable bool
}

type anthropicCacheControl struct {
	Type string `json:"type"`
}

type anthropicUsage struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens"`
}
