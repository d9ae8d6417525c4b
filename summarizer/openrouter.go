package summarizer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"digestbot/config"
	"digestbot/types"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	appReferer = "https://github.com/digestbot/digestbot"
	appTitle   = "digestbot"

	temperature = 0.3
	maxTokens   = 1500
)

// OpenRouter calls an OpenAI compatible chat completions endpoint
type OpenRouter struct {
	client  openai.Client
	model   string
	timeout time.Duration
}

// NewOpenRouter creates a client for baseURL. Extra options are applied
// after the defaults.
func NewOpenRouter(apiKey, model, baseURL string, opts ...option.RequestOption) *OpenRouter {
	defaults := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithHeader("HTTP-Referer", appReferer),
		option.WithHeader("X-Title", appTitle),
		option.WithMaxRetries(0),
	}
	return &OpenRouter{
		client:  openai.NewClient(append(defaults, opts...)...),
		model:   model,
		timeout: config.SummaryTimeout,
	}
}

// Summarize sends one completion request with the rendered prompt
func (o *OpenRouter) Summarize(ctx context.Context, groups []types.GroupArticles) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: o.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(BuildPrompt(groups)),
		},
		Temperature: openai.Float(temperature),
		MaxTokens:   openai.Int(maxTokens),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("openrouter HTTP %d: %s", apiErr.StatusCode, truncateBody(apiErr.RawJSON()))
		}
		return "", fmt.Errorf("openrouter request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openrouter returned no choices")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", errors.New("openrouter returned empty content")
	}
	return text, nil
}

func truncateBody(s string) string {
	return types.TruncateRunes(s, 300)
}
