package summarizer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"digestbot/config"
	"digestbot/types"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
	cohereoption "github.com/cohere-ai/cohere-go/v2/option"
)

// Cohere summarizes with the Cohere chat API
type Cohere struct {
	client  *cohereclient.Client
	model   string
	timeout time.Duration
}

// NewCohere creates a Cohere summarizer. Options override the client defaults.
func NewCohere(apiKey, model string, opts ...cohereoption.RequestOption) *Cohere {
	httpClient := &http.Client{Timeout: config.SummaryTimeout}
	defaults := []cohereoption.RequestOption{
		cohereclient.WithToken(apiKey),
		cohereclient.WithHTTPClient(httpClient),
	}
	return &Cohere{
		client:  cohereclient.NewClient(append(defaults, opts...)...),
		model:   model,
		timeout: config.SummaryTimeout,
	}
}

// Summarize sends the rendered prompt as a single chat message
func (c *Cohere) Summarize(ctx context.Context, groups []types.GroupArticles) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.Chat(ctx, &cohere.ChatRequest{
		Message:     BuildPrompt(groups),
		Model:       cohere.String(c.model),
		Temperature: cohere.Float64(temperature),
		MaxTokens:   cohere.Int(maxTokens),
	})
	if err != nil {
		return "", fmt.Errorf("cohere chat error: %w", err)
	}
	if resp == nil {
		return "", errors.New("cohere chat returned empty response")
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", errors.New("cohere chat returned empty text")
	}
	return text, nil
}
