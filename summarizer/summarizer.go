// Package summarizer produces the AI digest of a run's articles.
package summarizer

import (
	"context"
	"errors"
	"fmt"

	"digestbot/config"
	"digestbot/types"
)

// ErrDisabled is returned by New when the selected provider has no key
var ErrDisabled = errors.New("summarizer not configured")

// Summarizer turns grouped articles into markdown text
type Summarizer interface {
	Summarize(ctx context.Context, groups []types.GroupArticles) (string, error)
}

// New builds the provider selected by cfg
func New(cfg *config.Config) (Summarizer, error) {
	if !cfg.AIEnabled() {
		return nil, fmt.Errorf("%w: %s key missing", ErrDisabled, cfg.SummaryProvider)
	}
	switch cfg.SummaryProvider {
	case config.ProviderCohere:
		return NewCohere(cfg.CohereAPIKey, cfg.CohereModel), nil
	default:
		return NewOpenRouter(cfg.OpenRouterAPIKey, cfg.OpenRouterModel, cfg.OpenRouterBaseURL), nil
	}
}

// Run summarizes groups with s, skipping the call when there is nothing to
// summarize.
func Run(ctx context.Context, s Summarizer, groups []types.GroupArticles) (string, error) {
	total := 0
	for _, g := range groups {
		total += countGroup(g)
	}
	if total == 0 {
		return "", nil
	}
	return s.Summarize(ctx, groups)
}
