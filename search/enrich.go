package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"digestbot/config"
	"digestbot/types"

	readability "github.com/go-shiori/go-readability"
	"github.com/rs/zerolog"
)

const (
	enrichTimeout = 30 * time.Second

	// excerptRunes caps a summary taken from page text
	excerptRunes = 200
)

// Enricher fills empty summaries from the article page using a worker pool
type Enricher struct {
	Client  *http.Client
	Workers int
	Timeout time.Duration
	Logger  zerolog.Logger
}

// NewEnricher creates an enricher with the default pool size
func NewEnricher(logger zerolog.Logger) *Enricher {
	return &Enricher{
		Client:  &http.Client{},
		Workers: config.EnrichWorkers,
		Timeout: enrichTimeout,
		Logger:  logger,
	}
}

// Enrich updates articles in place and returns how many gained a summary.
// Extraction failures leave the summary empty.
func (e *Enricher) Enrich(ctx context.Context, articles []types.Article) int {
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		updated int
	)
	jobs := make(chan int, len(articles))

	workers := e.Workers
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		go func(workerID int) {
			for idx := range jobs {
				a := &articles[idx]
				summary, err := e.extract(ctx, a.URL)
				if err != nil {
					e.Logger.Debug().Err(err).Int("worker", workerID).Str("url", a.URL).Msg("summary extraction failed")
				} else if summary != "" {
					a.Summary = summary
					mu.Lock()
					updated++
					mu.Unlock()
				}
				wg.Done()
			}
		}(i)
	}

	for i := range articles {
		if articles[i].Summary != "" || articles[i].URL == "" {
			continue
		}
		wg.Add(1)
		jobs <- i
	}

	wg.Wait()
	close(jobs)
	return updated
}

func (e *Enricher) extract(ctx context.Context, pageURL string) (string, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := e.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching page: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching page: status %d", resp.StatusCode)
	}

	page, err := readability.FromReader(resp.Body, parsed)
	if err != nil {
		return "", fmt.Errorf("readability extraction failed: %w", err)
	}

	text := page.Excerpt
	if text == "" {
		text = page.TextContent
	}
	text = strings.Join(strings.Fields(text), " ")
	if r := []rune(text); len(r) > excerptRunes {
		text = string(r[:excerptRunes])
	}
	return text, nil
}

// enrichingFetcher runs an Enricher over every fetched list
type enrichingFetcher struct {
	next     Fetcher
	enricher *Enricher
}

// WithEnrichment wraps next so empty summaries are filled after each fetch
func WithEnrichment(next Fetcher, e *Enricher) Fetcher {
	return &enrichingFetcher{next: next, enricher: e}
}

func (f *enrichingFetcher) Fetch(ctx context.Context, account, query, group string) ([]types.Article, error) {
	articles, err := f.next.Fetch(ctx, account, query, group)
	if err != nil || len(articles) == 0 {
		return articles, err
	}
	if n := f.enricher.Enrich(ctx, articles); n > 0 {
		f.enricher.Logger.Debug().Str("account", account).Int("enriched", n).Msg("filled summaries")
	}
	return articles, nil
}

// New selects the fetcher for the configured backend
func New(cfg *config.Config, logger zerolog.Logger) Fetcher {
	var f Fetcher
	switch cfg.SearchBackend {
	case config.BackendFeed:
		f = NewFeedFetcher(cfg.FeedURLTemplate, cfg.SearchNum)
	default:
		f = NewScriptFetcher(cfg.SearchRuntime, cfg.SearchScriptPath, cfg.SearchNum)
	}
	if cfg.EnrichSummaries {
		f = WithEnrichment(f, NewEnricher(logger))
	}
	return f
}
