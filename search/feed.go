package search

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/url"
	"strconv"
	"strings"
	"time"

	"digestbot/config"
	"digestbot/types"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
)

// FeedFetcher reads one RSS/Atom/JSON feed per account. The URL template
// takes {account}, {query}, {year} and {month}; values are URL escaped.
type FeedFetcher struct {
	URLTemplate string
	MaxResults  int
	Timeout     time.Duration

	parser *gofeed.Parser
	policy *bluemonday.Policy
}

// NewFeedFetcher creates a feed fetcher using the fixed search timeout
func NewFeedFetcher(urlTemplate string, maxResults int) *FeedFetcher {
	return &FeedFetcher{
		URLTemplate: urlTemplate,
		MaxResults:  maxResults,
		Timeout:     config.SearchTimeout,
		parser:      gofeed.NewParser(),
		policy:      bluemonday.StrictPolicy(),
	}
}

// FeedURL resolves the template for one account
func (f *FeedFetcher) FeedURL(account, query string, now time.Time) string {
	return strings.NewReplacer(
		"{account}", url.PathEscape(account),
		"{query}", url.QueryEscape(query),
		"{year}", strconv.Itoa(now.Year()),
		"{month}", strconv.Itoa(int(now.Month())),
	).Replace(f.URLTemplate)
}

// Fetch parses the account's feed and maps items to articles
func (f *FeedFetcher) Fetch(ctx context.Context, account, query, group string) ([]types.Article, error) {
	feedURL := f.FeedURL(account, query, time.Now())

	runCtx, cancel := context.WithTimeout(ctx, f.Timeout)
	defer cancel()

	feed, err := f.parser.ParseURLWithContext(feedURL, runCtx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s [%s]", ErrTimeout, f.Timeout, account)
		}
		return nil, fmt.Errorf("failed to fetch feed [%s]: %w", account, err)
	}

	return normalize(f.itemsOf(feed, account), group), nil
}

func (f *FeedFetcher) itemsOf(feed *gofeed.Feed, account string) []rawArticle {
	count := len(feed.Items)
	if f.MaxResults > 0 && count > f.MaxResults {
		count = f.MaxResults
	}

	source := account
	if feed.Title != "" {
		source = feed.Title
	}

	items := make([]rawArticle, 0, count)
	for _, item := range feed.Items[:count] {
		var published string
		if item.PublishedParsed != nil {
			published = item.PublishedParsed.Local().Format(TimestampLayout)
		} else if item.UpdatedParsed != nil {
			published = item.UpdatedParsed.Local().Format(TimestampLayout)
		}

		summary := item.Description
		if summary == "" {
			summary = item.Content
		}

		items = append(items, rawArticle{
			Title:    item.Title,
			URL:      item.Link,
			Summary:  f.plainText(summary),
			Datetime: published,
			Source:   source,
		})
	}
	return items
}

// plainText strips markup and folds whitespace runs to single spaces.
func (f *FeedFetcher) plainText(s string) string {
	return strings.Join(strings.Fields(html.UnescapeString(f.policy.Sanitize(s))), " ")
}
