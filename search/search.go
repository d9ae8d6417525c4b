// Package search fetches raw article lists per account and normalizes them.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"digestbot/types"
)

var (
	// ErrToolMissing means the configured search tool cannot be found
	ErrToolMissing = errors.New("search tool not found")
	// ErrTimeout means a single search exceeded its time bound
	ErrTimeout = errors.New("search timed out")
	// ErrBadPayload means the tool output had an unrecognized shape
	ErrBadPayload = errors.New("unrecognized search payload")
)

// Fetcher returns the normalized articles for one account, newest first.
// Every returned article carries group.
type Fetcher interface {
	Fetch(ctx context.Context, account, query, group string) ([]types.Article, error)
}

// TimestampLayout is the article timestamp format
const TimestampLayout = "2006-01-02 15:04:05"

// missingTimestamp orders articles without a timestamp last
const missingTimestamp = "0000-00-00"

// BuildQuery expands {account}, {year} and {month} in template.
// The month is not zero padded. Other placeholders are left untouched.
func BuildQuery(template, account string, now time.Time) string {
	return strings.NewReplacer(
		"{account}", account,
		"{year}", strconv.Itoa(now.Year()),
		"{month}", strconv.Itoa(int(now.Month())),
	).Replace(template)
}

// rawArticle is one item as emitted by the search tool
type rawArticle struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	Summary  string `json:"summary"`
	Datetime string `json:"datetime"`
	Source   string `json:"source"`
}

// decodePayload accepts {"articles": [...]} or a bare array.
func decodePayload(data []byte) ([]rawArticle, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty output", ErrBadPayload)
	}

	switch data[0] {
	case '[':
		var items []rawArticle
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
		}
		return items, nil
	case '{':
		var wrapped struct {
			Articles *[]rawArticle `json:"articles"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
		}
		if wrapped.Articles == nil {
			return nil, fmt.Errorf("%w: object without articles", ErrBadPayload)
		}
		return *wrapped.Articles, nil
	default:
		return nil, fmt.Errorf("%w: unexpected leading %q", ErrBadPayload, data[0])
	}
}

var newlines = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// normalize trims identity fields and collapses summary newlines.
func normalize(items []rawArticle, group string) []types.Article {
	articles := make([]types.Article, 0, len(items))
	for _, item := range items {
		articles = append(articles, types.Article{
			Title:     strings.TrimSpace(item.Title),
			URL:       strings.TrimSpace(item.URL),
			Summary:   strings.TrimSpace(newlines.Replace(item.Summary)),
			Timestamp: item.Datetime,
			Source:    item.Source,
			Group:     group,
		})
	}
	SortNewestFirst(articles)
	return articles
}

// SortNewestFirst orders articles by timestamp descending. Missing
// timestamps go last; equal timestamps keep their input order.
func SortNewestFirst(articles []types.Article) {
	key := func(a types.Article) string {
		if a.Timestamp == "" {
			return missingTimestamp
		}
		return a.Timestamp
	}
	sort.SliceStable(articles, func(i, j int) bool {
		return key(articles[i]) > key(articles[j])
	})
}

func truncateBytes(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return strings.TrimSpace(string(b))
}
