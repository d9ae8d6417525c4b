// Package deduplication trims fetched articles by recency and collapses
// repeated titles.
package deduplication

import (
	"strings"

	"digestbot/types"
)

// Stats describes one Dedup pass
type Stats struct {
	Input      int `json:"input"`
	Unique     int `json:"unique"`
	Duplicates int `json:"duplicates"`
}

// Dedup keeps one article per trimmed title. The article with the greatest
// timestamp wins and ties keep the first one seen. Output follows the order
// in which each title first appeared.
func Dedup(articles []types.Article) []types.Article {
	out, _ := DedupWithStats(articles)
	return out
}

// DedupWithStats is Dedup plus counts for logging
func DedupWithStats(articles []types.Article) ([]types.Article, Stats) {
	index := make(map[string]int, len(articles))
	out := make([]types.Article, 0, len(articles))

	for _, a := range articles {
		key := strings.TrimSpace(a.Title)
		pos, seen := index[key]
		if !seen {
			index[key] = len(out)
			out = append(out, a)
			continue
		}
		if a.Timestamp > out[pos].Timestamp {
			out[pos] = a
		}
	}

	return out, Stats{
		Input:      len(articles),
		Unique:     len(out),
		Duplicates: len(articles) - len(out),
	}
}
