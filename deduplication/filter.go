package deduplication

import (
	"time"

	"digestbot/types"
)

// DateLayout is the cutoff date format; its zero padding makes string
// comparison equivalent to date comparison.
const DateLayout = "2006-01-02"

// Cutoff returns the earliest date kept by FilterRecent
func Cutoff(days int, now time.Time) string {
	return now.AddDate(0, 0, -days).Format(DateLayout)
}

// FilterRecent keeps articles whose date is on or after the cutoff.
// Articles without a timestamp have an empty date and are dropped.
func FilterRecent(articles []types.Article, days int, now time.Time) []types.Article {
	cutoff := Cutoff(days, now)
	kept := make([]types.Article, 0, len(articles))
	for _, a := range articles {
		if a.Date() >= cutoff {
			kept = append(kept, a)
		}
	}
	return kept
}
