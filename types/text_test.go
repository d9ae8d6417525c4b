package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "ab", TruncateRunes("abc", 2))
	assert.Equal(t, "机器", TruncateRunes("机器之心", 2))
	assert.Equal(t, "短", TruncateRunes("短", 80))
}

func TestArticleDate(t *testing.T) {
	assert.Equal(t, "2024-03-10", Article{Timestamp: "2024-03-10 08:00:00"}.Date())
	assert.Equal(t, "", Article{}.Date())
}

func TestAggregatedResult(t *testing.T) {
	r := AggregatedResult{Accounts: []AccountArticles{
		{Account: "A", Articles: []Article{{Title: "1"}, {Title: "2"}}},
		{Account: "B"},
	}}
	assert.Equal(t, 2, r.Total())
	assert.Equal(t, []string{"A", "B"}, r.AccountNames())

	got, ok := r.Get("B")
	assert.True(t, ok)
	assert.Empty(t, got)
	_, ok = r.Get("C")
	assert.False(t, ok)
}
