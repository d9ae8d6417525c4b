package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"digestbot/types"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildQuery(t *testing.T) {
	now := time.Date(2024, time.March, 10, 8, 0, 0, 0, time.UTC)
	tests := []struct {
		template string
		want     string
	}{
		{"{account} AI 大模型 {year}年{month}月", "量子位 AI 大模型 2024年3月"},
		{"{account}", "量子位"},
		{"{account} {unknown}", "量子位 {unknown}"},
		{"static", "static"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BuildQuery(tt.template, "量子位", now), tt.template)
	}
}

func TestDecodePayload(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		count   int
		wantErr bool
	}{
		{"wrapped", `{"articles":[{"title":"a"},{"title":"b"}]}`, 2, false},
		{"bare array", `[{"title":"a"}]`, 1, false},
		{"empty wrapped", `{"articles":[]}`, 0, false},
		{"object without articles", `{"items":[{"title":"a"}]}`, 0, true},
		{"string", `"nope"`, 0, true},
		{"empty", ``, 0, true},
		{"broken", `[{"title":`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := decodePayload([]byte(tt.payload))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrBadPayload)
				return
			}
			require.NoError(t, err)
			assert.Len(t, items, tt.count)
		})
	}
}

func TestNormalizeAndSort(t *testing.T) {
	items := []rawArticle{
		{Title: "  old  ", URL: " https://a/1 ", Summary: "line1\nline2\n", Datetime: "2024-03-01 10:00:00"},
		{Title: "undated"},
		{Title: "new", Datetime: "2024-03-09 10:00:00", Source: "机器之心"},
		{Title: "same-a", Datetime: "2024-03-05 10:00:00"},
		{Title: "same-b", Datetime: "2024-03-05 10:00:00"},
	}

	got := normalize(items, "科技媒体")

	titles := make([]string, len(got))
	for i, a := range got {
		titles[i] = a.Title
		assert.Equal(t, "科技媒体", a.Group)
	}
	assert.Equal(t, []string{"new", "same-a", "same-b", "old", "undated"}, titles)
	assert.Equal(t, "https://a/1", got[3].URL)
	assert.Equal(t, "line1 line2", got[3].Summary)
	assert.Equal(t, "", got[4].URL)
}

// writeTool creates a shell script standing in for the search tool.
func writeTool(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "search.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestScriptFetcher(t *testing.T) {
	payload := `{"articles":[` +
		`{"title":"A1","url":"u1","summary":"s","datetime":"2024-03-08 10:00:00","source":"A"},` +
		`{"title":"A2","url":"u2","summary":"s","datetime":"2024-03-09 10:00:00","source":"A"}]}`

	t.Run("success passes query and limit", func(t *testing.T) {
		tool := writeTool(t, fmt.Sprintf(`[ "$1" = "A AI" ] && [ "$3" = "5" ] || exit 3
cat > "$5" <<'EOF'
%s
EOF`, payload))
		f := NewScriptFetcher("sh", tool, 5)

		got, err := f.Fetch(context.Background(), "A", "A AI", "g")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "A2", got[0].Title)
		assert.Equal(t, "g", got[1].Group)
	})

	t.Run("missing tool", func(t *testing.T) {
		f := NewScriptFetcher("sh", filepath.Join(t.TempDir(), "absent.js"), 5)
		got, err := f.Fetch(context.Background(), "A", "q", "g")
		assert.ErrorIs(t, err, ErrToolMissing)
		assert.Empty(t, got)
	})

	t.Run("missing runtime", func(t *testing.T) {
		tool := writeTool(t, "exit 0")
		f := NewScriptFetcher("definitely-not-a-runtime", tool, 5)
		_, err := f.Fetch(context.Background(), "A", "q", "g")
		assert.ErrorIs(t, err, ErrToolMissing)
	})

	t.Run("non-zero exit carries stderr", func(t *testing.T) {
		tool := writeTool(t, "echo 'blocked by captcha' >&2\nexit 2")
		f := NewScriptFetcher("sh", tool, 5)
		got, err := f.Fetch(context.Background(), "A", "q", "g")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "code 2")
		assert.Contains(t, err.Error(), "blocked by captcha")
		assert.Empty(t, got)
	})

	t.Run("timeout", func(t *testing.T) {
		tool := writeTool(t, "exec sleep 5")
		f := NewScriptFetcher("sh", tool, 5)
		f.Timeout = 100 * time.Millisecond

		start := time.Now()
		_, err := f.Fetch(context.Background(), "A", "q", "g")
		assert.ErrorIs(t, err, ErrTimeout)
		assert.Less(t, time.Since(start), 4*time.Second)
	})

	t.Run("no output file", func(t *testing.T) {
		tool := writeTool(t, "exit 0")
		f := NewScriptFetcher("sh", tool, 5)
		got, err := f.Fetch(context.Background(), "A", "q", "g")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("bad payload", func(t *testing.T) {
		tool := writeTool(t, `echo '{"ok":true}' > "$5"`)
		f := NewScriptFetcher("sh", tool, 5)
		_, err := f.Fetch(context.Background(), "A", "q", "g")
		assert.True(t, errors.Is(err, ErrBadPayload))
	})
}

const rssFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>量子位</title>
<item><title>First</title><link>https://example.com/1</link>
<description><![CDATA[<p>Hello <b>world</b> &amp; more</p>]]></description>
<pubDate>Fri, 08 Mar 2024 02:00:00 GMT</pubDate></item>
<item><title>Second</title><link>https://example.com/2</link>
<pubDate>Sat, 09 Mar 2024 02:00:00 GMT</pubDate></item>
<item><title>Third</title><link>https://example.com/3</link></item>
</channel></rss>`

func TestFeedFetcher(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, rssFixture)
	}))
	defer srv.Close()

	f := NewFeedFetcher(srv.URL+"/wechat/{account}", 2)
	got, err := f.Fetch(context.Background(), "量子位", "q", "科技媒体")
	require.NoError(t, err)

	assert.Equal(t, "/wechat/%E9%87%8F%E5%AD%90%E4%BD%8D", gotPath)
	require.Len(t, got, 2)
	assert.Equal(t, "Second", got[0].Title)
	assert.Equal(t, "First", got[1].Title)
	assert.Equal(t, "Hello world & more", got[1].Summary)
	assert.Equal(t, "量子位", got[1].Source)
	assert.Equal(t, "科技媒体", got[1].Group)
	assert.Len(t, got[1].Timestamp, len(TimestampLayout))
}

func TestFeedFetcherHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	f := NewFeedFetcher(srv.URL+"/{account}", 5)
	_, err := f.Fetch(context.Background(), "A", "q", "g")
	assert.Error(t, err)
}

const pageFixture = `<html><head><title>Story</title>
<meta name="description" content="A short description of the story."></head>
<body><article><h1>Story</h1><p>` +
	`This paragraph is long enough for the readability parser to treat it as the main content of the page, ` +
	`with several sentences about model releases and funding rounds.</p></article></body></html>`

func TestEnricherFillsEmptySummaries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/broken" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, pageFixture)
	}))
	defer srv.Close()

	articles := []types.Article{
		{Title: "empty", URL: srv.URL + "/ok"},
		{Title: "kept", URL: srv.URL + "/ok", Summary: "already"},
		{Title: "broken", URL: srv.URL + "/broken"},
		{Title: "no url"},
	}

	e := NewEnricher(zerolog.Nop())
	n := e.Enrich(context.Background(), articles)

	assert.Equal(t, 1, n)
	assert.Equal(t, "A short description of the story.", articles[0].Summary)
	assert.Equal(t, "already", articles[1].Summary)
	assert.Empty(t, articles[2].Summary)
	assert.Empty(t, articles[3].Summary)
}

type stubFetcher struct {
	articles []types.Article
	err      error
}

func (s stubFetcher) Fetch(context.Context, string, string, string) ([]types.Article, error) {
	return s.articles, s.err
}

func TestWithEnrichmentPassesErrors(t *testing.T) {
	f := WithEnrichment(stubFetcher{err: ErrTimeout}, NewEnricher(zerolog.Nop()))
	_, err := f.Fetch(context.Background(), "A", "q", "g")
	assert.ErrorIs(t, err, ErrTimeout)
}
