package summarizer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"digestbot/config"
	"digestbot/types"

	cohereoption "github.com/cohere-ai/cohere-go/v2/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleGroups() []types.GroupArticles {
	many := make([]types.Article, 15)
	for i := range many {
		many[i] = types.Article{Title: fmt.Sprintf("量子位-%02d", i), Timestamp: "2024-03-09 10:00:00"}
	}
	return []types.GroupArticles{
		{Group: "科技媒体", Accounts: []types.AccountArticles{
			{Account: "机器之心", Articles: []types.Article{{
				Title:     "新模型发布",
				Timestamp: "2024-03-08 12:00:00",
				Summary:   strings.Repeat("长", 100),
			}}},
			{Account: "新智元"},
			{Account: "量子位", Articles: many},
		}},
		{Group: "投融资", Accounts: []types.AccountArticles{{Account: "36氪"}}},
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt(sampleGroups())

	assert.Contains(t, prompt, "# 板块：科技媒体\n## 来源：机器之心\n- [2024-03-08] 新模型发布\n  摘要："+strings.Repeat("长", 80)+"\n")
	assert.NotContains(t, prompt, strings.Repeat("长", 81))
	assert.NotContains(t, prompt, "新智元")
	assert.NotContains(t, prompt, "# 板块：投融资")
	assert.Contains(t, prompt, "量子位-11")
	assert.NotContains(t, prompt, "量子位-12")
	assert.True(t, strings.HasSuffix(prompt, "请输出周报摘要："))
}

type countingSummarizer struct{ calls int }

func (c *countingSummarizer) Summarize(context.Context, []types.GroupArticles) (string, error) {
	c.calls++
	return "ok", nil
}

func TestRunSkipsEmpty(t *testing.T) {
	s := &countingSummarizer{}
	text, err := Run(context.Background(), s, []types.GroupArticles{{Group: "g", Accounts: []types.AccountArticles{{Account: "a"}}}})
	require.NoError(t, err)
	assert.Empty(t, text)
	assert.Zero(t, s.calls)

	text, err = Run(context.Background(), s, sampleGroups())
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, 1, s.calls)
}

func TestNewDisabled(t *testing.T) {
	cfg, err := config.FromMap(map[string]string{}, func(string) string { return "" })
	require.NoError(t, err)

	_, err = New(cfg)
	assert.ErrorIs(t, err, ErrDisabled)

	cfg.OpenRouterAPIKey = "key"
	s, err := New(cfg)
	require.NoError(t, err)
	assert.IsType(t, &OpenRouter{}, s)

	cfg.SummaryProvider = config.ProviderCohere
	_, err = New(cfg)
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestOpenRouterSummarize(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("HTTP-Referer"))
		assert.Equal(t, "digestbot", r.Header.Get("X-Title"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"x","object":"chat.completion","created":1,"model":"m",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"  ## 技术动态\n- 要点  "}}]}`)
	}))
	defer srv.Close()

	s := NewOpenRouter("test-key", "stepfun/step-3.5-flash:free", srv.URL)
	text, err := s.Summarize(context.Background(), sampleGroups())
	require.NoError(t, err)

	assert.Equal(t, "## 技术动态\n- 要点", text)
	assert.Equal(t, "stepfun/step-3.5-flash:free", body["model"])
	assert.Equal(t, 0.3, body["temperature"])
	assert.Equal(t, float64(1500), body["max_tokens"])
	messages := body["messages"].([]any)
	require.Len(t, messages, 1)
	msg := messages[0].(map[string]any)
	assert.Equal(t, "user", msg["role"])
	assert.Contains(t, msg["content"], "新模型发布")
}

func TestOpenRouterErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"http error", http.StatusTooManyRequests, `{"error":{"message":"rate limited"}}`},
		{"no choices", http.StatusOK, `{"id":"x","choices":[]}`},
		{"empty content", http.StatusOK, `{"id":"x","choices":[{"index":0,"message":{"role":"assistant","content":"  "}}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			_, err := NewOpenRouter("k", "m", srv.URL).Summarize(context.Background(), sampleGroups())
			assert.Error(t, err)
			assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
		})
	}
}

func TestCohereSummarize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat"))
		assert.Equal(t, "Bearer co-key", r.Header.Get("Authorization"))

		var req map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "command-r", req["model"])
		assert.Contains(t, req["message"], "新模型发布")

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"text":" 周报 ","generation_id":"g","finish_reason":"COMPLETE"}`)
	}))
	defer srv.Close()

	s := NewCohere("co-key", "command-r", cohereoption.WithBaseURL(srv.URL))
	text, err := s.Summarize(context.Background(), sampleGroups())
	require.NoError(t, err)
	assert.Equal(t, "周报", text)
}
