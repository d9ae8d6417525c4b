package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"digestbot/config"
	"digestbot/outputs"
	"digestbot/search"
	"digestbot/types"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var runNow = time.Date(2024, time.March, 10, 12, 0, 0, 0, time.Local)

type fakeFetcher struct {
	mu      sync.Mutex
	results map[string][]types.Article
	errs    map[string]error
	queries map[string]string
	calls   []string
	release chan struct{}
}

func (f *fakeFetcher) Fetch(ctx context.Context, account, query, group string) ([]types.Article, error) {
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.queries == nil {
		f.queries = map[string]string{}
	}
	f.queries[account] = query
	f.calls = append(f.calls, account)
	if err := f.errs[account]; err != nil {
		return nil, err
	}
	out := append([]types.Article{}, f.results[account]...)
	for i := range out {
		out[i].Group = group
	}
	return out, nil
}

type fakeSummarizer struct {
	text  string
	err   error
	calls int
}

func (s *fakeSummarizer) Summarize(context.Context, []types.GroupArticles) (string, error) {
	s.calls++
	return s.text, s.err
}

type recordingSink struct {
	name   string
	err    error
	digest *outputs.Digest
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Write(_ context.Context, d *outputs.Digest) (string, error) {
	s.digest = d
	return s.name + "://ok", s.err
}

func testConfig(t *testing.T, accounts ...string) *config.Config {
	return &config.Config{
		Groups: []types.AccountGroup{
			{Name: config.PrimaryGroupName, Accounts: accounts, QueryTemplate: "{account} AI {year}年{month}月"},
		},
		SearchDays:       7,
		FetchConcurrency: 1,
		LocalOutputDir:   t.TempDir(),
	}
}

func newTestRunner(cfg *config.Config, f search.Fetcher, opts ...RunnerOption) *Runner {
	base := []RunnerOption{
		WithFetcher(f),
		WithSummarizer(nil),
		WithClock(func() time.Time { return runNow }),
	}
	return NewRunner(cfg, zerolog.Nop(), append(base, opts...)...)
}

func article(title, ts string) types.Article {
	return types.Article{Title: title, URL: "https://mp.weixin.qq.com/s/" + title, Timestamp: ts}
}

func TestRunEndToEnd(t *testing.T) {
	cfg := testConfig(t, "A", "B")
	fetcher := &fakeFetcher{results: map[string][]types.Article{
		"A": {
			article("模型发布", "2024-03-09 10:00:00"),
			article("融资消息", "2024-03-08 09:00:00"),
			article("模型发布", "2024-03-05 08:00:00"),
		},
	}}

	report, err := newTestRunner(cfg, fetcher).Run(context.Background(), Options{Days: 7, Output: outputs.ModeLocal})
	require.NoError(t, err)

	assert.Equal(t, types.OutcomeCompleted, report.Outcome)
	assert.Equal(t, 2, report.Total)
	assert.Equal(t, "AI公众号周报｜A·B（2024-03-03 ~ 2024-03-10）", report.Title)
	assert.Equal(t, "A AI 2024年3月", fetcher.queries["A"])
	assert.Equal(t, []types.AccountCount{
		{Account: "A", Group: config.PrimaryGroupName, Fetched: 3, Kept: 2},
		{Account: "B", Group: config.PrimaryGroupName},
	}, report.Counts)

	a, ok := report.Result.Get("A")
	require.True(t, ok)
	require.Len(t, a, 2)
	assert.Equal(t, "2024-03-09 10:00:00", a[0].Timestamp)
	b, ok := report.Result.Get("B")
	require.True(t, ok)
	assert.Empty(t, b)

	require.Len(t, report.Sinks, 1)
	assert.True(t, report.Sinks[0].OK)
	assert.False(t, report.HasSummary)

	md, err := os.ReadFile(filepath.Join(cfg.LocalOutputDir, "2024-03-10_digest.md"))
	require.NoError(t, err)
	assert.Contains(t, string(md), "## A（2 篇）\n\n- [2024-03-09] [模型发布](https://mp.weixin.qq.com/s/模型发布)\n- [2024-03-08] [融资消息](https://mp.weixin.qq.com/s/融资消息)\n")
	assert.Contains(t, string(md), "## B（0 篇）")
	assert.FileExists(t, filepath.Join(cfg.LocalOutputDir, "2024-03-10_raw.json"))
}

func TestRunNoData(t *testing.T) {
	cfg := testConfig(t, "A", "B")
	fetcher := &fakeFetcher{
		results: map[string][]types.Article{"B": {article("旧闻", "2024-02-01 10:00:00")}},
		errs:    map[string]error{"A": search.ErrToolMissing},
	}
	summ := &fakeSummarizer{text: "x"}
	sinkCalls := 0
	var states []types.State

	report, err := newTestRunner(cfg, fetcher,
		WithSummarizer(summ),
		WithSinks(func(context.Context, outputs.Mode) ([]outputs.Sink, func()) {
			sinkCalls++
			return nil, func() {}
		}),
		WithStateHook(func(s types.State) { states = append(states, s) }),
	).Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, types.OutcomeNoData, report.Outcome)
	assert.Zero(t, report.Total)
	assert.Zero(t, summ.calls)
	assert.Zero(t, sinkCalls)
	assert.Contains(t, report.Counts[0].Error, "search tool")
	assert.Equal(t, []types.State{types.StateCollecting, types.StateEmpty}, states)
}

func TestRunDryRun(t *testing.T) {
	cfg := testConfig(t, "A")
	fetcher := &fakeFetcher{results: map[string][]types.Article{"A": {article("t", "2024-03-09 10:00:00")}}}
	summ := &fakeSummarizer{text: "x"}
	sink := &recordingSink{name: "rec"}

	report, err := newTestRunner(cfg, fetcher,
		WithSummarizer(summ),
		WithSinks(func(context.Context, outputs.Mode) ([]outputs.Sink, func()) { return []outputs.Sink{sink}, func() {} }),
	).Run(context.Background(), Options{DryRun: true})
	require.NoError(t, err)

	assert.Equal(t, types.OutcomePreview, report.Outcome)
	assert.Equal(t, 1, report.Total)
	assert.Zero(t, summ.calls)
	assert.Nil(t, sink.digest)
}

func TestRunSummaryAndSinks(t *testing.T) {
	fetcher := &fakeFetcher{results: map[string][]types.Article{"A": {article("t", "2024-03-09 10:00:00")}}}

	t.Run("summary reaches sinks", func(t *testing.T) {
		summ := &fakeSummarizer{text: "## 技术动态"}
		sink := &recordingSink{name: "rec"}
		var states []types.State
		report, err := newTestRunner(testConfig(t, "A"), fetcher,
			WithSummarizer(summ),
			WithSinks(func(context.Context, outputs.Mode) ([]outputs.Sink, func()) { return []outputs.Sink{sink}, func() {} }),
			WithStateHook(func(s types.State) { states = append(states, s) }),
		).Run(context.Background(), Options{})
		require.NoError(t, err)

		assert.Equal(t, 1, summ.calls)
		assert.True(t, report.HasSummary)
		require.NotNil(t, sink.digest)
		assert.Equal(t, "## 技术动态", sink.digest.Summary)
		assert.Equal(t, report.Title, sink.digest.Title)
		assert.Equal(t, []types.State{types.StateCollecting, types.StateSummarizing, types.StateWriting, types.StateComplete}, states)
	})

	t.Run("summary failure is not fatal", func(t *testing.T) {
		summ := &fakeSummarizer{err: errors.New("HTTP 401")}
		sink := &recordingSink{name: "rec"}
		report, err := newTestRunner(testConfig(t, "A"), fetcher,
			WithSummarizer(summ),
			WithSinks(func(context.Context, outputs.Mode) ([]outputs.Sink, func()) { return []outputs.Sink{sink}, func() {} }),
		).Run(context.Background(), Options{})
		require.NoError(t, err)

		assert.False(t, report.HasSummary)
		require.NotNil(t, sink.digest)
		assert.Empty(t, sink.digest.Summary)
	})

	t.Run("no-ai skips the provider", func(t *testing.T) {
		summ := &fakeSummarizer{text: "x"}
		_, err := newTestRunner(testConfig(t, "A"), fetcher,
			WithSummarizer(summ),
			WithSinks(func(context.Context, outputs.Mode) ([]outputs.Sink, func()) { return nil, func() {} }),
		).Run(context.Background(), Options{NoAI: true})
		require.NoError(t, err)
		assert.Zero(t, summ.calls)
	})

	t.Run("failing sink does not stop the next", func(t *testing.T) {
		cfg := testConfig(t, "A")
		failing := &recordingSink{name: "feishu", err: errors.New("token failed")}
		released := false
		report, err := newTestRunner(cfg, fetcher,
			WithSinks(func(context.Context, outputs.Mode) ([]outputs.Sink, func()) {
				return []outputs.Sink{failing, outputs.NewLocalSink(cfg.LocalOutputDir)}, func() { released = true }
			}),
		).Run(context.Background(), Options{})
		require.NoError(t, err)

		require.Len(t, report.Sinks, 2)
		assert.False(t, report.Sinks[0].OK)
		assert.True(t, report.Sinks[1].OK)
		assert.True(t, report.Failed())
		assert.True(t, released)
	})
}

func TestRunOutputModeResolution(t *testing.T) {
	fetcher := &fakeFetcher{results: map[string][]types.Article{"A": {article("t", "2024-03-09 10:00:00")}}}
	cases := []struct {
		name   string
		feishu bool
		output outputs.Mode
		want   outputs.Mode
	}{
		{"auto without feishu", false, outputs.ModeAuto, outputs.ModeLocal},
		{"auto with feishu", true, outputs.ModeAuto, outputs.ModeBoth},
		{"empty means auto", false, "", outputs.ModeLocal},
		{"explicit feishu", false, outputs.ModeFeishu, outputs.ModeFeishu},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig(t, "A")
			if tc.feishu {
				cfg.FeishuAppID, cfg.FeishuAppSecret = "id", "secret"
			}
			var got outputs.Mode
			_, err := newTestRunner(cfg, fetcher,
				WithSinks(func(_ context.Context, m outputs.Mode) ([]outputs.Sink, func()) {
					got = m
					return nil, func() {}
				}),
			).Run(context.Background(), Options{Output: tc.output})
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRunParallelKeepsAccountOrder(t *testing.T) {
	accounts := []string{"A", "B", "C", "D", "E"}
	cfg := testConfig(t, accounts...)
	cfg.FetchConcurrency = 3

	results := map[string][]types.Article{}
	for i, acc := range accounts {
		results[acc] = []types.Article{article(fmt.Sprintf("%s-%d", acc, i), "2024-03-09 10:00:00")}
	}
	fetcher := &fakeFetcher{results: results}

	report, err := newTestRunner(cfg, fetcher, WithSinks(func(context.Context, outputs.Mode) ([]outputs.Sink, func()) {
		return nil, func() {}
	})).Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, accounts, report.Result.AccountNames())
	assert.Equal(t, 5, report.Total)
	assert.Len(t, fetcher.calls, 5)
}

func TestRunInvalidDays(t *testing.T) {
	cfg := testConfig(t, "A")
	cfg.SearchDays = 0
	_, err := newTestRunner(cfg, &fakeFetcher{}).Run(context.Background(), Options{})
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestRunner(testConfig(t, "A"), &fakeFetcher{}).Run(ctx, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}
