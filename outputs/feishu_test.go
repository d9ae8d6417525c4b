package outputs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"digestbot/config"
	"digestbot/types"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFeishu records calls to the document API
type fakeFeishu struct {
	mu          sync.Mutex
	tokenCode   int
	appendCode  int
	shareCode   int
	appendCalls [][]Block
	shareCalls  int
	authHeaders []string
}

func (f *fakeFeishu) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/v3/tenant_access_token/internal", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "app", body["app_id"])
		fmt.Fprintf(w, `{"code":%d,"msg":"ok","tenant_access_token":"t-123","expire":7200}`, f.tokenCode)
	})
	mux.HandleFunc("/docx/v1/documents", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		fmt.Fprint(w, `{"code":0,"data":{"document":{"document_id":"doc42","title":"x"}}}`)
	})
	mux.HandleFunc("/docx/v1/documents/doc42/blocks/doc42/children", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		var body struct {
			Children []Block `json:"children"`
			Index    int     `json:"index"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, -1, body.Index)
		f.mu.Lock()
		f.appendCalls = append(f.appendCalls, body.Children)
		f.mu.Unlock()
		fmt.Fprintf(w, `{"code":%d,"msg":"append"}`, f.appendCode)
	})
	mux.HandleFunc("/drive/v1/permissions/doc42/members", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "docx", r.URL.Query().Get("type"))
		f.mu.Lock()
		f.shareCalls++
		f.mu.Unlock()
		fmt.Fprintf(w, `{"code":%d,"msg":"share"}`, f.shareCode)
	})
	return mux
}

func (f *fakeFeishu) record(r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authHeaders = append(f.authHeaders, r.Header.Get("Authorization"))
}

func newTestFeishu(t *testing.T, fake *fakeFeishu, shareOpenID string) *FeishuSink {
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)
	return NewFeishuSink(&config.Config{
		FeishuAppID:       "app",
		FeishuAppSecret:   "secret",
		FeishuShareOpenID: shareOpenID,
		FeishuBaseURL:     srv.URL,
	}, zerolog.Nop())
}

func bigDigest(n int) *Digest {
	d := sampleDigest("")
	articles := make([]types.Article, n)
	for i := range articles {
		articles[i] = types.Article{Title: fmt.Sprintf("t%d", i), URL: "https://x/" + fmt.Sprint(i), Timestamp: "2024-03-09 10:00:00"}
	}
	d.Result.Accounts[1].Articles = articles
	return d
}

func TestFeishuSinkWritesInBatches(t *testing.T) {
	fake := &fakeFeishu{shareCode: config.FeishuAlreadyShared}
	sink := newTestFeishu(t, fake, "ou_123")

	d := bigDigest(80)
	location, err := sink.Write(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, "https://feishu.cn/docx/doc42", location)

	total := len(BuildBlocks(d))
	require.Equal(t, (total+39)/40, len(fake.appendCalls))
	sum := 0
	for _, batch := range fake.appendCalls {
		assert.LessOrEqual(t, len(batch), 40)
		sum += len(batch)
	}
	assert.Equal(t, total, sum)
	assert.Equal(t, 1, fake.shareCalls)
	for _, h := range fake.authHeaders {
		assert.Equal(t, "Bearer t-123", h)
	}
}

func TestFeishuSinkFailures(t *testing.T) {
	t.Run("token code", func(t *testing.T) {
		sink := newTestFeishu(t, &fakeFeishu{tokenCode: 99991663}, "")
		_, err := sink.Write(context.Background(), sampleDigest(""))
		assert.ErrorContains(t, err, "tenant token failed")
	})

	t.Run("append code", func(t *testing.T) {
		sink := newTestFeishu(t, &fakeFeishu{appendCode: 1770001}, "")
		_, err := sink.Write(context.Background(), sampleDigest(""))
		assert.ErrorContains(t, err, "code=1770001")
	})

	t.Run("share failure is not fatal", func(t *testing.T) {
		fake := &fakeFeishu{shareCode: 1063001}
		sink := newTestFeishu(t, fake, "ou_1")
		location, err := sink.Write(context.Background(), sampleDigest(""))
		require.NoError(t, err)
		assert.NotEmpty(t, location)
		assert.Equal(t, 1, fake.shareCalls)
	})

	t.Run("not configured", func(t *testing.T) {
		sink := NewFeishuSink(&config.Config{}, zerolog.Nop())
		_, err := sink.Write(context.Background(), sampleDigest(""))
		assert.ErrorIs(t, err, ErrNotConfigured)
	})

	t.Run("http error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "bad gateway", http.StatusBadGateway)
		}))
		defer srv.Close()
		sink := NewFeishuSink(&config.Config{FeishuAppID: "a", FeishuAppSecret: "s", FeishuBaseURL: srv.URL}, zerolog.Nop())
		_, err := sink.Write(context.Background(), sampleDigest(""))
		assert.ErrorContains(t, err, "HTTP 502")
	})
}

func TestBuildBlocks(t *testing.T) {
	d := sampleDigest("# 周报\n## 技术动态\n- 模型A发布\n• 融资B\n**关键信号**\n\n普通段落")
	blocks := BuildBlocks(d)

	content := func(b Block) string {
		var body *blockBody
		switch {
		case b.Text != nil:
			body = b.Text
		case b.Heading2 != nil:
			body = b.Heading2
		default:
			body = b.Bullet
		}
		var parts []string
		for _, e := range body.Elements {
			parts = append(parts, e.TextRun.Content)
		}
		return strings.Join(parts, "")
	}

	assert.Equal(t, "爬取范围: 2024-03-03 ~ 2024-03-10  |  合计: 2篇  |  B: 2篇  A: 0篇", content(blocks[0]))
	assert.Equal(t, blockHeading2, blocks[2].BlockType)
	assert.Equal(t, "# 周报", content(blocks[3]))
	assert.Equal(t, "▶ 技术动态", content(blocks[4]))
	assert.Equal(t, blockBullet, blocks[5].BlockType)
	assert.Equal(t, "模型A发布", content(blocks[5]))
	assert.Equal(t, "融资B", content(blocks[6]))
	assert.Equal(t, "关键信号", content(blocks[7]))
	assert.Equal(t, "普通段落", content(blocks[8]))
	assert.Equal(t, "B（2篇）", content(blocks[9]))

	linkedItem := blocks[10].Bullet.Elements
	require.Len(t, linkedItem, 2)
	assert.Equal(t, "[2024-03-09]  ", linkedItem[0].TextRun.Content)
	require.NotNil(t, linkedItem[1].TextRun.Style.Link)
	assert.Equal(t, "https://mp.weixin.qq.com/s?id=1&x=%E4%B8%AD", linkedItem[1].TextRun.Style.Link.URL)

	bareItem := blocks[11].Bullet.Elements
	assert.True(t, bareItem[1].TextRun.Style.Bold)
	assert.Nil(t, bareItem[1].TextRun.Style.Link)

	assert.Equal(t, "A（0篇）", content(blocks[12]))
	assert.Len(t, blocks, 13)
}

func TestEscapeLink(t *testing.T) {
	assert.Equal(t, "https://a.b/c?d=e&f=%20g#h", EscapeLink("https://a.b/c?d=e&f= g#h"))
	assert.Equal(t, "https://a.b/%already", EscapeLink("https://a.b/%already"))
	assert.Equal(t, "%E4%B8%AD", EscapeLink("中"))
}
