package outputs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"digestbot/config"
	"digestbot/types"

	"github.com/rs/zerolog"
)

// Feishu document block types
const (
	blockText     = 2
	blockHeading2 = 4
	blockBullet   = 12
)

// FeishuSink creates a Feishu document per digest
type FeishuSink struct {
	appID       string
	appSecret   string
	shareOpenID string
	baseURL     string
	batchSize   int
	httpClient  *http.Client
	logger      zerolog.Logger
}

// NewFeishuSink creates a sink from the app credentials in cfg
func NewFeishuSink(cfg *config.Config, logger zerolog.Logger) *FeishuSink {
	return &FeishuSink{
		appID:       cfg.FeishuAppID,
		appSecret:   cfg.FeishuAppSecret,
		shareOpenID: cfg.FeishuShareOpenID,
		baseURL:     strings.TrimRight(cfg.FeishuBaseURL, "/"),
		batchSize:   config.FeishuBatchSize,
		httpClient:  &http.Client{Timeout: config.FeishuTimeout},
		logger:      logger,
	}
}

func (f *FeishuSink) Name() string { return "feishu" }

// Write authenticates, creates the document, appends the content in batches
// and optionally shares it. Returns the document URL.
func (f *FeishuSink) Write(ctx context.Context, d *Digest) (string, error) {
	if f.appID == "" || f.appSecret == "" {
		return "", fmt.Errorf("%w: FEISHU_APP_ID / FEISHU_APP_SECRET missing", ErrNotConfigured)
	}

	token, err := f.tenantToken(ctx)
	if err != nil {
		return "", err
	}

	docID, err := f.createDocument(ctx, token, d.Title)
	if err != nil {
		return "", err
	}
	docURL := config.FeishuDocURLPrefix + docID
	f.logger.Info().Str("sink", "feishu").Str("url", docURL).Msg("document created")

	blocks := BuildBlocks(d)
	for start := 0; start < len(blocks); start += f.batchSize {
		end := min(start+f.batchSize, len(blocks))
		if err := f.appendBlocks(ctx, token, docID, blocks[start:end]); err != nil {
			return "", err
		}
		f.logger.Debug().Str("sink", "feishu").Msgf("blocks %d~%d/%d", start+1, end, len(blocks))
	}

	if f.shareOpenID != "" {
		if err := f.share(ctx, token, docID); err != nil {
			f.logger.Warn().Err(err).Str("sink", "feishu").Msg("share failed")
		} else {
			f.logger.Info().Str("sink", "feishu").Str("openid", f.shareOpenID).Msg("document shared")
		}
	}

	return docURL, nil
}

// apiResponse is the common Feishu response envelope
type apiResponse struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// doJSONRequest posts payload to path and decodes the envelope. Non-2xx
// statuses are errors; the Feishu code is left for the caller to check.
func (f *FeishuSink) doJSONRequest(ctx context.Context, path, token string, payload any) (*apiResponse, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+path, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("feishu API HTTP %d: %s", resp.StatusCode, types.TruncateRunes(string(body), 300))
	}

	var out apiResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &out, nil
}

func (f *FeishuSink) tenantToken(ctx context.Context) (string, error) {
	jsonData, err := json.Marshal(map[string]string{"app_id": f.appID, "app_secret": f.appSecret})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		f.baseURL+"/auth/v3/tenant_access_token/internal", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	// The token endpoint puts the token at the top level, not under data
	var out struct {
		Code              int    `json:"code"`
		Msg               string `json:"msg"`
		TenantAccessToken string `json:"tenant_access_token"`
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("feishu API HTTP %d: %s", resp.StatusCode, types.TruncateRunes(string(body), 300))
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if out.Code != 0 || out.TenantAccessToken == "" {
		return "", fmt.Errorf("tenant token failed: code=%d msg=%s", out.Code, out.Msg)
	}
	return out.TenantAccessToken, nil
}

func (f *FeishuSink) createDocument(ctx context.Context, token, title string) (string, error) {
	resp, err := f.doJSONRequest(ctx, "/docx/v1/documents", token, map[string]string{"title": title})
	if err != nil {
		return "", fmt.Errorf("create document: %w", err)
	}
	if resp.Code != 0 {
		return "", fmt.Errorf("create document failed: code=%d msg=%s", resp.Code, resp.Msg)
	}

	var data struct {
		Document struct {
			DocumentID string `json:"document_id"`
		} `json:"document"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil || data.Document.DocumentID == "" {
		return "", fmt.Errorf("create document: missing document_id")
	}
	return data.Document.DocumentID, nil
}

func (f *FeishuSink) appendBlocks(ctx context.Context, token, docID string, blocks []Block) error {
	path := fmt.Sprintf("/docx/v1/documents/%s/blocks/%s/children", docID, docID)
	resp, err := f.doJSONRequest(ctx, path, token, map[string]any{"children": blocks, "index": -1})
	if err != nil {
		return fmt.Errorf("append blocks: %w", err)
	}
	if resp.Code != 0 {
		return fmt.Errorf("append blocks failed: code=%d msg=%s", resp.Code, resp.Msg)
	}
	return nil
}

func (f *FeishuSink) share(ctx context.Context, token, docID string) error {
	path := fmt.Sprintf("/drive/v1/permissions/%s/members?type=docx", docID)
	resp, err := f.doJSONRequest(ctx, path, token, map[string]string{
		"member_type": "openid",
		"member_id":   f.shareOpenID,
		"perm":        "full_access",
		"type":        "user",
	})
	if err != nil {
		return err
	}
	if resp.Code != 0 && resp.Code != config.FeishuAlreadyShared {
		return fmt.Errorf("share returned code=%d msg=%s", resp.Code, resp.Msg)
	}
	return nil
}
