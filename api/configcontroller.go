package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"digestbot/config"

	"github.com/gin-gonic/gin"
)

// configField maps a panel form field onto its .env key. Positive fields
// must hold a positive integer.
type configField struct {
	Field    string
	Key      string
	Default  string
	Positive bool
}

var configFields = []configField{
	{Field: "accounts", Key: "ACCOUNTS", Default: config.DefaultAccounts},
	{Field: "search_query_template", Key: "SEARCH_QUERY_TEMPLATE", Default: config.DefaultQueryTemplate},
	{Field: "invest_accounts", Key: "INVEST_ACCOUNTS", Default: config.DefaultInvestAccounts},
	{Field: "invest_query_template", Key: "INVEST_QUERY_TEMPLATE", Default: config.DefaultInvestTemplate},
	{Field: "extra_accounts", Key: "EXTRA_ACCOUNTS"},
	{Field: "extra_query_template", Key: "EXTRA_QUERY_TEMPLATE"},
	{Field: "summary_provider", Key: "SUMMARY_PROVIDER", Default: config.ProviderOpenRouter},
	{Field: "openrouter_api_key", Key: "OPENROUTER_API_KEY"},
	{Field: "openrouter_model", Key: "OPENROUTER_MODEL", Default: config.DefaultOpenRouterModel},
	{Field: "cohere_api_key", Key: "COHERE_API_KEY"},
	{Field: "cohere_model", Key: "COHERE_MODEL", Default: config.DefaultCohereModel},
	{Field: "local_output_dir", Key: "LOCAL_OUTPUT_DIR", Default: config.DefaultLocalOutputDir},
	{Field: "feishu_app_id", Key: "FEISHU_APP_ID"},
	{Field: "feishu_app_secret", Key: "FEISHU_APP_SECRET"},
	{Field: "feishu_share_openid", Key: "FEISHU_SHARE_OPENID"},
	{Field: "search_days", Key: "SEARCH_DAYS", Default: strconv.Itoa(config.DefaultSearchDays), Positive: true},
	{Field: "search_num", Key: "SEARCH_NUM", Default: strconv.Itoa(config.DefaultSearchNum), Positive: true},
}

// RegisterConfigRoutes registers the settings endpoints.
func RegisterConfigRoutes(r *gin.Engine, s *Server) {
	g := r.Group("/api/config")
	g.GET("", s.handleGetConfig)
	g.POST("", s.handleSaveConfig)
}

// handleGetConfig returns the file's values, defaults filled in. The
// environment is not consulted so the form shows what will be saved.
func (s *Server) handleGetConfig(c *gin.Context) {
	env, err := config.ReadEnvFile(s.svc.ConfigPath())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	out := gin.H{}
	for _, f := range configFields {
		if v, ok := env[f.Key]; ok && v != "" {
			out[f.Field] = v
		} else {
			out[f.Field] = f.Default
		}
	}
	c.JSON(http.StatusOK, out)
}

// handleSaveConfig writes every known, non-empty field back to the file
func (s *Server) handleSaveConfig(c *gin.Context) {
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var pairs []config.EnvPair
	for _, f := range configFields {
		v := formValue(body[f.Field])
		if v == "" {
			continue
		}
		if f.Positive {
			if n, err := strconv.Atoi(v); err != nil || n <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("%s must be a positive integer", f.Field)})
				return
			}
		}
		pairs = append(pairs, config.EnvPair{Key: f.Key, Value: v})
	}

	if err := config.WriteEnvFile(s.svc.ConfigPath(), pairs); err != nil {
		s.logger.Error().Err(err).Msg("saving config")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	s.logger.Info().Int("keys", len(pairs)).Msg("config saved")
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// formValue renders a decoded JSON value as an .env value
func formValue(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		if !x {
			return ""
		}
		return "true"
	default:
		return ""
	}
}
