// Package config loads run configuration from a .env file and the process
// environment. Non-empty environment values take precedence over the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"digestbot/types"

	"github.com/joho/godotenv"
)

// ErrInvalid is returned for configuration values that cannot be used
var ErrInvalid = errors.New("invalid configuration")

// S3Config selects the optional S3 archive sink
type S3Config struct {
	Bucket       string
	Region       string
	Profile      string
	Prefix       string
	UsePathStyle bool
}

// RedisConfig selects the optional Redis publish sink
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

// KafkaConfig selects the optional Kafka publish sink
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// Config holds everything one run needs
type Config struct {
	Groups []types.AccountGroup

	SearchDays       int
	SearchNum        int
	SearchBackend    string
	SearchScriptPath string
	SearchRuntime    string
	FeedURLTemplate  string
	FetchConcurrency int
	EnrichSummaries  bool

	SummaryProvider   string
	OpenRouterAPIKey  string
	OpenRouterModel   string
	OpenRouterBaseURL string
	CohereAPIKey      string
	CohereModel       string

	FeishuAppID       string
	FeishuAppSecret   string
	FeishuShareOpenID string
	FeishuBaseURL     string

	LocalOutputDir string

	S3    S3Config
	Redis RedisConfig
	Kafka KafkaConfig

	UIPort  int
	RunCron string
}

// FeishuEnabled reports whether document sink credentials are present
func (c *Config) FeishuEnabled() bool {
	return c.FeishuAppID != "" && c.FeishuAppSecret != ""
}

// AIEnabled reports whether the selected summary provider has a key
func (c *Config) AIEnabled() bool {
	switch c.SummaryProvider {
	case ProviderCohere:
		return c.CohereAPIKey != ""
	default:
		return c.OpenRouterAPIKey != ""
	}
}

// Accounts lists every configured account in group order
func (c *Config) Accounts() []string {
	var out []string
	for _, g := range c.Groups {
		out = append(out, g.Accounts...)
	}
	return out
}

// Load reads path (missing file is fine) and overlays the environment.
func Load(path string) (*Config, error) {
	fileVars := map[string]string{}
	if path != "" {
		vars, err := godotenv.Read(path)
		switch {
		case err == nil:
			fileVars = vars
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}
	return FromMap(fileVars, os.Getenv)
}

// FromMap builds a Config from file values, with getenv taking precedence.
func FromMap(fileVars map[string]string, getenv func(string) string) (*Config, error) {
	get := func(key, def string) string {
		if getenv != nil {
			if v := strings.TrimSpace(getenv(key)); v != "" {
				return v
			}
		}
		if v := strings.TrimSpace(fileVars[key]); v != "" {
			return v
		}
		return def
	}

	cfg := &Config{
		SearchBackend:     strings.ToLower(get("SEARCH_BACKEND", BackendScript)),
		SearchScriptPath:  get("SEARCH_SCRIPT_PATH", DefaultSearchScriptPath),
		SearchRuntime:     get("SEARCH_RUNTIME", DefaultSearchRuntime),
		FeedURLTemplate:   get("FEED_URL_TEMPLATE", ""),
		SummaryProvider:   strings.ToLower(get("SUMMARY_PROVIDER", ProviderOpenRouter)),
		OpenRouterAPIKey:  get("OPENROUTER_API_KEY", ""),
		OpenRouterModel:   get("OPENROUTER_MODEL", DefaultOpenRouterModel),
		OpenRouterBaseURL: get("OPENROUTER_BASE_URL", DefaultOpenRouterBaseURL),
		CohereAPIKey:      get("COHERE_API_KEY", ""),
		CohereModel:       get("COHERE_MODEL", DefaultCohereModel),
		FeishuAppID:       get("FEISHU_APP_ID", ""),
		FeishuAppSecret:   get("FEISHU_APP_SECRET", ""),
		FeishuShareOpenID: get("FEISHU_SHARE_OPENID", ""),
		FeishuBaseURL:     strings.TrimRight(get("FEISHU_BASE_URL", DefaultFeishuBaseURL), "/"),
		LocalOutputDir:    get("LOCAL_OUTPUT_DIR", DefaultLocalOutputDir),
		RunCron:           get("RUN_CRON", ""),
		S3: S3Config{
			Bucket:       get("S3_BUCKET", ""),
			Region:       get("S3_REGION", ""),
			Profile:      get("S3_PROFILE", ""),
			UsePathStyle: strings.EqualFold(get("S3_USE_PATH_STYLE", ""), "true"),
		},
		Redis: RedisConfig{
			Addr:     get("REDIS_ADDR", ""),
			Password: get("REDIS_PASS", ""),
			Channel:  get("REDIS_CHANNEL", DefaultRedisChannel),
		},
		Kafka: KafkaConfig{
			Brokers: SplitList(get("KAFKA_BROKERS", "")),
			Topic:   get("KAFKA_TOPIC", DefaultKafkaTopic),
		},
	}

	if prefix := get("S3_PREFIX", ""); prefix != "" {
		cfg.S3.Prefix = strings.Trim(prefix, "/") + "/"
	}

	var err error
	if cfg.SearchDays, err = positiveInt("SEARCH_DAYS", get("SEARCH_DAYS", strconv.Itoa(DefaultSearchDays))); err != nil {
		return nil, err
	}
	if cfg.SearchNum, err = positiveInt("SEARCH_NUM", get("SEARCH_NUM", strconv.Itoa(DefaultSearchNum))); err != nil {
		return nil, err
	}
	if cfg.FetchConcurrency, err = positiveInt("FETCH_CONCURRENCY", get("FETCH_CONCURRENCY", "1")); err != nil {
		return nil, err
	}
	if cfg.UIPort, err = positiveInt("UI_PORT", get("UI_PORT", strconv.Itoa(DefaultUIPort))); err != nil {
		return nil, err
	}
	if db := get("REDIS_DB", ""); db != "" {
		if cfg.Redis.DB, err = strconv.Atoi(db); err != nil {
			return nil, fmt.Errorf("%w: REDIS_DB %q is not an integer", ErrInvalid, db)
		}
	}
	if enrich := get("ENRICH_SUMMARIES", ""); enrich != "" {
		if cfg.EnrichSummaries, err = strconv.ParseBool(enrich); err != nil {
			return nil, fmt.Errorf("%w: ENRICH_SUMMARIES %q is not a boolean", ErrInvalid, enrich)
		}
	}

	switch cfg.SearchBackend {
	case BackendScript:
	case BackendFeed:
		if cfg.FeedURLTemplate == "" {
			return nil, fmt.Errorf("%w: FEED_URL_TEMPLATE is required for the feed backend", ErrInvalid)
		}
	default:
		return nil, fmt.Errorf("%w: unknown SEARCH_BACKEND %q (valid: script, feed)", ErrInvalid, cfg.SearchBackend)
	}
	switch cfg.SummaryProvider {
	case ProviderOpenRouter, ProviderCohere:
	default:
		return nil, fmt.Errorf("%w: unknown SUMMARY_PROVIDER %q (valid: openrouter, cohere)", ErrInvalid, cfg.SummaryProvider)
	}

	cfg.Groups = buildGroups([]groupSpec{
		{PrimaryGroupName, get("ACCOUNTS", DefaultAccounts), get("SEARCH_QUERY_TEMPLATE", DefaultQueryTemplate)},
		{SecondaryGroupName, get("INVEST_ACCOUNTS", DefaultInvestAccounts), get("INVEST_QUERY_TEMPLATE", DefaultInvestTemplate)},
		{ExtraGroupName, get("EXTRA_ACCOUNTS", ""), get("EXTRA_QUERY_TEMPLATE", DefaultQueryTemplate)},
	})
	return cfg, nil
}

type groupSpec struct {
	name     string
	accounts string
	template string
}

// buildGroups drops groups without accounts.
func buildGroups(specs []groupSpec) []types.AccountGroup {
	var groups []types.AccountGroup
	for _, s := range specs {
		accounts := SplitList(s.accounts)
		if len(accounts) == 0 {
			continue
		}
		groups = append(groups, types.AccountGroup{
			Name:          s.name,
			Accounts:      accounts,
			QueryTemplate: s.template,
		})
	}
	return groups
}

// SplitList splits a comma separated value, trimming and dropping blanks
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func positiveInt(key, raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not an integer", ErrInvalid, key, raw)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%w: %s must be positive, got %d", ErrInvalid, key, n)
	}
	return n, nil
}
