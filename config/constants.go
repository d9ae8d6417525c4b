package config

import "time"

// Search Constants
const (
	// SearchTimeout bounds one external search invocation per account
	SearchTimeout = 30 * time.Second

	// DefaultSearchDays is the default recency window in days
	DefaultSearchDays = 7

	// DefaultSearchNum is the default per-account result cap
	DefaultSearchNum = 30

	// DefaultSearchRuntime runs the search script
	DefaultSearchRuntime = "node"

	// DefaultSearchScriptPath is resolved against the working directory
	DefaultSearchScriptPath = "wechat_search/scripts/search_wechat.js"

	// EnrichWorkers is the readability worker pool size
	EnrichWorkers = 5
)

// Search backends
const (
	BackendScript = "script"
	BackendFeed   = "feed"
)

// Account group defaults
const (
	PrimaryGroupName   = "科技媒体"
	SecondaryGroupName = "投融资"
	ExtraGroupName     = "自定义"

	DefaultAccounts       = "机器之心,新智元,量子位"
	DefaultQueryTemplate  = "{account} AI 大模型 {year}年{month}月"
	DefaultInvestAccounts = "36氪,钛媒体,晚点,硅星人"
	DefaultInvestTemplate = "{account} AI 融资 大模型 {year}年{month}月"
)

// Summarizer Constants
const (
	ProviderOpenRouter = "openrouter"
	ProviderCohere     = "cohere"

	DefaultOpenRouterModel   = "stepfun/step-3.5-flash:free"
	DefaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"
	DefaultCohereModel       = "command-r"

	// SummaryTimeout bounds the single summarization request
	SummaryTimeout = 60 * time.Second

	// PromptArticlesPerAccount caps each account's entries in the prompt
	PromptArticlesPerAccount = 12

	// PromptSummaryRunes caps each entry's summary excerpt in the prompt
	PromptSummaryRunes = 80
)

// Sink Constants
const (
	DefaultFeishuBaseURL = "https://open.feishu.cn/open-apis"
	FeishuDocURLPrefix   = "https://feishu.cn/docx/"

	// FeishuTimeout bounds each document API call
	FeishuTimeout = 15 * time.Second

	// FeishuBatchSize is the maximum block count per append call
	FeishuBatchSize = 40

	// FeishuAlreadyShared is the permission API code for an existing grant
	FeishuAlreadyShared = 230001

	DefaultLocalOutputDir = "./output"

	// MarkdownSummaryRunes caps the summary excerpt in the markdown report
	MarkdownSummaryRunes = 100

	DefaultRedisChannel = "digest:published"
	DefaultKafkaTopic   = "digests"
)

// Control panel Constants
const (
	DefaultUIPort = 8765

	// EventBufferSize is the capacity of the run event queue
	EventBufferSize = 256

	// StreamIdleTimeout ends an event stream that has seen no events
	StreamIdleTimeout = 300 * time.Second

	// StreamPingInterval is the heartbeat period on an idle stream
	StreamPingInterval = time.Second

	// MaxLogEntries is the size of the status log ring buffer
	MaxLogEntries = 50
)
