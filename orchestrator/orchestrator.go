// Package orchestrator runs one digest end to end: collect, check for data,
// summarize and write to the sinks.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"digestbot/aggregate"
	"digestbot/config"
	"digestbot/deduplication"
	"digestbot/outputs"
	"digestbot/search"
	"digestbot/summarizer"
	"digestbot/types"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ErrRunInProgress is returned when a run is requested while one is active
var ErrRunInProgress = errors.New("already running")

// Options are the per-run switches of the CLI and the control panel
type Options struct {
	// Days overrides SEARCH_DAYS when positive
	Days   int
	Output outputs.Mode
	NoAI   bool
	DryRun bool
}

// SinkFactory returns the sinks for a resolved output mode and a func that
// releases them.
type SinkFactory func(ctx context.Context, mode outputs.Mode) ([]outputs.Sink, func())

// Runner executes the digest pipeline
type Runner struct {
	cfg        *config.Config
	fetcher    search.Fetcher
	summarizer summarizer.Summarizer
	aiErr      error
	sinks      SinkFactory
	logger     zerolog.Logger
	now        func() time.Time
	onState    func(types.State)
}

// RunnerOption customizes a Runner
type RunnerOption func(*Runner)

// WithFetcher replaces the configured search backend
func WithFetcher(f search.Fetcher) RunnerOption {
	return func(r *Runner) { r.fetcher = f }
}

// WithSummarizer replaces the configured provider. nil disables AI.
func WithSummarizer(s summarizer.Summarizer) RunnerOption {
	return func(r *Runner) {
		r.summarizer = s
		r.aiErr = nil
		if s == nil {
			r.aiErr = summarizer.ErrDisabled
		}
	}
}

// WithSinks replaces the sink selection
func WithSinks(f SinkFactory) RunnerOption {
	return func(r *Runner) { r.sinks = f }
}

// WithClock sets the time source used for the cutoff and the title
func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) { r.now = now }
}

// WithStateHook is called on every state transition
func WithStateHook(fn func(types.State)) RunnerOption {
	return func(r *Runner) { r.onState = fn }
}

// NewRunner creates a runner from cfg
func NewRunner(cfg *config.Config, logger zerolog.Logger, opts ...RunnerOption) *Runner {
	r := &Runner{
		cfg:     cfg,
		fetcher: search.New(cfg, logger),
		logger:  logger,
		now:     time.Now,
		onState: func(types.State) {},
	}
	r.summarizer, r.aiErr = summarizer.New(cfg)
	r.sinks = r.configuredSinks
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// configuredSinks returns the primary sinks for mode followed by every
// configured archive sink.
func (r *Runner) configuredSinks(ctx context.Context, mode outputs.Mode) ([]outputs.Sink, func()) {
	sinks := outputs.PrimarySinks(mode, r.cfg, r.logger)
	archive, release := outputs.ArchiveSinks(ctx, r.cfg)
	return append(sinks, archive...), release
}

// Run executes one digest. Source and sink failures are recorded in the
// report; only cancellation returns an error.
func (r *Runner) Run(ctx context.Context, opts Options) (*types.RunReport, error) {
	days := r.cfg.SearchDays
	if opts.Days > 0 {
		days = opts.Days
	}
	if days <= 0 {
		return nil, fmt.Errorf("%w: days must be positive, got %d", config.ErrInvalid, days)
	}

	now := r.now()
	start := now.AddDate(0, 0, -days).Format(deduplication.DateLayout)
	dateRange := fmt.Sprintf("%s ~ %s", start, now.Format(deduplication.DateLayout))
	report := &types.RunReport{
		RunID:     uuid.NewString(),
		Title:     fmt.Sprintf("AI公众号周报｜%s（%s）", strings.Join(r.cfg.Accounts(), "·"), dateRange),
		DateRange: dateRange,
		Days:      days,
		StartedAt: now,
	}
	logger := r.logger.With().Str("run_id", report.RunID).Logger()
	logger.Info().Int("days", days).Str("range", dateRange).Strs("accounts", r.cfg.Accounts()).Msg("digest run started")

	// Collect
	r.onState(types.StateCollecting)
	agg := aggregate.New(r.cfg.Groups)
	report.Counts = r.collect(ctx, agg, days, now, logger)
	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("run cancelled: %w", err)
	}

	report.Result = agg.Result()
	report.Total = report.Result.Total()
	logger.Info().Str("stage", "collect").Int("total", report.Total).Msg("collection finished")

	// Check-empty
	if report.Total == 0 {
		logger.Warn().Str("stage", "collect").Msg("no articles collected, nothing to write")
		report.Outcome = types.OutcomeNoData
		report.FinishedAt = r.now()
		r.onState(types.StateEmpty)
		return report, nil
	}

	// Preview
	if opts.DryRun {
		report.Outcome = types.OutcomePreview
		report.FinishedAt = r.now()
		r.onState(types.StateComplete)
		return report, nil
	}

	// Summarize
	report.Summary = r.summarize(ctx, agg.ByGroup(), opts.NoAI, logger)
	report.HasSummary = report.Summary != ""

	// Output
	r.onState(types.StateWriting)
	mode := opts.Output
	if mode == "" {
		mode = outputs.ModeAuto
	}
	mode = mode.Resolve(r.cfg.FeishuEnabled())
	logger.Info().Str("stage", "output").Str("mode", string(mode)).Msg("writing digest")

	sinks, release := r.sinks(ctx, mode)
	defer release()

	digest := &outputs.Digest{
		Title:       report.Title,
		DateRange:   report.DateRange,
		Result:      report.Result,
		Summary:     report.Summary,
		GeneratedAt: now,
	}
	report.Sinks = outputs.WriteAll(ctx, sinks, digest, logger)

	report.Outcome = types.OutcomeCompleted
	report.FinishedAt = r.now()
	r.onState(types.StateComplete)
	logger.Info().Int("total", report.Total).Msg("digest run finished")
	return report, nil
}

// collect fetches every account, at most FETCH_CONCURRENCY at a time, and
// stores each account's recent, deduplicated articles in agg.
func (r *Runner) collect(ctx context.Context, agg *aggregate.Aggregator, days int, now time.Time, logger zerolog.Logger) []types.AccountCount {
	type job struct {
		account string
		group   types.AccountGroup
	}
	var jobs []job
	seen := make(map[string]bool)
	for _, g := range r.cfg.Groups {
		for _, account := range g.Accounts {
			if seen[account] {
				continue
			}
			seen[account] = true
			jobs = append(jobs, job{account: account, group: g})
		}
	}

	counts := make([]types.AccountCount, len(jobs))
	var g errgroup.Group
	g.SetLimit(max(r.cfg.FetchConcurrency, 1))

	for i, j := range jobs {
		g.Go(func() error {
			counts[i] = r.collectAccount(ctx, agg, j.account, j.group, days, now, logger)
			return nil
		})
	}
	_ = g.Wait()
	return counts
}

func (r *Runner) collectAccount(ctx context.Context, agg *aggregate.Aggregator, account string, group types.AccountGroup, days int, now time.Time, logger zerolog.Logger) types.AccountCount {
	count := types.AccountCount{Account: account, Group: group.Name}
	log := logger.With().Str("stage", "collect").Str("account", account).Str("group", group.Name).Logger()
	if ctx.Err() != nil {
		count.Error = ctx.Err().Error()
		return count
	}

	query := search.BuildQuery(group.QueryTemplate, account, now)
	log.Debug().Str("query", query).Msg("searching")

	raw, err := r.fetcher.Fetch(ctx, account, query, group.Name)
	if err != nil {
		log.Warn().Err(err).Msg("search unavailable, account left empty")
		count.Error = err.Error()
		raw = nil
	}

	recent := deduplication.FilterRecent(raw, days, now)
	unique, stats := deduplication.DedupWithStats(recent)
	if err := agg.Set(account, unique); err != nil {
		log.Error().Err(err).Msg("storing account result")
	}

	count.Fetched = len(raw)
	count.Kept = len(unique)
	log.Info().
		Int("fetched", len(raw)).
		Int("recent", len(recent)).
		Int("duplicates", stats.Duplicates).
		Int("kept", len(unique)).
		Msg("account collected")
	return count
}

// summarize returns the AI summary or "" when skipped or failed
func (r *Runner) summarize(ctx context.Context, groups []types.GroupArticles, noAI bool, logger zerolog.Logger) string {
	log := logger.With().Str("stage", "summarize").Logger()
	switch {
	case noAI:
		log.Info().Msg("AI summary skipped (--no-ai)")
		return ""
	case r.summarizer == nil:
		log.Info().Err(r.aiErr).Msg("AI summary skipped")
		return ""
	}

	r.onState(types.StateSummarizing)
	summary, err := summarizer.Run(ctx, r.summarizer, groups)
	if err != nil {
		log.Warn().Err(err).Msg("AI summary failed, continuing without it")
		return ""
	}
	log.Info().Int("chars", len([]rune(summary))).Msg("AI summary ready")
	return summary
}
