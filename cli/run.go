package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"digestbot/config"
	"digestbot/orchestrator"
	"digestbot/outputs"
	"digestbot/types"

	"github.com/spf13/cobra"
)

// runFlags are the digest run options
type runFlags struct {
	days   int
	output string
	noAI   bool
	dryRun bool
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.days, "days", 0, "look-back window in days (default SEARCH_DAYS)")
	cmd.Flags().StringVar(&f.output, "output", string(outputs.ModeAuto), "output target: feishu, local, both or auto")
	cmd.Flags().BoolVar(&f.noAI, "no-ai", false, "skip the AI summary")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "collect and preview only, write nothing")
}

// options validates flag values before any work starts
func (f *runFlags) options(cmd *cobra.Command) (orchestrator.Options, error) {
	mode, err := outputs.ParseMode(f.output)
	if err != nil {
		return orchestrator.Options{}, err
	}
	if cmd.Flags().Changed("days") && f.days <= 0 {
		return orchestrator.Options{}, fmt.Errorf("%w: --days must be positive, got %d", config.ErrInvalid, f.days)
	}
	return orchestrator.Options{Days: f.days, Output: mode, NoAI: f.noAI, DryRun: f.dryRun}, nil
}

func (a *app) newRunCmd() *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Collect, summarize and publish one digest",
		Long: `Run one digest: search every configured account, keep articles inside the
look-back window, drop duplicate titles, summarize and write the outputs.

Examples:
  digestbot run                        # auto: Feishu + local when configured
  digestbot run --output local --no-ai
  digestbot run --days 14 --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDigest(cmd, f)
		},
	}
	f.register(cmd)
	return cmd
}

func (a *app) runDigest(cmd *cobra.Command, f *runFlags) error {
	opts, err := f.options(cmd)
	if err != nil {
		return err
	}
	cfg, err := config.Load(a.global.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := newPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr())
	days := cfg.SearchDays
	if opts.Days > 0 {
		days = opts.Days
	}
	p.Banner(cfg, days)

	if opts.Output == outputs.ModeFeishu && !cfg.FeishuEnabled() {
		p.Warning("Feishu is not configured (FEISHU_APP_ID / FEISHU_APP_SECRET), the document will be skipped")
	}

	report, err := orchestrator.NewRunner(cfg, a.logger, a.runnerOpts...).Run(ctx, opts)
	if err != nil {
		return err
	}

	switch report.Outcome {
	case types.OutcomeNoData:
		p.Counts(report)
		p.Warning("no articles found in the last %d days, nothing written", report.Days)
	case types.OutcomePreview:
		p.Counts(report)
		p.Preview(report)
	default:
		p.Counts(report)
		p.Report(report)
	}
	return nil
}
