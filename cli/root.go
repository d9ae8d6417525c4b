// Package cli contains the digestbot commands
package cli

import (
	"context"

	"digestbot/logging"
	"digestbot/orchestrator"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var version = "dev"

// globalFlags are shared by every subcommand
type globalFlags struct {
	configPath string
	verbose    bool
	jsonLogs   bool
}

func (g *globalFlags) logOptions() logging.Options {
	return logging.Options{Verbose: g.verbose, JSON: g.jsonLogs}
}

// app carries flag state and injected runner options for one command tree
type app struct {
	global     globalFlags
	runnerOpts []orchestrator.RunnerOption
	logger     zerolog.Logger
}

// NewRootCmd builds the command tree. Runner options are applied to every
// run the tree starts.
func NewRootCmd(runnerOpts ...orchestrator.RunnerOption) *cobra.Command {
	a := &app{runnerOpts: runnerOpts}
	run := &runFlags{}

	root := &cobra.Command{
		Use:   "digestbot",
		Short: "Weekly digest of WeChat official account articles",
		Long: `digestbot searches the configured accounts for recent articles, drops
stale and duplicate titles, optionally writes an AI summary and publishes the
digest to a Feishu document and/or local files.

Example usage:
  digestbot                      # Same as "digestbot run"
  digestbot run --days 3 --output local
  digestbot run --dry-run        # Preview what would be written
  digestbot serve --port 8765    # Control panel
  digestbot watch                # Terminal dashboard for a running panel`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.logger = logging.Setup(a.global.logOptions())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDigest(cmd, run)
		},
	}

	root.PersistentFlags().StringVar(&a.global.configPath, "config", ".env", "config file path")
	root.PersistentFlags().BoolVarP(&a.global.verbose, "verbose", "v", false, "debug logging")
	root.PersistentFlags().BoolVar(&a.global.jsonLogs, "json-logs", false, "log JSON lines instead of console output")
	run.register(root)

	root.AddCommand(
		a.newRunCmd(),
		a.newServeCmd(),
		a.newWatchCmd(),
		newVersionCmd(),
	)
	return root
}

// Execute runs the command tree with ctx
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}
