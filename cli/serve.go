package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"digestbot/api"
	"digestbot/config"
	"digestbot/orchestrator"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func (a *app) newServeCmd() *cobra.Command {
	var (
		port      int
		schedule  string
		noBrowser bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the control panel",
		Long: `Serve the browser control panel: edit settings, start runs and follow
the live run log. With --cron, runs are also started on a schedule.

Examples:
  digestbot serve
  digestbot serve --port 9000 --cron "0 9 * * MON"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.global.configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if !cmd.Flags().Changed("port") {
				port = cfg.UIPort
			}
			if !cmd.Flags().Changed("cron") {
				schedule = cfg.RunCron
			}
			if port < 0 {
				return fmt.Errorf("%w: --port must not be negative, got %d", config.ErrInvalid, port)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			svc := orchestrator.NewService(ctx, a.global.configPath, a.global.logOptions(), a.runnerOpts...)
			srv := api.NewServer(svc, port, a.logger)
			if schedule != "" {
				if err := srv.StartCron(schedule); err != nil {
					return err
				}
			}

			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe() }()

			p := newPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr())
			p.Success("control panel: http://localhost:%d", port)
			fmt.Fprintf(cmd.OutOrStdout(), "  config: %s\n  press Ctrl+C to stop\n", a.global.configPath)
			if !noBrowser {
				a.logger.Debug().Msg("browser launch is not supported, open the URL above")
			}

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutting down control panel: %w", err)
			}
			svc.Wait()
			p.Success("stopped")
			return nil
		},
	}
	cmd.Flags().IntVar(&port, "port", config.DefaultUIPort, "listen port (default UI_PORT)")
	cmd.Flags().StringVar(&schedule, "cron", "", "cron spec for scheduled runs (default RUN_CRON)")
	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "do not try to open a browser")
	return cmd
}
