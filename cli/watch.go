package cli

import (
	"fmt"

	"digestbot/config"
	"digestbot/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

func (a *app) newWatchCmd() *cobra.Command {
	var url string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Terminal dashboard for a running control panel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if url == "" {
				cfg, err := config.Load(a.global.configPath)
				if err != nil {
					return fmt.Errorf("loading config: %w", err)
				}
				url = fmt.Sprintf("http://localhost:%d", cfg.UIPort)
			}

			p := tea.NewProgram(tui.NewModel(url), tea.WithContext(cmd.Context()))
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("dashboard: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "control panel URL (default http://localhost:UI_PORT)")
	return cmd
}
