package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// PollInterval is how often the dashboard refreshes
const PollInterval = 500 * time.Millisecond

// pollStatus creates a command to poll the run status
func pollStatus(client *PanelClient) tea.Cmd {
	return func() tea.Msg {
		status, err := client.GetStatus()
		return StatusUpdateMsg{Status: status, Err: err}
	}
}

// triggerRun creates a command that starts a run with default options
func triggerRun(client *PanelClient) tea.Cmd {
	return func() tea.Msg {
		return StartRunMsg{Err: client.StartRun()}
	}
}

// tickCmd creates a command that ticks every PollInterval
func tickCmd() tea.Cmd {
	return tea.Tick(PollInterval, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}
