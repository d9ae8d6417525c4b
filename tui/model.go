// Package tui is a terminal dashboard for a running control panel.
package tui

import (
	"fmt"

	"digestbot/types"

	tea "github.com/charmbracelet/bubbletea"
)

// maxShownLogs bounds the activity list
const maxShownLogs = 12

// Model represents the dashboard state (thin client)
type Model struct {
	Client *PanelClient

	// Local UI state (synced from the panel)
	State      types.State
	Running    bool
	Logs       []types.LogEntry
	LastReport *types.RunReport
	RunError   string
	Notice     string
	Err        error

	// Connection status
	Connected bool
}

// NewModel creates a dashboard polling the panel at url
func NewModel(url string) Model {
	return Model{
		Client: NewPanelClient(url),
		State:  types.StateIdle,
		Logs:   make([]types.LogEntry, 0),
	}
}

// Init implements tea.Model interface
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		pollStatus(m.Client),
		tickCmd(),
	)
}

// stateText returns the headline for the current state
func (m Model) stateText() string {
	if !m.Connected {
		msg := "❌ Not connected to control panel"
		if m.Err != nil {
			msg += ": " + m.Err.Error()
		}
		return ErrorStyle.Render(msg)
	}

	switch m.State {
	case types.StateIdle:
		return HighlightStyle.Render("👋 Ready") + "\n\n" + InfoStyle.Render("Press 'r' to start a digest run")
	case types.StateCollecting:
		return StatusStyle.Render("⏳ Collecting articles...")
	case types.StateSummarizing:
		return StatusStyle.Render("🧠 Summarizing...")
	case types.StateWriting:
		return StatusStyle.Render("📤 Writing outputs...")
	case types.StateComplete:
		return HighlightStyle.Render("✅ COMPLETE")
	case types.StateEmpty:
		return WarnStyle.Render("⚠ No articles in range, nothing written")
	case types.StateError:
		errMsg := m.RunError
		if errMsg == "" {
			errMsg = "unknown error"
		}
		return ErrorStyle.Render(fmt.Sprintf("❌ Error: %s", errMsg))
	default:
		return string(m.State)
	}
}
