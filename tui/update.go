package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Update implements tea.Model interface
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case TickMsg:
		return m, tea.Batch(pollStatus(m.Client), tickCmd())
	case StatusUpdateMsg:
		return m.handleStatus(msg)
	case StartRunMsg:
		return m.handleStartRun(msg)
	}
	return m, nil
}

// handleKeyPress processes keyboard input
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "r", "R":
		if !m.Connected {
			m.Notice = "not connected"
			return m, nil
		}
		if m.Running {
			m.Notice = "a run is already in progress"
			return m, nil
		}
		m.Notice = "starting run..."
		return m, triggerRun(m.Client)
	}
	return m, nil
}

// handleStatus syncs local state from a poll result
func (m Model) handleStatus(msg StatusUpdateMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.Connected = false
		m.Err = msg.Err
		return m, nil
	}
	m.Connected = true
	m.Err = nil

	st := msg.Status
	m.State = st.State
	m.Running = st.Running
	m.Logs = st.Logs
	m.LastReport = st.LastReport
	m.RunError = st.Error
	return m, nil
}

// handleStartRun reports a rejected run request
func (m Model) handleStartRun(msg StartRunMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.Notice = msg.Err.Error()
		return m, nil
	}
	m.Notice = "run started"
	m.Running = true
	return m, pollStatus(m.Client)
}
