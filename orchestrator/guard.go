package orchestrator

import (
	"fmt"
	"sync"
	"time"

	"digestbot/config"
	"digestbot/types"
)

// RunGuard holds the control panel's run state with thread-safe access.
// At most one run is active at a time.
type RunGuard struct {
	mu sync.RWMutex

	running      bool
	currentState types.State
	lastReport   *types.RunReport
	lastErr      error

	// Logs (ring buffer)
	logs    []types.LogEntry
	maxLogs int
}

// NewRunGuard creates an idle guard
func NewRunGuard() *RunGuard {
	return &RunGuard{
		currentState: types.StateIdle,
		logs:         make([]types.LogEntry, 0),
		maxLogs:      config.MaxLogEntries,
	}
}

// TryStart marks a run as active. It returns false when one already is.
func (g *RunGuard) TryStart() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running {
		return false
	}
	g.running = true
	g.currentState = types.StateCollecting
	g.lastErr = nil
	g.logs = g.logs[:0]
	return true
}

// Finish ends the active run and records its report or error
func (g *RunGuard) Finish(report *types.RunReport, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.running = false
	if report != nil {
		g.lastReport = report
	}
	switch {
	case err != nil:
		g.currentState = types.StateError
		g.lastErr = err
		g.appendLog(fmt.Sprintf("Error: %v", err))
	case report != nil && report.Outcome == types.OutcomeNoData:
		g.currentState = types.StateEmpty
	default:
		g.currentState = types.StateComplete
	}
}

// Running reports whether a run is active
func (g *RunGuard) Running() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.running
}

// SetState sets the current state (thread-safe)
func (g *RunGuard) SetState(state types.State) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.currentState = state
}

// State gets the current state (thread-safe)
func (g *RunGuard) State() types.State {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.currentState
}

// AddLog adds a log entry (thread-safe)
func (g *RunGuard) AddLog(message string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.appendLog(message)
}

// appendLog must be called with the lock held
func (g *RunGuard) appendLog(message string) {
	g.logs = append(g.logs, types.LogEntry{Timestamp: time.Now(), Message: message})
	if len(g.logs) > g.maxLogs {
		g.logs = g.logs[len(g.logs)-g.maxLogs:]
	}
}

// LastReport returns the report of the most recent finished run
func (g *RunGuard) LastReport() *types.RunReport {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.lastReport
}

// Status returns a snapshot of the current state (thread-safe)
func (g *RunGuard) Status() types.StatusResponse {
	g.mu.RLock()
	defer g.mu.RUnlock()

	resp := types.StatusResponse{
		State:      g.currentState,
		Running:    g.running,
		Logs:       append([]types.LogEntry{}, g.logs...),
		LastReport: g.lastReport,
	}
	if g.lastReport != nil {
		resp.Total = g.lastReport.Total
	}
	if g.lastErr != nil {
		resp.Error = g.lastErr.Error()
	}
	return resp
}
