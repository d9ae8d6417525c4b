package types

import "time"

// State represents the run state machine shown by the control panel
type State string

const (
	StateIdle        State = "idle"
	StateCollecting  State = "collecting"
	StateSummarizing State = "summarizing"
	StateWriting     State = "writing"
	StateComplete    State = "complete"
	StateEmpty       State = "empty"
	StateError       State = "error"
)

// Outcome is the terminal result of a run
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeNoData    Outcome = "no-data"
	OutcomePreview   Outcome = "preview"
)

// EventType tags entries of the run event stream
type EventType string

const (
	EventLog    EventType = "log"
	EventStatus EventType = "status"
	EventPing   EventType = "ping"
)

// Event is one entry pushed to stream consumers. A status event is terminal.
type Event struct {
	Type   EventType `json:"type"`
	Text   string    `json:"text,omitempty"`
	Status string    `json:"status,omitempty"`
	Code   int       `json:"code,omitempty"`
	Time   time.Time `json:"time"`
}

// LogEntry represents a single log line with timestamp
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// SinkOutcome records what happened to one output sink
type SinkOutcome struct {
	Sink     string `json:"sink"`
	OK       bool   `json:"ok"`
	Skipped  bool   `json:"skipped,omitempty"`
	Location string `json:"location,omitempty"`
	Error    string `json:"error,omitempty"`
}

// AccountCount is the per-account fetch summary of a run
type AccountCount struct {
	Account string `json:"account"`
	Group   string `json:"group"`
	Fetched int    `json:"fetched"`
	Kept    int    `json:"kept"`
	Error   string `json:"error,omitempty"`
}

// RunReport is the final report of one run
type RunReport struct {
	RunID      string           `json:"run_id"`
	Title      string           `json:"title"`
	DateRange  string           `json:"date_range"`
	Days       int              `json:"days"`
	Outcome    Outcome          `json:"outcome"`
	Total      int              `json:"total"`
	Counts     []AccountCount   `json:"counts"`
	HasSummary bool             `json:"has_summary"`
	Sinks      []SinkOutcome    `json:"sinks,omitempty"`
	Result     AggregatedResult `json:"-"`
	Summary    string           `json:"-"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
}

// Failed reports whether any attempted sink failed
func (r *RunReport) Failed() bool {
	for _, s := range r.Sinks {
		if !s.OK && !s.Skipped {
			return true
		}
	}
	return false
}

// StatusResponse is the JSON response for GET /api/status
type StatusResponse struct {
	State      State      `json:"state"`
	Running    bool       `json:"running"`
	Logs       []LogEntry `json:"logs"`
	Total      int        `json:"total"`
	LastReport *RunReport `json:"last_report,omitempty"`
	Error      string     `json:"error,omitempty"`
}
