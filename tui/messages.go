package tui

import (
	"time"

	"digestbot/types"
)

// Messages for the tea program (polling-based)

// StatusUpdateMsg is sent when we receive status from the control panel
type StatusUpdateMsg struct {
	Status *types.StatusResponse
	Err    error
}

// TickMsg is sent periodically to trigger polling
type TickMsg struct {
	Time time.Time
}

// StartRunMsg is sent when a run request returns
type StartRunMsg struct {
	Err error
}
