package tui

import (
	"fmt"
	"strings"

	"digestbot/types"
)

// View implements tea.Model interface
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("📰 digestbot"))
	b.WriteString("\n\n")

	b.WriteString(m.stateText())
	b.WriteString("\n\n")

	if r := m.LastReport; r != nil {
		b.WriteString(BoxStyle.Render(formatReport(r)))
		b.WriteString("\n\n")
	}

	if len(m.Logs) > 0 {
		b.WriteString(InfoStyle.Render("📝 Recent Activity:"))
		b.WriteString("\n")
		logs := m.Logs
		if len(logs) > maxShownLogs {
			logs = logs[len(logs)-maxShownLogs:]
		}
		for _, entry := range logs {
			b.WriteString(InfoStyle.Render("   " + entry.Message))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if m.Notice != "" {
		b.WriteString(WarnStyle.Render(m.Notice))
		b.WriteString("\n")
	}

	if m.Running {
		b.WriteString(InfoStyle.Render("Press 'q' to detach (run continues)"))
	} else {
		b.WriteString(InfoStyle.Render("Press 'r' to run | Press 'q' or Ctrl+C to quit"))
	}
	return b.String()
}

// formatReport renders the last run's counts and sink outcomes
func formatReport(r *types.RunReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", r.Title)
	fmt.Fprintf(&b, "Outcome: %s | Total: %d | AI summary: %t\n", r.Outcome, r.Total, r.HasSummary)

	for _, c := range r.Counts {
		line := fmt.Sprintf("  %-12s %3d kept / %3d fetched", c.Account, c.Kept, c.Fetched)
		if c.Error != "" {
			line += "  " + ErrorStyle.Render(c.Error)
		}
		b.WriteString(line + "\n")
	}

	for _, s := range r.Sinks {
		switch {
		case s.OK:
			fmt.Fprintf(&b, "  ✅ %s %s\n", s.Sink, s.Location)
		case s.Skipped:
			fmt.Fprintf(&b, "  ⚠ %s skipped\n", s.Sink)
		default:
			fmt.Fprintf(&b, "  ❌ %s %s\n", s.Sink, s.Error)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
