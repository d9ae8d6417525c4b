package tui

import "github.com/charmbracelet/lipgloss"

const (
	purple = lipgloss.Color("#7D56F4")
	green  = lipgloss.Color("#04B575")
	amber  = lipgloss.Color("#E5A50A")
	red    = lipgloss.Color("#FF0000")
	grey   = lipgloss.Color("#626262")
	white  = lipgloss.Color("#FAFAFA")
	violet = lipgloss.Color("#874BFD")
)

// TitleStyle renders the dashboard heading
var TitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(purple).
	Margin(1, 0)

var StatusStyle = lipgloss.NewStyle().Foreground(green)

var WarnStyle = lipgloss.NewStyle().Foreground(amber)

var ErrorStyle = lipgloss.NewStyle().Foreground(red)

var InfoStyle = lipgloss.NewStyle().Foreground(grey)

// BoxStyle frames the last run report
var BoxStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(violet).
	Padding(0, 1)

// HighlightStyle marks idle and complete states
var HighlightStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(white).
	Background(purple).
	Padding(0, 1)
