package theme

import "github.com/charmbracelet/lipgloss"

// Color palette - dark theme inspired by Catppuccin Mocha
var (
	ColorBase     = lipgloss.Color("#1e1e2e")
	ColorSurface0 = lipgloss.Color("#313244")
	ColorSurface1 = lipgloss.Color("#45475a")
	ColorSurface2 = lipgloss.Color("#585b70")
	ColorOverlay0 = lipgloss.Color("#6c7086")
	ColorText     = lipgloss.Color("#cdd6f4")
	ColorSubtext0 = lipgloss.Color("#a6adc8")
	ColorSubtext1 = lipgloss.Color("#bac2de")

	ColorRed      = lipgloss.Color("#f38ba8")
	ColorGreen    = lipgloss.Color("#a6e3a1")
	ColorYellow   = lipgloss.Color("#f9e2af")
	ColorBlue     = lipgloss.Color("#89b4fa")
	ColorMauve    = lipgloss.Color("#cba6f7")
	ColorTeal     = lipgloss.Color("#94e2d5")
	ColorPeach    = lipgloss.Color("#fab387")
	ColorFlamingo = lipgloss.Color("#f2cdcd")
	ColorLavender = lipgloss.Color("#b4befe")
)

// Agent activity indicator styles
var (
	ActivityIdleStyle    = lipgloss.NewStyle().Foreground(ColorOverlay0).SetString("● ")
	ActivityWorkingStyle = lipgloss.NewStyle().Foreground(ColorYellow).Bold(true).SetString("● ")
	ActivityBlockedStyle = lipgloss.NewStyle().Foreground(ColorRed).Bold(true).SetString("● ")
)

// ActivityIndicator returns a styled dot for an agent activity state.
func ActivityIndicator(state string) string {
	switch state {
	case "working":
		return ActivityWorkingStyle.String()
	case "blocked":
		return ActivityBlockedStyle.String()
	default:
		return ActivityIdleStyle.String()
	}
}

// Task status indicator styles
var (
	TaskPendingStyle    = lipgloss.NewStyle().Foreground(ColorOverlay0).SetString("  ")
	TaskInProgressStyle = lipgloss.NewStyle().Foreground(ColorYellow).Bold(true).SetString("  ")
	TaskCompletedStyle  = lipgloss.NewStyle().Foreground(ColorGreen).Bold(true).SetString("  ")
	TaskFailedStyle     = lipgloss.NewStyle().Foreground(ColorRed).Bold(true).SetString("  ")
)

// TaskStatusIndicator returns a styled status indicator for a task status.
func TaskStatusIndicator(status string) string {
	switch status {
	case "completed":
		return TaskCompletedStyle.String()
	case "in_progress":
		return TaskInProgressStyle.String()
	case "failed":
		return TaskFailedStyle.String()
	default:
		return TaskPendingStyle.String()
	}
}
