package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/crewdeck/crewdeck/internal/theme"
)

const rosterPanelWidth = 36

// Panel border styles.
var (
	rosterPanelStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(theme.ColorSurface2).
				Padding(0, 1)

	chatPanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.ColorSurface2).
			Padding(0, 1)
)

// Header and status bar.
var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.ColorBase).
			Background(theme.ColorBlue).
			Padding(0, 2)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(theme.ColorSubtext0).
			Background(theme.ColorSurface0).
			Padding(0, 1)

	statusKeyStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.ColorLavender).
			Background(theme.ColorSurface0)
)

// Roster panel styles.
var (
	sectionTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(theme.ColorLavender)

	leaderNameStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.ColorYellow)

	agentNameStyle = lipgloss.NewStyle().
			Foreground(theme.ColorText)

	dimStyle = lipgloss.NewStyle().
			Foreground(theme.ColorOverlay0)
)

// Conversation styles.
var (
	userLabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.ColorGreen)

	agentLabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.ColorBlue)

	systemTextStyle = lipgloss.NewStyle().
			Italic(true).
			Foreground(theme.ColorOverlay0)

	messageTextStyle = lipgloss.NewStyle().
				Foreground(theme.ColorText)

	errorTextStyle = lipgloss.NewStyle().
			Foreground(theme.ColorRed)
)
