package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/crewdeck/crewdeck/internal/stream"
	"github.com/crewdeck/crewdeck/internal/team"
	"github.com/crewdeck/crewdeck/internal/theme"
)

// View implements tea.Model.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "loading..."
	}

	header := m.viewHeader()
	status := m.viewStatusBar()
	inputLine := m.viewInput()

	bodyHeight := m.height - lipgloss.Height(header) - lipgloss.Height(status) - lipgloss.Height(inputLine)
	if bodyHeight < 3 {
		bodyHeight = 3
	}

	roster := rosterPanelStyle.
		Width(rosterPanelWidth).
		Height(bodyHeight - 2).
		Render(m.viewRoster(bodyHeight - 2))

	chatWidth := m.width - rosterPanelWidth - 4
	if chatWidth < 20 {
		chatWidth = 20
	}
	chat := chatPanelStyle.
		Width(chatWidth).
		Height(bodyHeight - 2).
		Render(m.viewChat(chatWidth - 2))

	body := lipgloss.JoinHorizontal(lipgloss.Top, roster, chat)
	return lipgloss.JoinVertical(lipgloss.Left, header, body, inputLine, status)
}

func (m Model) viewHeader() string {
	title := "crewdeck"
	if m.teamName != "" {
		title += " · " + m.teamName
	}
	title += " · " + string(m.mode)
	if m.ctrl != nil && m.ctrl.State() == stream.StateConnecting && !m.done {
		title += " " + m.spin.View() + "connecting"
	}
	return headerStyle.Width(m.width).Render(ansi.Truncate(title, m.width-4, "…"))
}

func (m Model) viewInput() string {
	if m.done {
		return dimStyle.Render("  session ended · q to quit")
	}
	input := m.input
	input.Width = m.width - 6
	return input.View()
}

func (m Model) viewStatusBar() string {
	keys := []struct{ key, label string }{
		{"tab", "focus"},
		{"enter", "send"},
		{"j/k", "scroll"},
		{"ctrl+c", "stop"},
	}
	if m.done {
		keys = append(keys, struct{ key, label string }{"q", "quit"})
	}
	parts := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		parts = append(parts, statusKeyStyle.Render(k.key)+statusBarStyle.Render(" "+k.label))
	}
	left := strings.Join(parts, statusBarStyle.Render(" · "))

	right := ""
	if m.sessionID != "" {
		right = statusBarStyle.Render("session " + m.sessionID)
	}
	if m.sendErr != nil {
		right = errorTextStyle.Background(theme.ColorSurface0).Render(ansi.Truncate(m.sendErr.Error(), 48, "…"))
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return statusBarStyle.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

// viewRoster renders the agent list and the shared task list.
func (m Model) viewRoster(height int) string {
	var b strings.Builder

	b.WriteString(sectionTitleStyle.Render("Agents"))
	b.WriteString("\n")
	if len(m.agents) == 0 {
		b.WriteString(dimStyle.Render("  (no agents)"))
		b.WriteString("\n")
	}
	for _, a := range m.agents {
		state := team.ActivityIdle
		if st, ok := m.states[a.Name]; ok {
			state = st.State
		}
		name := agentNameStyle.Render(a.Name)
		if a.Role == team.RoleLeader {
			name = leaderNameStyle.Render(a.Name) + dimStyle.Render(" (lead)")
		}
		line := " " + theme.ActivityIndicator(string(state)) + name
		detail := ""
		if a.Model != "" {
			detail = dimStyle.Render(" " + a.Model)
		}
		b.WriteString(ansi.Truncate(line+detail, rosterPanelWidth-2, "…"))
		b.WriteString("\n")
	}

	if len(m.tasks) > 0 {
		b.WriteString("\n")
		b.WriteString(sectionTitleStyle.Render("Tasks"))
		b.WriteString("\n")
		for _, t := range m.tasks {
			line := " " + theme.TaskStatusIndicator(string(t.Status)) + t.Description
			if t.AssignedTo != "" {
				line += dimStyle.Render(" @" + t.AssignedTo)
			}
			b.WriteString(ansi.Truncate(line, rosterPanelWidth-2, "…"))
			b.WriteString("\n")
		}
	}

	lines := strings.Split(strings.TrimRight(b.String(), "\n"), "\n")
	if len(lines) > height {
		lines = lines[:height]
	}
	return strings.Join(lines, "\n")
}

// chatLines renders the conversation to styled, wrapped lines.
func (m Model) chatLines() []string {
	width := m.width - rosterPanelWidth - 6
	if width < 20 {
		width = 20
	}

	var lines []string
	for _, msg := range m.messages {
		lines = append(lines, formatMessage(msg, width)...)
	}
	return lines
}

// formatMessage renders one message as a labeled, wrapped block.
func formatMessage(msg team.Message, width int) []string {
	var label string
	style := messageTextStyle
	switch msg.Role {
	case team.MessageRoleUser:
		label = userLabelStyle.Render("you")
	case team.MessageRoleSystem:
		label = ""
		style = systemTextStyle
	default:
		name := msg.AgentName
		if name == "" {
			name = "agent"
		}
		label = agentLabelStyle.Render(name)
	}

	stamp := ""
	if !msg.Timestamp.IsZero() {
		stamp = dimStyle.Render(msg.Timestamp.Format("15:04:05") + " ")
	}

	body := ansi.Wrap(msg.Content, width, "")
	out := make([]string, 0, 2)
	for i, line := range strings.Split(body, "\n") {
		switch {
		case i == 0 && label != "":
			out = append(out, stamp+label+" "+style.Render(line))
		case i == 0:
			out = append(out, stamp+style.Render(line))
		default:
			out = append(out, style.Render(line))
		}
	}
	return out
}

func (m Model) chatViewportHeight() int {
	h := m.height - 6
	if h < 1 {
		return 1
	}
	return h
}

// viewChat renders the visible window of the conversation.
func (m Model) viewChat(width int) string {
	lines := m.chatLines()
	if len(lines) == 0 {
		return dimStyle.Render(fmt.Sprintf("No messages yet. The team is %s.", m.mode))
	}

	height := m.chatViewportHeight()
	start := m.scrollPos
	if start > len(lines) {
		start = len(lines)
	}
	end := start + height
	if end > len(lines) {
		end = len(lines)
	}
	visible := lines[start:end]

	out := make([]string, len(visible))
	for i, line := range visible {
		out[i] = ansi.Truncate(line, width, "…")
	}
	return strings.Join(out, "\n")
}
