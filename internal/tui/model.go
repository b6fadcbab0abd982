// Package tui renders the deck view: live conversation, roster with agent
// activity, and the shared task list for one running session.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/crewdeck/crewdeck/internal/api"
	"github.com/crewdeck/crewdeck/internal/stream"
	"github.com/crewdeck/crewdeck/internal/team"
	"github.com/crewdeck/crewdeck/internal/theme"
)

type paneFocus int

const (
	focusInput paneFocus = iota
	focusChat
)

type (
	storeChangedMsg struct{}
	tickMsg         struct{}
	sendResultMsg   struct{ err error }
	stopResultMsg   struct{ err error }
)

// Config holds everything needed to launch the deck view.
type Config struct {
	Store      *team.Store
	Controller *stream.Controller
	Client     *api.Client
	TeamName   string
	SessionID  string
}

// Model is the bubbletea model for the deck view.
type Model struct {
	store  *team.Store
	ctrl   *stream.Controller
	client *api.Client

	width  int
	height int

	teamName  string
	sessionID string
	startTime time.Time

	// Store snapshot, refreshed on change notifications.
	agents   []team.Agent
	messages []team.Message
	tasks    []team.Task
	states   map[string]team.AgentState
	mode     team.Mode

	changes <-chan struct{}

	input textinput.Model
	spin  spinner.Model
	keys  DeckKeyMap

	focus      paneFocus
	scrollPos  int
	autoScroll bool

	stopping bool
	done     bool
	sendErr  error
}

// NewModel creates the deck model and takes its store subscription.
func NewModel(cfg Config) Model {
	input := textinput.New()
	input.Prompt = "> "
	input.Placeholder = "message the team"
	input.PromptStyle = lipgloss.NewStyle().Foreground(theme.ColorMauve)
	input.TextStyle = lipgloss.NewStyle().Foreground(theme.ColorText)
	input.PlaceholderStyle = lipgloss.NewStyle().Foreground(theme.ColorOverlay0)
	input.Cursor.Style = lipgloss.NewStyle().Foreground(theme.ColorMauve)
	input.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = lipgloss.NewStyle().Foreground(theme.ColorMauve)

	m := Model{
		store:      cfg.Store,
		ctrl:       cfg.Controller,
		client:     cfg.Client,
		teamName:   cfg.TeamName,
		sessionID:  cfg.SessionID,
		startTime:  time.Now(),
		changes:    cfg.Store.Subscribe(),
		input:      input,
		spin:       spin,
		keys:       DefaultKeyMap(),
		autoScroll: true,
	}
	m.refresh()
	return m
}

// refresh reloads the store snapshot the view renders from.
func (m *Model) refresh() {
	m.agents = m.store.Agents()
	m.messages = m.store.Messages()
	m.tasks = m.store.Tasks()
	m.states = m.store.AgentStates()
	m.mode = m.store.Mode()
	if m.mode == team.ModeStopped {
		m.done = true
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		waitForChange(m.changes),
		m.spin.Tick,
		tickEvery(),
		textinput.Blink,
		tea.SetWindowTitle("crewdeck"),
	)
}

// waitForChange returns a Cmd that waits for the next store notification.
func waitForChange(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return storeChangedMsg{}
	}
}

// tickEvery returns a Cmd that sends a tickMsg after 1 second.
func tickEvery() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case storeChangedMsg:
		wasAtBottom := m.autoScroll
		m.refresh()
		if wasAtBottom {
			m.scrollPos = m.maxScroll()
		}
		return m, waitForChange(m.changes)

	case tickMsg:
		return m, tickEvery()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case sendResultMsg:
		m.sendErr = msg.err
		return m, nil

	case stopResultMsg:
		// The terminal event arrives over the stream; nothing to flip here.
		m.sendErr = msg.err
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Stop):
		if m.done {
			return m, tea.Quit
		}
		if m.stopping {
			// Second Ctrl+C: force quit.
			return m, tea.Quit
		}
		m.stopping = true
		return m, m.stopSession()

	case key.Matches(msg, m.keys.Tab):
		if m.focus == focusInput {
			m.focus = focusChat
			m.input.Blur()
		} else {
			m.focus = focusInput
			return m, m.input.Focus()
		}
		return m, nil
	}

	if m.focus == focusInput && !m.done {
		if key.Matches(msg, m.keys.Enter) {
			text := m.input.Value()
			if text == "" {
				return m, nil
			}
			m.input.Reset()
			return m, m.sendMessage(text)
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.done {
			return m, tea.Quit
		}
	case key.Matches(msg, m.keys.Up):
		m.scrollUp(1)
	case key.Matches(msg, m.keys.Down):
		m.scrollDown(1)
	case key.Matches(msg, m.keys.PgUp):
		m.scrollUp(m.chatViewportHeight() / 2)
	case key.Matches(msg, m.keys.PgDown):
		m.scrollDown(m.chatViewportHeight() / 2)
	case key.Matches(msg, m.keys.Bottom):
		m.scrollPos = m.maxScroll()
		m.autoScroll = true
	}
	return m, nil
}

// sendMessage posts a chat message off the UI goroutine. The echo comes
// back through the stream, not from the local input.
func (m Model) sendMessage(text string) tea.Cmd {
	client, sessionID := m.client, m.sessionID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return sendResultMsg{err: client.SendMessage(ctx, sessionID, text)}
	}
}

func (m Model) stopSession() tea.Cmd {
	client, sessionID := m.client, m.sessionID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return stopResultMsg{err: client.StopSession(ctx, sessionID)}
	}
}

// Done reports whether the session reached its terminal state.
func (m Model) Done() bool {
	return m.done
}

func (m *Model) scrollUp(n int) {
	m.scrollPos -= n
	if m.scrollPos < 0 {
		m.scrollPos = 0
	}
	m.autoScroll = false
}

func (m *Model) scrollDown(n int) {
	m.scrollPos += n
	max := m.maxScroll()
	if m.scrollPos >= max {
		m.scrollPos = max
		m.autoScroll = true
	}
}

func (m Model) maxScroll() int {
	max := len(m.chatLines()) - m.chatViewportHeight()
	if max < 0 {
		return 0
	}
	return max
}
