package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/crewdeck/crewdeck/internal/api"
	"github.com/crewdeck/crewdeck/internal/team"
)

func newTestModel(t *testing.T) (Model, *team.Store) {
	t.Helper()
	store := team.NewStore()
	store.SetAgents([]team.Agent{
		{ID: "a1", Name: "Planner", Role: team.RoleLeader, Model: "claude-sonnet-4-20250514"},
		{ID: "a2", Name: "Coder", Role: team.RoleTeammate},
	})
	store.SetMode(team.ModeRunning)
	m := NewModel(Config{
		Store:     store,
		Client:    api.NewClient("http://backend.invalid", ""),
		TeamName:  "demo",
		SessionID: "sess-1",
	})
	m.width = 100
	m.height = 30
	return m, store
}

func updateModel(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return out
}

func TestRefreshPicksUpStoreChanges(t *testing.T) {
	m, store := newTestModel(t)

	store.AppendMessage(team.Message{
		ID: "m1", Role: team.MessageRoleAgent, AgentName: "Planner",
		Content: "working on it", Timestamp: time.Now(),
	})
	store.SetAgentState(team.AgentState{AgentName: "Planner", State: team.ActivityWorking})

	m = updateModel(t, m, storeChangedMsg{})
	if len(m.messages) != 1 {
		t.Fatalf("snapshot messages = %d, want 1", len(m.messages))
	}
	if m.states["Planner"].State != team.ActivityWorking {
		t.Fatal("snapshot missed agent state")
	}

	view := m.View()
	if !strings.Contains(view, "working on it") {
		t.Fatal("view missing conversation content")
	}
	if !strings.Contains(view, "Planner") || !strings.Contains(view, "Coder") {
		t.Fatal("view missing roster names")
	}
}

func TestStoppedModeEndsInput(t *testing.T) {
	m, store := newTestModel(t)

	store.SetMode(team.ModeStopped)
	m = updateModel(t, m, storeChangedMsg{})
	if !m.Done() {
		t.Fatal("stopped mode should mark the model done")
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("q should quit once done")
	}
}

func TestCtrlCStopsThenForceQuits(t *testing.T) {
	m, _ := newTestModel(t)

	next := updateModel(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	if !next.stopping {
		t.Fatal("first ctrl+c should begin stopping")
	}

	_, cmd := next.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("second ctrl+c should force quit")
	}
}

func TestEnterWithTextIssuesSendCommand(t *testing.T) {
	m, _ := newTestModel(t)

	m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("hello team")})
	if m.input.Value() != "hello team" {
		t.Fatalf("input value = %q", m.input.Value())
	}

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	if cmd == nil {
		t.Fatal("enter with text should produce a send command")
	}
	if m.input.Value() != "" {
		t.Fatal("input should clear after send")
	}

	// Empty input must not send.
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Fatal("enter with empty input should be a no-op")
	}
}

func TestFormatMessageRoles(t *testing.T) {
	user := formatMessage(team.Message{Role: team.MessageRoleUser, Content: "hi"}, 40)
	if len(user) != 1 || !strings.Contains(user[0], "you") {
		t.Fatalf("user lines = %q", user)
	}

	system := formatMessage(team.Message{Role: team.MessageRoleSystem, Content: "Planner is now idle"}, 40)
	if len(system) != 1 || !strings.Contains(system[0], "Planner is now idle") {
		t.Fatalf("system lines = %q", system)
	}

	long := formatMessage(team.Message{
		Role: team.MessageRoleAgent, AgentName: "Coder",
		Content: strings.Repeat("word ", 30),
	}, 40)
	if len(long) < 2 {
		t.Fatalf("long message should wrap, got %d lines", len(long))
	}
}

func TestScrollClamps(t *testing.T) {
	m, store := newTestModel(t)
	for i := 0; i < 50; i++ {
		store.AppendMessage(team.Message{ID: string(rune('a' + i%26)), Role: team.MessageRoleSystem, Content: "line"})
	}
	m = updateModel(t, m, storeChangedMsg{})

	m.scrollUp(1000)
	if m.scrollPos != 0 {
		t.Fatalf("scrollPos = %d after clamped scroll up", m.scrollPos)
	}
	if m.autoScroll {
		t.Fatal("manual scroll should disable follow")
	}

	m.scrollDown(1000)
	if m.scrollPos != m.maxScroll() {
		t.Fatalf("scrollPos = %d, want %d", m.scrollPos, m.maxScroll())
	}
	if !m.autoScroll {
		t.Fatal("scrolling to bottom should re-enable follow")
	}
}
