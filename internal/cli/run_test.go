package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/crewdeck/crewdeck/internal/config"
	"github.com/crewdeck/crewdeck/internal/team"
)

const testScene = `{
  "type": "excalidraw",
  "elements": [
    {"id": "s1", "type": "rectangle", "backgroundColor": "#ffd43b", "x": 0, "y": 0, "width": 100, "height": 60},
    {"id": "t1", "type": "text", "containerId": "s1", "text": "Planner"},
    {"id": "s2", "type": "ellipse", "x": 200, "y": 0, "width": 100, "height": 60},
    {"id": "t2", "type": "text", "containerId": "s2", "text": "Coder"},
    {"id": "a1", "type": "arrow", "startBinding": {"elementId": "s1"}, "endBinding": {"elementId": "s2"}}
  ]
}`

func writeTestScene(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "team.excalidraw")
	if err := os.WriteFile(path, []byte(testScene), 0o644); err != nil {
		t.Fatalf("write scene: %v", err)
	}
	return path
}

func TestBuildRosterAppliesConfigDefaults(t *testing.T) {
	cfg := &config.Config{DefaultProvider: "anthropic", DefaultModel: "claude-sonnet-4-20250514"}
	roster, err := buildRoster(writeTestScene(t), nil, cfg)
	if err != nil {
		t.Fatalf("buildRoster() error = %v", err)
	}
	if len(roster) != 2 {
		t.Fatalf("roster len = %d, want 2", len(roster))
	}
	if roster[0].Name != "Planner" || roster[0].Role != team.RoleLeader {
		t.Fatalf("leader not detected: %+v", roster[0])
	}
	for _, a := range roster {
		if a.Provider == "" || a.Model == "" {
			t.Fatalf("agent %s missing defaults: %+v", a.Name, a)
		}
	}
	if len(roster[0].Connections) != 1 || roster[0].Connections[0] != "s2" {
		t.Fatalf("leader connections = %v", roster[0].Connections)
	}
}

func TestBuildRosterKeepsSavedTeamSettings(t *testing.T) {
	cfg := &config.Config{DefaultProvider: "anthropic", DefaultModel: "default-model"}
	saved := &config.SavedTeam{
		Name: "demo",
		Agents: []config.AgentPreset{
			{Name: "Coder", Provider: "openai", Model: "gpt-4o", SystemPrompt: "write tests first"},
		},
	}

	roster, err := buildRoster(writeTestScene(t), saved, cfg)
	if err != nil {
		t.Fatalf("buildRoster() error = %v", err)
	}

	var coder *team.Agent
	for i := range roster {
		if roster[i].Name == "Coder" {
			coder = &roster[i]
		}
	}
	if coder == nil {
		t.Fatal("Coder missing from roster")
	}
	if coder.Provider != "openai" || coder.Model != "gpt-4o" || coder.SystemPrompt != "write tests first" {
		t.Fatalf("saved settings lost: %+v", coder)
	}
}

func TestBuildRosterRejectsEmptyScene(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.excalidraw")
	if err := os.WriteFile(path, []byte(`{"type":"excalidraw","elements":[]}`), 0o644); err != nil {
		t.Fatalf("write scene: %v", err)
	}
	if _, err := buildRoster(path, nil, &config.Config{}); err == nil {
		t.Fatal("empty scene should be rejected")
	}
}

func TestHasLeader(t *testing.T) {
	if hasLeader([]team.Agent{{Role: team.RoleTeammate}}) {
		t.Fatal("teammate-only roster has no leader")
	}
	if !hasLeader([]team.Agent{{Role: team.RoleTeammate}, {Role: team.RoleLeader}}) {
		t.Fatal("leader not found")
	}
}

func TestFormatPlainMessage(t *testing.T) {
	ts := time.Date(2026, 8, 31, 9, 30, 0, 0, time.UTC)

	user := formatPlainMessage(team.Message{Role: team.MessageRoleUser, Content: "hi", Timestamp: ts})
	if stripAnsi(user) != "09:30:00 you hi" {
		t.Fatalf("user line = %q", stripAnsi(user))
	}

	agent := formatPlainMessage(team.Message{Role: team.MessageRoleAgent, AgentName: "Coder", Content: "done\n", Timestamp: ts})
	if stripAnsi(agent) != "09:30:00 Coder done" {
		t.Fatalf("agent line = %q", stripAnsi(agent))
	}

	system := formatPlainMessage(team.Message{Role: team.MessageRoleSystem, Content: "Coder is now idle", Timestamp: ts})
	if stripAnsi(system) != "09:30:00 Coder is now idle" {
		t.Fatalf("system line = %q", stripAnsi(system))
	}
}

func TestGenerateToken(t *testing.T) {
	a, b := generateToken(), generateToken()
	if len(a) != 64 {
		t.Fatalf("token length = %d, want 64 hex chars", len(a))
	}
	if a == b {
		t.Fatal("tokens should not repeat")
	}
}
