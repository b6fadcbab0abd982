package scene

import (
	"testing"

	"github.com/crewdeck/crewdeck/internal/team"
)

func TestMergeRosterPreservesUserEdits(t *testing.T) {
	parsed := Parse([]Element{
		rect("r1", LeaderColor),
		label("r1", "Planner"),
		rect("r2", ""),
		label("r2", "Coder"),
		arrow("a1", "r1", "r2"),
	})

	previous := []team.Agent{
		{ID: "r2", Name: "Old Name", Provider: team.ProviderOpenAI, Model: "gpt-4o", SystemPrompt: "You write Go."},
	}

	merged := MergeRoster(parsed, previous)
	if len(merged) != 2 {
		t.Fatalf("merged roster size = %d, want 2", len(merged))
	}

	byID := map[string]team.Agent{}
	for _, a := range merged {
		byID[a.ID] = a
	}

	coder := byID["r2"]
	if coder.Name != "Coder" {
		t.Fatalf("name must come from scene, got %q", coder.Name)
	}
	if coder.Provider != team.ProviderOpenAI || coder.Model != "gpt-4o" || coder.SystemPrompt != "You write Go." {
		t.Fatalf("user edits lost in merge: %+v", coder)
	}
	if len(coder.Connections) != 1 || coder.Connections[0] != "r1" {
		t.Fatalf("connections = %v, want [r1]", coder.Connections)
	}

	planner := byID["r1"]
	if planner.Provider != DefaultProvider || planner.Model != DefaultModel {
		t.Fatalf("new agent should get defaults: %+v", planner)
	}
	if planner.Role != team.RoleLeader {
		t.Fatalf("role = %q, want leader", planner.Role)
	}
}

func TestMergeRosterDropsRemovedShapes(t *testing.T) {
	parsed := Parse([]Element{rect("r1", "")})
	previous := []team.Agent{{ID: "r1"}, {ID: "gone", SystemPrompt: "unused"}}

	merged := MergeRoster(parsed, previous)
	if len(merged) != 1 || merged[0].ID != "r1" {
		t.Fatalf("roster membership must be rebuilt from the scene, got %+v", merged)
	}
}
