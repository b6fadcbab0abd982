package config

import (
	"os"
	"path/filepath"
	"testing"
)

func useTempHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func TestLoadAbsentFileReturnsDefaults(t *testing.T) {
	useTempHome(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BackendURL != DefaultBackendURL {
		t.Errorf("BackendURL = %q, want %q", cfg.BackendURL, DefaultBackendURL)
	}
	if cfg.DefaultProvider != DefaultProvider || cfg.DefaultModel != DefaultModel {
		t.Errorf("provider/model defaults = %q/%q", cfg.DefaultProvider, cfg.DefaultModel)
	}
	if cfg.APIKeys == nil {
		t.Error("APIKeys map should be initialized")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	home := useTempHome(t)

	cfg := &Config{
		BackendURL: "http://10.0.0.5:8000",
		AuthToken:  "tok",
		APIKeys:    map[string]string{"anthropic": "sk-123"},
		Teams: []SavedTeam{
			{Name: "Research", Agents: []AgentPreset{{Name: "Planner", Role: "leader"}}},
		},
	}
	if err := Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(home, ".crewdeck", "config.json")); err != nil {
		t.Fatalf("config file missing: %v", err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.BackendURL != cfg.BackendURL || loaded.AuthToken != "tok" {
		t.Fatalf("loaded = %+v", loaded)
	}
	if loaded.APIKeys["anthropic"] != "sk-123" {
		t.Fatalf("api keys = %+v", loaded.APIKeys)
	}
	if tm := loaded.FindTeam("research"); tm == nil || len(tm.Agents) != 1 {
		t.Fatalf("FindTeam(research) = %+v", tm)
	}
}

func TestBackendURLEnvOverride(t *testing.T) {
	useTempHome(t)
	t.Setenv("CREWDECK_BACKEND_URL", "http://override:9000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.ResolvedBackendURL(); got != "http://override:9000" {
		t.Fatalf("ResolvedBackendURL = %q", got)
	}
}

func TestAPIKeyResolution(t *testing.T) {
	useTempHome(t)
	t.Setenv("OPENAI_API_KEY", "env-key")
	t.Setenv("ANTHROPIC_API_KEY", "env-anthropic")

	cfg := &Config{APIKeys: map[string]string{"anthropic": "stored-key"}}

	if got := cfg.APIKey("anthropic"); got != "stored-key" {
		t.Errorf("stored key should win, got %q", got)
	}
	if got := cfg.APIKey("openai"); got != "env-key" {
		t.Errorf("env fallback = %q", got)
	}
	if got := cfg.APIKey("unknown"); got != "" {
		t.Errorf("unknown provider = %q, want empty", got)
	}

	keys := cfg.ResolvedAPIKeys([]string{"anthropic", "openai", "unknown"})
	if len(keys) != 2 || keys["anthropic"] != "stored-key" || keys["openai"] != "env-key" {
		t.Errorf("ResolvedAPIKeys = %+v", keys)
	}
}

func TestAddTeamRejectsDuplicates(t *testing.T) {
	cfg := &Config{}
	if err := cfg.AddTeam(SavedTeam{Name: "Alpha"}); err != nil {
		t.Fatalf("AddTeam: %v", err)
	}
	if err := cfg.AddTeam(SavedTeam{Name: "alpha"}); err == nil {
		t.Fatal("duplicate name (case-insensitive) should be rejected")
	}
	cfg.RemoveTeam("ALPHA")
	if len(cfg.Teams) != 0 {
		t.Fatalf("teams = %+v after removal", cfg.Teams)
	}
}

func TestRecordRecentSessionBumpsAndCaps(t *testing.T) {
	cfg := &Config{}
	for i := 0; i < 25; i++ {
		cfg.RecordRecentSession(string(rune('a'+i)), "")
	}
	if len(cfg.RecentSessions) != maxRecentSessions {
		t.Fatalf("recent count = %d, want %d", len(cfg.RecentSessions), maxRecentSessions)
	}

	cfg.RecordRecentSession("s1", "Alpha")
	cfg.RecordRecentSession("s2", "")
	cfg.RecordRecentSession("s1", "Alpha")

	if cfg.RecentSessions[0].SessionID != "s1" {
		t.Fatalf("most recent = %q, want s1", cfg.RecentSessions[0].SessionID)
	}
	seen := 0
	for _, rs := range cfg.RecentSessions {
		if rs.SessionID == "s1" {
			seen++
		}
	}
	if seen != 1 {
		t.Fatalf("s1 appears %d times, want 1", seen)
	}
}
