// Package config persists user-level preferences in ~/.crewdeck/config.json:
// backend address, credentials, provider defaults, and saved teams.
package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	// DefaultBackendURL matches the playground server's default listen address.
	DefaultBackendURL = "http://localhost:8000"

	DefaultProvider = "anthropic"
	DefaultModel    = "claude-sonnet-4-20250514"
)

// AgentPreset is one stored roster entry of a saved team.
type AgentPreset struct {
	Name         string   `json:"name"`
	Role         string   `json:"role,omitempty"`
	Provider     string   `json:"provider,omitempty"`
	Model        string   `json:"model,omitempty"`
	SystemPrompt string   `json:"system_prompt,omitempty"`
	Connections  []string `json:"connections,omitempty"`
}

// SavedTeam is a named, reusable roster. ScenePath records the diagram file
// the roster was parsed from, when there was one.
type SavedTeam struct {
	Name      string        `json:"name"`
	ScenePath string        `json:"scene_path,omitempty"`
	Agents    []AgentPreset `json:"agents,omitempty"`
}

// RecentSession tracks a recently started session for quick re-attach.
type RecentSession struct {
	SessionID string    `json:"session_id"`
	TeamName  string    `json:"team,omitempty"`
	StartedAt time.Time `json:"started_at"`
}

// PushoverConfig holds credentials for push notifications on session end.
type PushoverConfig struct {
	UserKey  string `json:"user_key,omitempty"`
	AppToken string `json:"app_token,omitempty"`
}

// Config holds user-level preferences stored in ~/.crewdeck/config.json.
type Config struct {
	BackendURL      string            `json:"backend_url,omitempty"`
	AuthToken       string            `json:"auth_token,omitempty"`
	APIKeys         map[string]string `json:"api_keys,omitempty"` // provider -> key
	DefaultProvider string            `json:"default_provider,omitempty"`
	DefaultModel    string            `json:"default_model,omitempty"`
	Teams           []SavedTeam       `json:"teams,omitempty"`
	RecentSessions  []RecentSession   `json:"recent_sessions,omitempty"`
	Pushover        *PushoverConfig   `json:"pushover,omitempty"`
}

// Dir returns the crewdeck config directory (~/.crewdeck), creating it if needed.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	dir := filepath.Join(home, ".crewdeck")
	os.MkdirAll(dir, 0755)
	return dir
}

// configPath returns the full path to ~/.crewdeck/config.json.
func configPath() string {
	return filepath.Join(Dir(), "config.json")
}

// Load reads ~/.crewdeck/config.json, returning a defaulted config if the
// file is absent.
func Load() (*Config, error) {
	data, err := os.ReadFile(configPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := &Config{APIKeys: make(map[string]string)}
			cfg.applyDefaults()
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if cfg.APIKeys == nil {
		cfg.APIKeys = make(map[string]string)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Save writes the config to ~/.crewdeck/config.json.
func Save(cfg *Config) error {
	if cfg == nil {
		cfg = &Config{}
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(configPath(), data, 0644)
}

func (c *Config) applyDefaults() {
	if c.BackendURL == "" {
		c.BackendURL = DefaultBackendURL
	}
	if c.DefaultProvider == "" {
		c.DefaultProvider = DefaultProvider
	}
	if c.DefaultModel == "" {
		c.DefaultModel = DefaultModel
	}
}

// ResolvedBackendURL prefers the CREWDECK_BACKEND_URL environment variable
// over the stored address.
func (c *Config) ResolvedBackendURL() string {
	if v := os.Getenv("CREWDECK_BACKEND_URL"); v != "" {
		return v
	}
	return c.BackendURL
}

// providerKeyEnv maps a provider to its conventional environment variable.
var providerKeyEnv = map[string]string{
	"anthropic": "ANTHROPIC_API_KEY",
	"openai":    "OPENAI_API_KEY",
	"kimi":      "KIMI_API_KEY",
}

// APIKey resolves a provider credential: the stored key wins, then the
// provider's conventional environment variable.
func (c *Config) APIKey(provider string) string {
	if k := c.APIKeys[provider]; k != "" {
		return k
	}
	if env := providerKeyEnv[provider]; env != "" {
		return os.Getenv(env)
	}
	return ""
}

// ResolvedAPIKeys returns the credentials for every provider in use,
// omitting providers with no resolvable key.
func (c *Config) ResolvedAPIKeys(providers []string) map[string]string {
	out := make(map[string]string)
	for _, p := range providers {
		if k := c.APIKey(p); k != "" {
			out[p] = k
		}
	}
	return out
}

// AddTeam appends a saved team. Returns an error if the name already exists.
func (c *Config) AddTeam(t SavedTeam) error {
	for _, existing := range c.Teams {
		if strings.EqualFold(existing.Name, t.Name) {
			return errors.New("team already exists: " + t.Name)
		}
	}
	c.Teams = append(c.Teams, t)
	return nil
}

// RemoveTeam removes a saved team by name (case-insensitive).
func (c *Config) RemoveTeam(name string) {
	out := c.Teams[:0]
	for _, t := range c.Teams {
		if !strings.EqualFold(t.Name, name) {
			out = append(out, t)
		}
	}
	c.Teams = out
}

// FindTeam returns a pointer to a saved team by name, or nil if not found.
func (c *Config) FindTeam(name string) *SavedTeam {
	for i := range c.Teams {
		if strings.EqualFold(c.Teams[i].Name, name) {
			return &c.Teams[i]
		}
	}
	return nil
}

const maxRecentSessions = 20

// RecordRecentSession adds or bumps a session to the top of the recent list.
func (c *Config) RecordRecentSession(sessionID, teamName string) {
	now := time.Now().UTC()

	out := make([]RecentSession, 0, len(c.RecentSessions))
	for _, rs := range c.RecentSessions {
		if rs.SessionID != sessionID {
			out = append(out, rs)
		}
	}
	out = append([]RecentSession{{SessionID: sessionID, TeamName: teamName, StartedAt: now}}, out...)
	if len(out) > maxRecentSessions {
		out = out[:maxRecentSessions]
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })

	c.RecentSessions = out
}
