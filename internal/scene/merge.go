package scene

import "github.com/crewdeck/crewdeck/internal/team"

// Defaults applied to agents that have no previous configuration.
const (
	DefaultProvider = team.ProviderAnthropic
	DefaultModel    = "claude-sonnet-4-20250514"
)

// MergeRoster joins a freshly parsed scene against the previous roster by
// stable shape id. Membership, names, roles, geometry, and connections come
// from the scene; user-edited provider, model, and system prompt survive the
// re-parse. Shapes removed from the scene drop out of the roster.
func MergeRoster(parsed ParsedTeam, previous []team.Agent) []team.Agent {
	prevByID := make(map[string]team.Agent, len(previous))
	for _, a := range previous {
		prevByID[a.ID] = a
	}

	out := make([]team.Agent, 0, len(parsed.Agents))
	for _, pa := range parsed.Agents {
		agent := team.Agent{
			ID:          pa.ID,
			Name:        pa.Name,
			Role:        pa.Role,
			Provider:    DefaultProvider,
			Model:       DefaultModel,
			Connections: parsed.Neighbors(pa.ID),
			X:           pa.X,
			Y:           pa.Y,
			Width:       pa.Width,
			Height:      pa.Height,
		}
		if prev, ok := prevByID[pa.ID]; ok {
			if prev.Provider != "" {
				agent.Provider = prev.Provider
			}
			if prev.Model != "" {
				agent.Model = prev.Model
			}
			agent.SystemPrompt = prev.SystemPrompt
		}
		out = append(out, agent)
	}
	return out
}
