package cli

import (
	"fmt"
	"strings"

	"github.com/crewdeck/crewdeck/internal/api"
	"github.com/crewdeck/crewdeck/internal/config"
	"github.com/crewdeck/crewdeck/internal/scene"
	"github.com/crewdeck/crewdeck/internal/team"
)

// newClient builds an API client for the configured backend.
func newClient(cfg *config.Config) *api.Client {
	return api.NewClient(cfg.ResolvedBackendURL(), cfg.AuthToken)
}

// loadScene parses an Excalidraw file into a roster.
func loadScene(path string) (scene.ParsedTeam, error) {
	f, err := scene.LoadFile(path)
	if err != nil {
		return scene.ParsedTeam{}, fmt.Errorf("loading scene %s: %w", path, err)
	}
	return scene.Parse(f.Elements), nil
}

// presetsToAgents converts a saved team's presets to roster agents keyed by
// name, for merging user-edited model settings back into a fresh parse.
func presetsToAgents(parsed scene.ParsedTeam, presets []config.AgentPreset) []team.Agent {
	byName := make(map[string]config.AgentPreset, len(presets))
	for _, p := range presets {
		byName[strings.ToLower(p.Name)] = p
	}

	out := make([]team.Agent, 0, len(parsed.Agents))
	for _, a := range parsed.Agents {
		p, ok := byName[strings.ToLower(a.Name)]
		if !ok {
			continue
		}
		out = append(out, team.Agent{
			ID:           a.ID,
			Name:         p.Name,
			Role:         team.Role(p.Role),
			Provider:     p.Provider,
			Model:        p.Model,
			SystemPrompt: p.SystemPrompt,
			Connections:  p.Connections,
		})
	}
	return out
}

// agentsToPresets strips roster agents down to the stored preset shape.
func agentsToPresets(agents []team.Agent) []config.AgentPreset {
	out := make([]config.AgentPreset, 0, len(agents))
	for _, a := range agents {
		out = append(out, config.AgentPreset{
			Name:         a.Name,
			Role:         string(a.Role),
			Provider:     a.Provider,
			Model:        a.Model,
			SystemPrompt: a.SystemPrompt,
			Connections:  a.Connections,
		})
	}
	return out
}

// rosterProviders returns the distinct providers used by a roster.
func rosterProviders(agents []team.Agent) []string {
	seen := make(map[string]bool, 2)
	var out []string
	for _, a := range agents {
		if a.Provider == "" || seen[a.Provider] {
			continue
		}
		seen[a.Provider] = true
		out = append(out, a.Provider)
	}
	return out
}

// printHeader prints a formatted section header.
func printHeader(title string) {
	fmt.Printf("\n%s%s%s\n", styleBoldCyan, title, colorReset)
	fmt.Println(colorDim + strings.Repeat("-", len(title)+2) + colorReset)
}

// printField prints a labeled field.
func printField(label, value string) {
	fmt.Printf("  %s%-16s%s %s\n", colorBold, label+":", colorReset, value)
}

// printFieldColored prints a labeled field with colored value.
func printFieldColored(label, value, color string) {
	fmt.Printf("  %s%-16s%s %s%s%s\n", colorBold, label+":", colorReset, color, value, colorReset)
}

// statusColor returns an ANSI color code for a given status string.
func statusColor(status string) string {
	switch strings.ToLower(status) {
	case "running", "in_progress", "in-progress":
		return colorYellow
	case "completed", "complete", "done":
		return colorGreen
	case "failed", "error":
		return colorRed
	case "stopped":
		return colorBlue
	case "pending":
		return colorDim
	default:
		return colorWhite
	}
}

// statusBadge returns a colored status badge.
func statusBadge(status string) string {
	return fmt.Sprintf("%s[%s]%s", statusColor(status), status, colorReset)
}

// printTable prints a simple table with headers and rows.
func printTable(headers []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Println(colorDim + "  (none)" + colorReset)
		return
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				// Strip ANSI codes for width calculation
				stripped := stripAnsi(cell)
				if len(stripped) > widths[i] {
					widths[i] = len(stripped)
				}
			}
		}
	}

	headerLine := "  "
	for i, h := range headers {
		headerLine += fmt.Sprintf("%s%-*s%s", colorBold, widths[i]+2, h, colorReset)
	}
	fmt.Println(headerLine)

	sepLine := "  "
	for _, w := range widths {
		sepLine += colorDim + strings.Repeat("-", w+2) + colorReset
	}
	fmt.Println(sepLine)

	for _, row := range rows {
		rowLine := "  "
		for i, cell := range row {
			if i < len(widths) {
				stripped := stripAnsi(cell)
				padding := widths[i] - len(stripped)
				if padding < 0 {
					padding = 0
				}
				rowLine += cell + strings.Repeat(" ", padding+2)
			}
		}
		fmt.Println(rowLine)
	}
}

// stripAnsi removes ANSI escape codes from a string (for width calculation).
func stripAnsi(s string) string {
	var out strings.Builder
	inEscape := false
	for _, r := range s {
		if r == '\033' {
			inEscape = true
			continue
		}
		if inEscape {
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
				inEscape = false
			}
			continue
		}
		out.WriteRune(r)
	}
	return out.String()
}

// truncate truncates a string to a given max length, adding "..." if needed.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// firstLine returns the first line of a multi-line string.
func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}
