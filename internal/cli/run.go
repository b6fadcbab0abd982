package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/crewdeck/crewdeck/internal/api"
	"github.com/crewdeck/crewdeck/internal/config"
	"github.com/crewdeck/crewdeck/internal/debug"
	"github.com/crewdeck/crewdeck/internal/pushover"
	"github.com/crewdeck/crewdeck/internal/scene"
	"github.com/crewdeck/crewdeck/internal/stream"
	"github.com/crewdeck/crewdeck/internal/team"
	"github.com/crewdeck/crewdeck/internal/tui"
)

var runCmd = &cobra.Command{
	Use:   "run [scene.excalidraw]",
	Short: "Start a session from a scene and open the deck view",
	Long: `Parse an Excalidraw scene into an agent roster, start a session on the
backend, and follow it live.

The scene file can be omitted when --team names a saved team that
remembers its scene path. Provider API keys come from the config file
or the usual environment variables (ANTHROPIC_API_KEY, OPENAI_API_KEY,
GEMINI_API_KEY).`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		teamName, _ := cmd.Flags().GetString("team")
		saveAs, _ := cmd.Flags().GetString("save")
		backend, _ := cmd.Flags().GetString("backend")
		message, _ := cmd.Flags().GetString("message")
		noTUI, _ := cmd.Flags().GetBool("no-tui")

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if backend != "" {
			cfg.BackendURL = backend
		}

		scenePath := ""
		if len(args) == 1 {
			scenePath = args[0]
		}

		var saved *config.SavedTeam
		if teamName != "" {
			saved = cfg.FindTeam(teamName)
			if saved == nil {
				return fmt.Errorf("no saved team named %q (see 'crewdeck team list')", teamName)
			}
			if scenePath == "" {
				scenePath = saved.ScenePath
			}
		}
		if scenePath == "" {
			return fmt.Errorf("a scene file is required (or --team with a remembered scene path)")
		}

		roster, err := buildRoster(scenePath, saved, cfg)
		if err != nil {
			return err
		}
		if !hasLeader(roster) {
			fmt.Println(styleBoldYellow + "Warning:" + colorReset + " no leader shape found; color one agent " + scene.LeaderColor + " to mark the lead.")
		}

		displayName := teamName
		if displayName == "" && saveAs != "" {
			displayName = saveAs
		}

		if saveAs != "" {
			cfg.RemoveTeam(saveAs)
			if err := cfg.AddTeam(config.SavedTeam{
				Name:      saveAs,
				ScenePath: scenePath,
				Agents:    agentsToPresets(roster),
			}); err != nil {
				return err
			}
		}

		client := newClient(cfg)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		resp, err := client.CreateSession(ctx, api.CreateSessionRequest{
			Agents:  api.RosterFromAgents(roster),
			APIKeys: cfg.ResolvedAPIKeys(rosterProviders(roster)),
		})
		cancel()
		if err != nil {
			return err
		}
		debug.LogKV("cli", "session created", "session_id", resp.SessionID, "agents", len(resp.Agents))

		cfg.RecordRecentSession(resp.SessionID, displayName)
		if err := config.Save(cfg); err != nil {
			debug.Logf("cli", "saving config: %v", err)
		}

		if message != "" {
			mctx, mcancel := context.WithTimeout(context.Background(), 10*time.Second)
			err := client.SendMessage(mctx, resp.SessionID, message)
			mcancel()
			if err != nil {
				return fmt.Errorf("sending initial message: %w", err)
			}
		}

		if err := followSession(client, roster, displayName, resp.SessionID, noTUI); err != nil {
			return err
		}
		notifySessionEnd(cfg, displayName, resp.SessionID)
		return nil
	},
}

// notifySessionEnd pushes a notification when credentials are configured.
func notifySessionEnd(cfg *config.Config, teamName, sessionID string) {
	if !pushover.Configured(cfg.Pushover) {
		return
	}
	title := "Crewdeck session ended"
	if teamName != "" {
		title = fmt.Sprintf("Crewdeck: %s finished", teamName)
	}
	if err := pushover.Send(cfg.Pushover, pushover.Message{
		Title:    title,
		Body:     fmt.Sprintf("Session %s reached a terminal state.", sessionID),
		Priority: pushover.PriorityNormal,
	}); err != nil {
		debug.Logf("cli", "pushover notification failed: %v", err)
	}
}

func init() {
	runCmd.Flags().String("team", "", "Use a saved team's roster settings")
	runCmd.Flags().String("save", "", "Save the parsed roster as a named team")
	runCmd.Flags().String("backend", "", "Backend URL (overrides config)")
	runCmd.Flags().String("message", "", "Send an initial message to the team")
	runCmd.Flags().Bool("no-tui", false, "Print the conversation instead of opening the deck view")
	rootCmd.AddCommand(runCmd)
}

// buildRoster parses the scene and merges any saved team settings into it.
func buildRoster(scenePath string, saved *config.SavedTeam, cfg *config.Config) ([]team.Agent, error) {
	parsed, err := loadScene(scenePath)
	if err != nil {
		return nil, err
	}
	if len(parsed.Agents) == 0 {
		return nil, fmt.Errorf("scene %s contains no agent shapes", scenePath)
	}

	var previous []team.Agent
	if saved != nil {
		previous = presetsToAgents(parsed, saved.Agents)
	}
	roster := scene.MergeRoster(parsed, previous)

	// Config-level defaults fill any remaining gaps.
	for i := range roster {
		if roster[i].Provider == "" {
			roster[i].Provider = cfg.DefaultProvider
		}
		if roster[i].Model == "" {
			roster[i].Model = cfg.DefaultModel
		}
	}
	return roster, nil
}

func hasLeader(agents []team.Agent) bool {
	for _, a := range agents {
		if a.Role == team.RoleLeader {
			return true
		}
	}
	return false
}

// followSession connects the event stream and either opens the deck view or,
// for non-interactive runs, prints the conversation to stdout.
func followSession(client *api.Client, roster []team.Agent, teamName, sessionID string, noTUI bool) error {
	store := team.NewStore()
	store.SetAgents(roster)
	store.SetTeamName(teamName)
	store.SetSessionID(sessionID)
	store.SetMode(team.ModeRunning)

	ctrl := stream.New(store, client)
	ctrl.Connect(sessionID)
	defer ctrl.Close()

	if !noTUI && isatty.IsTerminal(os.Stdout.Fd()) {
		return tui.Run(tui.Config{
			Store:      store,
			Controller: ctrl,
			Client:     client,
			TeamName:   teamName,
			SessionID:  sessionID,
		})
	}
	return followPlain(client, store, sessionID)
}

// followPlain streams the conversation as plain lines until the session
// reaches a terminal state. Ctrl+C stops the session on the backend.
func followPlain(client *api.Client, store *team.Store, sessionID string) error {
	fmt.Printf("%sFollowing session %s%s (Ctrl+C stops it)\n", colorDim, sessionID, colorReset)

	changes := store.Subscribe()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	printed := 0
	for {
		msgs := store.Messages()
		for ; printed < len(msgs); printed++ {
			fmt.Println(formatPlainMessage(msgs[printed]))
		}
		if store.Mode() == team.ModeStopped {
			fmt.Println(colorDim + "Session ended." + colorReset)
			return nil
		}

		select {
		case <-changes:
		case <-sigCh:
			fmt.Println(colorDim + "Stopping session..." + colorReset)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err := client.StopSession(ctx, sessionID)
			cancel()
			if err != nil {
				return err
			}
		}
	}
}

func formatPlainMessage(m team.Message) string {
	stamp := m.Timestamp.Format("15:04:05")
	switch m.Role {
	case team.MessageRoleUser:
		return fmt.Sprintf("%s %syou%s %s", stamp, styleBoldGreen, colorReset, m.Content)
	case team.MessageRoleSystem:
		return fmt.Sprintf("%s %s%s%s", stamp, colorDim, m.Content, colorReset)
	default:
		name := m.AgentName
		if name == "" {
			name = "agent"
		}
		return fmt.Sprintf("%s %s%s%s %s", stamp, styleBoldCyan, name, colorReset, strings.TrimRight(m.Content, "\n"))
	}
}
