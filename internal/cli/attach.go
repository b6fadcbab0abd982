package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/crewdeck/crewdeck/internal/api"
	"github.com/crewdeck/crewdeck/internal/config"
	"github.com/crewdeck/crewdeck/internal/team"
)

var attachCmd = &cobra.Command{
	Use:   "attach <session-id>",
	Short: "Reattach the deck view to a running session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID := args[0]
		noTUI, _ := cmd.Flags().GetBool("no-tui")

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		client := newClient(cfg)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if !client.CheckSession(ctx, sessionID) {
			return fmt.Errorf("session %s is not running (see 'crewdeck history')", sessionID)
		}

		roster := rosterFromBackend(ctx, client, sessionID)
		teamName := ""
		for _, rs := range cfg.RecentSessions {
			if rs.SessionID == sessionID {
				teamName = rs.TeamName
				break
			}
		}
		return followSession(client, roster, teamName, sessionID, noTUI)
	},
}

func init() {
	attachCmd.Flags().Bool("no-tui", false, "Print the conversation instead of opening the deck view")
	rootCmd.AddCommand(attachCmd)
}

// rosterFromBackend rebuilds the roster from the backend's stored session
// config. Best effort: on failure the roster starts empty and the stream
// fills in activity as it arrives.
func rosterFromBackend(ctx context.Context, client *api.Client, sessionID string) []team.Agent {
	summaries, err := client.History(ctx)
	if err != nil {
		return nil
	}
	for _, s := range summaries {
		if s.ID != sessionID || s.Config == nil {
			continue
		}
		roster := make([]team.Agent, 0, len(s.Config.Agents))
		for i, ra := range s.Config.Agents {
			roster = append(roster, team.Agent{
				ID:          fmt.Sprintf("agent-%d", i),
				Name:        ra.Name,
				Role:        team.Role(ra.Role),
				Provider:    ra.Provider,
				Model:       ra.Model,
				Connections: ra.Connections,
			})
		}
		return roster
	}
	return nil
}
