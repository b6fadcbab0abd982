package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crewdeck/crewdeck/internal/config"
	"github.com/crewdeck/crewdeck/internal/scene"
	"github.com/crewdeck/crewdeck/internal/team"
)

var teamCmd = &cobra.Command{
	Use:   "team",
	Short: "Inspect scenes and manage saved teams",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var teamParseCmd = &cobra.Command{
	Use:   "parse <scene.excalidraw>",
	Short: "Preview the roster a scene would produce",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		roster, err := buildRoster(args[0], nil, cfg)
		if err != nil {
			return err
		}
		printRoster(roster)
		if !hasLeader(roster) {
			fmt.Println(styleBoldYellow + "Warning:" + colorReset + " no leader shape found; color one agent " + scene.LeaderColor + " to mark the lead.")
		}
		return nil
	},
}

var teamSaveCmd = &cobra.Command{
	Use:   "save <name> <scene.excalidraw>",
	Short: "Save a scene's roster as a named team",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, scenePath := args[0], args[1]

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		// Re-saving an existing team keeps its per-agent settings.
		prev := cfg.FindTeam(name)
		roster, err := buildRoster(scenePath, prev, cfg)
		if err != nil {
			return err
		}

		cfg.RemoveTeam(name)
		if err := cfg.AddTeam(config.SavedTeam{
			Name:      name,
			ScenePath: scenePath,
			Agents:    agentsToPresets(roster),
		}); err != nil {
			return err
		}
		if err := config.Save(cfg); err != nil {
			return err
		}

		fmt.Printf("%sSaved team %q%s with %d agents.\n", styleBoldGreen, name, colorReset, len(roster))
		return nil
	},
}

var teamListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved teams",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		printHeader("Saved Teams")
		rows := make([][]string, 0, len(cfg.Teams))
		for _, t := range cfg.Teams {
			lead := ""
			for _, a := range t.Agents {
				if a.Role == string(team.RoleLeader) {
					lead = a.Name
					break
				}
			}
			rows = append(rows, []string{t.Name, fmt.Sprintf("%d", len(t.Agents)), lead, t.ScenePath})
		}
		printTable([]string{"NAME", "AGENTS", "LEAD", "SCENE"}, rows)
		return nil
	},
}

var teamRemoveCmd = &cobra.Command{
	Use:     "remove <name>",
	Aliases: []string{"rm"},
	Short:   "Delete a saved team",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cfg.FindTeam(args[0]) == nil {
			return fmt.Errorf("no saved team named %q", args[0])
		}
		cfg.RemoveTeam(args[0])
		if err := config.Save(cfg); err != nil {
			return err
		}
		fmt.Printf("Removed team %q.\n", args[0])
		return nil
	},
}

func printRoster(roster []team.Agent) {
	printHeader("Roster")
	rows := make([][]string, 0, len(roster))
	for _, a := range roster {
		role := string(a.Role)
		if a.Role == team.RoleLeader {
			role = styleBoldYellow + role + colorReset
		}
		rows = append(rows, []string{
			a.Name,
			role,
			a.Provider,
			a.Model,
			fmt.Sprintf("%d", len(a.Connections)),
		})
	}
	printTable([]string{"NAME", "ROLE", "PROVIDER", "MODEL", "LINKS"}, rows)
}

func init() {
	teamCmd.AddCommand(teamParseCmd)
	teamCmd.AddCommand(teamSaveCmd)
	teamCmd.AddCommand(teamListCmd)
	teamCmd.AddCommand(teamRemoveCmd)
	rootCmd.AddCommand(teamCmd)
}
