package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/crewdeck/crewdeck/internal/config"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored conversations on the backend",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		client := newClient(cfg)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		summaries, err := client.History(ctx)
		if err != nil {
			return err
		}

		printHeader("Sessions")
		rows := make([][]string, 0, len(summaries))
		for _, s := range summaries {
			agents := ""
			if s.Config != nil {
				names := make([]string, 0, len(s.Config.Agents))
				for _, a := range s.Config.Agents {
					names = append(names, a.Name)
				}
				agents = truncate(strings.Join(names, ", "), 40)
			}
			created := s.CreatedAt
			if t, err := time.Parse(time.RFC3339, created); err == nil {
				created = t.Local().Format("2006-01-02 15:04")
			}
			rows = append(rows, []string{s.ID, statusBadge(s.Status), created, agents})
		}
		printTable([]string{"SESSION", "STATUS", "CREATED", "AGENTS"}, rows)
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Print a stored conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		client := newClient(cfg)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		hist, err := client.SessionHistory(ctx, args[0])
		if err != nil {
			return err
		}

		printHeader("Session " + hist.SessionID)
		printFieldColored("Status", hist.Status, statusColor(hist.Status))
		fmt.Println()
		for _, m := range hist.Messages {
			fmt.Println(formatPlainMessage(m.ToMessage(hist.SessionID)))
		}
		return nil
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:     "delete <session-id>",
	Aliases: []string{"rm"},
	Short:   "Delete a stored conversation",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		client := newClient(cfg)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := client.DeleteHistory(ctx, args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted session %s.\n", args[0])
		return nil
	},
}

func init() {
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyDeleteCmd)
	rootCmd.AddCommand(historyCmd)
}
