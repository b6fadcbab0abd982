package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/crewdeck/crewdeck/internal/buildinfo"
	"github.com/crewdeck/crewdeck/internal/config"
	"github.com/crewdeck/crewdeck/internal/debug"
)

const (
	// ANSI color codes
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
	colorWhite  = "\033[37m"

	// Combined styles
	styleBoldCyan   = "\033[1;36m"
	styleBoldGreen  = "\033[1;32m"
	styleBoldYellow = "\033[1;33m"
	styleBoldWhite  = "\033[1;37m"
)

var rootCmd = &cobra.Command{
	Use:   "crewdeck",
	Short: "Multi-agent team playground",
	Long: colorBold + `
                             _           _
   ___ _ __ _____      ____| | ___  ___| | __
  / __| '__/ _ \ \ /\ / / _` + "`" + ` |/ _ \/ __| |/ /
 | (__| | |  __/\ V  V / (_| |  __/ (__|   <
  \___|_|  \___| \_/\_/ \__,_|\___|\___|_|\_\` + colorReset + `

  ` + styleBoldCyan + `Multi-agent team playground` + colorReset + ` v` + buildinfo.Current().Version + `

  Draw a team of AI agents on an Excalidraw canvas, run it against a
  session backend, and watch the conversation, roster activity, and
  shared task list live in your terminal.

` + colorBold + `Getting Started:` + colorReset + `
  crewdeck team parse team.excalidraw   Preview the roster in a scene
  crewdeck run team.excalidraw          Start a session and open the deck
  crewdeck attach <session-id>          Reattach to a running session
  crewdeck history                      List stored conversations
  crewdeck serve                        Run the local playground backend

` + colorBold + `More Info:` + colorReset + `
  https://github.com/crewdeck/crewdeck`,

	RunE: func(cmd *cobra.Command, args []string) error {
		// Non-interactive callers get the help text, not a status screen.
		if !isatty.IsTerminal(os.Stdout.Fd()) {
			return cmd.Help()
		}
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		return runStatusBrief(cfg)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.CompletionOptions.HiddenDefaultCmd = true
	rootCmd.PersistentFlags().Bool("debug", false, "Enable verbose debug logging to ~/.crewdeck/debug/")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		debugFlag, _ := cmd.Flags().GetBool("debug")
		if !debugFlag && !debug.ShouldEnableFromEnv() {
			return nil
		}
		logPath, err := debug.Init()
		if err != nil {
			return fmt.Errorf("initializing debug logger: %w", err)
		}
		fmt.Fprintf(os.Stderr, "%s[debug]%s logging to %s\n", colorDim, colorReset, logPath)
		bi := buildinfo.Current()
		debug.LogKV("cli", "crewdeck starting",
			"version", bi.Version,
			"commit", bi.CommitHash,
			"pid", os.Getpid(),
			"command", cmd.Name(),
			"args", args,
		)
		return nil
	}
}

// runStatusBrief prints a short overview of the configured backend, saved
// teams, and recent sessions.
func runStatusBrief(cfg *config.Config) error {
	backend := cfg.ResolvedBackendURL()

	printHeader("Crewdeck")
	printField("Backend", backend)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	client := newClient(cfg)
	if err := client.Health(ctx); err != nil {
		printFieldColored("Status", "unreachable", colorRed)
		fmt.Println(colorDim + "  Start one with: crewdeck serve --port 8000" + colorReset)
	} else {
		printFieldColored("Status", "online", colorGreen)
	}

	if len(cfg.Teams) > 0 {
		printHeader("Saved Teams")
		rows := make([][]string, 0, len(cfg.Teams))
		for _, t := range cfg.Teams {
			rows = append(rows, []string{t.Name, fmt.Sprintf("%d agents", len(t.Agents)), t.ScenePath})
		}
		printTable([]string{"NAME", "SIZE", "SCENE"}, rows)
	}

	if len(cfg.RecentSessions) > 0 {
		printHeader("Recent Sessions")
		rows := make([][]string, 0, len(cfg.RecentSessions))
		for i, s := range cfg.RecentSessions {
			if i >= 5 {
				break
			}
			rows = append(rows, []string{s.SessionID, s.TeamName, s.StartedAt.Format("2006-01-02 15:04")})
		}
		printTable([]string{"SESSION", "TEAM", "STARTED"}, rows)
		fmt.Println(colorDim + "  Reattach with: crewdeck attach <session-id>" + colorReset)
	}

	fmt.Println()
	return nil
}

// Execute runs the root command.
func Execute() {
	defer debug.Close()
	if err := rootCmd.Execute(); err != nil {
		debug.Logf("cli", "exit with error: %v", err)
		fmt.Fprintf(os.Stderr, "%sError: %s%s\n", colorRed, err, colorReset)
		os.Exit(1)
	}
	debug.Log("cli", "exit success")
}
