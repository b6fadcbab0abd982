package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/crewdeck/crewdeck/internal/config"
)

var configCmd = &cobra.Command{
	Use:     "config",
	Aliases: []string{"cfg"},
	Short:   "Manage crewdeck configuration",
	Long: `Show and edit the config file at ~/.crewdeck/config.json.

Use subcommands like:
  crewdeck config set backend http://localhost:8000
  crewdeck config key anthropic sk-ant-...`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		printHeader("Configuration")
		printField("Backend", cfg.ResolvedBackendURL())
		printField("Provider", cfg.DefaultProvider)
		printField("Model", cfg.DefaultModel)
		if cfg.AuthToken != "" {
			printField("Auth token", maskSecret(cfg.AuthToken))
		}

		if len(cfg.APIKeys) > 0 {
			printHeader("API Keys")
			providers := make([]string, 0, len(cfg.APIKeys))
			for p := range cfg.APIKeys {
				providers = append(providers, p)
			}
			sort.Strings(providers)
			for _, p := range providers {
				printField(p, maskSecret(cfg.APIKeys[p]))
			}
		}
		fmt.Println()
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <field> <value>",
	Short: "Set backend, provider, model, or token",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		field, value := strings.ToLower(args[0]), args[1]

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		switch field {
		case "backend":
			cfg.BackendURL = value
		case "provider":
			cfg.DefaultProvider = value
		case "model":
			cfg.DefaultModel = value
		case "token":
			cfg.AuthToken = value
		default:
			return fmt.Errorf("unknown field %q (backend, provider, model, token)", field)
		}

		if err := config.Save(cfg); err != nil {
			return err
		}
		fmt.Printf("%sSet %s.%s\n", styleBoldGreen, field, colorReset)
		return nil
	},
}

var configKeyCmd = &cobra.Command{
	Use:   "key <provider> [api-key]",
	Short: "Store or clear a provider API key",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		provider := strings.ToLower(args[0])
		unset, _ := cmd.Flags().GetBool("unset")

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		switch {
		case unset:
			delete(cfg.APIKeys, provider)
			fmt.Printf("Cleared %s key.\n", provider)
		case len(args) == 2:
			if cfg.APIKeys == nil {
				cfg.APIKeys = map[string]string{}
			}
			cfg.APIKeys[provider] = args[1]
			fmt.Printf("%sStored %s key.%s\n", styleBoldGreen, provider, colorReset)
		default:
			if key := cfg.APIKey(provider); key != "" {
				fmt.Println(maskSecret(key))
			} else {
				fmt.Println(colorDim + "(not set)" + colorReset)
			}
			return nil
		}

		return config.Save(cfg)
	},
}

var configPushoverCmd = &cobra.Command{
	Use:   "pushover <user-key> <app-token>",
	Short: "Configure push notifications for session end",
	Args:  cobra.RangeArgs(0, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		if len(args) == 0 {
			if cfg.Pushover == nil || cfg.Pushover.UserKey == "" {
				fmt.Println(colorDim + "Pushover is not configured." + colorReset)
			} else {
				printField("User key", maskSecret(cfg.Pushover.UserKey))
				printField("App token", maskSecret(cfg.Pushover.AppToken))
			}
			return nil
		}
		if len(args) != 2 {
			return fmt.Errorf("both a user key and an app token are required")
		}

		cfg.Pushover = &config.PushoverConfig{UserKey: args[0], AppToken: args[1]}
		if err := config.Save(cfg); err != nil {
			return err
		}
		fmt.Println(styleBoldGreen + "Pushover configured." + colorReset)
		return nil
	},
}

// maskSecret keeps just enough of a secret to recognize it.
func maskSecret(s string) string {
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

func init() {
	configKeyCmd.Flags().Bool("unset", false, "Remove the stored key")
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configKeyCmd)
	configCmd.AddCommand(configPushoverCmd)
	rootCmd.AddCommand(configCmd)
}
