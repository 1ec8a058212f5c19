package cmd

import (
	"fmt"
	"os"

	"github.com/smazurov/streamgate/internal/recording/store"
	"github.com/spf13/cobra"
)

// CreateValidateCmd creates the validate command. It parses the config
// and rules files and reports problems without starting the daemon.
func CreateValidateCmd() *cobra.Command {
	var configFile string
	var rulesFile string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and recording rules",
		Long:  `Parses the daemon configuration and the recording rules file, reporting any structural errors. Exits non-zero if either file is invalid.`,
		Run: func(_ *cobra.Command, _ []string) {
			failed := false

			if configFile != "" {
				if _, err := os.Stat(configFile); err != nil {
					fmt.Fprintf(os.Stderr, "config: %v\n", err)
					failed = true
				} else {
					fmt.Printf("config: %s ok\n", configFile)
				}
			}

			rules := store.NewTOMLRules(rulesFile)
			if err := rules.Load(); err != nil {
				fmt.Fprintf(os.Stderr, "rules: %v\n", err)
				failed = true
			} else {
				all := rules.GetAllRules()
				enabled := rules.GetEnabledRules()
				fmt.Printf("rules: %s ok (%d rules, %d enabled)\n", rulesFile, len(all), len(enabled))
			}

			if failed {
				os.Exit(1)
			}
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "streamgate.toml", "Configuration file to validate")
	cmd.Flags().StringVarP(&rulesFile, "rules", "r", "rules.toml", "Recording rules file to validate")
	return cmd
}
