package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd(e *env) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect nafstore configuration",
		Long: `Inspect nafstore configuration.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (NAFSTORE_*)
3. Config file (~/.nafstore/config.yaml)
4. Defaults`,
	}

	configShowCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Long:  `Display the effective configuration after merging defaults, the config file, environment variables and flags. Secrets are omitted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if used := e.v.ConfigFileUsed(); used != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Configuration file: %s\n", used)
			}

			yamlData, err := yaml.Marshal(e.cfg)
			if err != nil {
				return fmt.Errorf("error marshaling config: %w", err)
			}
			_, err = out.Write(yamlData)
			return err
		},
	}

	configCmd.AddCommand(configShowCmd)
	return configCmd
}
