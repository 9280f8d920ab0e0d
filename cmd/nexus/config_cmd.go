package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long: `Print the configuration after defaults, the config file, NEXUS_* environment
variables and command-line flags have been applied.

Use --yaml to print it as a config file (the Postgres URL is included verbatim).`,
	Annotations: map[string]string{"storage": "none"},
	Run: func(cmd *cobra.Command, args []string) {
		asYAML, _ := cmd.Flags().GetBool("yaml")
		if !asYAML {
			fmt.Println(cfg.String())
			return
		}
		out, err := yaml.Marshal(cfg)
		exitOnErr("encoding config", err)
		fmt.Print(string(out))
	},
}

func init() {
	configCmd.Flags().Bool("yaml", false, "Print as YAML")
	rootCmd.AddCommand(configCmd)
}
