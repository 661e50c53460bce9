package cmd

import (
	"github.com/spf13/cobra"

	"github.com/0xastro/uhd/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return err
		}
		return cfg.Dump(cmd.OutOrStdout())
	},
}
