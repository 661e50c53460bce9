package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/0xastro/uhd/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Long: `Load the configuration (file, defaults and U2CTL_* overrides) and check it
without opening the link.

Examples:
  u2ctl validate -c config.yml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("INVALID: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "VALID: device %s on %s link %q, control port %d\n",
			cfg.Device.MAC, cfg.Link.Type, cfg.Link.Device, cfg.Device.ControlPort)
		return nil
	},
}
