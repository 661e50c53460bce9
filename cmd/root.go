// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "u2ctl",
	Short: "u2ctl - control plane of a networked software radio",
	Long: `u2ctl runs the control plane of a networked software radio peripheral on a
raw Ethernet link. It answers UDP control requests (identify, tune, configure
DSP rates, set time, peek/poke registers, GPIO) addressed to the device and
leaves data-channel traffic to the streaming path.

The device behind the control plane is simulated in memory; replies go out on
the configured link (libpcap, AF_PACKET or a capture file).`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"config file path (defaults and U2CTL_* env vars when empty)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(queryCmd)
}
