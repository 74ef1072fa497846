// Aptl-cfg is a configuration utility for APTL keypad actuators.
//
// It finds devices over mDNS, shows their status, lists the Wi-Fi networks
// they can see, provisions Wi-Fi credentials through the setup portal and
// validates device configuration files.
//
// Usage:
//
//	aptl-cfg [command] [flags]
//
// See 'aptl-cfg --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aptl-dev/aptl/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "aptl-cfg",
	Short: "APTL Device Configuration Utility",
	Long: `A standalone utility for configuring APTL keypad actuators.

Devices are found over mDNS (_aptl._tcp) or addressed directly with --device.
A device in setup mode serves its portal at 192.168.4.1 on the APTL-Setup
access point.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("aptl-cfg %s (commit: %s)\n", version.Version, version.Commit)
	},
}
