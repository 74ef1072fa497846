package main

import (
	"github.com/spf13/cobra"

	"github.com/aptl-dev/aptl/internal/deviceconfig"
	"github.com/aptl-dev/aptl/internal/discovery"
	"github.com/aptl-dev/aptl/internal/wizard/tui"
)

var wizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Interactive setup wizard",
	Long: `Full-screen wizard: find a device, watch its live status and change its
Wi-Fi network. With --device the discovery screen is skipped.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := tui.Options{
			NewClient: func(d *discovery.Device) *deviceconfig.Client {
				c := deviceconfig.NewClient(d.IP, d.Port)
				c.SetTimeout(timeout)
				c.SetRetry(retries, deviceconfig.DefaultRetryDelay)
				return c
			},
		}
		if deviceHost != "" {
			opts.Device = &discovery.Device{
				Name:     deviceHost,
				Hostname: deviceHost,
				IP:       deviceHost,
				Port:     devicePort,
				Metadata: map[string]string{},
			}
		}
		return tui.Run(opts)
	},
}

func init() {
	rootCmd.AddCommand(wizardCmd)
}
