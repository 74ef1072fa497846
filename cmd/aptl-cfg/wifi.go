package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/aptl-dev/aptl/internal/deviceconfig"
	"github.com/aptl-dev/aptl/internal/ui"
)

var (
	wifiSSID     string
	wifiPassword string
	wifiYes      bool
)

// wifiCmd provisions Wi-Fi credentials
var wifiCmd = &cobra.Command{
	Use:   "wifi",
	Short: "Provision Wi-Fi credentials",
	Long: `Send Wi-Fi credentials to a device through its setup portal.

The device saves the credentials and restarts. Join the device's APTL-Setup
access point first; its portal is at 192.168.4.1. Leave --password empty
to be prompted without echo.`,
	Example: `  # Provision a device in setup mode
  aptl-cfg wifi --device 192.168.4.1 --ssid lab

  # Non-interactive
  aptl-cfg wifi --device 192.168.4.1 --ssid lab --password secret123 --yes`,
	RunE: runWiFi,
}

func init() {
	wifiCmd.Flags().StringVar(&wifiSSID, "ssid", "", "Network name")
	wifiCmd.Flags().StringVar(&wifiPassword, "password", "", "Network password (prompted when empty)")
	wifiCmd.Flags().BoolVarP(&wifiYes, "yes", "y", false, "Skip the confirmation prompt")
}

func runWiFi(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	if wifiSSID == "" {
		networks, err := client.GetNetworks()
		if err == nil && len(networks) > 0 {
			fmt.Print(deviceconfig.FormatNetworks(networks))
			fmt.Println()
		}
		if wifiSSID, err = ui.ReadLine(os.Stdin, os.Stdout, "SSID: "); err != nil {
			return fmt.Errorf("failed to read SSID: %w", err)
		}
	}
	if wifiPassword == "" && !cmd.Flags().Changed("password") {
		pass, err := ui.ReadPassword("Password (empty for open network): ")
		if err != nil && !errors.Is(err, ui.ErrNotTerminal) {
			return err
		}
		wifiPassword = pass
	}

	fmt.Println(ui.NewHeader("Wi-Fi provisioning", "aptl-cfg wifi",
		ui.Param{Key: "Device", Value: client.BaseURL},
		ui.Param{Key: "SSID", Value: wifiSSID},
	).Render())
	fmt.Println()

	if !wifiYes && !ui.Confirm(os.Stdin, os.Stdout, "The device will restart. Continue?") {
		fmt.Println("Cancelled.")
		return nil
	}

	creds := &deviceconfig.WiFiCredentials{SSID: wifiSSID, Password: wifiPassword}
	steps := ui.NewSteps(os.Stdout, "Validate credentials", "Send to device")

	err = steps.Run(0, func() (string, error) {
		if errs := deviceconfig.ValidateWiFiCredentials(creds); len(errs) > 0 {
			return "", errs[0]
		}
		return "", nil
	})
	if err == nil {
		err = steps.Run(1, func() (string, error) {
			start := time.Now()
			if err := client.Provision(creds); err != nil {
				return "", err
			}
			return time.Since(start).Round(time.Millisecond).String(), nil
		})
	}
	fmt.Println()

	if err != nil {
		steps.Skip()
		fmt.Println(ui.NewFailureResult("Provisioning failed", err,
			ui.TroubleshootingFromHint(deviceconfig.GetTroubleshootingHint(err))).Render())
		return err
	}

	fmt.Println(ui.NewSuccessResult("Credentials saved",
		ui.Param{Key: "SSID", Value: wifiSSID},
		ui.Param{Key: "Next", Value: "device restarts and joins " + wifiSSID},
	).Render())
	fmt.Println("\nRun 'aptl-cfg scan' once the device has joined the network.")
	return nil
}
