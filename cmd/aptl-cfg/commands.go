package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/aptl-dev/aptl/internal/config"
	"github.com/aptl-dev/aptl/internal/deviceconfig"
	"github.com/aptl-dev/aptl/internal/discovery"
	"github.com/aptl-dev/aptl/internal/ui"
)

// Device selection flags
var (
	deviceHost   string
	devicePort   int
	deviceID     string
	scanTimeout  int
	outputFormat string
	timeout      time.Duration
	retries      int
)

func init() {
	rootCmd.PersistentFlags().StringVar(&deviceHost, "device", "", "Device address (skips discovery)")
	rootCmd.PersistentFlags().IntVar(&devicePort, "port", 80, "Device HTTP port")
	rootCmd.PersistentFlags().StringVar(&deviceID, "id", "", "Pick a discovered device by ID (MAC) or name")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", deviceconfig.DefaultTimeout, "HTTP request timeout")
	rootCmd.PersistentFlags().IntVar(&retries, "retries", deviceconfig.DefaultMaxRetries, "Retries for failed requests")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(networksCmd)
	rootCmd.AddCommand(wifiCmd)
	rootCmd.AddCommand(validateCmd)
}

// scanCmd discovers devices on the network
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for APTL devices on the network",
	Long: `Scan for APTL devices using mDNS/DNS-SD discovery.

Devices announce themselves as _aptl._tcp services once they have joined
Wi-Fi. A device in setup mode is not announced; join its APTL-Setup access
point and use --device 192.168.4.1 instead.`,
	Example: `  # Scan for 10 seconds (default)
  aptl-cfg scan

  # Quick 3-second scan
  aptl-cfg scan --scan-timeout 3`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().IntVar(&scanTimeout, "scan-timeout", 10, "Scan timeout in seconds")
}

func runScan(cmd *cobra.Command, args []string) error {
	fmt.Printf("Scanning for APTL devices (timeout: %ds)...\n\n", scanTimeout)

	devices, err := discovery.ScanForDevices(time.Duration(scanTimeout) * time.Second)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if len(devices) == 0 {
		fmt.Println("No devices found.")
		fmt.Println("\nTroubleshooting:")
		fmt.Println("  - Ensure the device is powered on and has joined Wi-Fi")
		fmt.Println("  - Verify your computer is on the same network segment")
		fmt.Println("  - Try increasing --scan-timeout for slower networks")
		fmt.Println("  - A device in setup mode is reachable at 192.168.4.1 on APTL-Setup")
		return nil
	}

	fmt.Printf("Found %d device(s):\n\n", len(devices))
	for i, device := range devices {
		fmt.Printf("%d. %s\n", i+1, device.Name)
		fmt.Printf("   ID:       %s\n", device.ID)
		fmt.Printf("   Address:  %s\n", device.BaseURL())
		if v := device.GetMetadata("version"); v != "" {
			fmt.Printf("   Firmware: %s\n", v)
		}
		fmt.Println()
	}

	fmt.Println("Use 'aptl-cfg show --id <id>' to view device status")
	return nil
}

// showCmd displays device status
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show device status",
	Long: `Display the status of an APTL device: actuator position and calibration,
saved line coordinates, and Wi-Fi and MQTT link state.`,
	Example: `  # Show status with auto-discovery
  aptl-cfg show

  # Show status of a specific device
  aptl-cfg show --device 192.168.1.40

  # JSON output for scripting
  aptl-cfg show --device 192.168.1.40 --format json`,
	RunE: runShow,
}

func init() {
	showCmd.Flags().StringVar(&outputFormat, "format", "detailed", "Output format (detailed, compact, json)")
}

func runShow(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	status, err := client.GetStatus()
	if err != nil {
		fmt.Fprintln(os.Stderr, deviceconfig.GetTroubleshootingHint(err))
		return fmt.Errorf("failed to get status: %w", err)
	}

	switch outputFormat {
	case "compact":
		fmt.Println(status.Summary())
	case "json":
		data, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(data))
	default:
		fmt.Print(status.FormatDetailed())
	}
	return nil
}

// networksCmd lists the networks the device can see
var networksCmd = &cobra.Command{
	Use:   "networks",
	Short: "List Wi-Fi networks visible to the device",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		networks, err := client.GetNetworks()
		if err != nil {
			fmt.Fprintln(os.Stderr, deviceconfig.GetTroubleshootingHint(err))
			return fmt.Errorf("failed to list networks: %w", err)
		}
		fmt.Print(deviceconfig.FormatNetworks(networks))
		return nil
	},
}

// validateCmd checks a device config file
var validateCmd = &cobra.Command{
	Use:   "validate [config.yaml]",
	Short: "Validate a device configuration file",
	Long: `Check a device configuration file before copying it onto a device.

Warnings describe settings the device tolerates (no token, unset lines);
errors describe settings it will refuse. Exits non-zero on errors.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	path := ""
	if len(args) == 1 {
		path = args[0]
	} else {
		p, err := config.GetConfigPath()
		if err != nil {
			return err
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	rec, err := config.Parse(data)
	if err != nil {
		return err
	}

	warnings, errs := deviceconfig.SeparateWarningsAndErrors(deviceconfig.ValidateRecord(&rec))
	if len(warnings) > 0 {
		result := ui.NewWarningResult(fmt.Sprintf("%d warning(s)", len(warnings)))
		for i, w := range warnings {
			result.AddDetail(fmt.Sprintf("%d", i+1), w.Error())
		}
		fmt.Println(result.Render())
	}
	if len(errs) > 0 {
		fmt.Println(ui.NewFailureResult("Configuration invalid", errors.New(deviceconfig.FormatValidationErrors(errs)), nil).Render())
		return fmt.Errorf("%s has %d error(s)", path, len(errs))
	}

	fmt.Println(ui.NewSuccessResult("Configuration valid", ui.Param{Key: "File", Value: path}).Render())
	return nil
}

// newClient resolves the target device and returns a configured client.
func newClient() (*deviceconfig.Client, error) {
	host, port, err := resolveDevice()
	if err != nil {
		return nil, err
	}
	client := deviceconfig.NewClient(host, port)
	client.SetTimeout(timeout)
	client.SetRetry(retries, deviceconfig.DefaultRetryDelay)
	return client, nil
}

func resolveDevice() (string, int, error) {
	if deviceHost != "" {
		return deviceHost, devicePort, nil
	}

	if deviceID != "" {
		fmt.Printf("Looking for device %s...\n", deviceID)
		device, err := discovery.FindDevice(deviceID)
		if err != nil {
			return "", 0, err
		}
		fmt.Printf("Found %s\n\n", device)
		return device.IP, device.Port, nil
	}

	fmt.Println("No device specified, attempting auto-discovery...")
	devices, err := discovery.ScanForDevices(5 * time.Second)
	if err != nil {
		return "", 0, fmt.Errorf("discovery failed: %w", err)
	}

	switch len(devices) {
	case 0:
		return "", 0, errors.New("no devices found. Use --device to specify the address manually")
	case 1:
		fmt.Printf("Found %s\n\n", devices[0])
		return devices[0].IP, devices[0].Port, nil
	default:
		fmt.Printf("Found %d devices:\n", len(devices))
		for i, device := range devices {
			fmt.Printf("%d. %s (%s)\n", i+1, device.ID, device.IP)
		}
		return "", 0, errors.New("multiple devices found. Use --id or --device to pick one")
	}
}
