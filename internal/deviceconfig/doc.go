// Package deviceconfig provides an HTTP client for the local API of an APTL device.
//
// aptl-cfg uses it to read a device's status, list the Wi-Fi networks the
// device can see, and provision new Wi-Fi credentials through the captive
// portal's /save endpoint. It also validates device configuration files
// before they are copied onto a device.
//
// # Usage Example
//
//	client := deviceconfig.NewClient("192.168.4.1", 80)
//
//	status, err := client.GetStatus()
//	if err != nil {
//	    fmt.Println(deviceconfig.GetTroubleshootingHint(err))
//	    return err
//	}
//	fmt.Print(status.FormatDetailed())
//
//	err = client.Provision(&deviceconfig.WiFiCredentials{SSID: "lab", Password: "secret123"})
//
// # Error Handling
//
// Errors are *DeviceError values classified by ErrorType. Timeouts, refused
// connections and 5xx responses are retried with exponential backoff; DNS
// failures, 4xx responses and parse errors are returned immediately.
//
// # Validation
//
// ValidateRecord reports problems in a config.Record. Entries whose message
// starts with "warning:" describe settings the device tolerates at runtime;
// use SeparateWarningsAndErrors to split them from fatal errors.
package deviceconfig
