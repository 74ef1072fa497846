// Package discovery provides mDNS announcement and discovery for APTL devices.
//
// A device announces its local HTTP server as an "_aptl._tcp" service. The
// TXT record carries the device ID (its Wi-Fi MAC address), the status API
// path and the firmware version:
//
//	id=24:6F:28:0A:1B:2C
//	path=/api/status
//	version=1.0.0
//
// Scanner browses for that service type and returns one Device per ID, so
// aptl-cfg can find devices without knowing their address.
//
// # Usage Example
//
//	// Device side
//	adv, err := discovery.Advertise(discovery.AdvertiseConfig{
//	    Instance: "aptl-lab", ID: deviceID, Port: 80,
//	})
//	defer adv.Shutdown()
//
//	// Host side
//	devices, err := discovery.ScanForDevices(5 * time.Second)
//	for _, d := range devices {
//	    fmt.Println(d.Name, d.BaseURL())
//	}
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Devices must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
package discovery
