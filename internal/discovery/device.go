package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Device represents a discovered APTL device on the network
type Device struct {
	// ID is the device ID, its Wi-Fi MAC address (e.g., "24:6F:28:0A:1B:2C")
	ID string

	// Name is the mDNS instance name (e.g., "aptl-0a1b2c")
	Name string

	// Hostname is the mDNS hostname (e.g., "aptl-0a1b2c.local.")
	Hostname string

	// IP is the IPv4 address, or IPv6 when no IPv4 address was advertised
	IP string

	// Port is the HTTP port (typically 80)
	Port int

	// Metadata contains the mDNS TXT record data
	// Common fields: "id", "version", "path=/api/status"
	Metadata map[string]string

	// DiscoveredAt is when the device was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the device
func (d *Device) String() string {
	return fmt.Sprintf("APTL Device %s (%s) at %s:%d", d.Name, d.ID, d.IP, d.Port)
}

// BaseURL returns the HTTP base URL for the device
func (d *Device) BaseURL() string {
	return "http://" + net.JoinHostPort(d.IP, strconv.Itoa(d.Port))
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (d *Device) GetMetadata(key string) string {
	if d.Metadata == nil {
		return ""
	}
	return d.Metadata[key]
}
