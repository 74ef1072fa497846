package discovery

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/aptl-dev/aptl/internal/logging"
)

const (
	// ServiceType is the mDNS service type APTL devices advertise
	ServiceType = "_aptl._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for device discovery
	DefaultScanTimeout = 10 * time.Second

	// DefaultPort is the default HTTP port for APTL devices
	DefaultPort = 80

	// TXT record keys
	TxtID      = "id"
	TxtVersion = "version"
	TxtPath    = "path"
)

// Scanner handles mDNS device discovery
type Scanner struct {
	// Timeout is the maximum time to wait for device discovery
	Timeout time.Duration
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
	}
}

// ScanForDevices discovers all APTL devices on the local network
func (s *Scanner) ScanForDevices() ([]*Device, error) {
	return s.ScanForDevicesWithContext(context.Background())
}

// ScanForDevicesWithContext discovers devices with a custom context
func (s *Scanner) ScanForDevicesWithContext(ctx context.Context) ([]*Device, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	collected := make(chan []*Device, 1)

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	go func() {
		devices := make([]*Device, 0)
		seen := make(map[string]bool)
		for entry := range entries {
			device := parseServiceEntry(entry)
			if device == nil || seen[device.ID] {
				continue
			}
			seen[device.ID] = true
			devices = append(devices, device)
		}
		collected <- devices
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()

	// The resolver closes entries once the browse context is done.
	select {
	case devices := <-collected:
		return devices, nil
	case <-time.After(time.Second):
		return nil, fmt.Errorf("mDNS resolver did not finish")
	}
}

// WaitForDevice waits for a specific device by ID or instance name
func (s *Scanner) WaitForDevice(id string) (*Device, error) {
	return s.WaitForDeviceWithContext(context.Background(), id)
}

// WaitForDeviceWithContext waits for a specific device with a custom context
func (s *Scanner) WaitForDeviceWithContext(ctx context.Context, id string) (*Device, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	deviceChan := make(chan *Device, 1)

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	go func() {
		for entry := range entries {
			device := parseServiceEntry(entry)
			if device != nil && device.Matches(id) {
				select {
				case deviceChan <- device:
				default:
				}
				cancel()
				return
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	select {
	case device := <-deviceChan:
		return device, nil
	case <-ctx.Done():
		select {
		case device := <-deviceChan:
			return device, nil
		default:
		}
		return nil, fmt.Errorf("device %s not found within timeout", id)
	}
}

// Matches reports whether the device has the given ID or instance name.
// IDs are compared case-insensitively.
func (d *Device) Matches(id string) bool {
	return strings.EqualFold(d.ID, id) || d.Name == id
}

// parseServiceEntry converts a zeroconf service entry to a Device.
// Returns nil if the entry does not carry an APTL device ID.
func parseServiceEntry(entry *zeroconf.ServiceEntry) *Device {
	metadata := parseTXT(entry.Text)
	id := metadata[TxtID]
	if id == "" {
		return nil
	}

	var ip string
	for _, addr := range entry.AddrIPv4 {
		ip = addr.String()
		break
	}
	if ip == "" && len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	port := entry.Port
	if port == 0 {
		port = DefaultPort
	}

	return &Device{
		ID:           id,
		Name:         entry.Instance,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         port,
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}

// parseTXT splits "key=value" TXT records. Keys without a value map to "".
func parseTXT(txt []string) map[string]string {
	metadata := make(map[string]string, len(txt))
	for _, record := range txt {
		parts := strings.SplitN(record, "=", 2)
		if len(parts) == 2 {
			metadata[parts[0]] = parts[1]
		} else {
			metadata[parts[0]] = ""
		}
	}
	return metadata
}

// AdvertiseConfig describes the service a device announces.
type AdvertiseConfig struct {
	Instance string // mDNS instance name
	ID       string // device ID
	Version  string
	Port     int
	// Interfaces restricts the announcement; nil means all multicast interfaces.
	Interfaces []net.Interface
}

// TXT returns the TXT records for the announcement.
func (c AdvertiseConfig) TXT() []string {
	txt := []string{TxtID + "=" + c.ID, TxtPath + "=/api/status"}
	if c.Version != "" {
		txt = append(txt, TxtVersion+"="+c.Version)
	}
	return txt
}

// Advertiser announces the device's HTTP server over mDNS.
type Advertiser struct {
	server *zeroconf.Server
}

// Advertise registers the device service. Call Shutdown to withdraw it.
func Advertise(cfg AdvertiseConfig) (*Advertiser, error) {
	port := cfg.Port
	if port == 0 {
		port = DefaultPort
	}
	srv, err := zeroconf.Register(cfg.Instance, ServiceType, ServiceDomain, port, cfg.TXT(), cfg.Interfaces)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}
	logging.Info("Advertising device over mDNS",
		zap.String("instance", cfg.Instance),
		zap.String("service", ServiceType),
		zap.Int("port", port),
	)
	return &Advertiser{server: srv}, nil
}

// Shutdown withdraws the announcement.
func (a *Advertiser) Shutdown() {
	if a == nil || a.server == nil {
		return
	}
	a.server.Shutdown()
	logging.Debug("mDNS advertisement withdrawn")
}

// ScanForDevices is a convenience function to scan for devices with a custom timeout
func ScanForDevices(timeout time.Duration) ([]*Device, error) {
	scanner := NewScanner()
	scanner.Timeout = timeout
	return scanner.ScanForDevices()
}

// QuickScan performs a fast scan with a 3-second timeout
func QuickScan() ([]*Device, error) {
	scanner := NewScanner()
	scanner.Timeout = 3 * time.Second
	return scanner.ScanForDevices()
}

// FindDevice searches for a specific device by ID or name with default timeout
func FindDevice(id string) (*Device, error) {
	scanner := NewScanner()
	return scanner.WaitForDevice(id)
}
