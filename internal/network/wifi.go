package network

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/aptl-dev/aptl/internal/logging"
)

const (
	// ConnectWindow bounds a single station connect attempt.
	ConnectWindow = 10 * time.Second

	// APConnection is the NetworkManager profile name used for the setup AP.
	APConnection = "aptl-setup"
)

// ErrNoSSID is returned by Connect when no SSID is configured.
var ErrNoSSID = errors.New("no Wi-Fi SSID configured")

// AccessPoint is one network seen by a scan.
type AccessPoint struct {
	SSID string `json:"ssid"`
	RSSI int    `json:"rssi"` // dBm
}

// Manager controls one wireless interface through NetworkManager's nmcli.
type Manager struct {
	iface  string
	runner Runner
}

// NewManager creates a Manager for iface. A nil runner uses ExecRunner.
func NewManager(iface string, runner Runner) *Manager {
	if runner == nil {
		runner = ExecRunner{Timeout: ConnectWindow + 5*time.Second}
	}
	return &Manager{iface: iface, runner: runner}
}

// Interface returns the managed interface name.
func (m *Manager) Interface() string {
	return m.iface
}

// Connect joins ssid, waiting at most ConnectWindow.
func (m *Manager) Connect(ctx context.Context, ssid, password string) error {
	if ssid == "" {
		return ErrNoSSID
	}
	logging.LogConnection("wifi", "connecting", zap.String("ssid", ssid), zap.String("interface", m.iface))

	ctx, cancel := context.WithTimeout(ctx, ConnectWindow+time.Second)
	defer cancel()

	args := []string{"--wait", strconv.Itoa(int(ConnectWindow / time.Second)),
		"device", "wifi", "connect", ssid}
	if password != "" {
		args = append(args, "password", password)
	}
	args = append(args, "ifname", m.iface)

	if _, err := m.runner.Run(ctx, "nmcli", args...); err != nil {
		logging.LogConnection("wifi", "failed", zap.String("ssid", ssid), zap.Error(err))
		return fmt.Errorf("failed to connect to %q: %w", ssid, err)
	}
	logging.LogConnection("wifi", "connected", zap.String("ssid", ssid))
	return nil
}

// Connected reports whether the interface is associated in station mode.
func (m *Manager) Connected(ctx context.Context) bool {
	out, err := m.runner.Run(ctx, "nmcli", "-t", "-f", "DEVICE,TYPE,STATE", "device")
	if err != nil {
		return false
	}
	for _, line := range strings.Split(out, "\n") {
		fields := splitTerse(strings.TrimSpace(line))
		if len(fields) == 3 && fields[0] == m.iface {
			return fields[2] == "connected"
		}
	}
	return false
}

// Scan lists visible networks, strongest first, one entry per SSID.
func (m *Manager) Scan(ctx context.Context) ([]AccessPoint, error) {
	out, err := m.runner.Run(ctx, "nmcli", "-t", "-f", "SSID,SIGNAL",
		"device", "wifi", "list", "ifname", m.iface, "--rescan", "yes")
	if err != nil {
		return nil, fmt.Errorf("failed to scan networks: %w", err)
	}
	return parseScan(out), nil
}

// StartAP brings up an open access point named ssid with the device at
// address and a shared (DHCP + DNS) IPv4 network behind it.
func (m *Manager) StartAP(ctx context.Context, ssid, address string) error {
	logging.LogConnection("wifi", "ap_starting", zap.String("ssid", ssid), zap.String("address", address))

	// A stale profile from a previous run is fine to lose.
	_, _ = m.runner.Run(ctx, "nmcli", "connection", "delete", APConnection)

	if _, err := m.runner.Run(ctx, "nmcli", "connection", "add",
		"type", "wifi",
		"ifname", m.iface,
		"con-name", APConnection,
		"autoconnect", "no",
		"ssid", ssid,
		"802-11-wireless.mode", "ap",
		"ipv4.method", "shared",
		"ipv4.addresses", address+"/24",
	); err != nil {
		return fmt.Errorf("failed to create access point profile: %w", err)
	}
	if _, err := m.runner.Run(ctx, "nmcli", "connection", "up", APConnection); err != nil {
		return fmt.Errorf("failed to start access point: %w", err)
	}

	logging.LogConnection("wifi", "ap_started", zap.String("ssid", ssid))
	return nil
}

// MACAddress returns the hardware address of the interface in the
// upper-case colon form used as the device ID.
func (m *Manager) MACAddress() (string, error) {
	ifc, err := net.InterfaceByName(m.iface)
	if err != nil {
		return "", fmt.Errorf("failed to read interface %s: %w", m.iface, err)
	}
	if len(ifc.HardwareAddr) == 0 {
		return "", fmt.Errorf("interface %s has no hardware address", m.iface)
	}
	return strings.ToUpper(ifc.HardwareAddr.String()), nil
}

// SignalToRSSI converts an nmcli signal percentage to an approximate dBm.
func SignalToRSSI(percent int) int {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return percent/2 - 100
}

func parseScan(out string) []AccessPoint {
	best := make(map[string]int)
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := splitTerse(line)
		if len(fields) != 2 || fields[0] == "" {
			continue
		}
		signal, err := strconv.Atoi(fields[1])
		if err != nil {
			continue
		}
		rssi := SignalToRSSI(signal)
		if cur, ok := best[fields[0]]; !ok || rssi > cur {
			best[fields[0]] = rssi
		}
	}

	aps := make([]AccessPoint, 0, len(best))
	for ssid, rssi := range best {
		aps = append(aps, AccessPoint{SSID: ssid, RSSI: rssi})
	}
	sort.Slice(aps, func(i, j int) bool {
		if aps[i].RSSI != aps[j].RSSI {
			return aps[i].RSSI > aps[j].RSSI
		}
		return aps[i].SSID < aps[j].SSID
	})
	return aps
}

// splitTerse splits one line of nmcli terse output on unescaped colons.
func splitTerse(line string) []string {
	var fields []string
	var cur strings.Builder
	escaped := false
	for _, r := range line {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == ':':
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	return append(fields, cur.String())
}
