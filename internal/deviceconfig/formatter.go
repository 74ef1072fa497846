package deviceconfig

import (
	"fmt"
	"strings"
)

// Summary returns a one-line summary of the device status
func (s *DeviceStatus) Summary() string {
	name := s.DeviceName
	if name == "" {
		name = s.DeviceID
	}
	return fmt.Sprintf("APTL %s @ %.2f mm, %s (FW: %s)", name, s.Motor.PositionMM, StatusName(s.StatusCode), s.Version)
}

// FormatDeviceInfo returns a formatted string with device identification information
func (s *DeviceStatus) FormatDeviceInfo() string {
	var b strings.Builder

	b.WriteString("=== Device Information ===\n")
	b.WriteString(fmt.Sprintf("Device ID:  %s\n", s.DeviceID))
	b.WriteString(fmt.Sprintf("Name:       %s\n", orNone(s.DeviceName)))
	b.WriteString(fmt.Sprintf("Firmware:   %s\n", s.Version))
	b.WriteString(fmt.Sprintf("Uptime:     %s\n", FormatUptime(s.UptimeSeconds)))
	b.WriteString(fmt.Sprintf("Status:     %s\n", StatusName(s.StatusCode)))

	return b.String()
}

// FormatMotor returns a formatted string with the actuator state
func (s *DeviceStatus) FormatMotor() string {
	var b strings.Builder
	m := s.Motor

	b.WriteString("=== Actuator ===\n")
	b.WriteString(fmt.Sprintf("Position:       %.2f mm (%d steps)\n", m.PositionMM, m.PositionSteps))
	b.WriteString(fmt.Sprintf("Max Position:   %.2f mm\n", m.MaxPositionMM))
	b.WriteString(fmt.Sprintf("Speed:          %d mm/s\n", m.Speed))
	b.WriteString(fmt.Sprintf("Calibrated:     %s\n", yesNo(m.Calibrated)))
	b.WriteString(fmt.Sprintf("Driver Enabled: %s\n", yesNo(m.Enabled)))
	if m.EmergencyStop {
		b.WriteString("Emergency Stop: ACTIVE\n")
	}
	if m.MaxPositionSetting {
		b.WriteString("Max Position Setting Mode: on\n")
	}

	return b.String()
}

// FormatLines returns a formatted string with the saved line coordinates
func (s *DeviceStatus) FormatLines() string {
	var b strings.Builder

	b.WriteString("=== Line Coordinates ===\n")
	for line := 1; line <= 4; line++ {
		if mm, ok := s.Line(line); ok {
			b.WriteString(fmt.Sprintf("Line %d: %.2f mm\n", line, mm))
		} else {
			b.WriteString(fmt.Sprintf("Line %d: (unset)\n", line))
		}
	}

	return b.String()
}

// FormatLinks returns a formatted string with the Wi-Fi and MQTT link state
func (s *DeviceStatus) FormatLinks() string {
	var b strings.Builder

	b.WriteString("=== Connectivity ===\n")
	wifi := linkState(s.WiFi)
	if s.WiFi.AccessPoint {
		wifi = "setup access point active"
	}
	b.WriteString(fmt.Sprintf("Wi-Fi: %s\n", wifi))
	b.WriteString(fmt.Sprintf("MQTT:  %s\n", linkState(s.MQTT)))

	return b.String()
}

// FormatDetailed returns the complete status in a readable multi-section form
func (s *DeviceStatus) FormatDetailed() string {
	return strings.Join([]string{
		s.FormatDeviceInfo(),
		s.FormatMotor(),
		s.FormatLines(),
		s.FormatLinks(),
	}, "\n")
}

// FormatNetworks renders a scan result as an aligned table
func FormatNetworks(networks []Network) string {
	if len(networks) == 0 {
		return "No networks found\n"
	}

	width := len("SSID")
	for _, n := range networks {
		if len(n.SSID) > width {
			width = len(n.SSID)
		}
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%-*s  %s\n", width, "SSID", "RSSI"))
	for _, n := range networks {
		b.WriteString(fmt.Sprintf("%-*s  %d dBm\n", width, n.SSID, n.RSSI))
	}
	return b.String()
}

// FormatUptime renders seconds as "1h2m3s".
func FormatUptime(seconds int64) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	sec := seconds % 60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh%dm%ds", h, m, sec)
	case m > 0:
		return fmt.Sprintf("%dm%ds", m, sec)
	default:
		return fmt.Sprintf("%ds", sec)
	}
}

func linkState(l LinkStatus) string {
	state := "disconnected"
	if l.Connected {
		state = "connected"
	}
	if l.Target != "" {
		state += " (" + l.Target + ")"
	}
	return state
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
