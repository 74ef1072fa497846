package deviceconfig

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// DeviceStatus is the snapshot returned by GET /api/status.
type DeviceStatus struct {
	DeviceID      string `json:"device_id"`
	DeviceName    string `json:"device_name"`
	Version       string `json:"version"`
	UptimeSeconds int64  `json:"uptime_s"`

	// StatusCode is the last telemetry status (statusaptl)
	StatusCode int `json:"statusaptl"`

	Motor MotorStatus `json:"motor"`

	// LineCoordinates maps "1".."4" to mm; nil means the line is unset
	LineCoordinates map[string]*float64 `json:"line_coordinates"`

	WiFi LinkStatus `json:"wifi"`
	MQTT LinkStatus `json:"mqtt"`
}

// MotorStatus is the actuator part of DeviceStatus.
type MotorStatus struct {
	PositionMM         float64 `json:"position_mm"`
	PositionSteps      int64   `json:"position_steps"`
	MaxPositionMM      float64 `json:"max_position_mm"`
	Speed              int     `json:"speed"`
	Calibrated         bool    `json:"calibrated"`
	Enabled            bool    `json:"enabled"`
	EmergencyStop      bool    `json:"emergency_stop"`
	MaxPositionSetting bool    `json:"max_position_setting"`
	IdleTimeoutMS      int64   `json:"idle_timeout_ms"`
}

// LinkStatus describes one device network link.
type LinkStatus struct {
	Connected   bool   `json:"connected"`
	Target      string `json:"target,omitempty"`
	AccessPoint bool   `json:"access_point,omitempty"`
}

// Network is one entry of GET /api/networks.
type Network struct {
	SSID string `json:"ssid"`
	RSSI int    `json:"rssi"`
}

// WiFiCredentials is submitted to the provisioning endpoint.
type WiFiCredentials struct {
	SSID     string
	Password string
}

// ToQuery encodes the credentials as the /save query string.
func (w *WiFiCredentials) ToQuery() url.Values {
	v := url.Values{}
	v.Set("ssid", w.SSID)
	v.Set("pass", w.Password)
	return v
}

// ParseDeviceStatus parses a /api/status body.
func ParseDeviceStatus(data []byte) (*DeviceStatus, error) {
	var status DeviceStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("failed to unmarshal device status: %w", err)
	}
	return &status, nil
}

// Line returns the coordinate of line n and whether it is set.
func (s *DeviceStatus) Line(n int) (float64, bool) {
	v, ok := s.LineCoordinates[strconv.Itoa(n)]
	if !ok || v == nil {
		return 0, false
	}
	return *v, true
}

// StatusName returns the meaning of a telemetry status code.
func StatusName(code int) string {
	switch code {
	case 0:
		return "idle"
	case 1:
		return "entering token"
	case 11:
		return "moving up"
	case 12:
		return "moving down"
	case 21, 22, 23:
		return fmt.Sprintf("pressing servo %d", code-20)
	case 31, 32, 33, 34:
		return fmt.Sprintf("saving line %d", code-30)
	case 41:
		return "setting max position"
	case 51:
		return "re-provisioning Wi-Fi"
	default:
		return fmt.Sprintf("unknown (%d)", code)
	}
}
