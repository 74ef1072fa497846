package deviceconfig

import (
	"strings"
	"testing"
)

func testStatus(t *testing.T) *DeviceStatus {
	t.Helper()
	status, err := ParseDeviceStatus([]byte(mockStatusResponse))
	if err != nil {
		t.Fatalf("ParseDeviceStatus() error = %v", err)
	}
	return status
}

func TestSummary(t *testing.T) {
	status := testStatus(t)

	want := "APTL lab @ 12.50 mm, idle (FW: 1.0.0)"
	if got := status.Summary(); got != want {
		t.Errorf("Summary() = %q, want %q", got, want)
	}

	status.DeviceName = ""
	if got := status.Summary(); !strings.HasPrefix(got, "APTL 24:6F:28:0A:1B:2C") {
		t.Errorf("Summary() = %q, want device ID fallback", got)
	}
}

func TestFormatDetailed(t *testing.T) {
	out := testStatus(t).FormatDetailed()

	for _, want := range []string{
		"Device ID:  24:6F:28:0A:1B:2C",
		"Uptime:     1h2m5s",
		"Position:       12.50 mm (250 steps)",
		"Calibrated:     yes",
		"Line 2: (unset)",
		"Line 3: 55.50 mm",
		"Wi-Fi: connected (lab-net)",
		"MQTT:  disconnected (broker:1883)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("FormatDetailed() missing %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "Emergency Stop") {
		t.Error("emergency stop shown while inactive")
	}
}

func TestFormatLinks_AccessPoint(t *testing.T) {
	status := testStatus(t)
	status.WiFi = LinkStatus{AccessPoint: true}

	if out := status.FormatLinks(); !strings.Contains(out, "setup access point active") {
		t.Errorf("FormatLinks() = %q", out)
	}
}

func TestFormatNetworks(t *testing.T) {
	if got := FormatNetworks(nil); got != "No networks found\n" {
		t.Errorf("FormatNetworks(nil) = %q", got)
	}

	got := FormatNetworks([]Network{{SSID: "laboratory", RSSI: -40}, {SSID: "x", RSSI: -80}})
	want := "SSID        RSSI\nlaboratory  -40 dBm\nx           -80 dBm\n"
	if got != want {
		t.Errorf("FormatNetworks() = %q, want %q", got, want)
	}
}

func TestFormatUptime(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0s"},
		{59, "59s"},
		{61, "1m1s"},
		{3725, "1h2m5s"},
	}

	for _, tt := range tests {
		if got := FormatUptime(tt.in); got != tt.want {
			t.Errorf("FormatUptime(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStatusName(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{0, "idle"},
		{1, "entering token"},
		{22, "pressing servo 2"},
		{34, "saving line 4"},
		{99, "unknown (99)"},
	}

	for _, tt := range tests {
		if got := StatusName(tt.code); got != tt.want {
			t.Errorf("StatusName(%d) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestWiFiCredentials_ToQuery(t *testing.T) {
	q := (&WiFiCredentials{SSID: "a b", Password: "x"}).ToQuery().Encode()
	if q != "pass=x&ssid=a+b" {
		t.Errorf("ToQuery().Encode() = %q", q)
	}
}
