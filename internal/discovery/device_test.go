package discovery

import (
	"testing"
)

func TestDevice_String(t *testing.T) {
	device := &Device{
		ID:   "24:6F:28:0A:1B:2C",
		Name: "aptl-lab",
		IP:   "192.168.4.16",
		Port: 80,
	}

	expected := "APTL Device aptl-lab (24:6F:28:0A:1B:2C) at 192.168.4.16:80"
	if device.String() != expected {
		t.Errorf("Device.String() = %v, want %v", device.String(), expected)
	}
}

func TestDevice_BaseURL(t *testing.T) {
	tests := []struct {
		name     string
		device   *Device
		expected string
	}{
		{
			name:     "standard HTTP port",
			device:   &Device{IP: "192.168.4.16", Port: 80},
			expected: "http://192.168.4.16:80",
		},
		{
			name:     "custom port",
			device:   &Device{IP: "10.0.0.5", Port: 8080},
			expected: "http://10.0.0.5:8080",
		},
		{
			name:     "IPv6",
			device:   &Device{IP: "fe80::1", Port: 80},
			expected: "http://[fe80::1]:80",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.device.BaseURL(); got != tt.expected {
				t.Errorf("Device.BaseURL() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestDevice_GetMetadata(t *testing.T) {
	device := &Device{Metadata: map[string]string{"version": "1.2.0"}}
	if got := device.GetMetadata("version"); got != "1.2.0" {
		t.Errorf("GetMetadata(version) = %v, want 1.2.0", got)
	}
	if got := device.GetMetadata("missing"); got != "" {
		t.Errorf("GetMetadata(missing) = %v, want empty", got)
	}

	empty := &Device{}
	if got := empty.GetMetadata("version"); got != "" {
		t.Errorf("GetMetadata on nil map = %v, want empty", got)
	}
}

func TestDevice_Matches(t *testing.T) {
	device := &Device{ID: "24:6F:28:0A:1B:2C", Name: "aptl-lab"}

	tests := []struct {
		query string
		want  bool
	}{
		{"24:6F:28:0A:1B:2C", true},
		{"24:6f:28:0a:1b:2c", true},
		{"aptl-lab", true},
		{"aptl-other", false},
	}
	for _, tt := range tests {
		if got := device.Matches(tt.query); got != tt.want {
			t.Errorf("Matches(%q) = %v, want %v", tt.query, got, tt.want)
		}
	}
}
