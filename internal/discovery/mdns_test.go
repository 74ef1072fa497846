package discovery

import (
	"net"
	"reflect"
	"testing"
	"time"

	"github.com/grandcat/zeroconf"
)

func TestParseServiceEntry(t *testing.T) {
	tests := []struct {
		name     string
		entry    *zeroconf.ServiceEntry
		wantNil  bool
		wantID   string
		wantIP   string
		wantPort int
	}{
		{
			name: "device with IPv4",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "aptl-lab"},
				HostName:      "aptl-lab.local.",
				Port:          80,
				AddrIPv4:      []net.IP{net.ParseIP("192.168.4.16")},
				Text:          []string{"id=24:6F:28:0A:1B:2C", "path=/api/status"},
			},
			wantID:   "24:6F:28:0A:1B:2C",
			wantIP:   "192.168.4.16",
			wantPort: 80,
		},
		{
			name: "no port specified (should default to 80)",
			entry: &zeroconf.ServiceEntry{
				AddrIPv4: []net.IP{net.ParseIP("172.16.0.1")},
				Text:     []string{"id=AA"},
			},
			wantID:   "AA",
			wantIP:   "172.16.0.1",
			wantPort: 80,
		},
		{
			name: "custom port",
			entry: &zeroconf.ServiceEntry{
				Port:     8080,
				AddrIPv4: []net.IP{net.ParseIP("10.0.0.5")},
				Text:     []string{"id=BB"},
			},
			wantID:   "BB",
			wantIP:   "10.0.0.5",
			wantPort: 8080,
		},
		{
			name: "missing id record",
			entry: &zeroconf.ServiceEntry{
				Port:     80,
				AddrIPv4: []net.IP{net.ParseIP("192.168.1.1")},
				Text:     []string{"path=/"},
			},
			wantNil: true,
		},
		{
			name: "no IP address",
			entry: &zeroconf.ServiceEntry{
				Port: 80,
				Text: []string{"id=CC"},
			},
			wantNil: true,
		},
		{
			name: "IPv6 only",
			entry: &zeroconf.ServiceEntry{
				Port:     80,
				AddrIPv6: []net.IP{net.ParseIP("fe80::1")},
				Text:     []string{"id=DD"},
			},
			wantID:   "DD",
			wantIP:   "fe80::1",
			wantPort: 80,
		},
		{
			name: "both IPv4 and IPv6 (should prefer IPv4)",
			entry: &zeroconf.ServiceEntry{
				Port:     80,
				AddrIPv4: []net.IP{net.ParseIP("192.168.1.50")},
				AddrIPv6: []net.IP{net.ParseIP("fe80::2")},
				Text:     []string{"id=EE"},
			},
			wantID:   "EE",
			wantIP:   "192.168.1.50",
			wantPort: 80,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			device := parseServiceEntry(tt.entry)
			if tt.wantNil {
				if device != nil {
					t.Errorf("parseServiceEntry() = %v, want nil", device)
				}
				return
			}
			if device == nil {
				t.Fatal("parseServiceEntry() = nil, want device")
			}
			if device.ID != tt.wantID {
				t.Errorf("ID = %v, want %v", device.ID, tt.wantID)
			}
			if device.IP != tt.wantIP {
				t.Errorf("IP = %v, want %v", device.IP, tt.wantIP)
			}
			if device.Port != tt.wantPort {
				t.Errorf("Port = %v, want %v", device.Port, tt.wantPort)
			}
			if time.Since(device.DiscoveredAt) > time.Minute {
				t.Errorf("DiscoveredAt = %v, want recent", device.DiscoveredAt)
			}
		})
	}
}

func TestParseServiceEntryName(t *testing.T) {
	entry := &zeroconf.ServiceEntry{
		ServiceRecord: zeroconf.ServiceRecord{Instance: "aptl-lab"},
		AddrIPv4:      []net.IP{net.ParseIP("192.168.4.16")},
		Text:          []string{"id=AA", "version=1.0.0"},
	}
	device := parseServiceEntry(entry)
	if device.Name != "aptl-lab" {
		t.Errorf("Name = %v, want aptl-lab", device.Name)
	}
	if device.GetMetadata(TxtVersion) != "1.0.0" {
		t.Errorf("version = %v", device.GetMetadata(TxtVersion))
	}
}

func TestParseTXT(t *testing.T) {
	got := parseTXT([]string{"id=AA:BB", "flag", "path=/api/status", "eq=a=b"})
	want := map[string]string{
		"id":   "AA:BB",
		"flag": "",
		"path": "/api/status",
		"eq":   "a=b",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("parseTXT() = %v, want %v", got, want)
	}
}

func TestAdvertiseConfigTXT(t *testing.T) {
	cfg := AdvertiseConfig{ID: "AA:BB", Version: "1.0.0"}
	want := []string{"id=AA:BB", "path=/api/status", "version=1.0.0"}
	if got := cfg.TXT(); !reflect.DeepEqual(got, want) {
		t.Errorf("TXT() = %v, want %v", got, want)
	}

	cfg.Version = ""
	if got := cfg.TXT(); len(got) != 2 {
		t.Errorf("TXT() without version = %v", got)
	}
}

func TestNewScanner(t *testing.T) {
	scanner := NewScanner()
	if scanner.Timeout != DefaultScanTimeout {
		t.Errorf("Timeout = %v, want %v", scanner.Timeout, DefaultScanTimeout)
	}
}

func TestAdvertiserShutdownNil(t *testing.T) {
	var a *Advertiser
	a.Shutdown()
}
