package deviceconfig

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

const mockStatusResponse = `{
	"device_id": "24:6F:28:0A:1B:2C",
	"device_name": "lab",
	"version": "1.0.0",
	"uptime_s": 3725,
	"statusaptl": 0,
	"motor": {"position_mm": 12.5, "position_steps": 250, "max_position_mm": 120, "speed": 50, "calibrated": true},
	"line_coordinates": {"1": 10, "2": null, "3": 55.5, "4": 80},
	"wifi": {"connected": true, "target": "lab-net"},
	"mqtt": {"connected": false, "target": "broker:1883"}
}`

func newTestClient(url string) *Client {
	c := NewClientWithURL(url)
	c.SetRetry(2, time.Millisecond)
	return c
}

func TestNewClient(t *testing.T) {
	client := NewClient("192.168.4.1", 80)

	if client.BaseURL != "http://192.168.4.1:80" {
		t.Errorf("BaseURL = %s, want http://192.168.4.1:80", client.BaseURL)
	}
	if client.HTTPClient == nil {
		t.Error("HTTPClient should not be nil")
	}
	if client.MaxRetries != DefaultMaxRetries {
		t.Errorf("MaxRetries = %d, want %d", client.MaxRetries, DefaultMaxRetries)
	}
}

func TestNewClientWithURL_TrimsSlash(t *testing.T) {
	client := NewClientWithURL("http://aptl.local:8080/")

	if client.BaseURL != "http://aptl.local:8080" {
		t.Errorf("BaseURL = %s, want http://aptl.local:8080", client.BaseURL)
	}
}

func TestSetTimeout(t *testing.T) {
	client := NewClient("192.168.4.1", 80)
	client.SetTimeout(5 * time.Second)

	if client.HTTPClient.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", client.HTTPClient.Timeout)
	}
}

func TestGetStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/status" {
			t.Errorf("path = %s, want /api/status", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(mockStatusResponse))
	}))
	defer server.Close()

	status, err := newTestClient(server.URL).GetStatus()
	if err != nil {
		t.Fatalf("GetStatus() error = %v", err)
	}

	if status.DeviceID != "24:6F:28:0A:1B:2C" {
		t.Errorf("DeviceID = %s", status.DeviceID)
	}
	if status.Motor.PositionMM != 12.5 {
		t.Errorf("PositionMM = %v, want 12.5", status.Motor.PositionMM)
	}
	if mm, ok := status.Line(3); !ok || mm != 55.5 {
		t.Errorf("Line(3) = %v, %v, want 55.5, true", mm, ok)
	}
	if _, ok := status.Line(2); ok {
		t.Error("Line(2) should be unset")
	}
}

func TestGetStatus_RetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(mockStatusResponse))
	}))
	defer server.Close()

	if _, err := newTestClient(server.URL).GetStatus(); err != nil {
		t.Fatalf("GetStatus() error = %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestGetStatus_NoRetryOnClientError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).GetStatus()
	if !IsHTTPError(err) {
		t.Fatalf("GetStatus() error = %v, want HTTP error", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestGetStatus_ParseError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).GetStatus()
	if !IsParseError(err) {
		t.Errorf("GetStatus() error = %v, want parse error", err)
	}
}

func TestGetNetworks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/networks" {
			t.Errorf("path = %s, want /api/networks", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"networks":[{"ssid":"lab","rssi":-40},{"ssid":"guest","rssi":-71}]}`))
	}))
	defer server.Close()

	networks, err := newTestClient(server.URL).GetNetworks()
	if err != nil {
		t.Fatalf("GetNetworks() error = %v", err)
	}
	if len(networks) != 2 || networks[0].SSID != "lab" || networks[1].RSSI != -71 {
		t.Errorf("GetNetworks() = %+v", networks)
	}
}

func TestProvision(t *testing.T) {
	var gotSSID, gotPass string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/save" {
			t.Errorf("path = %s, want /save", r.URL.Path)
		}
		gotSSID = r.URL.Query().Get("ssid")
		gotPass = r.URL.Query().Get("pass")
		_, _ = w.Write([]byte("<html><body><h2>Saved. Device will restart...</h2></body></html>"))
	}))
	defer server.Close()

	err := newTestClient(server.URL).Provision(&WiFiCredentials{SSID: "lab net", Password: "p&ss=word"})
	if err != nil {
		t.Fatalf("Provision() error = %v", err)
	}
	if gotSSID != "lab net" {
		t.Errorf("ssid = %q, want %q", gotSSID, "lab net")
	}
	if gotPass != "p&ss=word" {
		t.Errorf("pass = %q, want %q", gotPass, "p&ss=word")
	}
}

func TestProvision_ValidatesFirst(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	err := newTestClient(server.URL).Provision(&WiFiCredentials{SSID: "", Password: "short"})
	if !IsValidationError(err) {
		t.Errorf("Provision() error = %v, want validation error", err)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Error("invalid credentials should not reach the device")
	}
}

func TestPing_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := newTestClient(url)
	client.SetTimeout(500 * time.Millisecond)
	if err := client.Ping(); !IsNetworkError(err) {
		t.Errorf("Ping() error = %v, want network error", err)
	}
}
