package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGetConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")

	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}

	if configDir != filepath.Join("/tmp/xdg", "aptl") {
		t.Errorf("GetConfigDir() = %v, want /tmp/xdg/aptl", configDir)
	}
}

func TestGetConfigPath(t *testing.T) {
	configPath, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}

	if filepath.Base(configPath) != "config.yaml" {
		t.Errorf("GetConfigPath() should end with 'config.yaml', got: %v", configPath)
	}
}

func TestLoadMissingWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	store, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config was not written: %v", err)
	}

	if store.MaxPosition() != 0 {
		t.Errorf("MaxPosition() = %v, want 0", store.MaxPosition())
	}
	if got := store.Motor().IdleTimeoutMS; got != 60000 {
		t.Errorf("IdleTimeoutMS = %v, want 60000", got)
	}
	for line := FirstLine; line <= LastLine; line++ {
		if got := store.LineCoordinate(line); got != 0 {
			t.Errorf("LineCoordinate(%d) = %v, want 0", line, got)
		}
	}
}

func TestLoadMalformedLeavesFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad yaml", "version: [1\n"},
		{"wrong version", "version: 7\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0600); err != nil {
				t.Fatal(err)
			}

			store, err := Load(path)
			if !errors.Is(err, ErrMalformed) {
				t.Fatalf("Load() error = %v, want ErrMalformed", err)
			}
			if store == nil {
				t.Fatal("Load() returned nil store")
			}
			if store.Motor().Speed != 50 {
				t.Errorf("store should hold defaults, speed = %v", store.Motor().Speed)
			}

			data, _ := os.ReadFile(path)
			if string(data) != tt.content {
				t.Errorf("malformed file was modified: %q", data)
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	store := NewStore(path)

	store.SetDeviceName("Lobby kiosk")
	store.SetDeviceID("AA:BB:CC:DD:EE:FF")
	store.SetWiFiCredentials("office", "hunter2")
	store.SetMaxPosition(115.5)
	store.SetLineCoordinates(map[int]float64{1: 10, 2: 35.5, 4: 90})

	if err := store.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "# APTL Device Configuration") {
		t.Error("saved config is missing the header comment")
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if loaded.DeviceName() != "Lobby kiosk" {
		t.Errorf("DeviceName() = %v, want Lobby kiosk", loaded.DeviceName())
	}
	ssid, pass := loaded.WiFiCredentials()
	if ssid != "office" || pass != "hunter2" {
		t.Errorf("WiFiCredentials() = %q, %q", ssid, pass)
	}
	if loaded.MaxPosition() != 115.5 {
		t.Errorf("MaxPosition() = %v, want 115.5", loaded.MaxPosition())
	}
	if loaded.LineCoordinate(2) != 35.5 {
		t.Errorf("LineCoordinate(2) = %v, want 35.5", loaded.LineCoordinate(2))
	}
	if !IsUnset(loaded.LineCoordinate(3)) {
		t.Errorf("LineCoordinate(3) = %v, want unset", loaded.LineCoordinate(3))
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file left behind after Save()")
	}
}

func TestReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	store, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	store.SetDeviceName("unsaved")
	if err := store.Reload(); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if store.DeviceName() != "" {
		t.Errorf("DeviceName() = %q after Reload, want empty", store.DeviceName())
	}
}

func TestParse(t *testing.T) {
	rec, err := Parse([]byte("version: 1\nwifi_ssid: lab\nmqtt:\n  host: broker.local\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if rec.WiFiSSID != "lab" || rec.MQTT.Host != "broker.local" {
		t.Errorf("Parse() = %+v", rec)
	}
	if rec.MQTT.Port != 1883 {
		t.Errorf("MQTT.Port = %d, want default 1883", rec.MQTT.Port)
	}

	if _, err := Parse([]byte("version: 9\n")); !errors.Is(err, ErrMalformed) {
		t.Errorf("Parse(version 9) error = %v, want ErrMalformed", err)
	}
}
