package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	appName    = "aptl"
	configFile = "config.yaml"
)

// ErrMalformed is returned by Load when the config file exists but cannot be
// parsed. The file is left untouched and the returned Store holds defaults.
var ErrMalformed = errors.New("malformed config file")

// GetConfigDir returns the configuration directory:
// $XDG_CONFIG_HOME/aptl or $HOME/.config/aptl.
func GetConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", appName), nil
}

// GetConfigPath returns the full path to the default configuration file.
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, configFile), nil
}

// Load reads the configuration at path.
//
// A missing file is created with defaults. A malformed file is reported with
// an error wrapping ErrMalformed; the Store is still usable and holds defaults,
// but the file on disk is not modified.
func Load(path string) (*Store, error) {
	s := NewStore(path)

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		if err := s.Save(); err != nil {
			return s, fmt.Errorf("failed to write default config: %w", err)
		}
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("failed to read config file: %w", err)
	}

	rec, err := decode(data)
	if err != nil {
		return s, err
	}
	s.rec = rec
	return s, nil
}

// Parse decodes a config file without touching the disk. Missing fields
// take their defaults.
func Parse(data []byte) (Record, error) {
	return decode(data)
}

func decode(data []byte) (Record, error) {
	var rec Record
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if rec.Version != CurrentVersion {
		return Record{}, fmt.Errorf("%w: unsupported config version: %d (expected %d)",
			ErrMalformed, rec.Version, CurrentVersion)
	}
	rec.fillDefaults()
	return rec, nil
}

// Save writes the current record to disk.
// Performs an atomic write to prevent corruption on crash.
func (s *Store) Save() error {
	s.fileMu.Lock()
	defer s.fileMu.Unlock()

	if s.path == "" {
		return errors.New("config store has no file path")
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	rec := s.Snapshot()
	data, err := yaml.Marshal(&rec)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# APTL Device Configuration
# Written by the device on provisioning and calibration changes.
# line_coordinates are millimetres from the top limit switch.
#
# Location: ` + s.path + `

`)
	data = append(header, data...)

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config file: %w", err)
	}

	return nil
}

// Reload re-reads the file, discarding in-memory changes.
func (s *Store) Reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	rec, err := decode(data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.rec = rec
	s.mu.Unlock()
	return nil
}
