// Package config provides the persisted device configuration for the APTL
// actuator.
//
// The configuration is a single YAML document holding device identity,
// Wi-Fi credentials, the maximum travel distance, the four keypad line
// coordinates, and the broker and hardware settings the daemon needs.
//
// # Configuration File Location
//
//   - $XDG_CONFIG_HOME/aptl/config.yaml or $HOME/.config/aptl/config.yaml
//   - or any path passed with --config
//
// # Load Semantics
//
// A missing file is created with defaults. A malformed file (bad YAML or an
// unknown schema version) is reported through ErrMalformed and left as it is;
// the returned Store still works and holds defaults in memory.
//
// # Usage Example
//
//	store, err := config.Load(path)
//	if errors.Is(err, config.ErrMalformed) {
//	    logging.Warn("Using default configuration", zap.Error(err))
//	} else if err != nil {
//	    return err
//	}
//
//	store.SetLineCoordinate(2, 37.5)
//	if err := store.Save(); err != nil {
//	    return err
//	}
//
// # Unset Line Coordinates
//
// A line missing from line_coordinates reads back as NaN. Use IsUnset to test
// for it; the motor core refuses to press a key on an unset line.
//
// # Thread Safety
//
// Store accessors take an internal RWMutex. Save serialises file writes and
// uses a temp file plus rename so a crash never leaves a half-written file.
package config
