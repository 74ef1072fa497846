// Package logging provides structured logging for the APTL device.
//
// This package wraps a zap logger with convenience functions for the
// patterns used throughout the daemon: link state changes, remote commands,
// motion results and telemetry.
//
// # Log Levels
//
//   - Debug: telemetry records, raw MQTT payloads, completed moves
//   - Info: commands, connections, calibration
//   - Warn: interrupted moves, refused commands, reconnect attempts
//   - Error: persistence and hardware failures
//
// # Configuration
//
// Logging is silent unless a level is passed to Initialize or the
// APTL_LOG_LEVEL environment variable is set:
//
//	if err := logging.Initialize("info"); err != nil {
//	    return err
//	}
//	defer logging.Sync()
//
// # Specialized Logging
//
//	logging.LogConnection("mqtt", "connected", zap.String("broker", addr))
//	logging.LogCommand("up", 11)
//	logging.LogMove("move_by", 100, 100, 12.5)
//	logging.LogTelemetry(topic, payload)
package logging
