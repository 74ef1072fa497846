package deviceconfig

import (
	"fmt"
	"math"
	"strings"

	"github.com/aptl-dev/aptl/internal/config"
	"github.com/aptl-dev/aptl/internal/motor"
)

// ValidateWiFiSSID validates a WiFi SSID.
// SSIDs must be non-empty and <= 32 bytes (802.11 limit).
func ValidateWiFiSSID(ssid string) error {
	if ssid == "" {
		return NewValidationError("WiFi SSID cannot be empty")
	}
	if len(ssid) > 32 {
		return NewValidationError(fmt.Sprintf("WiFi SSID too long (max 32 bytes): %d bytes", len(ssid)))
	}
	return nil
}

// ValidateWiFiPassword validates a WiFi password: empty for an open
// network, otherwise 8-63 characters (WPA2 passphrase).
func ValidateWiFiPassword(password string) error {
	if password == "" {
		return nil
	}
	if len(password) < 8 {
		return NewValidationError(fmt.Sprintf("WPA2 password too short (min 8 chars): %d chars", len(password)))
	}
	if len(password) > 63 {
		return NewValidationError(fmt.Sprintf("WPA2 password too long (max 63 chars): %d chars", len(password)))
	}
	return nil
}

// ValidateWiFiCredentials validates a provisioning request.
// Returns a slice of validation errors (empty if valid).
func ValidateWiFiCredentials(creds *WiFiCredentials) []error {
	var errs []error
	if err := ValidateWiFiSSID(creds.SSID); err != nil {
		errs = append(errs, err)
	}
	if err := ValidateWiFiPassword(creds.Password); err != nil {
		errs = append(errs, err)
	}
	return errs
}

// ValidateBrokerPort validates an MQTT broker port.
func ValidateBrokerPort(port int) error {
	if port < 1 || port > 65535 {
		return NewValidationError(fmt.Sprintf("port must be 1-65535, got %d", port))
	}
	return nil
}

func warning(format string, args ...any) error {
	return NewValidationError("warning: " + fmt.Sprintf(format, args...))
}

// ValidateRecord checks a device configuration file. Problems that the
// device tolerates at runtime (no token, an unset line) are warnings.
// Returns a slice of validation errors (empty if valid).
func ValidateRecord(rec *config.Record) []error {
	var errs []error

	if rec.WiFiSSID == "" {
		errs = append(errs, warning("no Wi-Fi SSID configured, the device will start in setup mode"))
	} else if err := ValidateWiFiSSID(rec.WiFiSSID); err != nil {
		errs = append(errs, fmt.Errorf("wifi_ssid: %w", err))
	}
	if err := ValidateWiFiPassword(rec.WiFiPassword); err != nil {
		errs = append(errs, fmt.Errorf("wifi_password: %w", err))
	}

	if rec.MaxPosition < 0 || rec.MaxPosition > motor.MaxPositionLimitMM {
		errs = append(errs, NewValidationError(fmt.Sprintf("max_position must be 0-%.0f mm, got %.2f", motor.MaxPositionLimitMM, rec.MaxPosition)))
	}

	for line := config.FirstLine; line <= config.LastLine; line++ {
		mm, ok := rec.LineCoordinates[line]
		switch {
		case !ok || math.IsNaN(mm):
			errs = append(errs, warning("line %d coordinate is unset, its keys cannot be pressed", line))
		case mm < 0 || mm > motor.MaxPositionLimitMM:
			errs = append(errs, NewValidationError(fmt.Sprintf("line %d coordinate must be 0-%.0f mm, got %.2f", line, motor.MaxPositionLimitMM, mm)))
		}
	}
	for line := range rec.LineCoordinates {
		if line < config.FirstLine || line > config.LastLine {
			errs = append(errs, NewValidationError(fmt.Sprintf("line %d does not exist (lines are %d-%d)", line, config.FirstLine, config.LastLine)))
		}
	}

	if rec.MQTT.Host == "" {
		errs = append(errs, NewValidationError("mqtt.host cannot be empty"))
	}
	if err := ValidateBrokerPort(rec.MQTT.Port); err != nil {
		errs = append(errs, fmt.Errorf("mqtt.port: %w", err))
	}
	if rec.MQTT.Token == "" {
		errs = append(errs, warning("mqtt.token is empty, the broker will likely reject the device"))
	}

	if rec.Motor.Speed < motor.MinSpeed || rec.Motor.Speed > motor.MaxSpeed {
		errs = append(errs, NewValidationError(fmt.Sprintf("motor.speed must be %d-%d mm/s, got %d", motor.MinSpeed, motor.MaxSpeed, rec.Motor.Speed)))
	}
	if rec.Motor.IdleTimeoutMS < 0 {
		errs = append(errs, NewValidationError("motor.idle_timeout_ms cannot be negative"))
	}

	switch rec.Hardware.Backend {
	case "", config.BackendGPIO, config.BackendSim:
	default:
		errs = append(errs, NewValidationError(fmt.Sprintf("hardware.backend must be %q or %q, got %q", config.BackendGPIO, config.BackendSim, rec.Hardware.Backend)))
	}
	if len(rec.Hardware.ServoPins) != motor.ServoCount {
		errs = append(errs, NewValidationError(fmt.Sprintf("hardware.servo_pins needs %d pins, got %d", motor.ServoCount, len(rec.Hardware.ServoPins))))
	}

	return errs
}

// FormatValidationErrors formats a slice of validation errors into a user-friendly message.
func FormatValidationErrors(errors []error) string {
	if len(errors) == 0 {
		return "No validation errors"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Configuration validation failed with %d error(s):\n", len(errors)))
	for i, err := range errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// IsWarning checks if a validation error is a warning (non-fatal).
// Warnings have messages starting with "warning:".
func IsWarning(err error) bool {
	if devErr, ok := asDeviceError(err); ok {
		return strings.HasPrefix(devErr.Message, "warning:")
	}
	return strings.Contains(err.Error(), "warning:")
}

// SeparateWarningsAndErrors splits validation results into warnings and
// critical errors.
func SeparateWarningsAndErrors(errors []error) (warnings []error, criticalErrors []error) {
	for _, err := range errors {
		if IsWarning(err) {
			warnings = append(warnings, err)
		} else {
			criticalErrors = append(criticalErrors, err)
		}
	}
	return warnings, criticalErrors
}
