package motor

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of a refused or failed operation
type ErrorType int

const (
	// ErrTypeValidation indicates an out-of-range or non-finite argument
	ErrTypeValidation ErrorType = iota
	// ErrTypePrecondition indicates the controller is not in a state that allows the operation
	ErrTypePrecondition
	// ErrTypeCoordinateUnset indicates a keypad line has no stored coordinate
	ErrTypeCoordinateUnset
	// ErrTypeCalibration indicates the limit switch was never reached
	ErrTypeCalibration
	// ErrTypeHardware indicates a pin or servo write failed
	ErrTypeHardware
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeValidation:
		return "Validation Error"
	case ErrTypePrecondition:
		return "Precondition Failed"
	case ErrTypeCoordinateUnset:
		return "Coordinate Unset"
	case ErrTypeCalibration:
		return "Calibration Failed"
	case ErrTypeHardware:
		return "Hardware Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// Error is returned by every Controller operation that refuses to act.
// None of them leave the controller in an unusable state.
type Error struct {
	Type    ErrorType // Category of error
	Op      string    // Operation that refused, e.g. "move_to"
	Message string    // Human-readable error message
	Line    int       // Keypad line for ErrTypeCoordinateUnset
	Err     error     // Underlying error (if any)
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s (caused by: %v)", e.Op, e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// Sentinel causes for precondition failures.
var (
	ErrNotCalibrated    = errors.New("not calibrated")
	ErrEmergencyStop    = errors.New("emergency stop is active")
	ErrMaxPositionUnset = errors.New("maximum position not set")
	ErrMaxSettingOff    = errors.New("maximum position setting is not enabled")
	ErrLimitTriggered   = errors.New("top limit switch triggered")
)

func newValidationError(op, message string) *Error {
	return &Error{Type: ErrTypeValidation, Op: op, Message: message}
}

func newPreconditionError(op string, cause error) *Error {
	return &Error{Type: ErrTypePrecondition, Op: op, Message: cause.Error(), Err: cause}
}

func newCoordinateUnsetError(op string, line, button int) *Error {
	return &Error{
		Type:    ErrTypeCoordinateUnset,
		Op:      op,
		Line:    line,
		Message: fmt.Sprintf("Line %d coordinate not set. Cannot press button %d", line, button),
	}
}

func newCalibrationError(message string) *Error {
	return &Error{Type: ErrTypeCalibration, Op: "calibrate", Message: message}
}

func newHardwareError(op, message string, err error) *Error {
	return &Error{Type: ErrTypeHardware, Op: op, Message: message, Err: err}
}

func errorType(err error) (ErrorType, bool) {
	var merr *Error
	if errors.As(err, &merr) {
		return merr.Type, true
	}
	return 0, false
}

// IsValidationError checks if an error is an argument validation error
func IsValidationError(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeValidation
}

// IsPreconditionError checks if an error is a state precondition failure
func IsPreconditionError(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypePrecondition
}

// IsCoordinateUnsetError checks if an error reports an unset keypad line
func IsCoordinateUnsetError(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeCoordinateUnset
}

// IsCalibrationError checks if calibration could not find the limit switch
func IsCalibrationError(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeCalibration
}

// IsHardwareError checks if a hardware write failed
func IsHardwareError(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeHardware
}
