// Package motor implements the actuator core of the APTL device: a belt
// driven carriage on a stepper motor with a single top limit switch, and
// three hobby servos mounted on the carriage that press keys on a 4x3
// keypad.
//
// # Position Model
//
// Position is counted in motor steps below the calibrated zero, which sits
// ClearanceSteps below the limit switch. StepsPerMM converts to millimetres.
// Until Calibrate succeeds the position is not trusted and every absolute
// move calibrates first.
//
// # Motion
//
// StepMotor is the only code that pulses the driver. It checks the
// emergency stop and, when moving up, the limit switch before every pulse,
// so a move can complete fewer steps than requested. Such a move is not an
// error; the returned Move reports it through Interrupted.
//
// # Keypad
//
// PressSpecificButton maps a logical button to a (line, servo) pair:
//
//	line 1:  1  2  3
//	line 2:  4  5  6
//	line 3:  7  8  9
//	line 4: 10  0 11
//
// Line coordinates come from Settings and are captured on site with
// SaveLineCoordinate.
//
// # Idle Timer
//
// CheckIdle powers the driver down after IdleTimeout without activity and
// clears the calibrated flag. Any motion or press re-enables it.
//
// # Errors
//
// Refusals are returned as *Error values classified by ErrorType. None of
// them is fatal; the caller logs and continues.
package motor
