package motor

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/aptl-dev/aptl/internal/logging"
)

// KeyPosition locates a logical keypad button: the line the carriage must
// stop at and the servo that presses it.
type KeyPosition struct {
	Line  int
	Servo int
}

// keypad maps logical buttons 0-11 onto the 4x3 key grid.
//
//	line 1:  1  2  3
//	line 2:  4  5  6
//	line 3:  7  8  9
//	line 4: 10  0 11   (backspace, clear, submit)
var keypad = [...]KeyPosition{
	ButtonClear:     {Line: 4, Servo: ServoMiddle},
	1:               {Line: 1, Servo: ServoLeft},
	2:               {Line: 1, Servo: ServoMiddle},
	3:               {Line: 1, Servo: ServoRight},
	4:               {Line: 2, Servo: ServoLeft},
	5:               {Line: 2, Servo: ServoMiddle},
	6:               {Line: 2, Servo: ServoRight},
	7:               {Line: 3, Servo: ServoLeft},
	8:               {Line: 3, Servo: ServoMiddle},
	9:               {Line: 3, Servo: ServoRight},
	ButtonBackspace: {Line: 4, Servo: ServoLeft},
	ButtonSubmit:    {Line: 4, Servo: ServoRight},
}

// ErrMoveInterrupted aborts a key press when the carriage did not reach the line.
var ErrMoveInterrupted = errors.New("move to key line was interrupted")

// LookupKey returns the position of a logical button.
func LookupKey(button int) (KeyPosition, bool) {
	if button < 0 || button >= len(keypad) {
		return KeyPosition{}, false
	}
	return keypad[button], true
}

// PressButton presses servo 1-3 at the current carriage position.
func (c *Controller) PressButton(servo int) error {
	c.RefreshIdle()

	if !c.calibrated {
		return newPreconditionError("press_button", ErrNotCalibrated)
	}
	if c.emergencyStop {
		return newPreconditionError("press_button", ErrEmergencyStop)
	}
	if servo < 1 || servo > ServoCount {
		return newValidationError("press_button", fmt.Sprintf("invalid servo number %d", servo))
	}

	if err := c.servos.SetAngle(servo, ServoPressAngle); err != nil {
		return newHardwareError("press_button", "failed to move servo", err)
	}
	c.clock.Sleep(PressDuration)
	if err := c.servos.SetAngle(servo, ServoReleaseAngle); err != nil {
		return newHardwareError("press_button", "failed to release servo", err)
	}
	c.clock.Sleep(PressSettle)

	logging.Info("Button pressed", zap.Int("servo", servo))
	return nil
}

// PressSpecificButton moves to the line of a logical keypad button and
// presses it. A line without a stored coordinate aborts the press before any
// motion.
func (c *Controller) PressSpecificButton(button int) error {
	c.RefreshIdle()

	if !c.calibrated {
		return newPreconditionError("press_key", ErrNotCalibrated)
	}
	if c.emergencyStop {
		return newPreconditionError("press_key", ErrEmergencyStop)
	}

	key, ok := LookupKey(button)
	if !ok {
		return newValidationError("press_key",
			fmt.Sprintf("invalid button number %d, must be between 0 and 11", button))
	}

	coord := c.settings.LineCoordinate(key.Line)
	if math.IsNaN(coord) {
		return newCoordinateUnsetError("press_key", key.Line, button)
	}

	move, err := c.MoveTo(coord)
	if err != nil {
		return err
	}
	if move.Interrupted() {
		return newPreconditionError("press_key", ErrMoveInterrupted)
	}

	if err := c.PressButton(key.Servo); err != nil {
		return err
	}

	logging.Info("Key pressed",
		zap.Int("button", button),
		zap.Int("line", key.Line),
		zap.Int("servo", key.Servo),
	)
	return nil
}
