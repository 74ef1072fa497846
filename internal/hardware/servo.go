package hardware

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/aptl-dev/aptl/internal/logging"
)

// Hobby servo timing: 50 Hz frame, 0.5 ms at 0 degrees to 2.5 ms at 180.
const (
	servoFrequency = 50 * physic.Hertz
	servoFrame     = 20 * time.Millisecond
	servoMinPulse  = 500 * time.Microsecond
	servoMaxPulse  = 2500 * time.Microsecond
	servoMaxAngle  = 180
)

// ServoBank drives the three press servos with PWM via periph.
type ServoBank struct {
	pins []gpio.PinIO
}

// OpenServos initialises the periph host drivers and resolves the servo
// pins by name (e.g. "GPIO12"). Pins are ordered left, middle, right.
func OpenServos(names []string) (*ServoBank, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialise periph host: %w", err)
	}

	b := &ServoBank{}
	for _, name := range names {
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("servo pin %q not found", name)
		}
		b.pins = append(b.pins, p)
	}
	logging.Info("Servo pins resolved", zap.Strings("pins", names))
	return b, nil
}

// SetAngle moves servo 1..n to degrees.
func (b *ServoBank) SetAngle(servo int, degrees int) error {
	if servo < 1 || servo > len(b.pins) {
		return fmt.Errorf("servo %d out of range 1-%d", servo, len(b.pins))
	}
	if err := b.pins[servo-1].PWM(AngleDuty(degrees), servoFrequency); err != nil {
		return fmt.Errorf("servo %d: %w", servo, err)
	}
	return nil
}

// Close stops PWM output on all pins.
func (b *ServoBank) Close() error {
	var firstErr error
	for _, p := range b.pins {
		if err := p.Halt(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// AngleDuty converts a servo angle to a PWM duty cycle at 50 Hz. Angles are
// clamped to 0-180.
func AngleDuty(degrees int) gpio.Duty {
	if degrees < 0 {
		degrees = 0
	}
	if degrees > servoMaxAngle {
		degrees = servoMaxAngle
	}
	pulse := servoMinPulse + time.Duration(degrees)*(servoMaxPulse-servoMinPulse)/servoMaxAngle
	return gpio.Duty(int64(gpio.DutyMax) * int64(pulse) / int64(servoFrame))
}
