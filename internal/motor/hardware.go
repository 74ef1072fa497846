package motor

import "time"

// Driver is the STEP/DIR/ENABLE interface of the stepper driver.
type Driver interface {
	// SetEnabled powers the driver coils. Implementations handle the
	// active-low ENABLE line.
	SetEnabled(on bool) error
	// SetDirection selects travel away from (down) or toward the limit switch.
	SetDirection(down bool) error
	// Pulse emits one step: STEP high for halfPeriod, then low for halfPeriod.
	Pulse(halfPeriod time.Duration) error
}

// LimitSwitch reports the top end stop.
type LimitSwitch interface {
	Triggered() bool
}

// Servos positions the three press servos, numbered 1 to 3.
type Servos interface {
	SetAngle(servo int, degrees int) error
}

// Clock abstracts time so tests can run without real delays.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// Settings is the slice of the device configuration the controller reads
// and writes. config.Store satisfies it.
type Settings interface {
	SetMaxPosition(mm float64)
	LineCoordinate(line int) float64
	SetLineCoordinate(line int, mm float64)
}

type realClock struct{}

func (realClock) Now() time.Time        { return time.Now() }
func (realClock) Sleep(d time.Duration) { time.Sleep(d) }

// SystemClock returns a Clock backed by the time package.
func SystemClock() Clock {
	return realClock{}
}
