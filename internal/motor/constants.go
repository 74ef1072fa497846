package motor

import "time"

// Mechanical drive train: GT2 belt on a 20 tooth pulley, 200 step motor at
// half stepping.
const (
	PulleyTeeth = 20
	BeltPitchMM = 2
	Microsteps  = 2
	StepsPerRev = 200

	// StepsPerMM converts millimetres of carriage travel to motor steps.
	StepsPerMM = StepsPerRev * Microsteps / (PulleyTeeth * BeltPitchMM)
)

const (
	// ClearanceSteps is how far calibration backs off the limit switch.
	ClearanceSteps = 50

	// MaxPositionLimitMM is the absolute travel ceiling.
	MaxPositionLimitMM = 120.0

	// CalibrationMaxSteps bounds the search for the limit switch at twice
	// the full travel.
	CalibrationMaxSteps = 2 * int64(MaxPositionLimitMM*StepsPerMM)

	MinSpeed = 50 // mm/s
	MaxSpeed = 70 // mm/s

	// initialHalfPeriod is the half step period before SetSpeed is called.
	initialHalfPeriod = 500 * time.Microsecond

	// idleRefreshMask refreshes the idle timer every 256 steps.
	idleRefreshMask = 0xFF
)

// Servo press sequence.
const (
	ServoCount        = 3
	ServoReleaseAngle = 0
	ServoPressAngle   = 25
	PressDuration     = 700 * time.Millisecond
	PressSettle       = 500 * time.Millisecond
)

const (
	// DefaultIdleTimeout disables the driver after a minute without motion.
	DefaultIdleTimeout = time.Minute

	stepSettle        = 50 * time.Millisecond
	calibrationSettle = time.Second
)

// Servo positions on the carriage.
const (
	ServoLeft   = 1
	ServoMiddle = 2
	ServoRight  = 3
)

// Logical keypad buttons outside the digit range.
const (
	ButtonClear     = 0
	ButtonBackspace = 10
	ButtonSubmit    = 11
)
