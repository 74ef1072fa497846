package motor

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/aptl-dev/aptl/internal/logging"
)

// Config wires a Controller to its hardware and settings.
type Config struct {
	Driver   Driver
	Limit    LimitSwitch
	Servos   Servos
	Settings Settings
	Clock    Clock // defaults to SystemClock
}

// Controller is the actuator state machine: calibration, bounded motion,
// servo presses and the idle auto-disable timer.
//
// A Controller is not safe for concurrent use. The daemon drives it from a
// single dispatch goroutine and publishes Status snapshots to other readers.
type Controller struct {
	driver   Driver
	limit    LimitSwitch
	servos   Servos
	settings Settings
	clock    Clock

	position    int64 // steps below the calibrated zero
	maxPosition int64 // steps, 0 = unset
	halfPeriod  time.Duration

	calibrated         bool
	emergencyStop      bool
	maxPositionSetting bool
	disabled           bool

	idleTimeout  time.Duration
	lastActivity time.Time
}

// Move describes the outcome of a motion request in steps.
type Move struct {
	Requested int64
	Completed int64
}

// Interrupted reports whether the limit switch or the emergency stop cut the
// move short.
func (m Move) Interrupted() bool {
	return m.Completed < m.Requested
}

// Status is a point-in-time view of the controller.
type Status struct {
	PositionMM         float64 `json:"position_mm"`
	PositionSteps      int64   `json:"position_steps"`
	MaxPositionMM      float64 `json:"max_position_mm"`
	Speed              int     `json:"speed"`
	Calibrated         bool    `json:"calibrated"`
	Enabled            bool    `json:"enabled"`
	EmergencyStop      bool    `json:"emergency_stop"`
	MaxPositionSetting bool    `json:"max_position_setting"`
	IdleTimeoutMS      int64   `json:"idle_timeout_ms"`
}

// New creates a Controller. Call Setup before the first motion.
func New(cfg Config) *Controller {
	clock := cfg.Clock
	if clock == nil {
		clock = SystemClock()
	}
	return &Controller{
		driver:       cfg.Driver,
		limit:        cfg.Limit,
		servos:       cfg.Servos,
		settings:     cfg.Settings,
		clock:        clock,
		halfPeriod:   initialHalfPeriod,
		idleTimeout:  DefaultIdleTimeout,
		lastActivity: clock.Now(),
	}
}

// Setup enables the driver, selects the minimum speed and releases all servos.
func (c *Controller) Setup() error {
	logging.Info("Setting up motor and servos")

	if err := c.driver.SetEnabled(true); err != nil {
		return newHardwareError("setup", "failed to enable driver", err)
	}
	c.disabled = false
	if err := c.SetSpeed(MinSpeed); err != nil {
		return err
	}
	for servo := 1; servo <= ServoCount; servo++ {
		if err := c.servos.SetAngle(servo, ServoReleaseAngle); err != nil {
			return newHardwareError("setup", "failed to release servo", err)
		}
	}
	c.lastActivity = c.clock.Now()
	return nil
}

// SetSpeed sets the carriage speed in mm/s, between MinSpeed and MaxSpeed.
func (c *Controller) SetSpeed(speed int) error {
	if speed < MinSpeed || speed > MaxSpeed {
		return newValidationError("set_speed",
			"speed out of bounds, must be between 50 and 70 mm/s")
	}
	halfMicros := (1000000 / (speed * StepsPerMM)) / 2
	c.halfPeriod = time.Duration(halfMicros) * time.Microsecond
	logging.Info("Speed set", zap.Int("mm_per_s", speed))
	return nil
}

// Speed returns the carriage speed in mm/s derived from the step period.
func (c *Controller) Speed() int {
	halfMicros := int(c.halfPeriod / time.Microsecond)
	if halfMicros <= 0 {
		return 0
	}
	return (1000000 / (halfMicros * StepsPerMM)) / 2
}

// SetMaxPositionSetting toggles the privileged mode that allows
// SetMaximumPosition.
func (c *Controller) SetMaxPositionSetting(on bool) {
	c.maxPositionSetting = on
}

func (c *Controller) MaxPositionSetting() bool {
	return c.maxPositionSetting
}

// SetMaximumPosition sets the travel ceiling and mirrors it into Settings.
func (c *Controller) SetMaximumPosition(mm float64) error {
	if !c.maxPositionSetting {
		return newPreconditionError("set_max_position", ErrMaxSettingOff)
	}
	if math.IsNaN(mm) || mm <= 0 || mm > MaxPositionLimitMM {
		return newValidationError("set_max_position",
			"maximum position must be greater than 0 and at most 120 mm")
	}
	c.maxPosition = mmToSteps(mm)
	c.settings.SetMaxPosition(mm)
	logging.Info("Maximum position set", zap.Float64("mm", mm))
	return nil
}

// MaximumPositionMM returns the travel ceiling in mm (0 = unset).
func (c *Controller) MaximumPositionMM() float64 {
	return float64(c.maxPosition) / StepsPerMM
}

// Position returns the carriage position in steps.
func (c *Controller) Position() int64 {
	return c.position
}

// PositionMM returns the carriage position in mm.
func (c *Controller) PositionMM() float64 {
	return float64(c.position) / StepsPerMM
}

func (c *Controller) Calibrated() bool {
	return c.calibrated
}

// Enabled reports whether the driver is powered.
func (c *Controller) Enabled() bool {
	return !c.disabled
}

// SetEmergencyStop sets or clears the emergency stop flag. While set, every
// motion and press is refused and a running step loop halts before its next
// pulse.
func (c *Controller) SetEmergencyStop(on bool) {
	c.emergencyStop = on
	if on {
		logging.Warn("Emergency stop engaged")
	}
}

func (c *Controller) EmergencyStop() bool {
	return c.emergencyStop
}

// Status returns a snapshot of the controller state.
func (c *Controller) Status() Status {
	return Status{
		PositionMM:         c.PositionMM(),
		PositionSteps:      c.position,
		MaxPositionMM:      c.MaximumPositionMM(),
		Speed:              c.Speed(),
		Calibrated:         c.calibrated,
		Enabled:            !c.disabled,
		EmergencyStop:      c.emergencyStop,
		MaxPositionSetting: c.maxPositionSetting,
		IdleTimeoutMS:      c.idleTimeout.Milliseconds(),
	}
}

// Calibrate drives up to the limit switch, backs off ClearanceSteps and makes
// that point position zero. If the switch does not trigger within
// CalibrationMaxSteps pulses, calibration fails and the controller stays
// uncalibrated.
func (c *Controller) Calibrate() error {
	logging.Info("Calibrating tool position")
	c.RefreshIdle()

	if c.emergencyStop {
		return newPreconditionError("calibrate", ErrEmergencyStop)
	}

	if err := c.driver.SetEnabled(true); err != nil {
		return newHardwareError("calibrate", "failed to enable driver", err)
	}
	if err := c.driver.SetDirection(false); err != nil {
		return newHardwareError("calibrate", "failed to set direction", err)
	}

	var pulses int64
	for !c.limit.Triggered() {
		if pulses >= CalibrationMaxSteps {
			logging.Error("Limit switch never triggered",
				zap.Int64("pulses", pulses))
			return newCalibrationError("limit switch not reached within travel bound")
		}
		if c.emergencyStop {
			return newPreconditionError("calibrate", ErrEmergencyStop)
		}
		if err := c.driver.Pulse(c.halfPeriod); err != nil {
			return newHardwareError("calibrate", "step pulse failed", err)
		}
		pulses++
		if pulses&idleRefreshMask == 0 {
			c.RefreshIdle()
		}
	}

	c.StepMotor(true, ClearanceSteps)
	c.position = 0
	c.calibrated = true
	c.clock.Sleep(calibrationSettle)

	logging.Info("Calibration complete", zap.Int64("search_steps", pulses))
	return nil
}

// MoveTo moves the carriage to an absolute position in mm.
func (c *Controller) MoveTo(mm float64) (Move, error) {
	c.RefreshIdle()

	if math.IsNaN(mm) || math.IsInf(mm, 0) {
		return Move{}, newValidationError("move_to", "invalid target position")
	}

	if !c.calibrated {
		logging.Info("Motor not calibrated, calibrating before move")
		if err := c.Calibrate(); err != nil {
			return Move{}, err
		}
	}

	if c.emergencyStop {
		return Move{}, newPreconditionError("move_to", ErrEmergencyStop)
	}

	if c.maxPosition == 0 {
		return Move{}, newPreconditionError("move_to", ErrMaxPositionUnset)
	}

	target := mmToSteps(mm)
	if target < 0 || target > c.maxPosition || target > limitSteps() {
		return Move{}, newValidationError("move_to", "target position out of bounds")
	}

	return c.moveSteps("move_to", target-c.position), nil
}

// MoveBy moves the carriage by a relative distance in mm. Only the absolute
// 0..120 mm window bounds it; the configured maximum is not consulted.
//
// When uncalibrated, the position held before calibration is remembered,
// the carriage is calibrated and then returned to that position before the
// delta is applied.
func (c *Controller) MoveBy(deltaMM float64) (Move, error) {
	c.RefreshIdle()

	if math.IsNaN(deltaMM) || math.IsInf(deltaMM, 0) {
		return Move{}, newValidationError("move_by", "invalid movement value")
	}

	if !c.calibrated {
		previous := c.PositionMM()
		logging.Info("Tool not calibrated, calibrating first",
			zap.Float64("previous_mm", previous))
		if err := c.Calibrate(); err != nil {
			return Move{}, err
		}
		if _, err := c.MoveTo(previous); err != nil {
			logging.Warn("Could not return to previous position", zap.Error(err))
		}
	}

	if c.emergencyStop {
		return Move{}, newPreconditionError("move_by", ErrEmergencyStop)
	}

	target := c.position + mmToSteps(deltaMM)
	if target < 0 || target > limitSteps() {
		return Move{}, newValidationError("move_by", "target position out of bounds")
	}

	return c.moveSteps("move_by", target-c.position), nil
}

func (c *Controller) moveSteps(op string, delta int64) Move {
	if delta == 0 {
		logging.Debug("Already at target position", zap.String("op", op))
		return Move{}
	}
	requested := delta
	if requested < 0 {
		requested = -requested
	}
	moved := c.StepMotor(delta > 0, requested)
	logging.LogMove(op, requested, moved, c.PositionMM())
	return Move{Requested: requested, Completed: moved}
}

// StepMotor emits up to steps pulses in one direction and returns how many
// completed. Moving up stops as soon as the limit switch triggers; any
// direction stops when the emergency stop is set. The position is updated by
// the completed count only.
func (c *Controller) StepMotor(down bool, steps int64) int64 {
	c.RefreshIdle()

	if c.emergencyStop {
		logging.Warn("Emergency stop is active, cannot move motor")
		return 0
	}
	if steps <= 0 {
		return 0
	}
	if !down && c.limit.Triggered() {
		logging.Warn("Top limit switch triggered, cannot move up")
		return 0
	}

	if err := c.driver.SetEnabled(true); err != nil {
		logging.Error("Failed to enable driver", zap.Error(err))
		return 0
	}
	if err := c.driver.SetDirection(down); err != nil {
		logging.Error("Failed to set direction", zap.Error(err))
		return 0
	}

	var moved int64
	for moved < steps {
		if c.emergencyStop {
			logging.Warn("Emergency stop detected, halting")
			break
		}
		if !down && c.limit.Triggered() {
			logging.Info("Top limit reached, stopping")
			break
		}
		if err := c.driver.Pulse(c.halfPeriod); err != nil {
			logging.Error("Step pulse failed", zap.Error(err))
			break
		}
		moved++
		if moved&idleRefreshMask == 0 {
			c.RefreshIdle()
		}
	}

	if down {
		c.position += moved
	} else {
		c.position -= moved
	}

	c.clock.Sleep(stepSettle)
	return moved
}

// Disable powers down the driver. The carriage may drift while unpowered, so
// calibration is invalidated.
func (c *Controller) Disable() {
	if c.disabled {
		return
	}
	if err := c.driver.SetEnabled(false); err != nil {
		logging.Error("Failed to disable driver", zap.Error(err))
	}
	c.disabled = true
	c.calibrated = false
	logging.Info("Motor disabled")
}

// SetIdleTimeout sets how long the driver stays powered without activity.
// Zero disables the timer.
func (c *Controller) SetIdleTimeout(d time.Duration) {
	c.idleTimeout = d
	logging.Info("Idle timeout set", zap.Duration("timeout", d))
}

func (c *Controller) IdleTimeout() time.Duration {
	return c.idleTimeout
}

// CheckIdle disables the driver once the idle timeout has elapsed since the
// last activity.
func (c *Controller) CheckIdle() {
	if c.idleTimeout == 0 || c.disabled {
		return
	}
	if c.clock.Now().Sub(c.lastActivity) >= c.idleTimeout {
		logging.Info("Motor idle timeout reached, disabling motor")
		c.Disable()
	}
}

// RefreshIdle records activity and re-enables a disabled driver.
func (c *Controller) RefreshIdle() {
	c.lastActivity = c.clock.Now()
	if c.disabled {
		if err := c.driver.SetEnabled(true); err != nil {
			logging.Error("Failed to re-enable driver", zap.Error(err))
			return
		}
		c.disabled = false
		logging.Info("Motor re-enabled due to activity")
	}
}

// SaveLineCoordinate stores the current position as the coordinate of line 1-4.
func (c *Controller) SaveLineCoordinate(line int) error {
	if line < 1 || line > 4 {
		return newValidationError("save_line", "line must be between 1 and 4")
	}
	mm := c.PositionMM()
	c.settings.SetLineCoordinate(line, mm)
	logging.Info("Line coordinate saved", zap.Int("line", line), zap.Float64("mm", mm))
	return nil
}

func mmToSteps(mm float64) int64 {
	return int64(math.Round(mm * StepsPerMM))
}

func limitSteps() int64 {
	return int64(MaxPositionLimitMM * StepsPerMM)
}
