package hardware

import (
	"fmt"
	"time"

	gpiod "github.com/warthog618/go-gpiocdev"
	"go.uber.org/zap"

	"github.com/aptl-dev/aptl/internal/logging"
)

// StepperConfig holds the GPIO character device line offsets for the
// stepper driver and the top limit switch.
type StepperConfig struct {
	Chip      string // e.g. "gpiochip0"
	StepPin   int
	DirPin    int
	EnablePin int // active LOW: LOW = enabled
	LimitPin  int // pulled up, LOW = triggered
}

// Stepper drives an A4988-style STEP/DIR/ENABLE driver and reads the limit
// switch through the Linux GPIO character device.
type Stepper struct {
	chip   *gpiod.Chip
	step   *gpiod.Line
	dir    *gpiod.Line
	enable *gpiod.Line
	limit  *gpiod.Line
}

// OpenStepper requests all lines. The driver starts disabled.
func OpenStepper(cfg StepperConfig) (*Stepper, error) {
	chip, err := gpiod.NewChip(cfg.Chip)
	if err != nil {
		return nil, fmt.Errorf("failed to open GPIO chip %s: %w", cfg.Chip, err)
	}

	s := &Stepper{chip: chip}

	if s.step, err = chip.RequestLine(cfg.StepPin, gpiod.AsOutput(0)); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to request STEP line %d: %w", cfg.StepPin, err)
	}
	if s.dir, err = chip.RequestLine(cfg.DirPin, gpiod.AsOutput(0)); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to request DIR line %d: %w", cfg.DirPin, err)
	}
	if s.enable, err = chip.RequestLine(cfg.EnablePin, gpiod.AsOutput(1)); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to request ENABLE line %d: %w", cfg.EnablePin, err)
	}
	if s.limit, err = chip.RequestLine(cfg.LimitPin, gpiod.AsInput, gpiod.WithPullUp); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to request limit switch line %d: %w", cfg.LimitPin, err)
	}

	logging.Info("Stepper lines requested",
		zap.String("chip", cfg.Chip),
		zap.Int("step", cfg.StepPin),
		zap.Int("dir", cfg.DirPin),
		zap.Int("enable", cfg.EnablePin),
		zap.Int("limit", cfg.LimitPin),
	)
	return s, nil
}

// SetEnabled drives ENABLE low to power the coils.
func (s *Stepper) SetEnabled(on bool) error {
	if on {
		return s.enable.SetValue(0)
	}
	return s.enable.SetValue(1)
}

// SetDirection drives DIR high for downward travel.
func (s *Stepper) SetDirection(down bool) error {
	if down {
		return s.dir.SetValue(1)
	}
	return s.dir.SetValue(0)
}

// Pulse emits one STEP pulse.
func (s *Stepper) Pulse(halfPeriod time.Duration) error {
	if err := s.step.SetValue(1); err != nil {
		return err
	}
	spin(halfPeriod)
	if err := s.step.SetValue(0); err != nil {
		return err
	}
	spin(halfPeriod)
	return nil
}

// Triggered reports the limit switch state. A read error is treated as
// triggered so upward travel stops.
func (s *Stepper) Triggered() bool {
	v, err := s.limit.Value()
	if err != nil {
		logging.Error("Failed to read limit switch", zap.Error(err))
		return true
	}
	return v == 0
}

// Close disables the driver and releases all lines.
func (s *Stepper) Close() error {
	if s.enable != nil {
		_ = s.enable.SetValue(1)
	}
	for _, l := range []*gpiod.Line{s.step, s.dir, s.enable, s.limit} {
		if l != nil {
			l.Close()
		}
	}
	if s.chip != nil {
		return s.chip.Close()
	}
	return nil
}

// spin busy-waits for d. Step half periods are well under a millisecond,
// below what the scheduler resolves reliably with time.Sleep.
func spin(d time.Duration) {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
	}
}
