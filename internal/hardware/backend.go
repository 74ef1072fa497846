package hardware

import (
	"fmt"
	"io"

	"github.com/aptl-dev/aptl/internal/config"
	"github.com/aptl-dev/aptl/internal/motor"
)

// Rig bundles the hardware a motor.Controller needs.
type Rig struct {
	Driver motor.Driver
	Limit  motor.LimitSwitch
	Servos motor.Servos

	closers []io.Closer
}

// Close releases every opened device.
func (r *Rig) Close() error {
	var firstErr error
	for _, c := range r.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// simStartSteps places the simulated carriage mid travel.
const simStartSteps = 600

// Open builds the rig selected by cfg.Backend.
func Open(cfg config.HardwareConfig) (*Rig, error) {
	switch cfg.Backend {
	case config.BackendSim:
		sim := NewSim(simStartSteps, true)
		return &Rig{Driver: sim, Limit: sim, Servos: sim, closers: []io.Closer{sim}}, nil

	case config.BackendGPIO, "":
		stepper, err := OpenStepper(StepperConfig{
			Chip:      cfg.Chip,
			StepPin:   cfg.StepPin,
			DirPin:    cfg.DirPin,
			EnablePin: cfg.EnablePin,
			LimitPin:  cfg.LimitPin,
		})
		if err != nil {
			return nil, err
		}
		servos, err := OpenServos(cfg.ServoPins)
		if err != nil {
			stepper.Close()
			return nil, err
		}
		return &Rig{
			Driver:  stepper,
			Limit:   stepper,
			Servos:  servos,
			closers: []io.Closer{servos, stepper},
		}, nil

	default:
		return nil, fmt.Errorf("unknown hardware backend %q", cfg.Backend)
	}
}
