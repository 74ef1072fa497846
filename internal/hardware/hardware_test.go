package hardware

import (
	"testing"
	"time"

	"periph.io/x/conn/v3/gpio"

	"github.com/aptl-dev/aptl/internal/config"
	"github.com/aptl-dev/aptl/internal/motor"
)

func TestAngleDuty(t *testing.T) {
	tests := []struct {
		degrees int
		pulse   time.Duration
	}{
		{0, 500 * time.Microsecond},
		{90, 1500 * time.Microsecond},
		{180, 2500 * time.Microsecond},
		{-10, 500 * time.Microsecond},
		{200, 2500 * time.Microsecond},
	}

	for _, tt := range tests {
		want := gpio.Duty(int64(gpio.DutyMax) * int64(tt.pulse) / int64(20*time.Millisecond))
		if got := AngleDuty(tt.degrees); got != want {
			t.Errorf("AngleDuty(%d) = %v, want %v", tt.degrees, got, want)
		}
	}
}

func TestSimTravel(t *testing.T) {
	sim := NewSim(3, false)

	_ = sim.Pulse(0)
	if sim.Pulses() != 0 {
		t.Error("disabled sim counted a pulse")
	}

	_ = sim.SetEnabled(true)
	_ = sim.SetDirection(false)
	for i := 0; i < 5; i++ {
		_ = sim.Pulse(0)
	}
	if !sim.Triggered() || sim.Travel() != 0 {
		t.Errorf("Travel() = %d, Triggered() = %v, want 0, true", sim.Travel(), sim.Triggered())
	}

	_ = sim.SetDirection(true)
	_ = sim.Pulse(0)
	if sim.Triggered() {
		t.Error("switch still triggered after moving down")
	}
}

func TestSimDrivesController(t *testing.T) {
	sim := NewSim(250, false)
	store := config.NewStore("")
	c := motor.New(motor.Config{Driver: sim, Limit: sim, Servos: sim, Settings: store})
	if err := c.Setup(); err != nil {
		t.Fatal(err)
	}
	c.SetIdleTimeout(0)

	if err := c.Calibrate(); err != nil {
		t.Fatalf("Calibrate() error = %v", err)
	}
	if sim.Travel() != motor.ClearanceSteps {
		t.Errorf("Travel() = %d, want %d", sim.Travel(), motor.ClearanceSteps)
	}

	if _, err := c.MoveBy(5); err != nil {
		t.Fatalf("MoveBy() error = %v", err)
	}
	if sim.Travel() != motor.ClearanceSteps+50 {
		t.Errorf("Travel() = %d, want %d", sim.Travel(), motor.ClearanceSteps+50)
	}
}

func TestOpenSim(t *testing.T) {
	rig, err := Open(config.HardwareConfig{Backend: config.BackendSim})
	if err != nil {
		t.Fatalf("Open(sim) error = %v", err)
	}
	defer rig.Close()

	if rig.Driver == nil || rig.Limit == nil || rig.Servos == nil {
		t.Error("sim rig is missing a component")
	}

	if _, err := Open(config.HardwareConfig{Backend: "plc"}); err == nil {
		t.Error("Open() with unknown backend should fail")
	}
}
