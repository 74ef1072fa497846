package hardware

import (
	"sync"
	"time"
)

// Sim is an in-memory carriage used by the sim backend and by tests. It
// tracks the physical distance to the limit switch in steps and records
// servo angles.
type Sim struct {
	mu       sync.Mutex
	travel   int64 // steps below the limit switch
	down     bool
	enabled  bool
	pulses   int64
	angles   map[int]int
	realTime bool
}

// NewSim creates a simulated carriage startSteps below the limit switch.
// With realTime set, Pulse sleeps for the full step period.
func NewSim(startSteps int64, realTime bool) *Sim {
	return &Sim{
		travel:   startSteps,
		angles:   make(map[int]int),
		realTime: realTime,
	}
}

func (s *Sim) SetEnabled(on bool) error {
	s.mu.Lock()
	s.enabled = on
	s.mu.Unlock()
	return nil
}

func (s *Sim) SetDirection(down bool) error {
	s.mu.Lock()
	s.down = down
	s.mu.Unlock()
	return nil
}

func (s *Sim) Pulse(halfPeriod time.Duration) error {
	if s.realTime {
		time.Sleep(2 * halfPeriod)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled {
		return nil
	}
	s.pulses++
	if s.down {
		s.travel++
	} else if s.travel > 0 {
		s.travel--
	}
	return nil
}

func (s *Sim) Triggered() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.travel <= 0
}

func (s *Sim) SetAngle(servo int, degrees int) error {
	s.mu.Lock()
	s.angles[servo] = degrees
	s.mu.Unlock()
	return nil
}

// Travel returns the distance to the limit switch in steps.
func (s *Sim) Travel() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.travel
}

// Pulses returns the number of steps taken while enabled.
func (s *Sim) Pulses() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pulses
}

// Angle returns the last angle written to servo.
func (s *Sim) Angle(servo int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.angles[servo]
}

func (s *Sim) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

func (s *Sim) Close() error { return nil }
