package config

import "testing"

func TestSetLineCoordinate(t *testing.T) {
	tests := []struct {
		name string
		line int
		mm   float64
		want float64
	}{
		{"positive", 2, 42.5, 42.5},
		{"negative clamps to zero", 3, -4, 0},
		{"zero", 1, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore("")
			s.SetLineCoordinate(tt.line, tt.mm)
			if got := s.LineCoordinate(tt.line); got != tt.want {
				t.Errorf("LineCoordinate(%d) = %v, want %v", tt.line, got, tt.want)
			}
		})
	}
}

func TestSetLineCoordinateOutOfRange(t *testing.T) {
	s := NewStore("")
	s.SetLineCoordinate(0, 5)
	s.SetLineCoordinate(5, 5)

	coords := s.LineCoordinates()
	if len(coords) != 4 {
		t.Errorf("len(LineCoordinates()) = %d, want 4", len(coords))
	}
	if !IsUnset(s.LineCoordinate(5)) {
		t.Error("line 5 should read back as unset")
	}
}

func TestSetMaxPositionIgnoresNonPositive(t *testing.T) {
	s := NewStore("")
	s.SetMaxPosition(80)
	s.SetMaxPosition(0)
	s.SetMaxPosition(-3)

	if s.MaxPosition() != 80 {
		t.Errorf("MaxPosition() = %v, want 80", s.MaxPosition())
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	s := NewStore("")
	snap := s.Snapshot()
	snap.LineCoordinates[1] = 99
	snap.Hardware.ServoPins[0] = "X"

	if s.LineCoordinate(1) != 0 {
		t.Error("mutating a snapshot changed the store")
	}
	if s.Hardware().ServoPins[0] != "GPIO12" {
		t.Error("mutating snapshot servo pins changed the store")
	}
}
