package console

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/aptl-dev/aptl/internal/motor"
)

type fakeTarget struct {
	calls    []string
	position float64
	failWith error
	short    bool
}

func (f *fakeTarget) record(s string) error {
	f.calls = append(f.calls, s)
	return f.failWith
}

func (f *fakeTarget) Calibrate() error { return f.record("calibrate") }

func (f *fakeTarget) MoveTo(mm float64) (motor.Move, error) {
	if err := f.record(fmt.Sprintf("move_to %g", mm)); err != nil {
		return motor.Move{}, err
	}
	m := motor.Move{Requested: 10, Completed: 10}
	if f.short {
		m.Completed = 4
	}
	f.position = mm
	return m, nil
}

func (f *fakeTarget) MoveBy(delta float64) (motor.Move, error) {
	if err := f.record(fmt.Sprintf("move_by %g", delta)); err != nil {
		return motor.Move{}, err
	}
	f.position += delta
	return motor.Move{Requested: 10, Completed: 10}, nil
}

func (f *fakeTarget) PressButton(servo int) error { return f.record(fmt.Sprintf("press %d", servo)) }
func (f *fakeTarget) PressSpecificButton(b int) error {
	return f.record(fmt.Sprintf("key %d", b))
}
func (f *fakeTarget) SaveLineCoordinate(line int) error {
	return f.record(fmt.Sprintf("line %d", line))
}
func (f *fakeTarget) SetSpeed(speed int) error { return f.record(fmt.Sprintf("speed %d", speed)) }
func (f *fakeTarget) Disable()                 { _ = f.record("disable") }
func (f *fakeTarget) Status() motor.Status {
	return motor.Status{PositionMM: f.position, Calibrated: true, Speed: 50}
}

func TestExecute(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		wantCalls []string
		wantOut   string
	}{
		{"calibrate", "C", []string{"calibrate"}, "[-] calibrated\r\n"},
		{"lower case", "c", []string{"calibrate"}, "[-] calibrated\r\n"},
		{"move absolute", "M40", []string{"move_to 40"}, "[-] position=40.00 mm\r\n"},
		{"move relative", "M+5 M-2.5", []string{"move_by 5", "move_by -2.5"}, "[-] position=5.00 mm\r\n[-] position=2.50 mm\r\n"},
		{"press", "B2", []string{"press 2"}, "[-] B2\r\n"},
		{"key", "K11", []string{"key 11"}, "[-] K11\r\n"},
		{"speed", "S60", []string{"speed 60"}, "[-] speed=60 mm/s\r\n"},
		{"disable", "D", []string{"disable"}, "[-] driver disabled\r\n"},
		{"several", "C K0", []string{"calibrate", "key 0"}, "[-] calibrated\r\n[-] K0\r\n"},
		{"unknown", "Z1", nil, "error: unknown command \"Z1\"\r\n"},
		{"missing arg", "B", nil, "error: missing argument\r\n"},
		{"bad arg", "Kx", nil, "error: invalid input: x\r\n"},
		{"blank", "   ", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := &fakeTarget{}
			var out bytes.Buffer
			New(Config{Target: target}, &out).Execute(tt.in)

			if strings.Join(target.calls, ",") != strings.Join(tt.wantCalls, ",") {
				t.Errorf("calls = %v, want %v", target.calls, tt.wantCalls)
			}
			if out.String() != tt.wantOut {
				t.Errorf("output = %q, want %q", out.String(), tt.wantOut)
			}
		})
	}
}

func TestExecute_TargetError(t *testing.T) {
	target := &fakeTarget{failWith: errors.New("not calibrated")}
	var out bytes.Buffer
	New(Config{Target: target}, &out).Execute("K5")

	if out.String() != "error: not calibrated\r\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestExecute_InterruptedMove(t *testing.T) {
	target := &fakeTarget{short: true}
	var out bytes.Buffer
	New(Config{Target: target}, &out).Execute("M30")

	if !strings.HasPrefix(out.String(), "[-] interrupted after 4/10 steps\r\n") {
		t.Errorf("output = %q", out.String())
	}
}

func TestLineCommand_Saves(t *testing.T) {
	target := &fakeTarget{position: 22.5}
	saves := 0
	var out bytes.Buffer
	c := New(Config{Target: target, Save: func() error { saves++; return nil }}, &out)

	c.Execute("L3")

	if saves != 1 {
		t.Errorf("saves = %d, want 1", saves)
	}
	if out.String() != "[-] line 3=22.50 mm\r\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestExecute_UsesExecutor(t *testing.T) {
	target := &fakeTarget{}
	runs := 0
	exec := func(fn func()) {
		runs++
		fn()
	}
	var out bytes.Buffer
	New(Config{Target: target, Exec: exec}, &out).Execute("C P ?")

	if runs != 2 {
		t.Errorf("executor runs = %d, want 2", runs)
	}
	if !strings.Contains(out.String(), "this help") {
		t.Error("help not printed")
	}
}

func TestRun(t *testing.T) {
	target := &fakeTarget{}
	var out bytes.Buffer
	c := New(Config{Target: target}, &out)

	err := c.Run(context.Background(), strings.NewReader("C\r\nM10\nK1\n"))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	want := []string{"calibrate", "move_to 10", "key 1"}
	if strings.Join(target.calls, ",") != strings.Join(want, ",") {
		t.Errorf("calls = %v, want %v", target.calls, want)
	}
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r, w := io.Pipe()
	defer w.Close()

	err := New(Config{Target: &fakeTarget{}}, &bytes.Buffer{}).Run(ctx, r)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestServe_SharedSource(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	src := NewLineSource(context.Background(), r)

	first := &fakeTarget{}
	ran := make(chan struct{}, 1)
	cfg := Config{Target: first, Exec: func(fn func()) { fn(); ran <- struct{}{} }}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- New(cfg, &bytes.Buffer{}).Serve(ctx, src) }()

	if _, err := io.WriteString(w, "C\n"); err != nil {
		t.Fatalf("write error = %v", err)
	}
	<-ran
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Serve() error = %v, want context.Canceled", err)
	}

	second := &fakeTarget{}
	done2 := make(chan error, 1)
	go func() { done2 <- New(Config{Target: second}, &bytes.Buffer{}).Serve(context.Background(), src) }()

	if _, err := io.WriteString(w, "M10\nK1\n"); err != nil {
		t.Fatalf("write error = %v", err)
	}
	w.Close()
	if err := <-done2; err != nil {
		t.Fatalf("Serve() error = %v", err)
	}

	want := []string{"move_to 10", "key 1"}
	if strings.Join(second.calls, ",") != strings.Join(want, ",") {
		t.Errorf("second console calls = %v, want %v", second.calls, want)
	}
	if strings.Join(first.calls, ",") != "calibrate" {
		t.Errorf("first console calls = %v, want [calibrate]", first.calls)
	}
}

func TestUsage_ListsEveryCommand(t *testing.T) {
	help := usage()
	for _, cmd := range Commands() {
		if !strings.HasPrefix(cmd.Usage, string(cmd.Flag)) {
			t.Errorf("usage %q does not start with %c", cmd.Usage, cmd.Flag)
		}
		if !strings.Contains(help, cmd.Usage) {
			t.Errorf("help missing %q", cmd.Usage)
		}
	}
}
