package console

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aptl-dev/aptl/internal/motor"
)

// Target is the actuator surface the console drives. *motor.Controller
// satisfies it.
type Target interface {
	Calibrate() error
	MoveTo(mm float64) (motor.Move, error)
	MoveBy(deltaMM float64) (motor.Move, error)
	PressButton(servo int) error
	PressSpecificButton(button int) error
	SaveLineCoordinate(line int) error
	SetSpeed(speed int) error
	Disable()
	Status() motor.Status
}

// Env is what a command runs against.
type Env struct {
	Target Target
	Out    io.Writer

	// Save persists settings changed by a command. May be nil.
	Save func() error
}

func (e *Env) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(e.Out, format+"\r\n", args...)
}

// Command is one console command: a flag byte followed by an optional argument.
type Command struct {
	Flag  byte
	Usage string
	Run   func(e *Env, arg string) error
}

var errMissingArg = errors.New("missing argument")

func intArg(arg string) (int, error) {
	if arg == "" {
		return 0, errMissingArg
	}
	n, err := strconv.Atoi(arg)
	if err != nil {
		return 0, errors.New("invalid input: " + arg)
	}
	return n, nil
}

func reportMove(e *Env, m motor.Move) {
	if m.Interrupted() {
		e.printf("[-] interrupted after %d/%d steps", m.Completed, m.Requested)
	}
	e.printf("[-] position=%.2f mm", e.Target.Status().PositionMM)
}

var (
	CalibrateCommand = &Command{
		Flag:  'C',
		Usage: "C          calibrate against the limit switch",
		Run: func(e *Env, _ string) error {
			if err := e.Target.Calibrate(); err != nil {
				return err
			}
			e.printf("[-] calibrated")
			return nil
		},
	}
	MoveCommand = &Command{
		Flag:  'M',
		Usage: "M<mm>      move to mm, M+<mm>/M-<mm> move relative",
		Run: func(e *Env, arg string) error {
			if arg == "" {
				return errMissingArg
			}
			mm, err := strconv.ParseFloat(arg, 64)
			if err != nil {
				return errors.New("invalid input: " + arg)
			}

			var m motor.Move
			if arg[0] == '+' || arg[0] == '-' {
				m, err = e.Target.MoveBy(mm)
			} else {
				m, err = e.Target.MoveTo(mm)
			}
			if err != nil {
				return err
			}
			reportMove(e, m)
			return nil
		},
	}
	PressCommand = &Command{
		Flag:  'B',
		Usage: "B<1-3>     press servo at the current position",
		Run: func(e *Env, arg string) error {
			servo, err := intArg(arg)
			if err != nil {
				return err
			}
			if err := e.Target.PressButton(servo); err != nil {
				return err
			}
			e.printf("[-] B%d", servo)
			return nil
		},
	}
	KeyCommand = &Command{
		Flag:  'K',
		Usage: "K<0-11>    press keypad button",
		Run: func(e *Env, arg string) error {
			button, err := intArg(arg)
			if err != nil {
				return err
			}
			if err := e.Target.PressSpecificButton(button); err != nil {
				return err
			}
			e.printf("[-] K%d", button)
			return nil
		},
	}
	LineCommand = &Command{
		Flag:  'L',
		Usage: "L<1-4>     save current position as line coordinate",
		Run: func(e *Env, arg string) error {
			line, err := intArg(arg)
			if err != nil {
				return err
			}
			if err := e.Target.SaveLineCoordinate(line); err != nil {
				return err
			}
			if e.Save != nil {
				if err := e.Save(); err != nil {
					return fmt.Errorf("save config: %w", err)
				}
			}
			e.printf("[-] line %d=%.2f mm", line, e.Target.Status().PositionMM)
			return nil
		},
	}
	SpeedCommand = &Command{
		Flag:  'S',
		Usage: "S<50-70>   set speed in mm/s",
		Run: func(e *Env, arg string) error {
			speed, err := intArg(arg)
			if err != nil {
				return err
			}
			if err := e.Target.SetSpeed(speed); err != nil {
				return err
			}
			e.printf("[-] speed=%d mm/s", speed)
			return nil
		},
	}
	DisableCommand = &Command{
		Flag:  'D',
		Usage: "D          disable the stepper driver",
		Run: func(e *Env, _ string) error {
			e.Target.Disable()
			e.printf("[-] driver disabled")
			return nil
		},
	}
	StatusCommand = &Command{
		Flag:  'P',
		Usage: "P          print status",
		Run: func(e *Env, _ string) error {
			s := e.Target.Status()
			e.printf("[-] position=%.2f mm steps=%d max=%.2f mm speed=%d calibrated=%t enabled=%t",
				s.PositionMM, s.PositionSteps, s.MaxPositionMM, s.Speed, s.Calibrated, s.Enabled)
			return nil
		},
	}
)

var commands = []*Command{
	CalibrateCommand,
	MoveCommand,
	PressCommand,
	KeyCommand,
	LineCommand,
	SpeedCommand,
	DisableCommand,
	StatusCommand,
}

// Commands returns the command table in help order.
func Commands() []*Command {
	return commands
}

func commandMap() map[byte]*Command {
	m := make(map[byte]*Command, len(commands))
	for _, cmd := range commands {
		m[cmd.Flag] = cmd
	}
	return m
}

// usage renders the help text.
func usage() string {
	var b strings.Builder
	for _, cmd := range commands {
		b.WriteString(cmd.Usage)
		b.WriteString("\r\n")
	}
	b.WriteString("?          this help\r\n")
	return b.String()
}
