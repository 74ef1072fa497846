package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"unicode"

	"go.bug.st/serial"
	"go.uber.org/zap"

	"github.com/aptl-dev/aptl/internal/logging"
)

// DefaultBaudRate matches the firmware debug port.
const DefaultBaudRate = 115200

// Executor runs fn on the goroutine that owns the actuator and returns
// once fn has finished.
type Executor func(fn func())

// Config wires a Console.
type Config struct {
	Target Target
	Save   func() error

	// Exec defaults to calling fn directly.
	Exec Executor
}

// Console reads commands line by line and runs them against a Target.
type Console struct {
	env  Env
	exec Executor
	cmds map[byte]*Command
}

// New creates a Console writing replies to out.
func New(cfg Config, out io.Writer) *Console {
	exec := cfg.Exec
	if exec == nil {
		exec = func(fn func()) { fn() }
	}
	return &Console{
		env:  Env{Target: cfg.Target, Out: out, Save: cfg.Save},
		exec: exec,
		cmds: commandMap(),
	}
}

// Execute runs one input line. A line may hold several space separated
// commands, e.g. "M40 K5 P". Unknown commands are reported and skipped.
func (c *Console) Execute(line string) {
	for _, field := range strings.Fields(line) {
		if field == "?" || strings.EqualFold(field, "help") {
			_, _ = io.WriteString(c.env.Out, usage())
			continue
		}

		flag := byte(unicode.ToUpper(rune(field[0])))
		cmd, ok := c.cmds[flag]
		if !ok {
			c.env.printf("error: unknown command %q", field)
			continue
		}

		var err error
		c.exec(func() { err = cmd.Run(&c.env, field[1:]) })
		if err != nil {
			logging.Warn("Console command failed", zap.String("command", field), zap.Error(err))
			c.env.printf("error: %s", err.Error())
		}
	}
}

// LineSource reads an input line by line on a single goroutine, so the
// consoles built for successive runs of the device share one reader.
type LineSource struct {
	lines chan string
	err   error // written before lines is closed
}

// NewLineSource starts reading in. Reading stops at EOF or when ctx ends.
func NewLineSource(ctx context.Context, in io.Reader) *LineSource {
	s := &LineSource{lines: make(chan string)}
	go func() {
		defer close(s.lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case s.lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		s.err = scanner.Err()
	}()
	return s
}

// Serve executes lines from src until src is exhausted or ctx is
// cancelled. Lines not yet taken stay with src for the next Serve.
func (c *Console) Serve(ctx context.Context, src *LineSource) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-src.lines:
			if !ok {
				return src.err
			}
			c.Execute(strings.TrimRight(line, "\r"))
		}
	}
}

// Run executes lines from in until EOF or ctx is cancelled.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	return c.Serve(ctx, NewLineSource(ctx, in))
}

// OpenSerial opens a serial port for the console.
func OpenSerial(name string, baud int) (serial.Port, error) {
	if baud <= 0 {
		baud = DefaultBaudRate
	}
	port, err := serial.Open(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", name, err)
	}
	logging.Info("Serial console opened", zap.String("port", name), zap.Int("baud", baud))
	return port, nil
}

// ListSerialPorts returns the serial ports present on the host.
func ListSerialPorts() ([]string, error) {
	return serial.GetPortsList()
}
