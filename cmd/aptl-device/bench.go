package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aptl-dev/aptl/internal/bridge"
	"github.com/aptl-dev/aptl/internal/config"
	"github.com/aptl-dev/aptl/internal/console"
	"github.com/aptl-dev/aptl/internal/hardware"
	"github.com/aptl-dev/aptl/internal/logging"
	"github.com/aptl-dev/aptl/internal/motor"
)

var (
	benchNoCalibrate bool
	consoleSerial    string
	consoleBaud      int
)

var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Home the carriage against the limit switch",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBench(true, func(b *bench) error {
			fmt.Printf("Calibrated, position %.2f mm\n", b.ctrl.PositionMM())
			return nil
		})
	},
}

var moveCmd = &cobra.Command{
	Use:   "move <mm>",
	Short: "Move the carriage to an absolute position",
	Example: `  aptl-device move 40
  aptl-device move 0 --backend sim`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mm, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("invalid position %q: %w", args[0], err)
		}
		return withBench(!benchNoCalibrate, func(b *bench) error {
			m, err := b.ctrl.MoveTo(mm)
			if err != nil {
				return err
			}
			fmt.Printf("Moved %d of %d steps, position %.2f mm\n", m.Completed, m.Requested, b.ctrl.PositionMM())
			return nil
		})
	},
}

var pressCmd = &cobra.Command{
	Use:   "press <servo>",
	Short: "Press one servo (1-3) at the current position",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		servo, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid servo %q: %w", args[0], err)
		}
		return withBench(false, func(b *bench) error {
			return b.ctrl.PressButton(servo)
		})
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token <digits>",
	Short: "Enter a token on the keypad",
	Long: `Enter a token the same way a kodetoken attribute from the broker would:
one key press per digit, then return the carriage home. Non-digit
characters are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := json.Marshal(map[string]string{"kodetoken": args[0]})
		if err != nil {
			return err
		}
		return withBench(true, func(b *bench) error {
			br := bridge.New(bridge.Config{
				Actuator: b.ctrl,
				Settings: b.store,
			})
			br.HandleMessage(bridge.TopicAttributes, payload)
			br.ProcessCommands(b.ctx)
			fmt.Printf("Token entered, position %.2f mm\n", b.ctrl.PositionMM())
			return nil
		})
	},
}

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Drive the actuator with single-letter commands",
	Long: `Read actuator commands from stdin, or from a serial port with --serial.
Type ? for the command list.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBench(!benchNoCalibrate, func(b *bench) error {
			cfg := console.Config{Target: b.ctrl, Save: b.store.Save}
			if consoleSerial == "" {
				return ignoreCanceled(console.New(cfg, os.Stdout).Run(b.ctx, os.Stdin))
			}
			port, err := console.OpenSerial(consoleSerial, consoleBaud)
			if err != nil {
				return err
			}
			defer port.Close()
			return ignoreCanceled(console.New(cfg, port).Run(b.ctx, port))
		})
	},
}

var listPortsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := console.ListSerialPorts()
		if err != nil {
			return err
		}
		if len(ports) == 0 {
			fmt.Println("No serial ports found")
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return nil
	},
}

func init() {
	moveCmd.Flags().BoolVar(&benchNoCalibrate, "no-calibrate", false, "Skip calibration (the move is then refused)")
	consoleCmd.Flags().BoolVar(&benchNoCalibrate, "no-calibrate", false, "Skip calibration before reading commands")
	consoleCmd.Flags().StringVar(&consoleSerial, "serial", "", "Serial port to read commands from")
	consoleCmd.Flags().IntVar(&consoleBaud, "baud", console.DefaultBaudRate, "Serial baud rate")
	consoleCmd.AddCommand(listPortsCmd)

	rootCmd.AddCommand(calibrateCmd, moveCmd, pressCmd, tokenCmd, consoleCmd)
}

type bench struct {
	ctx   context.Context
	store *config.Store
	ctrl  *motor.Controller
}

// withBench opens the hardware, sets up the controller, optionally
// calibrates, runs fn and powers the driver down again.
func withBench(calibrate bool, fn func(*bench) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := loadStore()
	if err != nil {
		return err
	}
	rig, err := hardware.Open(store.Hardware())
	if err != nil {
		return fmt.Errorf("failed to open hardware: %w", err)
	}
	defer func() {
		if err := rig.Close(); err != nil {
			logging.Warn("Failed to release hardware", zap.Error(err))
		}
	}()

	ctrl := motor.New(motor.Config{
		Driver:   rig.Driver,
		Limit:    rig.Limit,
		Servos:   rig.Servos,
		Settings: store,
	})
	if err := ctrl.Setup(); err != nil {
		return fmt.Errorf("motor setup failed: %w", err)
	}
	defer ctrl.Disable()

	if calibrate {
		if err := ctrl.Calibrate(); err != nil {
			return fmt.Errorf("calibration failed: %w", err)
		}
	}
	return fn(&bench{ctx: ctx, store: store, ctrl: ctrl})
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
