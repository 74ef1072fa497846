package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aptl-dev/aptl/internal/app"
	"github.com/aptl-dev/aptl/internal/config"
	"github.com/aptl-dev/aptl/internal/console"
	"github.com/aptl-dev/aptl/internal/discovery"
	"github.com/aptl-dev/aptl/internal/hardware"
	"github.com/aptl-dev/aptl/internal/logging"
	"github.com/aptl-dev/aptl/internal/metrics"
	"github.com/aptl-dev/aptl/internal/motor"
	"github.com/aptl-dev/aptl/internal/network"
	"github.com/aptl-dev/aptl/internal/version"
)

// Run command flags
var (
	runDeviceID      string
	runConsole       bool
	runSerialPort    string
	runSerialBaud    int
	runSkipCalibrate bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the device daemon",
	Long: `Start the APTL device.

Boot sequence: read the device ID from the Wi-Fi MAC address, load the
config, join Wi-Fi (or start the APTL-Setup access point and portal),
connect to the MQTT broker, set up and calibrate the actuator, then run
the main loop until interrupted.

Saving new credentials in the portal restarts the daemon in place.`,
	Example: `  # Start on real hardware
  aptl-device run

  # Simulated hardware, console on stdin
  aptl-device run --backend sim --console --log-level debug

  # Console on a USB serial adapter
  aptl-device run --serial /dev/ttyUSB0`,
	RunE: runDevice,
}

func init() {
	runCmd.Flags().StringVar(&runDeviceID, "device-id", "", "Override the device ID (default: Wi-Fi MAC address)")
	runCmd.Flags().BoolVar(&runConsole, "console", false, "Read bench commands from stdin")
	runCmd.Flags().StringVar(&runSerialPort, "serial", "", "Read bench commands from a serial port")
	runCmd.Flags().IntVar(&runSerialBaud, "baud", console.DefaultBaudRate, "Serial console baud rate")
	runCmd.Flags().BoolVar(&runSkipCalibrate, "skip-calibration", false, "Do not calibrate at boot")

	rootCmd.AddCommand(runCmd)
}

func runDevice(cmd *cobra.Command, args []string) error {
	// The daemon logs at info unless told otherwise.
	if logLevel == "" && os.Getenv(logging.LogLevelEnvVar) == "" {
		if err := logging.Initialize("info"); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := loadStore()
	if err != nil {
		return err
	}

	wifi := network.NewManager(store.Network().Interface, network.ExecRunner{Timeout: 30 * time.Second})
	deviceID := runDeviceID
	if deviceID == "" {
		if deviceID, err = wifi.MACAddress(); err != nil {
			logging.Warn("Cannot read MAC address, using configured device ID", zap.Error(err))
			deviceID = store.DeviceID()
		}
	}

	rig, err := hardware.Open(store.Hardware())
	if err != nil {
		return fmt.Errorf("failed to open hardware: %w", err)
	}
	defer rig.Close()

	met, err := metrics.New(nil)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	var con *consoleIO
	if runConsole || runSerialPort != "" {
		var closeConsole func()
		if con, closeConsole, err = openConsole(ctx); err != nil {
			return err
		}
		defer closeConsole()
	}

	for {
		err := runOnce(ctx, store, wifi, rig, met, deviceID, con)
		if !errors.Is(err, app.ErrRestartRequested) {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if err := store.Reload(); err != nil {
			logging.Error("Failed to reload config", zap.Error(err))
		}
	}
}

// runOnce boots a fresh runner and serves until ctx ends or a restart is
// requested.
func runOnce(ctx context.Context, store *config.Store, wifi *network.Manager, rig *hardware.Rig, met *metrics.Collector, deviceID string, con *consoleIO) error {
	ctrl := motor.New(motor.Config{
		Driver:   rig.Driver,
		Limit:    rig.Limit,
		Servos:   rig.Servos,
		Settings: store,
	})
	runner := app.New(app.Options{
		DeviceID:        deviceID,
		Version:         version.Version,
		SkipCalibration: runSkipCalibrate,
	}, app.Deps{
		Store:      store,
		Controller: ctrl,
		Station:    wifi,
		Metrics:    met,
	})

	if err := runner.Boot(ctx); err != nil {
		return err
	}

	srvCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := runner.Server().Start(srvCtx); err != nil {
			logging.Error("HTTP server stopped", zap.Error(err))
		}
	}()

	if store.HTTP().Advertise && !runner.Status().WiFi.AccessPoint {
		adv, err := discovery.Advertise(discovery.AdvertiseConfig{
			Instance: advertisedName(store, deviceID),
			ID:       deviceID,
			Version:  version.Version,
			Port:     listenPort(store.HTTP().Listen),
		})
		if err != nil {
			logging.Warn("mDNS advertisement failed", zap.Error(err))
		}
		defer adv.Shutdown()
	}

	if con != nil {
		c := console.New(console.Config{
			Target: ctrl,
			Save:   store.Save,
			Exec:   func(fn func()) { _ = runner.Exec(srvCtx, fn) },
		}, con.out)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.Serve(srvCtx, con.src); err != nil && !errors.Is(err, context.Canceled) {
				logging.Warn("Console stopped", zap.Error(err))
			}
		}()
	}

	return runner.Run(ctx)
}

// consoleIO is the console input and output. It outlives a single run so
// that only one goroutine ever reads the input.
type consoleIO struct {
	src *console.LineSource
	out io.Writer
}

func openConsole(ctx context.Context) (*consoleIO, func(), error) {
	if runSerialPort == "" {
		return &consoleIO{src: console.NewLineSource(ctx, os.Stdin), out: os.Stdout}, func() {}, nil
	}
	port, err := console.OpenSerial(runSerialPort, runSerialBaud)
	if err != nil {
		return nil, nil, err
	}
	closePort := func() { _ = port.Close() }
	return &consoleIO{src: console.NewLineSource(ctx, port), out: port}, closePort, nil
}

func advertisedName(store *config.Store, deviceID string) string {
	if name := store.DeviceName(); name != "" {
		return name
	}
	return "aptl-" + deviceID
}

func listenPort(listen string) int {
	_, p, err := net.SplitHostPort(listen)
	if err != nil {
		return 80
	}
	port, err := strconv.Atoi(p)
	if err != nil || port == 0 {
		return 80
	}
	return port
}
