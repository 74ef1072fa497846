// Aptl-device is the daemon for an APTL keypad actuator.
//
// It drives a stepper carriage and three press servos, takes commands as
// ThingsBoard shared attributes over MQTT, reports position and status as
// telemetry, and falls back to a Wi-Fi setup portal when it cannot join a
// network.
//
// Usage:
//
//	aptl-device run [flags]
//
// The calibrate, move, press, token and console commands drive the
// actuator directly for bench work. See 'aptl-device --help'.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aptl-dev/aptl/internal/config"
	"github.com/aptl-dev/aptl/internal/logging"
	"github.com/aptl-dev/aptl/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		logging.Sync()
		os.Exit(1)
	}
	logging.Sync()
}

var (
	configPath string
	logLevel   string
	backend    string
)

var rootCmd = &cobra.Command{
	Use:   "aptl-device",
	Short: "APTL keypad actuator daemon",
	Long: `Daemon and bench tool for the APTL keypad actuator.

'run' starts the device: Wi-Fi supervision with setup-portal fallback,
the ThingsBoard MQTT link, the local status API and the actuator loop.
The remaining commands drive the actuator directly and must not be used
while the daemon is running.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Initialize(logLevel)
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/aptl/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); defaults to $"+logging.LogLevelEnvVar)
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "", "Override hardware backend (gpio, sim)")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("aptl-device %s\n", version.Detailed())
	},
}

// loadStore opens the config file, creating it with defaults when missing.
func loadStore() (*config.Store, error) {
	path := configPath
	if path == "" {
		p, err := config.GetConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	store, err := config.Load(path)
	if errors.Is(err, config.ErrMalformed) {
		logging.Warn("Config file is malformed, running with defaults", zap.String("path", path), zap.Error(err))
	} else if err != nil {
		return nil, err
	}
	if backend != "" {
		store.Update(func(r *config.Record) { r.Hardware.Backend = backend })
	}
	return store, nil
}
