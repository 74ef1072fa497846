package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/aptl-dev/aptl/internal/config"
	"github.com/aptl-dev/aptl/internal/deviceconfig"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the device config file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with default values",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := loadStore()
		if err != nil {
			return err
		}
		if configForce {
			store.Update(func(r *config.Record) { *r = config.NewRecord() })
			if err := store.Save(); err != nil {
				return err
			}
		}
		fmt.Printf("Config file: %s\n", store.Path())
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print and check the device config",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := loadStore()
		if err != nil {
			return err
		}
		rec := store.Snapshot()
		out, err := yaml.Marshal(&rec)
		if err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		fmt.Printf("# %s\n%s", store.Path(), out)

		warnings, errs := deviceconfig.SeparateWarningsAndErrors(deviceconfig.ValidateRecord(&rec))
		for _, w := range warnings {
			fmt.Fprintf(os.Stderr, "%v\n", w)
		}
		if len(errs) > 0 {
			return fmt.Errorf("%s", deviceconfig.FormatValidationErrors(errs))
		}
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing config with defaults")
	configCmd.AddCommand(configInitCmd, configShowCmd)
	rootCmd.AddCommand(configCmd)
}
