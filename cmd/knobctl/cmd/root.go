// Package cmd implements the knobctl command tree.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/smartknob/knoblink/pkg/config"
)

var (
	// Global flags
	cfgFile   string
	portFlag  string
	baudFlag  int
	logLevel  string
	autoReset bool

	// Shared state set during PersistentPreRun
	cfg *config.Config
	log *zap.Logger
)

// rootCmd is the base command for knobctl.
var rootCmd = &cobra.Command{
	Use:   "knobctl",
	Short: "SmartKnob CLI — discover, monitor, configure, and exercise a knob over serial",
	Long: `KnobCtl talks to a SmartKnob device over its serial link. It can list
candidate ports, stream live knob state and device logs, push haptic
configurations and settings, and run an interactive dashboard.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			path = config.DefaultPath()
		}
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		// Flags override the file.
		if portFlag != "" {
			cfg.Port = portFlag
		}
		if baudFlag != 0 {
			cfg.Baud = baudFlag
		}
		if cmd.Flags().Changed("auto-reset") {
			cfg.AutoReset = autoReset
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}

		log, err = newLogger(cfg.Log)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// RootCmd returns the root cobra.Command for testing purposes.
func RootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.config/knoblink/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&portFlag, "port", "p", "", "serial device path (default: auto-discover)")
	rootCmd.PersistentFlags().IntVarP(&baudFlag, "baud", "b", 0, "serial baud rate (default 921600)")
	rootCmd.PersistentFlags().BoolVar(&autoReset, "auto-reset", false, "toggle the device reset line before connecting")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
}
