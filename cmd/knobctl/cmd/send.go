package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/smartknob/knoblink/pkg/knobproto"
)

var sendTimeout time.Duration

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a message to the device and wait for its acknowledgment",
}

// commandNames maps CLI spellings to device commands.
var commandNames = map[string]knobproto.Command{
	"get-knob-info":    knobproto.CommandGetKnobInfo,
	"calibrate-motor":  knobproto.CommandMotorCalibrate,
	"calibrate-strain": knobproto.CommandStrainCalibrate,
}

var sendCommandCmd = &cobra.Command{
	Use:       "command <name>",
	Short:     "Send a parameterless device command",
	Long:      "Send one of: get-knob-info, calibrate-motor, calibrate-strain.",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"get-knob-info", "calibrate-motor", "calibrate-strain"},
	RunE: func(cmd *cobra.Command, args []string) error {
		dc, ok := commandNames[args[0]]
		if !ok {
			return fmt.Errorf("unknown command %q", args[0])
		}

		eng, _, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer eng.Stop()

		nonce, err := eng.SendCommand(dc)
		if err != nil {
			return err
		}
		if err := awaitAck(eng, nonce, sendTimeout); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "command %s acknowledged (nonce %d)\n", args[0], nonce)
		return nil
	},
}

var configFlags knobproto.KnobConfig

var sendConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Push a haptic detent profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, _, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer eng.Stop()

		cfgCopy := configFlags
		nonce, err := eng.SendConfig(&cfgCopy)
		if err != nil {
			return err
		}
		if err := awaitAck(eng, nonce, sendTimeout); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "config acknowledged (nonce %d)\n", nonce)
		return nil
	},
}

var settingsFlags knobproto.Settings

var sendSettingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Push persistent device settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, _, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer eng.Stop()

		sCopy := settingsFlags
		nonce, err := eng.SendSettings(&sCopy)
		if err != nil {
			return err
		}
		if err := awaitAck(eng, nonce, sendTimeout); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "settings acknowledged (nonce %d)\n", nonce)
		return nil
	},
}

func init() {
	sendCmd.PersistentFlags().DurationVar(&sendTimeout, "timeout", 5*time.Second, "how long to wait for the device acknowledgment")

	f := sendConfigCmd.Flags()
	f.Int32Var(&configFlags.Position, "position", 0, "initial detent position")
	f.Int32Var(&configFlags.MinPosition, "min-position", 0, "lowest detent position")
	f.Int32Var(&configFlags.MaxPosition, "max-position", 10, "highest detent position")
	f.Float32Var(&configFlags.PositionWidthRad, "width-radians", 0.15, "angular width of one detent")
	f.Float32Var(&configFlags.DetentStrengthUnit, "detent-strength", 1, "detent haptic strength")
	f.Float32Var(&configFlags.EndstopStrengthUnit, "endstop-strength", 1, "endstop haptic strength")
	f.Float32Var(&configFlags.SnapPoint, "snap-point", 1.1, "snap point as a fraction of detent width")
	f.StringVar(&configFlags.Text, "text", "", "label shown on the device display")
	f.Int32Var(&configFlags.LEDHue, "led-hue", 200, "LED ring hue")

	sf := sendSettingsCmd.Flags()
	sf.Int32Var(&settingsFlags.Brightness, "brightness", 128, "display brightness")
	sf.Int32Var(&settingsFlags.ScreenMinBri, "screen-min-brightness", 0, "minimum display brightness")
	sf.Int32Var(&settingsFlags.LEDMaxBri, "led-max-brightness", 128, "maximum LED ring brightness")

	sendCmd.AddCommand(sendCommandCmd)
	sendCmd.AddCommand(sendConfigCmd)
	sendCmd.AddCommand(sendSettingsCmd)
	rootCmd.AddCommand(sendCmd)
}
