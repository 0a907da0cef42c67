package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/smartknob/knoblink/pkg/engine"
	"github.com/smartknob/knoblink/pkg/knobproto"
)

var (
	monitorDuration time.Duration
	monitorQuiet    bool
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Stream live knob state, device logs, and acks to stdout",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		if monitorDuration > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, monitorDuration)
			defer cancel()
		}

		eng, device, err := connect(ctx)
		if err != nil {
			return err
		}
		defer eng.Stop()

		fmt.Fprintf(cmd.OutOrStdout(), "monitoring %s (ctrl-c to stop)\n", device)
		for {
			select {
			case <-ctx.Done():
				printSummary(cmd, eng)
				return nil
			case msg, ok := <-eng.Messages():
				if !ok {
					printSummary(cmd, eng)
					return nil
				}
				printMessage(cmd, msg)
			}
		}
	},
}

func printMessage(cmd *cobra.Command, msg *knobproto.FromKnob) {
	ts := time.Now().Format("15:04:05.000")
	switch msg.Kind() {
	case knobproto.KindKnob:
		fmt.Fprintf(cmd.OutOrStdout(), "%s knob position=%d sub=%+.3f press=%d\n",
			ts, msg.Knob.CurrentPosition, msg.Knob.SubPositionUnit, msg.Knob.PressNonce)
	case knobproto.KindLog:
		if !monitorQuiet {
			fmt.Fprintf(cmd.OutOrStdout(), "%s log  %s\n", ts, strings.TrimRight(msg.Log.Msg, "\r\n"))
		}
	case knobproto.KindAck:
		if !monitorQuiet {
			fmt.Fprintf(cmd.OutOrStdout(), "%s ack  nonce=%d\n", ts, msg.Ack.Nonce)
		}
	}
}

// printSummary dumps the session counters once the stream ends.
func printSummary(cmd *cobra.Command, eng *engine.Engine) {
	s := eng.Stats()
	fmt.Fprintf(cmd.OutOrStdout(),
		"\nsession: sent=%d received=%d acks=%d retries=%d crc_errors=%d frame_errors=%d dropped=%d\n",
		s.MessagesSent, s.MessagesReceived, s.AcksReceived, s.Retries,
		s.CRCErrors, s.FrameErrors, s.Dropped)
}

func init() {
	monitorCmd.Flags().DurationVar(&monitorDuration, "duration", 0, "stop after this long (default: until interrupted)")
	monitorCmd.Flags().BoolVarP(&monitorQuiet, "quiet", "q", false, "suppress device log lines and acks")
	rootCmd.AddCommand(monitorCmd)
}
