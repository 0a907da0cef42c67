package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.bug.st/serial/enumerator"

	"github.com/smartknob/knoblink/pkg/discovery"
)

var portsVerbose bool

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports that look like a SmartKnob",
	RunE: func(cmd *cobra.Command, args []string) error {
		if portsVerbose {
			return listDetailed(cmd)
		}

		candidates, err := discovery.FindPorts()
		if err != nil {
			return err
		}
		if len(candidates) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no serial ports found")
			return nil
		}
		for _, p := range candidates {
			fmt.Fprintln(cmd.OutOrStdout(), p)
		}
		return nil
	},
}

// listDetailed dumps every enumerated port with its USB identity, not just
// the likely knobs.
func listDetailed(cmd *cobra.Command) error {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return fmt.Errorf("enumerate ports: %w", err)
	}
	for _, p := range ports {
		if p.IsUSB {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\tUSB %s:%s\t%s\n", p.Name, p.VID, p.PID, p.Product)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", p.Name)
		}
	}
	return nil
}

func init() {
	portsCmd.Flags().BoolVarP(&portsVerbose, "verbose", "v", false, "show every port with USB details")
	rootCmd.AddCommand(portsCmd)
}
