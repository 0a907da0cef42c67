package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smartknob/knoblink/pkg/engine"
)

// knobctlVersion is set at build time via
// -ldflags "-X github.com/smartknob/knoblink/cmd/knobctl/cmd.knobctlVersion=x.y.z"
var knobctlVersion = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show knobctl and protocol versions",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(cmd.OutOrStdout(), "knobctl version %s\n", knobctlVersion)
		fmt.Fprintf(cmd.OutOrStdout(), "protocol version %d\n", engine.ProtocolVersion)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
