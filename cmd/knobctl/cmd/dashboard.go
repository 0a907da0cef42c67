package cmd

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/smartknob/knoblink/pkg/tui"
)

// dashboardCmd launches the interactive TUI dashboard.
var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Launch the interactive TUI dashboard",
	Long: `Launch an interactive terminal dashboard showing live knob state, a
rolling message feed, and the engine counters.

Key bindings:
  Tab / Shift+Tab  Navigate between tabs
  1 / 2            Jump directly to Live / Stats
  c                Clear the engine counters
  q / Ctrl+C       Quit`,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, device, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer eng.Stop()

		p := tea.NewProgram(tui.New(eng, device), tea.WithAltScreen())
		_, err = p.Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}
