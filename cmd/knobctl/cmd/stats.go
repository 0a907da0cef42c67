package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	statsDuration time.Duration
	statsFormat   string
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Sample the link for a while and print the engine counters",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), statsDuration)
		defer cancel()

		eng, _, err := connect(ctx)
		if err != nil {
			return err
		}
		defer eng.Stop()

		// Drain deliveries so the bounded channel never backpressures the
		// drop counter during the sample window.
		for {
			select {
			case <-ctx.Done():
				snap := eng.Stats()
				switch statsFormat {
				case "json":
					out, err := json.MarshalIndent(snap, "", "  ")
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), string(out))
				case "yaml":
					out, err := yaml.Marshal(snap)
					if err != nil {
						return err
					}
					fmt.Fprint(cmd.OutOrStdout(), string(out))
				default:
					return fmt.Errorf("unknown format %q (want json or yaml)", statsFormat)
				}
				return nil
			case _, ok := <-eng.Messages():
				if !ok {
					return nil
				}
			}
		}
	},
}

func init() {
	statsCmd.Flags().DurationVar(&statsDuration, "duration", 3*time.Second, "how long to sample the link")
	statsCmd.Flags().StringVarP(&statsFormat, "format", "f", "yaml", "output format: json or yaml")
	rootCmd.AddCommand(statsCmd)
}
