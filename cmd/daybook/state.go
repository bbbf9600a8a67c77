package main

import (
	"github.com/spf13/cobra"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Print the wired components and their counters as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()

		out := map[string]any{
			"component": rt.Service.ComponentType(),
			"state":     rt.Service.State(),
		}
		if rt.Metrics != nil {
			snap, err := rt.Metrics.Snapshot()
			if err != nil {
				return err
			}
			out["metrics"] = snap
		}
		return printJSON(cmd.OutOrStdout(), out)
	},
}

func init() {
	rootCmd.AddCommand(stateCmd)
}
