package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/daybook"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of daybook",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "daybook version %s\n", strings.TrimSpace(daybook.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
