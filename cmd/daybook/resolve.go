package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <user> [date]",
	Short: "Print (and create if needed) the folder ids of a user and day",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		date, err := dateArg(args, 1)
		if err != nil {
			return err
		}

		rt, err := openRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()

		userID, err := rt.Service.UserNamespace(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		dateID, err := rt.Service.DateNamespace(cmd.Context(), userID, date)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "user\t%s\n", userID)
		fmt.Fprintf(cmd.OutOrStdout(), "date\t%s\n", dateID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}
