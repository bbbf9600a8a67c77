package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/daybook"
)

var (
	saveReflection string
	saveLearning   string
	saveHighlight  string
	saveJSON       bool
)

var saveCmd = &cobra.Command{
	Use:   "save <user> [date]",
	Short: "Save the note of a day",
	Long: `Create or overwrite the note of <user> for [date] (YYYY-MM-DD, default today).
All three sections are required; an existing note is replaced, not merged.`,
	Args: cobra.RangeArgs(1, 2),
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

		note, err := rt.Service.Save(cmd.Context(), args[0], date, daybook.Fields{
			Reflection: saveReflection,
			Learning:   saveLearning,
			Highlight:  saveHighlight,
		})
		if err != nil {
			return err
		}

		if saveJSON {
			return printJSON(cmd.OutOrStdout(), noteView(args[0], date, note))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Note for %s on %s saved (%s).\n", args[0], date, note.LeafID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(saveCmd)
	saveCmd.Flags().StringVar(&saveReflection, "reflection", "", "How was your day?")
	saveCmd.Flags().StringVar(&saveLearning, "learning", "", "A unique thing you learned today")
	saveCmd.Flags().StringVar(&saveHighlight, "highlight", "", "Quote, motivation or fact of the day")
	saveCmd.Flags().BoolVar(&saveJSON, "json", false, "Print the saved note as JSON")
}
