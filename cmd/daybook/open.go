package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/aretw0/daybook"
)

var openJSON bool

var openCmd = &cobra.Command{
	Use:   "open <user> [date]",
	Short: "Print the note of a day",
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

		note, err := rt.Service.Open(cmd.Context(), args[0], date)
		if err != nil {
			return err
		}

		if openJSON {
			return printJSON(cmd.OutOrStdout(), noteView(args[0], date, note))
		}
		printNote(cmd.OutOrStdout(), args[0], date, note.Fields)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(openCmd)
	openCmd.Flags().BoolVar(&openJSON, "json", false, "Output as JSON")
}

type noteJSON struct {
	User        string         `json:"user"`
	Date        string         `json:"date"`
	ContainerID string         `json:"container_id"`
	LeafID      string         `json:"leaf_id"`
	Fields      daybook.Fields `json:"fields"`
}

func noteView(user, date string, n daybook.Note) noteJSON {
	return noteJSON{
		User:        user,
		Date:        date,
		ContainerID: string(n.ContainerID),
		LeafID:      string(n.LeafID),
		Fields:      n.Fields,
	}
}

func printNote(w io.Writer, user, date string, f daybook.Fields) {
	fmt.Fprintf(w, "%s, %s\n\n", user, date)
	fmt.Fprintf(w, "How was your day?\n%s\n\n", f.Reflection)
	fmt.Fprintf(w, "Unique thing learned today\n%s\n\n", f.Learning)
	fmt.Fprintf(w, "Quote / motivation / fact of the day\n%s\n", f.Highlight)
}

func printJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
