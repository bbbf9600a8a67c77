package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	dlifecycle "github.com/aretw0/daybook/pkg/adapters/lifecycle"
	"github.com/aretw0/daybook/pkg/core"
)

var watchCmd = &cobra.Command{
	Use:   "watch [user]",
	Short: "Print notes as they change (fs adapter only)",
	Long: `Watch the store and print every note that is created or modified,
optionally limited to one user. Stops on Ctrl+C.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rt, err := openRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		user := "*"
		if len(args) == 1 {
			if err := rt.Service.Authorize(args[0]); err != nil {
				return err
			}
			user = args[0]
		}
		noteFile := rt.Service.State().(core.ServiceState).NoteFile

		events, err := rt.Service.Watch(ctx, fmt.Sprintf("%s/*/%s", user, noteFile))
		if err != nil {
			return err
		}

		source := dlifecycle.NewSource(events, noteFile)
		if err := source.Start(ctx); err != nil {
			return err
		}

		cmd.PrintErrln("Watching for note changes (Ctrl+C to stop)...")
		for e := range source.Events() {
			ne, ok := e.(dlifecycle.NoteEvent)
			if !ok {
				continue
			}
			if ne.Type == core.EventDelete {
				fmt.Fprintf(cmd.OutOrStdout(), "-- %s deleted\n", ne)
				continue
			}
			if err := renderNote(ctx, cmd, rt.Service, ne); err != nil {
				slog.Warn("failed to render note", "user", ne.User, "date", ne.Date, "error", err)
			}
		}
		return nil
	},
}

func renderNote(ctx context.Context, cmd *cobra.Command, svc *core.Service, ne dlifecycle.NoteEvent) error {
	note, err := svc.Open(ctx, ne.User, ne.Date)
	if errors.Is(err, core.ErrRejected) {
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "-- %s\n", ne)
	printNote(cmd.OutOrStdout(), ne.User, ne.Date, note.Fields)
	return nil
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
