package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/daybook"
	"github.com/aretw0/daybook/pkg/core"
)

var (
	verbose   bool
	logFormat string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "daybook",
	Short: "Keep one short note per day in a remote folder store",
	Long: `Daybook stores a daily note (how the day went, one thing learned and a
quote or highlight) under <user>/<YYYY-MM-DD>/ in the configured store.
Folders are looked up by name and created on first use.

The store and its options are configured with DAYBOOK_* variables,
a .env file or a daybook.yaml file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		opts := &slog.HandlerOptions{Level: level}

		var handler slog.Handler
		switch logFormat {
		case "text":
			handler = slog.NewTextHandler(os.Stderr, opts)
		case "json":
			handler = slog.NewJSONHandler(os.Stderr, opts)
		default:
			return fmt.Errorf("unknown log format %q (want text or json)", logFormat)
		}
		slog.SetDefault(slog.New(handler))
		return nil
	},
}

// Execute runs the root command. This is called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (text, json)")
}

// openRuntime loads the configuration and wires the service.
func openRuntime(ctx context.Context) (*daybook.Runtime, error) {
	rt, err := daybook.Open(ctx, daybook.WithLogger(slog.Default()))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize daybook: %w", err)
	}
	return rt, nil
}

// dateArg returns args[i] or today's date.
func dateArg(args []string, i int) (string, error) {
	if len(args) > i {
		return core.ParseDateName(args[i])
	}
	return core.DateName(time.Now()), nil
}
