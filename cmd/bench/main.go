// Command bench times save and open requests against the configured store.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aretw0/daybook"
)

func main() {
	count := flag.Int("count", 200, "Number of days to write")
	user := flag.String("user", "kgiri", "User to write notes for")
	keep := flag.Bool("keep", false, "Keep the benchmark directory (fs adapter)")
	flag.Parse()

	cfg, err := daybook.LoadConfig()
	if err != nil {
		panic(err)
	}
	if cfg.Adapter == "fs" {
		benchDir, err := os.MkdirTemp("", "daybook_bench_")
		if err != nil {
			panic(err)
		}
		cfg.FS.Path = benchDir
		defer func() {
			if !*keep {
				os.RemoveAll(benchDir)
			} else {
				fmt.Printf("Keeping bench dir: %s\n", benchDir)
			}
		}()
	}
	cfg.Metrics = true

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
	ctx := context.Background()
	rt, err := daybook.New(ctx, cfg, daybook.WithLogger(logger))
	if err != nil {
		panic(err)
	}
	defer rt.Close()

	day := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	dates := make([]string, *count)
	for i := range dates {
		dates[i] = day.AddDate(0, 0, i).Format("2006-01-02")
	}

	fmt.Printf("Writing %d notes on %s...\n", *count, cfg.Adapter)
	startSave := time.Now()
	for i, date := range dates {
		_, err := rt.Service.Save(ctx, *user, date, daybook.Fields{
			Reflection: fmt.Sprintf("Day %d", i),
			Learning:   "benchmarks",
			Highlight:  "measure twice",
		})
		if err != nil {
			panic(err)
		}
	}
	saveDuration := time.Since(startSave)

	// Second pass: every folder already exists.
	startOpen := time.Now()
	for _, date := range dates {
		if _, err := rt.Service.Open(ctx, *user, date); err != nil {
			panic(err)
		}
	}
	openDuration := time.Since(startOpen)

	snap, err := rt.Metrics.Snapshot()
	if err != nil {
		panic(err)
	}

	fmt.Printf("--------------------------------------------------\n")
	fmt.Printf("Benchmark Result (%d notes, %s):\n", *count, cfg.Adapter)
	fmt.Printf("  Save: %v (%.1f/s)\n", saveDuration, float64(*count)/saveDuration.Seconds())
	fmt.Printf("  Open: %v (%.1f/s)\n", openDuration, float64(*count)/openDuration.Seconds())
	fmt.Printf("  Store calls: list=%.0f create=%.0f put=%.0f fetch=%.0f\n",
		snap["daybook_store_operations_total{operation=list}{status=ok}"],
		snap["daybook_store_operations_total{operation=create_container}{status=ok}"],
		snap["daybook_store_operations_total{operation=put_leaf}{status=ok}"],
		snap["daybook_store_operations_total{operation=fetch_leaf}{status=ok}"],
	)
	fmt.Printf("--------------------------------------------------\n")
}
