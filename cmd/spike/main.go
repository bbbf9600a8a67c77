// Command spike measures the namespace race window: many workers resolve
// the same user folder at once on a store without conditional creates.
package main

import (
	"context"
	"flag"
	"log"
	"sync"
	"time"

	"github.com/aretw0/daybook/pkg/adapters/memory"
	"github.com/aretw0/daybook/pkg/core"
)

func main() {
	workers := flag.Int("workers", 50, "Concurrent resolutions per mode")
	delay := flag.Duration("delay", 5*time.Millisecond, "Artificial latency between list and create")
	flag.Parse()

	log.Printf("Spike: %d workers resolving the same folder, %v create latency", *workers, *delay)

	modes := []struct {
		name string
		opts []core.ResolverOption
	}{
		{"unguarded", nil},
		{"reconcile", []core.ResolverOption{core.WithReconcile(true)}},
		{"local lock", []core.ResolverOption{core.WithLocker(core.NewKeyedMutex())}},
	}

	for _, mode := range modes {
		store := memory.New(memory.WithHooks(memory.Hooks{
			BeforeCreate: func(string, core.ContainerID) { time.Sleep(*delay) },
		}))
		resolver := core.NewResolver(store, mode.opts...)

		start := time.Now()
		results := resolveConcurrently(resolver, *workers)
		duration := time.Since(start)

		entries, err := store.List(context.Background(), core.Containers("kgiri", core.Root))
		if err != nil {
			log.Fatalf("list failed: %v", err)
		}
		log.Printf("%-10s  created=%-3d distinct answers=%-3d duplicates seen=%-3d time=%v",
			mode.name, len(entries), len(results), resolver.State().(core.ResolverState).Duplicates, duration)
	}
}

// resolveConcurrently releases all workers at once and returns the set of ids they got.
func resolveConcurrently(r *core.Resolver, workers int) map[core.ContainerID]int {
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[core.ContainerID]int)
		barrier = make(chan struct{})
	)
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			<-barrier
			id, err := r.ResolveOrCreate(context.Background(), "kgiri", core.Root)
			if err != nil {
				log.Printf("resolve failed: %v", err)
				return
			}
			mu.Lock()
			results[id]++
			mu.Unlock()
		}()
	}
	close(barrier)
	wg.Wait()
	return results
}
