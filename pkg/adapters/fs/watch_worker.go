package fs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/aretw0/lifecycle/pkg/core/worker"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/aretw0/daybook/pkg/core"
)

// Watch implements core.Watchable. Events are emitted for leaf documents
// whose id matches pattern (doublestar syntax, e.g. "kgiri/**/note.json")
// until ctx is done, then the channel is closed.
func (s *Store) Watch(ctx context.Context, pattern string) (<-chan core.Event, error) {
	if pattern == "" {
		pattern = "**"
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid watch pattern %q", pattern)
	}

	events := make(chan core.Event)
	w := newWatchWorker(s, pattern, events)
	if err := w.Start(ctx); err != nil {
		return nil, err
	}

	lifecycle.Go(ctx, func(context.Context) error {
		<-w.done
		close(events)
		return nil
	}, lifecycle.WithErrorHandler(s.handleError))

	return events, nil
}

type watchWorker struct {
	*worker.BaseWorker
	store     *Store
	pattern   string
	events    chan<- core.Event
	watcher   *fsnotify.Watcher
	debouncer *debouncer
	cancel    context.CancelFunc
	done      chan struct{}
}

func newWatchWorker(store *Store, pattern string, events chan<- core.Event) *watchWorker {
	return &watchWorker{
		BaseWorker: worker.NewBaseWorker("fs-watcher"),
		store:      store,
		pattern:    pattern,
		events:     events,
		done:       make(chan struct{}),
	}
}

func (w *watchWorker) Start(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	status := w.State().Status
	if status != worker.StatusCreated && status != worker.StatusPending {
		return fmt.Errorf("watcher already started (status: %s)", status)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.addTree(watcher, w.store.Path); err != nil {
		_ = watcher.Close()
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.watcher = watcher
	w.debouncer = newDebouncer(50*time.Millisecond, func(e core.Event) {
		w.deliver(runCtx, e)
	})
	w.store.trackWatcher(1)

	w.SetStatus(worker.StatusRunning)
	return w.StartFunc(runCtx, w.run)
}

func (w *watchWorker) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.StopRequested = true
		w.cancel()
	}
	return w.BaseWorker.Stop(ctx)
}

func (w *watchWorker) State() worker.State {
	return w.ExportState(func(s *worker.State) {
		s.Metadata = map[string]string{
			worker.MetadataType: string(worker.TypeGoroutine),
		}
	})
}

// addTree watches root and every directory below it.
func (w *watchWorker) addTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := watcher.Add(p); err != nil {
			return fmt.Errorf("failed to watch %s: %w", p, err)
		}
		return nil
	})
}

// trackDirectory starts watching a directory created after Watch was called
// and reports the documents written into it before the watch was in place.
func (w *watchWorker) trackDirectory(ctx context.Context, dir string) {
	lifecycle.Go(ctx, func(ctx context.Context) error {
		if err := w.addTree(w.watcher, dir); err != nil {
			return err
		}
		return filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
			if err != nil || ctx.Err() != nil {
				return err
			}
			if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
				return nil
			}
			w.emit(p, core.EventCreate)
			return nil
		})
	}, lifecycle.WithErrorHandler(w.store.handleError))
}

// processFilesystemEvent maps an fsnotify event to a store event.
// Returns false if the event was ignored.
func (w *watchWorker) processFilesystemEvent(ctx context.Context, event fsnotify.Event) bool {
	w.store.config.Logger.Debug("event received", "name", event.Name, "op", event.Op.String())

	if strings.HasPrefix(filepath.Base(event.Name), ".") {
		return false
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			w.trackDirectory(ctx, event.Name)
			return false
		}
	}

	var eType core.EventType
	switch {
	case event.Has(fsnotify.Create):
		eType = core.EventCreate
	case event.Has(fsnotify.Write):
		eType = core.EventModify
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		eType = core.EventDelete
	default:
		return false
	}
	return w.emit(event.Name, eType)
}

func (w *watchWorker) emit(p string, eType core.EventType) bool {
	id, err := w.store.resolveID(p)
	if err != nil {
		w.store.config.Logger.Debug("resolveID failed", "path", p, "err", err)
		return false
	}
	if ok, _ := doublestar.Match(w.pattern, id); !ok {
		return false
	}
	w.debouncer.add(core.Event{Type: eType, ID: id, Timestamp: time.Now().Unix()})
	return true
}

// deliver sends an event, giving up when the watch is cancelled.
// run cancels ctx before it drains the debouncer, so no delivery is in
// flight once the events channel is closed.
func (w *watchWorker) deliver(ctx context.Context, e core.Event) {
	select {
	case w.events <- e:
	case <-ctx.Done():
	}
}

// run is the main event loop for the watcher worker.
func (w *watchWorker) run(ctx context.Context) (err error) {
	defer close(w.done)
	defer w.store.trackWatcher(-1)
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("watcher panic: %v", recovered)
			if w.store.config.Logger.Enabled(ctx, slog.LevelDebug) {
				w.store.config.Logger.Error("watcher panic", "error", err, "stack", string(debug.Stack()))
			} else {
				w.store.config.Logger.Error("watcher panic", "error", err)
			}
		}
	}()
	defer w.watcher.Close()

	err = w.mainEventLoop(ctx)

	// Unblock pending deliveries, then wait for them before done closes
	// the events channel.
	w.cancel()
	w.debouncer.stop()
	return err
}

func (w *watchWorker) mainEventLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher events channel closed")
			}
			w.processFilesystemEvent(ctx, event)

		case wErr, ok := <-w.watcher.Errors:
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher errors channel closed")
			}
			w.store.handleError(wErr)
		}
	}
}

func (s *Store) handleError(err error) {
	if s.config.ErrorHandler != nil {
		s.config.ErrorHandler(err)
		return
	}
	s.config.Logger.Error("watch error", "error", err)
}

// debouncer coalesces bursts of events per id. An atomic save shows up as
// create, write and rename in quick succession; subscribers see one event.
type debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	fire    func(core.Event)
	pending map[string]*pendingEvent
	wg      sync.WaitGroup
	stopped bool
}

type pendingEvent struct {
	event core.Event
	timer *time.Timer
}

func newDebouncer(delay time.Duration, fire func(core.Event)) *debouncer {
	return &debouncer{
		delay:   delay,
		fire:    fire,
		pending: make(map[string]*pendingEvent),
	}
}

func (d *debouncer) add(e core.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	if p, ok := d.pending[e.ID]; ok && p.timer.Stop() {
		p.event = mergeEvents(p.event, e)
		p.timer.Reset(d.delay)
		return
	}

	p := &pendingEvent{event: e}
	d.wg.Add(1)
	p.timer = time.AfterFunc(d.delay, func() {
		defer d.wg.Done()
		d.mu.Lock()
		ev := p.event
		if d.pending[ev.ID] == p {
			delete(d.pending, ev.ID)
		}
		d.mu.Unlock()
		d.fire(ev)
	})
	d.pending[e.ID] = p
}

// mergeEvents keeps CREATE when a new document is written again in the same burst.
func mergeEvents(prev, next core.Event) core.Event {
	if prev.Type == core.EventCreate && next.Type == core.EventModify {
		next.Type = core.EventCreate
	}
	return next
}

// stop drops pending events and waits for deliveries already firing.
// Callers must make fire return promptly, e.g. by cancelling its context.
func (d *debouncer) stop() {
	d.mu.Lock()
	d.stopped = true
	for id, p := range d.pending {
		if p.timer.Stop() {
			d.wg.Done()
		}
		delete(d.pending, id)
	}
	d.mu.Unlock()

	d.wg.Wait()
}
