package filestore

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/aretw0/lifecycle/pkg/core/worker"
	"github.com/fsnotify/fsnotify"

	"github.com/trellisdb/trellis/pkg/core"
)

const debounceDelay = 50 * time.Millisecond

// watchWorker observes the store root for external mutations (another
// process editing document files) and reports them as events so callers can
// invalidate their caches. There is no server push channel; this is the only
// out-of-band invalidation trigger.
type watchWorker struct {
	*worker.BaseWorker
	store     *Store
	events    chan core.Event
	watcher   *fsnotify.Watcher
	debouncer *debouncer
	cancel    context.CancelFunc
}

func newWatchWorker(store *Store, events chan core.Event) *watchWorker {
	return &watchWorker{
		BaseWorker: worker.NewBaseWorker("filestore-watcher"),
		store:      store,
		events:     events,
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

	if err := watcher.Add(w.store.root); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch store root: %w", err)
	}
	// Existing workspace directories; new ones are added from create events.
	if entries, err := filepath.Glob(filepath.Join(w.store.root, "*")); err == nil {
		for _, entry := range entries {
			_ = watcher.Add(entry)
		}
	}

	w.watcher = watcher
	w.debouncer = newDebouncer(debounceDelay)
	w.store.setWatcherActive(true)

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

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

// resolve maps a filesystem event path to (workspace, document path).
func (w *watchWorker) resolve(name string) (workspace, docPath string, ok bool) {
	rel, err := filepath.Rel(w.store.root, name)
	if err != nil {
		return "", "", false
	}
	dir, file := filepath.Split(rel)
	workspace = filepath.Clean(dir)
	if workspace == "." || workspace == ".." || filepath.Dir(workspace) != "." {
		return "", "", false
	}
	docPath, ok = pathFromFile(file)
	return workspace, docPath, ok
}

func mapEventType(event fsnotify.Event) core.EventType {
	switch {
	case event.Has(fsnotify.Create):
		return core.EventCreate
	case event.Has(fsnotify.Write):
		return core.EventModify
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return core.EventDelete
	default:
		return ""
	}
}

func (w *watchWorker) processEvent(ctx context.Context, event fsnotify.Event) {
	logger := w.store.logger
	logger.Debug("event received", "name", event.Name, "op", event.Op.String())

	// A new workspace directory needs its own watch.
	if event.Has(fsnotify.Create) && filepath.Dir(event.Name) == w.store.root {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			_ = w.watcher.Add(event.Name)
		}
	}

	eType := mapEventType(event)
	if eType == "" {
		return
	}
	workspace, docPath, ok := w.resolve(event.Name)
	if !ok {
		return
	}

	key := workspace + "\x00" + docPath
	w.debouncer.add(key, func() {
		defer func() {
			// Recover from panic if channel was closed (worker stopping)
			_ = recover()
		}()
		select {
		case w.events <- core.Event{
			Type:      eType,
			Workspace: workspace,
			Path:      docPath,
			Timestamp: time.Now().Unix(),
		}:
		case <-ctx.Done():
		}
	})
}

// run is the main event loop for the watcher worker.
func (w *watchWorker) run(ctx context.Context) (err error) {
	logger := w.store.logger
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("watcher panic: %v", recovered)
			if logger.Enabled(ctx, slog.LevelDebug) {
				logger.Error("watcher panic", "error", err, "stack", string(debug.Stack()))
			} else {
				logger.Error("watcher panic", "error", err)
			}
		}
		w.debouncer.stopAndWait(5 * time.Second)
		_ = w.watcher.Close()
		w.store.setWatcherActive(false)
		close(w.events)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.processEvent(ctx, event)
		case werr, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("fsnotify error", "error", werr)
		}
	}
}

// Watch starts observing the store root for external mutations. The
// returned channel delivers debounced change events and closes when ctx is
// canceled.
func (s *Store) Watch(ctx context.Context) (<-chan core.Event, error) {
	events := make(chan core.Event, 64)
	w := newWatchWorker(s, events)
	if err := w.Start(ctx); err != nil {
		return nil, err
	}
	return events, nil
}

func (s *Store) setWatcherActive(active bool) {
	s.stateMu.Lock()
	s.watcherActive = active
	s.stateMu.Unlock()
}
