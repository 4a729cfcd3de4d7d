package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a file must stay quiet before it is handled.
const DefaultDebounce = 500 * time.Millisecond

// Handler processes a file that was created or modified.
type Handler func(ctx context.Context, path string)

// Watcher calls a Handler for supported files written into a directory.
// Bursts of events for the same path collapse into one call.
type Watcher struct {
	dir      string
	exts     []string
	debounce time.Duration
	handler  Handler
	logger   *slog.Logger
}

// NewWatcher creates a watcher for dir. A nil exts means DefaultExtensions
// and a non-positive debounce means DefaultDebounce.
func NewWatcher(dir string, exts []string, debounce time.Duration, handler Handler, logger *slog.Logger) *Watcher {
	if exts == nil {
		exts = DefaultExtensions
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{dir: dir, exts: exts, debounce: debounce, handler: handler, logger: logger}
}

// wants reports whether event should trigger the handler.
func (w *Watcher) wants(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return false
	}
	if isHidden(filepath.Base(event.Name)) || !hasExtension(event.Name, w.exts) {
		return false
	}
	info, err := os.Stat(event.Name)
	return err == nil && info.Mode().IsRegular()
}

// Run watches until ctx is done. Handlers run on their own goroutines and
// Run waits for them before returning.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.logger.Info("Watching directory", "dir", w.dir)

	var (
		mu      sync.Mutex
		pending = map[string]*time.Timer{}
		wg      sync.WaitGroup
	)
	defer func() {
		mu.Lock()
		for name, t := range pending {
			if t.Stop() {
				wg.Done()
			}
			delete(pending, name)
		}
		mu.Unlock()
		wg.Wait()
	}()

	schedule := func(name string) {
		mu.Lock()
		defer mu.Unlock()
		if t, ok := pending[name]; ok && t.Stop() {
			t.Reset(w.debounce)
			return
		}
		wg.Add(1)
		var t *time.Timer
		t = time.AfterFunc(w.debounce, func() {
			defer wg.Done()
			mu.Lock()
			if pending[name] == t {
				delete(pending, name)
			}
			mu.Unlock()
			if ctx.Err() != nil {
				return
			}
			w.handler(ctx, name)
		})
		pending[name] = t
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Watcher error", "error", err)
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if w.wants(event) {
				schedule(event.Name)
			}
		}
	}
}
