// Package watcher re-imports mirror documents when they are edited
// outside the application, so changes made in a plain-text editor show
// up without a manual import.
package watcher

import (
	"context"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/shelfmark/shelfmark/internal/mirror"
)

// DefaultDebounce is how long the watcher waits after the last write
// event before importing a file. Editors typically produce several
// events per save.
const DefaultDebounce = 500 * time.Millisecond

// MirrorWatcher watches the mirror directory and imports changed
// documents through the mirror importer.
type MirrorWatcher struct {
	importer *mirror.Importer
	dir      string
	debounce time.Duration

	mu        sync.Mutex
	timers    map[string]*time.Timer
	watcher   *fsnotify.Watcher
	isRunning bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewMirrorWatcher creates a watcher for dir. A non-positive debounce
// falls back to DefaultDebounce.
func NewMirrorWatcher(importer *mirror.Importer, dir string, debounce time.Duration) *MirrorWatcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &MirrorWatcher{
		importer: importer,
		dir:      dir,
		debounce: debounce,
		timers:   make(map[string]*time.Timer),
	}
}

// Start begins watching. It returns once the underlying watch is
// established; events are processed in a background goroutine until the
// context is cancelled or Stop is called.
func (w *MirrorWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.isRunning {
		return nil
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsWatcher.Add(w.dir); err != nil {
		fsWatcher.Close()
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.watcher = fsWatcher
	w.cancel = cancel
	w.isRunning = true
	w.done = make(chan struct{})

	log.Printf("Mirror watcher: watching %s", w.dir)
	go w.loop(runCtx)

	return nil
}

// Stop stops watching and waits for the event loop to exit. Pending
// debounced imports are dropped.
func (w *MirrorWatcher) Stop() {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return
	}
	w.isRunning = false
	w.cancel()
	for path, timer := range w.timers {
		timer.Stop()
		delete(w.timers, path)
	}
	done := w.done
	w.mu.Unlock()

	<-done
	log.Printf("Mirror watcher: stopped")
}

func (w *MirrorWatcher) loop(ctx context.Context) {
	defer close(w.done)
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !relevant(event) {
				continue
			}
			w.scheduleImport(event.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Mirror watcher: %v", err)
		}
	}
}

// relevant filters for completed writes to mirror documents. The
// exporter's own temp-file-and-rename writes surface as a Create of the
// final .md path, which also re-imports cleanly as a no-op skip.
func relevant(event fsnotify.Event) bool {
	if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
		return false
	}
	name := filepath.Base(event.Name)
	return strings.HasSuffix(name, ".md") && !strings.HasPrefix(name, ".")
}

func (w *MirrorWatcher) scheduleImport(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.isRunning {
		return
	}
	if timer, ok := w.timers[path]; ok {
		timer.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		running := w.isRunning
		w.mu.Unlock()
		if !running {
			return
		}

		outcome, err := w.importer.ImportFile(path)
		switch {
		case err != nil:
			log.Printf("Mirror watcher: failed to import %s: %v", path, err)
		case outcome == mirror.OutcomeImported:
			log.Printf("Mirror watcher: imported %s", path)
		}
	})
}
