// Package watch follows the editor's current file on disk.
package watch

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"inkwell/internal/log"

	"github.com/fsnotify/fsnotify"
)

// FileModification is a change to the tracked file
type FileModification struct {
	Path      string
	Timestamp time.Time
	Op        fsnotify.Op
}

// relevant ops; chmod-only events are noise from indexers and backup tools
const relevant = fsnotify.Create | fsnotify.Write | fsnotify.Remove | fsnotify.Rename

// Watcher reports modifications of a single tracked file. It watches the
// parent directory so editors that save by rename-and-replace are still seen.
type Watcher struct {
	// File being followed, empty when nothing is tracked
	path string

	// Directory registered with fsnotify for path
	dir string

	// Channel to receive file modifications
	fileModChan chan FileModification

	stopChan chan struct{}
	loopDone chan struct{}

	fsWatcher *fsnotify.Watcher

	mutex   sync.RWMutex
	running bool
	stopped bool
}

// New creates a watcher tracking nothing.
func New() (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		fileModChan: make(chan FileModification, 16),
		stopChan:    make(chan struct{}),
		loopDone:    make(chan struct{}),
		fsWatcher:   fsWatcher,
	}, nil
}

// Track switches the watcher to path. An empty path stops tracking. On
// error the watcher tracks nothing.
func (w *Watcher) Track(path string) error {
	if path != "" {
		path = filepath.Clean(path)
	}

	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.stopped {
		return fmt.Errorf("watcher stopped")
	}
	if path == w.path {
		return nil
	}

	dir := ""
	if path != "" {
		dir = filepath.Dir(path)
	}

	if dir != w.dir {
		if w.dir != "" {
			if err := w.fsWatcher.Remove(w.dir); err != nil {
				log.LogWithFields(log.F("directory", w.dir), log.F("error", err)).Debug("Failed to remove watch")
			}
		}
		w.dir = ""
		w.path = ""
		if dir != "" {
			if err := w.fsWatcher.Add(dir); err != nil {
				return fmt.Errorf("failed to watch %s: %w", dir, err)
			}
			w.dir = dir
		}
	}
	w.path = path

	if path == "" {
		log.Debug("No file tracked")
	} else {
		log.LogWithFields(log.F("file", path)).Info("Tracking file")
	}
	return nil
}

// Tracked returns the followed path, or "" when none.
func (w *Watcher) Tracked() string {
	w.mutex.RLock()
	defer w.mutex.RUnlock()
	return w.path
}

// FileChannel returns the channel that delivers modifications. It is
// closed by Stop.
func (w *Watcher) FileChannel() <-chan FileModification {
	return w.fileModChan
}

// Start begins delivering events. A watcher runs at most once.
func (w *Watcher) Start() error {
	w.mutex.Lock()
	if w.running || w.stopped {
		w.mutex.Unlock()
		return fmt.Errorf("watcher already started")
	}
	w.running = true
	w.mutex.Unlock()

	go w.loop()

	log.Debug("Watcher started")
	return nil
}

func (w *Watcher) loop() {
	defer close(w.loopDone)
	defer close(w.fileModChan)

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handle(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.LogWithFields(log.F("error", err)).Error("fsnotify watcher error")

		case <-w.stopChan:
			return
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Op&relevant == 0 {
		return
	}
	path := w.Tracked()
	if path == "" || filepath.Clean(event.Name) != path {
		return
	}

	mod := FileModification{
		Path:      path,
		Timestamp: time.Now(),
		Op:        event.Op,
	}

	select {
	case w.fileModChan <- mod:
	default:
		log.LogWithFields(log.F("file", path)).Warn("Event channel is full, dropped event")
	}
}

// Stop halts the watcher and closes FileChannel. It is safe to call more
// than once.
func (w *Watcher) Stop() {
	w.mutex.Lock()
	if w.stopped {
		w.mutex.Unlock()
		return
	}
	w.stopped = true
	wasRunning := w.running
	w.running = false
	close(w.stopChan)
	w.mutex.Unlock()

	if err := w.fsWatcher.Close(); err != nil {
		log.LogWithFields(log.F("error", err)).Error("Error closing fsnotify watcher")
	}

	if wasRunning {
		<-w.loopDone
	} else {
		close(w.fileModChan)
	}
	log.Debug("Watcher stopped")
}

// IsRunning returns whether the watcher is currently active
func (w *Watcher) IsRunning() bool {
	w.mutex.RLock()
	defer w.mutex.RUnlock()
	return w.running
}
