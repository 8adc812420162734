package watch

import (
	"fmt"
	"sync"
	"time"

	"inkwell/internal/editor"
	"inkwell/internal/log"
)

// DaemonStatus represents the current status of the daemon
type DaemonStatus struct {
	Running      bool      // Whether the daemon is currently active
	Tracked      string    // File being followed, empty when none
	LastActivity time.Time // Time of the last modification seen
	ChangesSeen  int       // Modifications handed to the editor
}

// Daemon keeps a Watcher pointed at the editor's current file and reports
// modifications back to the editor.
type Daemon struct {
	svc     *editor.Service
	watcher *Watcher
	unsub   func()
	done    chan struct{}

	mutex        sync.RWMutex
	running      bool
	changes      int
	lastActivity time.Time
}

// NewDaemon creates a daemon for svc.
func NewDaemon(svc *editor.Service) (*Daemon, error) {
	w, err := New()
	if err != nil {
		return nil, err
	}
	return &Daemon{svc: svc, watcher: w, done: make(chan struct{})}, nil
}

// Start begins following the current file. A daemon runs at most once.
func (d *Daemon) Start() error {
	d.mutex.Lock()
	if d.running {
		d.mutex.Unlock()
		return fmt.Errorf("daemon is already running")
	}
	d.running = true
	d.mutex.Unlock()

	if err := d.watcher.Start(); err != nil {
		d.mutex.Lock()
		d.running = false
		d.mutex.Unlock()
		return fmt.Errorf("error starting watcher: %w", err)
	}

	d.unsub = d.svc.Subscribe(func(ev editor.Event) {
		if ev.Kind == editor.CurrentFileChanged {
			d.follow(ev.Path)
		}
	})
	if path, ok := d.svc.CurrentPath(); ok {
		d.follow(path)
	}

	go d.processEvents()
	return nil
}

// Stop halts the daemon.
func (d *Daemon) Stop() {
	d.mutex.Lock()
	if !d.running {
		d.mutex.Unlock()
		return
	}
	d.running = false
	d.mutex.Unlock()

	if d.unsub != nil {
		d.unsub()
	}
	d.watcher.Stop()
	<-d.done
}

// Status returns the current status of the daemon
func (d *Daemon) Status() DaemonStatus {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	return DaemonStatus{
		Running:      d.running,
		Tracked:      d.watcher.Tracked(),
		LastActivity: d.lastActivity,
		ChangesSeen:  d.changes,
	}
}

func (d *Daemon) follow(path string) {
	if err := d.watcher.Track(path); err != nil {
		log.LogWithFields(log.F("file", path), log.F("error", err)).Warn("Cannot watch current file")
	}
}

// processEvents hands file modifications to the editor
func (d *Daemon) processEvents() {
	defer close(d.done)
	for mod := range d.watcher.FileChannel() {
		d.mutex.Lock()
		d.lastActivity = mod.Timestamp
		d.changes++
		d.mutex.Unlock()

		d.svc.CheckDisk(mod.Path)
	}
}
