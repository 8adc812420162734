package editor

import (
	"fmt"
	"sync"
	"time"

	"inkwell/internal/errors"
)

// errLockPoisoned is returned once a critical section has panicked. The
// tracked path may be half-updated at that point, so the slot refuses
// further access instead of guessing.
var errLockPoisoned = errors.New("editor state lock poisoned")

// stamp identifies a version of a file on disk.
type stamp struct {
	modTime time.Time
	size    int64
	known   bool
}

func (s stamp) equal(o stamp) bool {
	return s.known == o.known && s.size == o.size && s.modTime.Equal(o.modTime)
}

// tracked is the file the editor considers open.
type tracked struct {
	path  string
	stamp stamp
}

// State is the process-wide current-file slot. The zero value tracks
// nothing. All access goes through one mutex held only long enough to read
// or replace the value.
type State struct {
	mu       sync.Mutex
	poisoned bool
	current  *tracked
}

// NewState creates an empty slot.
func NewState() *State {
	return &State{}
}

// locked runs fn inside the critical section. A panic in fn poisons the
// slot; that call and every later one fail with an IoError.
func (s *State) locked(fn func(cur **tracked)) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.poisoned {
		return errors.IO(errLockPoisoned, "")
	}

	defer func() {
		if r := recover(); r != nil {
			s.poisoned = true
			err = errors.IO(fmt.Errorf("%w: %v", errLockPoisoned, r), "")
		}
	}()

	fn(&s.current)
	return nil
}

// Path returns the tracked path, if any.
func (s *State) Path() (path string, ok bool, err error) {
	err = s.locked(func(cur **tracked) {
		if *cur != nil {
			path, ok = (*cur).path, true
		}
	})
	return path, ok, err
}

func (s *State) snapshot() (t tracked, ok bool, err error) {
	err = s.locked(func(cur **tracked) {
		if *cur != nil {
			t, ok = **cur, true
		}
	})
	return t, ok, err
}

// set replaces the tracked file.
func (s *State) set(path string, st stamp) error {
	return s.locked(func(cur **tracked) {
		*cur = &tracked{path: path, stamp: st}
	})
}

// Clear resets the slot to "no file".
func (s *State) Clear() error {
	return s.locked(func(cur **tracked) {
		*cur = nil
	})
}

// touch records a new on-disk stamp for path, but only while path is still
// the tracked file. It reports whether the stamp was recorded.
func (s *State) touch(path string, st stamp) (bool, error) {
	var updated bool
	err := s.locked(func(cur **tracked) {
		if *cur != nil && (*cur).path == path {
			(*cur).stamp = st
			updated = true
		}
	})
	return updated, err
}
