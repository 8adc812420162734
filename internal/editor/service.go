// Package editor owns the editor's file state: which file is current, and
// the open/save/save-as/clear operations that move it.
//
// The state machine has two states, no file and FileOpen(path). Successful
// opens and save-as move to FileOpen(new path); clear moves back to no
// file. Failed operations and cancelled dialogs leave the state untouched.
package editor

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"unicode/utf8"

	"inkwell/internal/dialog"
	"inkwell/internal/errors"
	"inkwell/internal/log"
	"inkwell/internal/worker"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
)

// Untitled is the display name of a path with no usable final component.
const Untitled = "Untitled"

var errNotUTF8 = errors.New("file is not valid UTF-8 text")

// OpenedFile is the result of a successful open.
type OpenedFile struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// EventKind names a state notification.
type EventKind string

const (
	// CurrentFileChanged fires after every successful open, save-as or clear.
	CurrentFileChanged EventKind = "current_file_changed"
	// FileChangedOnDisk fires when the tracked file was modified by someone else.
	FileChangedOnDisk EventKind = "file_changed_on_disk"
)

// Event is delivered to subscribers. Path is empty after a clear.
type Event struct {
	Kind     EventKind
	Path     string
	Filename string
}

// Options tune dialogs and writes.
type Options struct {
	OpenFilters []dialog.Filter
	SaveFilters []dialog.Filter
	StartDir    string
	FileMode    os.FileMode
}

// Service implements the editor commands on top of a shared State.
type Service struct {
	state   *State
	dialogs dialog.Dialogs
	fs      afero.Fs
	pool    *worker.Pool
	prompts *worker.Pool
	opts    Options

	subsMu  sync.RWMutex
	subs    map[int]func(Event)
	nextSub int

	writesMu sync.Mutex
	writes   map[string]int
}

// NewService wires the commands. fs is usually afero.NewOsFs(). pool runs
// file I/O; dialogs get a pool of the same size of their own, so prompts
// waiting on the user never hold up a save.
func NewService(state *State, dialogs dialog.Dialogs, fs afero.Fs, pool *worker.Pool, opts Options) *Service {
	if opts.FileMode == 0 {
		opts.FileMode = 0o644
	}
	return &Service{
		state:   state,
		dialogs: dialogs,
		fs:      fs,
		pool:    pool,
		prompts: worker.NewPool(pool.Size()),
		opts:    opts,
		subs:    make(map[int]func(Event)),
		writes:  make(map[string]int),
	}
}

// FilenameFromPath derives the display name of path: its last component,
// or Untitled when there is none.
func FilenameFromPath(path string) string {
	if filepath.Base(path) == ".." {
		return Untitled
	}
	base := filepath.Base(filepath.Clean(path))
	switch base {
	case ".", "..", string(filepath.Separator), filepath.VolumeName(path):
		return Untitled
	}
	if !utf8.ValidString(base) {
		return Untitled
	}
	return base
}

// Subscribe registers fn for state events and returns its cancel func.
// fn runs on the goroutine that caused the event and must not block.
func (s *Service) Subscribe(fn func(Event)) func() {
	s.subsMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subsMu.Unlock()

	return func() {
		s.subsMu.Lock()
		delete(s.subs, id)
		s.subsMu.Unlock()
	}
}

func (s *Service) publish(ev Event) {
	s.subsMu.RLock()
	handlers := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		handlers = append(handlers, fn)
	}
	s.subsMu.RUnlock()

	for _, fn := range handlers {
		fn(ev)
	}
}

// OpenFile asks the user for a file, reads it and makes it current. A
// cancelled dialog returns (nil, nil).
func (s *Service) OpenFile(ctx context.Context) (*OpenedFile, error) {
	sel, err := worker.Do(ctx, s.prompts, func() (dialog.Selection, error) {
		return s.dialogs.PickFile(ctx, dialog.Options{
			Title:    "Open File",
			Filters:  s.opts.OpenFilters,
			StartDir: s.opts.StartDir,
		})
	})
	if err != nil {
		return nil, s.fail("open", "", err)
	}
	if sel.Cancelled() {
		log.Debug("Open dialog cancelled")
		return nil, nil
	}

	path, err := sel.Path()
	if err != nil {
		return nil, s.fail("open", sel.URI, err)
	}

	type readResult struct {
		content string
		stamp   stamp
	}
	res, err := worker.Do(ctx, s.pool, func() (readResult, error) {
		content, st, err := s.read(path)
		return readResult{content: content, stamp: st}, err
	})
	if err != nil {
		return nil, s.fail("open", path, err)
	}

	if err := s.state.set(path, res.stamp); err != nil {
		return nil, s.fail("open", path, err)
	}

	filename := FilenameFromPath(path)
	log.LogWithFields(log.F("path", path), log.F("size", humanize.Bytes(uint64(len(res.content))))).Info("Opened file")
	s.publish(Event{Kind: CurrentFileChanged, Path: path, Filename: filename})

	return &OpenedFile{Filename: filename, Content: res.content}, nil
}

// SaveCurrent overwrites the current file with content. It fails with
// NoOpenFile, without touching the filesystem, when nothing is current.
func (s *Service) SaveCurrent(ctx context.Context, content string) error {
	path, ok, err := s.state.Path()
	if err != nil {
		return s.fail("save", "", err)
	}
	if !ok {
		return s.fail("save", "", errors.ErrNoOpenFile)
	}

	err = s.writeFile(ctx, path, content, func(st stamp) error {
		_, err := s.state.touch(path, st)
		return err
	})
	if err != nil {
		return s.fail("save", path, err)
	}

	log.LogWithFields(log.F("path", path), log.F("size", humanize.Bytes(uint64(len(content))))).Info("Saved file")
	return nil
}

// SaveAs asks the user for a destination, writes content there and makes
// it current. ok is false when the dialog was cancelled.
func (s *Service) SaveAs(ctx context.Context, content, suggestedName string) (filename string, ok bool, err error) {
	sel, err := worker.Do(ctx, s.prompts, func() (dialog.Selection, error) {
		return s.dialogs.PickSaveFile(ctx, dialog.Options{
			Title:         "Save File",
			Filters:       s.opts.SaveFilters,
			SuggestedName: suggestedName,
			StartDir:      s.opts.StartDir,
		})
	})
	if err != nil {
		return "", false, s.fail("save as", "", err)
	}
	if sel.Cancelled() {
		log.Debug("Save dialog cancelled")
		return "", false, nil
	}

	path, err := sel.Path()
	if err != nil {
		return "", false, s.fail("save as", sel.URI, err)
	}

	err = s.writeFile(ctx, path, content, func(st stamp) error {
		return s.state.set(path, st)
	})
	if err != nil {
		return "", false, s.fail("save as", path, err)
	}

	filename = FilenameFromPath(path)
	log.LogWithFields(log.F("path", path), log.F("size", humanize.Bytes(uint64(len(content))))).Info("Saved file as")
	s.publish(Event{Kind: CurrentFileChanged, Path: path, Filename: filename})

	return filename, true, nil
}

// ClearCurrent forgets the current file.
func (s *Service) ClearCurrent() error {
	if err := s.state.Clear(); err != nil {
		return s.fail("clear", "", err)
	}
	log.Debug("Cleared current file")
	s.publish(Event{Kind: CurrentFileChanged})
	return nil
}

// CurrentFilename returns the display name of the current file. ok is
// false when no file is current.
func (s *Service) CurrentFilename() (filename string, ok bool, err error) {
	path, ok, err := s.state.Path()
	if err != nil {
		return "", false, s.fail("current filename", "", err)
	}
	if !ok {
		return "", false, nil
	}
	return FilenameFromPath(path), true, nil
}

// CurrentPath returns the tracked path, for collaborators that follow it.
func (s *Service) CurrentPath() (string, bool) {
	path, ok, err := s.state.Path()
	if err != nil {
		return "", false
	}
	return path, ok
}

// CheckDisk compares the tracked file on disk with the version this
// service last read or wrote, and publishes FileChangedOnDisk when they
// differ. Paths other than the tracked one are ignored, as are checks
// racing one of our own writes.
func (s *Service) CheckDisk(path string) {
	if s.writing(path) {
		return
	}
	cur, ok, err := s.state.snapshot()
	if err != nil || !ok || cur.path != path {
		return
	}

	now := s.statStamp(path)
	if now.equal(cur.stamp) {
		return
	}
	if updated, err := s.state.touch(path, now); err != nil || !updated {
		return
	}

	filename := FilenameFromPath(path)
	log.LogWithFields(log.F("path", path)).Info("Current file changed on disk")
	s.publish(Event{Kind: FileChangedOnDisk, Path: path, Filename: filename})
}

// writeFile writes content on the pool and hands the new stamp to commit.
// Once the write has started it runs to the end even if ctx ends, so the
// caller's result matches the disk. path stays in the in-flight set until
// commit returns so CheckDisk ignores our own write.
func (s *Service) writeFile(ctx context.Context, path, content string, commit func(stamp) error) error {
	s.beginWrite(path)
	defer s.endWrite(path)

	st, err := worker.Complete(ctx, s.pool, func() (stamp, error) {
		return s.write(path, content)
	})
	if err != nil {
		return err
	}
	return commit(st)
}

func (s *Service) beginWrite(path string) {
	s.writesMu.Lock()
	s.writes[path]++
	s.writesMu.Unlock()
}

func (s *Service) endWrite(path string) {
	s.writesMu.Lock()
	if s.writes[path]--; s.writes[path] <= 0 {
		delete(s.writes, path)
	}
	s.writesMu.Unlock()
}

func (s *Service) writing(path string) bool {
	s.writesMu.Lock()
	defer s.writesMu.Unlock()
	return s.writes[path] > 0
}

// read loads path as UTF-8 text.
func (s *Service) read(path string) (string, stamp, error) {
	f, err := s.fs.Open(path)
	if err != nil {
		return "", stamp{}, errors.FromIO(err, path)
	}
	defer f.Close()

	var st stamp
	if info, err := f.Stat(); err == nil {
		if info.IsDir() {
			return "", stamp{}, errors.IO(errors.Newf("%s is a directory", path), path)
		}
		st = stampOf(info)
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return "", stamp{}, errors.FromIO(err, path)
	}
	if !utf8.Valid(data) {
		return "", stamp{}, errors.IO(errNotUTF8, path)
	}
	return string(data), st, nil
}

// write replaces the whole content of path.
func (s *Service) write(path, content string) (stamp, error) {
	if err := afero.WriteFile(s.fs, path, []byte(content), s.opts.FileMode); err != nil {
		return stamp{}, errors.FromIO(err, path)
	}
	return s.statStamp(path), nil
}

func (s *Service) statStamp(path string) stamp {
	info, err := s.fs.Stat(path)
	if err != nil {
		return stamp{}
	}
	return stampOf(info)
}

func stampOf(info os.FileInfo) stamp {
	return stamp{modTime: info.ModTime(), size: info.Size(), known: true}
}

// fail converts err into the file error the UI sees and logs it.
func (s *Service) fail(op, path string, err error) error {
	fileErr := errors.AsFileError(err)
	entry := log.LogWithError(fileErr).With(log.F("op", op))
	if path != "" && fileErr.Path() == "" {
		entry = entry.With(log.F("path", path))
	}
	if fileErr.Kind() == errors.NoOpenFile {
		entry.Info("Save requested with no current file")
	} else {
		entry.Warn("File operation failed")
	}
	return fileErr
}
