// Package dialog defines the file dialog service the editor talks to and
// the implementations that do not need a GUI toolkit.
//
// A dialog has two outcomes: the user chose a location, or the user
// cancelled. Cancellation is a zero Selection, never an error.
package dialog

import (
	"context"
	"net/url"
	"path/filepath"
	"runtime"
	"strings"

	"inkwell/internal/errors"
)

// Dialogs presents blocking open/save pickers. Implementations must be safe
// for concurrent use; callers invoke them from worker goroutines.
type Dialogs interface {
	PickFile(ctx context.Context, opts Options) (Selection, error)
	PickSaveFile(ctx context.Context, opts Options) (Selection, error)
}

// Options describes one dialog invocation.
type Options struct {
	Title         string
	Filters       []Filter
	SuggestedName string
	// StartDir is where the dialog opens. It never restricts the choice.
	StartDir string
}

// Selection is what the user picked: a file:// URI or an absolute path.
// The zero value means the dialog was cancelled.
type Selection struct {
	URI string
}

// Choose is a convenience for a Selection of a local path.
func Choose(path string) Selection {
	return Selection{URI: path}
}

// Cancelled reports whether the user dismissed the dialog.
func (s Selection) Cancelled() bool {
	return s.URI == ""
}

// Path resolves the selection to an absolute local path. Anything the
// platform cannot map to a filesystem location is an InvalidPath error.
func (s Selection) Path() (string, error) {
	raw := s.URI
	if raw == "" || strings.ContainsRune(raw, 0) {
		return "", invalidPath(raw, nil)
	}

	if i := strings.Index(raw, "://"); i > 0 {
		u, err := url.Parse(raw)
		if err != nil {
			return "", invalidPath(raw, err)
		}
		if !strings.EqualFold(u.Scheme, "file") {
			return "", invalidPath(raw, errors.Newf("unsupported scheme %q", u.Scheme))
		}
		if u.Host != "" && u.Host != "localhost" {
			return "", invalidPath(raw, errors.Newf("remote host %q", u.Host))
		}
		raw = u.Path
		if runtime.GOOS == "windows" && len(raw) > 2 && raw[0] == '/' && raw[2] == ':' {
			raw = raw[1:]
		}
		raw = filepath.FromSlash(raw)
	}

	if !filepath.IsAbs(raw) {
		return "", invalidPath(s.URI, errors.New("not an absolute path"))
	}
	return filepath.Clean(raw), nil
}

func invalidPath(uri string, cause error) error {
	return errors.NewFileError(errors.InvalidPath.Message(), uri, errors.InvalidPath, cause)
}
