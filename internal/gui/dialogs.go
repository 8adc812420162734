//go:build !nogui

package gui

import (
	"context"
	"sync"

	"inkwell/internal/dialog"
	"inkwell/internal/errors"
	"inkwell/internal/log"

	"fyne.io/fyne/v2"
	fynedialog "fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
)

var dialogSize = fyne.NewSize(820, 560)

// Dialogs shows native fyne file dialogs over a window. Calls block until
// the user picks or dismisses, so they must not run on the UI goroutine.
type Dialogs struct {
	win fyne.Window
	mu  sync.Mutex
}

// NewDialogs creates dialogs parented to win.
func NewDialogs(win fyne.Window) *Dialogs {
	return &Dialogs{win: win}
}

type pickResult struct {
	sel dialog.Selection
	err error
}

// pickedFile is what fyne hands back: the chosen file, already opened.
type pickedFile interface {
	URI() fyne.URI
	Close() error
}

// deliver turns a fyne dialog callback into a pickResult. fyne opens the
// file itself before calling back, so err may be the open failure; it is
// wrapped, not replaced, so callers can still classify the cause.
func deliver(results chan<- pickResult, what string, f pickedFile, err error) {
	switch {
	case err != nil:
		results <- pickResult{err: errors.Wrap(err, what+" dialog failed")}
	case f == nil:
		results <- pickResult{}
	default:
		uri := f.URI().String()
		if cerr := f.Close(); cerr != nil {
			log.LogWithFields(log.F("uri", uri), log.F("error", cerr)).Debug("Closing picked file failed")
		}
		results <- pickResult{sel: dialog.Choose(uri)}
	}
}

func (d *Dialogs) PickFile(ctx context.Context, opts dialog.Options) (dialog.Selection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	results := make(chan pickResult, 1)
	fd := fynedialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
		deliver(results, "open", rc, err)
	}, d.win)

	applyOptions(fd, opts)
	return d.await(ctx, fd, results)
}

func (d *Dialogs) PickSaveFile(ctx context.Context, opts dialog.Options) (dialog.Selection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	results := make(chan pickResult, 1)
	fd := fynedialog.NewFileSave(func(wc fyne.URIWriteCloser, err error) {
		deliver(results, "save", wc, err)
	}, d.win)

	applyOptions(fd, opts)
	if opts.SuggestedName != "" {
		fd.SetFileName(opts.SuggestedName)
	}
	return d.await(ctx, fd, results)
}

func (d *Dialogs) await(ctx context.Context, fd *fynedialog.FileDialog, results <-chan pickResult) (dialog.Selection, error) {
	fd.Resize(dialogSize)
	fd.Show()

	select {
	case r := <-results:
		return r.sel, r.err
	case <-ctx.Done():
		fd.Hide()
		return dialog.Selection{}, ctx.Err()
	}
}

// applyOptions maps what fyne supports of opts onto fd. fyne dialogs carry
// their own title, so opts.Title is not shown.
func applyOptions(fd *fynedialog.FileDialog, opts dialog.Options) {
	if filter := fileFilter(opts.Filters); filter != nil {
		fd.SetFilter(filter)
	}
	if opts.StartDir != "" {
		if lister, err := storage.ListerForURI(storage.NewFileURI(opts.StartDir)); err == nil {
			fd.SetLocation(lister)
		} else {
			log.LogWithFields(log.F("dir", opts.StartDir), log.F("error", err)).Debug("Ignoring dialog start directory")
		}
	}
}

// globFilter adapts dialog filters to fyne's single-filter model by
// accepting the union of their patterns.
type globFilter struct {
	filters []dialog.Filter
}

func (g globFilter) Matches(uri fyne.URI) bool {
	return dialog.MatchAny(g.filters, uri.Name())
}

// fileFilter returns nil when any filter admits every file.
func fileFilter(filters []dialog.Filter) storage.FileFilter {
	if len(filters) == 0 {
		return nil
	}
	for _, f := range filters {
		if f.AllFiles() {
			return nil
		}
	}
	return globFilter{filters: filters}
}
