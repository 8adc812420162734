//go:build nogui

package gui

import (
	"context"

	"inkwell/internal/config"
	"inkwell/internal/dialog"
	"inkwell/internal/editor"
	"inkwell/internal/errors"
)

// ErrUnavailable is returned by NewShell in builds without a GUI.
var ErrUnavailable = errors.New("GUI not available in this build")

// Shell is a stub for builds with the GUI disabled.
type Shell struct{}

// Dialogs is a stub for builds with the GUI disabled.
type Dialogs struct{}

func (*Dialogs) PickFile(context.Context, dialog.Options) (dialog.Selection, error) {
	return dialog.Selection{}, ErrUnavailable
}

func (*Dialogs) PickSaveFile(context.Context, dialog.Options) (dialog.Selection, error) {
	return dialog.Selection{}, ErrUnavailable
}

// NewShell always fails in this build.
func NewShell(*config.Config) (*Shell, error) {
	return nil, ErrUnavailable
}

func (*Shell) Dialogs() *Dialogs                                { return &Dialogs{} }
func (*Shell) Attach(*editor.Service, func(*editor.OpenedFile)) {}
func (*Shell) Run()                                             {}
func (*Shell) Quit()                                            {}

// Available reports whether this build has a desktop shell.
func Available() bool {
	return false
}
