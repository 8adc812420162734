//go:build !nogui

package gui

import (
	"context"

	"inkwell/internal/config"
	"inkwell/internal/editor"
	"inkwell/internal/errors"
	"inkwell/internal/log"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	fynedialog "fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
)

// Shell is the desktop window hosting the editor backend. It owns the fyne
// app, parents the file dialogs and shows the current filename.
type Shell struct {
	fyneApp fyne.App
	window  fyne.Window
	title   string

	svc      *editor.Service
	onOpened func(*editor.OpenedFile)
	unsub    func()

	nameLabel   *widget.Label
	statusLabel *widget.Label
}

// NewShell creates the fyne application and its main window.
func NewShell(cfg *config.Config) (*Shell, error) {
	return NewShellWithApp(app.NewWithID("io.github.inkwell"), cfg), nil
}

// NewShellWithApp builds the shell on an existing fyne app.
func NewShellWithApp(fyneApp fyne.App, cfg *config.Config) *Shell {
	s := &Shell{
		fyneApp:     fyneApp,
		title:       cfg.Window.Title,
		nameLabel:   widget.NewLabel(editor.Untitled),
		statusLabel: widget.NewLabel(""),
	}
	s.nameLabel.TextStyle = fyne.TextStyle{Bold: true}

	s.window = fyneApp.NewWindow(s.title)
	s.window.Resize(fyne.NewSize(cfg.Window.Width, cfg.Window.Height))
	s.window.SetContent(container.NewVBox(s.nameLabel, s.statusLabel))
	return s
}

// Window returns the main window, the parent of every file dialog.
func (s *Shell) Window() fyne.Window {
	return s.window
}

// Dialogs returns file dialogs parented to the main window.
func (s *Shell) Dialogs() *Dialogs {
	return NewDialogs(s.window)
}

// Attach connects the shell to the editor. onOpened receives files opened
// from the window menu so other views can load them.
func (s *Shell) Attach(svc *editor.Service, onOpened func(*editor.OpenedFile)) {
	s.svc = svc
	s.onOpened = onOpened
	s.unsub = svc.Subscribe(s.handleEvent)
	s.window.SetMainMenu(s.mainMenu())
	s.addShortcuts()
}

func (s *Shell) handleEvent(ev editor.Event) {
	switch ev.Kind {
	case editor.CurrentFileChanged:
		name := editor.Untitled
		if ev.Path != "" {
			name = ev.Filename
		}
		s.nameLabel.SetText(name)
		s.statusLabel.SetText(ev.Path)
		s.window.SetTitle(windowTitle(name, s.title))
	case editor.FileChangedOnDisk:
		s.statusLabel.SetText(ev.Filename + " changed on disk")
	}
}

func windowTitle(name, appTitle string) string {
	if appTitle == "" {
		return name
	}
	return name + " - " + appTitle
}

func (s *Shell) mainMenu() *fyne.MainMenu {
	open := fyne.NewMenuItem("Open…", s.openFile)
	open.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyO, Modifier: fyne.KeyModifierShortcutDefault}

	newItem := fyne.NewMenuItem("New", s.clearFile)
	newItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyN, Modifier: fyne.KeyModifierShortcutDefault}

	// fyne appends Quit to the first menu.
	return fyne.NewMainMenu(fyne.NewMenu("File", open, newItem))
}

func (s *Shell) addShortcuts() {
	canvas := s.window.Canvas()
	canvas.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyO, Modifier: fyne.KeyModifierShortcutDefault}, func(fyne.Shortcut) {
		s.openFile()
	})
	canvas.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyN, Modifier: fyne.KeyModifierShortcutDefault}, func(fyne.Shortcut) {
		s.clearFile()
	})
}

// openFile runs the open command off the UI goroutine.
func (s *Shell) openFile() {
	go func() {
		opened, err := s.svc.OpenFile(context.Background())
		if err != nil {
			s.showError(err)
			return
		}
		if opened != nil && s.onOpened != nil {
			s.onOpened(opened)
		}
	}()
}

func (s *Shell) clearFile() {
	if err := s.svc.ClearCurrent(); err != nil {
		s.showError(err)
	}
}

func (s *Shell) showError(err error) {
	fileErr := errors.AsFileError(err)
	fynedialog.ShowError(errors.New(fileErr.Kind().Message()), s.window)
}

// Run shows the window and blocks in the fyne event loop. It must be
// called from the main goroutine.
func (s *Shell) Run() {
	s.window.SetMaster()
	s.window.Show()
	log.Debug("Window shown")
	s.fyneApp.Run()
	if s.unsub != nil {
		s.unsub()
	}
}

// Quit stops the event loop.
func (s *Shell) Quit() {
	s.fyneApp.Quit()
}

// Available reports whether this build has a desktop shell.
func Available() bool {
	return true
}
