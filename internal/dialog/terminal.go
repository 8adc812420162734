package dialog

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213"))
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
)

// Terminal presents pickers as full-screen bubbletea programs on the
// controlling terminal. Only one dialog is shown at a time.
type Terminal struct {
	mu  sync.Mutex
	in  io.Reader
	out io.Writer
}

// NewTerminal creates terminal dialogs on stdin/stdout.
func NewTerminal() *Terminal {
	return &Terminal{in: os.Stdin, out: os.Stdout}
}

// NewTerminalWithIO creates terminal dialogs on the given streams.
func NewTerminalWithIO(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: in, out: out}
}

func (t *Terminal) PickFile(ctx context.Context, opts Options) (Selection, error) {
	return t.run(ctx, newOpenModel(opts))
}

func (t *Terminal) PickSaveFile(ctx context.Context, opts Options) (Selection, error) {
	return t.run(ctx, newSaveModel(opts))
}

type chooser interface {
	tea.Model
	choice() string
}

func (t *Terminal) run(ctx context.Context, m chooser) (Selection, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p := tea.NewProgram(m,
		tea.WithContext(ctx),
		tea.WithInput(t.in),
		tea.WithOutput(t.out),
		tea.WithAltScreen(),
	)
	final, err := p.Run()
	if err != nil {
		if ctx.Err() != nil {
			return Selection{}, ctx.Err()
		}
		return Selection{}, fmt.Errorf("terminal dialog: %w", err)
	}
	c, ok := final.(chooser)
	if !ok || c.choice() == "" {
		return Selection{}, nil
	}
	return Choose(c.choice()), nil
}

func startDir(opts Options) string {
	if opts.StartDir != "" {
		return opts.StartDir
	}
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}

func nextFilter(filters []Filter, current int) int {
	if len(filters) == 0 {
		return 0
	}
	return (current + 1) % len(filters)
}

func filterLine(filters []Filter, current int) string {
	if len(filters) == 0 {
		return ""
	}
	return hintStyle.Render("Filter: "+filters[current].Label()+"  (tab to switch)") + "\n"
}

// openModel wraps the bubbles file picker.
type openModel struct {
	title   string
	picker  filepicker.Model
	filters []Filter
	filter  int
	chosen  string
	status  string
}

func newOpenModel(opts Options) openModel {
	fp := filepicker.New()
	fp.CurrentDirectory = startDir(opts)
	fp.FileAllowed = true
	fp.DirAllowed = false

	m := openModel{
		title:   opts.Title,
		picker:  fp,
		filters: opts.Filters,
	}
	m.applyFilter()
	return m
}

func (m *openModel) applyFilter() {
	if len(m.filters) == 0 {
		m.picker.AllowedTypes = nil
		return
	}
	m.picker.AllowedTypes = m.filters[m.filter].Suffixes()
}

func (m openModel) choice() string { return m.chosen }

func (m openModel) Init() tea.Cmd {
	return m.picker.Init()
}

func (m openModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "esc", "ctrl+c":
			m.chosen = ""
			return m, tea.Quit
		case "tab":
			m.filter = nextFilter(m.filters, m.filter)
			m.applyFilter()
			m.status = ""
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)

	if ok, path := m.picker.DidSelectFile(msg); ok {
		m.chosen = path
		return m, tea.Quit
	}
	if ok, path := m.picker.DidSelectDisabledFile(msg); ok {
		m.status = filepath.Base(path) + " does not match the current filter"
		return m, cmd
	}
	return m, cmd
}

func (m openModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title) + "\n")
	b.WriteString(hintStyle.Render(m.picker.CurrentDirectory) + "\n")
	b.WriteString(filterLine(m.filters, m.filter))
	if m.status != "" {
		b.WriteString(warnStyle.Render(m.status) + "\n")
	}
	b.WriteString("\n" + m.picker.View() + "\n")
	b.WriteString(hintStyle.Render("enter: open  ←/backspace: up  esc: cancel"))
	return b.String()
}

// saveModel asks for a destination path.
type saveModel struct {
	title   string
	dir     string
	input   textinput.Model
	filters []Filter
	filter  int
	chosen  string
	status  string
}

func newSaveModel(opts Options) saveModel {
	dir := startDir(opts)
	ti := textinput.New()
	ti.Placeholder = "path/to/file"
	ti.Prompt = "Save as: "
	ti.SetValue(filepath.Join(dir, opts.SuggestedName) + suffixSep(opts.SuggestedName))
	ti.Focus()

	return saveModel{
		title:   opts.Title,
		dir:     dir,
		input:   ti,
		filters: opts.Filters,
	}
}

// suffixSep keeps a trailing separator when no name was suggested so the
// user starts typing inside the directory.
func suffixSep(name string) string {
	if name == "" {
		return string(filepath.Separator)
	}
	return ""
}

func (m saveModel) choice() string { return m.chosen }

func (m saveModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m saveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "esc", "ctrl+c":
			m.chosen = ""
			return m, tea.Quit
		case "tab":
			m.filter = nextFilter(m.filters, m.filter)
			return m, nil
		case "enter":
			path, err := m.resolve(m.input.Value())
			if err != nil {
				m.status = err.Error()
				return m, nil
			}
			m.chosen = path
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m saveModel) resolve(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" || strings.HasSuffix(value, string(filepath.Separator)) {
		return "", fmt.Errorf("enter a file name")
	}
	if value == "~" || strings.HasPrefix(value, "~"+string(filepath.Separator)) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot resolve ~: %w", err)
		}
		value = filepath.Join(home, value[1:])
	}
	if !filepath.IsAbs(value) {
		value = filepath.Join(m.dir, value)
	}
	if len(m.filters) > 0 {
		value = WithDefaultExtension(m.filters[m.filter], value)
	}
	if info, err := os.Stat(value); err == nil && info.IsDir() {
		return "", fmt.Errorf("%s is a directory", value)
	}
	return filepath.Clean(value), nil
}

func (m saveModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title) + "\n")
	b.WriteString(filterLine(m.filters, m.filter))
	if m.status != "" {
		b.WriteString(warnStyle.Render(m.status) + "\n")
	}
	b.WriteString("\n" + m.input.View() + "\n\n")
	b.WriteString(hintStyle.Render("enter: save  esc: cancel"))
	return b.String()
}
