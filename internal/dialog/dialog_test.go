package dialog

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	inkerrors "inkwell/internal/errors"
	"inkwell/internal/log"
	"inkwell/pkg/testutils"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectionPath(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix paths")
	}

	tests := []struct {
		name    string
		uri     string
		want    string
		invalid bool
	}{
		{"absolute path", "/home/ana/notes.md", "/home/ana/notes.md", false},
		{"unclean path", "/home/ana/../ana/./notes.md", "/home/ana/notes.md", false},
		{"file uri", "file:///home/ana/notes.md", "/home/ana/notes.md", false},
		{"file uri escaped", "file:///home/ana/my%20notes.md", "/home/ana/my notes.md", false},
		{"file uri localhost", "file://localhost/tmp/a.txt", "/tmp/a.txt", false},
		{"root", "/", "/", false},
		{"relative", "notes.md", "", true},
		{"remote host", "file://server/share/a.md", "", true},
		{"content uri", "content://com.android/doc/12", "", true},
		{"http", "https://example.com/a.md", "", true},
		{"nul byte", "/tmp/a\x00b", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Choose(tt.uri).Path()
			if tt.invalid {
				require.Error(t, err)
				assert.True(t, inkerrors.IsInvalidPath(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelectionCancelled(t *testing.T) {
	assert.True(t, Selection{}.Cancelled())
	assert.False(t, Choose("/a").Cancelled())

	_, err := Selection{}.Path()
	assert.True(t, inkerrors.IsInvalidPath(err))
}

func TestFilters(t *testing.T) {
	markdown := NewFilter("Markdown", "md", ".markdown", "TXT")
	assert.Equal(t, "*.{md,markdown,txt}", markdown.Pattern())
	assert.True(t, markdown.Match("notes.md"))
	assert.True(t, markdown.Match("/a/b/README.MD"))
	assert.True(t, markdown.Match("log.txt"))
	assert.False(t, markdown.Match("image.png"))
	assert.False(t, markdown.Match("md"))
	assert.Equal(t, []string{".md", ".markdown", ".txt"}, markdown.Suffixes())
	assert.Equal(t, "Markdown (*.md, *.markdown, *.txt)", markdown.Label())

	single := NewFilter("Text", "txt")
	assert.Equal(t, "*.txt", single.Pattern())

	all := NewFilter("All Files", "*")
	assert.True(t, all.AllFiles())
	assert.True(t, all.Match("anything.bin"))
	assert.Nil(t, all.Suffixes())

	assert.True(t, MatchAny(nil, "x.bin"))
	assert.True(t, MatchAny([]Filter{single, markdown}, "x.md"))
	assert.False(t, MatchAny([]Filter{single, markdown}, "x.bin"))

	assert.Equal(t, "draft.md", WithDefaultExtension(markdown, "draft"))
	assert.Equal(t, "draft.txt", WithDefaultExtension(markdown, "draft.txt"))
	assert.Equal(t, "draft", WithDefaultExtension(all, "draft"))
}

func TestBrokenFilterMatchesBySuffix(t *testing.T) {
	var buf bytes.Buffer
	log.Configure(log.WithOutput(&buf))
	defer log.Configure()

	broken := NewFilter("Broken", "[")
	assert.True(t, broken.Match("odd.["))
	assert.False(t, broken.Match("notes.md"))
	assert.Contains(t, buf.String(), "Filter pattern does not compile")
	assert.Contains(t, buf.String(), "filter=Broken")
}

func TestScripted(t *testing.T) {
	s := NewScripted().
		QueueOpen(Pick("/tmp/a.md"), Cancel()).
		QueueSave(Step{Err: errors.New("display gone")})

	ctx := context.Background()

	sel, err := s.PickFile(ctx, Options{Title: "Open File"})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/a.md", sel.URI)

	sel, err = s.PickFile(ctx, Options{})
	require.NoError(t, err)
	assert.True(t, sel.Cancelled())

	// Exhausted queue cancels.
	sel, err = s.PickFile(ctx, Options{})
	require.NoError(t, err)
	assert.True(t, sel.Cancelled())

	_, err = s.PickSaveFile(ctx, Options{SuggestedName: "x.md"})
	assert.EqualError(t, err, "display gone")

	require.Len(t, s.OpenCalls(), 3)
	assert.Equal(t, "Open File", s.OpenCalls()[0].Title)
	require.Len(t, s.SaveCalls(), 1)
	assert.Equal(t, "x.md", s.SaveCalls()[0].SuggestedName)
}

func TestScriptedWaitHonoursContext(t *testing.T) {
	s := NewScripted().QueueOpen(Step{Selection: Choose("/a"), Wait: make(chan struct{})})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := s.PickFile(ctx, Options{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestOpenModelSelectsFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.md"), []byte("# a"), 0644))

	m := newOpenModel(Options{
		Title:    "Open File",
		StartDir: dir,
		Filters:  []Filter{NewFilter("Markdown", "md"), NewFilter("All Files", "*")},
	})

	// Load the directory listing.
	model, _ := m.Update(m.Init()())
	model, cmd := model.Update(tea.KeyMsg{Type: tea.KeyEnter})

	om := model.(openModel)
	assert.Equal(t, filepath.Join(dir, "a.md"), om.choice())
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.Contains(t, testutils.StripANSI(om.View()), "Open File")
}

func TestOpenModelCancel(t *testing.T) {
	m := newOpenModel(Options{StartDir: t.TempDir()})
	model, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})

	assert.Empty(t, model.(openModel).choice())
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestOpenModelCyclesFilters(t *testing.T) {
	m := newOpenModel(Options{
		StartDir: t.TempDir(),
		Filters:  []Filter{NewFilter("Markdown", "md"), NewFilter("All Files", "*")},
	})
	assert.Equal(t, []string{".md"}, m.picker.AllowedTypes)

	model, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Nil(t, model.(openModel).picker.AllowedTypes)

	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, []string{".md"}, model.(openModel).picker.AllowedTypes)
}

func TestSaveModel(t *testing.T) {
	dir := t.TempDir()

	t.Run("suggested name", func(t *testing.T) {
		m := newSaveModel(Options{StartDir: dir, SuggestedName: "draft.md"})
		assert.Equal(t, filepath.Join(dir, "draft.md"), m.input.Value())

		model, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		assert.Equal(t, filepath.Join(dir, "draft.md"), model.(saveModel).choice())
		assert.Equal(t, tea.Quit(), cmd())
	})

	t.Run("relative name gets filter extension", func(t *testing.T) {
		m := newSaveModel(Options{StartDir: dir, Filters: []Filter{NewFilter("Markdown", "md")}})
		m.input.SetValue("notes")

		model, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		assert.Equal(t, filepath.Join(dir, "notes.md"), model.(saveModel).choice())
	})

	t.Run("directory is rejected", func(t *testing.T) {
		m := newSaveModel(Options{StartDir: dir})
		m.input.SetValue(dir)

		model, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		sm := model.(saveModel)
		assert.Empty(t, sm.choice())
		assert.Nil(t, cmd)
		assert.Contains(t, sm.status, "is a directory")
	})

	t.Run("empty name is rejected", func(t *testing.T) {
		m := newSaveModel(Options{StartDir: dir})

		model, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		assert.Equal(t, "enter a file name", model.(saveModel).status)
	})

	t.Run("cancel", func(t *testing.T) {
		m := newSaveModel(Options{StartDir: dir, SuggestedName: "x.md"})
		model, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
		assert.Empty(t, model.(saveModel).choice())
	})
}
