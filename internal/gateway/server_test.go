package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"inkwell/internal/dialog"
	"inkwell/internal/editor"
	"inkwell/internal/worker"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

func startTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	if opts.Addr == "" {
		opts.Addr = "127.0.0.1:0"
	}
	srv := NewServer(opts)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(ctx) }()

	select {
	case <-srv.Ready():
	case err := <-errCh:
		t.Fatalf("server failed to start: %v", err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not start in time")
	}

	t.Cleanup(func() { _ = srv.Stop(context.Background()) })
	return srv
}

func dialWS(t *testing.T, addr, token string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	ws, _, err := websocket.Dial(ctx, "ws://"+addr+"/ws?token="+token, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close(websocket.StatusNormalClosure, "") })
	return ws
}

func call(t *testing.T, ws *websocket.Conn, id uint64, method string, params any) Frame {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	req := Frame{Type: FrameTypeRequest, ID: id, Method: method}
	if params != nil {
		data, err := json.Marshal(params)
		require.NoError(t, err)
		req.Payload = data
	}
	require.NoError(t, wsjson.Write(ctx, ws, req))

	for {
		var resp Frame
		require.NoError(t, wsjson.Read(ctx, ws, &resp))
		if resp.Type == FrameTypeResponse && resp.ID == id {
			return resp
		}
	}
}

func nextEvent(t *testing.T, ws *websocket.Conn, name string) Frame {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	for {
		var frame Frame
		require.NoError(t, wsjson.Read(ctx, ws, &frame))
		if frame.Type == FrameTypeEvent && frame.Method == name {
			return frame
		}
	}
}

func TestServerLifecycle(t *testing.T) {
	srv := startTestServer(t, Options{})
	require.NotEmpty(t, srv.BoundAddr())

	resp, err := http.Get("http://" + srv.BoundAddr() + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))
}

func TestServerStopsWithContext(t *testing.T) {
	srv := NewServer(Options{Addr: "127.0.0.1:0"})
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(ctx) }()
	<-srv.Ready()

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServerAuth(t *testing.T) {
	srv := startTestServer(t, Options{Token: "secret"})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, _, err := websocket.Dial(ctx, "ws://"+srv.BoundAddr()+"/ws?token=wrong", nil)
	assert.Error(t, err)

	ws := dialWS(t, srv.BoundAddr(), "secret")
	srv.RegisterHandler("ping", func(context.Context, json.RawMessage) (any, error) { return "pong", nil })
	resp := call(t, ws, 1, "ping", nil)
	assert.JSONEq(t, `"pong"`, string(resp.Payload))
}

func TestServerUnknownMethod(t *testing.T) {
	srv := startTestServer(t, Options{})
	ws := dialWS(t, srv.BoundAddr(), "")

	resp := call(t, ws, 2, "nonexistent", nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrTypeMethodNotFound, resp.Error.Type)
}

func TestServerSlowClient(t *testing.T) {
	srv := startTestServer(t, Options{})
	_ = dialWS(t, srv.BoundAddr(), "")
	time.Sleep(100 * time.Millisecond)

	// Flooding an unread connection must not block.
	for i := 0; i < 200; i++ {
		srv.Broadcast("tick", i)
	}
}

type editorFixture struct {
	srv     *Server
	ws      *websocket.Conn
	fs      afero.Fs
	dialogs *dialog.Scripted
}

func newEditorFixture(t *testing.T) *editorFixture {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/notes", 0755))
	require.NoError(t, afero.WriteFile(fs, "/notes/a.md", []byte("# A"), 0644))

	d := dialog.NewScripted()
	svc := editor.NewService(editor.NewState(), d, fs, worker.NewPool(2), editor.Options{})
	srv := startTestServer(t, Options{})
	t.Cleanup(RegisterEditorHandlers(srv, svc))

	return &editorFixture{srv: srv, ws: dialWS(t, srv.BoundAddr(), ""), fs: fs, dialogs: d}
}

func TestEditorCommands(t *testing.T) {
	f := newEditorFixture(t)

	resp := call(t, f.ws, 1, MethodCurrentFilename, nil)
	assert.Nil(t, resp.Error)
	assert.JSONEq(t, `null`, string(resp.Payload))

	resp = call(t, f.ws, 2, MethodSaveCurrent, saveParams{Content: "x"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NoOpenFile", resp.Error.Type)
	assert.Equal(t, "No file is currently opened", resp.Error.Message)

	f.dialogs.QueueOpen(dialog.Pick("/notes/a.md"))
	resp = call(t, f.ws, 3, MethodOpenFile, nil)
	require.Nil(t, resp.Error)
	assert.JSONEq(t, `{"filename":"a.md","content":"# A"}`, string(resp.Payload))

	resp = call(t, f.ws, 4, MethodCurrentFilename, nil)
	assert.JSONEq(t, `"a.md"`, string(resp.Payload))

	resp = call(t, f.ws, 5, MethodSaveCurrent, saveParams{Content: "# B"})
	assert.Nil(t, resp.Error)
	data, err := afero.ReadFile(f.fs, "/notes/a.md")
	require.NoError(t, err)
	assert.Equal(t, "# B", string(data))

	f.dialogs.QueueSave(dialog.Pick("/notes/b.md"))
	resp = call(t, f.ws, 6, MethodSaveAs, saveAsParams{Content: "# C", SuggestedName: "a.md"})
	require.Nil(t, resp.Error)
	assert.JSONEq(t, `"b.md"`, string(resp.Payload))
	assert.Equal(t, "a.md", f.dialogs.SaveCalls()[0].SuggestedName)

	resp = call(t, f.ws, 7, MethodClearCurrent, nil)
	assert.Nil(t, resp.Error)
	resp = call(t, f.ws, 8, MethodCurrentFilename, nil)
	assert.JSONEq(t, `null`, string(resp.Payload))
}

func TestEditorCancelledDialogsReturnNull(t *testing.T) {
	f := newEditorFixture(t)

	resp := call(t, f.ws, 1, MethodOpenFile, nil)
	assert.Nil(t, resp.Error)
	assert.JSONEq(t, `null`, string(resp.Payload))

	resp = call(t, f.ws, 2, MethodSaveAs, saveAsParams{Content: "x"})
	assert.Nil(t, resp.Error)
	assert.JSONEq(t, `null`, string(resp.Payload))
}

func TestEditorErrorsAreTagged(t *testing.T) {
	f := newEditorFixture(t)

	f.dialogs.QueueOpen(dialog.Pick("/notes/missing.md"), dialog.Pick("relative.md"))

	resp := call(t, f.ws, 1, MethodOpenFile, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NotFound", resp.Error.Type)
	assert.Equal(t, "File not found", resp.Error.Message)

	resp = call(t, f.ws, 2, MethodOpenFile, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "InvalidPath", resp.Error.Type)

	resp = call(t, f.ws, 3, MethodSaveCurrent, json.RawMessage(`{"content": 5}`))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrTypeBadRequest, resp.Error.Type)
}

func TestEditorEventsReachEveryClient(t *testing.T) {
	f := newEditorFixture(t)
	other := dialWS(t, f.srv.BoundAddr(), "")
	time.Sleep(100 * time.Millisecond)

	f.dialogs.QueueOpen(dialog.Pick("/notes/a.md"))
	resp := call(t, f.ws, 1, MethodOpenFile, nil)
	require.Nil(t, resp.Error)

	ev := nextEvent(t, other, EventCurrentFileChanged)
	assert.JSONEq(t, `{"filename":"a.md"}`, string(ev.Payload))

	resp = call(t, f.ws, 2, MethodClearCurrent, nil)
	require.Nil(t, resp.Error)

	ev = nextEvent(t, other, EventCurrentFileChanged)
	assert.JSONEq(t, `{"filename":null}`, string(ev.Payload))
}

func TestEditorConcurrentClients(t *testing.T) {
	f := newEditorFixture(t)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(id uint64) {
			defer wg.Done()
			ws := dialWS(t, f.srv.BoundAddr(), "")
			resp := call(t, ws, id, MethodCurrentFilename, nil)
			assert.Nil(t, resp.Error)
		}(uint64(i + 1))
	}
	wg.Wait()
}
