package gateway

import (
	"context"
	"encoding/json"

	"inkwell/internal/editor"
)

// Command and event names seen by the UI.
const (
	MethodOpenFile        = "open_file_dialog"
	MethodSaveCurrent     = "save_current_file"
	MethodSaveAs          = "save_file_as_dialog"
	MethodClearCurrent    = "clear_current_file"
	MethodCurrentFilename = "current_filename"

	EventCurrentFileChanged = "current_file_changed"
	EventFileChangedOnDisk  = "file_changed_on_disk"
	EventFileOpened         = "file_opened"
)

type saveParams struct {
	Content string `json:"content"`
}

type saveAsParams struct {
	Content       string `json:"content"`
	SuggestedName string `json:"suggestedName"`
}

// FilenameEvent is the body of current_file_changed and file_changed_on_disk.
// A nil Filename means no file is current.
type FilenameEvent struct {
	Filename *string `json:"filename"`
}

// RegisterEditorHandlers binds the editor commands to their RPC methods and
// forwards state events to connected clients. The returned func stops the
// forwarding.
func RegisterEditorHandlers(s *Server, svc *editor.Service) func() {
	s.RegisterHandler(MethodOpenFile, func(ctx context.Context, _ json.RawMessage) (any, error) {
		opened, err := svc.OpenFile(ctx)
		if err != nil || opened == nil {
			return nil, err
		}
		return opened, nil
	})

	s.RegisterHandler(MethodSaveCurrent, func(ctx context.Context, payload json.RawMessage) (any, error) {
		var params saveParams
		if err := decode(payload, &params); err != nil {
			return nil, err
		}
		return nil, svc.SaveCurrent(ctx, params.Content)
	})

	s.RegisterHandler(MethodSaveAs, func(ctx context.Context, payload json.RawMessage) (any, error) {
		var params saveAsParams
		if err := decode(payload, &params); err != nil {
			return nil, err
		}
		name, ok, err := svc.SaveAs(ctx, params.Content, params.SuggestedName)
		if err != nil || !ok {
			return nil, err
		}
		return name, nil
	})

	s.RegisterHandler(MethodClearCurrent, func(context.Context, json.RawMessage) (any, error) {
		return nil, svc.ClearCurrent()
	})

	s.RegisterHandler(MethodCurrentFilename, func(context.Context, json.RawMessage) (any, error) {
		name, ok, err := svc.CurrentFilename()
		if err != nil || !ok {
			return nil, err
		}
		return name, nil
	})

	return svc.Subscribe(func(ev editor.Event) {
		switch ev.Kind {
		case editor.CurrentFileChanged:
			s.Broadcast(EventCurrentFileChanged, filenameEvent(ev))
		case editor.FileChangedOnDisk:
			s.Broadcast(EventFileChangedOnDisk, filenameEvent(ev))
		}
	})
}

func filenameEvent(ev editor.Event) FilenameEvent {
	if ev.Path == "" {
		return FilenameEvent{}
	}
	name := ev.Filename
	return FilenameEvent{Filename: &name}
}

// decode reads optional params; a missing payload leaves v zeroed.
func decode(payload json.RawMessage, v any) error {
	if len(payload) == 0 || string(payload) == "null" {
		return nil
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return badRequest(err)
	}
	return nil
}
