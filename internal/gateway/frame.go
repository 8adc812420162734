package gateway

import (
	"encoding/json"

	"inkwell/internal/errors"
)

// FrameType identifies the kind of frame sent over the WebSocket connection.
type FrameType string

const (
	FrameTypeRequest  FrameType = "request"
	FrameTypeResponse FrameType = "response"
	FrameTypeEvent    FrameType = "event"
)

// Frame is the envelope exchanged between the UI and the backend.
type Frame struct {
	Type    FrameType       `json:"type"`
	ID      uint64          `json:"id,omitempty"`      // request/response correlation ID
	Method  string          `json:"method,omitempty"`  // command name on requests, event name on events
	Payload json.RawMessage `json:"payload,omitempty"` // arguments, result or event body
	Error   *errors.Payload `json:"error,omitempty"`   // tagged error (response only)
}

// Protocol error tags. They sit beside the file error tags and never come
// out of a command.
const (
	ErrTypeMethodNotFound = "MethodNotFound"
	ErrTypeBadRequest     = "BadRequest"
)

// RPCError is a protocol-level failure, as opposed to a file error.
type RPCError struct {
	Type    string
	Message string
}

func (e *RPCError) Error() string {
	return e.Message
}

func badRequest(err error) *RPCError {
	return &RPCError{Type: ErrTypeBadRequest, Message: "invalid payload: " + err.Error()}
}

// errorPayload maps err onto its wire form. File errors keep their tag;
// anything else surfaces as an IoError.
func errorPayload(err error) *errors.Payload {
	if err == nil {
		return nil
	}
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return &errors.Payload{Type: rpcErr.Type, Message: rpcErr.Message}
	}
	fileErr := errors.AsFileError(err)
	kind := fileErr.Kind()
	return &errors.Payload{Type: kind.String(), Message: kind.Message()}
}
