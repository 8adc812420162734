// Package errors provides standardized error handling for Inkwell.
// It defines the error kinds surfaced to the UI, the typed errors that carry
// them, and helpers for consistent creation, wrapping and classification.
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
)

// Standard errors package errors that we re-export for convenience
var (
	// Unwrap unwraps an error to access the underlying error
	Unwrap = errors.Unwrap
	// Is reports whether any error in err's chain matches target
	Is = errors.Is
	// As finds the first error in err's chain that matches target
	As = errors.As
)

// Common error constants for frequently occurring errors
var (
	ErrNotFound         = NewFileError(NotFound.Message(), "", NotFound, nil)
	ErrPermissionDenied = NewFileError(PermissionDenied.Message(), "", PermissionDenied, nil)
	ErrNoOpenFile       = NewFileError(NoOpenFile.Message(), "", NoOpenFile, nil)
	ErrInvalidConfig    = NewConfigError("invalid configuration", "", InvalidConfig, nil)
)

// ErrorKind represents the kind of error
type ErrorKind int

// Error kinds. The file kinds (NotFound through NoOpenFile) form the closed
// set reported to the UI; their numeric values are not part of the wire
// format, String is.
const (
	Unknown ErrorKind = iota
	// File error kinds
	NotFound
	PermissionDenied
	InvalidPath
	IoError
	ConfigUnavailable
	NoOpenFile
	// Config error kinds
	InvalidConfig
	ConfigNotFound
)

var kindNames = map[ErrorKind]string{
	Unknown:           "Unknown",
	NotFound:          "NotFound",
	PermissionDenied:  "PermissionDenied",
	InvalidPath:       "InvalidPath",
	IoError:           "IoError",
	ConfigUnavailable: "ConfigError",
	NoOpenFile:        "NoOpenFile",
	InvalidConfig:     "InvalidConfig",
	ConfigNotFound:    "ConfigNotFound",
}

var kindMessages = map[ErrorKind]string{
	NotFound:          "File not found",
	PermissionDenied:  "Permission denied",
	InvalidPath:       "Invalid or disallowed path",
	IoError:           "File operation failed",
	ConfigUnavailable: "Could not determine allowed directory",
	NoOpenFile:        "No file is currently opened",
}

// String returns the stable tag of the kind. File kinds use the tags the UI
// branches on.
func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Message returns the fixed user-facing message of a file kind.
func (k ErrorKind) Message() string {
	if msg, ok := kindMessages[k]; ok {
		return msg
	}
	return kindMessages[IoError]
}

// IsFileKind reports whether k belongs to the set reported to the UI.
func (k ErrorKind) IsFileKind() bool {
	_, ok := kindMessages[k]
	return ok
}

// ApplicationError is the base error type for all application errors
type ApplicationError struct {
	msg  string
	err  error
	kind ErrorKind
}

// Error returns the error message
func (e *ApplicationError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

// Unwrap returns the wrapped error
func (e *ApplicationError) Unwrap() error {
	return e.err
}

// Kind returns the kind of error
func (e *ApplicationError) Kind() ErrorKind {
	return e.kind
}

// FileError represents errors related to file operations
type FileError struct {
	ApplicationError
	path string
}

// NewFileError creates a new file error
func NewFileError(msg string, path string, kind ErrorKind, err error) *FileError {
	return &FileError{
		ApplicationError: ApplicationError{
			msg:  msg,
			err:  err,
			kind: kind,
		},
		path: path,
	}
}

// Error returns the file error message
func (e *FileError) Error() string {
	if e.path != "" {
		if e.err != nil {
			return fmt.Sprintf("%s: %s: %v", e.msg, e.path, e.err)
		}
		return fmt.Sprintf("%s: %s", e.msg, e.path)
	}
	return e.ApplicationError.Error()
}

// Path returns the file path associated with the error
func (e *FileError) Path() string {
	return e.path
}

// Is matches file errors by kind, so errors.Is(err, ErrNoOpenFile) holds for
// any NoOpenFile error regardless of path or cause.
func (e *FileError) Is(target error) bool {
	t, ok := target.(*FileError)
	if !ok {
		return false
	}
	return t.kind == e.kind && t.path == "" && t.err == nil
}

// MarshalJSON encodes the error as a discriminated value. Paths and causes
// stay out of the payload.
func (e *FileError) MarshalJSON() ([]byte, error) {
	kind := e.kind
	if !kind.IsFileKind() {
		kind = IoError
	}
	return json.Marshal(Payload{Type: kind.String(), Message: kind.Message()})
}

// Payload is the wire form of a FileError.
type Payload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ConfigError represents errors related to configuration
type ConfigError struct {
	ApplicationError
	param string
}

// NewConfigError creates a new configuration error
func NewConfigError(msg string, param string, kind ErrorKind, err error) *ConfigError {
	return &ConfigError{
		ApplicationError: ApplicationError{
			msg:  msg,
			err:  err,
			kind: kind,
		},
		param: param,
	}
}

// Error returns the config error message
func (e *ConfigError) Error() string {
	if e.param != "" {
		if e.err != nil {
			return fmt.Sprintf("%s: %s: %v", e.msg, e.param, e.err)
		}
		return fmt.Sprintf("%s: %s", e.msg, e.param)
	}
	return e.ApplicationError.Error()
}

// Param returns the configuration parameter associated with the error
func (e *ConfigError) Param() string {
	return e.param
}

// New creates a new error with a message
func New(msg string) error {
	return &ApplicationError{
		msg:  msg,
		kind: Unknown,
	}
}

// Newf creates a new error with a formatted message
func Newf(format string, args ...interface{}) error {
	return &ApplicationError{
		msg:  fmt.Sprintf(format, args...),
		kind: Unknown,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &ApplicationError{
		msg:  msg,
		err:  err,
		kind: Unknown,
	}
}

// Wrapf wraps an existing error with additional formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &ApplicationError{
		msg:  fmt.Sprintf(format, args...),
		err:  err,
		kind: Unknown,
	}
}

// FromIO classifies a filesystem error into a file error for path.
func FromIO(err error, path string) *FileError {
	if err == nil {
		return nil
	}
	kind := IoError
	switch {
	case errors.Is(err, fs.ErrNotExist):
		kind = NotFound
	case errors.Is(err, fs.ErrPermission):
		kind = PermissionDenied
	}
	return NewFileError(kind.Message(), path, kind, err)
}

// IO wraps err as a generic I/O failure.
func IO(err error, path string) *FileError {
	return NewFileError(IoError.Message(), path, IoError, err)
}

// AsFileError returns the file error in err's chain. Other errors are
// classified like FromIO, so a wrapped fs.ErrPermission from a toolkit
// still reports PermissionDenied. Nil stays nil.
func AsFileError(err error) *FileError {
	if err == nil {
		return nil
	}
	var fileErr *FileError
	if errors.As(err, &fileErr) && fileErr.kind.IsFileKind() {
		return fileErr
	}
	return FromIO(err, "")
}

// KindOf returns the file kind of err as the UI would see it.
func KindOf(err error) ErrorKind {
	if fileErr := AsFileError(err); fileErr != nil {
		return fileErr.Kind()
	}
	return Unknown
}

// IsNotFound checks if the error is a file not found error
func IsNotFound(err error) bool {
	return hasFileKind(err, NotFound)
}

// IsPermissionDenied checks if the error is a permission denied error
func IsPermissionDenied(err error) bool {
	return hasFileKind(err, PermissionDenied)
}

// IsInvalidPath checks if the error is an invalid path error
func IsInvalidPath(err error) bool {
	return hasFileKind(err, InvalidPath)
}

// IsNoOpenFile checks if the error reports a save with nothing tracked
func IsNoOpenFile(err error) bool {
	return hasFileKind(err, NoOpenFile)
}

// IsInvalidConfig checks if the error is an invalid configuration error
func IsInvalidConfig(err error) bool {
	var configErr *ConfigError
	if errors.As(err, &configErr) {
		return configErr.Kind() == InvalidConfig
	}
	return false
}

func hasFileKind(err error, kind ErrorKind) bool {
	var fileErr *FileError
	if errors.As(err, &fileErr) {
		return fileErr.Kind() == kind
	}
	return false
}
