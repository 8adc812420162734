package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New("test error")
	assert.NotNil(t, err)
	assert.Equal(t, "test error", err.Error())

	err = Newf("formatted %s", "error")
	assert.Equal(t, "formatted error", err.Error())

	var appErr *ApplicationError
	assert.True(t, As(err, &appErr))
	assert.Equal(t, Unknown, appErr.Kind())
}

func TestWrapping(t *testing.T) {
	origErr := New("original error")
	wrappedErr := Wrap(origErr, "wrapped")
	assert.Equal(t, "wrapped: original error", wrappedErr.Error())
	assert.Equal(t, origErr, Unwrap(wrappedErr))

	wrappedFormatted := Wrapf(origErr, "formatted %s", "wrapper")
	assert.Equal(t, "formatted wrapper: original error", wrappedFormatted.Error())

	assert.Nil(t, Wrap(nil, "wrapper"))
	assert.Nil(t, Wrapf(nil, "formatted %s", "wrapper"))

	deepWrapped := Wrap(wrappedErr, "deeper")
	assert.Equal(t, "deeper: wrapped: original error", deepWrapped.Error())
	assert.True(t, Is(deepWrapped, origErr))
}

func TestFileError(t *testing.T) {
	fileErr := NewFileError("Permission denied", "/path/to/file", PermissionDenied, nil)
	assert.Equal(t, "Permission denied: /path/to/file", fileErr.Error())
	assert.Equal(t, "/path/to/file", fileErr.Path())
	assert.Equal(t, PermissionDenied, fileErr.Kind())

	origErr := fmt.Errorf("permission denied")
	fileErr = NewFileError("Permission denied", "/path/to/file", PermissionDenied, origErr)
	assert.Equal(t, "Permission denied: /path/to/file: permission denied", fileErr.Error())
	assert.Equal(t, origErr, Unwrap(fileErr))

	assert.Equal(t, "No file is currently opened", ErrNoOpenFile.Error())
	assert.True(t, IsPermissionDenied(fileErr))
	assert.False(t, IsNotFound(fileErr))

	// Sentinels match by kind.
	assert.True(t, Is(fileErr, ErrPermissionDenied))
	assert.False(t, Is(fileErr, ErrNotFound))
	assert.True(t, Is(Wrap(NewFileError("x", "/a", NoOpenFile, nil), "save"), ErrNoOpenFile))
}

func TestKindTags(t *testing.T) {
	tests := []struct {
		kind    ErrorKind
		tag     string
		message string
	}{
		{NotFound, "NotFound", "File not found"},
		{PermissionDenied, "PermissionDenied", "Permission denied"},
		{InvalidPath, "InvalidPath", "Invalid or disallowed path"},
		{IoError, "IoError", "File operation failed"},
		{ConfigUnavailable, "ConfigError", "Could not determine allowed directory"},
		{NoOpenFile, "NoOpenFile", "No file is currently opened"},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			assert.Equal(t, tt.tag, tt.kind.String())
			assert.Equal(t, tt.message, tt.kind.Message())
			assert.True(t, tt.kind.IsFileKind())
		})
	}

	assert.False(t, InvalidConfig.IsFileKind())
	assert.False(t, Unknown.IsFileKind())
}

func TestFromIO(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"not exist", &fs.PathError{Op: "open", Path: "/x", Err: fs.ErrNotExist}, NotFound},
		{"enoent", &fs.PathError{Op: "open", Path: "/x", Err: syscall.ENOENT}, NotFound},
		{"permission", &fs.PathError{Op: "open", Path: "/x", Err: fs.ErrPermission}, PermissionDenied},
		{"eperm", syscall.EPERM, PermissionDenied},
		{"eacces", syscall.EACCES, PermissionDenied},
		{"is a directory", syscall.EISDIR, IoError},
		{"other", errors.New("disk on fire"), IoError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fileErr := FromIO(tt.err, "/x")
			require.NotNil(t, fileErr)
			assert.Equal(t, tt.want, fileErr.Kind())
			assert.Equal(t, "/x", fileErr.Path())
			assert.True(t, Is(fileErr, tt.err))
		})
	}

	assert.Nil(t, FromIO(nil, "/x"))
}

func TestFromIORealFilesystem(t *testing.T) {
	_, err := os.ReadFile("/definitely/not/here.md")
	require.Error(t, err)
	assert.True(t, IsNotFound(FromIO(err, "/definitely/not/here.md")))
}

func TestAsFileError(t *testing.T) {
	assert.Nil(t, AsFileError(nil))

	plain := errors.New("boom")
	fileErr := AsFileError(plain)
	assert.Equal(t, IoError, fileErr.Kind())
	assert.True(t, Is(fileErr, plain))

	nested := fmt.Errorf("saving: %w", NewFileError("Invalid or disallowed path", "", InvalidPath, nil))
	assert.Equal(t, InvalidPath, AsFileError(nested).Kind())
	assert.Equal(t, InvalidPath, KindOf(nested))

	// Foreign errors are classified by cause.
	denied := Wrap(&fs.PathError{Op: "open", Path: "/notes/a.md", Err: syscall.EACCES}, "open dialog failed")
	assert.Equal(t, PermissionDenied, AsFileError(denied).Kind())
	assert.Equal(t, NotFound, KindOf(fmt.Errorf("picker: %w", fs.ErrNotExist)))

	// A file error with a non-file kind is reported as IoError.
	odd := NewFileError("odd", "", InvalidConfig, nil)
	assert.Equal(t, IoError, AsFileError(odd).Kind())
}

func TestFileErrorJSON(t *testing.T) {
	fileErr := NewFileError("File not found", "/secret/notes.md", NotFound, syscall.ENOENT)
	data, err := json.Marshal(fileErr)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"NotFound","message":"File not found"}`, string(data))
	assert.NotContains(t, string(data), "/secret")

	data, err = json.Marshal(ErrNoOpenFile)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"NoOpenFile","message":"No file is currently opened"}`, string(data))

	data, err = json.Marshal(NewFileError("weird", "", Unknown, nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"IoError","message":"File operation failed"}`, string(data))
}

func TestConfigError(t *testing.T) {
	configErr := NewConfigError("invalid value", "gateway.addr", InvalidConfig, nil)
	assert.Equal(t, "invalid value: gateway.addr", configErr.Error())
	assert.Equal(t, "gateway.addr", configErr.Param())

	origErr := fmt.Errorf("missing port")
	configErr = NewConfigError("invalid value", "gateway.addr", InvalidConfig, origErr)
	assert.Equal(t, "invalid value: gateway.addr: missing port", configErr.Error())
	assert.True(t, IsInvalidConfig(configErr))
	assert.False(t, IsInvalidConfig(New("some other error")))
}
