// Package log is Inkwell's structured logger. It keeps a small, stable API
// (fields via F, LogWithError for application errors) on top of logrus.
package log

import (
	"context"
	"io"
	"os"
	"sync"

	"inkwell/internal/errors"

	"github.com/sirupsen/logrus"
)

var (
	mu     sync.RWMutex
	logger = NewLogger()
)

// Field is a single structured key/value pair.
type Field struct {
	Key   string
	Value interface{}
}

// F builds a Field.
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Option configures a Logger.
type Option func(*Logger)

// WithOutput sends log lines to w.
func WithOutput(w io.Writer) Option {
	return func(l *Logger) {
		l.out = w
	}
}

// WithJSON switches to one JSON object per line.
func WithJSON() Option {
	return func(l *Logger) {
		l.json = true
	}
}

// WithFile tees log lines to the file at path in addition to the output.
func WithFile(path string) Option {
	return func(l *Logger) {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			l.fileErr = err
			return
		}
		l.file = f
	}
}

// WithLevel sets the minimum level by name (debug, info, warn, error).
func WithLevel(name string) Option {
	return func(l *Logger) {
		if lvl, err := logrus.ParseLevel(name); err == nil {
			l.level = lvl
		}
	}
}

// Logger wraps a logrus entry with preset fields.
type Logger struct {
	out     io.Writer
	json    bool
	file    *os.File
	fileErr error
	level   logrus.Level
	base    *logrus.Logger
	entry   *logrus.Entry
}

// NewLogger builds a logger writing text lines to stdout unless options say
// otherwise.
func NewLogger(opts ...Option) *Logger {
	l := &Logger{
		out:   os.Stdout,
		level: logrus.InfoLevel,
	}
	for _, opt := range opts {
		opt(l)
	}

	base := logrus.New()
	if l.file != nil {
		base.SetOutput(io.MultiWriter(l.out, l.file))
	} else {
		base.SetOutput(l.out)
	}
	if l.json {
		base.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime: "timestamp",
				logrus.FieldKeyMsg:  "message",
			},
		})
	} else {
		base.SetFormatter(&logrus.TextFormatter{
			DisableColors:   true,
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}
	base.SetLevel(l.level)

	l.base = base
	l.entry = logrus.NewEntry(base)
	if l.fileErr != nil {
		l.entry.WithError(l.fileErr).Warn("could not open log file")
	}
	return l
}

// Configure replaces the package-level logger.
func Configure(opts ...Option) {
	next := NewLogger(opts...)
	mu.Lock()
	prev := logger
	logger = next
	mu.Unlock()
	if prev != nil && prev.file != nil {
		prev.file.Close()
	}
}

// SetDebug toggles debug output on the package-level logger.
func SetDebug(debug bool) {
	current().SetDebug(debug)
}

// SetDebug toggles debug output.
func (l *Logger) SetDebug(debug bool) {
	if debug {
		l.base.SetLevel(logrus.DebugLevel)
		return
	}
	l.base.SetLevel(l.level)
}

// Close releases the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

func current() *Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// With returns a child logger carrying fields.
func (l *Logger) With(fields ...Field) *Logger {
	child := *l
	child.entry = l.entry.WithFields(toLogrus(fields))
	return &child
}

// WithContext attaches ctx to subsequent entries.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}
	child := *l
	child.entry = l.entry.WithContext(ctx)
	return &child
}

// WithError adds the error fields for err.
func (l *Logger) WithError(err error) *Logger {
	return l.With(errorFields(err)...)
}

func (l *Logger) Debug(args ...interface{})                 { l.entry.Debug(args...) }
func (l *Logger) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l *Logger) Info(args ...interface{})                  { l.entry.Info(args...) }
func (l *Logger) Infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *Logger) Warn(args ...interface{})                  { l.entry.Warn(args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l *Logger) Error(args ...interface{})                 { l.entry.Error(args...) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }

// LogWithFields returns the package logger with fields attached.
func LogWithFields(fields ...Field) *Logger {
	return current().With(fields...)
}

// LogWithError returns the package logger carrying err's fields: error,
// error_kind, and path or param for typed application errors.
func LogWithError(err error) *Logger {
	return current().WithError(err)
}

// LogError logs err at error level with msg.
func LogError(err error, msg string) {
	LogWithError(err).Error(msg)
}

func errorFields(err error) []Field {
	if err == nil {
		return []Field{F("error", "<nil>")}
	}
	fields := []Field{F("error", err.Error())}

	var fileErr *errors.FileError
	var configErr *errors.ConfigError
	var appErr *errors.ApplicationError
	switch {
	case errors.As(err, &fileErr):
		fields = append(fields, F("error_kind", fileErr.Kind().String()))
		if fileErr.Path() != "" {
			fields = append(fields, F("path", fileErr.Path()))
		}
	case errors.As(err, &configErr):
		fields = append(fields, F("error_kind", configErr.Kind().String()))
		if configErr.Param() != "" {
			fields = append(fields, F("param", configErr.Param()))
		}
	case errors.As(err, &appErr):
		fields = append(fields, F("error_kind", appErr.Kind().String()))
	}
	return fields
}

func toLogrus(fields []Field) logrus.Fields {
	out := make(logrus.Fields, len(fields))
	for _, f := range fields {
		out[f.Key] = f.Value
	}
	return out
}

// Debug logs at debug level on the package logger.
func Debug(args ...interface{}) { current().Debug(args...) }

// Debugf logs a formatted debug message.
func Debugf(format string, args ...interface{}) { current().Debugf(format, args...) }

// Info logs at info level on the package logger.
func Info(args ...interface{}) { current().Info(args...) }

// Infof logs a formatted info message.
func Infof(format string, args ...interface{}) { current().Infof(format, args...) }

// Warn logs at warn level on the package logger.
func Warn(args ...interface{}) { current().Warn(args...) }

// Warnf logs a formatted warning.
func Warnf(format string, args ...interface{}) { current().Warnf(format, args...) }

// Error logs at error level on the package logger.
func Error(args ...interface{}) { current().Error(args...) }

// Errorf logs a formatted error.
func Errorf(format string, args ...interface{}) { current().Errorf(format, args...) }
