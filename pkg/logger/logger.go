// Package logger provides structured logging for Refract.
package logger

import (
	"log/slog"
	"os"
	"sync"
)

// Logger is the logging interface used throughout Refract. It mirrors the
// slog surface so implementations can wrap *slog.Logger directly.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
	WithGroup(name string) Logger
}

var (
	globalMu sync.RWMutex
	global   Logger = newSlogLogger(defaultHandler())
)

func defaultHandler() slog.Handler {
	return slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
}

// SetupLogger configures the global logger.
func SetupLogger(debug bool, format string) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	SetGlobalLogger(newSlogLogger(handler))
}

// GetGlobalLogger returns the current global logger.
func GetGlobalLogger() Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return global
}

// SetGlobalLogger replaces the global logger.
func SetGlobalLogger(l Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	global = l
}

// Debug logs a debug message on the global logger.
func Debug(msg string, args ...any) {
	GetGlobalLogger().Debug(msg, args...)
}

// Info logs an info message on the global logger.
func Info(msg string, args ...any) {
	GetGlobalLogger().Info(msg, args...)
}

// Warn logs a warning message on the global logger.
func Warn(msg string, args ...any) {
	GetGlobalLogger().Warn(msg, args...)
}

// Error logs an error message on the global logger.
func Error(msg string, args ...any) {
	GetGlobalLogger().Error(msg, args...)
}

// slogLogger adapts *slog.Logger to the Logger interface.
type slogLogger struct {
	inner *slog.Logger
}

func newSlogLogger(handler slog.Handler) *slogLogger {
	return &slogLogger{inner: slog.New(handler)}
}

// NewLogger creates a Logger backed by the given slog handler.
func NewLogger(handler slog.Handler) Logger {
	return newSlogLogger(handler)
}

// Debug logs a debug message.
func (l *slogLogger) Debug(msg string, args ...any) {
	l.inner.Debug(msg, args...)
}

// Info logs an info message.
func (l *slogLogger) Info(msg string, args ...any) {
	l.inner.Info(msg, args...)
}

// Warn logs a warning message.
func (l *slogLogger) Warn(msg string, args ...any) {
	l.inner.Warn(msg, args...)
}

// Error logs an error message.
func (l *slogLogger) Error(msg string, args ...any) {
	l.inner.Error(msg, args...)
}

// With returns a logger with additional attributes.
func (l *slogLogger) With(args ...any) Logger {
	return &slogLogger{inner: l.inner.With(args...)}
}

// WithGroup returns a logger with a named group.
func (l *slogLogger) WithGroup(name string) Logger {
	return &slogLogger{inner: l.inner.WithGroup(name)}
}
