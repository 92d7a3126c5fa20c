// Package logger is a small structured-logging wrapper around log/slog,
// giving every component (Debug/Info/Warn/Error, leveled by configuration)
// a shared way to emit logs.
package logger

import (
	"io"
	"log/slog"
	"os"
	"sync/atomic"
)

var current atomic.Pointer[slog.Logger]

func init() {
	current.Store(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))
}

// Level names accepted by the logLevel configuration setting.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Configure replaces the process-wide logger. dest defaults to stderr when
// nil; levelName defaults to "info" when empty or unrecognized.
func Configure(levelName string, dest io.Writer) {
	if dest == nil {
		dest = os.Stderr
	}
	var lvl slog.Level
	switch levelName {
	case LevelDebug:
		lvl = slog.LevelDebug
	case LevelWarn:
		lvl = slog.LevelWarn
	case LevelError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	current.Store(slog.New(slog.NewTextHandler(dest, &slog.HandlerOptions{Level: lvl})))
}

func L() *slog.Logger { return current.Load() }

func Debug(msg string, args ...any) { L().Debug(msg, args...) }
func Info(msg string, args ...any)  { L().Info(msg, args...) }
func Warn(msg string, args ...any)  { L().Warn(msg, args...) }
func Error(msg string, args ...any) { L().Error(msg, args...) }

// With returns a child logger annotated with the given key/value pairs, for
// components (e.g. the sync engine, the orchestrators) that want a stable
// component tag on every line.
func With(args ...any) *slog.Logger { return L().With(args...) }
