// Package logger provides structured logging for the bot using Go's slog
// package, plus an adapter that routes the task scheduler's logs through it.
package logger

import (
	"io"
	"log/slog"
	"os"

	"github.com/go-co-op/gocron/v2"
)

// output is where NewLogger writes. Stdout carries only the bot's address.
var output io.Writer = os.Stderr

// NewLogger creates a slog Logger on stderr with the given level and
// installs it as the default. If jsonOutput is true, logs are JSON, otherwise
// text.
func NewLogger(levelStr string, jsonOutput bool) *slog.Logger {
	logger := New(output, levelStr, jsonOutput)
	slog.SetDefault(logger)
	return logger
}

// New builds a logger writing to w without touching the default.
func New(w io.Writer, levelStr string, jsonOutput bool) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(levelStr),
	}

	var handler slog.Handler
	if jsonOutput {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// ParseLevel maps a config level name to a slog level. Unknown names are
// treated as info.
func ParseLevel(levelStr string) slog.Level {
	switch levelStr {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// GocronLogger implements gocron.Logger on top of slog.
type GocronLogger struct {
	log *slog.Logger
}

// NewGocronLogger returns a gocron logger tagged with the scheduler
// component.
//
//nolint:ireturn // gocron.WithLogger takes the interface
func NewGocronLogger(log *slog.Logger) gocron.Logger {
	return &GocronLogger{log: log.With("component", "gocron")}
}

func (l *GocronLogger) Debug(msg string, args ...any) { l.log.Debug(msg, args...) }
func (l *GocronLogger) Info(msg string, args ...any)  { l.log.Info(msg, args...) }
func (l *GocronLogger) Warn(msg string, args ...any)  { l.log.Warn(msg, args...) }
func (l *GocronLogger) Error(msg string, args ...any) { l.log.Error(msg, args...) }
