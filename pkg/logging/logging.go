package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// LogLevel defines the severity of the log entry.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String makes LogLevel satisfy the fmt.Stringer interface.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo // Default to INFO for unknown
	}
}

var defaultLogger *slog.Logger

// Init initializes the logging system. This should be called once at
// application startup. When jsonOutput is true, log records are emitted as
// JSON lines, which is what log aggregation expects from a long-running
// server; otherwise a human-readable text handler is used.
//
// The stdio MCP transport owns stdout, so callers must pass os.Stderr (or a
// file) as the output writer when serving over stdio.
func Init(level LogLevel, output io.Writer, jsonOutput bool) {
	opts := &slog.HandlerOptions{
		Level: level.SlogLevel(),
	}

	var handler slog.Handler
	if jsonOutput {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}
	defaultLogger = slog.New(handler)
	slog.SetDefault(defaultLogger)
}

func logInternal(level LogLevel, subsystem string, err error, attrs []slog.Attr, messageFmt string, args ...interface{}) {
	if defaultLogger == nil || !defaultLogger.Enabled(context.Background(), level.SlogLevel()) {
		return
	}

	msg := messageFmt
	if len(args) > 0 {
		msg = fmt.Sprintf(messageFmt, args...)
	}

	slogAttrs := make([]slog.Attr, 0, len(attrs)+2)
	slogAttrs = append(slogAttrs, slog.String("subsystem", subsystem))
	if err != nil {
		slogAttrs = append(slogAttrs, slog.String("error", err.Error()))
	}
	slogAttrs = append(slogAttrs, attrs...)

	defaultLogger.LogAttrs(context.Background(), level.SlogLevel(), msg, slogAttrs...)
}

// Debug logs a debug message.
func Debug(subsystem string, messageFmt string, args ...interface{}) {
	logInternal(LevelDebug, subsystem, nil, nil, messageFmt, args...)
}

// Info logs an informational message.
func Info(subsystem string, messageFmt string, args ...interface{}) {
	logInternal(LevelInfo, subsystem, nil, nil, messageFmt, args...)
}

// Warn logs a warning message.
func Warn(subsystem string, messageFmt string, args ...interface{}) {
	logInternal(LevelWarn, subsystem, nil, nil, messageFmt, args...)
}

// Error logs an error message.
func Error(subsystem string, err error, messageFmt string, args ...interface{}) {
	logInternal(LevelError, subsystem, err, nil, messageFmt, args...)
}

// DebugAttrs logs a debug message with structured attributes.
func DebugAttrs(subsystem string, msg string, attrs ...slog.Attr) {
	logInternal(LevelDebug, subsystem, nil, attrs, "%s", msg)
}

// InfoAttrs logs an informational message with structured attributes.
// Operation logging uses this to attach request correlation fields.
func InfoAttrs(subsystem string, msg string, attrs ...slog.Attr) {
	logInternal(LevelInfo, subsystem, nil, attrs, "%s", msg)
}

// WarnAttrs logs a warning message with structured attributes.
func WarnAttrs(subsystem string, msg string, attrs ...slog.Attr) {
	logInternal(LevelWarn, subsystem, nil, attrs, "%s", msg)
}

// ErrorAttrs logs an error message with structured attributes.
func ErrorAttrs(subsystem string, err error, msg string, attrs ...slog.Attr) {
	logInternal(LevelError, subsystem, err, attrs, "%s", msg)
}

// ParseLevel converts a level name ("debug", "info", "warn", "error") into a
// LogLevel, defaulting to LevelInfo for unrecognized input.
func ParseLevel(name string) LogLevel {
	switch name {
	case "debug", "DEBUG":
		return LevelDebug
	case "warn", "WARN", "warning", "WARNING":
		return LevelWarn
	case "error", "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

// init installs a conservative default so packages that log before Init is
// called do not panic and still write somewhere visible.
func init() {
	Init(LevelInfo, os.Stderr, false)
}
