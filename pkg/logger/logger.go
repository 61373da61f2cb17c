package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/anonto42/nano-midea/social/pkg/config"
)

// Logger is a structured logger wrapper
type Logger struct {
	*slog.Logger
	level  slog.Level
	format string
}

// New creates a logger writing to stdout based on config
func New(cfg config.Logging) *Logger {
	return NewWithWriter(cfg, os.Stdout)
}

// NewWithWriter creates a logger with a custom writer
func NewWithWriter(cfg config.Logging, w io.Writer) *Logger {
	level := parseLevel(cfg.Level)
	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.Format(time.RFC3339))
				}
			}
			return a
		},
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
		level:  level,
		format: cfg.Format,
	}
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *Logger {
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		level:  slog.LevelError,
		format: "text",
	}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithComponent adds a component field to all log messages
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger: l.Logger.With("component", component),
		level:  l.level,
		format: l.format,
	}
}

// WithFields adds custom fields to the logger
func (l *Logger) WithFields(fields ...any) *Logger {
	return &Logger{
		Logger: l.Logger.With(fields...),
		level:  l.level,
		format: l.format,
	}
}

func (l *Logger) IsDebugEnabled() bool {
	return l.level <= slog.LevelDebug
}

// LogStorageOperation logs a storage call, at error level when it failed
func (l *Logger) LogStorageOperation(op string, duration time.Duration, err error) {
	if err != nil {
		l.Error("storage operation failed",
			"operation", op,
			"duration_ms", duration.Milliseconds(),
			"error", err)
		return
	}
	l.Debug("storage operation completed",
		"operation", op,
		"duration_ms", duration.Milliseconds())
}

// LogEventOutcome logs the result of projecting one stream message
func (l *Logger) LogEventOutcome(stream, messageID, kind string, err error) {
	if err != nil {
		l.Error("event projection failed",
			"stream", stream,
			"message_id", messageID,
			"kind", kind,
			"error", err)
		return
	}
	l.Debug("event projected",
		"stream", stream,
		"message_id", messageID,
		"kind", kind)
}

// LogStartup logs application startup information
func (l *Logger) LogStartup(service string, fields map[string]any) {
	l.Info(service+" starting", "config", fields)
}

// LogShutdown logs application shutdown
func (l *Logger) LogShutdown(reason string) {
	l.Info("shutting down", "reason", reason)
}
