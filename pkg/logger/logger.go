package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// LogLevel names a minimum log level
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// Config contains logger configuration options
type Config struct {
	// Level is the minimum level to log
	Level string
	// JSON switches the handler from text to JSON
	JSON bool
	// Output defaults to os.Stderr
	Output io.Writer
	// AddSource adds file:line to every record
	AddSource bool
	// Service is attached to every record when set
	Service string
}

// DefaultConfig returns the production logger configuration
func DefaultConfig() Config {
	return Config{
		Level:   "info",
		JSON:    true,
		Output:  os.Stderr,
		Service: "lovink",
	}
}

// Logger wraps slog for structured logging
type Logger struct {
	*slog.Logger
}

var global atomic.Pointer[Logger]

func parseLevel(s string) slog.Level {
	switch LogLevel(strings.ToLower(strings.TrimSpace(s))) {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New creates a logger. The first logger created becomes the global one
// unless SetGlobal was called before.
func New(config Config) *Logger {
	out := config.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{
		Level:     parseLevel(config.Level),
		AddSource: config.AddSource,
	}

	var handler slog.Handler
	if config.JSON {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	base := slog.New(handler)
	if config.Service != "" {
		base = base.With("service", config.Service)
	}
	l := &Logger{Logger: base}
	global.CompareAndSwap(nil, l)
	return l
}

// SetGlobal sets the global logger instance
func SetGlobal(l *Logger) {
	global.Store(l)
}

// GetGlobal returns the global logger, or nil before any logger exists
func GetGlobal() *Logger {
	return global.Load()
}

// LogError logs err at error level with extra key/value pairs
func (l *Logger) LogError(err error, msg string, args ...any) {
	if err == nil {
		l.Error(msg, args...)
		return
	}
	l.Error(msg, append([]any{"error", err.Error()}, args...)...)
}

func (l *Logger) with(key, value string) *Logger {
	if value == "" {
		return l
	}
	return &Logger{Logger: l.With(key, value)}
}

// WithRequestID tags records with a request ID
func (l *Logger) WithRequestID(requestID string) *Logger {
	return l.with("request_id", requestID)
}

// WithUserID tags records with the profile ID
func (l *Logger) WithUserID(userID string) *Logger {
	return l.with("user_id", userID)
}

// WithRoom tags records with a community room ID
func (l *Logger) WithRoom(roomID string) *Logger {
	return l.with("room_id", roomID)
}

// WithPersona tags records with a persona ID
func (l *Logger) WithPersona(personaID string) *Logger {
	return l.with("persona_id", personaID)
}

// WithContext attaches the trace and span IDs of the active span in ctx
func (l *Logger) WithContext(ctx context.Context) *Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return l
	}
	return &Logger{Logger: l.With(
		"trace_id", sc.TraceID().String(),
		"span_id", sc.SpanID().String(),
	)}
}

// LogRequest logs a finished HTTP request
func (l *Logger) LogRequest(method, path string, status int, latency time.Duration) {
	level := slog.LevelInfo
	switch {
	case status >= 500:
		level = slog.LevelError
	case status >= 400:
		level = slog.LevelWarn
	}
	l.Log(context.Background(), level, "request completed",
		"method", method,
		"path", path,
		"status", status,
		"latency_ms", latency.Milliseconds(),
	)
}
