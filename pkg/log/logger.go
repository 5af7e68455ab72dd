// Package log provides structured logging utilities for coinrpc.
// It wraps the standard library's slog package with additional convenience methods.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

type contextKey string

// Context keys read by WithContext.
const (
	RequestIDKey contextKey = "request_id"
	TraceIDKey   contextKey = "trace_id"
)

// Logger wraps slog.Logger with additional context and convenience methods
type Logger struct {
	*slog.Logger
	service string
	version string
}

// New creates a new logger writing to stdout
func New(service, version, level, format string) *Logger {
	return NewWithWriter(os.Stdout, service, version, level, format)
}

// NewWithWriter creates a new logger writing to w
func NewWithWriter(w io.Writer, service, version, level, format string) *Logger {
	var handler slog.Handler

	logLevel := ParseLevel(level)
	opts := &slog.HandlerOptions{
		Level:     logLevel,
		AddSource: logLevel == slog.LevelDebug,
	}

	switch strings.ToLower(format) {
	case "text":
		handler = slog.NewTextHandler(w, opts)
	default:
		handler = slog.NewJSONHandler(w, opts)
	}

	baseLogger := slog.New(handler).With(
		"service", service,
		"version", version,
	)

	return &Logger{
		Logger:  baseLogger,
		service: service,
		version: version,
	}
}

// Discard returns a logger that drops every record
func Discard() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// ParseLevel maps a level name to a slog level; unknown names mean info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// WithContext returns a logger with additional context fields
func (l *Logger) WithContext(ctx context.Context) *Logger {
	logger := l.Logger

	if reqID := ctx.Value(RequestIDKey); reqID != nil {
		logger = logger.With("request_id", reqID)
	}
	if traceID := ctx.Value(TraceIDKey); traceID != nil {
		logger = logger.With("trace_id", traceID)
	}

	return &Logger{
		Logger:  logger,
		service: l.service,
		version: l.version,
	}
}

// WithFields returns a logger with additional fields
func (l *Logger) WithFields(fields ...any) *Logger {
	return &Logger{
		Logger:  l.With(fields...),
		service: l.service,
		version: l.version,
	}
}

// WithComponent returns a logger with a component field
func (l *Logger) WithComponent(component string) *Logger {
	return l.WithFields("component", component)
}

// WithCoin returns a logger with coin and network fields
func (l *Logger) WithCoin(coin, network string) *Logger {
	return l.WithFields("coin", coin, "network", network)
}

// WithMethod returns a logger with the daemon RPC method name
func (l *Logger) WithMethod(method string) *Logger {
	return l.WithFields("rpc_method", method)
}

// WithError returns a logger with error context
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.WithFields("error", err.Error())
}

// LogCall logs a completed daemon RPC call at debug level, or at warn level
// when it failed.
func (l *Logger) LogCall(method string, params int, duration time.Duration, err error) {
	attrs := []any{
		"rpc_method", method,
		"params", params,
		"duration_ms", float64(duration.Nanoseconds()) / 1e6,
	}
	if err != nil {
		l.Warn("rpc call failed", append(attrs, "error", err.Error())...)
		return
	}
	l.Debug("rpc call completed", attrs...)
}

// LogNotification logs a daemon notification received from ZMQ
func (l *Logger) LogNotification(topic, hash string, sequence uint32) {
	l.Debug("notification received",
		"topic", topic,
		"hash", hash,
		"sequence", sequence,
	)
}

// LogPublish logs an event handed to the message broker
func (l *Logger) LogPublish(topic, key string, size int) {
	l.Debug("event published",
		"topic", topic,
		"key", key,
		"bytes", size,
	)
}

// LogConnection logs connection events
func (l *Logger) LogConnection(event, endpoint string) {
	l.Info("connection event",
		"event", event,
		"endpoint", endpoint,
	)
}

// LogDuration logs the duration of an operation
func (l *Logger) LogDuration(operation string, duration time.Duration) {
	l.Info("operation completed",
		"operation", operation,
		"duration_ms", float64(duration.Nanoseconds())/1e6,
	)
}
