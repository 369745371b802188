// Package logger provides a small structured logging facade with pluggable
// backends (zerolog, slog, standard log). Every entry is enriched with the
// trace_id and request_id carried by the context.
package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/calque-ai/reviewchat/pkg/reqctx"
)

// LogLevel represents logging levels (Debug < Info < Warn < Error)
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// ParseLevel converts a level name ("debug", "info", "warn", "error") to a LogLevel.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel, nil
	case "", "info":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	default:
		return InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}

// Attribute represents a structured logging attribute for key-value pairs
type Attribute struct {
	Key   string
	Value any
}

// Attr creates an Attribute
func Attr(key string, value any) Attribute {
	return Attribute{Key: key, Value: value}
}

// Adapter defines the contract for logging backends (zerolog, slog, standard log, etc.)
type Adapter interface {
	Log(ctx context.Context, level LogLevel, msg string, attrs ...Attribute) // Structured logging with level
	IsLevelEnabled(ctx context.Context, level LogLevel) bool                 // Performance check - skip work if disabled
	Printf(format string, v ...any)                                          // Simple printf-style logging
}

// Logger wraps an Adapter backend. A nil *Logger discards everything.
type Logger struct {
	backend Adapter
}

// New creates a Logger with a custom backend (zerolog, slog, etc.)
func New(backend Adapter) *Logger {
	return &Logger{backend: backend}
}

// Default creates a Logger using the standard library log package (simple, no levels)
func Default() *Logger {
	return New(NewStandardAdapter(log.Default()))
}

// Nop returns a Logger that drops every entry.
func Nop() *Logger {
	return New(nopAdapter{})
}

// Build creates a Logger for the named backend ("zerolog", "slog", "standard")
// writing to w at the given minimum level.
//
// Example:
//
//	log, err := logger.Build("zerolog", "debug", os.Stderr)
func Build(backend, level string, w io.Writer) (*Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if w == nil {
		w = os.Stderr
	}

	switch strings.ToLower(backend) {
	case "", "zerolog":
		zl := zerolog.New(w).With().Timestamp().Logger().Level(logLevelToZerolog(lvl))
		return New(NewZerologAdapter(zl)), nil
	case "slog":
		h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: logLevelToSlog(lvl)})
		return New(NewSlogAdapter(slog.New(h))), nil
	case "standard":
		return New(NewStandardAdapter(log.New(w, "", log.LstdFlags))), nil
	default:
		return nil, fmt.Errorf("unknown log backend %q", backend)
	}
}

func (l *Logger) Debug(ctx context.Context, msg string, attrs ...Attribute) {
	l.log(ctx, DebugLevel, msg, attrs)
}

func (l *Logger) Info(ctx context.Context, msg string, attrs ...Attribute) {
	l.log(ctx, InfoLevel, msg, attrs)
}

func (l *Logger) Warn(ctx context.Context, msg string, attrs ...Attribute) {
	l.log(ctx, WarnLevel, msg, attrs)
}

func (l *Logger) Error(ctx context.Context, msg string, attrs ...Attribute) {
	l.log(ctx, ErrorLevel, msg, attrs)
}

// Err logs err at the given level. When err is (or wraps) a *reqctx.Error its
// tags are flattened into the entry.
func (l *Logger) Err(ctx context.Context, level LogLevel, msg string, err error, attrs ...Attribute) {
	if err != nil {
		attrs = append(attrs, Attr("error", err.Error()))
		var rerr *reqctx.Error
		if errors.As(err, &rerr) {
			for _, a := range rerr.LogAttrs() {
				switch a.Key {
				case "error", "trace_id", "request_id":
					continue
				}
				attrs = append(attrs, Attr(a.Key, a.Value.Any()))
			}
		}
	}
	l.log(ctx, level, msg, attrs)
}

func (l *Logger) log(ctx context.Context, level LogLevel, msg string, attrs []Attribute) {
	if l == nil || l.backend == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if !l.backend.IsLevelEnabled(ctx, level) {
		return
	}
	l.backend.Log(ctx, level, msg, appendContextFields(ctx, attrs)...)
}

func appendContextFields(ctx context.Context, attrs []Attribute) []Attribute {
	if traceID := reqctx.TraceID(ctx); traceID != "" {
		attrs = append(attrs, Attr("trace_id", traceID))
	}
	if requestID := reqctx.RequestID(ctx); requestID != "" {
		attrs = append(attrs, Attr("request_id", requestID))
	}
	return attrs
}

type nopAdapter struct{}

func (nopAdapter) Log(context.Context, LogLevel, string, ...Attribute) {}

func (nopAdapter) IsLevelEnabled(context.Context, LogLevel) bool { return false }

func (nopAdapter) Printf(string, ...any) {}
