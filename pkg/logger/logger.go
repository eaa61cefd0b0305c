// Package logger provides a small structured logging interface on top of slog.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// callerSkip skips runtime.Callers, caller, write and the Logger method.
const callerSkip = 4

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Logger defines the logging interface.
type Logger interface {
	Info(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, fields ...Field)
	Debug(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Fatal(ctx context.Context, msg string, fields ...Field)

	// Log writes at a level picked at runtime.
	Log(ctx context.Context, level slog.Level, msg string, fields ...Field)

	Named(name string) Logger
	With(fields ...Field) Logger
}

// Field represents a key-value pair for structured logging.
type Field struct {
	Key   string
	Value interface{}
}

// Field constructors.
func String(key, val string) Field          { return Field{Key: key, Value: val} }
func Int(key string, val int) Field         { return Field{Key: key, Value: val} }
func Float64(key string, val float64) Field { return Field{Key: key, Value: val} }
func Any(key string, val interface{}) Field { return Field{Key: key, Value: val} }
func Bool(key string, val bool) Field       { return Field{Key: key, Value: val} }
func Duration(key string, val time.Duration) Field {
	return Field{Key: key, Value: val.String()}
}
func Time(key string, val time.Time) Field { return Field{Key: key, Value: val.Format(time.RFC3339)} }
func Error(err error) Field                { return Field{Key: "error", Value: err} }

type slogLogger struct {
	sl *slog.Logger
}

func (l *slogLogger) Named(name string) Logger {
	return &slogLogger{sl: l.sl.With(slog.String("component", name))}
}

func (l *slogLogger) With(fields ...Field) Logger {
	args := make([]any, 0, len(fields))
	for _, a := range attrs(fields) {
		args = append(args, a)
	}
	return &slogLogger{sl: l.sl.With(args...)}
}

func (l *slogLogger) Log(ctx context.Context, level slog.Level, msg string, fields ...Field) {
	l.write(ctx, level, msg, fields)
}

func (l *slogLogger) Info(ctx context.Context, msg string, fields ...Field) {
	l.write(ctx, slog.LevelInfo, msg, fields)
}

func (l *slogLogger) Error(ctx context.Context, msg string, fields ...Field) {
	l.write(ctx, slog.LevelError, msg, fields)
}

func (l *slogLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.write(ctx, slog.LevelDebug, msg, fields)
}

func (l *slogLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.write(ctx, slog.LevelWarn, msg, fields)
}

func (l *slogLogger) Fatal(ctx context.Context, msg string, fields ...Field) {
	l.write(ctx, slog.LevelError, msg, fields)
	os.Exit(1)
}

func (l *slogLogger) write(ctx context.Context, level slog.Level, msg string, fields []Field) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !l.sl.Enabled(ctx, level) {
		return
	}
	a := append(attrs(fields), slog.String("source", caller()))
	l.sl.LogAttrs(ctx, level, msg, a...)
}

func attrs(fields []Field) []slog.Attr {
	out := make([]slog.Attr, len(fields), len(fields)+1)
	for i, f := range fields {
		out[i] = slog.Any(f.Key, f.Value)
	}
	return out
}

var (
	global   atomic.Pointer[slogLogger]
	levelVar slog.LevelVar
)

// Init installs a text logger on stdout at info level.
func Init() error {
	levelVar.Set(slog.LevelInfo)
	return Configure(os.Stdout, FormatText)
}

// Configure replaces the global logger with one writing format to w.
func Configure(w io.Writer, format string) error {
	l, err := newLogger(w, format)
	if err != nil {
		return err
	}
	global.Store(l)
	return nil
}

// New returns a logger writing text records to w, sharing the global level.
func New(w io.Writer) Logger {
	l, _ := newLogger(w, FormatText)
	return l
}

// NewNop returns a logger that discards everything.
func NewNop() Logger {
	return &slogLogger{sl: slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))}
}

func newLogger(w io.Writer, format string) (*slogLogger, error) {
	opts := &slog.HandlerOptions{Level: &levelVar}
	var h slog.Handler
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatText:
		h = slog.NewTextHandler(w, opts)
	case FormatJSON:
		h = slog.NewJSONHandler(w, opts)
	default:
		return nil, fmt.Errorf("unknown log format: %s", format)
	}
	return &slogLogger{sl: slog.New(h)}, nil
}

var workDir = sync.OnceValue(func() string {
	wd, _ := os.Getwd()
	return wd
})

// caller returns the logging call site as a path relative to the working directory.
func caller() string {
	var pcs [1]uintptr
	if runtime.Callers(callerSkip, pcs[:]) == 0 {
		return "unknown:0"
	}
	frame, _ := runtime.CallersFrames(pcs[:]).Next()
	file := filepath.Base(frame.File)
	if wd := workDir(); wd != "" {
		if rel, err := filepath.Rel(wd, frame.File); err == nil {
			file = rel
		}
	}
	return fmt.Sprintf("%s:%d", file, frame.Line)
}

// Get returns the global logger. Before Init it writes text to stderr.
func Get() Logger {
	if l := global.Load(); l != nil {
		return l
	}
	l, _ := newLogger(os.Stderr, FormatText)
	global.CompareAndSwap(nil, l)
	return global.Load()
}

// Named creates a named logger.
func Named(name string) Logger {
	return Get().Named(name)
}

// Sync flushes buffered log entries. slog does not buffer.
func Sync() error {
	return nil
}

// SetLevel updates the level of every logger but NewNop.
func SetLevel(level slog.Level) { levelVar.Set(level) }

// SetLevelString parses and sets the logging level.
// Accepts: debug, info, warn/warning, error (case-insensitive).
func SetLevelString(level string) error {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		SetLevel(slog.LevelDebug)
	case "", "info":
		SetLevel(slog.LevelInfo)
	case "warn", "warning":
		SetLevel(slog.LevelWarn)
	case "error":
		SetLevel(slog.LevelError)
	default:
		return fmt.Errorf("unknown log level: %s", level)
	}
	return nil
}
