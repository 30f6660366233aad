// Package logger provides the driver's structured logger: a thin wrapper
// over log/slog that fans out to stdout and an optional log file at once,
// and reports the caller's source location rather than its own internal
// frames.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"time"

	slogmulti "github.com/samber/slog-multi"
)

// callerSkip is the runtime.Callers depth that lands on the frame that
// invoked one of Logger's public methods (or one of the package-level
// context-threaded functions below). Every public entry point calls logAt
// directly, so the frame chain is always Callers -> logAt -> entry point ->
// caller, regardless of whether the entry point is a method or a free
// function.
const callerSkip = 3

// Logger is the driver's logging surface. Debug/Info/Warn/Error take a
// message plus slog-style alternating key/value pairs; the f-suffixed
// variants take a printf-style format string instead.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)

	// With returns a Logger that attaches args to every subsequent record.
	With(args ...any) Logger
	// WithGroup returns a Logger that nests subsequent attributes under name.
	WithGroup(name string) Logger

	// logAt is the shared implementation every public method and every
	// package-level function below calls into directly, so that the
	// reported source location is always callerSkip frames up regardless of
	// entry point.
	logAt(ctx context.Context, skip int, level slog.Level, msg string, args ...any)
}

type options struct {
	debug   bool
	format  string
	writer  io.Writer
	quiet   bool
	logFile *os.File
}

// Option configures a Logger built by NewLogger.
type Option func(*options)

// WithDebug enables debug-level logging and source-location reporting.
func WithDebug() Option {
	return func(o *options) { o.debug = true }
}

// WithFormat selects the handler format, "text" (default) or "json".
func WithFormat(format string) Option {
	return func(o *options) { o.format = format }
}

// WithWriter adds w as an additional log sink.
func WithWriter(w io.Writer) Option {
	return func(o *options) { o.writer = w }
}

// WithQuiet suppresses the default stdout sink.
func WithQuiet() Option {
	return func(o *options) { o.quiet = true }
}

// WithLogFile adds f as an additional log sink, typically a run's own log
// file opened by the caller.
func WithLogFile(f *os.File) Option {
	return func(o *options) { o.logFile = f }
}

// NewLogger builds a Logger from opts. With no options it logs text at info
// level to stdout.
func NewLogger(opts ...Option) Logger {
	o := &options{format: "text"}
	for _, opt := range opts {
		opt(o)
	}

	level := slog.LevelInfo
	if o.debug {
		level = slog.LevelDebug
	}

	var sinks []io.Writer
	if !o.quiet {
		sinks = append(sinks, os.Stdout)
	}
	if o.writer != nil {
		sinks = append(sinks, o.writer)
	}
	if o.logFile != nil {
		sinks = append(sinks, o.logFile)
	}
	if len(sinks) == 0 {
		sinks = append(sinks, os.Stdout)
	}

	handlers := make([]slog.Handler, len(sinks))
	for i, w := range sinks {
		handlers[i] = newHandler(o.format, o.debug, level, w)
	}

	h := handlers[0]
	if len(handlers) > 1 {
		h = slogmulti.Fanout(handlers...)
	}
	return &slogLogger{handler: h}
}

func newHandler(format string, addSource bool, level slog.Level, w io.Writer) slog.Handler {
	hopts := &slog.HandlerOptions{AddSource: addSource, Level: level}
	if format == "json" {
		return slog.NewJSONHandler(w, hopts)
	}
	return slog.NewTextHandler(w, hopts)
}

type slogLogger struct {
	handler slog.Handler
}

func (l *slogLogger) logAt(ctx context.Context, skip int, level slog.Level, msg string, args ...any) {
	if !l.handler.Enabled(ctx, level) {
		return
	}
	var pcs [1]uintptr
	runtime.Callers(skip, pcs[:])
	r := slog.NewRecord(time.Now(), level, msg, pcs[0])
	r.Add(args...)
	_ = l.handler.Handle(ctx, r)
}

func (l *slogLogger) Debug(msg string, args ...any) {
	l.logAt(context.Background(), callerSkip, slog.LevelDebug, msg, args...)
}

func (l *slogLogger) Info(msg string, args ...any) {
	l.logAt(context.Background(), callerSkip, slog.LevelInfo, msg, args...)
}

func (l *slogLogger) Warn(msg string, args ...any) {
	l.logAt(context.Background(), callerSkip, slog.LevelWarn, msg, args...)
}

func (l *slogLogger) Error(msg string, args ...any) {
	l.logAt(context.Background(), callerSkip, slog.LevelError, msg, args...)
}

func (l *slogLogger) Debugf(format string, args ...any) {
	l.logAt(context.Background(), callerSkip, slog.LevelDebug, fmt.Sprintf(format, args...))
}

func (l *slogLogger) Infof(format string, args ...any) {
	l.logAt(context.Background(), callerSkip, slog.LevelInfo, fmt.Sprintf(format, args...))
}

func (l *slogLogger) Warnf(format string, args ...any) {
	l.logAt(context.Background(), callerSkip, slog.LevelWarn, fmt.Sprintf(format, args...))
}

func (l *slogLogger) Errorf(format string, args ...any) {
	l.logAt(context.Background(), callerSkip, slog.LevelError, fmt.Sprintf(format, args...))
}

func (l *slogLogger) With(args ...any) Logger {
	return &slogLogger{handler: l.handler.WithAttrs(attrsFromArgs(args))}
}

func (l *slogLogger) WithGroup(name string) Logger {
	return &slogLogger{handler: l.handler.WithGroup(name)}
}

// attrsFromArgs converts a slog-style alternating key/value arg list into
// Attrs the same way slog.Record.Add does, so WithAttrs sees the identical
// encoding Handle would have produced from those args directly.
func attrsFromArgs(args []any) []slog.Attr {
	if len(args) == 0 {
		return nil
	}
	r := slog.NewRecord(time.Time{}, slog.LevelInfo, "", 0)
	r.Add(args...)
	attrs := make([]slog.Attr, 0, r.NumAttrs())
	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, a)
		return true
	})
	return attrs
}
