package logger

import (
	"context"
	"fmt"
	"log/slog"
)

type ctxKey struct{}

var defaultLogger Logger = NewLogger()

// WithLogger returns a copy of ctx carrying l, retrievable with FromContext.
func WithLogger(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the Logger attached to ctx by WithLogger, or a
// package-default Logger if none was attached.
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(ctxKey{}).(Logger); ok {
		return l
	}
	return defaultLogger
}

// Debug logs at debug level using the Logger attached to ctx.
func Debug(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).logAt(ctx, callerSkip, slog.LevelDebug, msg, args...)
}

// Info logs at info level using the Logger attached to ctx.
func Info(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).logAt(ctx, callerSkip, slog.LevelInfo, msg, args...)
}

// Warn logs at warn level using the Logger attached to ctx.
func Warn(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).logAt(ctx, callerSkip, slog.LevelWarn, msg, args...)
}

// Error logs at error level using the Logger attached to ctx.
func Error(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).logAt(ctx, callerSkip, slog.LevelError, msg, args...)
}

// Debugf logs a formatted message at debug level using the Logger attached
// to ctx.
func Debugf(ctx context.Context, format string, args ...any) {
	FromContext(ctx).logAt(ctx, callerSkip, slog.LevelDebug, fmt.Sprintf(format, args...))
}

// Infof logs a formatted message at info level using the Logger attached
// to ctx.
func Infof(ctx context.Context, format string, args ...any) {
	FromContext(ctx).logAt(ctx, callerSkip, slog.LevelInfo, fmt.Sprintf(format, args...))
}

// Warnf logs a formatted message at warn level using the Logger attached
// to ctx.
func Warnf(ctx context.Context, format string, args ...any) {
	FromContext(ctx).logAt(ctx, callerSkip, slog.LevelWarn, fmt.Sprintf(format, args...))
}

// Errorf logs a formatted message at error level using the Logger attached
// to ctx.
func Errorf(ctx context.Context, format string, args ...any) {
	FromContext(ctx).logAt(ctx, callerSkip, slog.LevelError, fmt.Sprintf(format, args...))
}
