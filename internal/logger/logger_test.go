package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoggerSourceLocationMethods(t *testing.T) {
	cases := []struct {
		name    string
		logFunc func(Logger)
	}{
		{"Info", func(l Logger) { l.Info("test message") }},
		{"Debug", func(l Logger) { l.Debug("debug message") }},
		{"Error", func(l Logger) { l.Error("error message") }},
		{"Warn", func(l Logger) { l.Warn("warn message") }},
		{"Infof", func(l Logger) { l.Infof("formatted %s", "message") }},
		{"Debugf", func(l Logger) { l.Debugf("debug %d", 42) }},
		{"Errorf", func(l Logger) { l.Errorf("error %v", "test") }},
		{"Warnf", func(l Logger) { l.Warnf("warning %s", "test") }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := NewLogger(WithDebug(), WithFormat("text"), WithWriter(&buf), WithQuiet())

			tc.logFunc(l)

			out := buf.String()
			require.Contains(t, out, "logger_test.go:")
			require.NotContains(t, out, "internal/logger/logger.go")
			require.NotContains(t, out, "slog-multi")
		})
	}
}

func TestLoggerSourceLocationContextFuncs(t *testing.T) {
	cases := []struct {
		name    string
		logFunc func(context.Context)
	}{
		{"Info", func(ctx context.Context) { Info(ctx, "context info message") }},
		{"Debug", func(ctx context.Context) { Debug(ctx, "context debug message") }},
		{"Error", func(ctx context.Context) { Error(ctx, "context error message") }},
		{"Warn", func(ctx context.Context) { Warn(ctx, "context warn message") }},
		{"Infof", func(ctx context.Context) { Infof(ctx, "formatted %s", "context") }},
		{"Debugf", func(ctx context.Context) { Debugf(ctx, "debug %d", 123) }},
		{"Errorf", func(ctx context.Context) { Errorf(ctx, "error %v", "context") }},
		{"Warnf", func(ctx context.Context) { Warnf(ctx, "warning %s", "context") }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := NewLogger(WithDebug(), WithFormat("text"), WithWriter(&buf), WithQuiet())
			ctx := WithLogger(context.Background(), l)

			tc.logFunc(ctx)

			out := buf.String()
			require.Contains(t, out, "logger_test.go:")
			require.NotContains(t, out, "internal/logger/logger.go")
			require.NotContains(t, out, "internal/logger/context.go")
			require.NotContains(t, out, "slog-multi")
		})
	}
}

func TestLoggerSourceLocationThroughHelpers(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WithDebug(), WithFormat("text"), WithWriter(&buf), WithQuiet())

	inner := func(l Logger) { l.Info("from inner helper") }
	outer := func(l Logger) { inner(l) }
	outer(l)

	out := buf.String()
	require.NotContains(t, out, "internal/logger/logger.go")
	require.Contains(t, out, "logger_test.go")
}

func TestLoggerSourceLocationWithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WithDebug(), WithFormat("text"), WithWriter(&buf), WithQuiet())

	l.With("key", "value").Info("with attributes")
	require.NotContains(t, buf.String(), "internal/logger/logger.go")
	require.Contains(t, buf.String(), "logger_test.go")
	require.Contains(t, buf.String(), "key=value")

	buf.Reset()
	l.WithGroup("scope").Info("with group")
	require.NotContains(t, buf.String(), "internal/logger/logger.go")
	require.Contains(t, buf.String(), "logger_test.go")
}

func TestLoggerProductionModeOmitsSource(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WithFormat("text"), WithWriter(&buf), WithQuiet())

	l.Info("production mode")

	require.NotContains(t, buf.String(), "source=")
}

func TestLoggerJSONFormatSourceLocation(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WithDebug(), WithFormat("json"), WithWriter(&buf), WithQuiet())

	l.Info("json format test")

	out := buf.String()
	require.False(t, strings.Contains(out, "internal/logger/logger.go") ||
		strings.Contains(out, `internal\/logger\/logger.go`))
	require.Contains(t, out, "logger_test.go")
}

func TestLoggerQuietSuppressesStdoutOnly(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WithWriter(&buf), WithQuiet())
	l.Info("quiet mode still reaches the explicit writer")
	require.Contains(t, buf.String(), "quiet mode still reaches the explicit writer")
}

func TestLoggerFanOutToMultipleSinks(t *testing.T) {
	var a, b bytes.Buffer
	l := NewLogger(WithWriter(&a), WithLogFile(nil))
	l.Info("default stdout sink plus explicit writer")
	require.Contains(t, a.String(), "default stdout sink plus explicit writer")
	_ = b // the nil log file is a no-op sink; only stdout and a are active
}

func TestFromContextDefaultsWhenUnset(t *testing.T) {
	require.NotNil(t, FromContext(context.Background()))
}
