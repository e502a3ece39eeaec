package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// TestParseLogLevel verifies mapping from strings to zapcore.Level and handling of unknown values.
func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"info":    zapcore.InfoLevel,
		"warn":    zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"panic":   zapcore.PanicLevel,
		"fatal":   zapcore.FatalLevel,
		" INFO ":  zapcore.InfoLevel,
	}
	for s, lvl := range cases {
		got, ok := ParseLogLevel(s)
		require.True(t, ok, s)
		require.Equal(t, lvl, got)
	}

	_, ok := ParseLogLevel("unknown")
	require.False(t, ok)
}

// TestFromContext_FallsBackToNop ensures logging without an attached logger is safe.
func TestFromContext_FallsBackToNop(t *testing.T) {
	t.Parallel()

	require.NotNil(t, FromContext(context.Background()))
	InfoKV(context.Background(), "Nobody listens", "key", "value")
}

// TestContextHelpers checks that names and fields reach the output.
func TestContextHelpers(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	ctx := ToContext(context.Background(), New(zap.NewAtomicLevelAt(zap.DebugLevel), &buf))
	ctx = WithName(ctx, "alarm-handler")
	ctx = WithKV(ctx, "alarm_set", "CalXAdc_TH1_*")

	WarnKV(ctx, "Alarm misconfigured", "algorithm", "x_average")
	Sync(ctx)

	out := buf.String()
	require.Contains(t, out, "alarm-handler")
	require.Contains(t, out, "Alarm misconfigured")
	require.Contains(t, out, "CalXAdc_TH1_*")
	require.Contains(t, out, "x_average")
}

// TestLevelFiltering verifies that messages below the level are dropped.
func TestLevelFiltering(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	ctx := ToContext(context.Background(), NewFromString("warn", &buf))
	Info(ctx, "hidden")
	ErrorKV(ctx, "shown", "error", "boom")

	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), "shown")
}
