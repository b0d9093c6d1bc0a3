package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNopLogger(t *testing.T) {
	var l Logger = NopLogger{}
	assert.NotPanics(t, func() {
		l.Debug("d", "k", 1)
		l.Info("i")
		l.Warn("w")
		l.Error("e")
		l.With("k", "v").Info("child")
	})
}

func TestOrNop(t *testing.T) {
	assert.Equal(t, NopLogger{}, OrNop(nil))

	s := NewSlogAdapter(nil)
	assert.Same(t, s, OrNop(s))
}

func TestSlogAdapter(t *testing.T) {
	var buf bytes.Buffer
	h := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	l := NewSlogAdapter(slog.New(h)).With("component", "differ")

	l.Warn("duplicate endpoint", "path", "/x")

	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "component=differ")
	assert.Contains(t, out, "path=/x")
}

func TestZapAdapter(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewZapAdapter(zap.New(core)).With("artifact", "api.jmx")

	l.Debug("indexed", "samplers", 3)
	l.Info("saved")
	l.Warn("sampler missing", "path", "/ghost")
	l.Error("failed")

	require.Equal(t, 4, logs.Len())
	entries := logs.All()
	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
	assert.Equal(t, "sampler missing", entries[2].Message)

	ctx := entries[2].ContextMap()
	assert.Equal(t, "api.jmx", ctx["artifact"])
	assert.Equal(t, "/ghost", ctx["path"])
}

func TestNewZapAdapter_NilLogger(t *testing.T) {
	l := NewZapAdapter(nil)
	assert.NotPanics(t, func() { l.Info("ignored") })
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"loud", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.level))
		})
	}
}

func TestNewZap(t *testing.T) {
	for _, format := range []string{FormatJSON, FormatConsole, "bogus"} {
		t.Run(format, func(t *testing.T) {
			l, err := NewZap("debug", format)
			require.NoError(t, err)
			require.NotNil(t, l)
			assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
		})
	}
}
