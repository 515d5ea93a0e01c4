package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWithWriter(Config{Level: "info", Format: "json"}, &buf)
	require.NoError(t, err)

	ctx := WithRunID(context.Background(), "run-1")
	l.Debug(ctx, "hidden")
	l.Info(ctx, "classified", zap.String("kind", "missing_module"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "classified", entry["msg"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "run-1", entry["run.id"])
	assert.Equal(t, "missing_module", entry["kind"])
	assert.Contains(t, entry, "ts")
}

func TestNewWithWriter_Console(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWithWriter(Config{Level: "debug", Format: "console"}, &buf)
	require.NoError(t, err)
	l.Named("engine").Debug(context.Background(), "dispatched")
	assert.Contains(t, buf.String(), "DEBUG")
	assert.Contains(t, buf.String(), "engine")
	assert.Contains(t, buf.String(), "dispatched")
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)
	_, err = New(Config{Format: "xml"})
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, zapcore.InfoLevel, lvl)

	lvl, err = ParseLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, zapcore.WarnLevel, lvl)
}

func TestContextLogger(t *testing.T) {
	tl := NewTestLogger()
	ctx := WithLogger(context.Background(), tl.Logger)
	assert.Same(t, tl.Logger, FromContext(ctx))
	assert.NotNil(t, FromContext(context.Background()))

	FromContext(WithRunID(ctx, "abc")).With(zap.String("strategy", "rename")).Warn(WithRunID(ctx, "abc"), "no edits")
	tl.AssertLogged(t, zapcore.WarnLevel, "no edits")
	tl.AssertField(t, "no edits", "run.id", "abc")
	tl.AssertField(t, "no edits", "strategy", "rename")
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Error(context.Background(), "dropped")
	assert.False(t, l.Enabled(zapcore.ErrorLevel))
	assert.NoError(t, l.Sync())
}
