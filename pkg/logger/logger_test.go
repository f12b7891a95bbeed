package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestNewDefaults(t *testing.T) {
	l, err := New(Config{})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestFromContextAddsFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	base := zap.New(core)

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-1")
	ctx = ContextWithEntity(ctx, "Computer")
	ctx = ContextWithOperation(ctx, "insert")

	FromContext(ctx, base).Info("stored")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "Computer", fields["entity"])
	assert.Equal(t, "insert", fields["operation"])
}

func TestReplaceSwapsGlobalLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	previous := Get()
	Replace(zap.New(core))
	t.Cleanup(func() { Replace(previous) })

	Info("hello", zap.String("k", "v"))
	With(zap.Int("n", 1)).Warn("careful")

	assert.Equal(t, 2, logs.Len())
	assert.NoError(t, Sync())
}
