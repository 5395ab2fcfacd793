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

func TestNewFallsBackToInfo(t *testing.T) {
	l, err := New(Config{Level: "nonsense", Encoding: "console"})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestWithRequestIDAddsContextFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	ctx := ContextWithActorID(ContextWithRequestID(context.Background(), "req-1"), "actor-9")
	WithRequestID(ctx, base).Info("hello")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "actor-9", fields["actor_id"])
	assert.Equal(t, "actor-9", ActorID(ctx))
}
