package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestTestLogger_CapturesTrace(t *testing.T) {
	tl := NewTestLogger()
	ctx := context.Background()

	tl.Trace(ctx, "model request")
	tl.Info(ctx, "project created")

	assert.Len(t, tl.All(), 2)
}

func TestTestLogger_AssertLogged(t *testing.T) {
	tl := NewTestLogger()

	tl.Warn(context.Background(), "api key not set, falling back to rules")

	tl.AssertLogged(t, zapcore.WarnLevel, "api key not set")
}

func TestTestLogger_AssertNotLogged(t *testing.T) {
	tl := NewTestLogger()

	tl.Info(context.Background(), "scope config saved")

	tl.AssertNotLogged(t, zapcore.ErrorLevel, "scope config")
}

func TestTestLogger_AssertField(t *testing.T) {
	tl := NewTestLogger()

	tl.Info(context.Background(), "estimate finished", zap.String("size", "Large"))

	tl.AssertField(t, "estimate finished", "size", "Large")
}

func TestTestLogger_Reset(t *testing.T) {
	tl := NewTestLogger()
	ctx := context.Background()

	tl.Info(ctx, "before reset")
	tl.Reset()
	tl.Info(ctx, "after reset")

	entries := tl.All()
	assert.Len(t, entries, 1)
	assert.Equal(t, "after reset", entries[0].Message)
}
