package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		l, err := New(level)
		require.NoError(t, err, level)
		want, _ := zapcore.ParseLevel(level)
		assert.True(t, l.Core().Enabled(want), level)
		assert.False(t, l.Core().Enabled(want-1), level)
	}

	_, err := New("loud")
	assert.Error(t, err)
}

func TestInitReplacesGlobal(t *testing.T) {
	before := L()
	require.NotNil(t, before)
	assert.False(t, before.Core().Enabled(zapcore.ErrorLevel), "default logger is a no-op")

	require.NoError(t, Init("info"))
	assert.True(t, L().Core().Enabled(zapcore.InfoLevel))
	assert.Error(t, Init("nope"))
}
