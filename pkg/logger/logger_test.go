package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/noah-isme/la-portal-api/pkg/config"
)

func TestNewHonoursLevel(t *testing.T) {
	l, err := New(&config.Config{Env: config.EnvProduction, Log: config.LogConfig{Level: "warn", Format: "json"}})
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))
}

func TestNewDefaultsPerEnvironment(t *testing.T) {
	dev, err := New(&config.Config{Env: "development", Log: config.LogConfig{Format: "console"}})
	require.NoError(t, err)
	assert.True(t, dev.Core().Enabled(zapcore.DebugLevel))

	prod, err := New(&config.Config{Env: config.EnvProduction})
	require.NoError(t, err)
	assert.False(t, prod.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, prod.Core().Enabled(zapcore.InfoLevel))
}

func TestLevelFallsBackToInfo(t *testing.T) {
	assert.Equal(t, zapcore.InfoLevel, level("loud", zapcore.DebugLevel))
	assert.Equal(t, zapcore.DebugLevel, level("", zapcore.DebugLevel))
	assert.Equal(t, zapcore.ErrorLevel, level("error", zapcore.DebugLevel))
}
