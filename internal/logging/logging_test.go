package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewSetsLevel(t *testing.T) {
	logger, err := New("warn", false)
	require.NoError(t, err)
	assert.False(t, logger.Desugar().Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Desugar().Core().Enabled(zapcore.WarnLevel))
	assert.True(t, zap.S().Desugar().Core().Enabled(zapcore.WarnLevel))

	dev, err := New("debug", true)
	require.NoError(t, err)
	assert.True(t, dev.Desugar().Core().Enabled(zapcore.DebugLevel))
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New("loud", false)
	assert.Error(t, err)
}
