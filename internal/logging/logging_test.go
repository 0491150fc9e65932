package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	t.Run("json logger at debug", func(t *testing.T) {
		logger, err := New("debug", "json")
		require.NoError(t, err)
		assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("console logger at warn drops info", func(t *testing.T) {
		logger, err := New("warn", "console")
		require.NoError(t, err)
		assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
		assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
	})

	t.Run("rejects unknown format", func(t *testing.T) {
		_, err := New("info", "xml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "format must be")
	})

	t.Run("rejects unknown level", func(t *testing.T) {
		_, err := New("loud", "json")
		require.Error(t, err)
	})
}
