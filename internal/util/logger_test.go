package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestInitLoggerLevelOverride(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")

	require.NoError(t, InitLogger("development"))
	defer SyncLogger()

	log := GetLogger()
	assert.Nil(t, log.Check(zapcore.InfoLevel, "hidden"))
	assert.NotNil(t, log.Check(zapcore.WarnLevel, "shown"))
}

func TestInitLoggerRejectsInvalidLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "loudest")

	err := InitLogger("development")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LOG_LEVEL")
}

func TestInitLoggerDefaultsWithoutOverride(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")

	require.NoError(t, InitLogger("development"))
	defer SyncLogger()

	assert.NotNil(t, GetLogger().Check(zapcore.InfoLevel, "shown"))
}
