// internal/observability/logger_test.go
package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/websession/internal/config"
)

func TestInitializeOnce(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	buf := &zaptest.Buffer{}
	Initialize(config.LoggerConfig{Level: "debug", Format: "json", ServiceName: "websession-test"}, buf)

	logger := GetLogger()
	require.NotNil(t, logger)
	logger.Info("hello")

	lines := buf.Lines()
	require.NotEmpty(t, lines)
	assert.Contains(t, lines[0], `"hello"`)
	assert.Contains(t, lines[0], "websession-test")

	// A second Initialize is a no-op; the logger instance is unchanged.
	Initialize(config.LoggerConfig{Level: "error", ServiceName: "other"}, &zaptest.Buffer{})
	assert.Same(t, logger, GetLogger())
}

func TestInitializeBadLevelFallsBack(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	buf := &zaptest.Buffer{}
	Initialize(config.LoggerConfig{Level: "chatty", Format: "json", ServiceName: "t"}, buf)

	GetLogger().Debug("below info, dropped")
	GetLogger().Info("at info, kept")

	lines := buf.Lines()
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "at info, kept")
}

func TestGetLoggerBeforeInitialize(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	// Never panics, never returns nil.
	assert.NotNil(t, GetLogger())
}
