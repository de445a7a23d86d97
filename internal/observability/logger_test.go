// internal/observability/logger_test.go
package observability

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xkilldash9x/editbridge/internal/config"
)

// resetGlobal clears the singleton so each test initializes from scratch.
func resetGlobal() {
	initOnce = sync.Once{}
	global.Store(nil)
}

// memSink is an in-memory WriteSyncer standing in for stdout.
type memSink struct {
	bytes.Buffer
}

func (s *memSink) Sync() error { return nil }

func TestConsoleFormatColorsLevel(t *testing.T) {
	resetGlobal()
	sink := &memSink{}

	Initialize(config.LoggerConfig{
		Level:       "debug",
		Format:      "console",
		ServiceName: "TestService",
		Colors:      config.ColorConfig{Info: "green"},
	}, zapcore.AddSync(sink))

	GetLogger().Info("something happened")

	out := sink.String()
	assert.Contains(t, out, "INFO")
	assert.Contains(t, out, "something happened")
	assert.Contains(t, out, ansiCodes["green"])
	assert.Contains(t, out, ansiReset)
	assert.Contains(t, out, "TestService.")
}

func TestJSONFormat(t *testing.T) {
	resetGlobal()
	sink := &memSink{}

	Initialize(config.LoggerConfig{
		Level:       "info",
		Format:      "json",
		ServiceName: "JSONTest",
	}, zapcore.AddSync(sink))

	GetLogger().Warn("structured entry", zap.String("key", "value"))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(sink.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "JSONTest", entry["logger"])
	assert.Equal(t, "structured entry", entry["msg"])
	assert.Equal(t, "value", entry["key"])
}

func TestLogFileTee(t *testing.T) {
	resetGlobal()
	path := filepath.Join(t.TempDir(), "agent.log")

	Initialize(config.LoggerConfig{
		Level:   "debug",
		Format:  "json",
		LogFile: path,
		MaxSize: 1,
	}, zapcore.AddSync(&memSink{}))

	GetLogger().Error("went to the file")
	Sync()

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "went to the file")
}

func TestInitializeIsOneShot(t *testing.T) {
	resetGlobal()
	sink := &memSink{}

	Initialize(config.LoggerConfig{Level: "info", ServiceName: "First"}, zapcore.AddSync(sink))
	first := GetLogger()

	Initialize(config.LoggerConfig{Level: "debug", ServiceName: "Second"}, zapcore.AddSync(&memSink{}))
	second := GetLogger()

	assert.Same(t, first, second)
	second.Info("after second init")
	assert.True(t, strings.Contains(sink.String(), "First"))
	assert.False(t, strings.Contains(sink.String(), "Second"))
}

func TestGetLoggerFallback(t *testing.T) {
	resetGlobal()
	logger := GetLogger()
	require.NotNil(t, logger)

	resetGlobal()
	Initialize(config.LoggerConfig{Level: "info", ServiceName: "GlobalTest"}, zapcore.AddSync(&memSink{}))
	assert.Same(t, global.Load(), GetLogger())
}
