package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsoleHandlerFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelDebug, Output: &buf})

	logger.With("component", "runner").Info("backend reset", "configuration", "Python")

	line := strings.TrimSuffix(buf.String(), "\n")
	require.NotEmpty(t, line)
	assert.Contains(t, line, "[info] runner: backend reset")
	assert.Contains(t, line, "configuration=Python")
	assert.NotContains(t, line, "component=")
}

func TestConsoleHandlerQuotesValuesWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelInfo, Output: &buf})

	logger.Warn("dropping malformed frame", "line", "not a frame")

	assert.Contains(t, buf.String(), `line="not a frame"`)
}

func TestConsoleHandlerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelWarn, Output: &buf})

	logger.Debug("hidden")
	logger.Info("also hidden")
	logger.Error("visible")

	output := buf.String()
	assert.NotContains(t, output, "hidden")
	assert.Contains(t, output, "[error] visible")
}

func TestJSONHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelInfo, Output: &buf, JSON: true})

	logger.Info("started", "pid", 42)

	assert.Contains(t, buf.String(), `"msg":"started"`)
	assert.Contains(t, buf.String(), `"pid":42`)
}
