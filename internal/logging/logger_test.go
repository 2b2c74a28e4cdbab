package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()

	entries := []map[string]any{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		entry := map[string]any{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		entries = append(entries, entry)
	}

	return entries
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tcs := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"Warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"unknown": slog.LevelInfo,
		"":        slog.LevelInfo,
	}

	for level, expected := range tcs {
		assert.Equal(t, expected, parseLevel(level), level)
	}
	assert.True(t, ValidLevel("debug"))
	assert.False(t, ValidLevel("trace"))
}

func TestLoggerAttributes(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	logger := NewLogger(buf, LevelDebug, FormatJSON)
	child := logger.WithPipeline("deployment").WithStep("trainer").WithModel("classifier", "3").With("epochs", 2)

	child.Info("step done", "accuracy", 0.9)
	logger.Debug("plain")

	entries := decodeLines(t, buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "step done", entries[0]["msg"])
	assert.Equal(t, "deployment", entries[0]["pipeline"])
	assert.Equal(t, "trainer", entries[0]["step"])
	assert.Equal(t, "classifier", entries[0]["model"])
	assert.Equal(t, "3", entries[0]["model_version"])
	assert.InDelta(t, 2, entries[0]["epochs"], 0)
	assert.InDelta(t, 0.9, entries[0]["accuracy"], 0.0001)
	assert.NotContains(t, entries[1], "pipeline")
}

func TestLoggerLevel(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	logger := NewLogger(buf, LevelWarn, FormatText)
	logger.Info("hidden")
	logger.Warn("shown", "key", "value")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=shown")
	assert.Contains(t, buf.String(), "key=value")
}

func TestFileLogger(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "run.log")
	logger, err := NewFileLogger(path, LevelInfo, FormatJSON)
	require.NoError(t, err)
	logger.WithStep("loader").Info("loaded")
	require.NoError(t, logger.Close())
	require.NoError(t, logger.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"step":"loader"`)
}

func TestNopLogger(t *testing.T) {
	t.Parallel()

	logger := NopLogger()
	logger.Error("discarded")
	assert.NoError(t, logger.Close())
}
