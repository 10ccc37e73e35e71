package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kingrea/selection-journey/internal/config"
)

func TestNewWritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "journey.log")
	logger, closeLog, err := New(config.LoggingConfig{Level: "info", MaxSizeMB: 1}, path, Options{})
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("signals changed", zap.Strings("signals", []string{"stage"}), zap.Uint64("version", 3))
	require.NoError(t, closeLog())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1, "debug entries stay below the configured level")

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "signals changed", entry["message"])
	assert.Contains(t, entry, "timestamp")
	assert.EqualValues(t, 3, entry["version"])
}

func TestConsoleMirror(t *testing.T) {
	var buf bytes.Buffer
	logger, closeLog, err := New(config.LoggingConfig{Level: "debug"}, filepath.Join(t.TempDir(), "j.log"), Options{Console: &buf})
	require.NoError(t, err)
	logger.Debug("scheduled reply")
	require.NoError(t, closeLog())
	assert.Contains(t, buf.String(), "scheduled reply")
}

func TestFromConfigUsesProjectPaths(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.NewConfig(dir)
	require.NoError(t, err)
	logger, closeLog, err := FromConfig(cfg, Options{})
	require.NoError(t, err)
	logger.Warn("router fallback")
	require.NoError(t, closeLog())
	_, err = os.Stat(filepath.Join(dir, config.JourneyDir, "logs", "journey.log"))
	assert.NoError(t, err)
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, zapcore.InfoLevel, level)

	level, err = ParseLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, zapcore.WarnLevel, level)

	_, err = ParseLevel("chatty")
	assert.Error(t, err)
}
